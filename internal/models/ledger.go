package models

import "time"

// PrintStatus es el resultado del último despacho a impresión.
type PrintStatus string

const (
	PrintStatusPending PrintStatus = "pending"
	PrintStatusSent    PrintStatus = "sent"
	PrintStatusFailed  PrintStatus = "failed"
	PrintStatusError   PrintStatus = "error"
)

// LedgerEntry registra lo último que vimos de una orden.
// LastKnownUpdatedDate es el updatedDate del upstream tal cual llegó.
type LedgerEntry struct {
	OrderID              string      `json:"order_id"`
	LastCheckedAt        time.Time   `json:"last_checked_at"`
	ProcessedForPrint    bool        `json:"processed_for_print"`
	PrintStatus          PrintStatus `json:"print_status"`
	LastKnownUpdatedDate string      `json:"last_known_updated_date"`
	ReprintCount         int         `json:"reprint_count"`
}
