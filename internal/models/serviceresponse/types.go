// internal/models/serviceresponse/types.go
package serviceresponse

import "time"

// CycleResult representa el resultado de un ciclo de reconciliación.
type CycleResult struct {
	CycleID          string         `json:"cycle_id"`
	StartedAt        time.Time      `json:"started_at"`
	DurationMS       int64          `json:"duration_ms"`
	TotalFound       int            `json:"total_found"`
	ClientFiltered   int            `json:"client_filtered"`
	CategoryFiltered int            `json:"category_filtered"`
	New              int            `json:"new"`
	Updated          int            `json:"updated"`
	Skipped          int            `json:"skipped"`
	Canceled         int            `json:"canceled"`
	Failed           int            `json:"failed"`
	LedgerErrors     int            `json:"ledger_errors"`
	UpstreamError    string         `json:"upstream_error,omitempty"`
	Details          []OrderOutcome `json:"details"`
}

// OrderOutcome es lo que pasó con una orden dentro del ciclo.
type OrderOutcome struct {
	OrderID      string   `json:"order_id"`
	OrderNumber  int64    `json:"order_number"`
	ProductNames []string `json:"product_names"`
	State        string   `json:"state"`
	Action       string   `json:"action"`
	Error        string   `json:"error,omitempty"`
}
