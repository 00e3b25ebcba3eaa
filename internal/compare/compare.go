package compare

import (
	"errors"
	"strings"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
)

// State es el estado de una orden respecto al ledger.
type State string

const (
	StateCanceled      State = "canceled"
	StateUnseen        State = "unseen"
	StateSeenUnprinted State = "seen_unprinted"
	StateSeenStable    State = "seen_stable"
	StateSeenChanged   State = "seen_changed"
)

// Action es lo que el reconciliador hace con la orden.
type Action string

const (
	ActionSkipCanceled Action = "skip_canceled"
	ActionDispatchNew  Action = "dispatch_new"
	ActionReprint      Action = "dispatch_update"
	ActionSkip         Action = "skip"
)

// Result describe el resultado de la comparación
type Result struct {
	State        State
	Action       Action
	OrderID      string
	StoredDate   string // updatedDate guardado en el ledger
	CurrentDate  string // updatedDate actual del upstream
	ProductNames []string
}

// Reason es el motivo de despacho para la acción, vacío si no se despacha.
func (r Result) Reason() models.DispatchReason {
	switch r.Action {
	case ActionDispatchNew:
		return models.ReasonNewOrder
	case ActionReprint:
		return models.ReasonOrderUpdated
	}
	return ""
}

// NormalizeDate quita la fracción de segundo y el sufijo Z / +00:00.
// La comparación es de strings a propósito: dos fechas que solo difieren en
// precisión o en cómo escriben UTC son iguales; cualquier otra diferencia no.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "Z")
	s = strings.TrimSuffix(s, "+00:00")
	return s
}

// SameDate compara dos updatedDate después de normalizarlas.
func SameDate(a, b string) bool {
	return NormalizeDate(a) == NormalizeDate(b)
}

// CompareOrder clasifica la orden contra su entrada del ledger (nil = nunca vista).
// La cancelación se evalúa antes que cualquier dato del ledger.
func CompareOrder(order *models.Order, entry *models.LedgerEntry) (Result, error) {
	if order == nil {
		return Result{}, errors.New("order is nil")
	}

	result := Result{
		OrderID:      order.ID,
		CurrentDate:  order.UpdatedDate,
		ProductNames: order.GetProductNames(),
	}

	if order.IsCanceled() {
		result.State = StateCanceled
		result.Action = ActionSkipCanceled
		return result, nil
	}

	switch {
	case entry == nil:
		result.State = StateUnseen
		result.Action = ActionDispatchNew
	case !entry.ProcessedForPrint:
		result.State = StateSeenUnprinted
		result.Action = ActionDispatchNew
		result.StoredDate = entry.LastKnownUpdatedDate
	case SameDate(entry.LastKnownUpdatedDate, order.UpdatedDate):
		result.State = StateSeenStable
		result.Action = ActionSkip
		result.StoredDate = entry.LastKnownUpdatedDate
	default:
		result.State = StateSeenChanged
		result.Action = ActionReprint
		result.StoredDate = entry.LastKnownUpdatedDate
	}

	return result, nil
}
