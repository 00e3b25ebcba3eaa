package models

// DispatchReason explica por qué una orden se manda a imprimir.
type DispatchReason string

const (
	ReasonNewOrder     DispatchReason = "new order"
	ReasonOrderUpdated DispatchReason = "order updated"
)

const DispatchSourcePoll = "poll"

// DispatchRequest es el payload mínimo que recibe el pipeline de impresión.
type DispatchRequest struct {
	OrderID  string           `json:"order_id"`
	Metadata DispatchMetadata `json:"metadata"`
}

type DispatchMetadata struct {
	Source      string         `json:"source"`
	Reason      DispatchReason `json:"reason"`
	UpdatedDate string         `json:"updated_date"`
	OrderNumber int64          `json:"order_number,omitempty"`
	Categories  []ItemCategory `json:"categories,omitempty"`
}

// DispatchResponse es la respuesta síncrona del pipeline.
type DispatchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const DispatchStatusAccepted = "accepted"

// NewDispatchRequest arma el payload para una orden del polling.
func NewDispatchRequest(order *Order, reason DispatchReason) DispatchRequest {
	req := DispatchRequest{
		OrderID: order.ID,
		Metadata: DispatchMetadata{
			Source:      DispatchSourcePoll,
			Reason:      reason,
			UpdatedDate: order.UpdatedDate,
			OrderNumber: int64(order.Number),
		},
	}
	if order.Routing != nil {
		req.Metadata.Categories = order.Routing.Categories
	}
	return req
}
