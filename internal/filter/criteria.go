// Package filter decide qué órdenes del upstream se consideran para imprimir.
//
// Un Criteria se compila en dos partes: el filtro que entiende la API de la
// tienda (ver Compile) y un predicado residual que se evalúa en el cliente para
// lo que la API no puede expresar (ver Predicate).
package filter

import (
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/shopspring/decimal"
)

// Criteria describe qué órdenes interesan. Es un valor: Compile no lo modifica.
//
// El valor cero es útil: cualquier estado salvo INITIALIZED, sin archivadas y
// sin órdenes de prueba.
type Criteria struct {
	// nil = cualquiera (salvo INITIALIZED)
	OrderStatuses       []models.OrderStatus
	FulfillmentStatuses []models.FulfillmentStatus
	PaymentStatuses     []models.PaymentStatus
	ChannelTypes        []string

	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time

	IncludeArchived   bool
	IncludeTestOrders bool

	MinimumOrderValue *decimal.Decimal

	HasTrackingNumber *bool
	RequiresShipping  *bool

	// Vacío = createdDate DESC
	Sort []Sorting
}

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

type Sorting struct {
	FieldName string    `json:"fieldName"`
	Order     SortOrder `json:"order"`
}

// DefaultSort: primero las más nuevas; el límite de órdenes por ciclo lo asume.
var DefaultSort = []Sorting{{FieldName: FieldCreatedDate, Order: SortDesc}}

// Bool devuelve un puntero para los campos tri-estado.
func Bool(v bool) *bool { return &v }

// Time devuelve un puntero para los límites de fecha.
func Time(t time.Time) *time.Time { return &t }

// Decimal devuelve un puntero para el valor mínimo.
func Decimal(d decimal.Decimal) *decimal.Decimal { return &d }

// WithCreatedWindow devuelve una copia acotada a [from, to].
func (c Criteria) WithCreatedWindow(from, to time.Time) Criteria {
	c.CreatedAfter = Time(from)
	c.CreatedBefore = Time(to)
	return c
}
