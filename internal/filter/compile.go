package filter

import (
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"go.uber.org/zap"
)

// Campos del lenguaje de consulta de la tienda.
const (
	FieldStatus            = "status"
	FieldPaymentStatus     = "paymentStatus"
	FieldFulfillmentStatus = "fulfillmentStatus"
	FieldChannelType       = "channelInfo.type"
	FieldArchived          = "archived"
	FieldCreatedDate       = "createdDate"
)

// Operadores soportados por la API.
const (
	OpEq  = "$eq"
	OpNe  = "$ne"
	OpIn  = "$in"
	OpGte = "$gte"
	OpLte = "$lte"
)

// Condition agrupa los operadores de un campo; todos deben cumplirse.
type Condition map[string]any

// APIFilter es el filtro que se envía al upstream, campo -> condición.
type APIFilter map[string]Condition

// Has indica si el filtro tiene el operador op sobre field.
func (f APIFilter) Has(field, op string) bool {
	cond, ok := f[field]
	if !ok {
		return false
	}
	_, ok = cond[op]
	return ok
}

func (f APIFilter) set(field, op string, value any) {
	cond, ok := f[field]
	if !ok {
		cond = Condition{}
		f[field] = cond
	}
	cond[op] = value
}

// Query es la consulta completa para la API de búsqueda.
type Query struct {
	Filter APIFilter `json:"filter,omitempty"`
	Sort   []Sorting `json:"sort,omitempty"`
}

// Compiled es el resultado de compilar un Criteria.
type Compiled struct {
	Query    Query
	Residual *Predicate
}

// Compile separa el Criteria en filtro del servidor y predicado del cliente.
func Compile(c Criteria, logger *zap.Logger) Compiled {
	return Compiled{
		Query:    Query{Filter: BuildAPIFilter(c), Sort: sortOrDefault(c.Sort)},
		Residual: NewPredicate(c, logger),
	}
}

// BuildAPIFilter traduce lo que la API sabe evaluar.
// INITIALIZED (carritos abandonados, pagos incompletos) queda excluido siempre
// que el criterio no lo pida explícitamente.
func BuildAPIFilter(c Criteria) APIFilter {
	f := APIFilter{}

	statuses := uniqueStrings(c.OrderStatuses)
	if !containsString(statuses, string(models.OrderStatusInitialized)) {
		f.set(FieldStatus, OpNe, string(models.OrderStatusInitialized))
	}
	addSet(f, FieldStatus, statuses)
	addSet(f, FieldPaymentStatus, uniqueStrings(c.PaymentStatuses))
	addSet(f, FieldFulfillmentStatus, uniqueStrings(c.FulfillmentStatuses))
	addSet(f, FieldChannelType, uniqueStrings(c.ChannelTypes))

	if c.CreatedAfter != nil {
		f.set(FieldCreatedDate, OpGte, models.FormatTimestamp(*c.CreatedAfter))
	}
	if c.CreatedBefore != nil {
		f.set(FieldCreatedDate, OpLte, models.FormatTimestamp(*c.CreatedBefore))
	}

	if !c.IncludeArchived {
		f.set(FieldArchived, OpNe, true)
	}

	return f
}

// addSet: un valor -> igualdad, varios -> $in, ninguno -> sin filtro.
func addSet(f APIFilter, field string, values []string) {
	switch len(values) {
	case 0:
	case 1:
		f.set(field, OpEq, values[0])
	default:
		f.set(field, OpIn, values)
	}
}

func sortOrDefault(sort []Sorting) []Sorting {
	if len(sort) == 0 {
		return append([]Sorting(nil), DefaultSort...)
	}
	return append([]Sorting(nil), sort...)
}

func uniqueStrings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		s := string(v)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
