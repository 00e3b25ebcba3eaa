// internal/contextkeys/keys.go
package contextkeys

// contextKey es un tipo privado para evitar colisiones de claves en el contexto.
type contextKey string

const TraceIDKey contextKey = "trace_id"
const CycleIDKey contextKey = "cycle_id"
const OrderIDKey contextKey = "order_id"
