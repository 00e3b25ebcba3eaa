// internal/logging/context.go
package logging

import (
	"context"

	"github.com/juancollazo-ch/order-print-relay/internal/contextkeys"
	"go.uber.org/zap"
)

// FieldsFromContext extrae los campos de logging (trace_id, cycle_id, order_id)
// del contexto y los devuelve como un slice de zap.Field.
func FieldsFromContext(ctx context.Context) []zap.Field {
	fields := []zap.Field{}
	if tid, ok := ctx.Value(contextkeys.TraceIDKey).(string); ok && tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if cid, ok := ctx.Value(contextkeys.CycleIDKey).(string); ok && cid != "" {
		fields = append(fields, zap.String("cycle_id", cid))
	}
	if oid, ok := ctx.Value(contextkeys.OrderIDKey).(string); ok && oid != "" {
		fields = append(fields, zap.String("order_id", oid))
	}
	return fields
}

// WithTrace añade el trace id del request al contexto.
func WithTrace(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.TraceIDKey, traceID)
}

// WithCycle añade el id del ciclo de reconciliación al contexto.
func WithCycle(ctx context.Context, cycleID string) context.Context {
	if cycleID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.CycleIDKey, cycleID)
}

// WithOrder añade el id de la orden al contexto.
func WithOrder(ctx context.Context, orderID string) context.Context {
	if orderID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.OrderIDKey, orderID)
}

// For devuelve el logger con los campos del contexto ya aplicados.
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.L()
	}
	return logger.With(FieldsFromContext(ctx)...)
}
