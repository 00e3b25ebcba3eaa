// Package ledger guarda qué órdenes ya se mandaron a imprimir.
//
// Cada mutación es un upsert atómico por order id, así los lectores externos
// (herramientas de inspección) nunca ven un read-modify-write a medias.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
)

var ErrNotFound = errors.New("ledger entry not found")

// Mark son los campos que el reconciliador escribe en cada pasada.
// ReprintCount no se toca acá: solo lo cambia IncrementReprintCount.
type Mark struct {
	CheckedAt         time.Time
	ProcessedForPrint bool
	PrintStatus       models.PrintStatus
	UpdatedDate       string
}

type Store interface {
	// Get devuelve ErrNotFound si la orden nunca se vio.
	Get(ctx context.Context, orderID string) (*models.LedgerEntry, error)
	Upsert(ctx context.Context, orderID string, mark Mark) error
	// IncrementReprintCount devuelve el contador nuevo.
	IncrementReprintCount(ctx context.Context, orderID string) (int, error)
	// DeleteAll es solo para recuperación operativa.
	DeleteAll(ctx context.Context) (int64, error)
	// List devuelve las entradas revisadas más recientemente.
	List(ctx context.Context, limit int) ([]models.LedgerEntry, error)
	Close() error
}
