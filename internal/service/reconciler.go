package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juancollazo-ch/order-print-relay/internal/api"
	"github.com/juancollazo-ch/order-print-relay/internal/classify"
	"github.com/juancollazo-ch/order-print-relay/internal/compare"
	"github.com/juancollazo-ch/order-print-relay/internal/filter"
	"github.com/juancollazo-ch/order-print-relay/internal/ledger"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/juancollazo-ch/order-print-relay/internal/models/serviceresponse"
	"go.uber.org/zap"
)

// OrderFetcher trae las órdenes candidatas del upstream.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, q filter.Query, maxOrders int) (*api.SearchResult, error)
}

// Dispatcher manda una orden al pipeline de impresión. nil = aceptada.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.DispatchRequest) error
}

// ReconcilerConfig agrupa los parámetros de un ciclo.
type ReconcilerConfig struct {
	Criteria filter.Criteria
	Lookback time.Duration
	// Tope de órdenes por ciclo, las más nuevas primero
	MaxOrders int
	// Vacío = no se filtra por categoría
	RoutingCategories []models.ItemCategory
	Classifier        *classify.Classifier
	Now               func() time.Time
}

// Reconciler decide qué órdenes se imprimen, contra el ledger.
type Reconciler struct {
	// un ciclo a la vez, sea del loop o de POST /poll
	mu sync.Mutex

	fetcher    OrderFetcher
	store      ledger.Store
	dispatcher Dispatcher
	classifier *classify.Classifier

	criteria  filter.Criteria
	lookback  time.Duration
	maxOrders int
	routing   []models.ItemCategory
	now       func() time.Time

	logger *zap.Logger
}

func NewReconciler(fetcher OrderFetcher, store ledger.Store, dispatcher Dispatcher, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 2 * time.Hour
	}
	if cfg.MaxOrders <= 0 {
		cfg.MaxOrders = 100
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.New(classify.DefaultKeywords)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Reconciler{
		fetcher:    fetcher,
		store:      store,
		dispatcher: dispatcher,
		classifier: cfg.Classifier,
		criteria:   cfg.Criteria,
		lookback:   cfg.Lookback,
		maxOrders:  cfg.MaxOrders,
		routing:    cfg.RoutingCategories,
		now:        cfg.Now,
		logger:     logger,
	}
}

// RunCycle ejecuta un ciclo completo: consulta, filtra, compara y despacha.
// Un fallo del upstream no es error: el ciclo sigue con una lista vacía.
// Solo devuelve error si ctx se cancela a mitad del ciclo; lo ya escrito en
// el ledger queda.
func (r *Reconciler) RunCycle(ctx context.Context) (*serviceresponse.CycleResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	cycleID := uuid.NewString()
	ctx = logging.WithCycle(ctx, cycleID)
	log := logging.For(ctx, r.logger)

	result := &serviceresponse.CycleResult{
		CycleID:   cycleID,
		StartedAt: started.UTC(),
		Details:   make([]serviceresponse.OrderOutcome, 0),
	}
	defer func() {
		result.DurationMS = r.now().Sub(started).Milliseconds()
	}()

	criteria := r.criteria.WithCreatedWindow(started.Add(-r.lookback), started)
	compiled := filter.Compile(criteria, log)

	var orders []models.Order
	page, err := r.fetcher.FetchOrders(ctx, compiled.Query, r.maxOrders)
	if err != nil {
		// el próximo ciclo vuelve a mirar la misma ventana
		log.Error("upstream query failed, treating as empty", zap.Error(err))
		result.UpstreamError = err.Error()
	} else {
		orders = page.Orders
		if page.Malformed > 0 {
			log.Warn("upstream returned malformed orders", zap.Int("malformed", page.Malformed))
		}
	}
	result.TotalFound = len(orders)

	survivors := compiled.Residual.Apply(orders)
	result.ClientFiltered = len(orders) - len(survivors)

	survivors = r.route(survivors)
	result.CategoryFiltered = len(orders) - result.ClientFiltered - len(survivors)

	for i := range survivors {
		select {
		case <-ctx.Done():
			log.Warn("cycle interrupted",
				zap.Int("orders_processed", i),
				zap.Int("orders_remaining", len(survivors)-i),
			)
			return result, ctx.Err()
		default:
		}

		outcome := r.reconcileOrder(ctx, &survivors[i], result)
		result.Details = append(result.Details, outcome)
	}

	log.Info("poll cycle completed",
		zap.Int("total_found", result.TotalFound),
		zap.Int("client_filtered", result.ClientFiltered),
		zap.Int("category_filtered", result.CategoryFiltered),
		zap.Int("new", result.New),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("canceled", result.Canceled),
		zap.Int("failed", result.Failed),
		zap.Int("ledger_errors", result.LedgerErrors),
		zap.Duration("duration", r.now().Sub(started)),
	)
	return result, nil
}

// route adjunta las categorías detectadas y, si hay categorías configuradas,
// descarta las órdenes que no tienen ninguna.
func (r *Reconciler) route(orders []models.Order) []models.Order {
	if len(r.routing) > 0 {
		return r.classifier.FilterOrdersByCategory(orders, r.routing)
	}
	for i := range orders {
		orders[i].Routing = &models.RoutingInfo{Categories: r.classifier.Categories(&orders[i])}
	}
	return orders
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order *models.Order, result *serviceresponse.CycleResult) serviceresponse.OrderOutcome {
	ctx = logging.WithOrder(ctx, order.ID)
	log := logging.For(ctx, r.logger)

	outcome := serviceresponse.OrderOutcome{
		OrderID:      order.ID,
		OrderNumber:  int64(order.Number),
		ProductNames: order.GetProductNames(),
	}

	// Las canceladas se descartan antes de tocar el ledger
	if order.IsCanceled() {
		result.Canceled++
		outcome.State = string(compare.StateCanceled)
		outcome.Action = string(compare.ActionSkipCanceled)
		log.Debug("canceled order skipped", zap.String("status", string(order.Status)))
		return outcome
	}

	entry, err := r.store.Get(ctx, order.ID)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		result.LedgerErrors++
		outcome.Error = err.Error()
		log.Error("ledger read failed, order left for next cycle", zap.Error(err))
		return outcome
	}
	if errors.Is(err, ledger.ErrNotFound) {
		entry = nil
	}

	cmp, err := compare.CompareOrder(order, entry)
	if err != nil {
		result.LedgerErrors++
		outcome.Error = err.Error()
		return outcome
	}
	outcome.State = string(cmp.State)
	outcome.Action = string(cmp.Action)

	switch cmp.State {
	case compare.StateSeenStable:
		result.Skipped++
		return outcome

	case compare.StateUnseen:
		// marca previa: si el proceso muere durante el despacho queda
		// Seen-Unprinted y se reenvía en el próximo ciclo
		if err := r.store.Upsert(ctx, order.ID, ledger.Mark{
			CheckedAt:   r.now(),
			PrintStatus: models.PrintStatusPending,
			UpdatedDate: order.UpdatedDate,
		}); err != nil {
			result.LedgerErrors++
			outcome.Error = err.Error()
			log.Error("ledger pending mark failed, order not dispatched", zap.Error(err))
			return outcome
		}

	case compare.StateSeenChanged:
		count, err := r.store.IncrementReprintCount(ctx, order.ID)
		if err != nil {
			result.LedgerErrors++
			outcome.Error = err.Error()
			log.Error("reprint count increment failed, order not dispatched", zap.Error(err))
			return outcome
		}
		log.Info("order changed upstream",
			zap.String("stored_date", cmp.StoredDate),
			zap.String("current_date", cmp.CurrentDate),
			zap.Int("reprint_count", count),
		)
	}

	reason := cmp.Reason()
	dispatchErr := r.dispatcher.Dispatch(ctx, models.NewDispatchRequest(order, reason))

	mark := ledger.Mark{
		CheckedAt:         r.now(),
		ProcessedForPrint: true,
		PrintStatus:       models.PrintStatusSent,
		UpdatedDate:       order.UpdatedDate,
	}
	if dispatchErr != nil {
		// queda como fallida hasta que cambie el updatedDate del upstream
		mark.PrintStatus = models.PrintStatusFailed
		result.Failed++
		outcome.Error = dispatchErr.Error()
		log.Warn("dispatch failed", zap.String("reason", string(reason)), zap.Error(dispatchErr))
	} else if reason == models.ReasonOrderUpdated {
		result.Updated++
	} else {
		result.New++
	}

	if err := r.store.Upsert(ctx, order.ID, mark); err != nil {
		result.LedgerErrors++
		if outcome.Error == "" {
			outcome.Error = err.Error()
		}
		log.Error("ledger update failed after dispatch",
			zap.String("print_status", string(mark.PrintStatus)),
			zap.Error(err),
		)
	}
	return outcome
}

// Ledger expone el store para las rutas de operación.
func (r *Reconciler) Ledger() ledger.Store {
	return r.store
}
