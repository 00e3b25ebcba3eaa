package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/api"
	"github.com/juancollazo-ch/order-print-relay/internal/filter"
	"github.com/juancollazo-ch/order-print-relay/internal/ledger"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeFetcher struct {
	mu     sync.Mutex
	orders []models.Order
	err    error
	last   filter.Query
	max    int
}

func (f *fakeFetcher) FetchOrders(_ context.Context, q filter.Query, maxOrders int) (*api.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = q
	f.max = maxOrders
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Order, len(f.orders))
	copy(out, f.orders)
	return &api.SearchResult{Orders: out, Total: len(out)}, nil
}

func (f *fakeFetcher) set(orders ...models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []models.DispatchRequest
	fail map[string]bool
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req models.DispatchRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, req)
	if d.fail[req.OrderID] {
		return errors.New("printer offline")
	}
	return nil
}

func (d *fakeDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = nil
}

// failingStore rompe las escrituras para un id.
type failingStore struct {
	ledger.Store
	failUpsert string
}

func (s *failingStore) Upsert(ctx context.Context, orderID string, mark ledger.Mark) error {
	if orderID == s.failUpsert {
		return errors.New("disk full")
	}
	return s.Store.Upsert(ctx, orderID, mark)
}

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func approvedOrder(id, updated string) models.Order {
	return models.Order{
		ID:            id,
		Number:        10001,
		CreatedDate:   "2026-10-18T11:00:00.000Z",
		UpdatedDate:   updated,
		Status:        models.OrderStatusApproved,
		PaymentStatus: models.PaymentStatusPaid,
		PriceSummary:  &models.PriceSummary{Total: &models.Price{Amount: "12.00"}},
		BuyerInfo:     models.BuyerInfo{FirstName: "Maria", Email: "maria@gmail.com"},
		LineItems:     []models.LineItem{{Name: "Margherita Pizza", Quantity: 1}},
	}
}

type harness struct {
	fetcher    *fakeFetcher
	dispatcher *fakeDispatcher
	store      ledger.Store
	rec        *Reconciler
}

func newHarness(t *testing.T, cfg ReconcilerConfig) *harness {
	t.Helper()
	h := &harness{
		fetcher:    &fakeFetcher{},
		dispatcher: &fakeDispatcher{fail: map[string]bool{}},
		store:      ledger.NewMemoryStore(),
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	h.rec = NewReconciler(h.fetcher, h.store, h.dispatcher, cfg, zap.NewNop())
	return h
}

func (h *harness) entry(t *testing.T, id string) *models.LedgerEntry {
	t.Helper()
	e, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return e
}

func TestRunCycle_NewOrderIsDispatchedAndRecorded(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00.000Z"))

	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalFound)
	require.Equal(t, 1, res.New)
	require.NotEmpty(t, res.CycleID)

	require.Len(t, h.dispatcher.sent, 1)
	req := h.dispatcher.sent[0]
	require.Equal(t, "o-1", req.OrderID)
	require.Equal(t, "poll", req.Metadata.Source)
	require.Equal(t, models.ReasonNewOrder, req.Metadata.Reason)
	require.Equal(t, "2026-10-18T11:00:00.000Z", req.Metadata.UpdatedDate)
	require.Equal(t, []models.ItemCategory{models.CategoryFood}, req.Metadata.Categories)

	e := h.entry(t, "o-1")
	require.True(t, e.ProcessedForPrint)
	require.Equal(t, models.PrintStatusSent, e.PrintStatus)
	require.Equal(t, 0, e.ReprintCount)
	require.Equal(t, "2026-10-18T11:00:00.000Z", e.LastKnownUpdatedDate)
}

func TestRunCycle_QueriesLookbackWindowNewestFirst(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{Lookback: 3 * time.Hour, MaxOrders: 25})

	_, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, 25, h.fetcher.max)
	q := h.fetcher.last
	require.Equal(t, filter.DefaultSort, q.Sort)
	require.Equal(t, "INITIALIZED", q.Filter["status"]["$ne"])
	require.Equal(t, models.FormatTimestamp(fixedNow.Add(-3*time.Hour)), q.Filter["createdDate"]["$gte"])
	require.Equal(t, models.FormatTimestamp(fixedNow), q.Filter["createdDate"]["$lte"])
}

func TestRunCycle_NormalizedDateIsStable(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00Z"))
	_, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	h.dispatcher.reset()

	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00.123+00:00"))
	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Empty(t, h.dispatcher.sent)
	require.Equal(t, "seen_stable", res.Details[0].State)
	require.Equal(t, 0, h.entry(t, "o-1").ReprintCount)
}

func TestRunCycle_ChangedDateReprints(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00.000Z"))
	_, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	h.dispatcher.reset()

	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:01.000Z"))
	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	require.Len(t, h.dispatcher.sent, 1)
	require.Equal(t, models.ReasonOrderUpdated, h.dispatcher.sent[0].Metadata.Reason)

	e := h.entry(t, "o-1")
	require.Equal(t, 1, e.ReprintCount)
	require.Equal(t, models.PrintStatusSent, e.PrintStatus)
	require.Equal(t, "2026-10-18T11:00:01.000Z", e.LastKnownUpdatedDate)

	// mismo date otra vez: no se reimprime
	h.dispatcher.reset()
	res, err = h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Empty(t, h.dispatcher.sent)
	require.Equal(t, 1, h.entry(t, "o-1").ReprintCount)
}

func TestRunCycle_CanceledNeverDispatchedNorRecorded(t *testing.T) {
	for _, status := range []models.OrderStatus{"CANCELED", "canceled", "Cancelled"} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t, ReconcilerConfig{})

			// orden ya vista y con fecha distinta: aun así no se toca
			require.NoError(t, h.store.Upsert(context.Background(), "o-1", ledger.Mark{
				CheckedAt:         fixedNow.Add(-time.Hour),
				ProcessedForPrint: true,
				PrintStatus:       models.PrintStatusSent,
				UpdatedDate:       "2026-10-18T10:00:00Z",
			}))
			before := h.entry(t, "o-1")

			canceled := approvedOrder("o-1", "2026-10-18T11:30:00Z")
			canceled.Status = status
			fresh := approvedOrder("o-2", "2026-10-18T11:30:00Z")
			fresh.Status = status
			h.fetcher.set(canceled, fresh)

			res, err := h.rec.RunCycle(context.Background())
			require.NoError(t, err)
			require.Equal(t, 2, res.Canceled)
			require.Empty(t, h.dispatcher.sent)

			require.Equal(t, before, h.entry(t, "o-1"))
			_, err = h.store.Get(context.Background(), "o-2")
			require.ErrorIs(t, err, ledger.ErrNotFound)
		})
	}
}

func TestRunCycle_DispatchFailureIsMarkedAndNotRetried(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.dispatcher.fail["o-1"] = true
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00Z"), approvedOrder("o-2", "2026-10-18T11:00:00Z"))

	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 1, res.New)
	require.Len(t, h.dispatcher.sent, 2, "the cycle continues after a failure")

	e := h.entry(t, "o-1")
	require.True(t, e.ProcessedForPrint)
	require.Equal(t, models.PrintStatusFailed, e.PrintStatus)

	// sin cambio upstream no se reintenta
	h.dispatcher.reset()
	res, err = h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Empty(t, h.dispatcher.sent)
	require.Equal(t, 2, res.Skipped)

	// con cambio upstream se reimprime
	delete(h.dispatcher.fail, "o-1")
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:05:00Z"))
	res, err = h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, models.PrintStatusSent, h.entry(t, "o-1").PrintStatus)
}

func TestRunCycle_SeenUnprintedIsResentWithoutResettingCount(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	ctx := context.Background()
	require.NoError(t, h.store.Upsert(ctx, "o-1", ledger.Mark{CheckedAt: fixedNow, ProcessedForPrint: true, PrintStatus: models.PrintStatusSent}))
	_, err := h.store.IncrementReprintCount(ctx, "o-1")
	require.NoError(t, err)
	require.NoError(t, h.store.Upsert(ctx, "o-1", ledger.Mark{CheckedAt: fixedNow, PrintStatus: models.PrintStatusPending, UpdatedDate: "2026-10-18T11:00:00Z"}))

	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00Z"))
	res, err := h.rec.RunCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.New)
	require.Equal(t, "seen_unprinted", res.Details[0].State)
	require.Equal(t, models.ReasonNewOrder, h.dispatcher.sent[0].Metadata.Reason)

	e := h.entry(t, "o-1")
	require.True(t, e.ProcessedForPrint)
	require.Equal(t, 1, e.ReprintCount)
}

func TestRunCycle_UpstreamErrorIsEmptyCycle(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := newHarness(t, ReconcilerConfig{})
	h.rec.logger = zap.New(core)
	h.fetcher.err = errors.New("connection refused")

	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.TotalFound)
	require.Contains(t, res.UpstreamError, "connection refused")
	require.Empty(t, h.dispatcher.sent)
	require.Equal(t, 1, logs.FilterMessage("upstream query failed, treating as empty").Len())
}

func TestRunCycle_ClientAndCategoryFiltering(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{
		RoutingCategories: []models.ItemCategory{models.CategoryFood},
	})

	testOrder := approvedOrder("o-test", "2026-10-18T11:00:00Z")
	testOrder.BuyerInfo.Email = "test@example.com"
	drinks := approvedOrder("o-drinks", "2026-10-18T11:00:00Z")
	drinks.LineItems = []models.LineItem{{Name: "Coca Cola", Quantity: 2}}
	food := approvedOrder("o-food", "2026-10-18T11:00:00Z")
	food.LineItems = append(food.LineItems, models.LineItem{Name: "Coca Cola", Quantity: 1})

	h.fetcher.set(testOrder, drinks, food)
	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalFound)
	require.Equal(t, 1, res.ClientFiltered)
	require.Equal(t, 1, res.CategoryFiltered)
	require.Equal(t, 1, res.New)

	require.Len(t, h.dispatcher.sent, 1)
	require.Equal(t, "o-food", h.dispatcher.sent[0].OrderID)
	require.Equal(t,
		[]models.ItemCategory{models.CategoryFood, models.CategoryBeverages},
		h.dispatcher.sent[0].Metadata.Categories,
	)
}

func TestRunCycle_LedgerWriteFailureIsCountedAndCycleContinues(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.store = &failingStore{Store: h.store, failUpsert: "o-1"}
	h.rec.store = h.store
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00Z"), approvedOrder("o-2", "2026-10-18T11:00:00Z"))

	res, err := h.rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.LedgerErrors)
	require.Equal(t, 1, res.New)

	// sin marca previa no se despacha o-1
	require.Len(t, h.dispatcher.sent, 1)
	require.Equal(t, "o-2", h.dispatcher.sent[0].OrderID)
}

func TestRunCycle_CanceledContextStopsCycle(t *testing.T) {
	h := newHarness(t, ReconcilerConfig{})
	h.fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00Z"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.rec.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, h.dispatcher.sent)
}

func TestRunCycle_WithSQLiteLedger(t *testing.T) {
	store, err := ledger.Open(context.Background(), ledger.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	fetcher := &fakeFetcher{}
	dispatcher := &fakeDispatcher{fail: map[string]bool{}}
	rec := NewReconciler(fetcher, store, dispatcher, ReconcilerConfig{
		Now: func() time.Time { return fixedNow },
	}, nil)

	fetcher.set(approvedOrder("o-1", "2026-10-18T11:00:00.000Z"))
	_, err = rec.RunCycle(context.Background())
	require.NoError(t, err)

	fetcher.set(approvedOrder("o-1", "2026-10-18T11:02:00.000Z"))
	res, err := rec.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	e, err := store.Get(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, 1, e.ReprintCount)
	require.Equal(t, models.PrintStatusSent, e.PrintStatus)
	require.True(t, fixedNow.Equal(e.LastCheckedAt))
	require.Len(t, dispatcher.sent, 2)
}
