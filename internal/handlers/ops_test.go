package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/ledger"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/juancollazo-ch/order-print-relay/internal/models/serviceresponse"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubRunner struct {
	result *serviceresponse.CycleResult
	err    error
	gotCtx context.Context
}

func (s *stubRunner) RunCycle(ctx context.Context) (*serviceresponse.CycleResult, error) {
	s.gotCtx = ctx
	return s.result, s.err
}

type stubPoller struct {
	running bool
	last    *serviceresponse.CycleResult
}

func (s stubPoller) Running() bool                            { return s.running }
func (s stubPoller) LastResult() *serviceresponse.CycleResult { return s.last }

func seededStore(t *testing.T) *ledger.MemoryStore {
	t.Helper()
	s := ledger.NewMemoryStore()
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"o-1", "o-2", "o-3"} {
		require.NoError(t, s.Upsert(context.Background(), id, ledger.Mark{
			CheckedAt:         base.Add(time.Duration(i) * time.Minute),
			ProcessedForPrint: true,
			PrintStatus:       models.PrintStatusSent,
			UpdatedDate:       "2026-10-18T09:00:00Z",
		}))
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Cloud-Trace-Context", "abc123/456;o=1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	last := &serviceresponse.CycleResult{CycleID: "c-1", New: 2, Details: []serviceresponse.OrderOutcome{{OrderID: "o-1"}}}
	h := NewOpsHandler(&stubRunner{}, ledger.NewMemoryStore(), stubPoller{running: true, last: last}, nil).Router("")

	rec := do(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, ServiceName, resp.Service)
	require.True(t, resp.Polling)
	require.Equal(t, 2, resp.LastCycle.New)
	require.Empty(t, resp.LastCycle.Details)
	require.Len(t, last.Details, 1, "the poller's result is not mutated")
}

func TestHealth_PollingDisabled(t *testing.T) {
	h := NewOpsHandler(&stubRunner{}, ledger.NewMemoryStore(), nil, nil).Router("")
	rec := do(t, h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"polling":false`)
}

func TestPoll(t *testing.T) {
	runner := &stubRunner{result: &serviceresponse.CycleResult{CycleID: "c-9", TotalFound: 3, New: 1}}
	h := NewOpsHandler(runner, ledger.NewMemoryStore(), nil, nil).Router("")

	rec := do(t, h, http.MethodPost, "/poll")
	require.Equal(t, http.StatusOK, rec.Code)

	var res serviceresponse.CycleResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Equal(t, "c-9", res.CycleID)
	require.Equal(t, 3, res.TotalFound)

	_, hasDeadline := runner.gotCtx.Deadline()
	require.True(t, hasDeadline)
}

func TestPoll_Errors(t *testing.T) {
	h := NewOpsHandler(&stubRunner{err: errors.New("boom")}, ledger.NewMemoryStore(), nil, nil).Router("")
	require.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/poll").Code)

	h = NewOpsHandler(&stubRunner{err: context.DeadlineExceeded}, ledger.NewMemoryStore(), nil, nil).Router("")
	require.Equal(t, http.StatusGatewayTimeout, do(t, h, http.MethodPost, "/poll").Code)

	require.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/poll").Code)
}

func TestLedgerRoutes(t *testing.T) {
	store := seededStore(t)
	h := NewOpsHandler(&stubRunner{}, store, nil, nil).Router("")

	rec := do(t, h, http.MethodGet, "/ledger?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count   int                  `json:"count"`
		Entries []models.LedgerEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, 2, list.Count)
	require.Equal(t, "o-3", list.Entries[0].OrderID)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/ledger?limit=abc").Code)

	rec = do(t, h, http.MethodGet, "/ledger/o-2")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry models.LedgerEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
	require.Equal(t, "o-2", entry.OrderID)
	require.Equal(t, models.PrintStatusSent, entry.PrintStatus)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/ledger/missing").Code)

	rec = do(t, h, http.MethodDelete, "/ledger")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"deleted":3}`, rec.Body.String())

	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRequestLogging_CarriesTraceID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewOpsHandler(&stubRunner{}, ledger.NewMemoryStore(), nil, zap.New(core)).Router("my-project")

	do(t, h, http.MethodGet, "/health")

	completed := logs.FilterMessage("Request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	require.Equal(t, "abc123", fields["trace_id"])
	require.Equal(t, "projects/my-project/traces/abc123", fields["logging.googleapis.com/trace"])
	require.EqualValues(t, http.StatusOK, fields["httpRequest.status"])
}

func TestTraceID_Generated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	require.NotEmpty(t, TraceID(req))
}
