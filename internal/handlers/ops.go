package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apperrors "github.com/juancollazo-ch/order-print-relay/internal/errors"
	"github.com/juancollazo-ch/order-print-relay/internal/ledger"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"github.com/juancollazo-ch/order-print-relay/internal/models/serviceresponse"
	"go.uber.org/zap"
)

const (
	ServiceName    = "order-print-relay"
	ServiceVersion = "1.0.0"

	defaultListLimit = 50
	maxListLimit     = 1000
)

// CycleRunner corre un ciclo de reconciliación bajo demanda.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*serviceresponse.CycleResult, error)
}

// PollerStatus es lo que /health necesita saber del loop.
type PollerStatus interface {
	Running() bool
	LastResult() *serviceresponse.CycleResult
}

type OpsHandler struct {
	runner CycleRunner
	store  ledger.Store
	// nil cuando POLLING_ENABLED=false
	poller PollerStatus
	// Timeout de un ciclo pedido por POST /poll
	pollTimeout time.Duration
	logger      *zap.Logger
}

func NewOpsHandler(runner CycleRunner, store ledger.Store, poller PollerStatus, logger *zap.Logger) *OpsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpsHandler{
		runner:      runner,
		store:       store,
		poller:      poller,
		pollTimeout: 180 * time.Second,
		logger:      logger,
	}
}

// Router arma las rutas de operación con chi.
func (h *OpsHandler) Router(projectID string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogging(h.logger, projectID))

	r.Get("/health", h.Health)
	r.Post("/poll", h.Poll)
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/", h.ListLedger)
		r.Delete("/", h.ResetLedger)
		r.Get("/{orderID}", h.GetLedgerEntry)
	})
	return r
}

type HealthResponse struct {
	Status    string                       `json:"status"`
	Service   string                       `json:"service"`
	Version   string                       `json:"version"`
	Polling   bool                         `json:"polling"`
	LastCycle *serviceresponse.CycleResult `json:"last_cycle,omitempty"`
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: ServiceVersion,
	}
	if h.poller != nil {
		resp.Polling = h.poller.Running()
		if last := h.poller.LastResult(); last != nil {
			// sin el detalle por orden, solo contadores
			summary := *last
			summary.Details = nil
			resp.LastCycle = &summary
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Poll corre un ciclo ahora. Se serializa con el loop dentro del reconciliador.
func (h *OpsHandler) Poll(w http.ResponseWriter, r *http.Request) {
	// Si el cliente corta, el ciclo termina igual
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.pollTimeout)
	defer cancel()

	log := logging.For(r.Context(), h.logger)
	log.Info("manual poll requested")

	result, err := h.runner.RunCycle(ctx)
	if err != nil {
		log.Error("manual poll failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, apperrors.ErrGatewayTimeout("poll cycle did not finish in time", err))
			return
		}
		writeError(w, apperrors.ErrInternalServer("poll cycle failed", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *OpsHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			writeError(w, apperrors.ErrBadRequest("limit must be between 1 and 1000", err))
			return
		}
		limit = n
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		logging.For(r.Context(), h.logger).Error("ledger list failed", zap.Error(err))
		writeError(w, apperrors.ErrInternalServer("ledger list failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

func (h *OpsHandler) GetLedgerEntry(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	entry, err := h.store.Get(r.Context(), orderID)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, apperrors.ErrNotFound("order "+orderID+" is not in the ledger", nil))
		return
	}
	if err != nil {
		logging.For(logging.WithOrder(r.Context(), orderID), h.logger).Error("ledger get failed", zap.Error(err))
		writeError(w, apperrors.ErrInternalServer("ledger lookup failed", err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ResetLedger borra el ledger: todas las órdenes de la ventana se reimprimen.
func (h *OpsHandler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	log := logging.For(r.Context(), h.logger)

	n, err := h.store.DeleteAll(r.Context())
	if err != nil {
		log.Error("ledger reset failed", zap.Error(err))
		writeError(w, apperrors.ErrInternalServer("ledger reset failed", err))
		return
	}
	log.Warn("ledger reset", zap.Int64("deleted", n))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	writeJSON(w, err.StatusCode, err)
}
