package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/juancollazo-ch/order-print-relay/internal/errors"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/juancollazo-ch/order-print-relay/internal/retry"
	"go.uber.org/zap"
)

// ErrNotAccepted se devuelve cuando el pipeline responde 2xx pero sin status "accepted".
var ErrNotAccepted = errors.New("print pipeline did not accept the order")

// SenderConfig configura el envío al pipeline de impresión.
type SenderConfig struct {
	URL     string
	Timeout time.Duration
	// Por defecto 1: un reenvío ciego puede imprimir dos veces
	Attempts  int
	BaseDelay time.Duration
}

// Sender manda órdenes al pipeline de impresión.
type Sender struct {
	http      *http.Client
	url       string
	timeout   time.Duration
	attempts  int
	baseDelay time.Duration
	logger    *zap.Logger
}

func NewSender(cfg SenderConfig, logger *zap.Logger) (*Sender, error) {
	if cfg.URL == "" {
		return nil, errors.New("print pipeline URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}

	return &Sender{
		// el timeout real va por contexto en cada Dispatch
		http:      &http.Client{},
		url:       cfg.URL,
		timeout:   cfg.Timeout,
		attempts:  cfg.Attempts,
		baseDelay: cfg.BaseDelay,
		logger:    logger,
	}, nil
}

// Dispatch manda la orden y solo devuelve nil si el pipeline la aceptó.
func (s *Sender) Dispatch(ctx context.Context, req models.DispatchRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("error marshaling dispatch request: %w", err)
	}

	log := logging.For(logging.WithOrder(ctx, req.OrderID), s.logger)

	attempt := 0
	err = retry.WithRetry(ctx, s.attempts, s.baseDelay, apperrors.IsRetryable, func() error {
		attempt++
		return s.send(ctx, payload, attempt)
	})
	if err != nil {
		log.Warn("print dispatch failed",
			zap.String("reason", string(req.Metadata.Reason)),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return fmt.Errorf("dispatch order %s: %w", req.OrderID, err)
	}

	log.Info("order dispatched to print pipeline",
		zap.String("reason", string(req.Metadata.Reason)),
		zap.String("updated_date", req.Metadata.UpdatedDate),
	)
	return nil
}

func (s *Sender) send(ctx context.Context, payload []byte, attempt int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Retry-Attempt", strconv.Itoa(attempt))

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.ErrGatewayTimeout("print pipeline timed out", err)
		}
		return apperrors.ErrServiceUnavailable("print pipeline unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.FromUpstreamStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out models.DispatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrNotAccepted, err)
	}
	if out.Status != models.DispatchStatusAccepted {
		return fmt.Errorf("%w: status %q %s", ErrNotAccepted, out.Status, out.Message)
	}
	return nil
}
