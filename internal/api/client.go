package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/juancollazo-ch/order-print-relay/internal/errors"
	"github.com/juancollazo-ch/order-print-relay/internal/filter"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/juancollazo-ch/order-print-relay/internal/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	searchPath  = "/ecom/v1/orders/search"
	maxPageSize = 100
)

// ClientConfig configura el cliente de la API de órdenes de la tienda.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	SiteID         string
	Timeout        time.Duration
	PageSize       int
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// StorefrontClient consulta la API de búsqueda de órdenes.
type StorefrontClient struct {
	http      *http.Client
	base      string
	apiKey    string
	siteID    string
	pageSize  int
	attempts  int
	baseDelay time.Duration
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// SearchResult es una página (o varias acumuladas) de órdenes.
type SearchResult struct {
	Orders     []models.Order
	Total      int
	NextCursor string
	// Órdenes que no se pudieron decodificar y se descartaron
	Malformed int
}

type searchRequest struct {
	Search searchBody `json:"search"`
}

type searchBody struct {
	Filter       filter.APIFilter `json:"filter,omitempty"`
	Sort         []filter.Sorting `json:"sort,omitempty"`
	CursorPaging cursorPaging     `json:"cursorPaging"`
}

type cursorPaging struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
}

type searchResponse struct {
	Orders   []json.RawMessage `json:"orders"`
	Metadata struct {
		Count   int `json:"count"`
		Total   int `json:"total"`
		Cursors struct {
			Next string `json:"next"`
		} `json:"cursors"`
	} `json:"metadata"`
}

func NewStorefrontClient(cfg ClientConfig, logger *zap.Logger) (*StorefrontClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("storefront base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("storefront API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "storefront-orders",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &StorefrontClient{
		http:      &http.Client{Timeout: cfg.Timeout},
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		siteID:    cfg.SiteID,
		pageSize:  cfg.PageSize,
		attempts:  cfg.RetryAttempts,
		baseDelay: cfg.RetryBaseDelay,
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// FetchOrders sigue los cursores hasta juntar maxOrders órdenes o quedarse sin páginas.
// Una página vacía o un cursor que no avanza terminan el recorrido.
func (c *StorefrontClient) FetchOrders(ctx context.Context, q filter.Query, maxOrders int) (*SearchResult, error) {
	if maxOrders <= 0 {
		maxOrders = c.pageSize
	}

	result := &SearchResult{}
	cursor := ""
	for {
		limit := c.pageSize
		if remaining := maxOrders - len(result.Orders); remaining < limit {
			limit = remaining
		}

		page, err := c.Search(ctx, q, cursor, limit)
		if err != nil {
			return nil, err
		}

		result.Orders = append(result.Orders, page.Orders...)
		result.Malformed += page.Malformed
		if page.Total > result.Total {
			result.Total = page.Total
		}

		if len(result.Orders) >= maxOrders || page.NextCursor == "" {
			result.NextCursor = page.NextCursor
			break
		}
		if len(page.Orders)+page.Malformed == 0 || page.NextCursor == cursor {
			c.logger.Warn("storefront cursor did not advance, stopping pagination",
				zap.String("cursor", cursor),
				zap.Int("page_orders", len(page.Orders)),
				zap.Int("page_malformed", page.Malformed),
			)
			break
		}
		cursor = page.NextCursor
	}

	if len(result.Orders) > maxOrders {
		result.Orders = result.Orders[:maxOrders]
	}
	if result.Total < len(result.Orders) {
		result.Total = len(result.Orders)
	}
	return result, nil
}

// Search pide una página, con reintentos y detrás del circuit breaker.
func (c *StorefrontClient) Search(ctx context.Context, q filter.Query, cursor string, limit int) (*SearchResult, error) {
	var page *SearchResult
	err := retry.WithRetry(ctx, c.attempts, c.baseDelay, apperrors.IsRetryable, func() error {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doSearch(ctx, q, cursor, limit)
		})
		if err != nil {
			return err
		}
		page = out.(*SearchResult)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return page, nil
}

func (c *StorefrontClient) doSearch(ctx context.Context, q filter.Query, cursor string, limit int) (*SearchResult, error) {
	body, err := json.Marshal(searchRequest{Search: searchBody{
		Filter:       q.Filter,
		Sort:         q.Sort,
		CursorPaging: cursorPaging{Limit: limit, Cursor: cursor},
	}})
	if err != nil {
		return nil, fmt.Errorf("error marshaling search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)
	if c.siteID != "" {
		req.Header.Set("wix-site-id", c.siteID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.ErrServiceUnavailable("storefront request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.FromUpstreamStatus(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var raw searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.ErrExternalAPI(resp.StatusCode, "invalid JSON from storefront", err)
	}

	page := &SearchResult{
		Orders:     make([]models.Order, 0, len(raw.Orders)),
		Total:      raw.Metadata.Total,
		NextCursor: raw.Metadata.Cursors.Next,
	}
	log := logging.For(ctx, c.logger)
	for _, item := range raw.Orders {
		var order models.Order
		if err := json.Unmarshal(item, &order); err != nil {
			page.Malformed++
			log.Warn("skipping malformed order", zap.Error(err), zap.String("raw_id", peekID(item)))
			continue
		}
		if order.ID == "" {
			page.Malformed++
			log.Warn("skipping order without id")
			continue
		}
		page.Orders = append(page.Orders, order)
	}
	if page.Total == 0 {
		page.Total = raw.Metadata.Count
	}

	log.Debug("storefront page fetched",
		zap.Int("orders", len(page.Orders)),
		zap.Int("malformed", page.Malformed),
		zap.Bool("has_next", page.NextCursor != ""),
	)
	return page, nil
}

// peekID intenta sacar el id de una orden que no decodificó, solo para el log.
func peekID(raw json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.ID
}
