package filter

import (
	"strings"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var testOrderCeiling = decimal.NewFromInt(1)

// Predicate evalúa en el cliente lo que la API no filtra. Los rechazos no son
// errores: solo quedan en el log de debug.
type Predicate struct {
	criteria Criteria
	logger   *zap.Logger
}

func NewPredicate(c Criteria, logger *zap.Logger) *Predicate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predicate{criteria: c, logger: logger}
}

// Match corta en la primera condición que falla.
func (p *Predicate) Match(order *models.Order) bool {
	reason := p.reject(order)
	if reason != "" {
		p.logger.Debug("order filtered client-side",
			zap.String("order_id", order.ID),
			zap.String("reason", reason),
		)
		return false
	}
	return true
}

// Apply devuelve las órdenes que pasan, en el mismo orden.
func (p *Predicate) Apply(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		if p.Match(&orders[i]) {
			out = append(out, orders[i])
		}
	}
	return out
}

func (p *Predicate) reject(order *models.Order) string {
	c := p.criteria

	total, totalErr := order.TotalAmount()

	if c.MinimumOrderValue != nil {
		if totalErr != nil {
			p.logger.Warn("cannot parse order total, keeping order",
				zap.String("order_id", order.ID),
				zap.Error(totalErr),
			)
		} else if total.LessThan(*c.MinimumOrderValue) {
			return "below minimum order value"
		}
	}

	if !c.IncludeTestOrders {
		if reason := testOrderReason(order, total, totalErr == nil); reason != "" {
			return reason
		}
	}

	if c.HasTrackingNumber != nil && order.HasTrackingNumber() != *c.HasTrackingNumber {
		return "tracking number mismatch"
	}
	if c.RequiresShipping != nil && order.RequiresShipping() != *c.RequiresShipping {
		return "shipping requirement mismatch"
	}

	if c.UpdatedAfter != nil || c.UpdatedBefore != nil {
		updated, err := models.ParseTimestamp(order.UpdatedDate)
		if err != nil {
			p.logger.Warn("cannot parse order updated date, keeping order",
				zap.String("order_id", order.ID),
				zap.String("updated_date", order.UpdatedDate),
				zap.Error(err),
			)
		} else {
			if c.UpdatedAfter != nil && updated.Before(*c.UpdatedAfter) {
				return "updated before lower bound"
			}
			if c.UpdatedBefore != nil && updated.After(*c.UpdatedBefore) {
				return "updated after upper bound"
			}
		}
	}

	return ""
}

// IsTestOrder aplica las heurísticas de email, nombre y monto simbólico.
func IsTestOrder(order *models.Order) bool {
	total, err := order.TotalAmount()
	return testOrderReason(order, total, err == nil) != ""
}

func testOrderReason(order *models.Order, total decimal.Decimal, hasTotal bool) string {
	email := strings.ToLower(order.BuyerInfo.Email)
	if email != "" {
		for _, pattern := range testEmailPatterns {
			if strings.Contains(email, pattern) {
				return "test email"
			}
		}
	}

	for _, name := range []string{order.BuyerInfo.FirstName, order.BuyerInfo.LastName} {
		n := strings.ToLower(strings.TrimSpace(name))
		for _, placeholder := range testBuyerNames {
			if n == placeholder {
				return "test buyer name"
			}
		}
	}

	if hasTotal && total.IsPositive() && total.LessThan(testOrderCeiling) {
		return "test amount"
	}
	return ""
}
