package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus se devuelve cuando el upstream envía un valor fuera del enum.
var ErrUnknownStatus = errors.New("unknown status value")

// OrderStatus es el estado de la orden en la tienda.
type OrderStatus string

const (
	OrderStatusInitialized OrderStatus = "INITIALIZED"
	OrderStatusApproved    OrderStatus = "APPROVED"
	OrderStatusCanceled    OrderStatus = "CANCELED"
	OrderStatusPending     OrderStatus = "PENDING"
	OrderStatusRefunded    OrderStatus = "REFUNDED"
)

var orderStatuses = []OrderStatus{
	OrderStatusInitialized,
	OrderStatusApproved,
	OrderStatusCanceled,
	OrderStatusPending,
	OrderStatusRefunded,
}

// IsCanceledStatus compara sin distinguir mayúsculas contra CANCELED y CANCELLED.
func IsCanceledStatus(raw string) bool {
	s := strings.ToUpper(strings.TrimSpace(raw))
	return s == "CANCELED" || s == "CANCELLED"
}

// ParseOrderStatus acepta cualquier casing y la grafía británica de CANCELLED.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	if IsCanceledStatus(raw) {
		return OrderStatusCanceled, nil
	}
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range orderStatuses {
		if s == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("order status %q: %w", raw, ErrUnknownStatus)
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// PaymentStatus es el estado de pago de la orden.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusPartiallyPaid     PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusNotPaid           PaymentStatus = "NOT_PAID"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusPartiallyPaid,
	PaymentStatusNotPaid,
	PaymentStatusRefunded,
	PaymentStatusPartiallyRefunded,
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range paymentStatuses {
		if s == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("payment status %q: %w", raw, ErrUnknownStatus)
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePaymentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FulfillmentStatus es el estado de despacho de la orden.
type FulfillmentStatus string

const (
	FulfillmentStatusNotFulfilled FulfillmentStatus = "NOT_FULFILLED"
	FulfillmentStatusFulfilled    FulfillmentStatus = "FULFILLED"
	FulfillmentStatusCanceled     FulfillmentStatus = "CANCELED"
)

var fulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusNotFulfilled,
	FulfillmentStatusFulfilled,
	FulfillmentStatusCanceled,
}

func ParseFulfillmentStatus(raw string) (FulfillmentStatus, error) {
	if IsCanceledStatus(raw) {
		return FulfillmentStatusCanceled, nil
	}
	s := FulfillmentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range fulfillmentStatuses {
		if s == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("fulfillment status %q: %w", raw, ErrUnknownStatus)
}

func (s *FulfillmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseFulfillmentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
