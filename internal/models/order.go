package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoTotal indica que la orden no trae ni el total moderno ni el legacy.
var ErrNoTotal = errors.New("order has no total")

// Order es el snapshot de solo lectura que devuelve la API de la tienda.
type Order struct {
	ID                string            `json:"id"`
	Number            DisplayNumber     `json:"number"`
	CreatedDate       string            `json:"createdDate"`
	UpdatedDate       string            `json:"updatedDate"`
	Status            OrderStatus       `json:"status"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus,omitempty"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus,omitempty"`
	Currency          string            `json:"currency"`
	Archived          bool              `json:"archived"`

	// Total moderno; si no viene se usa Totals (esquema legacy)
	PriceSummary *PriceSummary `json:"priceSummary,omitempty"`
	Totals       *LegacyTotals `json:"totals,omitempty"`

	BuyerInfo    BuyerInfo     `json:"buyerInfo"`
	ChannelInfo  *ChannelInfo  `json:"channelInfo,omitempty"`
	ShippingInfo *ShippingInfo `json:"shippingInfo,omitempty"`
	LineItems    []LineItem    `json:"lineItems"`

	// Metadata de ruteo calculada en el proceso, nunca se persiste
	Routing *RoutingInfo `json:"-"`
}

type PriceSummary struct {
	Subtotal *Price `json:"subtotal,omitempty"`
	Total    *Price `json:"total,omitempty"`
}

type Price struct {
	Amount          Amount `json:"amount"`
	FormattedAmount string `json:"formattedAmount,omitempty"`
}

type LegacyTotals struct {
	Subtotal Amount `json:"subtotal,omitempty"`
	Total    Amount `json:"total,omitempty"`
}

type BuyerInfo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

type ChannelInfo struct {
	Type string `json:"type"`
}

type ShippingInfo struct {
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

// LineItem es una línea de la orden.
type LineItem struct {
	ID                 string              `json:"id,omitempty"`
	ProductName        *ProductName        `json:"productName,omitempty"`
	Name               string              `json:"name,omitempty"`
	Description        string              `json:"description,omitempty"`
	Quantity           int                 `json:"quantity"`
	Price              *Price              `json:"price,omitempty"`
	PhysicalProperties *PhysicalProperties `json:"physicalProperties,omitempty"`
}

type ProductName struct {
	Original   string `json:"original,omitempty"`
	Translated string `json:"translated,omitempty"`
}

type PhysicalProperties struct {
	Shippable *bool `json:"shippable,omitempty"`
}

// RoutingInfo guarda las categorías detectadas para la estación de impresión.
type RoutingInfo struct {
	Categories []ItemCategory
}

// DisplayName devuelve el nombre localizado y cae al campo legacy.
func (li LineItem) DisplayName() string {
	if li.ProductName != nil {
		if li.ProductName.Translated != "" {
			return li.ProductName.Translated
		}
		if li.ProductName.Original != "" {
			return li.ProductName.Original
		}
	}
	return li.Name
}

// Shippable es true salvo que el upstream lo marque explícitamente en false.
func (li LineItem) Shippable() bool {
	if li.PhysicalProperties == nil || li.PhysicalProperties.Shippable == nil {
		return true
	}
	return *li.PhysicalProperties.Shippable
}

// RawTotal devuelve el string del total y de qué campo salió.
func (o *Order) RawTotal() (string, string) {
	if o.PriceSummary != nil && o.PriceSummary.Total != nil && o.PriceSummary.Total.Amount != "" {
		return string(o.PriceSummary.Total.Amount), "priceSummary.total"
	}
	if o.Totals != nil && o.Totals.Total != "" {
		return string(o.Totals.Total), "totals.total"
	}
	return "", ""
}

// TotalAmount parsea el total de la orden como decimal (nunca float).
func (o *Order) TotalAmount() (decimal.Decimal, error) {
	raw, field := o.RawTotal()
	if raw == "" {
		return decimal.Zero, ErrNoTotal
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return amount, nil
}

// RequiresShipping: sin líneas no hay envío; con líneas basta una enviable.
func (o *Order) RequiresShipping() bool {
	for _, li := range o.LineItems {
		if li.Shippable() {
			return true
		}
	}
	return false
}

func (o *Order) HasTrackingNumber() bool {
	return o.ShippingInfo != nil && strings.TrimSpace(o.ShippingInfo.TrackingNumber) != ""
}

func (o *Order) IsCanceled() bool {
	return IsCanceledStatus(string(o.Status))
}

// GetProductNames extrae los nombres de todos los productos de una orden
func (o *Order) GetProductNames() []string {
	names := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		if name := li.DisplayName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Amount acepta montos como string ("12.00") o como número JSON (12).
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// DisplayNumber es el número visible de la orden; la API lo manda como string o número.
type DisplayNumber int64

func (n *DisplayNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("order number %q: %w", raw, err)
	}
	*n = DisplayNumber(v)
	return nil
}
