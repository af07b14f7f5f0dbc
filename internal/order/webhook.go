package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// webhookPayload mirrors the order JSON the store delivers on its
// order-completed webhook. Amounts arrive as quoted strings; decimal
// accepts both forms.
type webhookPayload struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	DateCreated   string          `json:"date_created"`
	DatePaid      *string         `json:"date_paid"`
	Total         decimal.Decimal `json:"total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	ShippingTax   decimal.Decimal `json:"shipping_tax"`
	PaymentMethod string          `json:"payment_method"`
	Billing       webhookAddress  `json:"billing"`
	Shipping      webhookAddress  `json:"shipping"`
	LineItems     []webhookLine   `json:"line_items"`
}

type webhookAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type webhookLine struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Quantity int64           `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	TotalTax decimal.Decimal `json:"total_tax"`
	Price    decimal.Decimal `json:"price"`
}

// ParseWebhook adapts the store's webhook JSON to an Order.
func ParseWebhook(body []byte) (Order, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Order{}, fmt.Errorf("parse order payload: %w", err)
	}
	if payload.ID == 0 {
		return Order{}, fmt.Errorf("order payload has no id")
	}

	o := Order{
		ID:            payload.ID,
		Number:        payload.Number,
		CreatedAt:     parseStoreTime(payload.DateCreated),
		Total:         payload.Total,
		ShippingTotal: payload.ShippingTotal,
		ShippingTax:   payload.ShippingTax,
		PaymentMethod: payload.PaymentMethod,
		Paid:          payload.DatePaid != nil && *payload.DatePaid != "",
		Billing:       Address(payload.Billing),
		Shipping:      Address(payload.Shipping),
	}
	for _, line := range payload.LineItems {
		o.Lines = append(o.Lines, Line{
			Name:     line.Name,
			SKU:      line.SKU,
			Quantity: line.Quantity,
			Total:    line.Total,
			TotalTax: line.TotalTax,
			Price:    line.Price,
		})
	}
	return o, nil
}

// parseStoreTime accepts the store's local-time format and RFC3339,
// defaulting to now for unparseable values so a sloppy payload does
// not block the sync.
func parseStoreTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now()
}
