package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"id": 42,
		"number": "42",
		"date_created": "2026-03-14T09:30:00",
		"date_paid": "2026-03-14T09:31:12",
		"total": "50.00",
		"shipping_total": "10.00",
		"shipping_tax": "0.00",
		"payment_method": "bacs",
		"billing": {
			"first_name": "Ada",
			"last_name": "Byron",
			"address_1": "12 Engine Row",
			"city": "London",
			"postcode": "N1 7AA",
			"country": "GB",
			"email": "ada@example.com",
			"phone": "+44 20 7946 0000"
		},
		"shipping": {
			"first_name": "Ada",
			"last_name": "Byron",
			"address_1": "3 Delivery Lane",
			"city": "London"
		},
		"line_items": [
			{"name": "Widget", "sku": "ABC", "quantity": 2, "total": "40.00", "total_tax": "0.00", "price": "20.00"}
		]
	}`)

	o, err := ParseWebhook(body)
	require.NoError(t, err)
	require.Equal(t, int64(42), o.ID)
	require.True(t, o.Paid)
	require.Equal(t, "bacs", o.PaymentMethod)
	require.True(t, o.Total.Equal(decimal.RequireFromString("50.00")))
	require.True(t, o.ShippingTotal.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), o.CreatedAt)
	require.Equal(t, "Ada Byron", o.Billing.Name())
	require.Len(t, o.Lines, 1)
	require.Equal(t, "ABC", o.Lines[0].SKU)
	require.Equal(t, int64(2), o.Lines[0].Quantity)
}

func TestParseWebhookRejectsMissingID(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"total": "10.00"}`))
	require.Error(t, err)

	_, err = ParseWebhook([]byte(`not json`))
	require.Error(t, err)
}

func TestParseWebhookUnpaid(t *testing.T) {
	o, err := ParseWebhook([]byte(`{"id": 5, "date_paid": null}`))
	require.NoError(t, err)
	require.False(t, o.Paid)
}

func TestUnitAmount(t *testing.T) {
	line := Line{Quantity: 2, Total: decimal.RequireFromString("40.00")}
	require.True(t, line.UnitAmount().Equal(decimal.RequireFromString("20.00")))

	// Rounded to cents.
	line = Line{Quantity: 3, Total: decimal.RequireFromString("10.00")}
	require.Equal(t, "3.33", line.UnitAmount().StringFixed(2))

	// Defensive: zero quantity falls back to the line total.
	line = Line{Quantity: 0, Total: decimal.RequireFromString("7.50")}
	require.True(t, line.UnitAmount().Equal(decimal.RequireFromString("7.50")))
}

func TestAddressHelpers(t *testing.T) {
	billing := Address{Address1: "12 Engine Row", City: "London"}
	require.True(t, billing.HasLocation())
	require.False(t, Address{}.HasLocation())
	require.True(t, Address{City: "Leeds"}.HasLocation())

	sameCity := Address{Address1: "12 Engine Row", City: "London"}
	require.True(t, billing.SameLocation(sameCity))
	require.False(t, billing.SameLocation(Address{Address1: "Other St", City: "London"}))
}

func TestGuestFallbacks(t *testing.T) {
	o := Order{ID: 42}
	require.Equal(t, "Guest Checkout Customer #42", o.GuestName())
	require.Equal(t, "unknown-42@example.com", o.PlaceholderEmail())
	require.Equal(t, "42", o.Reference())

	o.Number = "INV-0042"
	require.Equal(t, "INV-0042", o.Reference())
}
