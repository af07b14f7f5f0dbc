// Package order defines the read-only view of a store order that the
// sync engine consumes. The engine never sees the commerce platform's
// own model, only these structs.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address is one billing or shipping block.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	State     string
	Postcode  string
	Country   string
	Email     string
	Phone     string
}

// Name joins first and last name, trimmed.
func (a Address) Name() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// HasLocation reports whether at least a street line or city exists,
// the minimum for sending a postal address upstream.
func (a Address) HasLocation() bool {
	return a.Address1 != "" || a.City != ""
}

// SameLocation compares the postal fields of two addresses.
func (a Address) SameLocation(b Address) bool {
	return a.Address1 == b.Address1 &&
		a.Address2 == b.Address2 &&
		a.City == b.City &&
		a.State == b.State &&
		a.Postcode == b.Postcode &&
		a.Country == b.Country
}

// Line is one billable product row.
type Line struct {
	Name     string
	SKU      string
	Quantity int64
	// Total is the line amount excluding tax, after discounts.
	Total    decimal.Decimal
	TotalTax decimal.Decimal
	// Price is the current unit price, used when the remote item has
	// to be created.
	Price decimal.Decimal
}

// UnitAmount is the per-unit amount excluding tax.
func (l Line) UnitAmount() decimal.Decimal {
	if l.Quantity == 0 {
		return l.Total
	}
	return l.Total.Div(decimal.NewFromInt(l.Quantity)).Round(2)
}

// Order is the narrow read interface the engine consumes.
type Order struct {
	ID            int64
	Number        string
	CreatedAt     time.Time
	Total         decimal.Decimal
	ShippingTotal decimal.Decimal
	ShippingTax   decimal.Decimal
	PaymentMethod string
	Paid          bool
	Billing       Address
	Shipping      Address
	Lines         []Line
}

// Reference identifies the order in the remote ledger.
func (o Order) Reference() string {
	if o.Number != "" {
		return o.Number
	}
	return fmt.Sprintf("%d", o.ID)
}

// GuestName is the synthesized contact name for orders without any
// billing name or email.
func (o Order) GuestName() string {
	return fmt.Sprintf("Guest Checkout Customer #%d", o.ID)
}

// PlaceholderEmail is the deterministic stand-in when the order has no
// billing email.
func (o Order) PlaceholderEmail() string {
	return fmt.Sprintf("unknown-%d@example.com", o.ID)
}
