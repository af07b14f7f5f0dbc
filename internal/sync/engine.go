// Package sync maps one completed store order onto remote Contact,
// Item, Invoice and Payment resources. The workflow is linear and
// partially idempotent: every stage is a hard gate except item
// resolution and payment, which degrade instead of aborting.
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oakmont/xerosync/internal/order"
	"github.com/oakmont/xerosync/internal/xero"
	"go.uber.org/zap"
)

var (
	ErrNotConnected  = errors.New("not connected to xero")
	ErrNoLineItems   = errors.New("no valid line items")
	ErrInvoiceCreate = errors.New("invoice creation failed")
)

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	StageSkipped StageStatus = "skipped"
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
)

// Result aggregates per-stage outcomes so callers can see which stage
// degraded, not just a boolean.
type Result struct {
	Success    bool        `json:"success"`
	Credential StageStatus `json:"credential"`
	LineItems  StageStatus `json:"line_items"`
	Invoice    StageStatus `json:"invoice"`
	Payment    StageStatus `json:"payment"`
	InvoiceID  string      `json:"invoice_id,omitempty"`
	Notes      []string    `json:"notes"`
	Err        error       `json:"-"`
}

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// SettingsSource supplies the immutable lookup tables for one sync.
type SettingsSource interface {
	DefaultSalesAccount() string
	PaymentMappings() map[string]string
}

// Engine orchestrates the sync workflow.
type Engine struct {
	creds    xero.CredentialSource
	client   *xero.Client
	settings SettingsSource
	log      *zap.Logger
	now      func() time.Time
}

func NewEngine(creds xero.CredentialSource, client *xero.Client, settings SettingsSource, log *zap.Logger) *Engine {
	return &Engine{
		creds:    creds,
		client:   client,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Sync runs the full workflow for one order. Invoice creation is the
// success criterion: a skipped or failed payment still reports overall
// success, and the invoice is never rolled back.
func (e *Engine) Sync(ctx context.Context, o order.Order) Result {
	result := Result{
		Credential: StageSkipped,
		LineItems:  StageSkipped,
		Invoice:    StageSkipped,
		Payment:    StageSkipped,
	}

	// Stage 1: credential gate.
	accessToken, err := e.creds.AccessToken(ctx)
	if err != nil {
		result.Credential = StageFailed
		result.Err = ErrNotConnected
		result.note("Xero sync failed: not connected or token expired.")
		return result
	}
	tenantID, err := e.creds.TenantID()
	if err != nil {
		result.Credential = StageFailed
		result.Err = ErrNotConnected
		result.note("Xero sync failed: not connected or token expired.")
		return result
	}
	result.Credential = StageOK

	// Stage 2: contact construction. Cannot fail.
	contact := buildContact(o)

	// Stage 3: line items with per-line item resolution.
	lines := e.buildLineItems(ctx, o, accessToken, tenantID)
	if len(lines) == 0 {
		result.LineItems = StageFailed
		result.Err = ErrNoLineItems
		result.note("Xero sync failed: no valid line items found.")
		return result
	}
	result.LineItems = StageOK

	// Stage 4: invoice submission.
	invoiceID, err := e.createInvoice(ctx, o, contact, lines, accessToken, tenantID)
	if err != nil {
		result.Invoice = StageFailed
		result.Err = err
		result.note("Xero sync failed: invoice creation failed: %v", err)
		return result
	}
	result.Invoice = StageOK
	result.InvoiceID = invoiceID
	result.Success = true

	// Stage 5: conditional payment. Best effort from here on.
	e.registerPayment(ctx, o, invoiceID, accessToken, tenantID, &result)
	return result
}

// buildContact derives the remote contact from billing and shipping
// fields, synthesizing a guest name and placeholder email when the
// order carries neither.
func buildContact(o order.Order) xero.Contact {
	name := o.Billing.Name()
	email := o.Billing.Email
	if name == "" {
		if email != "" {
			name = email
		} else {
			name = o.GuestName()
		}
	}
	if email == "" {
		email = o.PlaceholderEmail()
	}

	contact := xero.Contact{
		Name:         name,
		EmailAddress: email,
		FirstName:    o.Billing.FirstName,
		LastName:     o.Billing.LastName,
	}
	if o.Billing.Phone != "" {
		contact.Phones = []xero.Phone{{PhoneType: "DEFAULT", PhoneNumber: o.Billing.Phone}}
	}
	if o.Billing.HasLocation() {
		contact.Addresses = append(contact.Addresses, postalAddress(xero.AddressPOBox, o.Billing, ""))
	}
	if o.Shipping.HasLocation() && !o.Shipping.SameLocation(o.Billing) {
		contact.Addresses = append(contact.Addresses, postalAddress(xero.AddressStreet, o.Shipping, ""))
	}
	return contact
}

func postalAddress(addrType string, a order.Address, attentionTo string) xero.Address {
	return xero.Address{
		AddressType:  addrType,
		AttentionTo:  attentionTo,
		AddressLine1: a.Address1,
		AddressLine2: a.Address2,
		City:         a.City,
		Region:       a.State,
		PostalCode:   a.Postcode,
		Country:      a.Country,
	}
}

// buildLineItems emits one line per product row plus a synthetic
// shipping line when the order carries a positive shipping charge.
// Item resolution failure degrades a line to no item code, never
// aborts.
func (e *Engine) buildLineItems(ctx context.Context, o order.Order, accessToken, tenantID string) []xero.LineItem {
	salesAccount := e.settings.DefaultSalesAccount()

	var lines []xero.LineItem
	for _, l := range o.Lines {
		item := xero.LineItem{
			Description: l.Name,
			Quantity:    float64(l.Quantity),
			UnitAmount:  l.UnitAmount().InexactFloat64(),
			TaxAmount:   l.TotalTax.InexactFloat64(),
			AccountCode: salesAccount,
		}
		if code := e.resolveItem(ctx, l, salesAccount, accessToken, tenantID); code != "" {
			item.ItemCode = code
		}
		lines = append(lines, item)
	}

	if o.ShippingTotal.IsPositive() {
		lines = append(lines, xero.LineItem{
			Description: fmt.Sprintf("Shipping Cost (Order ID: %d)", o.ID),
			Quantity:    1,
			UnitAmount:  o.ShippingTotal.InexactFloat64(),
			TaxAmount:   o.ShippingTax.InexactFloat64(),
			AccountCode: salesAccount,
		})
	}
	return lines
}

// resolveItem looks the SKU up remotely and creates the item when
// missing. Lines without a SKU are not mapped at all. Returns "" when
// no remote item reference could be established.
func (e *Engine) resolveItem(ctx context.Context, l order.Line, salesAccount, accessToken, tenantID string) string {
	if l.SKU == "" {
		return ""
	}

	var found xero.ItemsResponse
	resource := "Items?where=" + url.QueryEscape(fmt.Sprintf(`Code=="%s"`, l.SKU))
	err := e.client.Do(ctx, http.MethodGet, resource, accessToken, tenantID, nil, &found)
	if err == nil && len(found.Items) > 0 {
		return found.Items[0].Code
	}

	newItem := xero.Item{
		Code:   l.SKU,
		Name:   l.Name,
		IsSold: true,
		SalesDetails: &xero.SalesDetails{
			UnitPrice:   l.Price.InexactFloat64(),
			AccountCode: salesAccount,
		},
	}
	var created xero.ItemsResponse
	err = e.client.Do(ctx, http.MethodPost, "Items",
		accessToken, tenantID, map[string]any{"Items": []xero.Item{newItem}}, &created)
	if err == nil && len(created.Items) > 0 && created.Items[0].ItemID != "" {
		e.log.Info("created xero item", zap.String("sku", l.SKU))
		return created.Items[0].Code
	}

	e.log.Warn("item resolution failed, line will carry no item code",
		zap.String("sku", l.SKU), zap.Error(err))
	return ""
}

// createInvoice submits the receivable invoice and returns the remote
// invoice id.
func (e *Engine) createInvoice(ctx context.Context, o order.Order, contact xero.Contact, lines []xero.LineItem, accessToken, tenantID string) (string, error) {
	// The delivery block rides on the invoice contact. Attention goes
	// to the shipping name, falling back to the contact name.
	if o.Shipping.HasLocation() {
		attentionTo := o.Shipping.Name()
		if attentionTo == "" {
			attentionTo = contact.Name
		}
		contact.Addresses = append(contact.Addresses, postalAddress(xero.AddressDelivery, o.Shipping, attentionTo))
	}

	date := o.CreatedAt.Format("2006-01-02")
	invoice := xero.Invoice{
		Type:            "ACCREC",
		Contact:         contact,
		Date:            date,
		DueDate:         date,
		LineItems:       lines,
		Status:          "AUTHORISED",
		Reference:       o.Reference(),
		LineAmountTypes: "Exclusive",
	}

	var parsed xero.InvoicesResponse
	err := e.client.Do(ctx, http.MethodPost, "Invoices",
		accessToken, tenantID, map[string]any{"Invoices": []xero.Invoice{invoice}}, &parsed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvoiceCreate, err)
	}
	if len(parsed.Invoices) == 0 || parsed.Invoices[0].InvoiceID == "" {
		return "", fmt.Errorf("%w: response carried no invoice id", ErrInvoiceCreate)
	}
	return parsed.Invoices[0].InvoiceID, nil
}

// registerPayment resolves the bank account for the order's payment
// method and registers a payment for the full total. Both the missing
// mapping and a failed remote call leave the sync successful; the
// invoice is worth more than a rollback.
func (e *Engine) registerPayment(ctx context.Context, o order.Order, invoiceID, accessToken, tenantID string, result *Result) {
	bankCode := e.settings.PaymentMappings()[o.PaymentMethod]
	if bankCode == "" {
		result.Payment = StageSkipped
		result.note("Xero sync successful (invoice %s created). Payment skipped: payment method %q is not mapped to a Xero bank account code.",
			invoiceID, o.PaymentMethod)
		return
	}

	payment := xero.Payment{
		Invoice: xero.InvoiceRef{InvoiceID: invoiceID},
		Account: xero.AccountRef{Code: bankCode},
		Date:    e.now().Format("2006-01-02"),
		Amount:  o.Total.InexactFloat64(),
	}
	err := e.client.Do(ctx, http.MethodPost, "Payments",
		accessToken, tenantID, map[string]any{"Payments": []xero.Payment{payment}}, nil)
	if err != nil {
		result.Payment = StageFailed
		result.note("Xero sync partially successful: invoice %s created, but payment registration failed (check Xero account code %s).",
			invoiceID, bankCode)
		e.log.Warn("payment registration failed",
			zap.Int64("order_id", o.ID), zap.String("bank_code", bankCode), zap.Error(err))
		return
	}

	result.Payment = StageOK
	result.note("Xero sync successful: invoice %s created and marked as paid.", invoiceID)
}
