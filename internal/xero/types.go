package xero

// Wire types for the accounting API. Field names follow the provider's
// PascalCase JSON exactly; amounts are float64 at this boundary only,
// domain code carries decimals.

// Address types accepted by the provider.
const (
	AddressPOBox    = "POBOX"
	AddressStreet   = "STREET"
	AddressDelivery = "DELIVERY"
)

type Address struct {
	AddressType  string `json:"AddressType"`
	AttentionTo  string `json:"AttentionTo,omitempty"`
	AddressLine1 string `json:"AddressLine1,omitempty"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City,omitempty"`
	Region       string `json:"Region,omitempty"`
	PostalCode   string `json:"PostalCode,omitempty"`
	Country      string `json:"Country,omitempty"`
}

type Phone struct {
	PhoneType   string `json:"PhoneType"`
	PhoneNumber string `json:"PhoneNumber"`
}

// Contact is sent with every invoice; the provider performs its own
// matching and dedup by name and email.
type Contact struct {
	Name         string    `json:"Name"`
	EmailAddress string    `json:"EmailAddress"`
	FirstName    string    `json:"FirstName,omitempty"`
	LastName     string    `json:"LastName,omitempty"`
	Addresses    []Address `json:"Addresses,omitempty"`
	Phones       []Phone   `json:"Phones,omitempty"`
}

type LineItem struct {
	Description string  `json:"Description"`
	Quantity    float64 `json:"Quantity"`
	UnitAmount  float64 `json:"UnitAmount"`
	TaxAmount   float64 `json:"TaxAmount"`
	AccountCode string  `json:"AccountCode"`
	ItemCode    string  `json:"ItemCode,omitempty"`
}

type Invoice struct {
	Type            string     `json:"Type"`
	Contact         Contact    `json:"Contact"`
	Date            string     `json:"Date"`
	DueDate         string     `json:"DueDate"`
	LineItems       []LineItem `json:"LineItems"`
	Status          string     `json:"Status"`
	Reference       string     `json:"Reference"`
	LineAmountTypes string     `json:"LineAmountTypes"`
}

type SalesDetails struct {
	UnitPrice   float64 `json:"UnitPrice"`
	AccountCode string  `json:"AccountCode"`
}

// Item is a product record. PurchaseDetails are omitted: this is a
// sales-only sync.
type Item struct {
	ItemID       string        `json:"ItemID,omitempty"`
	Code         string        `json:"Code"`
	Name         string        `json:"Name"`
	IsSold       bool          `json:"IsSold"`
	SalesDetails *SalesDetails `json:"SalesDetails,omitempty"`
}

type InvoiceRef struct {
	InvoiceID string `json:"InvoiceID"`
}

type AccountRef struct {
	Code string `json:"Code"`
}

type Payment struct {
	Invoice InvoiceRef `json:"Invoice"`
	Account AccountRef `json:"Account"`
	Date    string     `json:"Date"`
	Amount  float64    `json:"Amount"`
}

// Response envelopes. Writes are wrapped the same way:
// { "<Resource>": [ ... ] }.

type InvoicesResponse struct {
	Invoices []struct {
		InvoiceID     string `json:"InvoiceID"`
		InvoiceNumber string `json:"InvoiceNumber"`
	} `json:"Invoices"`
}

type ItemsResponse struct {
	Items []Item `json:"Items"`
}

type AccountsResponse struct {
	Accounts []struct {
		Code string `json:"Code"`
		Name string `json:"Name"`
		Type string `json:"Type"`
	} `json:"Accounts"`
}

type PaymentsResponse struct {
	Payments []struct {
		PaymentID string `json:"PaymentID"`
	} `json:"Payments"`
}
