// Package document implements the six commercial document types and their
// lifecycle: CRUD, derived-totals recomputation, status transitions, and
// submission to the remote system of record.
package document

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-billing/internal/totals"
)

// Type identifies one of the six commercial document variants. All variants
// share the same payload shape and arithmetic; only the status lifecycle
// differs.
type Type string

const (
	TypePurchase         Type = "purchase"
	TypePurchaseEstimate Type = "purchase-estimate"
	TypeBill             Type = "bill"
	TypeDebitNote        Type = "debit-note"
	TypeInvoice          Type = "invoice"
	TypeCreditNote       Type = "credit-note"
)

// Types returns every supported document type.
func Types() []Type {
	return []Type{
		TypePurchase,
		TypePurchaseEstimate,
		TypeBill,
		TypeDebitNote,
		TypeInvoice,
		TypeCreditNote,
	}
}

// ParseType maps a URL segment to a document type.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Types() {
		if t == known {
			return known, true
		}
	}
	return "", false
}

// PaymentTerm is the agreed payment deadline relative to the document date.
type PaymentTerm string

const (
	PaymentDueOnReceipt PaymentTerm = "DUE_ON_RECEIPT"
	PaymentNet15        PaymentTerm = "NET_15"
	PaymentNet30        PaymentTerm = "NET_30"
	PaymentNet60        PaymentTerm = "NET_60"
)

// Address is a postal address attached to a document.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Document is the full commercial document payload. Raw inputs (items,
// taxRate, discountRate) are client-supplied; the six derived money fields
// are always recomputed server-side before persisting, never trusted from
// the client.
type Document struct {
	ID    uuid.UUID `json:"id"`
	OrgID string    `json:"-"`
	Type  Type      `json:"type"`

	SupplierOrCustomerID string      `json:"supplierOrCustomerId,omitempty"`
	ContactEmail         string      `json:"contactEmail" validate:"required,email"`
	PaymentTerm          PaymentTerm `json:"paymentTerm" validate:"required,oneof=DUE_ON_RECEIPT NET_15 NET_30 NET_60"`
	DocumentDate         string      `json:"documentDate" validate:"required,datetime=2006-01-02"`
	ExpectedDate         string      `json:"expectedDate" validate:"omitempty,datetime=2006-01-02"`
	BillingAddress       Address     `json:"billingAddress"`
	ShippingAddress      Address     `json:"shippingAddress"`

	Items []totals.LineItem `json:"items" validate:"required,min=1"`

	Subtotal       float64        `json:"subtotal"`
	TaxRate        totals.Numeric `json:"taxRate" validate:"min=0,max=100"`
	TaxAmount      float64        `json:"taxAmount"`
	DiscountRate   totals.Numeric `json:"discountRate" validate:"min=0,max=100"`
	DiscountAmount float64        `json:"discountAmount"`
	GrandTotal     float64        `json:"grandTotal"`

	Notes  string `json:"notes,omitempty"`
	Status string `json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
