package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FulfillmentStatus tracks an order's delivery progress. Only fulfilled
// orders can be settled.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentFulfilled FulfillmentStatus = "fulfilled"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

// PaymentStatus tracks whether the vendor has been paid for an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order is the settlement-relevant subset of a marketplace order.
// Catalog, delivery, and buyer details live elsewhere.
type Order struct {
	// ID is the unique identifier for the order (UUID format).
	ID string `json:"id"`

	// VendorID is the vendor who fulfills (and is paid for) the order.
	VendorID string `json:"vendor_id"`

	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`

	// GrossTotal is the full order value in INR.
	GrossTotal decimal.Decimal `json:"gross_total"`

	// PlatformFee is the platform's fee for this order as recorded at
	// order time. Nil when the order predates per-order fee capture.
	PlatformFee *decimal.Decimal `json:"platform_fee,omitempty"`

	// SettlementID is the back-reference to the settlement that claimed
	// this order. Nil while the order is unclaimed; cleared only when a
	// claiming settlement fails.
	SettlementID *string `json:"settlement_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Eligible reports whether the order can be claimed by a new settlement
// for the given vendor: fulfilled, unpaid, and unclaimed.
func (o *Order) Eligible(vendorID string) bool {
	return o.VendorID == vendorID &&
		o.FulfillmentStatus == FulfillmentFulfilled &&
		o.PaymentStatus != PaymentPaid &&
		o.SettlementID == nil
}
