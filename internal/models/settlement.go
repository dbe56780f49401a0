package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus represents a settlement's position in its payout
// lifecycle. Valid transitions are defined in the lifecycle package.
type SettlementStatus string

const (
	StatusPending    SettlementStatus = "pending"
	StatusProcessing SettlementStatus = "processing"
	StatusCompleted  SettlementStatus = "completed"
	StatusFailed     SettlementStatus = "failed"
	StatusOnHold     SettlementStatus = "on_hold"
)

// Terminal reports whether no further transitions are permitted.
func (s SettlementStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PlatformFeeMethod records which source of truth produced a settlement's
// platform fee.
type PlatformFeeMethod string

const (
	// FeeMethodPerOrder sums the fees recorded on each order at order
	// time. Used whenever every claimed order carries one; preserves the
	// fee terms in effect when the order was placed.
	FeeMethodPerOrder PlatformFeeMethod = "per_order"

	// FeeMethodFlatPct applies a flat percentage to the settlement's
	// gross total. Fallback when any claimed order lacks a recorded fee.
	FeeMethodFlatPct PlatformFeeMethod = "flat_pct"
)

// Settlement is a batched payout record aggregating a vendor's completed,
// unpaid orders for one period.
//
// The monetary invariant, held from creation onward:
//
//	NetPayout = GrossTotal - PlatformFee - Commission + Adjustment
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// Number is the human-readable settlement number, unique and
	// monotonically assigned within its issuing year.
	Number string `json:"number"`

	VendorID string `json:"vendor_id"`

	// PeriodStart and PeriodEnd bound the inclusive date range the
	// settlement covers.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	// OrderIDs lists the claimed orders in creation order. Immutable once
	// the settlement leaves pending.
	OrderIDs []string `json:"order_ids"`

	GrossTotal        decimal.Decimal   `json:"gross_total"`
	PlatformFee       decimal.Decimal   `json:"platform_fee"`
	PlatformFeePct    decimal.Decimal   `json:"platform_fee_pct"`
	PlatformFeeMethod PlatformFeeMethod `json:"platform_fee_method"`
	Commission        decimal.Decimal   `json:"commission"`
	CommissionPct     decimal.Decimal   `json:"commission_pct"`

	// Adjustment is a signed manual correction: negative deducts,
	// positive adds.
	Adjustment decimal.Decimal `json:"adjustment"`

	NetPayout decimal.Decimal `json:"net_payout"`

	Status SettlementStatus `json:"status"`

	// Payout metadata, attached by lifecycle transitions.
	PayoutMethod string     `json:"payout_method,omitempty"`
	ExternalRef  string     `json:"external_ref,omitempty"`
	BankRef      string     `json:"bank_ref,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ClosedAt is set when the settlement enters a terminal state.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// StatusHistoryEntry is one append-only audit record of a lifecycle
// transition. Entries are never updated or deleted; Seq totally orders
// the log for a settlement.
type StatusHistoryEntry struct {
	Seq          int64            `json:"seq"`
	SettlementID string           `json:"settlement_id"`
	FromStatus   SettlementStatus `json:"from_status"`
	ToStatus     SettlementStatus `json:"to_status"`
	ActorID      string           `json:"actor_id"`
	ActorRole    string           `json:"actor_role"`
	Reason       string           `json:"reason,omitempty"`
	RecordedAt   time.Time        `json:"recorded_at"`
}

// Actor identifies who performed a settlement operation, for the audit
// trail. Populated from the authenticated operator.
type Actor struct {
	ID   string
	Name string
	Role string
}
