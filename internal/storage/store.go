// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/calculator"
	"github.com/buildmandi/backend/internal/models"
)

// ClaimInput describes one settlement-creation attempt: the vendor, the
// orders the operator selected, and the fee configuration to apply.
type ClaimInput struct {
	VendorID    string
	OrderIDs    []string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Fees        calculator.FeeConfig
	Notes       string
}

// TransitionInput carries the payout metadata accompanying a lifecycle
// transition. Which fields are required depends on the target status.
type TransitionInput struct {
	Target       models.SettlementStatus
	PayoutMethod string
	ExternalRef  string
	BankRef      string
	Reason       string
}

// SettlementFilter narrows and pages a settlement listing.
type SettlementFilter struct {
	VendorID string
	Status   models.SettlementStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// VendorStats is the per-vendor slice of Statistics.
type VendorStats struct {
	VendorID     string          `json:"vendor_id"`
	SettledTotal decimal.Decimal `json:"settled_total"`
	Count        int             `json:"count"`
}

// Statistics aggregates settlements by status over an optional date range.
type Statistics struct {
	TotalSettled    decimal.Decimal `json:"total_settled"`
	PendingCount    int             `json:"pending_count"`
	ProcessingCount int             `json:"processing_count"`
	CompletedCount  int             `json:"completed_count"`
	FailedCount     int             `json:"failed_count"`
	OnHoldCount     int             `json:"on_hold_count"`
	ByVendor        []VendorStats   `json:"by_vendor"`
}

// Store defines the interface for settlement storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// CreateSettlement and TransitionSettlement are the only operations that
// mutate shared state (order settlement references, settlement status);
// implementations must execute each as a single all-or-nothing
// transaction.
type Store interface {
	// CreateOrder persists a new order. Used by seeding and tests; order
	// placement itself is outside this service.
	CreateOrder(ctx context.Context, order *models.Order) error

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// ListEligibleOrders returns the vendor's fulfilled, unpaid,
	// unclaimed orders created within [from, to] (inclusive dates),
	// ordered by creation time ascending. Read-only; claims nothing.
	ListEligibleOrders(ctx context.Context, vendorID string, from, to time.Time) ([]models.Order, error)

	// CreateSettlement atomically re-verifies and claims every order in
	// the input, computes the fee breakdown, and persists the settlement
	// in pending state with its initial audit entry. If any order is no
	// longer eligible the whole claim aborts: StaleSelectionError when
	// orders were claimed or changed status concurrently,
	// VendorMismatchError when an order is unknown or belongs to another
	// vendor.
	CreateSettlement(ctx context.Context, input ClaimInput, actor models.Actor) (*models.Settlement, error)

	// GetSettlement retrieves a settlement by ID, including its claimed
	// order IDs.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlements returns a page of settlements matching the filter,
	// newest first, plus the total match count.
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]models.Settlement, int, error)

	// TransitionSettlement atomically applies one lifecycle transition
	// and its effects (payout metadata, marking orders paid, releasing
	// orders on failure) and appends the audit entry. Concurrent
	// attempts serialize; the loser gets InvalidTransitionError.
	TransitionSettlement(ctx context.Context, settlementID string, input TransitionInput, actor models.Actor) (*models.Settlement, error)

	// ListHistory returns the settlement's audit entries in log order.
	ListHistory(ctx context.Context, settlementID string) ([]models.StatusHistoryEntry, error)

	// GetStatistics aggregates settlements by status, optionally bounded
	// by creation date.
	GetStatistics(ctx context.Context, from, to *time.Time) (*Statistics, error)

	// Operator accounts.
	CreateOperator(ctx context.Context, op *models.Operator) error
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	GetOperatorByID(ctx context.Context, id string) (*models.Operator, error)
	CountOperators(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
