package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/calculator"
	"github.com/buildmandi/backend/internal/lifecycle"
	"github.com/buildmandi/backend/internal/metrics"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/storage"
)

// ErrInvalidInput marks request-shape problems the caller can fix
// (bad date range, unknown status, missing vendor). Wrapped errors carry
// the specifics.
var ErrInvalidInput = errors.New("invalid input")

// maxPageSize caps listing pages.
const maxPageSize = 100

// SettlementService orchestrates settlement operations: eligibility
// listing, claims, lifecycle transitions, and reporting. All shared-state
// mutation happens inside the store's transactions; this layer validates,
// fills defaults, logs, and counts.
type SettlementService struct {
	store storage.Store

	defaultPlatformFeePct decimal.Decimal
	defaultCommissionPct  decimal.Decimal
}

// NewSettlementService creates a SettlementService with the given storage
// backend and default fee percentages.
func NewSettlementService(store storage.Store, defaultPlatformFeePct, defaultCommissionPct decimal.Decimal) *SettlementService {
	return &SettlementService{
		store:                 store,
		defaultPlatformFeePct: defaultPlatformFeePct,
		defaultCommissionPct:  defaultCommissionPct,
	}
}

// ListEligibleOrders returns the vendor's settleable orders in the
// inclusive date range, oldest first. Advisory only: eligibility is
// re-verified at claim time.
func (s *SettlementService) ListEligibleOrders(ctx context.Context, vendorID string, from, to time.Time) ([]models.Order, error) {
	if vendorID == "" {
		return nil, fmt.Errorf("%w: vendor id is required", ErrInvalidInput)
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: period start and end are required", ErrInvalidInput)
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: period start %s is after end %s", ErrInvalidInput,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	return s.store.ListEligibleOrders(ctx, vendorID, from, to)
}

// CreateSettlementInput is an operator's settlement-creation request.
// Nil fee fields fall back to the service defaults.
type CreateSettlementInput struct {
	VendorID       string
	OrderIDs       []string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	PlatformFeePct *decimal.Decimal
	CommissionPct  *decimal.Decimal
	Adjustment     *decimal.Decimal
	Notes          string
}

// CreateSettlement claims the selected orders into a new pending
// settlement. The empty-selection check runs before any transaction; the
// per-order eligibility recheck happens inside the store's claim
// transaction.
func (s *SettlementService) CreateSettlement(ctx context.Context, actor models.Actor, input CreateSettlementInput) (*models.Settlement, error) {
	if input.VendorID == "" {
		return nil, fmt.Errorf("%w: vendor id is required", ErrInvalidInput)
	}

	orderIDs := dedupe(input.OrderIDs)
	if len(orderIDs) == 0 {
		return nil, models.ErrEmptySelection
	}

	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period start and end are required", ErrInvalidInput)
	}
	if input.PeriodStart.After(input.PeriodEnd) {
		return nil, fmt.Errorf("%w: period start is after end", ErrInvalidInput)
	}

	fees := calculator.FeeConfig{
		PlatformFeePct: s.defaultPlatformFeePct,
		CommissionPct:  s.defaultCommissionPct,
		Adjustment:     decimal.Zero,
	}
	if input.PlatformFeePct != nil {
		fees.PlatformFeePct = *input.PlatformFeePct
	}
	if input.CommissionPct != nil {
		fees.CommissionPct = *input.CommissionPct
	}
	if input.Adjustment != nil {
		fees.Adjustment = *input.Adjustment
	}
	if fees.PlatformFeePct.IsNegative() || fees.CommissionPct.IsNegative() {
		return nil, fmt.Errorf("%w: fee percentages must not be negative", ErrInvalidInput)
	}

	start := time.Now()
	settlement, err := s.store.CreateSettlement(ctx, storage.ClaimInput{
		VendorID:    input.VendorID,
		OrderIDs:    orderIDs,
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		Fees:        fees,
		Notes:       input.Notes,
	}, actor)
	metrics.ClaimDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var staleErr *models.StaleSelectionError
		if errors.As(err, &staleErr) {
			metrics.ClaimConflicts.Inc()
			slog.Warn("Settlement claim lost to concurrent selection",
				"vendor_id", input.VendorID,
				"stale_orders", staleErr.OrderIDs,
				"actor_id", actor.ID,
			)
		}
		return nil, err
	}

	metrics.SettlementsCreated.Inc()
	slog.Info("Settlement created",
		"settlement_id", settlement.ID,
		"number", settlement.Number,
		"vendor_id", settlement.VendorID,
		"orders", len(settlement.OrderIDs),
		"net_payout", settlement.NetPayout.String(),
		"actor_id", actor.ID,
	)
	return settlement, nil
}

// TransitionRequest carries a lifecycle transition and its payout
// metadata.
type TransitionRequest struct {
	Target       models.SettlementStatus
	PayoutMethod string
	ExternalRef  string
	BankRef      string
	Reason       string
}

// TransitionSettlement applies one lifecycle transition.
func (s *SettlementService) TransitionSettlement(ctx context.Context, actor models.Actor, settlementID string, req TransitionRequest) (*models.Settlement, error) {
	if !lifecycle.Valid(req.Target) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Target)
	}

	settlement, err := s.store.TransitionSettlement(ctx, settlementID, storage.TransitionInput{
		Target:       req.Target,
		PayoutMethod: req.PayoutMethod,
		ExternalRef:  req.ExternalRef,
		BankRef:      req.BankRef,
		Reason:       req.Reason,
	}, actor)
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues(string(req.Target)).Inc()
	slog.Info("Settlement transitioned",
		"settlement_id", settlement.ID,
		"status", settlement.Status,
		"actor_id", actor.ID,
	)
	return settlement, nil
}

// GetSettlement returns the settlement plus its per-order display shares,
// pro-rated from the persisted breakdown.
func (s *SettlementService) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, []calculator.OrderShare, error) {
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, nil, err
	}

	orders := make([]models.Order, 0, len(settlement.OrderIDs))
	for _, orderID := range settlement.OrderIDs {
		order, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load claimed order: %w", err)
		}
		orders = append(orders, *order)
	}

	shares := calculator.ProRate(calculator.Breakdown{
		GrossTotal:  settlement.GrossTotal,
		PlatformFee: settlement.PlatformFee,
		Commission:  settlement.Commission,
		Adjustment:  settlement.Adjustment,
		NetPayout:   settlement.NetPayout,
	}, orders)

	return settlement, shares, nil
}

// ListSettlements returns a page of settlements matching the filter.
func (s *SettlementService) ListSettlements(ctx context.Context, filter storage.SettlementFilter) ([]models.Settlement, int, error) {
	if filter.Status != "" && !lifecycle.Valid(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	return s.store.ListSettlements(ctx, filter)
}

// GetHistory returns the settlement's audit trail in log order.
func (s *SettlementService) GetHistory(ctx context.Context, settlementID string) ([]models.StatusHistoryEntry, error) {
	// Surface not-found instead of an empty log for unknown ids.
	if _, err := s.store.GetSettlement(ctx, settlementID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, settlementID)
}

// GetStatistics aggregates settlements by status over an optional range.
func (s *SettlementService) GetStatistics(ctx context.Context, from, to *time.Time) (*storage.Statistics, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: period start is after end", ErrInvalidInput)
	}
	return s.store.GetStatistics(ctx, from, to)
}

// dedupe removes duplicate ids while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
