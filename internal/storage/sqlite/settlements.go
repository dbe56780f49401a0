package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/calculator"
	"github.com/buildmandi/backend/internal/lifecycle"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/storage"
)

// historyNone is the from_status recorded on a settlement's initial audit
// entry.
const historyNone = models.SettlementStatus("none")

// CreateSettlement atomically claims the selected orders and persists the
// settlement. The whole operation is one transaction: either every order
// is claimed and the settlement exists, or nothing changed.
//
// Each order is re-verified at claim time by a guarded UPDATE that only
// matches rows still eligible for this vendor. A concurrent claim that got
// there first leaves the guarded UPDATE matching zero rows, which aborts
// this claim with StaleSelectionError.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, input storage.ClaimInput, actor models.Actor) (*models.Settlement, error) {
	if len(input.OrderIDs) == 0 {
		return nil, models.ErrEmptySelection
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	settlementID := uuid.New().String()

	number, err := nextSettlementNumber(ctx, tx, now.Year())
	if err != nil {
		return nil, err
	}

	// The settlement row goes in first (with zeroed money) so the orders'
	// settlement_id foreign key has a target; the breakdown is written
	// below, in the same transaction, once the claimed rows are known.
	zero := decimal.Zero.String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements
		 (id, number, vendor_id, period_start, period_end,
		  gross_total, platform_fee, platform_fee_pct, platform_fee_method,
		  commission, commission_pct, adjustment, net_payout,
		  status, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlementID, number, input.VendorID, fmtDate(input.PeriodStart), fmtDate(input.PeriodEnd),
		zero, zero, input.Fees.PlatformFeePct.String(), string(models.FeeMethodFlatPct),
		zero, input.Fees.CommissionPct.String(), input.Fees.Adjustment.String(), zero,
		string(models.StatusPending), input.Notes, fmtTime(now), fmtTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert settlement: %w", err)
	}

	// Re-verify and claim every selected order. All conditions from the
	// eligibility query are rechecked here, not trusted from the earlier
	// read.
	var stale []string
	for _, orderID := range input.OrderIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET settlement_id = ?
			 WHERE id = ?
			   AND vendor_id = ?
			   AND fulfillment_status = ?
			   AND payment_status != ?
			   AND settlement_id IS NULL`,
			settlementID, orderID, input.VendorID,
			string(models.FulfillmentFulfilled), string(models.PaymentPaid),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim order %s: %w", orderID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 1 {
			continue
		}

		// The order was not claimable; look at its current row to tell
		// a wrong-vendor selection from a concurrent change.
		var vendorID string
		err = tx.QueryRowContext(ctx, "SELECT vendor_id FROM orders WHERE id = ?", orderID).Scan(&vendorID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.VendorMismatchError{OrderID: orderID, VendorID: input.VendorID}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect order %s: %w", orderID, err)
		}
		if vendorID != input.VendorID {
			return nil, &models.VendorMismatchError{OrderID: orderID, VendorID: input.VendorID}
		}
		stale = append(stale, orderID)
	}
	if len(stale) > 0 {
		return nil, &models.StaleSelectionError{OrderIDs: stale}
	}

	// Load the claimed rows in creation order; this fixes both the
	// settlement's order list and the pro-ration order.
	rows, err := tx.QueryContext(ctx,
		`SELECT id, vendor_id, fulfillment_status, payment_status, gross_total, platform_fee, settlement_id, created_at
		 FROM orders WHERE settlement_id = ? ORDER BY created_at ASC, id ASC`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load claimed orders: %w", err)
	}
	var claimed []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan claimed order: %w", err)
		}
		claimed = append(claimed, *order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claimed orders: %w", err)
	}

	breakdown, err := calculator.Calculate(claimed, input.Fees)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate fees: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE settlements
		 SET gross_total = ?, platform_fee = ?, platform_fee_method = ?, commission = ?, net_payout = ?
		 WHERE id = ?`,
		breakdown.GrossTotal.String(), breakdown.PlatformFee.String(), string(breakdown.PlatformFeeMethod),
		breakdown.Commission.String(), breakdown.NetPayout.String(), settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to persist breakdown: %w", err)
	}

	orderIDs := make([]string, len(claimed))
	for i := range claimed {
		orderIDs[i] = claimed[i].ID
		_, err = tx.ExecContext(ctx,
			"INSERT INTO settlement_orders (settlement_id, order_id, position) VALUES (?, ?, ?)",
			settlementID, claimed[i].ID, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert settlement order: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, &models.StatusHistoryEntry{
		SettlementID: settlementID,
		FromStatus:   historyNone,
		ToStatus:     models.StatusPending,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Reason:       "settlement created",
		RecordedAt:   now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	return &models.Settlement{
		ID:                settlementID,
		Number:            number,
		VendorID:          input.VendorID,
		PeriodStart:       input.PeriodStart,
		PeriodEnd:         input.PeriodEnd,
		OrderIDs:          orderIDs,
		GrossTotal:        breakdown.GrossTotal,
		PlatformFee:       breakdown.PlatformFee,
		PlatformFeePct:    input.Fees.PlatformFeePct,
		PlatformFeeMethod: breakdown.PlatformFeeMethod,
		Commission:        breakdown.Commission,
		CommissionPct:     input.Fees.CommissionPct,
		Adjustment:        input.Fees.Adjustment,
		NetPayout:         breakdown.NetPayout,
		Status:            models.StatusPending,
		Notes:             input.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// nextSettlementNumber allocates the next sequence number for the issuing
// year, inside the claim transaction. Numbers are monotonic per year and
// never reused; a rolled-back claim leaves a gap, which is fine.
func nextSettlementNumber(ctx context.Context, tx *sql.Tx, year int) (string, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO settlement_sequences (year, last_seq) VALUES (?, 1)
		 ON CONFLICT(year) DO UPDATE SET last_seq = last_seq + 1
		 RETURNING last_seq`,
		year,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("failed to allocate settlement number: %w", err)
	}
	return fmt.Sprintf("SET%d-%04d", year, seq), nil
}

// TransitionSettlement applies one lifecycle transition in a single
// transaction: the status change, its side effects on orders, the payout
// metadata, and the audit entry all commit together or not at all.
func (s *SQLiteStore) TransitionSettlement(ctx context.Context, settlementID string, input storage.TransitionInput, actor models.Actor) (*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getSettlementTx(ctx, tx, settlementID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Validate(current.Status, input.Target); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(input.Target), fmtTime(now)}

	switch {
	case current.Status == models.StatusPending && input.Target == models.StatusProcessing:
		// Submitting a payout requires the gateway's transaction
		// reference up front.
		if strings.TrimSpace(input.ExternalRef) == "" {
			return nil, models.ErrMissingPayoutReference
		}
		sets = append(sets, "payout_method = ?", "external_ref = ?")
		args = append(args, input.PayoutMethod, input.ExternalRef)

	case current.Status == models.StatusProcessing && input.Target == models.StatusCompleted:
		ref := strings.TrimSpace(input.ExternalRef)
		if ref == "" {
			ref = strings.TrimSpace(current.ExternalRef)
		}
		if ref == "" {
			return nil, models.ErrMissingPayoutReference
		}
		sets = append(sets, "external_ref = ?", "paid_at = ?", "closed_at = ?")
		args = append(args, ref, fmtTime(now), fmtTime(now))
		if input.BankRef != "" {
			sets = append(sets, "bank_ref = ?")
			args = append(args, input.BankRef)
		}

		// Money moved: the claimed orders are now paid.
		if _, err := tx.ExecContext(ctx,
			"UPDATE orders SET payment_status = ? WHERE settlement_id = ?",
			string(models.PaymentPaid), settlementID,
		); err != nil {
			return nil, fmt.Errorf("failed to mark orders paid: %w", err)
		}

	case current.Status == models.StatusProcessing && input.Target == models.StatusFailed:
		sets = append(sets, "closed_at = ?")
		args = append(args, fmtTime(now))

		// Release the claimed orders so they re-enter eligibility. The
		// settlement_orders rows stay behind for the audit record.
		if _, err := tx.ExecContext(ctx,
			"UPDATE orders SET settlement_id = NULL WHERE settlement_id = ?",
			settlementID,
		); err != nil {
			return nil, fmt.Errorf("failed to release orders: %w", err)
		}
	}

	// Guarded on the source status: a concurrent transition that commits
	// first makes this UPDATE match nothing.
	args = append(args, settlementID, string(current.Status))
	res, err := tx.ExecContext(ctx,
		"UPDATE settlements SET "+strings.Join(sets, ", ")+" WHERE id = ? AND status = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update settlement status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return nil, &models.InvalidTransitionError{From: current.Status, To: input.Target}
	}

	if err := appendHistory(ctx, tx, &models.StatusHistoryEntry{
		SettlementID: settlementID,
		FromStatus:   current.Status,
		ToStatus:     input.Target,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Reason:       input.Reason,
		RecordedAt:   now,
	}); err != nil {
		return nil, err
	}

	updated, err := getSettlementTx(ctx, tx, settlementID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return updated, nil
}

// GetSettlement retrieves a settlement by ID, including its claimed
// order IDs.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	settlement, err := getSettlementTx(ctx, tx, settlementID)
	if err != nil {
		return nil, err
	}
	return settlement, tx.Commit()
}

func getSettlementTx(ctx context.Context, tx *sql.Tx, settlementID string) (*models.Settlement, error) {
	row := tx.QueryRowContext(ctx, selectSettlement+" WHERE id = ?", settlementID)
	settlement, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT order_id FROM settlement_orders WHERE settlement_id = ? ORDER BY position",
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		if err := rows.Scan(&orderID); err != nil {
			return nil, fmt.Errorf("failed to scan settlement order: %w", err)
		}
		settlement.OrderIDs = append(settlement.OrderIDs, orderID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement orders: %w", err)
	}

	return settlement, nil
}

// ListSettlements returns a page of settlements matching the filter,
// newest first, plus the total match count.
func (s *SQLiteStore) ListSettlements(ctx context.Context, f storage.SettlementFilter) ([]models.Settlement, int, error) {
	where, args := buildSettlementWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settlements"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.PageSize

	q := selectSettlement + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, *settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, total, nil
}

// GetStatistics aggregates settlements by status over an optional date
// range. Sums run in Go on exact decimals; SQL SUM over the text columns
// would go through floating point.
func (s *SQLiteStore) GetStatistics(ctx context.Context, from, to *time.Time) (*storage.Statistics, error) {
	var clauses []string
	var args []any
	if from != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, fmtTime(from.UTC().Truncate(24*time.Hour)))
	}
	if to != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, fmtTime(to.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT vendor_id, status, net_payout FROM settlements"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	stats := &storage.Statistics{TotalSettled: decimal.Zero}
	byVendor := make(map[string]*storage.VendorStats)
	var vendorOrder []string

	for rows.Next() {
		var vendorID, status, netStr string
		if err := rows.Scan(&vendorID, &status, &netStr); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}

		switch models.SettlementStatus(status) {
		case models.StatusPending:
			stats.PendingCount++
		case models.StatusProcessing:
			stats.ProcessingCount++
		case models.StatusCompleted:
			stats.CompletedCount++
		case models.StatusFailed:
			stats.FailedCount++
		case models.StatusOnHold:
			stats.OnHoldCount++
		}

		if models.SettlementStatus(status) != models.StatusCompleted {
			continue
		}
		net, err := decimal.NewFromString(netStr)
		if err != nil {
			return nil, fmt.Errorf("invalid net_payout %q: %w", netStr, err)
		}
		stats.TotalSettled = stats.TotalSettled.Add(net)

		vs, ok := byVendor[vendorID]
		if !ok {
			vs = &storage.VendorStats{VendorID: vendorID, SettledTotal: decimal.Zero}
			byVendor[vendorID] = vs
			vendorOrder = append(vendorOrder, vendorID)
		}
		vs.SettledTotal = vs.SettledTotal.Add(net)
		vs.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statistics rows: %w", err)
	}

	for _, vendorID := range vendorOrder {
		stats.ByVendor = append(stats.ByVendor, *byVendor[vendorID])
	}

	return stats, nil
}

const selectSettlement = `SELECT id, number, vendor_id, period_start, period_end,
 gross_total, platform_fee, platform_fee_pct, platform_fee_method,
 commission, commission_pct, adjustment, net_payout,
 status, payout_method, external_ref, bank_ref, paid_at, notes,
 created_at, updated_at, closed_at
 FROM settlements`

func scanSettlement(row scanner) (*models.Settlement, error) {
	var (
		st                         models.Settlement
		periodStart, periodEnd     string
		gross, fee, feePct         string
		feeMethod                  string
		comm, commPct, adj, net    string
		status                     string
		payoutMethod, extRef, bank sql.NullString
		paidAt, notes, closedAt    sql.NullString
		createdAtStr, updatedAtStr string
	)

	err := row.Scan(&st.ID, &st.Number, &st.VendorID, &periodStart, &periodEnd,
		&gross, &fee, &feePct, &feeMethod,
		&comm, &commPct, &adj, &net,
		&status, &payoutMethod, &extRef, &bank, &paidAt, &notes,
		&createdAtStr, &updatedAtStr, &closedAt)
	if err != nil {
		return nil, err
	}

	if st.PeriodStart, err = parseDate(periodStart); err != nil {
		return nil, err
	}
	if st.PeriodEnd, err = parseDate(periodEnd); err != nil {
		return nil, err
	}

	for _, d := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&st.GrossTotal, gross},
		{&st.PlatformFee, fee},
		{&st.PlatformFeePct, feePct},
		{&st.Commission, comm},
		{&st.CommissionPct, commPct},
		{&st.Adjustment, adj},
		{&st.NetPayout, net},
	} {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", d.src, err)
		}
		*d.dst = v
	}

	st.PlatformFeeMethod = models.PlatformFeeMethod(feeMethod)
	st.Status = models.SettlementStatus(status)
	if payoutMethod.Valid {
		st.PayoutMethod = payoutMethod.String
	}
	if extRef.Valid {
		st.ExternalRef = extRef.String
	}
	if bank.Valid {
		st.BankRef = bank.String
	}
	if notes.Valid {
		st.Notes = notes.String
	}
	if paidAt.Valid {
		t, err := parseTime(paidAt.String)
		if err != nil {
			return nil, err
		}
		st.PaidAt = &t
	}
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return nil, err
		}
		st.ClosedAt = &t
	}
	if st.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &st, nil
}

func buildSettlementWhere(f storage.SettlementFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.VendorID != "" {
		clauses = append(clauses, "vendor_id = ?")
		args = append(args, f.VendorID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, fmtTime(f.From.UTC().Truncate(24*time.Hour)))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, fmtTime(f.To.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
