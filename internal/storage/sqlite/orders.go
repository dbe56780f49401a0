package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/models"
)

// CreateOrder persists a new order to the database.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.FulfillmentStatus == "" {
		order.FulfillmentStatus = models.FulfillmentPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentUnpaid
	}

	var platformFee any
	if order.PlatformFee != nil {
		platformFee = order.PlatformFee.String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, vendor_id, fulfillment_status, payment_status, gross_total, platform_fee, settlement_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		order.ID, order.VendorID, string(order.FulfillmentStatus), string(order.PaymentStatus),
		order.GrossTotal.String(), platformFee, fmtTime(order.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, vendor_id, fulfillment_status, payment_status, gross_total, platform_fee, settlement_id, created_at
		 FROM orders WHERE id = ?`,
		orderID,
	)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListEligibleOrders returns the vendor's fulfilled, unpaid, unclaimed
// orders created within [from, to] (inclusive dates), oldest first.
func (s *SQLiteStore) ListEligibleOrders(ctx context.Context, vendorID string, from, to time.Time) ([]models.Order, error) {
	// to is an inclusive date, so compare against the start of the next day.
	toExclusive := to.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vendor_id, fulfillment_status, payment_status, gross_total, platform_fee, settlement_id, created_at
		 FROM orders
		 WHERE vendor_id = ?
		   AND fulfillment_status = ?
		   AND payment_status != ?
		   AND settlement_id IS NULL
		   AND created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`,
		vendorID, string(models.FulfillmentFulfilled), string(models.PaymentPaid),
		fmtTime(from.UTC().Truncate(24*time.Hour)), fmtTime(toExclusive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	return orders, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	var (
		order        models.Order
		fulfillment  string
		payment      string
		grossStr     string
		feeNull      sql.NullString
		settleNull   sql.NullString
		createdAtStr string
	)

	err := row.Scan(&order.ID, &order.VendorID, &fulfillment, &payment,
		&grossStr, &feeNull, &settleNull, &createdAtStr)
	if err != nil {
		return nil, err
	}

	order.FulfillmentStatus = models.FulfillmentStatus(fulfillment)
	order.PaymentStatus = models.PaymentStatus(payment)

	if order.GrossTotal, err = decimal.NewFromString(grossStr); err != nil {
		return nil, fmt.Errorf("invalid gross_total %q: %w", grossStr, err)
	}
	if feeNull.Valid {
		fee, err := decimal.NewFromString(feeNull.String)
		if err != nil {
			return nil, fmt.Errorf("invalid platform_fee %q: %w", feeNull.String, err)
		}
		order.PlatformFee = &fee
	}
	if settleNull.Valid {
		order.SettlementID = &settleNull.String
	}
	if order.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}

	return &order, nil
}
