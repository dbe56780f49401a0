package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/buildmandi/backend/internal/models"
)

// CreateOperator persists a new operator account.
func (s *SQLiteStore) CreateOperator(ctx context.Context, op *models.Operator) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operators (id, email, name, role, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		op.ID, op.Email, op.Name, op.Role, op.PasswordHash, fmtTime(op.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert operator: %w", err)
	}
	return nil
}

// GetOperatorByEmail retrieves an operator by login email.
func (s *SQLiteStore) GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error) {
	return s.getOperator(ctx, "email", email)
}

// GetOperatorByID retrieves an operator by ID.
func (s *SQLiteStore) GetOperatorByID(ctx context.Context, id string) (*models.Operator, error) {
	return s.getOperator(ctx, "id", id)
}

func (s *SQLiteStore) getOperator(ctx context.Context, column, value string) (*models.Operator, error) {
	op := &models.Operator{}
	var createdAtStr string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, role, password_hash, created_at FROM operators WHERE "+column+" = ?",
		value,
	).Scan(&op.ID, &op.Email, &op.Name, &op.Role, &op.PasswordHash, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operator %s: %w", value, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}

	if op.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	return op, nil
}

// CountOperators returns the number of operator accounts.
func (s *SQLiteStore) CountOperators(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operators").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operators: %w", err)
	}
	return count, nil
}
