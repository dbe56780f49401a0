package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator roles. Admins can manage operators; both roles can run
// settlement operations.
const (
	RoleAdmin   = "admin"
	RoleFinance = "finance"
)

// Operator represents a back-office user who drives settlement
// operations. Every lifecycle transition records the acting operator in
// the audit trail.
type Operator struct {
	// ID is the unique identifier for the operator (UUID format).
	ID string `json:"id"`

	// Email is the login identifier (unique).
	Email string `json:"email"`

	// Name is the display name recorded alongside audit entries.
	Name string `json:"name"`

	// Role is one of RoleAdmin or RoleFinance.
	Role string `json:"role"`

	// PasswordHash is the bcrypt hash of the operator's password.
	// Never serialized.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// NewOperator creates an operator with a fresh ID and creation time.
func NewOperator(email, name, role, passwordHash string) *Operator {
	return &Operator{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}
