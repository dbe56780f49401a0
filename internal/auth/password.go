package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/buildmandi/backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// OperatorStorage defines the interface for operator persistence
// operations. This allows the authenticator to be independent of the
// storage implementation.
type OperatorStorage interface {
	CreateOperator(ctx context.Context, op *models.Operator) error
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	GetOperatorByID(ctx context.Context, id string) (*models.Operator, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage OperatorStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage OperatorStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new operator account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, name, role, credential string) (*models.Operator, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	existing, err := a.storage.GetOperatorByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op := models.NewOperator(email, name, role, string(hashedPassword))

	if err := a.storage.CreateOperator(ctx, op); err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	return op, nil
}

// Authenticate verifies the email and password, returning the operator if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.Operator, error) {
	op, err := a.storage.GetOperatorByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return op, nil
}
