package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/storage"
)

// ErrForbidden marks operations the acting operator's role does not
// permit.
var ErrForbidden = errors.New("operation not permitted for this role")

// AuthService handles operator login and account management.
type AuthService struct {
	authenticator *auth.PasswordAuthenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates an AuthService over the given store.
func NewAuthService(store storage.Store, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		authenticator: auth.NewPasswordAuthenticator(store),
		jwtManager:    jwtManager,
	}
}

// Login verifies the operator's credentials and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.Operator, error) {
	op, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwtManager.Generate(op)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	slog.Info("Operator logged in", "operator_id", op.ID, "role", op.Role)
	return token, op, nil
}

// RegisterOperator creates a new operator account. Admin only.
func (s *AuthService) RegisterOperator(ctx context.Context, actor models.Actor, email, name, role, password string) (*models.Operator, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if role != models.RoleAdmin && role != models.RoleFinance {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	op, err := s.authenticator.Register(ctx, email, name, role, password)
	if err != nil {
		return nil, err
	}

	slog.Info("Operator registered", "operator_id", op.ID, "role", op.Role, "by", actor.ID)
	return op, nil
}

// EnsureAdmin seeds the first admin account when the operators table is
// empty, so a fresh deployment is immediately usable.
func (s *AuthService) EnsureAdmin(ctx context.Context, store storage.Store, email, name, password string) error {
	count, err := store.CountOperators(ctx)
	if err != nil {
		return fmt.Errorf("failed to count operators: %w", err)
	}
	if count > 0 {
		return nil
	}

	op, err := s.authenticator.Register(ctx, email, name, models.RoleAdmin, password)
	if err != nil {
		return fmt.Errorf("failed to seed admin operator: %w", err)
	}

	slog.Info("Seeded initial admin operator", "operator_id", op.ID, "email", email)
	return nil
}
