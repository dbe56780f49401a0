package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/storage/sqlite"
)

func newTestAuthService(t *testing.T) (*AuthService, *sqlite.SQLiteStore) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(store, jwtManager), store
}

func TestLogin(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, store, "admin@buildmandi.in", "Admin", "strongpassword"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}

	token, op, err := svc.Login(ctx, "admin@buildmandi.in", "strongpassword")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if op.Role != models.RoleAdmin {
		t.Errorf("role = %s, want admin", op.Role)
	}

	if _, _, err := svc.Login(ctx, "admin@buildmandi.in", "wrongpassword"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@buildmandi.in", "strongpassword"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown email: error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterOperator(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	admin := models.Actor{ID: "op-admin", Name: "Admin", Role: models.RoleAdmin}
	finance := models.Actor{ID: "op-fin", Name: "Asha", Role: models.RoleFinance}

	op, err := svc.RegisterOperator(ctx, admin, "asha@buildmandi.in", "Asha", models.RoleFinance, "strongpassword")
	if err != nil {
		t.Fatalf("RegisterOperator failed: %v", err)
	}
	if op.Role != models.RoleFinance {
		t.Errorf("role = %s, want finance", op.Role)
	}

	if _, err := svc.RegisterOperator(ctx, finance, "x@buildmandi.in", "X", models.RoleFinance, "strongpassword"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin actor: error = %v, want ErrForbidden", err)
	}
	if _, err := svc.RegisterOperator(ctx, admin, "y@buildmandi.in", "Y", "superuser", "strongpassword"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown role: error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.RegisterOperator(ctx, admin, "z@buildmandi.in", "Z", models.RoleFinance, "short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("weak password: error = %v, want ErrWeakPassword", err)
	}
	if _, err := svc.RegisterOperator(ctx, admin, "asha@buildmandi.in", "Again", models.RoleFinance, "strongpassword"); !errors.Is(err, auth.ErrEmailExists) {
		t.Errorf("duplicate email: error = %v, want ErrEmailExists", err)
	}
}

func TestEnsureAdmin_SeedsOnlyOnce(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, store, "admin@buildmandi.in", "Admin", "strongpassword"); err != nil {
		t.Fatalf("first EnsureAdmin failed: %v", err)
	}
	// Second call is a no-op, even with different credentials.
	if err := svc.EnsureAdmin(ctx, store, "other@buildmandi.in", "Other", "strongpassword"); err != nil {
		t.Fatalf("second EnsureAdmin failed: %v", err)
	}

	count, err := store.CountOperators(ctx)
	if err != nil {
		t.Fatalf("CountOperators failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 operator, got %d", count)
	}
}
