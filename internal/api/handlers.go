package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/middleware"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/service"
	"github.com/buildmandi/backend/internal/storage"
)

const dateLayout = "2006-01-02"

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	settlements *service.SettlementService
	auths       *service.AuthService
	validate    *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(settlements *service.SettlementService, auths *service.AuthService) *Handlers {
	return &Handlers{
		settlements: settlements,
		auths:       auths,
		validate:    validator.New(),
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}

// writeDomainError maps the settlement error taxonomy onto HTTP. Each
// kind keeps its own code because the operator's corrective action
// differs per kind.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		staleErr    *models.StaleSelectionError
		mismatchErr *models.VendorMismatchError
		invalidErr  *models.InvalidTransitionError
	)

	switch {
	case errors.Is(err, models.ErrEmptySelection):
		writeError(w, http.StatusBadRequest, "empty_selection", err.Error())
	case errors.As(err, &staleErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":         "stale_selection",
			"error":        staleErr.Error(),
			"stale_orders": staleErr.OrderIDs,
		})
	case errors.As(err, &mismatchErr):
		writeError(w, http.StatusBadRequest, "vendor_mismatch", mismatchErr.Error())
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusConflict, "invalid_state_transition", invalidErr.Error())
	case errors.Is(err, models.ErrMissingPayoutReference):
		writeError(w, http.StatusUnprocessableEntity, "missing_payout_reference", err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "weak_password", err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, "email_exists", err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return false
	}
	return true
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- auth ---

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	token, op, err := h.auths.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"operator": op,
	})
}

type registerOperatorRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin finance"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) RegisterOperator(w http.ResponseWriter, r *http.Request) {
	var req registerOperatorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	actor := middleware.GetActor(r.Context())
	op, err := h.auths.RegisterOperator(r.Context(), actor, req.Email, req.Name, req.Role, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, op)
}

// --- eligibility ---

func (h *Handlers) ListEligibleOrders(w http.ResponseWriter, r *http.Request) {
	vendorID := chi.URLParam(r, "vendorID")

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil || from == nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "from is required (YYYY-MM-DD)")
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil || to == nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "to is required (YYYY-MM-DD)")
		return
	}

	orders, err := h.settlements.ListEligibleOrders(r.Context(), vendorID, *from, *to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// --- settlements ---

type createSettlementRequest struct {
	VendorID       string           `json:"vendor_id" validate:"required"`
	OrderIDs       []string         `json:"order_ids"`
	PeriodStart    string           `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd      string           `json:"period_end" validate:"required,datetime=2006-01-02"`
	PlatformFeePct *decimal.Decimal `json:"platform_fee_pct,omitempty"`
	CommissionPct  *decimal.Decimal `json:"commission_pct,omitempty"`
	Adjustment     *decimal.Decimal `json:"adjustment,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

func (h *Handlers) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req createSettlementRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	periodStart, _ := time.Parse(dateLayout, req.PeriodStart)
	periodEnd, _ := time.Parse(dateLayout, req.PeriodEnd)

	actor := middleware.GetActor(r.Context())
	settlement, err := h.settlements.CreateSettlement(r.Context(), actor, service.CreateSettlementInput{
		VendorID:       req.VendorID,
		OrderIDs:       req.OrderIDs,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		PlatformFeePct: req.PlatformFeePct,
		CommissionPct:  req.CommissionPct,
		Adjustment:     req.Adjustment,
		Notes:          req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, settlement)
}

func (h *Handlers) GetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, shares, err := h.settlements.GetSettlement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"settlement":   settlement,
		"order_shares": shares,
	})
}

func (h *Handlers) ListSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDateParam(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid from date")
		return
	}
	to, err := parseDateParam(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid to date")
		return
	}

	filter := storage.SettlementFilter{
		VendorID: q.Get("vendor_id"),
		Status:   models.SettlementStatus(q.Get("status")),
		From:     from,
		To:       to,
		Page:     parseIntDefault(q.Get("page"), 1),
		PageSize: parseIntDefault(q.Get("page_size"), 20),
	}

	settlements, total, err := h.settlements.ListSettlements(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"settlements": settlements,
		"total":       total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

type transitionRequest struct {
	TargetStatus string `json:"target_status" validate:"required"`
	PayoutMethod string `json:"payout_method,omitempty"`
	ExternalRef  string `json:"external_reference,omitempty"`
	BankRef      string `json:"bank_reference,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (h *Handlers) TransitionSettlement(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	actor := middleware.GetActor(r.Context())
	settlement, err := h.settlements.TransitionSettlement(r.Context(), actor, chi.URLParam(r, "id"), service.TransitionRequest{
		Target:       models.SettlementStatus(req.TargetStatus),
		PayoutMethod: req.PayoutMethod,
		ExternalRef:  req.ExternalRef,
		BankRef:      req.BankRef,
		Reason:       req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settlement)
}

func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.settlements.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"count":   len(entries),
	})
}

func (h *Handlers) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDateParam(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid from date")
		return
	}
	to, err := parseDateParam(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid to date")
		return
	}

	stats, err := h.settlements.GetStatistics(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
