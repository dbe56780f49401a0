package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/models"
	"github.com/buildmandi/backend/internal/service"
	"github.com/buildmandi/backend/internal/storage/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.SQLiteStore) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	settlements := service.NewSettlementService(store, dec("4"), dec("1"))
	auths := service.NewAuthService(store, jwtManager)

	if err := auths.EnsureAdmin(context.Background(), store, "admin@buildmandi.in", "Admin", "strongpassword"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}

	srv := httptest.NewServer(NewRouter(settlements, auths, jwtManager))
	t.Cleanup(srv.Close)
	return srv, store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedOrder(t *testing.T, store *sqlite.SQLiteStore, vendorID, gross string) *models.Order {
	t.Helper()
	order := &models.Order{
		VendorID:          vendorID,
		FulfillmentStatus: models.FulfillmentFulfilled,
		PaymentStatus:     models.PaymentUnpaid,
		GrossTotal:        dec(gross),
		CreatedAt:         time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}
	if err := store.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return order
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	return body.Token
}

func adminToken(t *testing.T, srv *httptest.Server) string {
	return login(t, srv, "admin@buildmandi.in", "strongpassword")
}

func createSettlement(t *testing.T, srv *httptest.Server, token, vendorID string, orderIDs ...string) *models.Settlement {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", token, map[string]any{
		"vendor_id":    vendorID,
		"order_ids":    orderIDs,
		"period_start": "2026-08-01",
		"period_end":   "2026-08-31",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create settlement status = %d, want 201", resp.StatusCode)
	}
	var settlement models.Settlement
	decodeBody(t, resp, &settlement)
	return &settlement
}

func TestLoginEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    "admin@buildmandi.in",
		"password": "wrongpassword",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "not-an-email",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", resp.StatusCode)
	}

	if token := adminToken(t, srv); token == "" {
		t.Error("expected a token")
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestEligibleOrdersEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	seedOrder(t, store, "vendor-a", "10000")
	seedOrder(t, store, "vendor-a", "20000")
	seedOrder(t, store, "vendor-b", "5000")

	resp := doJSON(t, http.MethodGet,
		srv.URL+"/api/v1/vendors/vendor-a/eligible-orders?from=2026-08-01&to=2026-08-31", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Orders []models.Order `json:"orders"`
		Count  int            `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 2 || len(body.Orders) != 2 {
		t.Errorf("count = %d len = %d, want 2/2", body.Count, len(body.Orders))
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/vendors/vendor-a/eligible-orders", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing range status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateSettlementEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	o1 := seedOrder(t, store, "vendor-a", "10000")
	o2 := seedOrder(t, store, "vendor-a", "20000")
	o3 := seedOrder(t, store, "vendor-a", "5000")

	settlement := createSettlement(t, srv, token, "vendor-a", o1.ID, o2.ID, o3.ID)
	if settlement.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", settlement.Status)
	}
	if !settlement.NetPayout.Equal(dec("33250")) {
		t.Errorf("net payout = %s, want 33250", settlement.NetPayout)
	}
	if settlement.Number == "" {
		t.Error("expected a settlement number")
	}

	// Claiming the same orders again conflicts.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", token, map[string]any{
		"vendor_id":    "vendor-a",
		"order_ids":    []string{o1.ID, o2.ID},
		"period_start": "2026-08-01",
		"period_end":   "2026-08-31",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat claim status = %d, want 409", resp.StatusCode)
	}
	var conflict struct {
		Code        string   `json:"code"`
		StaleOrders []string `json:"stale_orders"`
	}
	decodeBody(t, resp, &conflict)
	if conflict.Code != "stale_selection" || len(conflict.StaleOrders) != 2 {
		t.Errorf("unexpected conflict body: %+v", conflict)
	}
}

func TestCreateSettlementEndpoint_BadRequests(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)
	order := seedOrder(t, store, "vendor-a", "10000")

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			"empty selection",
			map[string]any{
				"vendor_id": "vendor-a", "order_ids": []string{},
				"period_start": "2026-08-01", "period_end": "2026-08-31",
			},
			http.StatusBadRequest,
		},
		{
			"missing vendor",
			map[string]any{
				"order_ids":    []string{order.ID},
				"period_start": "2026-08-01", "period_end": "2026-08-31",
			},
			http.StatusBadRequest,
		},
		{
			"bad date",
			map[string]any{
				"vendor_id": "vendor-a", "order_ids": []string{order.ID},
				"period_start": "01/08/2026", "period_end": "2026-08-31",
			},
			http.StatusBadRequest,
		},
		{
			"wrong vendor",
			map[string]any{
				"vendor_id": "vendor-b", "order_ids": []string{order.ID},
				"period_start": "2026-08-01", "period_end": "2026-08-31",
			},
			http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements", token, tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestTransitionEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	order := seedOrder(t, store, "vendor-a", "10000")
	settlement := createSettlement(t, srv, token, "vendor-a", order.ID)
	transitionURL := fmt.Sprintf("%s/api/v1/settlements/%s/transition", srv.URL, settlement.ID)

	// Missing external reference.
	resp := doJSON(t, http.MethodPost, transitionURL, token, map[string]string{
		"target_status": "processing",
		"payout_method": "bank_transfer",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing ref status = %d, want 422", resp.StatusCode)
	}

	// Unknown status.
	resp = doJSON(t, http.MethodPost, transitionURL, token, map[string]string{
		"target_status": "shipped",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, transitionURL, token, map[string]string{
		"target_status":      "processing",
		"payout_method":      "bank_transfer",
		"external_reference": "TXN-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("processing status = %d, want 200", resp.StatusCode)
	}
	var updated models.Settlement
	decodeBody(t, resp, &updated)
	if updated.Status != models.StatusProcessing || updated.ExternalRef != "TXN-1" {
		t.Errorf("unexpected settlement: %+v", updated)
	}

	// Invalid transition from processing.
	resp = doJSON(t, http.MethodPost, transitionURL, token, map[string]string{
		"target_status": "on_hold",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("invalid transition status = %d, want 409", resp.StatusCode)
	}

	// Unknown settlement.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/settlements/no-such-id/transition", token, map[string]string{
		"target_status": "on_hold",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown settlement status = %d, want 404", resp.StatusCode)
	}
}

func TestGetSettlementEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	o1 := seedOrder(t, store, "vendor-a", "10000")
	o2 := seedOrder(t, store, "vendor-a", "20000")
	settlement := createSettlement(t, srv, token, "vendor-a", o1.ID, o2.ID)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements/"+settlement.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Settlement  models.Settlement `json:"settlement"`
		OrderShares []json.RawMessage `json:"order_shares"`
	}
	decodeBody(t, resp, &body)
	if body.Settlement.ID != settlement.ID {
		t.Errorf("settlement id = %s, want %s", body.Settlement.ID, settlement.ID)
	}
	if len(body.OrderShares) != 2 {
		t.Errorf("expected 2 order shares, got %d", len(body.OrderShares))
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements/no-such-id", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	order := seedOrder(t, store, "vendor-a", "10000")
	settlement := createSettlement(t, srv, token, "vendor-a", order.ID)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/settlements/%s/transition", srv.URL, settlement.ID), token, map[string]string{
			"target_status": "on_hold",
			"reason":        "KYC check",
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transition status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/v1/settlements/%s/history", srv.URL, settlement.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		History []models.StatusHistoryEntry `json:"history"`
		Count   int                         `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 2 {
		t.Fatalf("expected 2 history entries, got %d", body.Count)
	}
	if body.History[1].ToStatus != models.StatusOnHold || body.History[1].Reason != "KYC check" {
		t.Errorf("unexpected entry: %+v", body.History[1])
	}
}

func TestListAndStatisticsEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	token := adminToken(t, srv)

	o1 := seedOrder(t, store, "vendor-a", "10000")
	o2 := seedOrder(t, store, "vendor-b", "20000")
	createSettlement(t, srv, token, "vendor-a", o1.ID)
	createSettlement(t, srv, token, "vendor-b", o2.ID)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements?vendor_id=vendor-a", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	var list struct {
		Settlements []models.Settlement `json:"settlements"`
		Total       int                 `json:"total"`
	}
	decodeBody(t, resp, &list)
	if list.Total != 1 || len(list.Settlements) != 1 {
		t.Errorf("vendor filter: total=%d len=%d, want 1/1", list.Total, len(list.Settlements))
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements?status=archived", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/settlements/statistics", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("statistics status = %d, want 200", resp.StatusCode)
	}
	var stats struct {
		PendingCount int `json:"pending_count"`
	}
	decodeBody(t, resp, &stats)
	if stats.PendingCount != 2 {
		t.Errorf("pending count = %d, want 2", stats.PendingCount)
	}
}

func TestRegisterOperatorEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	admin := adminToken(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/operators", admin, map[string]string{
		"email":    "asha@buildmandi.in",
		"name":     "Asha",
		"role":     "finance",
		"password": "strongpassword",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}

	// Finance operators cannot create accounts.
	finance := login(t, srv, "asha@buildmandi.in", "strongpassword")
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/operators", finance, map[string]string{
		"email":    "new@buildmandi.in",
		"name":     "New",
		"role":     "finance",
		"password": "strongpassword",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("finance register status = %d, want 403", resp.StatusCode)
	}

	// Role outside the known set fails validation.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/operators", admin, map[string]string{
		"email":    "root@buildmandi.in",
		"name":     "Root",
		"role":     "superuser",
		"password": "strongpassword",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown role status = %d, want 400", resp.StatusCode)
	}
}
