package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cueclub/backend/internal/cache"
	"cueclub/backend/internal/domain"
	"cueclub/backend/internal/service"
	"cueclub/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path. The
// payment delay is zero so bill confirmations return immediately.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopEstimateCache{}, 5*time.Second, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleTables_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleTables_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Tables []domain.Table `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Tables) != 10 {
		t.Fatalf("expected 10 seeded tables, got %d", len(body.Tables))
	}
}

func TestOperatorCannotAccessAdminReports(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/daily", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator on admin route, got %d", rec.Code)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")
	csrf := fetchCSRFToken(t, api)

	do := func(method string, path string, body any) *httptest.ResponseRecorder {
		var payload []byte
		if body != nil {
			payload, _ = json.Marshal(body)
		}
		req := httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v1/tables/1/start", domain.StartSessionRequest{CustomerName: "Arjun"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/api/v1/tables/1/food", domain.AddFoodRequest{MenuItemID: "menu-tea", Quantity: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("food: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/api/v1/tables/1/estimate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("estimate: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/api/v1/tables/1/bill/preview", domain.PreviewBillRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/api/v1/tables/1/bill/confirm", domain.ConfirmBillRequest{
		Payment: domain.PaymentInput{Method: domain.PaymentCash},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var confirmBody struct {
		Transaction domain.SalesTransaction `json:"transaction"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&confirmBody); err != nil {
		t.Fatalf("decode confirm body: %v", err)
	}
	if confirmBody.Transaction.ID == "" || confirmBody.Transaction.FoodChargeCents != 600 {
		t.Fatalf("unexpected transaction: %+v", confirmBody.Transaction)
	}

	rec = do(http.MethodGet, "/api/v1/transactions/"+confirmBody.Transaction.ID+"/receipt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// A second start on the now-free table succeeds.
	rec = do(http.MethodPost, "/api/v1/tables/1/start", domain.StartSessionRequest{CustomerName: "Meera"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("restart: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestStartOnOccupiedTableReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.StartSessionRequest{CustomerName: "Arjun"})
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tables/2/start", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d (body: %s)", i+1, want, rec.Code, rec.Body.String())
		}
	}
}

func TestInvalidTableIDReturns400(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/not-a-number", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric table id, got %d", rec.Code)
	}
}

func TestUnknownTableReturns404(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "operator", "operator123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/99", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown table, got %d", rec.Code)
	}
}

func TestCloseDayTwiceReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.CloseDayRequest{
		Date:        time.Now().UTC().Format("2006-01-02"),
		CountedCash: 0,
		CountedCard: 0,
	})
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/day-closures", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("attempt %d: expected %d, got %d (body: %s)", i+1, want, rec.Code, rec.Body.String())
		}
	}
}

func TestCreateOperatorOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.OperatorCreateRequest{Username: "nightshift", Password: "secret123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/operators", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/users/operators", nil)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)

	var body struct {
		Operators []domain.OperatorUser `json:"operators"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&body); err != nil {
		t.Fatalf("decode operators: %v", err)
	}
	found := false
	for _, op := range body.Operators {
		if op.Username == "nightshift" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected nightshift in operator list, got %+v", body.Operators)
	}
}
