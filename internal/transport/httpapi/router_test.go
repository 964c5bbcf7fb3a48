package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/infra/memory"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/reconcile"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/report"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/handler"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/transport/httpapi/middleware"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

// newTestServer wires the full API over the in-memory repository, with a
// static actor standing in for token auth.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.New("test", io.Discard)

	repo := memory.NewLedgerRepository()
	registry := ledger.NewRegistry(repo, log)
	balances := ledger.NewBalanceStore(repo, log)
	poster := ledger.NewPoster(repo, balances, log)
	reportEngine := report.NewEngine(repo, registry, balances, report.DefaultCashFlowRules(), log)
	reconcileEngine := reconcile.NewEngine(registry, balances, log)

	router := httpapi.NewRouter(httpapi.Config{
		Logger:           log,
		AccountHandler:   handler.NewAccountHandler(registry, poster),
		EntryHandler:     handler.NewEntryHandler(poster),
		ReportHandler:    handler.NewReportHandler(reportEngine),
		ReconcileHandler: handler.NewReconcileHandler(reconcileEngine),
		JWTMiddleware:    middleware.StaticActor("tester"),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Array responses are left undecoded; callers only assert their status.
	var decoded map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func createAccount(t *testing.T, srv *httptest.Server, code, name, typ, category string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts", map[string]interface{}{
		"code": code, "name": name, "type": typ, "category": category,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	return body["id"].(string)
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_AccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := createAccount(t, srv, "1000", "Cash", "ASSET", "CASH")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1000", body["code"])
	assert.Equal(t, "CASH", body["category"])
	assert.Equal(t, "0.00", body["balance"])
	assert.Equal(t, true, body["is_active"])

	// Duplicate codes conflict.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts", map[string]interface{}{
		"code": "1000", "name": "Also Cash", "type": "ASSET",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown types are a validation error.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts", map[string]interface{}{
		"code": "9999", "name": "Bad", "type": "BANANA",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	rename := map[string]interface{}{"name": "Operating Cash"}
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/api/v1/accounts/"+id, rename)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Operating Cash", body["name"])
}

func TestRouter_BootstrapChart(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/accounts/bootstrap", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["created"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts?code=4000", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_EntryLifecycle(t *testing.T) {
	srv := newTestServer(t)

	cashID := createAccount(t, srv, "1000", "Cash", "ASSET", "CASH")
	revenueID := createAccount(t, srv, "4000", "Contract Revenue", "REVENUE", "")

	entryReq := map[string]interface{}{
		"date":        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"description": "contract billing",
		"lines": []map[string]interface{}{
			{"account_id": cashID, "debit": "500.00"},
			{"account_id": revenueID, "credit": "500.00"},
		},
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries", entryReq)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	entryID := body["id"].(string)
	assert.Equal(t, "JE20250001", body["entry_number"])
	assert.Equal(t, false, body["is_posted"])
	assert.Equal(t, "tester", body["created_by"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries/"+entryID+"/post", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_posted"])

	// Posting twice conflicts.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries/"+entryID+"/post", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The posted entry moved the balances.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts/"+cashID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "500.00", body["balance"])
}

func TestRouter_CreateEntry_Unbalanced(t *testing.T) {
	srv := newTestServer(t)

	cashID := createAccount(t, srv, "1000", "Cash", "ASSET", "CASH")
	revenueID := createAccount(t, srv, "4000", "Contract Revenue", "REVENUE", "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries", map[string]interface{}{
		"description": "does not balance",
		"lines": []map[string]interface{}{
			{"account_id": cashID, "debit": "300.00"},
			{"account_id": revenueID, "credit": "250.00"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "balance")
}

func TestRouter_TrialBalanceReport(t *testing.T) {
	srv := newTestServer(t)

	cashID := createAccount(t, srv, "1000", "Cash", "ASSET", "CASH")
	revenueID := createAccount(t, srv, "4000", "Contract Revenue", "REVENUE", "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries", map[string]interface{}{
		"description": "billing",
		"lines": []map[string]interface{}{
			{"account_id": cashID, "debit": "750.00"},
			{"account_id": revenueID, "credit": "750.00"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entryID := body["id"].(string)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries/"+entryID+"/post", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "750", body["total_debits"])
	assert.Equal(t, "750", body["total_credits"])
}

func TestRouter_Reconcile(t *testing.T) {
	srv := newTestServer(t)

	cashID := createAccount(t, srv, "1000", "Cash", "ASSET", "CASH")
	revenueID := createAccount(t, srv, "4000", "Contract Revenue", "REVENUE", "")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries", map[string]interface{}{
		"date":        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"description": "billing",
		"lines": []map[string]interface{}{
			{"account_id": cashID, "debit": "1000.00"},
			{"account_id": revenueID, "credit": "1000.00"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entryID := body["id"].(string)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/entries/"+entryID+"/post", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/reconcile", map[string]interface{}{
		"account_id":        cashID,
		"statement_date":    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"statement_balance": "950.00",
		"outstanding_deposits": []map[string]interface{}{
			{"description": "deposit in transit", "amount": "100.00"},
		},
		"outstanding_checks": []map[string]interface{}{
			{"description": "check 1042", "amount": "50.00"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, true, body["is_reconciled"])

	// Reconciling a revenue account is rejected.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/reconcile", map[string]interface{}{
		"account_id":        revenueID,
		"statement_date":    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"statement_balance": "0.00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRouter_TokenAuth(t *testing.T) {
	log := logger.New("test", io.Discard)

	repo := memory.NewLedgerRepository()
	registry := ledger.NewRegistry(repo, log)
	balances := ledger.NewBalanceStore(repo, log)
	poster := ledger.NewPoster(repo, balances, log)

	jwtService := middleware.NewJWTService("test-secret-test-secret-test-secret")
	router := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AccountHandler: handler.NewAccountHandler(registry, poster),
		JWTMiddleware:  middleware.JWTMiddleware(jwtService),
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	// No token.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/accounts", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Valid token.
	token, err := jwtService.GenerateToken("reporting-service")
	require.NoError(t, err)
	req, err = http.NewRequest(http.MethodGet, srv.URL+"/api/v1/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Health stays public.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
