package ledger_http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finledger/internal/app/auth"
	app_ledger "finledger/internal/app/ledger"
	app_users "finledger/internal/app/users"
	auth_middleware "finledger/internal/handler/http/middleware"
	users_http "finledger/internal/handler/http/users"
	"finledger/internal/jwtutil"
	outbox_memory "finledger/internal/repository/outbox_repo/memory"
	statements_memory "finledger/internal/repository/statements_repo/memory"
	users_memory "finledger/internal/repository/users_repo/memory"
	"finledger/internal/storage"
)

func newTestRouter() chi.Router {
	logger := zap.NewNop()
	txm := storage.NewMemoryTxManager()
	userRepo := users_memory.NewUserRepository()
	statementRepo := statements_memory.NewStatementRepository()
	outboxRepo := outbox_memory.NewOutboxRepository()
	tokens := jwtutil.NewManager("test-secret", time.Hour)

	ledgerService := app_ledger.NewLedgerService(txm, userRepo, statementRepo, outboxRepo, logger)
	userService := app_users.NewUserService(txm, userRepo, logger)
	authService := auth.NewAuthService(txm, userRepo, tokens, logger)
	authenticator := auth_middleware.Authenticator(tokens)

	router := chi.NewRouter()
	users_http.RegisterRoutes(router, userService, authService, authenticator, logger)
	RegisterRoutes(router, ledgerService, authenticator, logger)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "s3cret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from user creation, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/sessions", "", map[string]string{
		"email":    email,
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from session creation, got %d: %s", rec.Code, rec.Body.String())
	}

	var session users_http.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("failed to decode session response: %v", err)
	}
	return session.Token
}

func TestDepositAndBalance(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/statements/deposit", token, map[string]any{
		"amount":      100,
		"description": "payday",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var statement StatementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &statement); err != nil {
		t.Fatalf("failed to decode statement response: %v", err)
	}
	if statement.Type != "deposit" || statement.Amount != "100" {
		t.Errorf("unexpected statement response: %+v", statement)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/statements/balance", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var balance BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("failed to decode balance response: %v", err)
	}
	if balance.Balance != "100" {
		t.Errorf("expected balance 100, got %s", balance.Balance)
	}
	if len(balance.Statements) != 1 {
		t.Errorf("expected 1 statement, got %d", len(balance.Statements))
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/statements/withdraw", token, map[string]any{
		"amount":      50,
		"description": "too much",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTransferBetweenUsers(t *testing.T) {
	router := newTestRouter()
	senderToken := registerAndLogin(t, router, "alice@example.com")
	receiverToken := registerAndLogin(t, router, "bob@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/statements/deposit", senderToken, map[string]any{
		"amount": 100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit failed: %d", rec.Code)
	}

	var receiverProfile struct {
		ID string `json:"id"`
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/profile", receiverToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile failed: %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &receiverProfile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/statements/transfers/"+receiverProfile.ID, senderToken, map[string]any{
		"amount":      30,
		"description": "rent",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var transfer TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &transfer); err != nil {
		t.Fatalf("failed to decode transfer response: %v", err)
	}
	if transfer.Debit.Amount != "30" || transfer.Credit.Amount != "30" {
		t.Errorf("unexpected transfer response: %+v", transfer)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/statements/balance", receiverToken, nil)
	var balance BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("failed to decode balance response: %v", err)
	}
	if balance.Balance != "30" {
		t.Errorf("expected receiver balance 30, got %s", balance.Balance)
	}
}

func TestStatementOperationNotFound(t *testing.T) {
	router := newTestRouter()
	token := registerAndLogin(t, router, "alice@example.com")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/statements/nonexistent", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestForeignStatementIsHidden(t *testing.T) {
	router := newTestRouter()
	ownerToken := registerAndLogin(t, router, "alice@example.com")
	intruderToken := registerAndLogin(t, router, "bob@example.com")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/statements/deposit", ownerToken, map[string]any{
		"amount": 10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit failed: %d", rec.Code)
	}
	var statement StatementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &statement); err != nil {
		t.Fatalf("failed to decode statement: %v", err)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/statements/"+statement.ID, intruderToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign statement, got %d", rec.Code)
	}
}

func TestStatementsRequireToken(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/statements/balance", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/statements/balance", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}
