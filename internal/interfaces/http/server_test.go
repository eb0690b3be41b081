package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saldo/internal/domain/account"
	"saldo/internal/domain/category"
	"saldo/internal/domain/ledger"
	"saldo/internal/domain/transaction"
	"saldo/internal/domain/user"
	"saldo/internal/infrastructure/memory"
	"saldo/internal/shared/logging"
)

// MockCategoryChecker implements category.Checker for testing
type MockCategoryChecker struct {
	MissingFunc func(ctx context.Context, ids []string) (string, error)
}

func (m *MockCategoryChecker) Missing(ctx context.Context, ids []string) (string, error) {
	if m.MissingFunc != nil {
		return m.MissingFunc(ctx, ids)
	}
	return "", nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

// newTestServer wires the API on an in-memory store. checker replaces the
// category existence check when non-nil.
func newTestServer(t *testing.T, checker category.Checker) *testServer {
	t.Helper()

	logger := logging.NewSilent()
	store := memory.New()
	coord := ledger.NewCoordinator(nil, time.Second)

	users := user.NewService(store.Users(), logger)
	categories := category.NewService(store.Categories(), logger)
	if checker == nil {
		checker = categories
	}
	accounts := account.NewService(store.Accounts(), store, store.Users(), coord, logger)
	engine := transaction.NewEngine(store.Transactions(), store, store.Accounts(), checker, coord, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Handlers{
		Health:      NewHealthHandler(store, logger),
		User:        NewUserHandler(users, accounts, logger),
		Account:     NewAccountHandler(accounts, engine, logger),
		Transaction: NewTransactionHandler(engine, logger),
		Category:    NewCategoryHandler(categories, logger),
	}, nil)

	return &testServer{t: t, handler: mux}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// mustDo performs the request, requires the status and decodes the body
// into out when out is non-nil.
func (s *testServer) mustDo(method, path string, body any, status int, out any) {
	s.t.Helper()

	rr := s.do(method, path, body)
	require.Equal(s.t, status, rr.Code, "body: %s", rr.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), out))
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return body.Error
}

// seed creates an active user, an expense category and an account holding
// opening.
func (s *testServer) seed(opening string) (userID, categoryID, accountID string) {
	s.t.Helper()

	var u UserResponse
	s.mustDo(http.MethodPost, "/api/users", CreateUserRequest{Name: "Ana", Email: "ana@example.com"}, http.StatusCreated, &u)

	var c category.Category
	s.mustDo(http.MethodPost, "/api/categories", map[string]string{"name": "Food", "kind": "EXPENSE", "color": "#1194F6"}, http.StatusCreated, &c)

	var acc AccountResponse
	s.mustDo(http.MethodPost, "/api/accounts", map[string]any{
		"userId":         u.ID,
		"name":           "Main",
		"type":           "CHECKING",
		"openingBalance": opening,
	}, http.StatusCreated, &acc)

	return u.ID, c.ID, acc.ID
}

func expenseBody(accountID, categoryID, amount string) map[string]any {
	return map[string]any{
		"accountId":   accountID,
		"type":        "EXPENSE",
		"amount":      amount,
		"categoryIds": []string{categoryID},
		"date":        "2024-01-15",
		"description": "Groceries",
	}
}

func (s *testServer) balance(accountID string) string {
	s.t.Helper()

	var acc AccountResponse
	s.mustDo(http.MethodGet, "/api/accounts/"+accountID, nil, http.StatusOK, &acc)
	return acc.Balance
}
