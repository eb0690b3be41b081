package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	var created ReceiptResponse
	s.mustDo(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "30.00"), http.StatusCreated, &created)
	assert.Equal(t, "70.00", created.Balance)
	assert.Equal(t, "30.00", created.Transaction.Amount)
	assert.Equal(t, "2024-01-15T00:00:00Z", created.Transaction.Date)
	assert.Equal(t, "70.00", s.balance(accountID))

	id := created.Transaction.ID

	var updated ReceiptResponse
	s.mustDo(http.MethodPatch, "/api/transactions/"+id, `{"amount":"50.00"}`, http.StatusOK, &updated)
	assert.Equal(t, "50.00", updated.Balance)
	assert.Equal(t, "Groceries", updated.Transaction.Description)

	var fetched TransactionResponse
	s.mustDo(http.MethodGet, "/api/transactions/"+id, nil, http.StatusOK, &fetched)
	assert.Equal(t, "50.00", fetched.Amount)
	assert.Equal(t, []string{categoryID}, fetched.CategoryIDs)

	var deleted ReceiptResponse
	s.mustDo(http.MethodDelete, "/api/transactions/"+id, nil, http.StatusOK, &deleted)
	assert.Equal(t, "100.00", deleted.Balance)
	assert.Equal(t, "100.00", s.balance(accountID))

	rr := s.do(http.MethodGet, "/api/transactions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Kind)
}

func TestCreateTransaction_Rejections(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	tests := []struct {
		name   string
		mutate func(body map[string]any)
		status int
		field  string
	}{
		{
			name:   "insufficient funds",
			mutate: func(b map[string]any) { b["amount"] = "100.01" },
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "future date",
			mutate: func(b map[string]any) { b["date"] = "2999-01-01" },
			status: http.StatusBadRequest,
			field:  "date",
		},
		{
			name:   "malformed date",
			mutate: func(b map[string]any) { b["date"] = "15/01/2024" },
			status: http.StatusBadRequest,
			field:  "date",
		},
		{
			name:   "unknown category",
			mutate: func(b map[string]any) { b["categoryIds"] = []string{categoryID, "c-missing"} },
			status: http.StatusBadRequest,
			field:  "categoryIds",
		},
		{
			name:   "blank description",
			mutate: func(b map[string]any) { b["description"] = "   " },
			status: http.StatusBadRequest,
			field:  "description",
		},
		{
			name:   "invalid type",
			mutate: func(b map[string]any) { b["type"] = "TRANSFER" },
			status: http.StatusBadRequest,
			field:  "type",
		},
		{
			name:   "sub-cent amount",
			mutate: func(b map[string]any) { b["amount"] = "1.005" },
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "tiny exponent amount",
			mutate: func(b map[string]any) { b["amount"] = "1e-300000000" },
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "huge exponent amount",
			mutate: func(b map[string]any) { b["amount"] = "1e999999999" },
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "amount beyond column range",
			mutate: func(b map[string]any) { b["amount"] = "1e17" },
			status: http.StatusBadRequest,
			field:  "amount",
		},
		{
			name:   "unknown account",
			mutate: func(b map[string]any) { b["accountId"] = "acc-missing" },
			status: http.StatusNotFound,
			field:  "id",
		},
		{
			name:   "unknown field",
			mutate: func(b map[string]any) { b["balance"] = "1.00" },
			status: http.StatusBadRequest,
			field:  "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := expenseBody(accountID, categoryID, "10.00")
			tt.mutate(body)

			rr := s.do(http.MethodPost, "/api/transactions", body)
			assert.Equal(t, tt.status, rr.Code, "body: %s", rr.Body.String())
			assert.Equal(t, tt.field, decodeError(t, rr).Field)
		})
	}

	assert.Equal(t, "100.00", s.balance(accountID))
}

func TestDeletedCategoryKeepsTransactions(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	var created ReceiptResponse
	s.mustDo(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "10.00"), http.StatusCreated, &created)
	id := created.Transaction.ID

	rr := s.do(http.MethodDelete, "/api/categories/"+categoryID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	var fetched TransactionResponse
	s.mustDo(http.MethodGet, "/api/transactions/"+id, nil, http.StatusOK, &fetched)
	assert.Equal(t, []string{categoryID}, fetched.CategoryIDs)

	var updated ReceiptResponse
	s.mustDo(http.MethodPatch, "/api/transactions/"+id, `{"amount":"20.00"}`, http.StatusOK, &updated)
	assert.Equal(t, "80.00", updated.Balance)
	assert.Equal(t, []string{categoryID}, updated.Transaction.CategoryIDs)

	rr = s.do(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "1.00"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "categoryIds", decodeError(t, rr).Field)

	var deleted ReceiptResponse
	s.mustDo(http.MethodDelete, "/api/transactions/"+id, nil, http.StatusOK, &deleted)
	assert.Equal(t, "100.00", deleted.Balance)
}

func TestCreateTransaction_UnknownCategoryNamesFirstMissing(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	body := expenseBody(accountID, categoryID, "10.00")
	body["categoryIds"] = []string{"c-9", categoryID, "c-2"}

	rr := s.do(http.MethodPost, "/api/transactions", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "c-9")
	assert.NotContains(t, decodeError(t, rr).Message, "c-2")
}

func TestCreateTransaction_InactiveAccount(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	s.mustDo(http.MethodPost, "/api/accounts/"+accountID+"/deactivate", nil, http.StatusOK, nil)

	rr := s.do(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "10.00"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "inactive account")
}

func TestCreateTransaction_StorageFailureIsInternal(t *testing.T) {
	checker := &MockCategoryChecker{
		MissingFunc: func(ctx context.Context, ids []string) (string, error) {
			return "", errors.New("connection reset")
		},
	}
	s := newTestServer(t, checker)
	_, categoryID, accountID := s.seed("100.00")

	rr := s.do(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "10.00"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	detail := decodeError(t, rr)
	assert.Equal(t, "internal", detail.Kind)
	assert.Equal(t, "internal error", detail.Message)
	assert.Equal(t, "100.00", s.balance(accountID))
}

func TestUpdateTransaction_PartialFields(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	var created ReceiptResponse
	s.mustDo(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, "30.00"), http.StatusCreated, &created)
	path := "/api/transactions/" + created.Transaction.ID

	t.Run("type change re-signs the whole amount", func(t *testing.T) {
		var r ReceiptResponse
		s.mustDo(http.MethodPatch, path, `{"type":"INCOME"}`, http.StatusOK, &r)
		assert.Equal(t, "130.00", r.Balance)
		assert.Equal(t, "INCOME", r.Transaction.Type)
	})

	t.Run("empty description rejected", func(t *testing.T) {
		rr := s.do(http.MethodPatch, path, `{"description":""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "description", decodeError(t, rr).Field)
	})

	t.Run("null date rejected", func(t *testing.T) {
		rr := s.do(http.MethodPatch, path, `{"date":null}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "date", decodeError(t, rr).Field)
	})

	t.Run("empty categories rejected", func(t *testing.T) {
		rr := s.do(http.MethodPatch, path, `{"categoryIds":[]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "categoryIds", decodeError(t, rr).Field)
	})

	t.Run("note only leaves balance", func(t *testing.T) {
		var r ReceiptResponse
		s.mustDo(http.MethodPatch, path, `{"note":"weekly shop"}`, http.StatusOK, &r)
		assert.Equal(t, "130.00", r.Balance)
		assert.Equal(t, "weekly shop", r.Transaction.Note)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		rr := s.do(http.MethodPatch, "/api/transactions/nope", `{"note":"x"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListAccountTransactions(t *testing.T) {
	s := newTestServer(t, nil)
	_, categoryID, accountID := s.seed("100.00")

	for _, amount := range []string{"1.00", "2.00", "3.00"} {
		s.mustDo(http.MethodPost, "/api/transactions", expenseBody(accountID, categoryID, amount), http.StatusCreated, nil)
	}

	var page []TransactionResponse
	s.mustDo(http.MethodGet, "/api/accounts/"+accountID+"/transactions?limit=2", nil, http.StatusOK, &page)
	assert.Len(t, page, 2)

	s.mustDo(http.MethodGet, "/api/accounts/"+accountID+"/transactions?limit=2&offset=2", nil, http.StatusOK, &page)
	assert.Len(t, page, 1)

	rr := s.do(http.MethodGet, "/api/accounts/"+accountID+"/transactions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "limit", decodeError(t, rr).Field)

	rr = s.do(http.MethodGet, "/api/accounts/missing/transactions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
