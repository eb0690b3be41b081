package http

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/transaction"
	"saldo/internal/shared/optional"
)

type TransactionHandler struct {
	engine *transaction.Engine
	logger zerolog.Logger
}

func NewTransactionHandler(engine *transaction.Engine, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{engine: engine, logger: logger}
}

// CreateTransactionRequest takes amounts as decimal strings or numbers and
// the date as YYYY-MM-DD or RFC 3339.
type CreateTransactionRequest struct {
	AccountID   string           `json:"accountId"`
	Type        transaction.Type `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	CategoryIDs []string         `json:"categoryIds"`
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Note        string           `json:"note"`
}

type UpdateTransactionRequest struct {
	Type        optional.Value[transaction.Type] `json:"type"`
	Amount      optional.Value[decimal.Decimal]  `json:"amount"`
	CategoryIDs optional.Value[[]string]         `json:"categoryIds"`
	Date        optional.Value[string]           `json:"date"`
	Description optional.Value[string]           `json:"description"`
	Note        optional.Value[string]           `json:"note"`
}

type TransactionResponse struct {
	ID          string   `json:"id"`
	AccountID   string   `json:"accountId"`
	Type        string   `json:"type"`
	Amount      string   `json:"amount"`
	CategoryIDs []string `json:"categoryIds"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Note        string   `json:"note,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// ReceiptResponse pairs a transaction with the account balance after the
// mutation committed.
type ReceiptResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	AccountID   string              `json:"accountId"`
	Balance     string              `json:"balance"`
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var occurredAt time.Time
	if req.Date != "" {
		var err error
		if occurredAt, err = parseDate("date", req.Date); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	receipt, err := h.engine.CreateTransaction(r.Context(), transaction.CreateParams{
		AccountID:   req.AccountID,
		Type:        req.Type,
		Amount:      req.Amount,
		CategoryIDs: req.CategoryIDs,
		OccurredAt:  occurredAt,
		Description: req.Description,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(receipt))
}

func (h *TransactionHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	txn, err := h.engine.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn))
}

// HandleUpdateTransaction applies the fields present in the body.
func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req UpdateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	params := transaction.UpdateParams{
		Type:        req.Type,
		Amount:      req.Amount,
		CategoryIDs: req.CategoryIDs,
		Description: req.Description,
		Note:        req.Note,
	}
	if s, ok := req.Date.Get(); ok {
		var at time.Time
		if s != "" {
			if at, err = parseDate("date", s); err != nil {
				writeError(w, r, h.logger, err)
				return
			}
		}
		params.OccurredAt = optional.Of(at)
	}

	receipt, err := h.engine.UpdateTransaction(r.Context(), id, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

// HandleDeleteTransaction removes the transaction and reverses its effect
// on the account balance.
func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	receipt, err := h.engine.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptResponse(receipt))
}

func toTransactionResponse(t *transaction.Transaction) TransactionResponse {
	categories := t.CategoryIDs
	if categories == nil {
		categories = []string{}
	}
	return TransactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Type:        string(t.Type),
		Amount:      money(t.Amount),
		CategoryIDs: categories,
		Date:        formatTime(t.OccurredAt),
		Description: t.Description,
		Note:        t.Note,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func toReceiptResponse(r *transaction.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Transaction: toTransactionResponse(r.Transaction),
		AccountID:   r.AccountID,
		Balance:     money(r.Balance),
	}
}
