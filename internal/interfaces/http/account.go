package http

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/domain/transaction"
	"saldo/internal/shared/optional"
)

type AccountHandler struct {
	accountService *account.Service
	engine         *transaction.Engine
	logger         zerolog.Logger
}

func NewAccountHandler(accountService *account.Service, engine *transaction.Engine, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{accountService: accountService, engine: engine, logger: logger}
}

// HTTP request/response types (transport layer concerns)
type CreateAccountRequest struct {
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Type           account.Type    `json:"type"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// UpdateAccountRequest only touches the fields present in the body.
type UpdateAccountRequest struct {
	Name     optional.Value[string]       `json:"name"`
	Type     optional.Value[account.Type] `json:"type"`
	Currency optional.Value[string]       `json:"currency"`
}

type AdjustBalanceRequest struct {
	Amount    decimal.Decimal   `json:"amount"`
	Direction account.Direction `json:"direction"`
}

// AccountResponse renders money as fixed two-decimal strings.
type AccountResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	Balance        string `json:"balance"`
	InitialBalance string `json:"initialBalance"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.CreateAccount(r.Context(), account.CreateParams{
		UserID:         req.UserID,
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
		Currency:       req.Currency,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.UpdateAccount(r.Context(), id, account.UpdateParams{
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// HandleDeleteAccount deletes an account that has no transactions.
func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.accountService.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) HandleActivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.Activate(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *AccountHandler) HandleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// HandleAdjustBalance moves the balance without recording a transaction.
func (h *AccountHandler) HandleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req AdjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	acc, err := h.accountService.AdjustBalance(r.Context(), id, req.Amount, req.Direction)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// HandleListTransactions returns a page of the account's transactions,
// newest first.
func (h *AccountHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	txns, err := h.engine.ListByAccount(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		response = append(response, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, response)
}

func toAccountResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:             acc.ID,
		UserID:         acc.UserID,
		Name:           acc.Name,
		Type:           string(acc.Type),
		Currency:       acc.Currency,
		Balance:        money(acc.Balance),
		InitialBalance: money(acc.InitialBalance),
		Active:         acc.Active,
		CreatedAt:      formatTime(acc.CreatedAt),
		UpdatedAt:      formatTime(acc.UpdatedAt),
	}
}
