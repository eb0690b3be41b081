package http

import "net/http"

// Handlers groups the API handlers mounted by RegisterRoutes.
type Handlers struct {
	Health      *HealthHandler
	User        *UserHandler
	Account     *AccountHandler
	Transaction *TransactionHandler
	Category    *CategoryHandler
}

// RegisterRoutes mounts the API on mux. protect wraps every /api route and
// may be nil.
func RegisterRoutes(mux *http.ServeMux, h Handlers, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	mux.HandleFunc("GET /health", h.Health.HandleHealth)

	api("POST /api/users", h.User.HandleCreateUser)
	api("GET /api/users", h.User.HandleListUsers)
	api("GET /api/users/{id}", h.User.HandleGetUser)
	api("PATCH /api/users/{id}", h.User.HandleUpdateUser)
	api("POST /api/users/{id}/activate", h.User.HandleActivateUser)
	api("POST /api/users/{id}/deactivate", h.User.HandleDeactivateUser)
	api("GET /api/users/{id}/accounts", h.User.HandleListUserAccounts)

	api("POST /api/accounts", h.Account.HandleCreateAccount)
	api("GET /api/accounts/{id}", h.Account.HandleGetAccount)
	api("PATCH /api/accounts/{id}", h.Account.HandleUpdateAccount)
	api("DELETE /api/accounts/{id}", h.Account.HandleDeleteAccount)
	api("POST /api/accounts/{id}/activate", h.Account.HandleActivateAccount)
	api("POST /api/accounts/{id}/deactivate", h.Account.HandleDeactivateAccount)
	api("POST /api/accounts/{id}/adjust", h.Account.HandleAdjustBalance)
	api("GET /api/accounts/{id}/transactions", h.Account.HandleListTransactions)

	api("POST /api/transactions", h.Transaction.HandleCreateTransaction)
	api("GET /api/transactions/{id}", h.Transaction.HandleGetTransaction)
	api("PATCH /api/transactions/{id}", h.Transaction.HandleUpdateTransaction)
	api("DELETE /api/transactions/{id}", h.Transaction.HandleDeleteTransaction)

	api("POST /api/categories", h.Category.HandleCreateCategory)
	api("GET /api/categories", h.Category.HandleListCategories)
	api("GET /api/categories/{id}", h.Category.HandleGetCategory)
	api("PATCH /api/categories/{id}", h.Category.HandleUpdateCategory)
	api("DELETE /api/categories/{id}", h.Category.HandleDeleteCategory)
}
