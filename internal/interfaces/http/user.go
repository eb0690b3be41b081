package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"saldo/internal/domain/account"
	"saldo/internal/domain/user"
	"saldo/internal/shared/optional"
)

type UserHandler struct {
	userService    *user.Service
	accountService *account.Service
	logger         zerolog.Logger
}

func NewUserHandler(userService *user.Service, accountService *account.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, accountService: accountService, logger: logger}
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserRequest only touches the fields present in the body.
type UpdateUserRequest struct {
	Name  optional.Value[string] `json:"name"`
	Email optional.Value[string] `json:"email"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// HandleCreateUser registers a user. Credentials are managed elsewhere.
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.userService.CreateUser(r.Context(), user.CreateUserParams{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.userService.UpdateUser(r.Context(), id, user.UpdateUserParams{Name: req.Name, Email: req.Email})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) HandleActivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// HandleDeactivateUser blocks new accounts for the user. Existing accounts
// keep their state.
func (h *UserHandler) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *UserHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.userService.SetActive(r.Context(), id, active)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleListUserAccounts returns the user's accounts, oldest first.
func (h *UserHandler) HandleListUserAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	accounts, err := h.accountService.ListAccountsByUserID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, toAccountResponse(acc))
	}
	writeJSON(w, http.StatusOK, response)
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Active:    u.Active,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}
