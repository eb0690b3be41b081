package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCreateUser(t *testing.T) {
	s := newTestServer(t, nil)

	var u UserResponse
	s.mustDo(http.MethodPost, "/api/users", CreateUserRequest{Name: " Ana ", Email: "Ana@Example.com"}, http.StatusCreated, &u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.True(t, u.Active)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"duplicate email", CreateUserRequest{Name: "Other", Email: "ANA@example.com"}, "email"},
		{"invalid email", CreateUserRequest{Name: "Bia", Email: "not-an-email"}, "email"},
		{"missing name", CreateUserRequest{Email: "bia@example.com"}, "name"},
		{"empty body", "", "body"},
		{"malformed body", "{", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(http.MethodPost, "/api/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.field, decodeError(t, rr).Field)
		})
	}
}

func TestHandleGetUser(t *testing.T) {
	s := newTestServer(t, nil)

	var u UserResponse
	s.mustDo(http.MethodPost, "/api/users", CreateUserRequest{Name: "Ana", Email: "ana@example.com"}, http.StatusCreated, &u)

	var got UserResponse
	s.mustDo(http.MethodGet, "/api/users/"+u.ID, nil, http.StatusOK, &got)
	assert.Equal(t, u, got)

	var deactivated UserResponse
	s.mustDo(http.MethodPost, "/api/users/"+u.ID+"/deactivate", nil, http.StatusOK, &deactivated)
	assert.False(t, deactivated.Active)

	var all []UserResponse
	s.mustDo(http.MethodGet, "/api/users", nil, http.StatusOK, &all)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	rr := s.do(http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Kind)

	rr = s.do(http.MethodGet, "/api/users/missing/accounts", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleUpdateUser(t *testing.T) {
	s := newTestServer(t, nil)

	var ana, bia UserResponse
	s.mustDo(http.MethodPost, "/api/users", CreateUserRequest{Name: "Ana", Email: "ana@example.com"}, http.StatusCreated, &ana)
	s.mustDo(http.MethodPost, "/api/users", CreateUserRequest{Name: "Bia", Email: "bia@example.com"}, http.StatusCreated, &bia)

	var updated UserResponse
	s.mustDo(http.MethodPatch, "/api/users/"+ana.ID, `{"name":" Ana Maria "}`, http.StatusOK, &updated)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "ana@example.com", updated.Email)
	assert.True(t, updated.Active)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		field  string
	}{
		{"email taken", "/api/users/" + ana.ID, `{"email":"BIA@example.com"}`, http.StatusBadRequest, "email"},
		{"invalid email", "/api/users/" + ana.ID, `{"email":"nope"}`, http.StatusBadRequest, "email"},
		{"blank name", "/api/users/" + ana.ID, `{"name":""}`, http.StatusBadRequest, "name"},
		{"active is not writable", "/api/users/" + ana.ID, `{"active":false}`, http.StatusBadRequest, "body"},
		{"unknown user", "/api/users/missing", `{"name":"Other"}`, http.StatusNotFound, "id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, "body: %s", rr.Body.String())
			assert.Equal(t, tt.field, decodeError(t, rr).Field)
		})
	}
}
