package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/accounts", "/api/accounts"},
		{"/api/accounts/3f2a", "/api/accounts/{id}"},
		{"/api/accounts/3f2a/transactions", "/api/accounts/{id}/transactions"},
		{"/api/users/u-1/activate", "/api/users/{id}/activate"},
		{"/health", "/health"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, routeLabel(tt.path))
		})
	}
}

func TestTracing_PassesStatusThrough(t *testing.T) {
	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/a-1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}
