package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/shared/apperr"
	"saldo/internal/shared/logging"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

const dateOnly = "2006-01-02"

// ErrorBody is the JSON error envelope returned by every handler.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an apperr kind to its status code. Internal errors are
// logged and their cause is not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	message := "internal error"

	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case apperr.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	default:
		logging.FromContext(r.Context(), logger).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Kind:    kind.String(),
		Field:   apperr.FieldOf(err),
		Message: message,
	}})
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalidf("body", "request body is required")
		}
		return apperr.Invalidf("body", "invalid request body: %v", err)
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC
// midnight).
func parseDate(field, s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Invalidf(field, "invalid date %q (use YYYY-MM-DD or RFC 3339)", s)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// pagination reads limit and offset query parameters. Missing values are
// zero and left for the service to default.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, apperr.Invalidf("limit", "limit must be a non-negative integer")
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, apperr.Invalidf("offset", "offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func requirePathID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if id == "" {
		return "", apperr.Invalidf("id", "id is required")
	}
	return id, nil
}
