// Package api holds the JSON plumbing shared by the REST handlers.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"

	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/cache"
)

var (
	ErrNotFound = errors.New("not found")
	ErrReadOnly = errors.New("read-only")
	ErrInvalid  = errors.New("invalid request")
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", "err", err)
	}
}

// WriteError maps err to a status code and writes an ErrorBody. Validation errors
// carry their fields.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}
	var fields drafttable.ValidationErrors
	if errors.As(err, &fields) {
		body.Error = "validation failed"
		body.Fields = fields.Fields()
	}
	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "err", err)
		body.Error = "internal error"
	}
	WriteJSON(w, status, body)
}

// StatusFor maps sentinel errors to HTTP status codes.
func StatusFor(err error) int {
	var fields drafttable.ValidationErrors
	switch {
	case errors.As(err, &fields), errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrReadOnly):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a JSON request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ETag is the quoted blake2b-256 digest of body.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// WriteCached serves a JSON read through the query cache with an ETag, answering
// 304 when the client already holds the current body.
func WriteCached(w http.ResponseWriter, r *http.Request, qc *cache.QueryCache, key string, load func(ctx context.Context) (any, error)) {
	body, err := qc.Fetch(r.Context(), key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	tag := ETag(body)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}
