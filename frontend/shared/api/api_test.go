package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/cache"
)

func TestWriteErrorStatusCodes(t *testing.T) {
	var fields drafttable.ValidationErrors
	fields.Add(2, "quantity", "quantity must be greater than zero")

	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("update: %w", ErrReadOnly), http.StatusConflict},
		{fields, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	WriteError(rec, fields)
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["2.quantity"] == "" {
		t.Fatalf("expected field error, got %+v", body)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ids":[1],"extra":true}`))
	var v struct {
		IDs []int64 `json:"ids"`
	}
	if err := DecodeJSON(req, &v); StatusFor(err) != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestWriteCachedUsesETag(t *testing.T) {
	qc := cache.NewQueryCache(0)
	loads := 0
	load := func(context.Context) (any, error) {
		loads++
		return map[string]int{"total": 3}, nil
	}

	rec := httptest.NewRecorder()
	WriteCached(rec, httptest.NewRequest(http.MethodGet, "/api/stock", nil), qc, "/api/stock", load)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	tag := rec.Header().Get("ETag")
	if tag == "" {
		t.Fatalf("expected etag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stock", nil)
	req.Header.Set("If-None-Match", tag)
	rec = httptest.NewRecorder()
	WriteCached(rec, req, qc, "/api/stock", load)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}
}
