package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"washdesk/frontend/finance/papers"
	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	transport := &http.Transport{DisableKeepAlives: true}
	t.Cleanup(func() {
		transport.CloseIdleConnections()
		srv.Close()
	})
	return New(srv.URL, WithOperator(3), WithHTTPClient(&http.Client{Transport: transport, Timeout: 5 * time.Second}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestReadsAreCachedUntilAMutation(t *testing.T) {
	var lists atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/manager-papers", func(w http.ResponseWriter, r *http.Request) {
		lists.Add(1)
		assert.Equal(t, "3", r.Header.Get("X-Operator-ID"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.Equal(t, "1", r.URL.Query().Get("organizationId"))
		writeJSON(w, http.StatusOK, papers.ListResult{Items: []papers.Paper{{ID: 9, Amount: decimal.NewFromInt(40)}}, Total: 1, Page: 1, Size: 20})
	})
	mux.HandleFunc("POST /api/manager-papers", func(w http.ResponseWriter, r *http.Request) {
		var in papers.CreateInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "12.5", in.Amount.String())
		writeJSON(w, http.StatusCreated, papers.Paper{ID: 10, Amount: in.Amount})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()
	f := sharedcontext.Filter{OrganizationID: 1, Page: 1, Size: 20}

	res, err := c.ListPapers(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Items[0].ID)
	_, err = c.ListPapers(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int32(1), lists.Load())

	created, err := c.CreatePaper(ctx, papers.CreateInput{PaperTypeID: 1, OrganizationID: 1, EventDate: "2024-05-01", Amount: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)

	_, err = c.ListPapers(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lists.Load())
}

func TestFailedReadIsNotRetriedOrCached(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/options/{list}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, api.ErrorBody{Error: "internal error"})
	})
	c := newTestClient(t, mux)

	_, err := c.Options(context.Background(), "warehouses")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(1), hits.Load())

	_, err = c.Options(context.Background(), "warehouses")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Zero(t, c.Cache().Len())
}

func TestValidationErrorsCarryFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, api.ErrorBody{
			Error:  "validation failed",
			Fields: map[string]string{"2.quantity": "quantity must be greater than zero"},
		})
	})
	c := newTestClient(t, mux)

	_, err := c.CreateDocument(context.Background(), drafttable.DocumentPayload{Kind: "receipt", WarehouseID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrInvalid)

	var fields drafttable.ValidationErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "quantity must be greater than zero", fields.For(2, drafttable.KeyQuantity))
}

func TestSentDocumentIsReadOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.PathValue("id"))
		writeJSON(w, http.StatusConflict, api.ErrorBody{Error: "document 4: read-only"})
	})
	c := newTestClient(t, mux)

	_, err := c.UpdateDocument(context.Background(), 4, drafttable.DocumentPayload{Kind: "receipt", WarehouseID: 1})
	assert.ErrorIs(t, err, api.ErrReadOnly)
}

func TestPatchPaperSendsOnlyChangedFields(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/manager-papers/{id}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":75,"locationId":null}`, string(body))
		writeJSON(w, http.StatusOK, papers.Paper{ID: 7})
	})
	c := newTestClient(t, mux)

	_, err := c.PatchPaper(context.Background(), 7, drafttable.Patch{})
	require.NoError(t, err)
	assert.Zero(t, calls.Load())

	p, err := c.PatchPaper(context.Background(), 7, drafttable.Patch{
		"amount":     drafttable.Number(75),
		"locationId": drafttable.Select(0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCanceledContextAbortsTheCall(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	c := newTestClient(t, mux)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetDocument(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
