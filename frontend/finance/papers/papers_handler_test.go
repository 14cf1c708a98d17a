package papers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

func papersRouter(db *sqlite.DB, qc *cache.QueryCache) http.Handler {
	pc := cache.NewColumnPrefsCache()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := sharedcontext.NewContextWithOperator(r.Context(), sharedcontext.Operator{ID: 1, Name: "Desk"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Get("/api/manager-papers", ListPapersAPIHandler(db, qc, 20))
	r.Post("/api/manager-papers", CreatePaperAPIHandler(db, nil, qc))
	r.Delete("/api/manager-papers", DeletePapersAPIHandler(db, nil, qc))
	r.Get("/api/manager-papers/summary", SummaryAPIHandler(db, qc))
	r.Patch("/api/manager-papers/{id}", PatchPaperAPIHandler(db, nil, qc))
	r.Get("/desk/papers", LedgerPageQueryHandler(db, pc, 20))
	r.Post("/desk/papers", CreatePaperCommandHandler(db, nil, qc))
	r.Post("/desk/papers/rows", LedgerRowsCommandHandler(db, nil, qc, pc, 20))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPatchAPISendsOnlyChangedFieldsAndInvalidates(t *testing.T) {
	db := openPapersTestDB(t)
	qc := cache.NewQueryCache(time.Minute)
	router := papersRouter(db, qc)
	p := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(100)})

	if rr := doJSON(t, router, http.MethodGet, "/api/manager-papers/summary", nil); rr.Code != http.StatusOK {
		t.Fatalf("summary: %d", rr.Code)
	}
	if qc.Len() != 1 {
		t.Fatalf("expected the summary to be cached")
	}

	rr := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/manager-papers/%d", p.ID), map[string]any{"amount": 250})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rr.Code, rr.Body.String())
	}
	if qc.Len() != 0 {
		t.Fatalf("expected summary entries dropped after a patch")
	}

	var summary Summary
	rr = doJSON(t, router, http.MethodGet, "/api/manager-papers/summary", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !summary.Receipts.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected fresh totals, got %+v", summary)
	}
}

func TestPatchAPIValidationFields(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))
	p := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(100)})

	rr := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/manager-papers/%d", p.ID), map[string]any{"eventDate": nil})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Fields[drafttable.FieldKey(p.ID, KeyEventDate)] == "" {
		t.Fatalf("expected an eventDate field error, got %v", body.Fields)
	}

	if rr := doJSON(t, router, http.MethodPatch, "/api/manager-papers/999", map[string]any{"comment": "x"}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateAndDeleteAPI(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))

	rr := doJSON(t, router, http.MethodPost, "/api/manager-papers", map[string]any{
		"paperTypeId": typeRent, "organizationId": orgNorth, "eventDate": "2024-05-01", "amount": "99.90",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	var p Paper
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, router, http.MethodDelete, "/api/manager-papers", DeleteInput{IDs: []int64{p.ID}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"deleted":1`) {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}
}

func TestLedgerPageEditMode(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))
	a := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(100)})
	b := mustCreate(t, db, CreateInput{PaperTypeID: typeRent, OrganizationID: orgNorth, EventDate: "2024-05-02", Amount: decimal.NewFromInt(40)})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/desk/papers?edit=%d", a.ID), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	page := rr.Body.String()
	if !strings.Contains(page, fmt.Sprintf(`name="row[%d].amount"`, a.ID)) {
		t.Fatalf("expected inputs for the edited row")
	}
	if strings.Contains(page, fmt.Sprintf(`name="row[%d].amount"`, b.ID)) {
		t.Fatalf("only one row may be in edit mode")
	}
	if !strings.Contains(page, "60.00") {
		t.Fatalf("expected the balance in the summary")
	}
}

func TestLedgerSaveRowPatchesChangedField(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))
	p := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, LocationID: harbor(), EventDate: "2024-05-01", Amount: decimal.NewFromInt(100), Comment: "morning"})

	form := url.Values{
		"action":  {"save"},
		"editing": {fmt.Sprint(p.ID)},
		"q":       {"organizationId=1"},
	}
	row := p.Row()
	for _, key := range LedgerColumns(Lookups{}).Keys() {
		form.Set(drafttable.InputName(p.ID, key), row.Get(key).Raw())
	}
	form.Set(drafttable.InputName(p.ID, KeyComment), "evening")

	rr := postForm(router, "/desk/papers/rows", form)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "organizationId=1") || !strings.Contains(loc, "status=Row+saved") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	got, err := LoadPaper(context.Background(), db, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Comment != "evening" || got.LocationID == nil || !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected row after save: %+v", got)
	}
}

func TestLedgerSaveRowRendersFieldErrors(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))
	p := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(100)})

	rr := postForm(router, "/desk/papers/rows", url.Values{
		"action":                              {"save"},
		"editing":                             {fmt.Sprint(p.ID)},
		drafttable.InputName(p.ID, KeyAmount): {"-5"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "amount must be greater than zero") {
		t.Fatalf("expected the backend field error inline")
	}
	if !strings.Contains(rr.Body.String(), `value="-5"`) {
		t.Fatalf("expected the edited value kept")
	}
}

func TestLedgerDeleteSelected(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))
	a := mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(1)})
	mustCreate(t, db, CreateInput{PaperTypeID: typeCash, OrganizationID: orgNorth, EventDate: "2024-05-01", Amount: decimal.NewFromInt(2)})

	rr := postForm(router, "/desk/papers/rows", url.Values{
		"action":                      {"delete"},
		drafttable.SelectedName(a.ID): {"on"},
	})
	if rr.Code != http.StatusSeeOther || !strings.Contains(rr.Header().Get("Location"), "Deleted+1+rows") {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get("Location"))
	}
	result, _ := ListPapers(context.Background(), db, sharedcontext.Filter{Page: 1, Size: 10})
	if result.Total != 1 {
		t.Fatalf("expected one row left, got %d", result.Total)
	}
}

func TestCreateCommandRedirectsWithError(t *testing.T) {
	db := openPapersTestDB(t)
	router := papersRouter(db, cache.NewQueryCache(time.Minute))

	rr := postForm(router, "/desk/papers", url.Values{"organizationId": {"1"}, KeyPaperType: {"1"}, KeyEventDate: {"2024-05-01"}, KeyAmount: {"0"}})
	if rr.Code != http.StatusSeeOther || !strings.Contains(rr.Header().Get("Location"), "error=") {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = postForm(router, "/desk/papers", url.Values{"organizationId": {"1"}, KeyPaperType: {"1"}, KeyEventDate: {"2024-05-01"}, KeyAmount: {"12,5"}})
	if !strings.Contains(rr.Header().Get("Location"), "status=Row+added") {
		t.Fatalf("unexpected redirect %q", rr.Header().Get("Location"))
	}
}
