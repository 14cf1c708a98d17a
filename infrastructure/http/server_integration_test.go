package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	qc     *cache.QueryCache
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "server-integration.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		for _, q := range []string{
			`INSERT INTO organizations (id, name) VALUES (1, 'North Wash')`,
			`INSERT INTO locations (id, organization_id, name) VALUES (1, 1, 'Harbor')`,
			`INSERT INTO warehouses (id, name) VALUES (1, 'Main'), (2, 'Bay 2')`,
			`INSERT INTO workers (id, name) VALUES (1, 'Ivy')`,
			`INSERT INTO nomenclature (id, sku, name, unit) VALUES (1, 'FOAM', 'Active foam', 'l')`,
		} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	qc := cache.NewQueryCache(time.Minute)
	s := NewServer("127.0.0.1:0", db, qc, cache.NewColumnPrefsCache(), audit.NewService(), DeskOptions{DefaultOperatorID: 1, PageSize: 20})
	ts := httptest.NewServer(s.Handler())
	env := &integrationEnv{server: ts, db: db, qc: qc}
	t.Cleanup(func() {
		env.server.Close()
		_ = env.db.Close()
	})

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, baseURL, path string, data url.Values) *http.Response {
	t.Helper()
	if data == nil {
		data = url.Values{}
	}
	if token := csrfToken(t, client, baseURL); token != "" {
		data.Set(csrfFormField, token)
	}
	resp, err := client.PostForm(baseURL+path, data)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func postMultipartFile(t *testing.T, client *http.Client, baseURL, path, fieldName, fileName string, fileContents []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if token := csrfToken(t, client, baseURL); token != "" {
		if err := writer.WriteField(csrfFormField, token); err != nil {
			t.Fatalf("write csrf multipart field: %v", err)
		}
	}

	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("create multipart file field: %v", err)
	}
	if _, err := part.Write(fileContents); err != nil {
		t.Fatalf("write multipart file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, &body)
	if err != nil {
		t.Fatalf("build multipart request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST multipart %s failed: %v", path, err)
	}
	return resp
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func doJSON(t *testing.T, client *http.Client, method, target string, body any, header http.Header) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, target, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		req.Header[k] = vs
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

func TestHealthAndAssets(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/health")
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
	resp = get(t, client, env.server.URL, "/assets/app.css")
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected the stylesheet, got %d", resp.StatusCode)
	}
	resp = get(t, client, env.server.URL, "/")
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/desk/documents" {
		t.Fatalf("unexpected root redirect %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCSRFPostWithoutTokenRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	// No GET first: no CSRF token available in cookie or form.
	resp, err := client.PostForm(env.server.URL+"/desk/papers", url.Values{"amount": {"1"}})
	if err != nil {
		t.Fatalf("post ledger row: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for missing csrf, got %d", resp.StatusCode)
	}
}

func TestCSRFPostWithTokenAccepted(t *testing.T) {
	env, client := setupIntegrationServer(t)
	_ = readBody(t, get(t, client, env.server.URL, "/desk/papers"))

	resp := postForm(t, client, env.server.URL, "/desk/papers", url.Values{
		"organizationId": {"1"},
		"paperTypeId":    {"1"},
		"eventDate":      {"2024-05-01"},
		"amount":         {"250"},
	})
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "status=Row+added") {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCSRFPostWithoutToken_SameOriginRefererAccepted(t *testing.T) {
	env, client := setupIntegrationServer(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/desk/papers/rows", strings.NewReader("action=cancel"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", env.server.URL+"/desk/papers")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post without csrf token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected same-origin csrf fallback 303, got %d", resp.StatusCode)
	}
}

func TestCSRFPostWithoutToken_CrossOriginRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/desk/papers/rows", strings.NewReader("action=cancel"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Referer", "https://evil.example/attack")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post cross-origin request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-origin missing csrf token, got %d", resp.StatusCode)
	}
}

func TestAPIUsesOperatorHeader(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := doJSON(t, client, http.MethodPost, env.server.URL+"/api/manager-papers", map[string]any{
		"paperTypeId": 1, "organizationId": 1, "locationId": 1, "eventDate": "2024-05-01", "amount": "99.5",
	}, http.Header{OperatorHeader: {"7"}})
	if body := readBody(t, resp); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	var operatorID int64
	err := env.db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT operator_id FROM audit_logs WHERE action = 'paper.create'`).Scan(ctx, &operatorID)
	})
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if operatorID != 7 {
		t.Fatalf("expected operator 7 in the audit log, got %d", operatorID)
	}

	resp = doJSON(t, client, http.MethodGet, env.server.URL+"/api/manager-papers", nil, http.Header{OperatorHeader: {"abc"}})
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad operator id, got %d", resp.StatusCode)
	}
}

func TestNomenclatureImportInvalidatesOptions(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/api/options/nomenclature")
	if body := readBody(t, resp); !strings.Contains(body, "FOAM") || strings.Contains(body, "WAX") {
		t.Fatalf("unexpected options %s", body)
	}
	if env.qc.Len() != 1 {
		t.Fatalf("expected the options response cached")
	}

	_ = readBody(t, get(t, client, env.server.URL, "/desk/nomenclature"))
	resp = postMultipartFile(t, client, env.server.URL, "/desk/nomenclature/import", "file", "catalog.csv", []byte("sku,name,unit\nWAX,Hot wax,l\n"))
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "1+inserted") {
		t.Fatalf("unexpected import response %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = get(t, client, env.server.URL, "/api/options/nomenclature")
	if body := readBody(t, resp); !strings.Contains(body, "WAX") {
		t.Fatalf("expected the imported product after invalidation, got %s", body)
	}
}

func TestServerEndToEndDocumentFlow(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/desk/documents/new?kind=receipt&warehouseId=1")
	page := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, `name="row[1].nomenclatureId"`) {
		t.Fatalf("expected a draft with one template row, got %d", resp.StatusCode)
	}

	store := drafttable.NewDocumentStore("receipt", []drafttable.Option{{Label: "FOAM - Active foam", Value: 1}}, nil)
	store.SeedTemplate()
	snap, err := drafttable.EncodeSnapshot(store)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	resp = postForm(t, client, env.server.URL, "/desk/documents/draft", url.Values{
		drafttable.SnapshotField: {snap},
		"kind":                   {"receipt"},
		"prevWarehouseId":        {"1"},
		drafttable.KeyWarehouse:  {"1"},
		"carryingAt":             {"2024-02-03"},
		drafttable.InputName(1, drafttable.KeyNomenclature): {"1"},
		drafttable.InputName(1, drafttable.KeyQuantity):     {"12"},
		drafttable.SelectedName(1):                          {"on"},
		"action":                                            {"send"},
	})
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 after send, got %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.Contains(location, "status=Document+sent") {
		t.Fatalf("unexpected redirect %q", location)
	}
	var docID int64
	if _, err := fmt.Sscanf(location, "/desk/documents/%d", &docID); err != nil {
		t.Fatalf("parse document id from %q: %v", location, err)
	}

	resp = get(t, client, env.server.URL, fmt.Sprintf("/api/documents/%d", docID))
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"quantity":12`) {
		t.Fatalf("unexpected document %d %s", resp.StatusCode, body)
	}

	resp = get(t, client, env.server.URL, "/api/stock?warehouseId=1")
	if body := readBody(t, resp); !strings.Contains(body, `"quantity":12`) {
		t.Fatalf("expected received stock, got %s", body)
	}

	resp = doJSON(t, client, http.MethodPut, fmt.Sprintf("%s/api/documents/%d", env.server.URL, docID), map[string]any{
		"kind": "receipt", "warehouseId": 1, "responsibleId": 0, "carryingAt": "2024-02-03",
		"details": []map[string]any{{"nomenclatureId": 1, "quantity": 1, "comment": ""}},
	}, nil)
	_ = readBody(t, resp)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a sent document, got %d", resp.StatusCode)
	}

	resp = get(t, client, env.server.URL, "/desk/exports/documents.csv")
	if body := readBody(t, resp); !strings.Contains(body, "FOAM") {
		t.Fatalf("expected the document line in the export, got %s", body)
	}
	resp = get(t, client, env.server.URL, "/desk/exports")
	if body := readBody(t, resp); !strings.Contains(body, "documents_csv") {
		t.Fatalf("expected the export run listed")
	}
}
