// Package apiclient is a typed client for the washdesk REST API. Reads go through a
// query cache keyed by endpoint and parameters; mutations invalidate the endpoints
// they affect. Nothing is retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"washdesk/frontend/finance/papers"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/warehouse/documents"
	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/infrastructure/cache"
	"washdesk/models"
)

const (
	operatorHeader  = "X-Operator-ID"
	requestIDHeader = "X-Request-Id"
)

var (
	invalidatedByDocuments = []string{"/api/documents", "/api/stock"}
	invalidatedByPapers    = []string{"/api/manager-papers"}
)

type Client struct {
	baseURL    string
	http       *http.Client
	cache      *cache.QueryCache
	operatorID int64
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache shares a query cache between clients.
func WithCache(qc *cache.QueryCache) Option {
	return func(c *Client) { c.cache = qc }
}

// WithOperator sends the operator id with every request.
func WithOperator(id int64) Option {
	return func(c *Client) { c.operatorID = id }
}

// New returns a client for the server at baseURL. A trailing "/api" is accepted, so
// both "http://localhost:8080" and "http://localhost:8080/api" work.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewQueryCache(time.Minute)
	}
	return c
}

// Cache exposes the client's query cache.
func (c *Client) Cache() *cache.QueryCache { return c.cache }

func (c *Client) GetDocument(ctx context.Context, id int64) (documents.Detail, error) {
	var out documents.Detail
	err := c.get(ctx, fmt.Sprintf("/api/documents/%d", id), nil, &out)
	return out, err
}

// CreateDocument stores a new draft document.
func (c *Client) CreateDocument(ctx context.Context, p drafttable.DocumentPayload) (models.Document, error) {
	var out models.Document
	err := c.send(ctx, http.MethodPost, "/api/documents", p, &out, invalidatedByDocuments...)
	return out, err
}

// UpdateDocument replaces the lines of a draft document.
func (c *Client) UpdateDocument(ctx context.Context, id int64, p drafttable.DocumentPayload) (models.Document, error) {
	var out models.Document
	err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/documents/%d", id), p, &out, invalidatedByDocuments...)
	return out, err
}

// SendDocument stores and sends a document in one call. A zero id creates it.
func (c *Client) SendDocument(ctx context.Context, id int64, p drafttable.DocumentPayload) (models.Document, error) {
	var out models.Document
	method, path := http.MethodPost, "/api/documents/send"
	if id > 0 {
		method, path = http.MethodPut, fmt.Sprintf("/api/documents/%d/send", id)
	}
	err := c.send(ctx, method, path, p, &out, invalidatedByDocuments...)
	return out, err
}

func (c *Client) ListPapers(ctx context.Context, f sharedcontext.Filter) (papers.ListResult, error) {
	var out papers.ListResult
	err := c.get(ctx, "/api/manager-papers", f.Values(), &out)
	return out, err
}

// PaperSummary totals the rows matching f. Paging fields are ignored.
func (c *Client) PaperSummary(ctx context.Context, f sharedcontext.Filter) (papers.Summary, error) {
	f.Page, f.Size = 0, 0
	var out papers.Summary
	err := c.get(ctx, "/api/manager-papers/summary", f.Values(), &out)
	return out, err
}

func (c *Client) CreatePaper(ctx context.Context, in papers.CreateInput) (papers.Paper, error) {
	var out papers.Paper
	err := c.send(ctx, http.MethodPost, "/api/manager-papers", in, &out, invalidatedByPapers...)
	return out, err
}

// PatchPaper sends only the fields of p. An empty patch is not sent.
func (c *Client) PatchPaper(ctx context.Context, id int64, p drafttable.Patch) (papers.Paper, error) {
	var out papers.Paper
	if p.Empty() {
		return out, nil
	}
	err := c.send(ctx, http.MethodPatch, fmt.Sprintf("/api/manager-papers/%d", id), p, &out, invalidatedByPapers...)
	return out, err
}

func (c *Client) DeletePapers(ctx context.Context, ids []int64) (int, error) {
	var out papers.DeleteResult
	err := c.send(ctx, http.MethodDelete, "/api/manager-papers", papers.DeleteInput{IDs: ids}, &out, invalidatedByPapers...)
	return out.Deleted, err
}

// Options loads a lookup list: nomenclature, warehouses, workers or paper-types.
func (c *Client) Options(ctx context.Context, list string) ([]nomenclature.OptionItem, error) {
	var out []nomenclature.OptionItem
	err := c.get(ctx, "/api/options/"+url.PathEscape(list), nil, &out)
	return out, err
}

// Stock lists on-hand balances, of one warehouse when warehouseID is positive.
func (c *Client) Stock(ctx context.Context, warehouseID int64) ([]nomenclature.StockRow, error) {
	params := url.Values{}
	if warehouseID > 0 {
		params.Set("warehouseId", strconv.FormatInt(warehouseID, 10))
	}
	var out []nomenclature.StockRow
	err := c.get(ctx, "/api/stock", params, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	key := cache.Key(endpoint, params)
	body, err := c.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, key, nil)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in, out any, invalidate ...string) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", method, path, err)
	}
	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	c.cache.Invalidate(invalidate...)
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.operatorID > 0 {
		req.Header.Set(operatorHeader, strconv.FormatInt(c.operatorID, 10))
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, body)
	}
	return body, nil
}
