package papers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

// invalidatedByPapers also covers /api/manager-papers/summary.
var invalidatedByPapers = []string{"/api/manager-papers"}

func paperID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid paper id", api.ErrInvalid)
	}
	return id, nil
}

// ListPapersAPIHandler serves GET /api/manager-papers.
func ListPapersAPIHandler(db *sqlite.DB, qc *cache.QueryCache, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), pageSize)
		key := cache.Key("/api/manager-papers", f.Values())
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			return ListPapers(ctx, db, f)
		})
	}
}

// SummaryAPIHandler serves GET /api/manager-papers/summary. Paging parameters are
// ignored.
func SummaryAPIHandler(db *sqlite.DB, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), 0)
		f.Page, f.Size = 0, 0
		key := cache.Key("/api/manager-papers/summary", f.Values())
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			return Summarize(ctx, db, f)
		})
	}
}

// CreatePaperAPIHandler serves POST /api/manager-papers.
func CreatePaperAPIHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CreateInput
		if err := api.DecodeJSON(r, &in); err != nil {
			api.WriteError(w, err)
			return
		}
		p, err := CreatePaper(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), in)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		qc.Invalidate(invalidatedByPapers...)
		api.WriteJSON(w, http.StatusCreated, p)
	}
}

// PatchPaperAPIHandler serves PATCH /api/manager-papers/{id}. The body holds only
// the changed fields.
func PatchPaperAPIHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := paperID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		var fields map[string]json.RawMessage
		if err := api.DecodeJSON(r, &fields); err != nil {
			api.WriteError(w, err)
			return
		}
		if len(fields) == 0 {
			api.WriteError(w, fmt.Errorf("%w: empty patch", api.ErrInvalid))
			return
		}
		p, err := PatchPaper(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), id, fields)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		qc.Invalidate(invalidatedByPapers...)
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// DeletePapersAPIHandler serves DELETE /api/manager-papers with {"ids": [...]}.
func DeletePapersAPIHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in DeleteInput
		if err := api.DecodeJSON(r, &in); err != nil {
			api.WriteError(w, err)
			return
		}
		n, err := DeletePapers(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), in.IDs)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		qc.Invalidate(invalidatedByPapers...)
		api.WriteJSON(w, http.StatusOK, DeleteResult{Deleted: n})
	}
}
