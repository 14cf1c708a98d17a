package documents

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

// Cache prefixes dropped after any document mutation. Sending also moves stock.
var invalidatedByDocuments = []string{"/api/documents", "/api/stock"}

func documentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid document id", api.ErrInvalid)
	}
	return id, nil
}

// GetDocumentAPIHandler serves GET /api/documents/{id}.
func GetDocumentAPIHandler(db *sqlite.DB, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := documentID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		key := cache.Key("/api/documents/"+strconv.FormatInt(id, 10), nil)
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			return LoadDocument(ctx, db, id)
		})
	}
}

// ListDocumentsAPIHandler serves GET /api/documents with list filters.
func ListDocumentsAPIHandler(db *sqlite.DB, qc *cache.QueryCache, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), pageSize)
		key := cache.Key("/api/documents", f.Values())
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			return ListDocuments(ctx, db, f)
		})
	}
}

// SaveDocumentAPIHandler serves POST /api/documents, PUT /api/documents/{id} and
// their /send variants. withID reads the id from the path; send applies stock.
func SaveDocumentAPIHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache, withID, send bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var id int64
		if withID {
			var err error
			if id, err = documentID(r); err != nil {
				api.WriteError(w, err)
				return
			}
		}
		var payload drafttable.DocumentPayload
		if err := api.DecodeJSON(r, &payload); err != nil {
			api.WriteError(w, err)
			return
		}

		doc, err := SaveDocument(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), id, payload, send)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		qc.Invalidate(invalidatedByDocuments...)

		status := http.StatusOK
		if id == 0 {
			status = http.StatusCreated
		}
		api.WriteJSON(w, status, doc)
	}
}
