package nomenclature

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

const importPath = "/desk/nomenclature"

// Cache prefixes touched by catalog changes.
var invalidatedByImport = []string{"/api/options/nomenclature", "/api/stock"}

func NomenclaturePageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := ListNomenclature(r.Context(), db)
		if err != nil {
			http.Error(w, "failed to load nomenclature", http.StatusInternalServerError)
			return
		}
		page := html.PageFor(r, "Nomenclature")
		if page.Message == "" {
			page.Message = "Upload CSV with header: sku,name,unit"
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := NomenclaturePage(PageData{Page: page, Records: rows}).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render nomenclature page", http.StatusInternalServerError)
			return
		}
	}
}

func NomenclatureImportCommandHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape("Invalid upload"), http.StatusSeeOther)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape("File is required"), http.StatusSeeOther)
			return
		}
		defer file.Close()

		summary, err := ImportCSV(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), file)
		if err != nil {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		qc.Invalidate(invalidatedByImport...)

		status := fmt.Sprintf("Imported: %d inserted, %d updated, %d errors", summary.Inserted, summary.Updated, summary.Errors)
		http.Redirect(w, r, importPath+"?status="+url.QueryEscape(status), http.StatusSeeOther)
	}
}

func NomenclatureDeleteCommandHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape("Invalid delete form"), http.StatusSeeOther)
			return
		}
		ids := drafttable.ParseRowIDs(r.Form["item_id"])
		if len(ids) == 0 {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape("Select at least one product"), http.StatusSeeOther)
			return
		}

		deleted, failed, err := DeleteNomenclature(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), ids)
		if err != nil {
			http.Redirect(w, r, importPath+"?error="+url.QueryEscape("Failed to delete products"), http.StatusSeeOther)
			return
		}
		if deleted > 0 {
			qc.Invalidate(invalidatedByImport...)
		}

		status := fmt.Sprintf("Deleted %d products", deleted)
		if deleted == 0 && failed > 0 {
			status = "No products deleted (in use or missing)"
		} else if failed > 0 {
			status = fmt.Sprintf("Deleted %d products, %d could not be deleted", deleted, failed)
		}
		http.Redirect(w, r, importPath+"?status="+url.QueryEscape(status), http.StatusSeeOther)
	}
}

func StockPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouseID, _ := strconv.ParseInt(r.URL.Query().Get("warehouseId"), 10, 64)
		warehouses, err := Options(r.Context(), db, "warehouses")
		if err != nil {
			http.Error(w, "failed to load warehouses", http.StatusInternalServerError)
			return
		}
		rows, err := ListStock(r.Context(), db, warehouseID)
		if err != nil {
			http.Error(w, "failed to load stock", http.StatusInternalServerError)
			return
		}

		data := StockPageData{
			Page:        html.PageFor(r, "Stock"),
			WarehouseID: warehouseID,
			Warehouses:  warehouses,
			Rows:        rows,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := StockPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render stock page", http.StatusInternalServerError)
			return
		}
	}
}

// OptionsAPIHandler serves GET /api/options/{list}.
func OptionsAPIHandler(db *sqlite.DB, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := chi.URLParam(r, "list")
		key := cache.Key("/api/options/"+list, nil)
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			items, err := Options(ctx, db, list)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", api.ErrNotFound, err)
			}
			return items, nil
		})
	}
}

// StockAPIHandler serves GET /api/stock?warehouseId=.
func StockAPIHandler(db *sqlite.DB, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("warehouseId")
		warehouseID, err := strconv.ParseInt(raw, 10, 64)
		if raw != "" && (err != nil || warehouseID < 0) {
			api.WriteError(w, fmt.Errorf("%w: warehouseId must be a positive integer", api.ErrInvalid))
			return
		}
		key := cache.Key("/api/stock", url.Values{"warehouseId": {raw}})
		api.WriteCached(w, r, qc, key, func(ctx context.Context) (any, error) {
			return ListStock(ctx, db, warehouseID)
		})
	}
}
