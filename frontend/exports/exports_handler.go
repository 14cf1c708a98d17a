package exports

import (
	"log/slog"
	"net/http"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/html"
	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/infrastructure/sqlite"
)

func ExportsPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouses, err := nomenclature.Options(r.Context(), db, "warehouses")
		if err != nil {
			http.Error(w, "failed to load warehouses", http.StatusInternalServerError)
			return
		}
		orgs, err := nomenclature.Options(r.Context(), db, "organizations")
		if err != nil {
			http.Error(w, "failed to load organizations", http.StatusInternalServerError)
			return
		}
		runs, err := RecentRuns(r.Context(), db, 20)
		if err != nil {
			http.Error(w, "failed to load export history", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ExportsPage(PageData{
			Page:          html.PageFor(r, "Exports"),
			Warehouses:    nomenclature.ToDraftOptions(warehouses),
			Organizations: nomenclature.ToDraftOptions(orgs),
			Runs:          runs,
		}).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render exports page", http.StatusInternalServerError)
			return
		}
	}
}

// DocumentsCSVHandler streams document lines matching the list filters.
func DocumentsCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), 0)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=documents.csv")
		n, err := writeDocumentsCSV(r.Context(), db, w, f)
		if err != nil {
			slog.Error("documents export failed", slog.Any("err", err))
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		if err := recordExportRun(r.Context(), db, sharedcontext.OperatorID(r.Context()), TypeDocumentsCSV, n); err != nil {
			slog.Error("record export run failed", slog.String("type", TypeDocumentsCSV), slog.Any("err", err))
		}
	}
}

// PapersXLSXHandler serves the ledger rows matching the list filters as a workbook.
func PapersXLSXHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), 0)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=papers.xlsx")
		n, err := writePapersXLSX(r.Context(), db, w, f)
		if err != nil {
			slog.Error("papers export failed", slog.Any("err", err))
			http.Error(w, "failed to export xlsx", http.StatusInternalServerError)
			return
		}
		if err := recordExportRun(r.Context(), db, sharedcontext.OperatorID(r.Context()), TypePapersXLSX, n); err != nil {
			slog.Error("record export run failed", slog.String("type", TypePapersXLSX), slog.Any("err", err))
		}
	}
}
