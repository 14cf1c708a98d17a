package settings

import (
	"net/http"
	"net/url"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/html"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

const columnsPath = "/desk/settings/columns"

func ColumnsPageQueryHandler(db *sqlite.DB, pc *cache.ColumnPrefsCache, tables []Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := ColumnsPageData{
			Page:    html.PageFor(r, "Columns"),
			Tables:  tables,
			Visible: make(map[string]func(string) bool, len(tables)),
		}
		for _, t := range tables {
			visible, err := Visibility(r.Context(), db, pc, t.Key)
			if err != nil {
				http.Error(w, "failed to load column settings", http.StatusInternalServerError)
				return
			}
			data.Visible[t.Key] = visible
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ColumnsPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render settings page", http.StatusInternalServerError)
			return
		}
	}
}

// ColumnsCommandHandler stores the checked columns of one table. Unchecked columns
// are stored as hidden.
func ColumnsCommandHandler(db *sqlite.DB, auditSvc *audit.Service, pc *cache.ColumnPrefsCache, tables []Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, columnsPath+"?error="+url.QueryEscape("Invalid form"), http.StatusSeeOther)
			return
		}
		key := r.FormValue("table")
		var table *Table
		for i := range tables {
			if tables[i].Key == key {
				table = &tables[i]
				break
			}
		}
		if table == nil {
			http.Redirect(w, r, columnsPath+"?error="+url.QueryEscape("Unknown table"), http.StatusSeeOther)
			return
		}

		checked := make(map[string]bool)
		for _, k := range r.Form["visible"] {
			checked[k] = true
		}
		visible := make(map[string]bool, len(table.Columns))
		for _, c := range table.Columns {
			visible[c.Key] = checked[c.Key]
		}

		if err := SaveColumnVisibility(r.Context(), db, auditSvc, pc, sharedcontext.OperatorID(r.Context()), table.Key, visible); err != nil {
			http.Redirect(w, r, columnsPath+"?error="+url.QueryEscape("Save failed"), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, columnsPath+"?status="+url.QueryEscape("Saved "+table.Label), http.StatusSeeOther)
	}
}
