package papers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"washdesk/frontend/settings"
	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
)

const (
	ledgerPath = "/desk/papers"
	tableKey   = "papers"
)

// Tables lists the configurable ledger table.
func Tables() []settings.Table {
	return []settings.Table{{Key: tableKey, Label: "Finance ledger", Columns: LedgerColumns(Lookups{})}}
}

// LedgerPageQueryHandler shows the ledger with its totals. ?edit={id} puts one row
// into edit mode.
func LedgerPageQueryHandler(db *sqlite.DB, pc *cache.ColumnPrefsCache, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), pageSize)
		data, err := loadLedgerPage(r, db, pc, f)
		if err != nil {
			http.Error(w, "failed to load ledger", http.StatusInternalServerError)
			return
		}
		if id, _ := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64); id > 0 {
			if err := data.Session.Edit(id); err != nil {
				data.Page.Error = "That row is not on this page"
			}
		}
		renderLedger(w, r, data, http.StatusOK)
	}
}

// LedgerRowsCommandHandler handles the ledger table form: saving or cancelling the
// row in edit mode and deleting the checked rows.
func LedgerRowsCommandHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache, pc *cache.ColumnPrefsCache, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectLedger(w, r, "", "error", "Invalid ledger form")
			return
		}
		query := r.PostForm.Get("q")
		q, _ := url.ParseQuery(query)
		f := sharedcontext.ParseFilter(q, pageSize)

		switch r.PostForm.Get("action") {
		case "cancel":
			redirectLedger(w, r, query, "", "")
		case "delete":
			ids := make([]int64, 0)
			for key := range r.PostForm {
				if id, ok := selectedRowID(key); ok {
					ids = append(ids, id)
				}
			}
			n, err := DeletePapers(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), ids)
			if err != nil {
				redirectLedger(w, r, query, "error", deleteMessage(err))
				return
			}
			qc.Invalidate(invalidatedByPapers...)
			redirectLedger(w, r, query, "status", "Deleted "+strconv.Itoa(n)+" rows")
		case "save":
			id, _ := strconv.ParseInt(r.PostForm.Get("editing"), 10, 64)
			data, err := loadLedgerPage(r, db, pc, f)
			if err != nil {
				http.Error(w, "failed to load ledger", http.StatusInternalServerError)
				return
			}
			if err := data.Session.Edit(id); err != nil {
				redirectLedger(w, r, query, "error", "The edited row is gone, reload the page")
				return
			}
			var errs drafttable.ValidationErrors
			for _, col := range data.Session.Store().Columns() {
				name := drafttable.InputName(id, col.Key)
				if !r.PostForm.Has(name) {
					continue
				}
				if err := data.Session.Apply(col.Key, r.PostForm.Get(name)); err != nil {
					var fe *drafttable.FieldError
					if errors.As(err, &fe) {
						errs = append(errs, fe)
						continue
					}
					http.Error(w, "failed to apply input", http.StatusInternalServerError)
					return
				}
			}
			if len(errs) > 0 {
				data.Errors = errs
				data.Page.Error = "Fix the highlighted fields"
				renderLedger(w, r, data, http.StatusUnprocessableEntity)
				return
			}

			res := data.Session.Save(r.Context(), drafttable.NewSubmitter(qc), func(ctx context.Context, id int64, p drafttable.Patch) error {
				body, err := json.Marshal(p)
				if err != nil {
					return err
				}
				var fields map[string]json.RawMessage
				if err := json.Unmarshal(body, &fields); err != nil {
					return err
				}
				_, err = PatchPaper(ctx, db, auditSvc, sharedcontext.OperatorID(ctx), id, fields)
				return err
			}, invalidatedByPapers...)
			if res.OK() {
				redirectLedger(w, r, query, "status", "Row saved")
				return
			}
			data.Errors = res.Fields
			data.Page.Error = res.Notice
			status := http.StatusUnprocessableEntity
			if res.Status == drafttable.SubmitFailed {
				status = api.StatusFor(res.Err)
			}
			renderLedger(w, r, data, status)
		default:
			redirectLedger(w, r, query, "error", "Unknown action")
		}
	}
}

// CreatePaperCommandHandler adds a ledger row from the create form.
func CreatePaperCommandHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectLedger(w, r, "", "error", "Invalid ledger form")
			return
		}
		query := r.PostForm.Get("q")
		in := CreateInput{
			EventDate: strings.TrimSpace(r.PostForm.Get(KeyEventDate)),
			Comment:   r.PostForm.Get(KeyComment),
		}
		in.PaperTypeID, _ = strconv.ParseInt(r.PostForm.Get(KeyPaperType), 10, 64)
		in.OrganizationID, _ = strconv.ParseInt(r.PostForm.Get("organizationId"), 10, 64)
		if loc, err := strconv.ParseInt(r.PostForm.Get(KeyLocation), 10, 64); err == nil && loc > 0 {
			in.LocationID = &loc
		}
		if n, err := drafttable.ParseNumber(r.PostForm.Get(KeyAmount)); err == nil {
			in.Amount = decimal.NewFromFloat(n)
		}

		if _, err := CreatePaper(r.Context(), db, auditSvc, sharedcontext.OperatorID(r.Context()), in); err != nil {
			var errs drafttable.ValidationErrors
			if errors.As(err, &errs) {
				redirectLedger(w, r, query, "error", firstMessage(errs))
				return
			}
			redirectLedger(w, r, query, "error", "Could not add the row")
			return
		}
		qc.Invalidate(invalidatedByPapers...)
		redirectLedger(w, r, query, "status", "Row added")
	}
}

func loadLedgerPage(r *http.Request, db *sqlite.DB, pc *cache.ColumnPrefsCache, f sharedcontext.Filter) (LedgerPageData, error) {
	data := LedgerPageData{Filter: f}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		data.Result, err = ListPapers(ctx, db, f)
		return err
	})
	g.Go(func() error {
		var err error
		data.Summary, err = Summarize(ctx, db, f)
		return err
	})
	g.Go(func() error {
		var err error
		data.Lookups, err = LoadLookups(ctx, db, f.OrganizationID)
		return err
	})
	var visible func(string) bool
	g.Go(func() error {
		var err error
		visible, err = settings.Visibility(ctx, db, pc, tableKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return data, err
	}

	columns := LedgerColumns(data.Lookups)
	rows := make([]drafttable.DraftRow, 0, len(data.Result.Items))
	for _, p := range data.Result.Items {
		rows = append(rows, p.Row())
	}
	data.Session = drafttable.NewLedgerSession(columns, rows)
	data.Columns = columns.Visible(visible)
	data.Pages = f.PageCount(data.Result.Total)
	data.Query = f.Values().Encode()
	data.PageHref = func(page int) string {
		return ledgerPath + "?" + f.WithPage(page).Values().Encode()
	}
	data.Page = html.PageFor(r, "Finance ledger")
	return data, nil
}

func renderLedger(w http.ResponseWriter, r *http.Request, data LedgerPageData, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := LedgerPage(data).Render(r.Context(), w); err != nil {
		http.Error(w, "failed to render ledger page", http.StatusInternalServerError)
		return
	}
}

func redirectLedger(w http.ResponseWriter, r *http.Request, query, param, message string) {
	q, _ := url.ParseQuery(query)
	q.Del("status")
	q.Del("error")
	if param != "" {
		q.Set(param, message)
	}
	target := ledgerPath
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// selectedRowID reads the row id out of a row[<id>].selected form name.
func selectedRowID(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, "row[")
	if !ok {
		return 0, false
	}
	raw, ok := strings.CutSuffix(rest, "].selected")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func deleteMessage(err error) string {
	var errs drafttable.ValidationErrors
	if errors.As(err, &errs) {
		return firstMessage(errs)
	}
	return "Could not delete rows"
}

func firstMessage(errs drafttable.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid input"
	}
	return errs[0].Message
}
