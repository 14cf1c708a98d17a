package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"washdesk/frontend/settings"
	"washdesk/frontend/shared/api"
	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
	"washdesk/frontend/warehouse/nomenclature"
	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/sqlite"
	"washdesk/models"
)

const listPath = "/desk/documents"

// Tables lists the configurable line tables, one per document kind.
func Tables() []settings.Table {
	return []settings.Table{
		{Key: tableKey(models.KindReceipt), Label: "Receipt lines", Columns: drafttable.DocumentColumns(models.KindReceipt, nil)},
		{Key: tableKey(models.KindMoving), Label: "Move lines", Columns: drafttable.DocumentColumns(models.KindMoving, nil)},
		{Key: tableKey(models.KindInventory), Label: "Inventory lines", Columns: drafttable.DocumentColumns(models.KindInventory, nil)},
	}
}

func tableKey(kind string) string { return "documents." + kind }

// KindLabel names a document kind for people.
func KindLabel(kind string) string {
	switch kind {
	case models.KindReceipt:
		return "Receipt"
	case models.KindMoving:
		return "Move"
	case models.KindInventory:
		return "Inventory"
	}
	return kind
}

func DocumentsListPageQueryHandler(db *sqlite.DB, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := sharedcontext.ParseFilter(r.URL.Query(), pageSize)
		result, err := ListDocuments(r.Context(), db, f)
		if err != nil {
			http.Error(w, "failed to load documents", http.StatusInternalServerError)
			return
		}
		warehouses, err := nomenclature.Options(r.Context(), db, "warehouses")
		if err != nil {
			http.Error(w, "failed to load warehouses", http.StatusInternalServerError)
			return
		}

		data := ListPageData{
			Page:       html.PageFor(r, "Documents"),
			Result:     result,
			Warehouses: nomenclature.ToDraftOptions(warehouses),
			Kind:       f.Kind,
			Warehouse:  f.WarehouseID,
			Pages:      f.PageCount(result.Total),
			PageHref: func(page int) string {
				return listPath + "?" + f.WithPage(page).Values().Encode()
			},
		}
		if !f.DateStart.IsZero() {
			data.DateStart = f.DateStart.Format(drafttable.DateLayout)
		}
		if !f.DateEnd.IsZero() {
			data.DateEnd = f.DateEnd.Format(drafttable.DateLayout)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := DocumentsListPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render documents page", http.StatusInternalServerError)
			return
		}
	}
}

// NewDocumentPageQueryHandler starts a draft with one empty template row.
func NewDocumentPageQueryHandler(db *sqlite.DB, pc *cache.ColumnPrefsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if !drafttable.ValidKind(kind) {
			http.Redirect(w, r, listPath+"?error="+url.QueryEscape("Choose a document kind"), http.StatusSeeOther)
			return
		}
		h := drafttable.DocumentHeader{Kind: kind, CarryingAt: drafttable.PlainDate(time.Now())}
		h.WarehouseID, _ = strconv.ParseInt(r.URL.Query().Get("warehouseId"), 10, 64)

		data, err := loadDraftPage(r, db, pc, h, nil)
		if err != nil {
			http.Error(w, "failed to prepare document", http.StatusInternalServerError)
			return
		}
		data.Store.SeedTemplate()
		renderDraft(w, r, data, http.StatusOK)
	}
}

// DocumentPageQueryHandler shows a stored document, editable while it is a draft.
func DocumentPageQueryHandler(db *sqlite.DB, pc *cache.ColumnPrefsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		detail, err := LoadDocument(r.Context(), db, id)
		if errors.Is(err, api.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load document", http.StatusInternalServerError)
			return
		}

		h := drafttable.DocumentHeader{
			Kind:          detail.Document.Kind,
			WarehouseID:   detail.Document.WarehouseID,
			ReceiverID:    detail.ReceiverID(),
			ResponsibleID: detail.Document.ResponsibleID,
			CarryingAt:    detail.Document.CarryingAt,
		}
		data, err := loadDraftPage(r, db, pc, h, &detail)
		if err != nil {
			http.Error(w, "failed to prepare document", http.StatusInternalServerError)
			return
		}
		data.Store.Seed(detail.Rows())
		data.Store.SelectAll(true)
		renderDraft(w, r, data, http.StatusOK)
	}
}

// DocumentDraftCommandHandler handles every post of the draft form. Table actions
// re-render the draft carried by the form; save and send submit the selected rows.
func DocumentDraftCommandHandler(db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache, pc *cache.ColumnPrefsCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, listPath+"?error="+url.QueryEscape("Invalid document form"), http.StatusSeeOther)
			return
		}
		h, err := headerFromForm(r.Form)
		if err != nil {
			http.Redirect(w, r, listPath+"?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		id, _ := strconv.ParseInt(r.FormValue("id"), 10, 64)

		var detail *Detail
		if id > 0 {
			d, err := LoadDocument(r.Context(), db, id)
			if err != nil {
				http.Redirect(w, r, listPath+"?error="+url.QueryEscape("Document not found"), http.StatusSeeOther)
				return
			}
			if d.Document.Status == models.StatusSent {
				http.Redirect(w, r, fmt.Sprintf("%s/%d?error=%s", listPath, id, url.QueryEscape("Sent documents are read-only")), http.StatusSeeOther)
				return
			}
			detail = &d
		}

		data, err := loadDraftPage(r, db, pc, h, detail)
		if err != nil {
			http.Error(w, "failed to prepare document", http.StatusInternalServerError)
			return
		}
		errs, err := drafttable.ApplyForm(data.Store, data.Editor, r.Form)
		if err != nil {
			http.Redirect(w, r, listPath+"?error="+url.QueryEscape("The draft was lost, start again"), http.StatusSeeOther)
			return
		}
		if prev, _ := strconv.ParseInt(r.FormValue("prevWarehouseId"), 10, 64); h.Kind == models.KindInventory && prev != h.WarehouseID {
			refreshBaselines(data.Store)
		}
		data.Errors = errs

		status := http.StatusOK
		switch action := r.FormValue("action"); action {
		case "add":
			if !data.Store.AddRow() {
				data.Page.Message = "Every product is already listed"
			}
		case "delete":
			n := data.Store.DeleteSelectedRows()
			data.Page.Message = fmt.Sprintf("Deleted %d rows", n)
		case "sort_asc":
			data.Store.SortAscending()
		case "sort_desc":
			data.Store.SortDescending()
		case "save", "send":
			if len(errs) > 0 {
				data.Page.Error = "Fix the highlighted fields"
				status = http.StatusUnprocessableEntity
				break
			}
			send := action == "send"
			res, doc := submitDraft(r, db, auditSvc, qc, id, h, data.Store, send)
			if res.OK() {
				notice := "Document saved"
				if send {
					notice = "Document sent"
				}
				http.Redirect(w, r, fmt.Sprintf("%s/%d?status=%s", listPath, doc.ID, url.QueryEscape(notice)), http.StatusSeeOther)
				return
			}
			data.Errors = res.Fields
			data.Page.Error = res.Notice
			status = http.StatusUnprocessableEntity
			if res.Status == drafttable.SubmitFailed {
				status = api.StatusFor(res.Err)
			}
		}
		renderDraft(w, r, data, status)
	}
}

// submitDraft sends the selected rows through the submitter. Field errors reported
// by the backend are keyed by payload line and are mapped back to draft rows.
func submitDraft(r *http.Request, db *sqlite.DB, auditSvc *audit.Service, qc *cache.QueryCache, id int64, h drafttable.DocumentHeader, store *drafttable.Store, send bool) (drafttable.Result, models.Document) {
	var payload drafttable.DocumentPayload
	var doc models.Document
	called := false
	action := "save document"
	if send {
		action = "send document"
	}
	res := drafttable.NewSubmitter(qc).Submit(r.Context(), drafttable.Submission{
		Action: action,
		Validate: func() drafttable.ValidationErrors {
			var errs drafttable.ValidationErrors
			payload, errs = drafttable.BuildDocumentPayload(h, store)
			return errs
		},
		Call: func(ctx context.Context) error {
			called = true
			var err error
			doc, err = SaveDocument(ctx, db, auditSvc, sharedcontext.OperatorID(ctx), id, payload, send)
			return err
		},
		Invalidate: invalidatedByDocuments,
	})
	if called && res.Status == drafttable.SubmitInvalid {
		selected := store.Selected()
		for _, fe := range res.Fields {
			if fe.RowID > 0 && int(fe.RowID) <= len(selected) {
				fe.RowID = selected[fe.RowID-1].ID
			}
		}
	}
	return res, doc
}

func headerFromForm(form url.Values) (drafttable.DocumentHeader, error) {
	h := drafttable.DocumentHeader{Kind: form.Get("kind")}
	if !drafttable.ValidKind(h.Kind) {
		return h, errors.New("unknown document kind")
	}
	h.WarehouseID, _ = strconv.ParseInt(form.Get(drafttable.KeyWarehouse), 10, 64)
	h.ResponsibleID, _ = strconv.ParseInt(form.Get(drafttable.KeyResponsible), 10, 64)
	if h.Kind == models.KindMoving {
		h.ReceiverID, _ = strconv.ParseInt(form.Get(drafttable.KeyReceiver), 10, 64)
	}
	if raw := strings.TrimSpace(form.Get("carryingAt")); raw != "" {
		d, err := drafttable.ParseDate(raw)
		if err != nil {
			return h, errors.New("invalid document date")
		}
		h.CarryingAt = d
	}
	return h, nil
}

// refreshBaselines re-reads the on-hand quantity of rows whose oldQuantity was never
// edited, after the warehouse of an inventory changed.
func refreshBaselines(store *drafttable.Store) {
	for _, row := range store.Rows() {
		if !row.IsTouched(drafttable.KeyOldQuantity) {
			store.UpdateField(row.ID, drafttable.KeyQuantity, row.Get(drafttable.KeyQuantity))
		}
	}
}

func loadDraftPage(r *http.Request, db *sqlite.DB, pc *cache.ColumnPrefsCache, h drafttable.DocumentHeader, detail *Detail) (DraftPageData, error) {
	ctx := r.Context()
	products, err := nomenclature.ProductOptions(ctx, db)
	if err != nil {
		return DraftPageData{}, err
	}
	baseline, err := nomenclature.Baseline(ctx, db, h.WarehouseID)
	if err != nil {
		return DraftPageData{}, err
	}
	warehouses, err := nomenclature.Options(ctx, db, "warehouses")
	if err != nil {
		return DraftPageData{}, err
	}
	workers, err := nomenclature.Options(ctx, db, "workers")
	if err != nil {
		return DraftPageData{}, err
	}
	visible, err := settings.Visibility(ctx, db, pc, tableKey(h.Kind))
	if err != nil {
		return DraftPageData{}, err
	}

	store := drafttable.NewDocumentStore(h.Kind, products, baseline)
	title := "New " + strings.ToLower(KindLabel(h.Kind))
	data := DraftPageData{
		Header:     h,
		Store:      store,
		Editor:     drafttable.NewEditor(drafttable.EditGlobal),
		Columns:    store.Columns().Visible(visible),
		Warehouses: nomenclature.ToDraftOptions(warehouses),
		Workers:    nomenclature.ToDraftOptions(workers),
	}
	if detail != nil {
		data.DocumentID = detail.Document.ID
		data.PublicID = detail.Document.PublicID
		data.ReadOnly = detail.Document.Status == models.StatusSent
		title = KindLabel(h.Kind) + " " + shortID(detail.Document.PublicID)
		if data.ReadOnly {
			data.Editor = drafttable.NewEditor(drafttable.EditPerRow)
		}
	}
	data.Page = html.PageFor(r, title)
	return data, nil
}

func shortID(publicID string) string {
	if len(publicID) > 8 {
		return publicID[:8]
	}
	return publicID
}

func renderDraft(w http.ResponseWriter, r *http.Request, data DraftPageData, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := DocumentDraftPage(data).Render(r.Context(), w); err != nil {
		http.Error(w, "failed to render document page", http.StatusInternalServerError)
		return
	}
}

// PrintDocumentQueryHandler serves the PDF of a document.
func PrintDocumentQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid document id", http.StatusBadRequest)
			return
		}
		sheet, err := LoadPrintSheet(r.Context(), db, id)
		if errors.Is(err, api.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load document", http.StatusInternalServerError)
			return
		}
		pdfBytes, err := renderDocumentPDF(sheet, time.Now())
		if err != nil {
			http.Error(w, "failed to build document pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=document-%d.pdf", id))
		_, _ = w.Write(pdfBytes)
	}
}
