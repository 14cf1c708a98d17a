package papers

import (
	"github.com/a-h/templ"

	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
)

func LedgerPage(data LedgerPageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Finance ledger</h1>`)
		b.Child(ledgerFilters(data))
		b.Child(ledgerSummary(data.Summary))

		editing := data.Session.EditingID()
		b.Rawf(`<form method="post" action="%s/rows" class="ledger">`, ledgerPath)
		b.Rawf(`<input type="hidden" name="q" value="%s">`, html.Attr(data.Query))
		b.Rawf(`<input type="hidden" name="editing" value="%d">`, editing)
		b.Child(html.DraftTable(html.DraftTableView{
			Store:      data.Session.Store(),
			Editor:     data.Session.Editor(),
			Columns:    data.Columns,
			Errors:     data.Errors,
			Selectable: true,
			RowActions: func(row drafttable.DraftRow) templ.Component {
				return rowActions(data.Query, row.ID, editing)
			},
		}))
		b.Raw(`<div class="actions"><button type="submit" name="action" value="delete" data-confirm="Delete the selected rows?">Delete selected</button></div>`)
		b.Raw(`</form>`)
		if data.PageHref != nil {
			b.Child(html.Pager(data.PageHref, data.Result.Page, data.Pages))
		}
		b.Child(createForm(data))
	})
	return html.Layout(data.Page, body)
}

func rowActions(query string, id, editing int64) templ.Component {
	return html.Component(func(b *html.Builder) {
		switch {
		case editing == id:
			b.Raw(`<button type="submit" name="action" value="save" class="primary">Save</button> `)
			b.Raw(`<button type="submit" name="action" value="cancel">Cancel</button>`)
		case editing == 0:
			href := ledgerPath + "?"
			if query != "" {
				href += query + "&"
			}
			b.Rawf(`<a href="%sedit=%d">Edit</a>`, html.Attr(href), id)
		}
	})
}

func ledgerFilters(data LedgerPageData) templ.Component {
	return html.Component(func(b *html.Builder) {
		f := data.Filter
		b.Rawf(`<form method="get" action="%s" class="filters">`, ledgerPath)
		b.Child(html.SelectField("Organization", "organizationId", data.Lookups.Organizations, f.OrganizationID, ""))
		b.Child(html.SelectField("Location", KeyLocation, data.Lookups.Locations, f.LocationID, ""))
		b.Child(html.SelectField("Type", KeyPaperType, data.Lookups.PaperTypes, f.PaperTypeID, ""))
		start, end := "", ""
		if !f.DateStart.IsZero() {
			start = f.DateStart.Format(drafttable.DateLayout)
		}
		if !f.DateEnd.IsZero() {
			end = f.DateEnd.Format(drafttable.DateLayout)
		}
		b.Rawf(`<label class="field">From<input type="date" name="dateStart" value="%s"></label>`, html.Attr(start))
		b.Rawf(`<label class="field">To<input type="date" name="dateEnd" value="%s"></label>`, html.Attr(end))
		b.Raw(`<button type="submit">Filter</button></form>`)
	})
}

func ledgerSummary(s Summary) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.Raw(`<dl class="summary"><dt>Receipts</dt><dd class="num">`)
		b.Text(s.Receipts.StringFixed(2))
		b.Raw(`</dd><dt>Expenditures</dt><dd class="num">`)
		b.Text(s.Expenditures.StringFixed(2))
		b.Raw(`</dd><dt>Balance</dt><dd class="num">`)
		b.Text(s.Balance.StringFixed(2))
		b.Raw(`</dd></dl>`)
	})
}

func createForm(data LedgerPageData) templ.Component {
	return html.Component(func(b *html.Builder) {
		b.Raw(`<h2>Add row</h2>`)
		b.Rawf(`<form method="post" action="%s" class="create">`, ledgerPath)
		b.Rawf(`<input type="hidden" name="q" value="%s">`, html.Attr(data.Query))
		b.Child(html.SelectField("Organization", "organizationId", data.Lookups.Organizations, data.Filter.OrganizationID, ""))
		b.Child(html.SelectField("Location", KeyLocation, data.Lookups.Locations, data.Filter.LocationID, ""))
		b.Child(html.SelectField("Type", KeyPaperType, data.Lookups.PaperTypes, 0, ""))
		b.Rawf(`<label class="field">Date<input type="date" name="%s"></label>`, KeyEventDate)
		b.Rawf(`<label class="field">Amount<input type="text" inputmode="decimal" name="%s"></label>`, KeyAmount)
		b.Rawf(`<label class="field">Comment<input type="text" name="%s"></label>`, KeyComment)
		b.Raw(`<button type="submit" class="primary">Add</button></form>`)
	})
}
