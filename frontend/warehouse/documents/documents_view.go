package documents

import (
	"strconv"

	"github.com/a-h/templ"

	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
	"washdesk/models"
)

var kindOptions = []struct{ Value, Label string }{
	{models.KindReceipt, "Receipt"},
	{models.KindMoving, "Move"},
	{models.KindInventory, "Inventory"},
}

func DocumentsListPage(data ListPageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Documents</h1><div class="actions">`)
		for _, k := range kindOptions {
			b.Rawf(`<a class="button" href="/desk/documents/new?kind=%s">New `, k.Value)
			b.Text(k.Label)
			b.Raw(`</a> `)
		}
		b.Raw(`</div>`)

		b.Raw(`<form method="get" action="/desk/documents" class="filters">`)
		b.Raw(`<label class="field">Kind<select name="kind"><option value="">All</option>`)
		for _, k := range kindOptions {
			sel := ""
			if k.Value == data.Kind {
				sel = " selected"
			}
			b.Rawf(`<option value="%s"%s>`, k.Value, sel)
			b.Text(k.Label)
			b.Raw(`</option>`)
		}
		b.Raw(`</select></label>`)
		b.Child(html.SelectField("Warehouse", "warehouseId", data.Warehouses, data.Warehouse, ""))
		b.Rawf(`<label class="field">From<input type="date" name="dateStart" value="%s"></label>`, html.Attr(data.DateStart))
		b.Rawf(`<label class="field">To<input type="date" name="dateEnd" value="%s"></label>`, html.Attr(data.DateEnd))
		b.Raw(`<button type="submit">Filter</button></form>`)

		b.Raw(`<table class="table"><thead><tr><th>Date</th><th>Kind</th><th>Warehouse</th><th>Responsible</th><th>Lines</th><th>Quantity</th><th>Status</th><th></th></tr></thead><tbody>`)
		if len(data.Result.Items) == 0 {
			b.Raw(`<tr><td colspan="8" class="empty">No documents</td></tr>`)
		}
		for _, d := range data.Result.Items {
			b.Raw(`<tr><td>`)
			b.Text(d.CarryingAt)
			b.Raw(`</td><td>`)
			b.Text(KindLabel(d.Kind))
			b.Raw(`</td><td>`)
			b.Text(d.WarehouseName)
			b.Raw(`</td><td>`)
			b.Text(d.Responsible)
			b.Rawf(`</td><td class="num">%d</td><td class="num">`, d.LineCount)
			b.Text(strconv.FormatFloat(d.TotalQuantity, 'f', -1, 64))
			b.Raw(`</td><td>`)
			b.Text(d.Status)
			b.Rawf(`</td><td><a href="/desk/documents/%d">Open</a> <a href="/desk/documents/%d/print.pdf">Print</a></td></tr>`, d.ID, d.ID)
		}
		b.Raw(`</tbody></table>`)
		if data.PageHref != nil {
			b.Child(html.Pager(data.PageHref, data.Result.Page, data.Pages))
		}
	})
	return html.Layout(data.Page, body)
}

func DocumentDraftPage(data DraftPageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>`)
		b.Text(data.Page.Title)
		b.Raw(`</h1>`)

		if data.ReadOnly {
			b.Child(readOnlyHeader(data))
			b.Child(html.DraftTable(html.DraftTableView{Store: data.Store, Editor: data.Editor, Columns: data.Columns}))
			b.Rawf(`<p><a class="button" href="/desk/documents/%d/print.pdf">Print</a></p>`, data.DocumentID)
			return
		}

		b.Raw(`<form method="post" action="/desk/documents/draft" class="draft">`)
		b.Rawf(`<input type="hidden" name="id" value="%d">`, data.DocumentID)
		b.Rawf(`<input type="hidden" name="kind" value="%s">`, html.Attr(data.Header.Kind))
		b.Rawf(`<input type="hidden" name="prevWarehouseId" value="%d">`, data.Header.WarehouseID)

		b.Raw(`<div class="header-fields">`)
		b.Child(html.SelectField("Warehouse", drafttable.KeyWarehouse, data.Warehouses, data.Header.WarehouseID, data.Errors.For(0, drafttable.KeyWarehouse)))
		if data.Header.Kind == models.KindMoving {
			b.Child(html.SelectField("Destination", drafttable.KeyReceiver, data.Warehouses, data.Header.ReceiverID, data.Errors.For(0, drafttable.KeyReceiver)))
		}
		b.Child(html.SelectField("Responsible", drafttable.KeyResponsible, data.Workers, data.Header.ResponsibleID, data.Errors.For(0, drafttable.KeyResponsible)))
		carrying := ""
		if !data.Header.CarryingAt.IsZero() {
			carrying = data.Header.CarryingAt.Format(drafttable.DateLayout)
		}
		b.Rawf(`<label class="field">Date<input type="date" name="carryingAt" value="%s"></label>`, html.Attr(carrying))
		b.Raw(`</div>`)

		if msg := data.Errors.For(0, drafttable.KeyDetails); msg != "" {
			b.Raw(`<p class="field-error">`)
			b.Text(msg)
			b.Raw(`</p>`)
		}
		b.Child(html.DraftTable(html.DraftTableView{
			Store:      data.Store,
			Editor:     data.Editor,
			Columns:    data.Columns,
			Errors:     data.Errors,
			Selectable: true,
			Snapshot:   true,
		}))

		b.Raw(`<div class="actions">`)
		b.Raw(`<button type="submit" name="action" value="add">Add row</button> `)
		b.Raw(`<button type="submit" name="action" value="delete" data-confirm="Delete the selected rows?">Delete selected</button> `)
		b.Raw(`<button type="submit" name="action" value="sort_asc">Sort &uarr;</button> `)
		b.Raw(`<button type="submit" name="action" value="sort_desc">Sort &darr;</button> `)
		b.Raw(`<button type="submit" name="action" value="save" class="primary">Save</button> `)
		b.Raw(`<button type="submit" name="action" value="send" class="primary">Send</button>`)
		b.Raw(`</div></form>`)
	})
	return html.Layout(data.Page, body)
}

func readOnlyHeader(data DraftPageData) templ.Component {
	return html.Component(func(b *html.Builder) {
		label := func(opts []drafttable.Option, id int64) string {
			for _, o := range opts {
				if o.Value == id {
					return o.Label
				}
			}
			return "-"
		}
		b.Raw(`<dl class="header-fields"><dt>Warehouse</dt><dd>`)
		b.Text(label(data.Warehouses, data.Header.WarehouseID))
		b.Raw(`</dd>`)
		if data.Header.Kind == models.KindMoving {
			b.Raw(`<dt>Destination</dt><dd>`)
			b.Text(label(data.Warehouses, data.Header.ReceiverID))
			b.Raw(`</dd>`)
		}
		b.Raw(`<dt>Responsible</dt><dd>`)
		b.Text(label(data.Workers, data.Header.ResponsibleID))
		b.Raw(`</dd><dt>Date</dt><dd>`)
		b.Text(data.Header.CarryingAt.Format("02.01.2006"))
		b.Raw(`</dd><dt>Number</dt><dd>`)
		b.Text(data.PublicID)
		b.Raw(`</dd></dl>`)
	})
}
