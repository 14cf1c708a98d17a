package nomenclature

import (
	"strconv"

	"github.com/a-h/templ"

	"washdesk/frontend/shared/html"
)

func NomenclaturePage(data PageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Nomenclature</h1>`)
		b.Raw(`<form method="post" action="/desk/nomenclature/import" enctype="multipart/form-data" class="inline">`)
		b.Raw(`<input type="file" name="file" accept=".csv,text/csv" required> <button type="submit">Import</button></form>`)

		b.Raw(`<form method="post" action="/desk/nomenclature/delete">`)
		b.Raw(`<table class="table"><thead><tr><th></th><th>SKU</th><th>Name</th><th>Unit</th></tr></thead><tbody>`)
		if len(data.Records) == 0 {
			b.Raw(`<tr><td colspan="4" class="empty">No products imported yet</td></tr>`)
		}
		for _, n := range data.Records {
			b.Rawf(`<tr><td><input type="checkbox" name="item_id" value="%d"></td><td>`, n.ID)
			b.Text(n.SKU)
			b.Raw(`</td><td>`)
			b.Text(n.Name)
			b.Raw(`</td><td>`)
			b.Text(n.Unit)
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
		if len(data.Records) > 0 {
			b.Raw(`<button type="submit" class="danger" data-confirm="Delete the selected products?">Delete selected</button>`)
		}
		b.Raw(`</form>`)
	})
	return html.Layout(data.Page, body)
}

func StockPage(data StockPageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Stock</h1>`)
		b.Raw(`<form method="get" action="/desk/stock" class="inline">`)
		b.Child(html.SelectField("Warehouse", "warehouseId", ToDraftOptions(data.Warehouses), data.WarehouseID, ""))
		b.Raw(` <button type="submit">Show</button></form>`)

		names := make(map[int64]string, len(data.Warehouses))
		for _, w := range data.Warehouses {
			names[w.ID] = w.Label
		}
		b.Raw(`<table class="table"><thead><tr><th>Warehouse</th><th>SKU</th><th>Name</th><th>Quantity</th><th>Unit</th><th>Updated</th></tr></thead><tbody>`)
		if len(data.Rows) == 0 {
			b.Raw(`<tr><td colspan="6" class="empty">No balances</td></tr>`)
		}
		for _, s := range data.Rows {
			b.Raw(`<tr><td>`)
			b.Text(names[s.WarehouseID])
			b.Raw(`</td><td>`)
			b.Text(s.SKU)
			b.Raw(`</td><td>`)
			b.Text(s.Name)
			b.Raw(`</td><td class="num">`)
			b.Text(strconv.FormatFloat(s.Quantity, 'f', -1, 64))
			b.Raw(`</td><td>`)
			b.Text(s.Unit)
			b.Raw(`</td><td>`)
			b.Text(s.UpdatedAt)
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
	return html.Layout(data.Page, body)
}
