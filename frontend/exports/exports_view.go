package exports

import (
	"github.com/a-h/templ"

	"washdesk/frontend/shared/html"
)

func ExportsPage(data PageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Exports</h1>`)

		b.Raw(`<section><h2>Documents</h2><form method="get" action="/desk/exports/documents.csv" class="filters">`)
		b.Raw(`<label class="field">Kind<select name="kind"><option value="">All</option><option value="receipt">Receipt</option><option value="moving">Move</option><option value="inventory">Inventory</option></select></label>`)
		b.Child(html.SelectField("Warehouse", "warehouseId", data.Warehouses, 0, ""))
		b.Raw(`<label class="field">From<input type="date" name="dateStart"></label>`)
		b.Raw(`<label class="field">To<input type="date" name="dateEnd"></label>`)
		b.Raw(`<button type="submit">Download CSV</button></form></section>`)

		b.Raw(`<section><h2>Finance ledger</h2><form method="get" action="/desk/exports/papers.xlsx" class="filters">`)
		b.Child(html.SelectField("Organization", "organizationId", data.Organizations, 0, ""))
		b.Raw(`<label class="field">From<input type="date" name="dateStart"></label>`)
		b.Raw(`<label class="field">To<input type="date" name="dateEnd"></label>`)
		b.Raw(`<button type="submit">Download XLSX</button></form></section>`)

		b.Raw(`<h2>Recent exports</h2><table class="table"><thead><tr><th>When</th><th>Type</th><th>Rows</th><th>Operator</th></tr></thead><tbody>`)
		if len(data.Runs) == 0 {
			b.Raw(`<tr><td colspan="4" class="empty">Nothing exported yet</td></tr>`)
		}
		for _, run := range data.Runs {
			b.Raw(`<tr><td>`)
			b.Text(run.CreatedAt)
			b.Raw(`</td><td>`)
			b.Text(run.ExportType)
			b.Rawf(`</td><td class="num">%d</td><td>`, run.RowCount)
			if run.OperatorID > 0 {
				b.Rawf(`#%d`, run.OperatorID)
			}
			b.Raw(`</td></tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
	return html.Layout(data.Page, body)
}
