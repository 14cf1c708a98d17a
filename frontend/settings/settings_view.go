package settings

import (
	"github.com/a-h/templ"

	"washdesk/frontend/shared/html"
)

func ColumnsPage(data ColumnsPageData) templ.Component {
	body := html.Component(func(b *html.Builder) {
		b.Raw(`<h1>Columns</h1>`)
		for _, t := range data.Tables {
			visible := data.Visible[t.Key]
			b.Raw(`<form method="post" action="/desk/settings/columns" class="card"><h2>`)
			b.Text(t.Label)
			b.Rawf(`</h2><input type="hidden" name="table" value="%s">`, html.Attr(t.Key))
			for _, c := range t.Columns {
				checked := ""
				if visible == nil || visible(c.Key) {
					checked = " checked"
				}
				b.Rawf(`<label class="check"><input type="checkbox" name="visible" value="%s"%s> `, html.Attr(c.Key), checked)
				b.Text(c.Label)
				b.Raw(`</label>`)
			}
			b.Raw(`<button type="submit">Save</button></form>`)
		}
	})
	return html.Layout(data.Page, body)
}
