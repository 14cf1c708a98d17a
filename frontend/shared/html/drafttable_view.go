package html

import (
	"strconv"

	"github.com/a-h/templ"

	"washdesk/frontend/shared/drafttable"
)

// DraftTableView is everything needed to draw an editable draft table.
type DraftTableView struct {
	Store   *drafttable.Store
	Editor  *drafttable.Editor
	Columns drafttable.Columns
	Errors  drafttable.ValidationErrors
	// Selectable adds the selection checkbox column.
	Selectable bool
	// Snapshot embeds the draft so the next post can restore it.
	Snapshot bool
	// RowActions renders an optional trailing cell per row.
	RowActions func(row drafttable.DraftRow) templ.Component
}

func DraftTable(v DraftTableView) templ.Component {
	return Component(func(b *Builder) {
		columns := v.Columns
		if columns == nil {
			columns = v.Store.Columns()
		}
		if v.Snapshot {
			snap, err := drafttable.EncodeSnapshot(v.Store)
			if err != nil {
				b.err = err
				return
			}
			b.Rawf(`<input type="hidden" name="%s" value="%s">`, drafttable.SnapshotField, Attr(snap))
		}
		b.Raw(`<table class="table draft-table"><thead><tr>`)
		if v.Selectable {
			b.Raw(`<th><input type="checkbox" data-select-all title="Select all"></th>`)
		}
		for _, c := range columns {
			b.Raw(`<th>`)
			b.Text(c.Label)
			b.Raw(`</th>`)
		}
		if v.RowActions != nil {
			b.Raw(`<th></th>`)
		}
		b.Raw(`</tr></thead><tbody>`)
		rows := v.Store.Rows()
		if len(rows) == 0 {
			b.Rawf(`<tr><td colspan="%d" class="empty">No data</td></tr>`, len(columns)+2)
		}
		for _, row := range rows {
			b.Rawf(`<tr data-row="%d">`, row.ID)
			if v.Selectable {
				checked := ""
				if row.Selected {
					checked = " checked"
				}
				b.Rawf(`<td><input type="checkbox" name="%s"%s></td>`, Attr(drafttable.SelectedName(row.ID)), checked)
			}
			for _, c := range columns {
				b.Raw(`<td>`)
				b.Child(DraftCell(v.Editor.Resolve(row, c), v.Errors.For(row.ID, c.Key)))
				b.Raw(`</td>`)
			}
			if v.RowActions != nil {
				b.Raw(`<td class="actions">`)
				b.Child(v.RowActions(row))
				b.Raw(`</td>`)
			}
			b.Raw(`</tr>`)
		}
		b.Raw(`</tbody></table>`)
	})
}

// DraftCell renders one resolved cell with its inline error.
func DraftCell(cell drafttable.Cell, errMessage string) templ.Component {
	return Component(func(b *Builder) {
		if !cell.Editable {
			b.Text(cell.Display)
		} else {
			name := Attr(drafttable.InputName(cell.RowID, cell.Key))
			invalid := ""
			if errMessage != "" {
				invalid = ` aria-invalid="true"`
			}
			switch {
			case cell.Kind == drafttable.KindSelect:
				b.Rawf(`<select name="%s"%s>`, name, invalid)
				b.Raw(`<option value="0">-</option>`)
				b.Child(Options(cell.Options, cell.Raw))
				b.Raw(`</select>`)
			case cell.Kind == drafttable.KindNumber:
				b.Rawf(`<input type="text" inputmode="decimal" name="%s" value="%s"%s>`, name, Attr(cell.Raw), invalid)
			case cell.Kind == drafttable.KindDate && cell.Range:
				b.Rawf(`<input type="text" placeholder="yyyy-mm-dd..yyyy-mm-dd" name="%s" value="%s"%s>`, name, Attr(cell.Raw), invalid)
			case cell.Kind == drafttable.KindDate:
				b.Rawf(`<input type="date" name="%s" value="%s"%s>`, name, Attr(cell.Raw), invalid)
			default:
				b.Rawf(`<input type="text" name="%s" value="%s"%s>`, name, Attr(cell.Raw), invalid)
			}
		}
		if errMessage != "" {
			b.Raw(`<small class="field-error">`)
			b.Text(errMessage)
			b.Raw(`</small>`)
		}
	})
}

// Options renders option tags, marking the one whose value equals selected.
func Options(opts []drafttable.Option, selected string) templ.Component {
	return Component(func(b *Builder) {
		for _, o := range opts {
			value := strconv.FormatInt(o.Value, 10)
			sel := ""
			if value == selected {
				sel = " selected"
			}
			b.Rawf(`<option value="%s"%s>`, value, sel)
			b.Text(o.Label)
			b.Raw(`</option>`)
		}
	})
}

// SelectField renders a labelled select for a header field.
func SelectField(label, name string, opts []drafttable.Option, selected int64, errMessage string) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<label class="field">`)
		b.Text(label)
		b.Rawf(`<select name="%s"><option value="0">-</option>`, Attr(name))
		b.Child(Options(opts, strconv.FormatInt(selected, 10)))
		b.Raw(`</select>`)
		if errMessage != "" {
			b.Raw(`<small class="field-error">`)
			b.Text(errMessage)
			b.Raw(`</small>`)
		}
		b.Raw(`</label>`)
	})
}

// Pager renders previous/next links for a list.
func Pager(baseHref func(page int) string, page, pages int) templ.Component {
	return Component(func(b *Builder) {
		if pages <= 1 {
			return
		}
		b.Raw(`<nav class="pager">`)
		if page > 1 {
			b.Rawf(`<a href="%s">&laquo; Prev</a>`, Attr(baseHref(page-1)))
		}
		b.Rawf(` <span>Page %d of %d</span> `, page, pages)
		if page < pages {
			b.Rawf(`<a href="%s">Next &raquo;</a>`, Attr(baseHref(page+1)))
		}
		b.Raw(`</nav>`)
	})
}
