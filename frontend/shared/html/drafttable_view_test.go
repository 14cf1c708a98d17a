package html

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"washdesk/frontend/shared/drafttable"
)

func TestDraftTableRendersInputsAndErrors(t *testing.T) {
	products := []drafttable.Option{{Label: "Wax <premium>", Value: 20}}
	store := drafttable.NewDocumentStore("receipt", products, nil)
	store.SeedTemplate()
	store.UpdateField(1, drafttable.KeyNomenclature, drafttable.Select(20))

	var errs drafttable.ValidationErrors
	errs.Add(1, drafttable.KeyQuantity, "quantity must be greater than zero")

	var buf bytes.Buffer
	err := DraftTable(DraftTableView{
		Store:      store,
		Editor:     drafttable.NewEditor(drafttable.EditGlobal),
		Errors:     errs,
		Selectable: true,
		Snapshot:   true,
	}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`name="draft"`,
		`name="row[1].selected"`,
		`<option value="20" selected>Wax &lt;premium&gt;</option>`,
		`name="row[1].quantity" value="0" aria-invalid="true"`,
		`quantity must be greater than zero`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDraftCellStaticDisplay(t *testing.T) {
	var buf bytes.Buffer
	cell := drafttable.Cell{RowID: 2, Key: "comment", Display: "a & b"}
	if err := DraftCell(cell, "").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := buf.String(); got != "a &amp; b" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLayoutCarriesDeskScript(t *testing.T) {
	var buf bytes.Buffer
	page := Page{Title: "Ledger", Message: "Row saved"}
	if err := Layout(page, Component(func(b *Builder) { b.Raw(`<p>body</p>`) })).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"X-CSRF-Token"`, `"_csrf"`, `data-confirm`, `href="/assets/app.css"`, `<p>body</p>`, `Row saved`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in layout:\n%s", want, out)
		}
	}
}
