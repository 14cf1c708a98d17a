package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washdesk/frontend/finance/papers"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/warehouse/nomenclature"
)

var cliProducts = []nomenclature.OptionItem{
	{ID: 10, Label: "FOAM - Active foam"},
	{ID: 20, Label: "WAX - Hot wax"},
}

func TestReadLinesAcceptsSKUOrID(t *testing.T) {
	lines, err := readLines(strings.NewReader("sku,quantity,comment\nFOAM,5,first\n 20 , 1.5 ,\n"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, csvLine{Line: 1, Product: "FOAM", Quantity: "5", Comment: "first"}, lines[0])
	assert.Equal(t, "20", lines[1].Product)
	assert.Equal(t, "1.5", lines[1].Quantity)

	_, err = readLines(strings.NewReader("name,quantity\nx,1\n"))
	assert.Error(t, err)
	_, err = readLines(strings.NewReader(""))
	assert.Error(t, err)
}

func TestBuildDraftInventoryUsesBaseline(t *testing.T) {
	lines, err := readLines(strings.NewReader("sku,quantity,oldQuantity\nFOAM,5,\nWAX,2,4\n"))
	require.NoError(t, err)
	baseline := func(id int64) (float64, bool) {
		if id == 10 {
			return 3, true
		}
		return 0, false
	}

	store, errs := buildDraft("inventory", cliProducts, baseline, lines)
	require.Empty(t, errs)
	payload, verrs := drafttable.BuildDocumentPayload(drafttable.DocumentHeader{Kind: "inventory", WarehouseID: 1}, store)
	require.Empty(t, verrs)
	require.Len(t, payload.Details, 2)
	assert.Equal(t, 2.0, *payload.Details[0].MetaData.Deviation)
	assert.Equal(t, 4.0, *payload.Details[1].MetaData.OldQuantity)
	assert.Equal(t, -2.0, *payload.Details[1].MetaData.Deviation)
}

func TestBuildDraftReportsErrorsPerLine(t *testing.T) {
	lines, err := readLines(strings.NewReader("sku,quantity\nSOAP,1\nFOAM,abc\nWAX,0\n"))
	require.NoError(t, err)

	store, errs := buildDraft("receipt", cliProducts, nil, lines)
	_, verrs := drafttable.BuildDocumentPayload(drafttable.DocumentHeader{Kind: "receipt", WarehouseID: 1}, store)
	errs = mergeFieldErrors(errs, verrs)

	assert.Equal(t, "unknown product SOAP", errs.For(1, drafttable.KeyNomenclature))
	assert.NotEmpty(t, errs.For(2, drafttable.KeyQuantity))
	assert.Equal(t, "quantity must be greater than zero", errs.For(3, drafttable.KeyQuantity))

	var out bytes.Buffer
	printFieldErrors(&out, errs)
	assert.Contains(t, out.String(), "line 1: nomenclatureId: unknown product SOAP")
}

func TestRemapToLinesFollowsSelection(t *testing.T) {
	selected := []drafttable.DraftRow{{ID: 4}, {ID: 9}}
	var backend drafttable.ValidationErrors
	backend.Add(2, drafttable.KeyNomenclature, "unknown product")
	backend.Add(0, drafttable.KeyWarehouse, "required")

	got := remapToLines(backend, selected)
	assert.Equal(t, "unknown product", got.For(9, drafttable.KeyNomenclature))
	assert.Equal(t, "required", got.For(0, drafttable.KeyWarehouse))
}

func TestBuildPatch(t *testing.T) {
	p, err := buildPatch([]string{"amount=12,5", "eventDate=2024-05-03", "locationId="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": 12.5, "eventDate": "2024-05-03", "locationId": nil}, p.Body())

	_, err = buildPatch([]string{"organizationId=2"})
	assert.Error(t, err)
	_, err = buildPatch([]string{"amount"})
	assert.Error(t, err)
	_, err = buildPatch([]string{"amount=ten"})
	assert.Error(t, err)
}

func TestPrintPapers(t *testing.T) {
	var out bytes.Buffer
	res := papers.ListResult{Items: []papers.Paper{{ID: 3, EventDate: "2024-05-01", PaperTypeName: "Rent"}}, Total: 1, Page: 1}
	require.NoError(t, printPapers(&out, res, papers.Summary{}))
	assert.Contains(t, out.String(), "Rent")
	assert.Contains(t, out.String(), "balance 0.00")
}
