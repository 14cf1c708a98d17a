package drafttable

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postedForm(t *testing.T, s *Store, inputs map[string]string, selected ...int64) url.Values {
	t.Helper()
	snap, err := EncodeSnapshot(s)
	require.NoError(t, err)
	form := url.Values{SnapshotField: {snap}}
	for _, row := range s.Rows() {
		for _, col := range s.Columns() {
			if !col.ReadOnly {
				form.Set(InputName(row.ID, col.Key), row.Get(col.Key).Raw())
			}
		}
	}
	for k, v := range inputs {
		form.Set(k, v)
	}
	for _, id := range selected {
		form.Set(SelectedName(id), "on")
	}
	return form
}

func TestApplyFormReplaysOnlyChangedInputs(t *testing.T) {
	baseline := onHand(map[int64]float64{10: 3})
	first := NewDocumentStore("inventory", testProducts, baseline)
	first.SeedTemplate()

	form := postedForm(t, first, map[string]string{
		InputName(1, KeyNomenclature): "10",
		InputName(1, KeyQuantity):     "5",
	}, 1)

	next := NewDocumentStore("inventory", testProducts, baseline)
	errs, err := ApplyForm(next, NewEditor(EditGlobal), form)
	require.NoError(t, err)
	require.Empty(t, errs)

	row, _ := next.Row(1)
	assert.True(t, row.Selected)
	assert.Equal(t, 3.0, row.Get(KeyOldQuantity).Number(), "stale oldQuantity input must not override the baseline")
	assert.Equal(t, 2.0, row.Get(KeyDeviation).Number())
	assert.False(t, row.IsTouched(KeyOldQuantity))
}

func TestApplyFormKeepsTouchedStateAcrossPosts(t *testing.T) {
	baseline := onHand(map[int64]float64{10: 3})
	s := NewDocumentStore("inventory", testProducts, baseline)
	s.SeedTemplate()
	ed := NewEditor(EditGlobal)
	require.NoError(t, ed.Apply(s, 1, KeyNomenclature, "10"))
	require.NoError(t, ed.Apply(s, 1, KeyOldQuantity, "7"))

	form := postedForm(t, s, map[string]string{InputName(1, KeyQuantity): "4"})
	next := NewDocumentStore("inventory", testProducts, baseline)
	_, err := ApplyForm(next, ed, form)
	require.NoError(t, err)

	row, _ := next.Row(1)
	assert.Equal(t, 7.0, row.Get(KeyOldQuantity).Number())
	assert.Equal(t, -3.0, row.Get(KeyDeviation).Number())
}

func TestApplyFormReportsBadInput(t *testing.T) {
	s := NewDocumentStore("receipt", testProducts, nil)
	s.SeedTemplate()
	form := postedForm(t, s, map[string]string{InputName(1, KeyQuantity): "12kg"})

	next := NewDocumentStore("receipt", testProducts, nil)
	errs, err := ApplyForm(next, NewEditor(EditGlobal), form)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, int64(1), errs[0].RowID)
	assert.Equal(t, KeyQuantity, errs[0].Key)
}

func TestApplyFormRequiresSnapshot(t *testing.T) {
	s := NewDocumentStore("receipt", testProducts, nil)
	_, err := ApplyForm(s, NewEditor(EditGlobal), url.Values{})
	assert.Error(t, err)
}

func TestParseRowIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 9}, ParseRowIDs([]string{"3", "x", "-1", " 9 "}))
}
