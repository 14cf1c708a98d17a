package drafttable

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerColumns = Columns{
	{Key: "paperTypeId", EditKind: KindSelect, Options: []Option{{Label: "Cash", Value: 1}, {Label: "Rent", Value: 2}}},
	{Key: "eventDate", EditKind: KindDate},
	{Key: "amount", EditKind: KindNumber},
	{Key: "comment", EditKind: KindText},
}

func ledgerRow(id int64) DraftRow {
	return DraftRow{ID: id, Fields: map[string]Value{
		"paperTypeId": Select(1),
		"eventDate":   Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		"amount":      Number(100),
		"comment":     Text("rent"),
	}}
}

type recordingCache struct {
	prefixes []string
}

func (c *recordingCache) Invalidate(prefixes ...string) {
	c.prefixes = append(c.prefixes, prefixes...)
}

func TestDiffReturnsOnlyChangedFields(t *testing.T) {
	orig := ledgerRow(1)
	edited := orig.Clone()
	edited.Fields["amount"] = Number(150)
	edited.Fields["comment"] = Text("rent")

	p := Diff(orig, edited, ledgerColumns)
	assert.Equal(t, []string{"amount"}, p.Keys())

	body, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":150}`, string(body))
}

func TestDiffNormalizesDates(t *testing.T) {
	orig := ledgerRow(1)
	edited := orig.Clone()
	edited.Fields["eventDate"] = Value{kind: KindDate, date: time.Date(2024, 5, 1, 17, 30, 0, 0, time.FixedZone("X", 3*3600))}

	assert.True(t, Diff(orig, edited, ledgerColumns).Empty())
}

func TestDiffOmitsFieldResetToOriginal(t *testing.T) {
	s := NewLedgerSession(ledgerColumns, []DraftRow{ledgerRow(1)})
	require.NoError(t, s.Edit(1))
	require.NoError(t, s.Apply("amount", "300"))
	require.NoError(t, s.Apply("amount", "100"))

	_, p, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestDiffMinimalityOverEveryColumnSubset(t *testing.T) {
	changes := map[string]Value{
		"paperTypeId": Select(2),
		"eventDate":   Date(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)),
		"amount":      Number(1),
		"comment":     Text("fuel"),
	}
	keys := ledgerColumns.Keys()
	for mask := 0; mask < 1<<len(keys); mask++ {
		orig := ledgerRow(1)
		edited := orig.Clone()
		want := map[string]bool{}
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				edited.Fields[k] = changes[k]
				want[k] = true
			}
		}
		got := map[string]bool{}
		for k := range Diff(orig, edited, ledgerColumns) {
			got[k] = true
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("mask %b: patch keys mismatch (-want +got):\n%s", mask, diff)
		}
	}
}

func TestSubmitValidationBlocksCall(t *testing.T) {
	cache := &recordingCache{}
	called := false
	res := NewSubmitter(cache).Submit(context.Background(), Submission{
		Validate: func() ValidationErrors {
			var errs ValidationErrors
			errs.Add(1, KeyQuantity, "quantity must be greater than zero")
			return errs
		},
		Call:       func(context.Context) error { called = true; return nil },
		Invalidate: []string{"/api/documents"},
	})

	assert.False(t, called)
	assert.Equal(t, SubmitInvalid, res.Status)
	assert.Equal(t, map[string]string{"1.quantity": "quantity must be greater than zero"}, res.Fields.Fields())
	assert.Empty(t, cache.prefixes)
}

func TestSubmitSuccessInvalidatesAndClears(t *testing.T) {
	cache := &recordingCache{}
	cleared := false
	res := NewSubmitter(cache).Submit(context.Background(), Submission{
		Call:       func(context.Context) error { return nil },
		Invalidate: []string{"/api/manager-papers", "/api/manager-papers/summary"},
		OnSuccess:  func() { cleared = true },
	})

	assert.True(t, res.OK())
	assert.True(t, cleared)
	assert.Equal(t, []string{"/api/manager-papers", "/api/manager-papers/summary"}, cache.prefixes)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	cache := &recordingCache{}
	cleared := false
	boom := errors.New("backend down")
	res := NewSubmitter(cache).Submit(context.Background(), Submission{
		Action:     "send document",
		Call:       func(context.Context) error { return boom },
		Invalidate: []string{"/api/documents"},
		OnSuccess:  func() { cleared = true },
	})

	assert.Equal(t, SubmitFailed, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Contains(t, res.Notice, "send document")
	assert.False(t, cleared)
	assert.Empty(t, cache.prefixes)
}

func TestSubmitMapsBackendFieldErrors(t *testing.T) {
	backend := ValidationErrorsFromFields(map[string]string{"2.nomenclatureId": "unknown product", "warehouseId": "required"})
	res := NewSubmitter(nil).Submit(context.Background(), Submission{
		Call: func(context.Context) error { return backend },
	})

	assert.Equal(t, SubmitInvalid, res.Status)
	assert.Equal(t, "unknown product", res.Fields.For(2, KeyNomenclature))
	assert.Equal(t, "required", res.Fields.For(0, KeyWarehouse))
}

func TestLedgerSessionTransitions(t *testing.T) {
	s := NewLedgerSession(ledgerColumns, []DraftRow{ledgerRow(1), ledgerRow(2)})
	assert.Equal(t, Viewing, s.State())

	require.NoError(t, s.Edit(1))
	assert.Equal(t, Editing, s.State())
	assert.ErrorIs(t, s.Edit(2), ErrAlreadyEditing)
	assert.ErrorIs(t, s.Edit(42), ErrUnknownRow)

	require.NoError(t, s.Apply("comment", "changed"))
	require.NoError(t, s.Cancel())
	assert.Equal(t, Viewing, s.State())
	row, _ := s.Store().Row(1)
	assert.Equal(t, "rent", row.Get("comment").Text())

	require.NoError(t, s.Edit(2))
	require.NoError(t, s.Apply("amount", "250"))
	_, _, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, Submitting, s.State())
	assert.ErrorIs(t, s.Apply("amount", "1"), ErrInvalidTransition)

	require.NoError(t, s.Fail())
	assert.Equal(t, Editing, s.State())
	row, _ = s.Store().Row(2)
	assert.Equal(t, 250.0, row.Get("amount").Number())
}

func TestLedgerSaveSendsPatchAndAdoptsRow(t *testing.T) {
	cache := &recordingCache{}
	s := NewLedgerSession(ledgerColumns, []DraftRow{ledgerRow(7)})
	require.NoError(t, s.Edit(7))
	require.NoError(t, s.Apply("eventDate", "03.05.2024"))

	var gotID int64
	var gotBody map[string]any
	res := s.Save(context.Background(), NewSubmitter(cache), func(_ context.Context, id int64, p Patch) error {
		gotID, gotBody = id, p.Body()
		return nil
	}, "/api/manager-papers")

	require.True(t, res.OK())
	assert.Equal(t, int64(7), gotID)
	assert.Equal(t, map[string]any{"eventDate": "2024-05-03"}, gotBody)
	assert.Equal(t, Viewing, s.State())
	assert.Equal(t, []string{"/api/manager-papers"}, cache.prefixes)

	orig, _ := s.Original(7)
	assert.Equal(t, "2024-05-03", orig.Get("eventDate").Raw())
}

func TestLedgerSaveWithoutChangesSkipsCall(t *testing.T) {
	s := NewLedgerSession(ledgerColumns, []DraftRow{ledgerRow(1)})
	require.NoError(t, s.Edit(1))

	res := s.Save(context.Background(), NewSubmitter(nil), func(context.Context, int64, Patch) error {
		t.Fatal("call must not run for an empty patch")
		return nil
	})
	assert.True(t, res.OK())
	assert.Equal(t, Viewing, s.State())
}

func TestLedgerSaveFailureReturnsToEditing(t *testing.T) {
	s := NewLedgerSession(ledgerColumns, []DraftRow{ledgerRow(1)})
	require.NoError(t, s.Edit(1))
	require.NoError(t, s.Apply("amount", "5"))

	res := s.Save(context.Background(), NewSubmitter(nil), func(context.Context, int64, Patch) error {
		return errors.New("conflict")
	})
	assert.Equal(t, SubmitFailed, res.Status)
	assert.Equal(t, Editing, s.State())
	assert.Equal(t, int64(1), s.EditingID())
}
