package drafttable

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProducts = []Option{
	{Label: "Shampoo", Value: 10},
	{Label: "Wax", Value: 20},
	{Label: "Foam", Value: 30},
}

func ids(rows []DraftRow) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestSeedTemplateStartsWithOneEmptyRow(t *testing.T) {
	s := NewDocumentStore("receipt", testProducts, nil)
	s.SeedTemplate()

	rows := s.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(0), rows[0].Get(KeyNomenclature).SelectID())
	assert.Equal(t, 0.0, rows[0].Get(KeyQuantity).Number())
	assert.Equal(t, "", rows[0].Get(KeyComment).Text())
}

func TestSeedReassignsDuplicateAndMissingIDs(t *testing.T) {
	s := NewStore(Columns{{Key: "name", EditKind: KindText}})
	s.Seed([]DraftRow{{ID: 5}, {ID: 5}, {ID: 0}, {ID: 6}})

	got := ids(s.Rows())
	assert.Equal(t, []int64{5, 7, 8, 6}, got)
	for _, r := range s.Rows() {
		assert.True(t, r.Get("name").Equal(Text("")))
	}
}

func TestSeedKeepsServerIDsAheadOfNewRows(t *testing.T) {
	s := NewStore(Columns{{Key: "name", EditKind: KindText}})
	s.Seed([]DraftRow{
		{Fields: map[string]Value{"name": Text("new")}},
		{ID: 1, Fields: map[string]Value{"name": Text("server")}},
	})

	server, ok := s.Row(1)
	require.True(t, ok)
	assert.Equal(t, "server", server.Get("name").Text())
	added, ok := s.Row(2)
	require.True(t, ok)
	assert.Equal(t, "new", added.Get("name").Text())
	assert.Equal(t, []int64{2, 1}, ids(s.Rows()))
}

func TestAddRowPicksFirstUnusedOption(t *testing.T) {
	s := NewDocumentStore("receipt", testProducts, nil)
	s.Seed([]DraftRow{{ID: 7, Fields: map[string]Value{KeyNomenclature: Select(10)}}})

	require.True(t, s.AddRow())
	row, ok := s.Row(8)
	require.True(t, ok)
	assert.Equal(t, int64(20), row.Get(KeyNomenclature).SelectID())
	assert.Equal(t, 0.0, row.Get(KeyQuantity).Number())
}

func TestAddRowExhaustionIsNoop(t *testing.T) {
	s := NewDocumentStore("receipt", testProducts, nil)
	s.SeedTemplate()
	require.True(t, s.AddRow())
	require.True(t, s.AddRow())
	require.True(t, s.AddRow())
	before := s.Rows()

	assert.False(t, s.AddRow())
	assert.Equal(t, before, s.Rows())
}

func TestAddRowWithoutSelectColumnAlwaysAdds(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	for i := 0; i < 5; i++ {
		require.True(t, s.AddRow())
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(s.Rows()))
}

func TestIDsStayUniqueAcrossAddAndDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.SeedTemplate()

	for step := 0; step < 500; step++ {
		if rng.Intn(3) == 0 {
			for _, r := range s.Rows() {
				s.SetSelected(r.ID, rng.Intn(2) == 0)
			}
			s.DeleteSelectedRows()
		} else {
			s.AddRow()
		}
		seen := map[int64]bool{}
		for _, r := range s.Rows() {
			require.Falsef(t, seen[r.ID], "duplicate id %d at step %d", r.ID, step)
			seen[r.ID] = true
		}
	}
}

func TestDeleteSelectedRows(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.Seed([]DraftRow{{ID: 1}, {ID: 2, Selected: true}, {ID: 3}, {ID: 4, Selected: true}})

	assert.Equal(t, 2, s.DeleteSelectedRows())
	assert.Equal(t, []int64{1, 3}, ids(s.Rows()))
	assert.Equal(t, 0, s.DeleteSelectedRows())
}

func TestUpdateFieldIgnoresUnknownID(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.SeedTemplate()

	assert.False(t, s.UpdateField(99, "amount", Number(3)))
	assert.True(t, s.UpdateField(1, "amount", Number(3)))
	row, _ := s.Row(1)
	assert.Equal(t, 3.0, row.Get("amount").Number())
	assert.True(t, row.IsTouched("amount"))
}

func TestRowsReturnsCopies(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.SeedTemplate()

	rows := s.Rows()
	rows[0].Fields["amount"] = Number(100)

	row, _ := s.Row(1)
	assert.Equal(t, 0.0, row.Get("amount").Number())
}

func TestSortIsStableByID(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.Seed([]DraftRow{{ID: 3}, {ID: 1}, {ID: 2}})

	s.SortDescending()
	assert.Equal(t, []int64{3, 2, 1}, ids(s.Rows()))
	s.SortAscending()
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Rows()))
}

func TestSelectAll(t *testing.T) {
	s := NewStore(Columns{{Key: "amount", EditKind: KindNumber}})
	s.Seed([]DraftRow{{ID: 1}, {ID: 2}})

	s.SelectAll(true)
	assert.Len(t, s.Selected(), 2)
	s.SelectAll(false)
	assert.Empty(t, s.Selected())
}
