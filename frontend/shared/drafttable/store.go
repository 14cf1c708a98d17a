package drafttable

import (
	"sort"
)

// DeriveFunc recomputes derived fields after key changed on a row. prev is the row
// before the edit, next the row after it; the returned row replaces next.
type DeriveFunc func(prev, next DraftRow, key string) DraftRow

// Store holds the authoritative client-side copy of a table's rows. It is owned by a
// single request or command and is not safe for concurrent use.
type Store struct {
	columns Columns
	rows    []DraftRow
	derive  DeriveFunc
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDeriver installs a derived-field hook run on every UpdateField.
func WithDeriver(fn DeriveFunc) StoreOption {
	return func(s *Store) { s.derive = fn }
}

// NewStore returns an empty store over the given columns.
func NewStore(columns Columns, opts ...StoreOption) *Store {
	s := &Store{columns: columns}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Columns returns the store's column set.
func (s *Store) Columns() Columns { return s.columns }

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

// Seed replaces all rows. The first row carrying a given positive id keeps it; rows
// with a missing or repeated id get a fresh id above every incoming id, so a
// synthesized id never takes one the server already assigned. Missing fields are
// filled with column zero values.
func (s *Store) Seed(rows []DraftRow) {
	var highest int64
	for _, r := range rows {
		if r.ID > highest {
			highest = r.ID
		}
	}
	s.rows = make([]DraftRow, 0, len(rows))
	seen := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		row := r.Clone()
		s.fillDefaults(&row)
		if _, dup := seen[row.ID]; dup || row.ID <= 0 {
			highest++
			row.ID = highest
		}
		seen[row.ID] = struct{}{}
		s.rows = append(s.rows, row)
	}
}

// SeedTemplate replaces all rows with one empty row, the starting point of a new
// document.
func (s *Store) SeedTemplate() {
	row := DraftRow{ID: 1, Fields: make(map[string]Value, len(s.columns))}
	s.fillDefaults(&row)
	s.rows = []DraftRow{row}
}

func (s *Store) fillDefaults(row *DraftRow) {
	if row.Fields == nil {
		row.Fields = make(map[string]Value, len(s.columns))
	}
	for _, c := range s.columns {
		if _, ok := row.Fields[c.Key]; !ok {
			row.Fields[c.Key] = c.Zero()
		}
	}
}

// NextID is max(existing ids, default 0) + 1.
func (s *Store) NextID() int64 {
	var highest int64
	for _, r := range s.rows {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}

// Rows returns a copy of all rows in store order.
func (s *Store) Rows() []DraftRow {
	out := make([]DraftRow, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.Clone())
	}
	return out
}

// Selected returns a copy of the selected rows in store order.
func (s *Store) Selected() []DraftRow {
	out := make([]DraftRow, 0)
	for _, r := range s.rows {
		if r.Selected {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Row returns a copy of the row with the given id.
func (s *Store) Row(id int64) (DraftRow, bool) {
	if i := s.index(id); i >= 0 {
		return s.rows[i].Clone(), true
	}
	return DraftRow{}, false
}

func (s *Store) index(id int64) int {
	for i, r := range s.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// AddRow appends a row with zero values. When the table has a select column the new
// row references the first option no existing row uses yet; if every option is taken
// the call declines and returns false.
func (s *Store) AddRow() bool {
	row := DraftRow{ID: s.NextID(), Fields: make(map[string]Value, len(s.columns))}
	s.fillDefaults(&row)

	if col, ok := s.columns.FirstSelect(); ok {
		used := make(map[int64]struct{}, len(s.rows))
		for _, r := range s.rows {
			used[r.Get(col.Key).SelectID()] = struct{}{}
		}
		picked := false
		for _, opt := range col.Options {
			if _, taken := used[opt.Value]; !taken {
				row.Fields[col.Key] = Select(opt.Value)
				picked = true
				break
			}
		}
		if !picked {
			return false
		}
	}

	s.rows = append(s.rows, row)
	return true
}

// DeleteSelectedRows removes every selected row and returns how many were removed.
func (s *Store) DeleteSelectedRows() int {
	kept := s.rows[:0]
	removed := 0
	for _, r := range s.rows {
		if r.Selected {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return removed
}

// UpdateField replaces one field of the row with the given id and runs the deriver.
// Unknown ids are ignored.
func (s *Store) UpdateField(id int64, key string, v Value) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	prev := s.rows[i].Clone()
	next := s.rows[i].Clone()
	next.Fields[key] = v
	next.touch(key)
	if s.derive != nil {
		next = s.derive(prev, next, key)
	}
	next.ID = id
	s.rows[i] = next
	return true
}

// SetSelected flips the selection flag of one row.
func (s *Store) SetSelected(id int64, selected bool) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.rows[i].Selected = selected
	return true
}

// SelectAll sets the selection flag on every row.
func (s *Store) SelectAll(selected bool) {
	for i := range s.rows {
		s.rows[i].Selected = selected
	}
}

// SortAscending orders rows by id, keeping the relative order of equal ids.
func (s *Store) SortAscending() {
	sort.SliceStable(s.rows, func(i, j int) bool { return s.rows[i].ID < s.rows[j].ID })
}

// SortDescending orders rows by id, highest first.
func (s *Store) SortDescending() {
	sort.SliceStable(s.rows, func(i, j int) bool { return s.rows[i].ID > s.rows[j].ID })
}

func (s *Store) replace(row DraftRow) bool {
	i := s.index(row.ID)
	if i < 0 {
		return false
	}
	next := row.Clone()
	s.fillDefaults(&next)
	s.rows[i] = next
	return true
}
