package drafttable

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SnapshotField is the form field carrying the JSON draft between requests.
const SnapshotField = "draft"

// InputName is the form name of one cell input.
func InputName(rowID int64, key string) string {
	return fmt.Sprintf("row[%d].%s", rowID, key)
}

// SelectedName is the form name of a row's selection checkbox.
func SelectedName(rowID int64) string {
	return fmt.Sprintf("row[%d].selected", rowID)
}

// EncodeSnapshot serializes the rows of a store for a hidden form field.
func EncodeSnapshot(s *Store) (string, error) {
	b, err := json.Marshal(s.Rows())
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot parses a hidden draft field.
func DecodeSnapshot(raw string) ([]DraftRow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("draft is missing")
	}
	var rows []DraftRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return rows, nil
}

// ApplyForm restores a store from the posted snapshot and replays every input whose
// value differs from the snapshot through the editor, in column order. Inputs that
// fail to parse are returned as field errors and leave their cell unchanged.
func ApplyForm(store *Store, ed *Editor, form url.Values) (ValidationErrors, error) {
	rows, err := DecodeSnapshot(form.Get(SnapshotField))
	if err != nil {
		return nil, err
	}
	store.Seed(rows)

	type change struct {
		id       int64
		key, raw string
	}
	var changes []change
	var errs ValidationErrors
	for _, row := range store.Rows() {
		store.SetSelected(row.ID, form.Has(SelectedName(row.ID)))
		for _, col := range store.Columns() {
			if col.ReadOnly {
				continue
			}
			name := InputName(row.ID, col.Key)
			if !form.Has(name) {
				continue
			}
			raw := form.Get(name)
			v, err := ParseInput(col, raw)
			if err != nil {
				errs.Add(row.ID, col.Key, err.Error())
				continue
			}
			if v.Equal(row.Get(col.Key)) {
				continue
			}
			changes = append(changes, change{id: row.ID, key: col.Key, raw: raw})
		}
	}
	for _, c := range changes {
		if err := ed.Apply(store, c.id, c.key, c.raw); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				errs = append(errs, fe)
				continue
			}
			return errs, err
		}
	}
	return errs, nil
}

// ParseRowIDs reads the ids of checked "ids" form values, ignoring junk.
func ParseRowIDs(values []string) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil && id > 0 {
			out = append(out, id)
		}
	}
	return out
}
