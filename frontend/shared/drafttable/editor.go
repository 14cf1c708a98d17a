package drafttable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EditMode decides which rows of a table accept input.
type EditMode int

const (
	// EditGlobal makes every row editable at once (document creation).
	EditGlobal EditMode = iota
	// EditPerRow allows a single row in edit mode at a time (ledger).
	EditPerRow
)

// ErrAlreadyEditing is returned when a per-row table is asked to edit a second row.
var ErrAlreadyEditing = errors.New("another row is already being edited")

// ErrUnknownRow is returned for an id the store does not hold.
var ErrUnknownRow = errors.New("unknown row")

// FieldError is an input or validation problem attached to one cell. RowID 0 marks a
// document-level field such as the warehouse.
type FieldError struct {
	RowID   int64
	Key     string
	Message string
}

func (e *FieldError) Error() string {
	if e.RowID == 0 {
		return fmt.Sprintf("%s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("row %d %s: %s", e.RowID, e.Key, e.Message)
}

// Cell is what a renderer needs to draw one (row, column) pair.
type Cell struct {
	RowID    int64
	Key      string
	Editable bool
	Kind     Kind
	// Display is the static text shown when the cell is not editable.
	Display string
	// Raw is the current input value when the cell is editable.
	Raw     string
	Options []Option
	Range   bool
}

// Editor resolves cells and feeds input back into a Store.
type Editor struct {
	mode    EditMode
	editing int64
}

// NewEditor returns an editor in the given mode with no row in edit mode.
func NewEditor(mode EditMode) *Editor {
	return &Editor{mode: mode}
}

// Mode returns the edit mode.
func (e *Editor) Mode() EditMode { return e.mode }

// Editing returns the id of the row in edit mode, or 0.
func (e *Editor) Editing() int64 { return e.editing }

// Begin puts a row into edit mode. In per-row mode a second row is rejected until the
// first one is ended.
func (e *Editor) Begin(id int64) error {
	if e.mode == EditGlobal {
		return nil
	}
	if e.editing != 0 && e.editing != id {
		return ErrAlreadyEditing
	}
	e.editing = id
	return nil
}

// End leaves edit mode.
func (e *Editor) End() { e.editing = 0 }

// IsEditing reports whether the given row currently accepts input.
func (e *Editor) IsEditing(id int64) bool {
	if e.mode == EditGlobal {
		return true
	}
	return e.editing != 0 && e.editing == id
}

// Resolve decides between a static display value and an input for one cell.
func (e *Editor) Resolve(row DraftRow, col ColumnSpec) Cell {
	v := row.Get(col.Key)
	cell := Cell{
		RowID:   row.ID,
		Key:     col.Key,
		Kind:    col.EditKind,
		Display: DisplayValue(col, v),
		Range:   col.Range,
	}
	if col.ReadOnly || !e.IsEditing(row.ID) {
		return cell
	}
	cell.Editable = true
	cell.Raw = v.Raw()
	cell.Options = col.Options
	return cell
}

// DisplayValue renders a value for read-only display: option labels for selects and
// dd.mm.yyyy for dates.
func DisplayValue(col ColumnSpec, v Value) string {
	switch col.EditKind {
	case KindSelect:
		if label, ok := col.OptionLabel(v.SelectID()); ok {
			return label
		}
		if v.SelectID() == 0 {
			return ""
		}
		return strconv.FormatInt(v.SelectID(), 10)
	case KindDate:
		if v.IsRange() {
			r := v.Range()
			return displayDate(r.Start) + " - " + displayDate(r.End)
		}
		return displayDate(v.Date())
	}
	return v.Raw()
}

func displayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}

// Apply coerces raw input for the column and writes it into the store right away.
// Input for a row that is not in edit mode is refused.
func (e *Editor) Apply(store *Store, id int64, key, raw string) error {
	col, ok := store.Columns().Find(key)
	if !ok {
		return &FieldError{RowID: id, Key: key, Message: "unknown column"}
	}
	if col.ReadOnly {
		return &FieldError{RowID: id, Key: key, Message: "column is read-only"}
	}
	if !e.IsEditing(id) {
		return &FieldError{RowID: id, Key: key, Message: "row is not being edited"}
	}
	v, err := ParseInput(col, raw)
	if err != nil {
		return &FieldError{RowID: id, Key: key, Message: err.Error()}
	}
	if !store.UpdateField(id, key, v) {
		return &FieldError{RowID: id, Key: key, Message: "unknown row"}
	}
	return nil
}

// ParseInput turns the raw text of an input into a Value of the column's kind.
func ParseInput(col ColumnSpec, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	switch col.EditKind {
	case KindNumber:
		n, err := ParseNumber(raw)
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case KindDate:
		if col.Range {
			start, end, err := ParseDateRange(raw)
			if err != nil {
				return Value{}, err
			}
			return Range(start, end), nil
		}
		d, err := ParseDate(raw)
		if err != nil {
			return Value{}, err
		}
		return Date(d), nil
	case KindSelect:
		if raw == "" {
			return Select(0), nil
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, errors.New("invalid option")
		}
		if id != 0 && len(col.Options) > 0 && !col.hasOption(id) {
			return Value{}, errors.New("unknown option")
		}
		return Select(id), nil
	}
	return Text(raw), nil
}

// ParseNumber accepts digits, one leading minus and one decimal separator ('.' or ',').
// Empty input is zero.
func ParseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	var b strings.Builder
	seenSep := false
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		case (r == '.' || r == ',') && !seenSep:
			seenSep = true
			b.WriteByte('.')
		default:
			return 0, fmt.Errorf("invalid character %q in number", r)
		}
	}
	if digits == 0 {
		return 0, errors.New("not a number")
	}
	return strconv.ParseFloat(b.String(), 64)
}

var dateLayouts = []string{DateLayout, "02.01.2006"}

// ParseDate accepts 2006-01-02 or 02.01.2006. Empty input is the zero date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return PlainDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParseDateRange parses "start..end"; both ends are required and start may not be after end.
func ParseDateRange(raw string) (time.Time, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, time.Time{}, nil
	}
	left, right, ok := strings.Cut(raw, "..")
	if !ok {
		return time.Time{}, time.Time{}, errors.New("date range must be start..end")
	}
	start, err := ParseDate(left)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(right)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, errors.New("date range needs both ends")
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errors.New("range start is after its end")
	}
	return start, end, nil
}
