package drafttable

import "time"

// Option is one choice of a select column.
type Option struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// ColumnSpec describes how one column is displayed and edited. It is static per
// table type and never changes during a session.
type ColumnSpec struct {
	Key      string
	Label    string
	EditKind Kind
	Options  []Option
	// Range marks date columns that hold a start/end pair instead of a single day.
	Range bool
	// ReadOnly columns are derived and never rendered as inputs.
	ReadOnly bool
}

// Zero is the value a freshly added row holds in this column.
func (c ColumnSpec) Zero() Value {
	switch c.EditKind {
	case KindNumber:
		return Number(0)
	case KindDate:
		if c.Range {
			return Range(time.Time{}, time.Time{})
		}
		return Date(time.Time{})
	case KindSelect:
		return Select(0)
	default:
		return Text("")
	}
}

// OptionLabel returns the label of the option with the given value.
func (c ColumnSpec) OptionLabel(v int64) (string, bool) {
	for _, o := range c.Options {
		if o.Value == v {
			return o.Label, true
		}
	}
	return "", false
}

func (c ColumnSpec) hasOption(v int64) bool {
	_, ok := c.OptionLabel(v)
	return ok
}

// Columns is the ordered column set of a table.
type Columns []ColumnSpec

// Find returns the column with the given key.
func (cs Columns) Find(key string) (ColumnSpec, bool) {
	for _, c := range cs {
		if c.Key == key {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// FirstSelect returns the first select-kind column.
func (cs Columns) FirstSelect() (ColumnSpec, bool) {
	for _, c := range cs {
		if c.EditKind == KindSelect {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Keys lists column keys in order.
func (cs Columns) Keys() []string {
	keys := make([]string, 0, len(cs))
	for _, c := range cs {
		keys = append(keys, c.Key)
	}
	return keys
}

// Visible filters the set down to the keys reported visible. A nil predicate keeps all.
func (cs Columns) Visible(visible func(key string) bool) Columns {
	if visible == nil {
		return cs
	}
	out := make(Columns, 0, len(cs))
	for _, c := range cs {
		if visible(c.Key) {
			out = append(out, c)
		}
	}
	return out
}
