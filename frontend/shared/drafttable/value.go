// Package drafttable holds the editable draft-table model shared by the warehouse
// document screens and the finance ledger: a row store, per-cell input resolution and
// the reconciliation of edited rows into backend payloads.
package drafttable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the edit kind of a column and the tag of a Value.
type Kind int

const (
	KindText Kind = iota + 1
	KindNumber
	KindDate
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindSelect:
		return "select"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "number":
		return KindNumber, nil
	case "date":
		return KindDate, nil
	case "select":
		return KindSelect, nil
	}
	return 0, fmt.Errorf("unknown value kind %q", s)
}

// DateLayout is the canonical raw form of a date cell.
const DateLayout = "2006-01-02"

// DateRange is an inclusive start/end pair of plain dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Value is a tagged union of the cell types a draft row can hold.
// The zero Value has no kind and equals only another zero Value.
type Value struct {
	kind    Kind
	text    string
	number  float64
	date    time.Time
	end     time.Time
	isRange bool
	option  int64
}

func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Number(f float64) Value { return Value{kind: KindNumber, number: f} }
func Select(id int64) Value  { return Value{kind: KindSelect, option: id} }
func Date(t time.Time) Value { return Value{kind: KindDate, date: PlainDate(t)} }
func Range(start, end time.Time) Value {
	return Value{kind: KindDate, date: PlainDate(start), end: PlainDate(end), isRange: true}
}

// PlainDate drops the clock and location of t.
func PlainDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (v Value) Kind() Kind       { return v.kind }
func (v Value) Text() string     { return v.text }
func (v Value) Number() float64  { return v.number }
func (v Value) Date() time.Time  { return v.date }
func (v Value) SelectID() int64  { return v.option }
func (v Value) IsRange() bool    { return v.isRange }
func (v Value) IsZero() bool     { return v == Value{} }
func (v Value) Range() DateRange { return DateRange{Start: v.date, End: v.end} }

// Equal compares two values of the same kind. Dates compare as plain dates.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.number == o.number
	case KindSelect:
		return v.option == o.option
	case KindDate:
		if v.isRange != o.isRange {
			return false
		}
		if !PlainDate(v.date).Equal(PlainDate(o.date)) {
			return false
		}
		return !v.isRange || PlainDate(v.end).Equal(PlainDate(o.end))
	}
	return true
}

// Raw renders the value the way an input field carries it.
func (v Value) Raw() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindSelect:
		return strconv.FormatInt(v.option, 10)
	case KindDate:
		if v.isRange {
			return formatDate(v.date) + ".." + formatDate(v.end)
		}
		return formatDate(v.date)
	}
	return ""
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func (v Value) String() string { return v.Raw() }

type valueJSON struct {
	Kind   string   `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Date   string   `json:"date,omitempty"`
	End    string   `json:"end,omitempty"`
	Range  bool     `json:"range,omitempty"`
	Option *int64   `json:"option,omitempty"`
}

// MarshalJSON keeps the kind tag so a draft snapshot round-trips through a form.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	out := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindText:
		out.Text = v.text
	case KindNumber:
		n := v.number
		out.Number = &n
	case KindSelect:
		o := v.option
		out.Option = &o
	case KindDate:
		out.Date = formatDate(v.date)
		if v.isRange {
			out.End = formatDate(v.end)
			out.Range = true
		}
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	var in valueJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case KindText:
		*v = Text(in.Text)
	case KindNumber:
		var n float64
		if in.Number != nil {
			n = *in.Number
		}
		*v = Number(n)
	case KindSelect:
		var o int64
		if in.Option != nil {
			o = *in.Option
		}
		*v = Select(o)
	case KindDate:
		start, err := parseOptionalDate(in.Date)
		if err != nil {
			return err
		}
		if !in.Range {
			*v = Date(start)
			return nil
		}
		end, err := parseOptionalDate(in.End)
		if err != nil {
			return err
		}
		*v = Range(start, end)
	}
	return nil
}

func parseOptionalDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}
