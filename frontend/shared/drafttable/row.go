package drafttable

// DraftRow is one possibly unsaved line of an editable table.
//
// ID is either the server identity of an existing record or a locally synthesized
// sequence number. Touched records the keys the user has edited since the row was
// seeded; derivers use it to tell explicit edits from computed values.
type DraftRow struct {
	ID       int64            `json:"id"`
	Selected bool             `json:"selected"`
	Fields   map[string]Value `json:"fields"`
	Touched  map[string]bool  `json:"touched,omitempty"`
}

// Get returns the value under key, or the zero Value.
func (r DraftRow) Get(key string) Value {
	return r.Fields[key]
}

// Clone returns a deep copy so mutations never leak into the store.
func (r DraftRow) Clone() DraftRow {
	out := DraftRow{ID: r.ID, Selected: r.Selected, Fields: make(map[string]Value, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	if len(r.Touched) > 0 {
		out.Touched = make(map[string]bool, len(r.Touched))
		for k, v := range r.Touched {
			out.Touched[k] = v
		}
	}
	return out
}

// IsTouched reports whether key was edited explicitly.
func (r DraftRow) IsTouched(key string) bool {
	return r.Touched[key]
}

func (r *DraftRow) touch(key string) {
	if r.Touched == nil {
		r.Touched = make(map[string]bool)
	}
	r.Touched[key] = true
}
