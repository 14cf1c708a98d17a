package drafttable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Patch holds the changed fields of one ledger row, keyed by column key.
type Patch map[string]Value

// Diff returns exactly the fields of edited whose value differs from original.
// Dates compare as plain dates. A field edited away and back is equal and omitted.
func Diff(original, edited DraftRow, columns Columns) Patch {
	p := Patch{}
	for _, c := range columns {
		if c.ReadOnly {
			continue
		}
		before, after := original.Get(c.Key), edited.Get(c.Key)
		if before.Equal(after) {
			continue
		}
		p[c.Key] = after
	}
	return p
}

// Empty reports whether nothing changed.
func (p Patch) Empty() bool { return len(p) == 0 }

// Keys returns the changed keys sorted.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Body converts the patch into plain JSON values: numbers, strings, yyyy-mm-dd dates
// and option ids. Unset selects and dates become null.
func (p Patch) Body() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = plainValue(v)
	}
	return out
}

// MarshalJSON encodes the patch as its Body.
func (p Patch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Body())
}

func plainValue(v Value) any {
	switch v.Kind() {
	case KindNumber:
		return v.Number()
	case KindSelect:
		if v.SelectID() == 0 {
			return nil
		}
		return v.SelectID()
	case KindDate:
		if v.IsRange() {
			r := v.Range()
			return map[string]any{"start": formatDate(r.Start), "end": formatDate(r.End)}
		}
		if v.Date().IsZero() {
			return nil
		}
		return formatDate(v.Date())
	}
	return v.Text()
}

// ValidationErrors collects field problems found before a submit.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends one problem.
func (v *ValidationErrors) Add(rowID int64, key, message string) {
	*v = append(*v, &FieldError{RowID: rowID, Key: key, Message: message})
}

// Err returns nil when empty so callers can use it as an error.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Fields flattens the errors into "<rowId>.<key>" -> message; document-level fields
// use the bare key.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[FieldKey(fe.RowID, fe.Key)] = fe.Message
	}
	return out
}

// For returns the message for one cell, or "".
func (v ValidationErrors) For(rowID int64, key string) string {
	for _, fe := range v {
		if fe.RowID == rowID && fe.Key == key {
			return fe.Message
		}
	}
	return ""
}

// FieldKey is the flat key used in JSON error bodies.
func FieldKey(rowID int64, key string) string {
	if rowID == 0 {
		return key
	}
	return strconv.FormatInt(rowID, 10) + "." + key
}

// ValidationErrorsFromFields is the inverse of Fields, used when a backend reports
// field errors.
func ValidationErrorsFromFields(fields map[string]string) ValidationErrors {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(ValidationErrors, 0, len(fields))
	for _, k := range keys {
		var rowID int64
		key := k
		if head, tail, ok := strings.Cut(k, "."); ok {
			if id, err := strconv.ParseInt(head, 10, 64); err == nil {
				rowID, key = id, tail
			}
		}
		out.Add(rowID, key, fields[k])
	}
	return out
}

// Invalidator drops cached query results whose key starts with one of the prefixes.
type Invalidator interface {
	Invalidate(prefixes ...string)
}

// SubmitStatus is the outcome of one submit.
type SubmitStatus int

const (
	SubmitOK SubmitStatus = iota
	SubmitInvalid
	SubmitFailed
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitOK:
		return "ok"
	case SubmitInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

// Submission describes one backend mutation.
type Submission struct {
	// Validate runs before any network call; a non-empty result aborts the submit.
	Validate func() ValidationErrors
	// Call performs the mutation.
	Call func(ctx context.Context) error
	// Invalidate lists the cache prefixes to drop after a successful call.
	Invalidate []string
	// OnSuccess clears local draft state.
	OnSuccess func()
	// Action names the mutation in notices.
	Action string
}

// Result is what a page needs to render after a submit.
type Result struct {
	Status SubmitStatus
	Fields ValidationErrors
	Err    error
	Notice string
}

// OK reports a successful submit.
func (r Result) OK() bool { return r.Status == SubmitOK }

// Submitter runs validation, the backend call and cache invalidation in order.
type Submitter struct {
	cache Invalidator
}

// NewSubmitter returns a submitter invalidating entries of cache. A nil cache is allowed.
func NewSubmitter(cache Invalidator) *Submitter {
	return &Submitter{cache: cache}
}

// Submit never mutates draft rows on failure; the caller keeps them for a retry.
func (s *Submitter) Submit(ctx context.Context, sub Submission) Result {
	action := sub.Action
	if action == "" {
		action = "save"
	}
	if sub.Validate != nil {
		if errs := sub.Validate(); len(errs) > 0 {
			return Result{Status: SubmitInvalid, Fields: errs, Err: errs, Notice: "Fix the highlighted fields"}
		}
	}
	if sub.Call == nil {
		return Result{Status: SubmitFailed, Err: errors.New("no call configured"), Notice: "Could not " + action}
	}
	if err := sub.Call(ctx); err != nil {
		var fields ValidationErrors
		if errors.As(err, &fields) {
			return Result{Status: SubmitInvalid, Fields: fields, Err: err, Notice: "Fix the highlighted fields"}
		}
		return Result{Status: SubmitFailed, Err: err, Notice: fmt.Sprintf("Could not %s: %v", action, err)}
	}
	if s != nil && s.cache != nil && len(sub.Invalidate) > 0 {
		s.cache.Invalidate(sub.Invalidate...)
	}
	if sub.OnSuccess != nil {
		sub.OnSuccess()
	}
	return Result{Status: SubmitOK, Notice: "Saved"}
}

// LedgerState is the per-row state of ledger editing.
type LedgerState int

const (
	Viewing LedgerState = iota
	Editing
	Submitting
)

func (s LedgerState) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "viewing"
	}
}

// ErrInvalidTransition is returned for a state change the ledger machine does not allow.
var ErrInvalidTransition = errors.New("invalid ledger transition")

// LedgerSession drives per-row ledger editing: Viewing -> Editing -> Submitting and
// back. Only one row is editable at a time.
type LedgerSession struct {
	store     *Store
	editor    *Editor
	originals map[int64]DraftRow
	state     LedgerState
}

// NewLedgerSession seeds a session from server rows.
func NewLedgerSession(columns Columns, rows []DraftRow) *LedgerSession {
	store := NewStore(columns)
	store.Seed(rows)
	originals := make(map[int64]DraftRow, len(rows))
	for _, r := range store.Rows() {
		originals[r.ID] = r
	}
	return &LedgerSession{store: store, editor: NewEditor(EditPerRow), originals: originals}
}

func (l *LedgerSession) Store() *Store      { return l.store }
func (l *LedgerSession) Editor() *Editor    { return l.editor }
func (l *LedgerSession) State() LedgerState { return l.state }
func (l *LedgerSession) EditingID() int64   { return l.editor.Editing() }

// Original returns the server copy of a row.
func (l *LedgerSession) Original(id int64) (DraftRow, bool) {
	r, ok := l.originals[id]
	return r.Clone(), ok
}

// Edit moves a row from Viewing to Editing.
func (l *LedgerSession) Edit(id int64) error {
	if _, ok := l.originals[id]; !ok {
		return fmt.Errorf("edit row %d: %w", id, ErrUnknownRow)
	}
	switch l.state {
	case Viewing:
	case Editing:
		if l.editor.Editing() != id {
			return ErrAlreadyEditing
		}
		return nil
	default:
		return ErrInvalidTransition
	}
	if err := l.editor.Begin(id); err != nil {
		return err
	}
	l.state = Editing
	return nil
}

// Apply feeds input into the row being edited.
func (l *LedgerSession) Apply(key, raw string) error {
	if l.state != Editing {
		return ErrInvalidTransition
	}
	return l.editor.Apply(l.store, l.editor.Editing(), key, raw)
}

// Cancel discards field changes by restoring the original row.
func (l *LedgerSession) Cancel() error {
	if l.state != Editing {
		return ErrInvalidTransition
	}
	id := l.editor.Editing()
	l.store.replace(l.originals[id])
	l.editor.End()
	l.state = Viewing
	return nil
}

// BeginSubmit moves Editing to Submitting and returns the patch of the edited row.
func (l *LedgerSession) BeginSubmit() (int64, Patch, error) {
	if l.state != Editing {
		return 0, nil, ErrInvalidTransition
	}
	id := l.editor.Editing()
	edited, _ := l.store.Row(id)
	l.state = Submitting
	return id, Diff(l.originals[id], edited, l.store.Columns()), nil
}

// Succeed ends a submit: the edited row becomes the new original.
func (l *LedgerSession) Succeed() error {
	if l.state != Submitting {
		return ErrInvalidTransition
	}
	id := l.editor.Editing()
	if row, ok := l.store.Row(id); ok {
		row.Touched = nil
		l.originals[id] = row
		l.store.replace(row)
	}
	l.editor.End()
	l.state = Viewing
	return nil
}

// Fail returns to Editing with the edited values intact.
func (l *LedgerSession) Fail() error {
	if l.state != Submitting {
		return ErrInvalidTransition
	}
	l.state = Editing
	return nil
}

// Save runs BeginSubmit, the call and Succeed or Fail. An empty patch skips the call.
func (l *LedgerSession) Save(ctx context.Context, s *Submitter, call func(ctx context.Context, id int64, p Patch) error, invalidate ...string) Result {
	id, patch, err := l.BeginSubmit()
	if err != nil {
		return Result{Status: SubmitFailed, Err: err, Notice: "Nothing is being edited"}
	}
	if patch.Empty() {
		_ = l.Succeed()
		return Result{Status: SubmitOK, Notice: "No changes"}
	}
	res := s.Submit(ctx, Submission{
		Action:     "save row",
		Call:       func(ctx context.Context) error { return call(ctx, id, patch) },
		Invalidate: invalidate,
	})
	if res.OK() {
		_ = l.Succeed()
	} else {
		_ = l.Fail()
	}
	return res
}
