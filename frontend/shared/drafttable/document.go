package drafttable

import (
	"math"
	"time"

	"washdesk/models"
)

// Column keys of warehouse document tables. They double as JSON keys of a line.
const (
	KeyNomenclature = "nomenclatureId"
	KeyQuantity     = "quantity"
	KeyComment      = "comment"
	KeyOldQuantity  = "oldQuantity"
	KeyDeviation    = "deviation"
)

// Document-level field keys used in validation errors.
const (
	KeyWarehouse   = "warehouseId"
	KeyReceiver    = "warehouseReceirId"
	KeyResponsible = "responsibleId"
	KeyKind        = "kind"
	KeyDetails     = "details"
)

// DocumentColumns returns the line columns for a document kind. products fills the
// nomenclature select.
func DocumentColumns(kind string, products []Option) Columns {
	cols := Columns{
		{Key: KeyNomenclature, Label: "Product", EditKind: KindSelect, Options: products},
		{Key: KeyQuantity, Label: "Quantity", EditKind: KindNumber},
	}
	if kind == models.KindInventory {
		cols = append(cols,
			ColumnSpec{Key: KeyOldQuantity, Label: "On hand", EditKind: KindNumber},
			ColumnSpec{Key: KeyDeviation, Label: "Deviation", EditKind: KindNumber, ReadOnly: true},
		)
	}
	return append(cols, ColumnSpec{Key: KeyComment, Label: "Comment", EditKind: KindText})
}

// ValidKind reports whether kind is a known document kind.
func ValidKind(kind string) bool {
	switch kind {
	case models.KindReceipt, models.KindMoving, models.KindInventory:
		return true
	}
	return false
}

// BaselineFunc returns the latest known on-hand quantity of a product.
type BaselineFunc func(nomenclatureID int64) (float64, bool)

// InventoryDeriver keeps deviation = quantity - oldQuantity. oldQuantity follows the
// baseline until the user edits it; choosing another product resets it to the baseline.
func InventoryDeriver(baseline BaselineFunc) DeriveFunc {
	refresh := func(row *DraftRow) {
		var onHand float64
		if id := row.Get(KeyNomenclature).SelectID(); id != 0 && baseline != nil {
			if q, ok := baseline(id); ok {
				onHand = q
			}
		}
		row.Fields[KeyOldQuantity] = Number(onHand)
	}
	return func(prev, next DraftRow, key string) DraftRow {
		switch key {
		case KeyNomenclature:
			if prev.Get(key).SelectID() != next.Get(key).SelectID() {
				delete(next.Touched, KeyOldQuantity)
				refresh(&next)
			}
		case KeyQuantity:
			if !next.IsTouched(KeyOldQuantity) {
				refresh(&next)
			}
		}
		next.Fields[KeyDeviation] = Number(next.Get(KeyQuantity).Number() - next.Get(KeyOldQuantity).Number())
		return next
	}
}

// NewDocumentStore builds the store for a document kind, wiring the inventory deriver
// when needed.
func NewDocumentStore(kind string, products []Option, baseline BaselineFunc) *Store {
	var opts []StoreOption
	if kind == models.KindInventory {
		opts = append(opts, WithDeriver(InventoryDeriver(baseline)))
	}
	return NewStore(DocumentColumns(kind, products), opts...)
}

// DocumentHeader is the part of a document that is not a line.
type DocumentHeader struct {
	Kind          string
	WarehouseID   int64
	ReceiverID    int64
	ResponsibleID int64
	CarryingAt    time.Time
}

// LineMeta carries the kind-specific part of a line. The receiver key spelling is the
// backend contract.
type LineMeta struct {
	WarehouseReceiverID *int64   `json:"warehouseReceirId,omitempty"`
	OldQuantity         *float64 `json:"oldQuantity,omitempty"`
	Deviation           *float64 `json:"deviation,omitempty"`
}

// LinePayload is one submitted document line.
type LinePayload struct {
	NomenclatureID int64     `json:"nomenclatureId"`
	Quantity       float64   `json:"quantity"`
	Comment        string    `json:"comment"`
	MetaData       *LineMeta `json:"metaData,omitempty"`
}

// DocumentPayload is the body of create, update and send calls.
type DocumentPayload struct {
	Kind          string        `json:"kind"`
	WarehouseID   int64         `json:"warehouseId"`
	ResponsibleID int64         `json:"responsibleId"`
	CarryingAt    string        `json:"carryingAt"`
	Details       []LinePayload `json:"details"`
}

// Header returns the document header of a payload. The receiver of a move is read
// from its first line.
func (p DocumentPayload) Header() (DocumentHeader, error) {
	h := DocumentHeader{Kind: p.Kind, WarehouseID: p.WarehouseID, ResponsibleID: p.ResponsibleID}
	if p.CarryingAt != "" {
		d, err := ParseDate(p.CarryingAt)
		if err != nil {
			return h, err
		}
		h.CarryingAt = d
	}
	for _, l := range p.Details {
		if l.MetaData != nil && l.MetaData.WarehouseReceiverID != nil {
			h.ReceiverID = *l.MetaData.WarehouseReceiverID
			break
		}
	}
	return h, nil
}

// Rows turns submitted lines back into draft rows numbered from 1, all selected.
func (p DocumentPayload) Rows() []DraftRow {
	rows := make([]DraftRow, 0, len(p.Details))
	for i, l := range p.Details {
		row := LineRow(int64(i+1), l)
		row.Selected = true
		rows = append(rows, row)
	}
	return rows
}

// LineRow converts a stored or submitted line into a draft row.
func LineRow(id int64, l LinePayload) DraftRow {
	row := DraftRow{ID: id, Fields: map[string]Value{
		KeyNomenclature: Select(l.NomenclatureID),
		KeyQuantity:     Number(l.Quantity),
		KeyComment:      Text(l.Comment),
	}}
	if l.MetaData != nil {
		if l.MetaData.OldQuantity != nil {
			row.Fields[KeyOldQuantity] = Number(*l.MetaData.OldQuantity)
		}
		if l.MetaData.Deviation != nil {
			row.Fields[KeyDeviation] = Number(*l.MetaData.Deviation)
		}
	}
	return row
}

// DeriveInventoryLines makes every inventory line carry deviation = quantity -
// oldQuantity. A missing oldQuantity counts as zero and a missing deviation is
// filled in; a submitted deviation that disagrees is reported against its row,
// numbered from 1 like Rows.
func DeriveInventoryLines(p *DocumentPayload) ValidationErrors {
	if p.Kind != models.KindInventory {
		return nil
	}
	var errs ValidationErrors
	for i := range p.Details {
		l := &p.Details[i]
		if l.MetaData == nil {
			l.MetaData = &LineMeta{}
		}
		var old float64
		if l.MetaData.OldQuantity != nil {
			old = *l.MetaData.OldQuantity
		}
		dev := l.Quantity - old
		if l.MetaData.Deviation != nil && math.Abs(*l.MetaData.Deviation-dev) > 1e-9 {
			errs.Add(int64(i+1), KeyDeviation, "deviation must equal quantity minus on-hand quantity")
			continue
		}
		l.MetaData.OldQuantity = &old
		l.MetaData.Deviation = &dev
	}
	return errs
}

// ValidateDocument checks the header and the selected rows before anything is sent.
func ValidateDocument(h DocumentHeader, selected []DraftRow) ValidationErrors {
	var errs ValidationErrors
	if !ValidKind(h.Kind) {
		errs.Add(0, KeyKind, "unknown document kind")
	}
	if h.WarehouseID == 0 {
		errs.Add(0, KeyWarehouse, "choose a warehouse")
	}
	if h.Kind == models.KindMoving {
		switch {
		case h.ReceiverID == 0:
			errs.Add(0, KeyReceiver, "choose a destination warehouse")
		case h.ReceiverID == h.WarehouseID:
			errs.Add(0, KeyReceiver, "destination must differ from the source warehouse")
		}
	}
	if len(selected) == 0 {
		errs.Add(0, KeyDetails, "select at least one row")
	}
	for _, r := range selected {
		if r.Get(KeyNomenclature).SelectID() == 0 {
			errs.Add(r.ID, KeyNomenclature, "choose a product")
		}
		if r.Get(KeyQuantity).Number() <= 0 {
			errs.Add(r.ID, KeyQuantity, "quantity must be greater than zero")
		}
	}
	return errs
}

// SelectedPayload maps the selected rows, in store order, to lines of the given header.
func SelectedPayload(store *Store, h DocumentHeader) []LinePayload {
	selected := store.Selected()
	lines := make([]LinePayload, 0, len(selected))
	for _, r := range selected {
		lines = append(lines, linePayload(r, h))
	}
	return lines
}

func linePayload(r DraftRow, h DocumentHeader) LinePayload {
	l := LinePayload{
		NomenclatureID: r.Get(KeyNomenclature).SelectID(),
		Quantity:       r.Get(KeyQuantity).Number(),
		Comment:        r.Get(KeyComment).Text(),
	}
	switch h.Kind {
	case models.KindMoving:
		receiver := h.ReceiverID
		l.MetaData = &LineMeta{WarehouseReceiverID: &receiver}
	case models.KindInventory:
		old := r.Get(KeyOldQuantity).Number()
		dev := r.Get(KeyDeviation).Number()
		l.MetaData = &LineMeta{OldQuantity: &old, Deviation: &dev}
	}
	return l
}

// BuildDocumentPayload validates and serializes a document. Nothing is returned when
// validation fails.
func BuildDocumentPayload(h DocumentHeader, store *Store) (DocumentPayload, ValidationErrors) {
	if errs := ValidateDocument(h, store.Selected()); len(errs) > 0 {
		return DocumentPayload{}, errs
	}
	carrying := ""
	if !h.CarryingAt.IsZero() {
		carrying = PlainDate(h.CarryingAt).Format(DateLayout)
	}
	return DocumentPayload{
		Kind:          h.Kind,
		WarehouseID:   h.WarehouseID,
		ResponsibleID: h.ResponsibleID,
		CarryingAt:    carrying,
		Details:       SelectedPayload(store, h),
	}, nil
}
