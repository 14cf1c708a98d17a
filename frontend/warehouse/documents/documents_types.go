package documents

import (
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
	"washdesk/models"
)

// DetailLine is a stored line as served by GET /api/documents/{id}.
type DetailLine struct {
	ID int64 `json:"id"`
	drafttable.LinePayload
}

// Detail is the JSON body of a single document.
type Detail struct {
	Document models.Document `json:"document"`
	Details  []DetailLine    `json:"details"`
}

// Payload rebuilds the submission body of a stored document.
func (d Detail) Payload() drafttable.DocumentPayload {
	p := drafttable.DocumentPayload{
		Kind:          d.Document.Kind,
		WarehouseID:   d.Document.WarehouseID,
		ResponsibleID: d.Document.ResponsibleID,
		Details:       make([]drafttable.LinePayload, 0, len(d.Details)),
	}
	if !d.Document.CarryingAt.IsZero() {
		p.CarryingAt = drafttable.PlainDate(d.Document.CarryingAt).Format(drafttable.DateLayout)
	}
	for _, l := range d.Details {
		p.Details = append(p.Details, l.LinePayload)
	}
	return p
}

// Rows seeds a draft store with the stored lines, keyed by their server ids.
func (d Detail) Rows() []drafttable.DraftRow {
	rows := make([]drafttable.DraftRow, 0, len(d.Details))
	for _, l := range d.Details {
		rows = append(rows, drafttable.LineRow(l.ID, l.LinePayload))
	}
	return rows
}

// ReceiverID is the destination warehouse of a move, taken from its lines.
func (d Detail) ReceiverID() int64 {
	h, _ := d.Payload().Header()
	return h.ReceiverID
}

// ListItem is one row of the documents list.
type ListItem struct {
	ID            int64   `bun:"id" json:"id"`
	PublicID      string  `bun:"public_id" json:"publicId"`
	Kind          string  `bun:"kind" json:"kind"`
	Status        string  `bun:"status" json:"status"`
	WarehouseID   int64   `bun:"warehouse_id" json:"warehouseId"`
	WarehouseName string  `bun:"warehouse_name" json:"warehouseName"`
	Responsible   string  `bun:"responsible" json:"responsible"`
	CarryingAt    string  `bun:"carrying_at" json:"carryingAt"`
	LineCount     int     `bun:"line_count" json:"lineCount"`
	TotalQuantity float64 `bun:"total_quantity" json:"totalQuantity"`
}

// ListResult is the JSON body of GET /api/documents.
type ListResult struct {
	Items []ListItem `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

type ListPageData struct {
	Page       html.Page
	Result     ListResult
	Warehouses []drafttable.Option
	Kind       string
	Warehouse  int64
	DateStart  string
	DateEnd    string
	Pages      int
	PageHref   func(page int) string
}

// DraftPageData is everything the document draft page renders.
type DraftPageData struct {
	Page       html.Page
	DocumentID int64
	PublicID   string
	ReadOnly   bool
	Header     drafttable.DocumentHeader
	Store      *drafttable.Store
	Editor     *drafttable.Editor
	Columns    drafttable.Columns
	Errors     drafttable.ValidationErrors
	Warehouses []drafttable.Option
	Workers    []drafttable.Option
}
