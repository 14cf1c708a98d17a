package exports

import (
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
)

// Run is one recorded export.
type Run struct {
	ID         int64  `bun:"id"`
	ExportType string `bun:"export_type"`
	RowCount   int    `bun:"row_count"`
	OperatorID int64  `bun:"operator_id"`
	CreatedAt  string `bun:"created_at"`
}

type PageData struct {
	Page          html.Page
	Warehouses    []drafttable.Option
	Organizations []drafttable.Option
	Runs          []Run
}

const (
	TypeDocumentsCSV = "documents_csv"
	TypePapersXLSX   = "papers_xlsx"
)
