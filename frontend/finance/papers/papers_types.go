package papers

import (
	"github.com/shopspring/decimal"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
)

// Paper is one ledger row joined with its type and location names.
type Paper struct {
	ID             int64           `bun:"id" json:"id"`
	PaperTypeID    int64           `bun:"paper_type_id" json:"paperTypeId"`
	PaperTypeName  string          `bun:"paper_type_name" json:"paperTypeName"`
	PaperKind      string          `bun:"paper_kind" json:"paperKind"`
	OrganizationID int64           `bun:"organization_id" json:"organizationId"`
	LocationID     *int64          `bun:"location_id" json:"locationId"`
	LocationName   string          `bun:"location_name" json:"locationName"`
	EventDate      string          `bun:"event_date" json:"eventDate"`
	Amount         decimal.Decimal `bun:"amount" json:"amount"`
	Comment        string          `bun:"comment" json:"comment"`
}

// ListResult is the JSON body of GET /api/manager-papers.
type ListResult struct {
	Items []Paper `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

// Summary aggregates the ledger rows matching a filter.
type Summary struct {
	Receipts     decimal.Decimal `json:"receipts"`
	Expenditures decimal.Decimal `json:"expenditures"`
	Balance      decimal.Decimal `json:"balance"`
}

// CreateInput is the body of POST /api/manager-papers.
type CreateInput struct {
	PaperTypeID    int64           `json:"paperTypeId"`
	OrganizationID int64           `json:"organizationId"`
	LocationID     *int64          `json:"locationId,omitempty"`
	EventDate      string          `json:"eventDate"`
	Amount         decimal.Decimal `json:"amount"`
	Comment        string          `json:"comment"`
}

// DeleteInput is the body of DELETE /api/manager-papers.
type DeleteInput struct {
	IDs []int64 `json:"ids"`
}

type DeleteResult struct {
	Deleted int `json:"deleted"`
}

// Option lists for the ledger page.
type Lookups struct {
	Organizations []drafttable.Option
	Locations     []drafttable.Option
	PaperTypes    []drafttable.Option
}

type LedgerPageData struct {
	Page     html.Page
	Filter   sharedcontext.Filter
	Result   ListResult
	Summary  Summary
	Lookups  Lookups
	Session  *drafttable.LedgerSession
	Columns  drafttable.Columns
	Errors   drafttable.ValidationErrors
	Pages    int
	PageHref func(page int) string
	// Query is the encoded filter, kept on edit links and forms.
	Query string
}
