package settings

import (
	"washdesk/frontend/shared/drafttable"
	"washdesk/frontend/shared/html"
)

// Table is one configurable table of the desk.
type Table struct {
	Key     string
	Label   string
	Columns drafttable.Columns
}

type ColumnsPageData struct {
	Page    html.Page
	Tables  []Table
	Visible map[string]func(key string) bool
}
