package nav

import (
	"strconv"
	"strings"

	sharedcontext "washdesk/frontend/shared/context"
)

// Link is one top navigation entry.
type Link struct {
	Label  string
	Href   string
	Active bool
}

// TopNavData is shared with page renderers.
type TopNavData struct {
	OperatorName string
	Links        []Link
}

var sections = []Link{
	{Label: "Documents", Href: "/desk/documents"},
	{Label: "Stock", Href: "/desk/stock"},
	{Label: "Nomenclature", Href: "/desk/nomenclature"},
	{Label: "Ledger", Href: "/desk/papers"},
	{Label: "Exports", Href: "/desk/exports"},
	{Label: "Settings", Href: "/desk/settings/columns"},
}

// BuildTopNavData marks the section whose href prefixes path as active.
func BuildTopNavData(op sharedcontext.Operator, path string) TopNavData {
	links := make([]Link, 0, len(sections))
	for _, l := range sections {
		l.Active = strings.HasPrefix(path, l.Href)
		links = append(links, l)
	}
	name := op.Name
	if name == "" && op.ID > 0 {
		name = "Operator #" + strconv.FormatInt(op.ID, 10)
	}
	return TopNavData{OperatorName: name, Links: links}
}
