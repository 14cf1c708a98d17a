package html

import (
	"net/http"

	sharedcontext "washdesk/frontend/shared/context"
	"washdesk/frontend/shared/nav"
)

// PageFor builds the page chrome of a request: navigation for the current operator
// and the ?status= / ?error= notices of a redirect.
func PageFor(r *http.Request, title string) Page {
	op, _ := sharedcontext.GetOperatorFromContext(r.Context())
	q := r.URL.Query()
	return Page{
		Title:        title,
		Nav:          nav.BuildTopNavData(op, r.URL.Path),
		Message:      q.Get("status"),
		Error:        q.Get("error"),
		AssetBaseURL: sharedcontext.AssetBaseURL(r.Context()),
	}
}
