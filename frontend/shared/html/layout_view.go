package html

import (
	"github.com/a-h/templ"

	"washdesk/frontend/shared/nav"
)

// Page carries the chrome shared by every desk page.
type Page struct {
	Title        string
	Nav          nav.TopNavData
	Message      string
	Error        string
	AssetBaseURL string
}

// Layout wraps body with the document shell, top navigation and notices.
func Layout(p Page, body templ.Component) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<!doctype html><html><head><meta charset="utf-8"><title>`)
		b.Text(p.Title)
		b.Rawf(`</title><link rel="stylesheet" href="%s/app.css"></head><body>`, Attr(assetBase(p.AssetBaseURL)))
		b.Child(TopNav(p.Nav))
		b.Raw(`<main class="container">`)
		b.Child(Notice(p.Message, p.Error))
		b.Child(body)
		b.Raw(`</main>`)
		b.Raw(DeskScript())
		b.Raw(`</body></html>`)
	})
}

func assetBase(base string) string {
	if base == "" {
		return "/assets"
	}
	return base
}

func TopNav(data nav.TopNavData) templ.Component {
	return Component(func(b *Builder) {
		b.Raw(`<nav class="topnav"><ul>`)
		for _, l := range data.Links {
			class := ""
			if l.Active {
				class = ` class="active"`
			}
			b.Rawf(`<li><a href="%s"%s>`, Attr(l.Href), class)
			b.Text(l.Label)
			b.Raw(`</a></li>`)
		}
		b.Raw(`</ul>`)
		if data.OperatorName != "" {
			b.Raw(`<span class="operator">`)
			b.Text(data.OperatorName)
			b.Raw(`</span>`)
		}
		b.Raw(`</nav>`)
	})
}

// Notice renders the non-blocking notification of a page.
func Notice(message, errMessage string) templ.Component {
	return Component(func(b *Builder) {
		if errMessage != "" {
			b.Raw(`<div class="alert alert-error" role="alert">`)
			b.Text(errMessage)
			b.Raw(`</div>`)
		}
		if message != "" {
			b.Raw(`<div class="alert alert-info" role="status">`)
			b.Text(message)
			b.Raw(`</div>`)
		}
	})
}
