package html

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Builder writes markup and remembers the first write error.
type Builder struct {
	ctx context.Context
	w   io.Writer
	err error
}

// Raw writes trusted markup.
func (b *Builder) Raw(s string) {
	if b.err != nil {
		return
	}
	_, b.err = io.WriteString(b.w, s)
}

// Rawf writes trusted markup built from a format. Arguments are not escaped.
func (b *Builder) Rawf(format string, args ...any) {
	b.Raw(fmt.Sprintf(format, args...))
}

// Text writes escaped text.
func (b *Builder) Text(s string) {
	b.Raw(templ.EscapeString(s))
}

// Attr escapes a value for use inside a quoted attribute.
func Attr(s string) string {
	return templ.EscapeString(s)
}

// Child renders a nested component into the same writer.
func (b *Builder) Child(c templ.Component) {
	if b.err != nil || c == nil {
		return
	}
	b.err = c.Render(b.ctx, b.w)
}

func (b *Builder) Err() error { return b.err }

// Component adapts a build function into a templ component.
func Component(build func(b *Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b := &Builder{ctx: ctx, w: w}
		build(b)
		return b.err
	})
}
