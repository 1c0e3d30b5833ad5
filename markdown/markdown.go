// Package markdown renders post content to HTML with GitHub flavoured
// extensions and chroma syntax highlighting. Fenced code blocks get a
// language badge and a copy button.
package markdown

import (
	"bytes"
	"context"
	"html"
	"html/template"
	"io"

	"github.com/a-h/templ"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

const (
	lightStyle = "github"
	darkStyle  = "monokai"
)

var (
	light = newRenderer(lightStyle)
	dark  = newRenderer(darkStyle)
)

func newRenderer(style string) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.TabWidth(4)),
				highlighting.WithWrapperRenderer(codeWrapper),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

// codeWrapper surrounds every fenced block with the header markup app.js
// hooks the copy button onto.
func codeWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	if entering {
		lang := "text"
		if l, ok := ctx.Language(); ok && len(l) > 0 {
			lang = string(l)
		}
		lang = html.EscapeString(lang)
		w.WriteString(`<div class="code-block" data-lang="` + lang + `">`)
		w.WriteString(`<div class="code-header"><span class="code-lang">` + lang + `</span>`)
		w.WriteString(`<button type="button" class="code-copy" data-copy-code>Copy</button></div>`)
		if !ctx.Highlighted() {
			w.WriteString(`<pre class="code-plain"><code>`)
		}
		return
	}
	if !ctx.Highlighted() {
		w.WriteString("</code></pre>")
	}
	w.WriteString("</div>\n")
}

// Render writes the HTML for content to w.
func Render(w io.Writer, content string, darkMode bool) error {
	md := light
	if darkMode {
		md = dark
	}
	return md.Convert([]byte(content), w)
}

// HTML returns rendered content for use inside html/template pages.
// Rendering errors yield an empty fragment.
func HTML(content string, darkMode bool) template.HTML {
	var buf bytes.Buffer
	if err := Render(&buf, content, darkMode); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string, darkMode bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Render(w, content, darkMode)
	})
}
