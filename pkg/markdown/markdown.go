// Package markdown converts markdown to HTML, highlighting C family fenced
// code blocks through clangd.
package markdown

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/render"
)

// DefaultLanguages are the fenced block languages sent to clangd.
var DefaultLanguages = []string{"c", "cpp", "c++", "cc", "cxx", "h", "hpp", "objc"}

type Highlighter interface {
	Code(ctx context.Context, lang, code string) ([]render.Span, error)
}

type Options struct {
	Languages   []string
	ClassPrefix string

	// Strict fails the conversion when a block cannot be highlighted instead
	// of rendering it plain.
	Strict bool
}

// Stats counts the fenced code blocks of one conversion.
type Stats struct {
	Blocks      int
	Highlighted int
	Failed      int
}

// Converter renders markdown with goldmark, replacing the fenced code block
// renderer.
type Converter struct {
	hl        Highlighter
	opts      Options
	languages map[string]bool
}

func New(hl Highlighter, opts Options) *Converter {
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultLanguages
	}
	if opts.ClassPrefix == "" {
		opts.ClassPrefix = render.DefaultClassPrefix
	}
	languages := make(map[string]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		languages[strings.ToLower(l)] = true
	}
	return &Converter{hl: hl, opts: opts, languages: languages}
}

// Matches reports whether blocks tagged lang are highlighted.
func (c *Converter) Matches(lang string) bool {
	return c.languages[strings.ToLower(lang)]
}

// Languages returns the configured languages, sorted.
func (c *Converter) Languages() []string {
	out := make([]string, 0, len(c.languages))
	for l := range c.languages {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func (c *Converter) Convert(ctx context.Context, src []byte, w io.Writer) (Stats, error) {
	cr := &codeBlockRenderer{ctx: ctx, conv: c}

	md := goldmark.New(
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(cr, 100)),
		),
	)

	if err := md.Convert(src, w); err != nil {
		return cr.stats, errors.Errorf("converting markdown: %w", err)
	}
	return cr.stats, nil
}

type codeBlockRenderer struct {
	ctx   context.Context
	conv  *Converter
	stats Stats
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	r.stats.Blocks++

	var lang string
	if l := n.Language(source); l != nil {
		lang = strings.ToLower(string(l))
	}

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	var spans []render.Span
	if lang != "" && r.conv.Matches(lang) {
		var err error
		spans, err = r.conv.hl.Code(r.ctx, lang, code.String())
		switch {
		case err != nil && r.conv.opts.Strict:
			return ast.WalkStop, errors.Errorf("highlighting %s block: %w", lang, err)
		case err != nil:
			r.stats.Failed++
			spans = nil
			zerolog.Ctx(r.ctx).Warn().Err(err).Str("lang", lang).Msg("rendering code block without highlighting")
		default:
			r.stats.Highlighted++
		}
	}

	_, _ = w.WriteString(`<pre class="` + r.conv.opts.ClassPrefix + `code"><code`)
	if lang != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_, _ = w.WriteString(`"`)
	}
	_ = w.WriteByte('>')
	if err := render.HTML(w, code.String(), spans); err != nil {
		return ast.WalkStop, err
	}
	_, _ = w.WriteString("</code></pre>\n")

	return ast.WalkSkipChildren, nil
}
