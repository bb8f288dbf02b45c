// Package render turns decoded clangd tokens into byte ranges over the source
// text and writes them out as HTML or ANSI colored text.
package render

import (
	"slices"
	"strings"

	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

// DefaultClassPrefix is prepended to every class name.
const DefaultClassPrefix = "hl-"

// Span is a highlighted byte range of the source text.
type Span struct {
	Start int
	End   int

	// Kind is a semantic token type name, used to pick a terminal color.
	Kind    string
	Classes []string
}

// SemanticSpans places relative stream tokens on text. Columns are counted in
// enc units.
func SemanticSpans(idx *position.Index, tokens []semtok.SemanticToken, enc position.Encoding, prefix string) []Span {
	spans := make([]Span, 0, len(tokens))
	for _, tok := range tokens {
		start, end := idx.Span(tok.Line, tok.StartColumn, tok.Length, enc)
		classes := make([]string, 0, 1+len(tok.TokenModifiers))
		classes = append(classes, prefix+tok.TokenType)
		for _, mod := range tok.TokenModifiers {
			classes = append(classes, prefix+mod)
		}
		spans = append(spans, Span{Start: start, End: end, Kind: tok.TokenType, Classes: classes})
	}
	return normalize(spans)
}

// LineSpans places legacy line tokens on text. Inactive lines become a single
// span of kind comment with an extra "inactive" class.
func LineSpans(idx *position.Index, lines []semtok.HighlightedLine, enc position.Encoding, prefix string) []Span {
	var spans []Span
	for _, line := range lines {
		if line.IsInactive {
			start, end := idx.Span(line.Line, 0, ^uint32(0), enc)
			spans = append(spans, Span{Start: start, End: end, Kind: "comment", Classes: []string{prefix + "inactive"}})
		}
		for _, tok := range line.Tokens {
			start, end := idx.Span(line.Line, tok.StartOffset, uint32(tok.Length), enc)
			classes := make([]string, 0, len(tok.ScopePath))
			for _, scope := range tok.ScopePath {
				classes = append(classes, prefix+strings.ReplaceAll(scope, ".", "-"))
			}
			spans = append(spans, Span{Start: start, End: end, Kind: KindForScopes(tok.ScopePath), Classes: classes})
		}
	}
	return normalize(spans)
}

var scopeKinds = []struct {
	prefix string
	kind   string
}{
	{"entity.name.function.preprocessor", "macro"},
	{"entity.name.function.method", "member"},
	{"entity.name.function", "function"},
	{"entity.name.namespace", "namespace"},
	{"entity.name.type.class", "class"},
	{"entity.name.type.enum", "enum"},
	{"entity.name.type.template", "typeParameter"},
	{"entity.name.type", "type"},
	{"variable.other.enummember", "enumMember"},
	{"variable.other.field", "property"},
	{"variable.parameter", "parameter"},
	{"variable", "variable"},
	{"storage.type.primitive", "type"},
	{"meta.disabled", "comment"},
}

// KindForScopes maps a TextMate scope path onto the closest semantic token
// type. The most specific scope wins.
func KindForScopes(path []string) string {
	for i := len(path) - 1; i >= 0; i-- {
		for _, sk := range scopeKinds {
			if path[i] == sk.prefix || strings.HasPrefix(path[i], sk.prefix+".") {
				return sk.kind
			}
		}
	}
	return ""
}

// normalize drops empty spans, sorts by start and removes spans overlapping
// an earlier one.
func normalize(spans []Span) []Span {
	spans = slices.DeleteFunc(spans, func(s Span) bool {
		return s.End <= s.Start
	})
	slices.SortStableFunc(spans, func(a, b Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})

	out := spans[:0]
	end := 0
	for _, s := range spans {
		if s.Start < end {
			continue
		}
		out = append(out, s)
		end = s.End
	}
	return out
}
