package render

import (
	"bufio"
	"io"
	"strings"

	"github.com/yuin/goldmark/util"
	"gitlab.com/tozd/go/errors"
)

// HTML writes text with every span wrapped in a <span class="...">. Spans must
// be normalized, as returned by SemanticSpans and LineSpans.
func HTML(w io.Writer, text string, spans []Span) error {
	bw := bufio.NewWriter(w)

	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(text) {
			continue
		}
		bw.Write(util.EscapeHTML([]byte(text[pos:s.Start])))
		bw.WriteString(`<span class="`)
		bw.Write(util.EscapeHTML([]byte(strings.Join(s.Classes, " "))))
		bw.WriteString(`">`)
		bw.Write(util.EscapeHTML([]byte(text[s.Start:s.End])))
		bw.WriteString(`</span>`)
		pos = s.End
	}
	bw.Write(util.EscapeHTML([]byte(text[pos:])))

	if err := bw.Flush(); err != nil {
		return errors.Errorf("writing html: %w", err)
	}
	return nil
}
