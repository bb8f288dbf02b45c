package render

import (
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatANSI Format = "ansi"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatANSI, nil
	case FormatHTML, FormatANSI:
		return f, nil
	default:
		return "", errors.Errorf("unknown render format %q", s)
	}
}

// Write renders text in format. HTML output is wrapped in a pre/code block.
func Write(w io.Writer, format Format, text string, spans []Span, opts ANSIOptions) error {
	switch format {
	case FormatHTML:
		if _, err := io.WriteString(w, `<pre class="`+DefaultClassPrefix+`code"><code>`); err != nil {
			return errors.Errorf("writing html: %w", err)
		}
		if err := HTML(w, text, spans); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</code></pre>\n"); err != nil {
			return errors.Errorf("writing html: %w", err)
		}
		return nil
	case FormatANSI:
		return ANSI(w, text, spans, opts)
	default:
		return errors.Errorf("unknown render format %q", format)
	}
}
