package render

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

// DefaultTabWidth is used when neither the config nor .editorconfig set one.
const DefaultTabWidth = 4

// Palette maps a token kind to its terminal color.
type Palette map[string]*color.Color

// DefaultPalette returns colors that follow fatih/color's NoColor detection,
// so output to a pipe or with NO_COLOR set stays plain. Use Force to override.
func DefaultPalette() Palette {
	return Palette{
		"namespace":     color.New(color.FgHiMagenta),
		"type":          color.New(color.FgHiGreen),
		"class":         color.New(color.FgHiGreen, color.Bold),
		"enum":          color.New(color.FgHiGreen),
		"interface":     color.New(color.FgHiGreen),
		"struct":        color.New(color.FgHiGreen),
		"typeParameter": color.New(color.FgGreen, color.Italic),
		"parameter":     color.New(color.FgHiYellow),
		"variable":      color.New(color.FgHiWhite),
		"property":      color.New(color.FgCyan),
		"enumMember":    color.New(color.FgHiCyan),
		"function":      color.New(color.FgHiBlue),
		"member":        color.New(color.FgBlue),
		"macro":         color.New(color.FgMagenta, color.Bold),
		"keyword":       color.New(color.FgHiRed),
		"modifier":      color.New(color.FgRed),
		"comment":       color.New(color.Faint),
		"string":        color.New(color.FgYellow),
		"number":        color.New(color.FgHiYellow),
		"operator":      color.New(color.FgWhite),
	}
}

// Force turns every color of p on or off regardless of the terminal.
func (p Palette) Force(enabled bool) Palette {
	for _, c := range p {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ColorMode selects when ANSI output carries escape codes.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode maps "" to ColorAuto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", errors.Errorf("unknown color mode %q", s)
	}
}

// PaletteFor returns the default palette for mode.
func PaletteFor(mode ColorMode) Palette {
	switch mode {
	case ColorAlways:
		return DefaultPalette().Force(true)
	case ColorNever:
		return DefaultPalette().Force(false)
	default:
		return DefaultPalette()
	}
}

type ANSIOptions struct {
	TabWidth int
	Palette  Palette
}

// ANSI writes text with spans colored by kind. Tabs are expanded to
// TabWidth columns.
func ANSI(w io.Writer, text string, spans []Span, opts ANSIOptions) error {
	if opts.TabWidth <= 0 {
		opts.TabWidth = DefaultTabWidth
	}
	if opts.Palette == nil {
		opts.Palette = DefaultPalette()
	}

	tw := &tabExpander{w: bufio.NewWriter(w), width: opts.TabWidth}

	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(text) {
			continue
		}
		tw.write(text[pos:s.Start], nil)
		tw.write(text[s.Start:s.End], opts.Palette[s.Kind])
		pos = s.End
	}
	tw.write(text[pos:], nil)

	if err := tw.w.Flush(); err != nil {
		return errors.Errorf("writing ansi: %w", err)
	}
	return nil
}

type tabExpander struct {
	w      *bufio.Writer
	width  int
	column int
}

func (t *tabExpander) write(s string, c *color.Color) {
	if s == "" {
		return
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\t':
			n := t.width - t.column%t.width
			b.WriteString(strings.Repeat(" ", n))
			t.column += n
		case '\n':
			b.WriteRune(r)
			t.column = 0
		default:
			b.WriteRune(r)
			if r != '\r' && r != utf8.RuneError {
				t.column++
			}
		}
	}
	if c == nil {
		t.w.WriteString(b.String())
		return
	}
	// color per line so a reset always precedes the newline
	lines := strings.SplitAfter(b.String(), "\n")
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		if body != "" {
			t.w.WriteString(c.Sprint(body))
		}
		if len(body) < len(line) {
			t.w.WriteByte('\n')
		}
	}
}

// TabWidthFor returns the tab width .editorconfig sets for path, falling back
// to fallback when nothing applies.
func TabWidthFor(path string, fallback int) int {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil || def == nil {
		return fallback
	}
	if def.TabWidth > 0 {
		return def.TabWidth
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		return n
	}
	return fallback
}
