package render_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/render"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

func TestSemanticSpans(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		tokens []semtok.SemanticToken
		enc    position.Encoding
		want   []render.Span
	}{
		{
			name: "two_lines",
			text: "int x = 1;\nfoo();",
			tokens: []semtok.SemanticToken{
				{Line: 0, StartColumn: 4, Length: 1, TokenType: "variable", TokenModifiers: []string{"declaration"}},
				{Line: 1, StartColumn: 0, Length: 3, TokenType: "function", TokenModifiers: []string{}},
			},
			enc: position.UTF8,
			want: []render.Span{
				{Start: 4, End: 5, Kind: "variable", Classes: []string{"hl-variable", "hl-declaration"}},
				{Start: 11, End: 14, Kind: "function", Classes: []string{"hl-function"}},
			},
		},
		{
			name: "utf16_columns",
			text: "s = \"é\"; y",
			tokens: []semtok.SemanticToken{
				{Line: 0, StartColumn: 9, Length: 1, TokenType: "variable"},
			},
			enc: position.UTF16,
			want: []render.Span{
				{Start: 10, End: 11, Kind: "variable", Classes: []string{"hl-variable"}},
			},
		},
		{
			name: "empty_and_overlapping_dropped",
			text: "abcdef",
			tokens: []semtok.SemanticToken{
				{Line: 0, StartColumn: 2, Length: 0, TokenType: "variable"},
				{Line: 0, StartColumn: 0, Length: 3, TokenType: "type"},
				{Line: 0, StartColumn: 1, Length: 3, TokenType: "macro"},
				{Line: 0, StartColumn: 4, Length: 10, TokenType: "number"},
			},
			enc: position.UTF8,
			want: []render.Span{
				{Start: 0, End: 3, Kind: "type", Classes: []string{"hl-type"}},
				{Start: 4, End: 6, Kind: "number", Classes: []string{"hl-number"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render.SemanticSpans(position.NewIndex(tt.text), tt.tokens, tt.enc, render.DefaultClassPrefix)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLineSpans(t *testing.T) {
	text := "int x;\n#if 0\n"
	lines := []semtok.HighlightedLine{
		{Line: 0, Tokens: []semtok.ScopedToken{
			{StartOffset: 4, Length: 1, EndOffset: 5, ScopePath: []string{"variable.other.cpp"}},
		}},
		{Line: 1, IsInactive: true, Tokens: []semtok.ScopedToken{}},
	}

	got := render.LineSpans(position.NewIndex(text), lines, position.UTF16, "c-")
	assert.Equal(t, []render.Span{
		{Start: 4, End: 5, Kind: "variable", Classes: []string{"c-variable-other-cpp"}},
		{Start: 7, End: 12, Kind: "comment", Classes: []string{"c-inactive"}},
	}, got)
}

func TestKindForScopes(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want string
	}{
		{name: "local_variable", path: []string{"variable.other.local.cpp"}, want: "variable"},
		{name: "field", path: []string{"variable.other.field.static.cpp"}, want: "property"},
		{name: "method", path: []string{"entity.name.function.method.cpp"}, want: "member"},
		{name: "macro", path: []string{"entity.name.function.preprocessor.cpp"}, want: "macro"},
		{name: "class", path: []string{"entity.name.type.class.cpp"}, want: "class"},
		{name: "most_specific_wins", path: []string{"variable.other.cpp", "entity.name.namespace.cpp"}, want: "namespace"},
		{name: "disabled", path: []string{"meta.disabled"}, want: "comment"},
		{name: "unknown", path: []string{"source.cpp"}, want: ""},
		{name: "empty", path: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render.KindForScopes(tt.path))
		})
	}
}

func TestHTML(t *testing.T) {
	text := "a<b && \"c\""
	spans := []render.Span{
		{Start: 0, End: 1, Kind: "variable", Classes: []string{"hl-variable", "hl-readonly"}},
		{Start: 7, End: 10, Kind: "string", Classes: []string{"hl-string"}},
	}

	var buf bytes.Buffer
	require.NoError(t, render.HTML(&buf, text, spans))
	assert.Equal(t,
		`<span class="hl-variable hl-readonly">a</span>&lt;b &amp;&amp; <span class="hl-string">&quot;c&quot;</span>`,
		buf.String())
}

func TestANSI(t *testing.T) {
	red := color.New(color.FgRed)
	red.EnableColor()
	palette := render.Palette{"variable": red, "comment": red}

	tests := []struct {
		name     string
		text     string
		spans    []render.Span
		tabWidth int
		want     string
	}{
		{
			name: "plain_tabs",
			text: "a\tb\n\tc",
			want: "a   b\n    c",
		},
		{
			name:     "colored_after_tab",
			text:     "\tx",
			spans:    []render.Span{{Start: 1, End: 2, Kind: "variable"}},
			tabWidth: 2,
			want:     "  " + red.Sprint("x"),
		},
		{
			name:  "multi_line_span",
			text:  "ab\ncd",
			spans: []render.Span{{Start: 0, End: 5, Kind: "comment"}},
			want:  red.Sprint("ab") + "\n" + red.Sprint("cd"),
		},
		{
			name:  "unknown_kind_is_plain",
			text:  "xy",
			spans: []render.Span{{Start: 0, End: 1, Kind: "label"}},
			want:  "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := render.ANSI(&buf, tt.text, tt.spans, render.ANSIOptions{TabWidth: tt.tabWidth, Palette: palette})
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestANSIDefaultPaletteHonorsNoColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	spans := []render.Span{{Start: 0, End: 3, Kind: "keyword"}}

	var plain bytes.Buffer
	require.NoError(t, render.ANSI(&plain, "int x;", spans, render.ANSIOptions{}))
	assert.Equal(t, "int x;", plain.String())

	var never bytes.Buffer
	require.NoError(t, render.ANSI(&never, "int x;", spans, render.ANSIOptions{Palette: render.PaletteFor(render.ColorNever)}))
	assert.Equal(t, "int x;", never.String())

	var forced bytes.Buffer
	require.NoError(t, render.ANSI(&forced, "int x;", spans, render.ANSIOptions{Palette: render.PaletteFor(render.ColorAlways)}))
	assert.Contains(t, forced.String(), "\x1b[")
	assert.True(t, strings.HasSuffix(forced.String(), " x;"))
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    render.ColorMode
		wantErr bool
	}{
		{name: "default", input: "", want: render.ColorAuto},
		{name: "always", input: "Always", want: render.ColorAlways},
		{name: "never", input: "never", want: render.ColorNever},
		{name: "unknown", input: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render.ParseColorMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	err := render.Write(&buf, render.FormatHTML, "x", []render.Span{{Start: 0, End: 1, Classes: []string{"hl-variable"}}}, render.ANSIOptions{})
	require.NoError(t, err)
	assert.Equal(t, "<pre class=\"hl-code\"><code><span class=\"hl-variable\">x</span></code></pre>\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    render.Format
		wantErr bool
	}{
		{name: "default", input: "", want: render.FormatANSI},
		{name: "html", input: "HTML", want: render.FormatHTML},
		{name: "ansi", input: "ansi", want: render.FormatANSI},
		{name: "svg", input: "svg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render.ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTabWidthFor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".editorconfig"), []byte("root = true\n\n[*.cpp]\ntab_width = 8\n"), 0o644))

	assert.Equal(t, 8, render.TabWidthFor(filepath.Join(dir, "main.cpp"), 4))
	assert.Equal(t, 4, render.TabWidthFor(filepath.Join(dir, "main.c"), 4))
}
