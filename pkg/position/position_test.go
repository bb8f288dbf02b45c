package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/clangd-highlight/pkg/position"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    position.Encoding
		wantErr bool
	}{
		{name: "default", input: "", want: position.UTF16},
		{name: "utf8", input: "utf-8", want: position.UTF8},
		{name: "utf16_upper", input: "UTF-16", want: position.UTF16},
		{name: "utf32", input: "utf-32", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := position.ParseEncoding(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexOffset(t *testing.T) {
	text := "int a;\r\n// é😀x\nlast"

	tests := []struct {
		name      string
		line      uint32
		character uint32
		enc       position.Encoding
		want      int
	}{
		{name: "start", line: 0, character: 0, enc: position.UTF16, want: 0},
		{name: "first_line_column", line: 0, character: 4, enc: position.UTF8, want: 4},
		{name: "clamped_before_cr", line: 0, character: 99, enc: position.UTF8, want: 6},
		{name: "utf8_bytes", line: 1, character: 5, enc: position.UTF8, want: 8 + 5},
		{name: "utf16_after_accent", line: 1, character: 4, enc: position.UTF16, want: 8 + 5},
		{name: "utf16_after_surrogate_pair", line: 1, character: 6, enc: position.UTF16, want: 8 + 9},
		{name: "last_line", line: 2, character: 2, enc: position.UTF16, want: len("int a;\r\n// é😀x\n") + 2},
		{name: "past_end", line: 9, character: 0, enc: position.UTF16, want: len(text)},
	}

	idx := position.NewIndex(text)
	require.Equal(t, 3, idx.LineCount())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Offset(tt.line, tt.character, tt.enc))
		})
	}
}

func TestIndexSpan(t *testing.T) {
	idx := position.NewIndex("void f();\nint x = 1;\n")

	start, end := idx.Span(1, 4, 1, position.UTF16)
	assert.Equal(t, "x", idx.Text()[start:end])

	start, end = idx.Span(0, 5, 100, position.UTF8)
	assert.Equal(t, "f();", idx.Text()[start:end], "span is clamped to its line")

	assert.Equal(t, "int x = 1;", idx.Line(1))
	assert.Equal(t, "", idx.Line(2))
}

func TestIndexPlace(t *testing.T) {
	idx := position.NewIndex("ab\ncd\n")

	assert.Equal(t, position.Place{Line: 0, Character: 1}, idx.Place(1))
	assert.Equal(t, position.Place{Line: 1, Character: 0}, idx.Place(3))
	assert.Equal(t, position.Place{Line: 2, Character: 0}, idx.Place(100))
}
