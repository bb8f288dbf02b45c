package position

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// Encoding is the unit LSP character offsets are counted in.
type Encoding string

const (
	UTF8  Encoding = "utf-8"
	UTF16 Encoding = "utf-16"
)

// ParseEncoding accepts the names clangd uses in offsetEncoding. An empty
// string is the LSP default, utf-16.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(UTF16):
		return UTF16, nil
	case string(UTF8):
		return UTF8, nil
	default:
		return "", errors.Errorf("unsupported offset encoding %q", s)
	}
}

type Place struct {
	Line      int
	Character int
}

// Index maps line/character positions in one text snapshot to byte offsets.
type Index struct {
	text  string
	lines []int // byte offset of each line start
}

func NewIndex(text string) *Index {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Index{text: text, lines: lines}
}

func (x *Index) Text() string {
	return x.text
}

func (x *Index) LineCount() int {
	return len(x.lines)
}

// lineBounds returns the byte range of line n without its line terminator.
func (x *Index) lineBounds(n int) (start, end int) {
	if n >= len(x.lines) {
		return len(x.text), len(x.text)
	}
	start = x.lines[n]
	end = len(x.text)
	if n+1 < len(x.lines) {
		end = x.lines[n+1] - 1
	}
	if end > start && x.text[end-1] == '\r' {
		end--
	}
	return start, end
}

// Line returns the text of line n without its terminator.
func (x *Index) Line(n int) string {
	start, end := x.lineBounds(n)
	return x.text[start:end]
}

// Offset converts a position to a byte offset. Lines past the end map to the
// end of the text and characters past the end of a line map to the line end.
func (x *Index) Offset(line, character uint32, enc Encoding) int {
	start, end := x.lineBounds(int(line))
	return start + columnBytes(x.text[start:end], character, enc)
}

// Span converts a single line token to a byte range, clamped to its line.
func (x *Index) Span(line, character, length uint32, enc Encoding) (start, end int) {
	lineStart, lineEnd := x.lineBounds(int(line))
	content := x.text[lineStart:lineEnd]
	from := columnBytes(content, character, enc)
	to := columnBytes(content, character+length, enc)
	if character+length < character {
		to = len(content)
	}
	return lineStart + from, lineStart + to
}

// Place returns the zero based line and byte column of offset.
func (x *Index) Place(offset int) Place {
	if offset > len(x.text) {
		offset = len(x.text)
	}
	line := 0
	for line+1 < len(x.lines) && x.lines[line+1] <= offset {
		line++
	}
	return Place{Line: line, Character: offset - x.lines[line]}
}

// columnBytes counts how many bytes of line make up column units.
func columnBytes(line string, column uint32, enc Encoding) int {
	if enc == UTF8 {
		if int(column) > len(line) || int(column) < 0 {
			return len(line)
		}
		return int(column)
	}

	var units uint32
	for i, r := range line {
		if units >= column {
			return i
		}
		n := utf16.RuneLen(r)
		if n < 0 || r == utf8.RuneError {
			n = 1
		}
		units += uint32(n)
	}
	return len(line)
}
