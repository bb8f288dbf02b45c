package semtok

import (
	"math"
)

const relativeGroupSize = 5

// SemanticToken is an absolutely positioned, classified token from a
// textDocument/semanticTokens response.
type SemanticToken struct {
	Line           uint32   `json:"line"`
	StartColumn    uint32   `json:"startColumn"`
	Length         uint32   `json:"length"`
	TokenType      string   `json:"tokenType"`
	TokenModifiers []string `json:"tokenModifiers"`
}

// cursor is the absolute position of the most recently decoded token.
type cursor struct {
	line   uint32
	column uint32
}

// advance applies one group's deltas. The start field is relative to the
// previous token only while the line stays the same.
func (c cursor) advance(deltaLine, deltaStart uint32) (cursor, error) {
	if deltaLine == 0 {
		if c.column > math.MaxUint32-deltaStart {
			return c, &DecodeError{Kind: ErrMalformedInput, Field: "start column overflows uint32"}
		}
		return cursor{line: c.line, column: c.column + deltaStart}, nil
	}
	if c.line > math.MaxUint32-deltaLine {
		return c, &DecodeError{Kind: ErrMalformedInput, Field: "line overflows uint32"}
	}
	return cursor{line: c.line + deltaLine, column: deltaStart}, nil
}

// DecodeRelative decodes the flat five-integer groups of a semantic tokens
// response: deltaLine, deltaStart, length, tokenType, tokenModifiers.
//
// Groups are folded left to right; each group needs the absolute position of
// the one before it. data is not modified.
func DecodeRelative(data []uint32, legend *Legend) ([]SemanticToken, error) {
	if len(data)%relativeGroupSize != 0 {
		return nil, badLength("relative token stream length", len(data), relativeGroupSize)
	}
	if legend == nil {
		legend = &Legend{}
	}

	tokens := make([]SemanticToken, 0, len(data)/relativeGroupSize)
	pos := cursor{}
	for i := 0; i < len(data); i += relativeGroupSize {
		group := data[i : i+relativeGroupSize : i+relativeGroupSize]

		next, err := pos.advance(group[0], group[1])
		if err != nil {
			return nil, err
		}

		tok, err := legend.classify(next, group)
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		pos = next
	}
	return tokens, nil
}

func (l *Legend) classify(at cursor, group []uint32) (SemanticToken, error) {
	typ, err := l.TypeName(group[3])
	if err != nil {
		return SemanticToken{}, err
	}
	mods, err := l.ModifierNames(group[4])
	if err != nil {
		return SemanticToken{}, err
	}
	return SemanticToken{
		Line:           at.line,
		StartColumn:    at.column,
		Length:         group[2],
		TokenType:      typ,
		TokenModifiers: mods,
	}, nil
}
