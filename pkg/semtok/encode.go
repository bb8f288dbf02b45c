package semtok

import (
	"encoding/base64"
	"encoding/binary"
	"slices"

	"gitlab.com/tozd/go/errors"
)

// EncodeRelative is the inverse of DecodeRelative. Tokens must be sorted by
// line, then column.
func EncodeRelative(tokens []SemanticToken, legend *Legend) ([]uint32, error) {
	data := make([]uint32, 0, len(tokens)*relativeGroupSize)
	prev := cursor{}
	for i, tok := range tokens {
		typ := slices.Index(legend.TokenTypes, tok.TokenType)
		if typ < 0 {
			return nil, errors.Errorf("token %d: unknown token type %q", i, tok.TokenType)
		}

		var mask uint32
		for _, mod := range tok.TokenModifiers {
			bit := slices.Index(legend.TokenModifiers, mod)
			if bit < 0 || bit >= 32 {
				return nil, errors.Errorf("token %d: unknown token modifier %q", i, mod)
			}
			mask |= 1 << bit
		}

		if tok.Line < prev.line || (tok.Line == prev.line && tok.StartColumn < prev.column) {
			return nil, errors.Errorf("token %d: not sorted after %d:%d", i, prev.line, prev.column)
		}

		deltaLine := tok.Line - prev.line
		deltaStart := tok.StartColumn
		if deltaLine == 0 {
			deltaStart = tok.StartColumn - prev.column
		}

		data = append(data, deltaLine, deltaStart, tok.Length, uint32(typ), mask)
		prev = cursor{line: tok.Line, column: tok.StartColumn}
	}
	return data, nil
}

// EncodeBitfield is the inverse of DecodeBitfield. Every token's scope path
// must be present in scopes.
func EncodeBitfield(tokens []ScopedToken, scopes ScopeTable) (string, error) {
	raw := make([]byte, 0, len(tokens)*bitfieldRecordSize)
	for i, tok := range tokens {
		idx := slices.IndexFunc(scopes, func(path []string) bool {
			return slices.Equal(path, tok.ScopePath)
		})
		if idx < 0 || idx > bitfieldScopeMask {
			return "", errors.Errorf("token %d: scope %v not encodable", i, tok.ScopePath)
		}
		raw = binary.BigEndian.AppendUint32(raw, tok.StartOffset)
		raw = binary.BigEndian.AppendUint32(raw, uint32(tok.Length)<<bitfieldLengthShift|uint32(idx))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
