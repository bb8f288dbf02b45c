package semtok

import (
	"math/bits"
)

// Legend maps the small integers of the relative token stream to names. It is
// negotiated once per clangd session and must only be used with payloads from
// that session.
type Legend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

// TypeName resolves a token type index.
func (l *Legend) TypeName(idx uint32) (string, error) {
	if uint64(idx) >= uint64(len(l.TokenTypes)) {
		return "", outOfRange("token type", idx, len(l.TokenTypes))
	}
	return l.TokenTypes[idx], nil
}

// ModifierNames resolves every set bit of mask, lowest bit first.
func (l *Legend) ModifierNames(mask uint32) ([]string, error) {
	names := make([]string, 0, bits.OnesCount32(mask))
	for mask != 0 {
		lowest := mask & -mask
		bit := bits.TrailingZeros32(lowest)
		if bit >= len(l.TokenModifiers) {
			return nil, outOfRange("token modifier bit", uint32(bit), len(l.TokenModifiers))
		}
		names = append(names, l.TokenModifiers[bit])
		mask &^= lowest
	}
	return names, nil
}

// ScopeTable is the list of TextMate scope paths clangd advertises for the
// legacy highlighting protocol. Records refer to it by dense index.
type ScopeTable [][]string

// Lookup resolves a scope index. The returned slice aliases the table.
func (s ScopeTable) Lookup(idx uint32) ([]string, error) {
	if uint64(idx) >= uint64(len(s)) {
		return nil, outOfRange("scope", idx, len(s))
	}
	return s[idx], nil
}
