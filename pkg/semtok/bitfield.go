package semtok

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

const (
	bitfieldRecordSize  = 8
	bitfieldLengthShift = 16
	bitfieldScopeMask   = 0xFFFF
)

// ScopedToken is one record of the legacy highlighting protocol.
type ScopedToken struct {
	// StartOffset is the first column covered by the token.
	StartOffset uint32 `json:"startOffset"`

	Length uint16 `json:"length"`

	// EndOffset is StartOffset + Length.
	EndOffset uint32 `json:"endOffset"`

	// ScopePath is the TextMate scope list, coarse to fine. It aliases the
	// ScopeTable the token was decoded with.
	ScopePath []string `json:"scopePath"`
}

// DecodeBitfield decodes a base64 token blob from a semanticHighlighting
// notification.
func DecodeBitfield(encoded string, scopes ScopeTable) ([]ScopedToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &DecodeError{Kind: ErrMalformedInput, Field: "base64 payload", Err: err}
	}
	return DecodeBitfieldBytes(raw, scopes)
}

// DecodeBitfieldBytes decodes raw records: a big endian uint32 start offset
// followed by a big endian uint32 holding length<<16 | scope index.
func DecodeBitfieldBytes(raw []byte, scopes ScopeTable) ([]ScopedToken, error) {
	if len(raw)%bitfieldRecordSize != 0 {
		return nil, badLength("bitfield payload length", len(raw), bitfieldRecordSize)
	}

	tokens := make([]ScopedToken, 0, len(raw)/bitfieldRecordSize)
	for off := 0; off < len(raw); off += bitfieldRecordSize {
		start := binary.BigEndian.Uint32(raw[off:])
		lenKind := binary.BigEndian.Uint32(raw[off+4:])

		scope, err := scopes.Lookup(lenKind & bitfieldScopeMask)
		if err != nil {
			return nil, err
		}

		length := uint16(lenKind >> bitfieldLengthShift)
		if start > math.MaxUint32-uint32(length) {
			return nil, &DecodeError{Kind: ErrMalformedInput, Field: "token end offset overflows uint32"}
		}

		tokens = append(tokens, ScopedToken{
			StartOffset: start,
			Length:      length,
			EndOffset:   start + uint32(length),
			ScopePath:   scope,
		})
	}
	return tokens, nil
}
