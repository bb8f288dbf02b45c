package semtok_test

import (
	"encoding/base64"
	"encoding/binary"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/diff"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

func exampleLegend() *semtok.Legend {
	return &semtok.Legend{
		TokenTypes:     []string{"keyword", "identifier"},
		TokenModifiers: []string{"declaration", "static"},
	}
}

func records(pairs ...uint32) []byte {
	raw := make([]byte, 0, len(pairs)*4)
	for _, v := range pairs {
		raw = binary.BigEndian.AppendUint32(raw, v)
	}
	return raw
}

func TestDecodeRelative(t *testing.T) {
	tests := []struct {
		name     string
		input    []uint32
		legend   *semtok.Legend
		expected []semtok.SemanticToken
		wantErr  error
	}{
		{
			name:   "same_line_delta",
			input:  []uint32{0, 0, 3, 0, 1, 0, 4, 3, 1, 2},
			legend: exampleLegend(),
			expected: []semtok.SemanticToken{
				{Line: 0, StartColumn: 0, Length: 3, TokenType: "keyword", TokenModifiers: []string{"declaration"}},
				{Line: 0, StartColumn: 4, Length: 3, TokenType: "identifier", TokenModifiers: []string{"static"}},
			},
		},
		{
			name:     "empty",
			input:    []uint32{},
			legend:   exampleLegend(),
			expected: []semtok.SemanticToken{},
		},
		{
			name:   "baseline_is_absolute",
			input:  []uint32{2, 7, 1, 1, 0},
			legend: exampleLegend(),
			expected: []semtok.SemanticToken{
				{Line: 2, StartColumn: 7, Length: 1, TokenType: "identifier", TokenModifiers: []string{}},
			},
		},
		{
			name: "new_line_resets_column",
			input: []uint32{
				1, 10, 2, 0, 0,
				2, 3, 4, 1, 3,
				0, 5, 1, 0, 0,
			},
			legend: exampleLegend(),
			expected: []semtok.SemanticToken{
				{Line: 1, StartColumn: 10, Length: 2, TokenType: "keyword", TokenModifiers: []string{}},
				{Line: 3, StartColumn: 3, Length: 4, TokenType: "identifier", TokenModifiers: []string{"declaration", "static"}},
				{Line: 3, StartColumn: 8, Length: 1, TokenType: "keyword", TokenModifiers: []string{}},
			},
		},
		{
			name:    "length_not_multiple_of_five",
			input:   []uint32{0, 0, 3, 0, 1, 0, 4},
			legend:  exampleLegend(),
			wantErr: semtok.ErrMalformedInput,
		},
		{
			name:    "type_index_out_of_range",
			input:   []uint32{0, 0, 3, 0, 0, 1, 0, 3, 2, 0},
			legend:  exampleLegend(),
			wantErr: semtok.ErrIndexOutOfRange,
		},
		{
			name:    "modifier_bit_out_of_range",
			input:   []uint32{0, 0, 3, 0, 4},
			legend:  exampleLegend(),
			wantErr: semtok.ErrIndexOutOfRange,
		},
		{
			name:    "nil_legend",
			input:   []uint32{0, 0, 3, 0, 0},
			wantErr: semtok.ErrIndexOutOfRange,
		},
		{
			name:    "line_overflow",
			input:   []uint32{0xFFFFFFFF, 0, 1, 0, 0, 1, 0, 1, 0, 0},
			legend:  exampleLegend(),
			wantErr: semtok.ErrMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := semtok.DecodeRelative(tt.input, tt.legend)
			if tt.wantErr != nil {
				require.Error(t, err, "expected error for test case")
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tokens, "no partial output on error")
				return
			}
			require.NoError(t, err, "unexpected error decoding tokens")
			assert.Empty(t, diff.Exported(tt.expected, tokens))
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestDecodeRelativeLeavesInputUntouched(t *testing.T) {
	input := []uint32{0, 0, 3, 0, 1, 0, 4, 3, 1, 2, 1, 2, 3, 0, 0}
	snapshot := slices.Clone(input)

	first, err := semtok.DecodeRelative(input, exampleLegend())
	require.NoError(t, err)
	second, err := semtok.DecodeRelative(input, exampleLegend())
	require.NoError(t, err)

	assert.Equal(t, snapshot, input, "input must not be rewritten in place")
	assert.Equal(t, first, second)
}

func TestDecodeBitfield(t *testing.T) {
	scopes := semtok.ScopeTable{{"entity.name"}, {"keyword.control"}}

	tests := []struct {
		name     string
		input    string
		expected []semtok.ScopedToken
		wantErr  error
	}{
		{
			name:  "single_record",
			input: "AAAACgAFAAE=",
			expected: []semtok.ScopedToken{
				{StartOffset: 10, Length: 5, EndOffset: 15, ScopePath: []string{"keyword.control"}},
			},
		},
		{
			name:  "records_are_independent",
			input: base64.StdEncoding.EncodeToString(records(4, 3<<16|0, 0, 2<<16|1, 20, 0)),
			expected: []semtok.ScopedToken{
				{StartOffset: 4, Length: 3, EndOffset: 7, ScopePath: []string{"entity.name"}},
				{StartOffset: 0, Length: 2, EndOffset: 2, ScopePath: []string{"keyword.control"}},
				{StartOffset: 20, Length: 0, EndOffset: 20, ScopePath: []string{"entity.name"}},
			},
		},
		{
			name:     "empty",
			input:    "",
			expected: []semtok.ScopedToken{},
		},
		{
			name:    "length_not_multiple_of_eight",
			input:   base64.StdEncoding.EncodeToString(records(10, 5<<16|1, 7)),
			wantErr: semtok.ErrMalformedInput,
		},
		{
			name:    "invalid_base64",
			input:   "not base64!",
			wantErr: semtok.ErrMalformedInput,
		},
		{
			name:    "scope_out_of_range",
			input:   base64.StdEncoding.EncodeToString(records(10, 5<<16|2)),
			wantErr: semtok.ErrIndexOutOfRange,
		},
		{
			name:    "end_offset_overflow",
			input:   base64.StdEncoding.EncodeToString(records(0xFFFFFFFF, 1<<16|0)),
			wantErr: semtok.ErrMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := semtok.DecodeBitfield(tt.input, scopes)
			if tt.wantErr != nil {
				require.Error(t, err, "expected error for test case")
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tokens, "no partial output on error")
				return
			}
			require.NoError(t, err, "unexpected error decoding tokens")
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestDecodeLines(t *testing.T) {
	scopes := semtok.ScopeTable{{"entity.name.function.cpp"}, {"variable.other.cpp"}}

	lines := []protocol.SemanticHighlightingInformation{
		{Line: 3, Tokens: base64.StdEncoding.EncodeToString(records(4, 4<<16|0))},
		{Line: 1, Tokens: "", IsInactive: true},
	}

	got, err := semtok.DecodeLines(lines, scopes)
	require.NoError(t, err)
	assert.Equal(t, []semtok.HighlightedLine{
		{Line: 3, Tokens: []semtok.ScopedToken{{StartOffset: 4, Length: 4, EndOffset: 8, ScopePath: []string{"entity.name.function.cpp"}}}},
		{Line: 1, IsInactive: true, Tokens: []semtok.ScopedToken{}},
	}, got)

	lines = append(lines, protocol.SemanticHighlightingInformation{Line: 9, Tokens: "AAA"})
	_, err = semtok.DecodeLines(lines, scopes)
	require.Error(t, err)
	assert.ErrorIs(t, err, semtok.ErrMalformedInput)
	assert.Contains(t, err.Error(), "line 9")
}

func TestLegend(t *testing.T) {
	legend := semtok.DefaultLegend()

	name, err := legend.TypeName(uint32(semtok.TypeMacro))
	require.NoError(t, err)
	assert.Equal(t, "macro", name)
	assert.Equal(t, "macro", semtok.TypeMacro.String())

	mods, err := legend.ModifierNames(uint32(semtok.ModifierStatic | semtok.ModifierDefinition | semtok.ModifierDefaultLibrary))
	require.NoError(t, err)
	assert.Equal(t, []string{"definition", "static", "defaultLibrary"}, mods, "lowest bit first")
	assert.Equal(t, "readonly", semtok.ModifierReadonly.String())

	mods, err = legend.ModifierNames(0)
	require.NoError(t, err)
	assert.Empty(t, mods)

	_, err = legend.TypeName(22)
	require.Error(t, err)
	var decodeErr *semtok.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 22, decodeErr.Index)
	assert.Equal(t, 22, decodeErr.Limit)
	assert.Equal(t, "index out of range: token type 22 not in [0,22)", err.Error())

	legend.TokenTypes[0] = "changed"
	assert.Equal(t, "namespace", semtok.DefaultLegend().TokenTypes[0], "each call returns a fresh legend")
}

func TestScopeTableLookup(t *testing.T) {
	scopes := semtok.ScopeTable{{"a", "b"}}

	path, err := scopes.Lookup(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, path)

	_, err = scopes.Lookup(1)
	assert.ErrorIs(t, err, semtok.ErrIndexOutOfRange)
}

func TestDecodeErrorMessages(t *testing.T) {
	_, err := semtok.DecodeRelative(make([]uint32, 7), exampleLegend())
	require.Error(t, err)
	assert.Equal(t, "malformed input: relative token stream length 7 is not a multiple of 5", err.Error())

	_, err = semtok.DecodeBitfieldBytes(make([]byte, 9), semtok.ScopeTable{{"x"}})
	require.Error(t, err)
	assert.Equal(t, "malformed input: bitfield payload length 9 is not a multiple of 8", err.Error())
}
