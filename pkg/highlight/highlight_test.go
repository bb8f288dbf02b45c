package highlight_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/clangd-highlight/pkg/clangd"
	"github.com/walteh/clangd-highlight/pkg/clangd/clangdtest"
	"github.com/walteh/clangd-highlight/pkg/highlight"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/render"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(ctx)
}

// firstIdentifier reports a variable token on the second word of line 0.
func firstIdentifier(text string) []uint32 {
	line, _, _ := strings.Cut(text, "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}
	col := strings.Index(line, fields[1])
	name := strings.TrimRight(fields[1], ";")
	return []uint32{0, uint32(col), uint32(len(name)), 0, 1}
}

func TestHighlighterFile(t *testing.T) {
	ctx := testContext(t)

	fake := clangdtest.Modern(&semtok.Legend{
		TokenTypes:     []string{"variable"},
		TokenModifiers: []string{"declaration"},
	})
	fake.Tokenize = firstIdentifier

	dials := 0
	dial := fake.Dialer(t)
	h := highlight.New(highlight.Options{}, func(ctx context.Context, opts clangd.Options) (*clangd.Session, error) {
		dials++
		return dial(ctx, opts)
	})
	defer func() { _ = h.Close(ctx) }()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.c", []byte("int count;\n"), 0o644))

	text, spans, err := h.File(ctx, fs, "/src/a.c")
	require.NoError(t, err)
	assert.Equal(t, "int count;\n", text)
	assert.Equal(t, []render.Span{
		{Start: 4, End: 9, Kind: "variable", Classes: []string{"hl-variable", "hl-declaration"}},
	}, spans)

	codeSpans, err := h.Code(ctx, "cpp", "auto total = 1;")
	require.NoError(t, err)
	require.Len(t, codeSpans, 1)
	assert.Equal(t, 5, codeSpans[0].Start)
	assert.Equal(t, 10, codeSpans[0].End)

	assert.Equal(t, 1, dials, "session is shared")

	opened := fake.Opened()
	require.Len(t, opened, 2)
	assert.Equal(t, protocol.URIFromPath("/src/a.c"), opened[0].TextDocument.URI)
	assert.Equal(t, "c", opened[0].TextDocument.LanguageID)
	assert.True(t, strings.HasSuffix(string(opened[1].TextDocument.URI), ".cpp"))
	assert.Equal(t, "cpp", opened[1].TextDocument.LanguageID)

	_, _, err = h.File(ctx, fs, "/src/missing.c")
	assert.Error(t, err)
}

func TestSpansForLegacy(t *testing.T) {
	res := &clangd.Result{
		Encoding: position.UTF16,
		Lines: []semtok.HighlightedLine{
			{Line: 0, Tokens: []semtok.ScopedToken{
				{StartOffset: 0, Length: 3, EndOffset: 3, ScopePath: []string{"entity.name.function.cpp"}},
			}},
		},
	}

	got := highlight.SpansFor("foo();", res, "x-")
	assert.Equal(t, []render.Span{
		{Start: 0, End: 3, Kind: "function", Classes: []string{"x-entity-name-function-cpp"}},
	}, got)
}

func TestVirtualURI(t *testing.T) {
	a := highlight.VirtualURI("c")
	b := highlight.VirtualURI("c")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "file://"))
	assert.Equal(t, ".c", filepath.Ext(string(a)))
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		name       string
		lang       string
		wantExt    string
		wantLangID string
	}{
		{name: "c", lang: "c", wantExt: ".c", wantLangID: "c"},
		{name: "header", lang: "H", wantExt: ".h", wantLangID: "c"},
		{name: "cpp", lang: "cpp", wantExt: ".cpp", wantLangID: "cpp"},
		{name: "c++", lang: "c++", wantExt: ".cpp", wantLangID: "cpp"},
		{name: "hpp", lang: "hpp", wantExt: ".hpp", wantLangID: "cpp"},
		{name: "objc", lang: "objc", wantExt: ".m", wantLangID: "objective-c"},
		{name: "objcpp", lang: "mm", wantExt: ".mm", wantLangID: "objective-cpp"},
		{name: "cuda", lang: "cuda", wantExt: ".cu", wantLangID: "cuda-cpp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantExt, highlight.Extension(tt.lang))
			assert.Equal(t, tt.wantLangID, highlight.LanguageID(tt.lang))
		})
	}
}

func TestHighlighterCloseWithoutSession(t *testing.T) {
	h := highlight.New(highlight.Options{}, nil)
	assert.NoError(t, h.Close(context.Background()))
}
