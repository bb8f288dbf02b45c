// Package highlight ties a clangd session to the renderer: it sends source
// text to clangd and returns byte range spans over that text.
package highlight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/clangd"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/render"
)

// Dialer opens a clangd session. clangd.Spawn is the default.
type Dialer func(ctx context.Context, opts clangd.Options) (*clangd.Session, error)

type Options struct {
	Clangd      clangd.Options
	ClassPrefix string
}

// Highlighter owns one lazily started clangd session shared by every call.
type Highlighter struct {
	opts Options
	dial Dialer

	mu   sync.Mutex
	sess *clangd.Session
}

func New(opts Options, dial Dialer) *Highlighter {
	if dial == nil {
		dial = clangd.Spawn
	}
	if opts.ClassPrefix == "" {
		opts.ClassPrefix = render.DefaultClassPrefix
	}
	return &Highlighter{opts: opts, dial: dial}
}

func (h *Highlighter) session(ctx context.Context) (*clangd.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sess != nil {
		return h.sess, nil
	}

	sess, err := h.dial(ctx, h.opts.Clangd)
	if err != nil {
		return nil, errors.Errorf("starting clangd: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("session", sess.ID()).Msg("clangd session ready")
	h.sess = sess
	return sess, nil
}

// Document highlights text as if it were the file at uri.
func (h *Highlighter) Document(ctx context.Context, doc clangd.Document) (*clangd.Result, []render.Span, error) {
	sess, err := h.session(ctx)
	if err != nil {
		return nil, nil, err
	}

	res, err := sess.Highlight(ctx, doc)
	if err != nil {
		return nil, nil, errors.Errorf("highlighting %s: %w", doc.URI, err)
	}

	return res, SpansFor(doc.Text, res, h.opts.ClassPrefix), nil
}

// File reads path from fs and highlights it under its own file URI.
func (h *Highlighter) File(ctx context.Context, fs afero.Fs, path string) (string, []render.Span, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", nil, errors.Errorf("reading %s: %w", path, err)
	}

	text := string(data)
	_, spans, err := h.Document(ctx, clangd.Document{
		URI:        protocol.URIFromPath(path),
		Text:       text,
		LanguageID: LanguageID(strings.TrimPrefix(filepath.Ext(path), ".")),
	})
	if err != nil {
		return "", nil, err
	}
	return text, spans, nil
}

// Code highlights a snippet written in lang under a fresh virtual file, so
// concurrent snippets never share a document.
func (h *Highlighter) Code(ctx context.Context, lang, code string) ([]render.Span, error) {
	_, spans, err := h.Document(ctx, clangd.Document{
		URI:        VirtualURI(lang),
		Text:       code,
		LanguageID: LanguageID(lang),
	})
	return spans, err
}

// Close shuts the session down if one was started.
func (h *Highlighter) Close(ctx context.Context) error {
	h.mu.Lock()
	sess := h.sess
	h.sess = nil
	h.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close(ctx)
}

// SpansFor converts either form of result into spans over text.
func SpansFor(text string, res *clangd.Result, prefix string) []render.Span {
	idx := position.NewIndex(text)
	if res.Lines != nil {
		return render.LineSpans(idx, res.Lines, res.Encoding, prefix)
	}
	return render.SemanticSpans(idx, res.Tokens, res.Encoding, prefix)
}

// VirtualURI returns a unique file URI under the temp dir whose extension
// lets clangd infer lang.
func VirtualURI(lang string) protocol.DocumentURI {
	name := uuid.NewString() + Extension(lang)
	return protocol.URIFromPath(filepath.Join(os.TempDir(), "clangd-highlight", name))
}

// Extension maps a code block language or file extension to the file
// extension clangd recognizes.
func Extension(lang string) string {
	switch strings.ToLower(lang) {
	case "c":
		return ".c"
	case "h":
		return ".h"
	case "hpp", "hh", "hxx", "h++":
		return ".hpp"
	case "objc", "objective-c", "m":
		return ".m"
	case "objcpp", "objective-cpp", "objective-c++", "mm":
		return ".mm"
	case "cuda", "cu":
		return ".cu"
	default:
		return ".cpp"
	}
}

// LanguageID maps a code block language or file extension to an LSP
// language id.
func LanguageID(lang string) string {
	switch Extension(lang) {
	case ".c", ".h":
		return "c"
	case ".m":
		return "objective-c"
	case ".mm":
		return "objective-cpp"
	case ".cu":
		return "cuda-cpp"
	default:
		return "cpp"
	}
}
