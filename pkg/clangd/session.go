// Package clangd drives a clangd language server over JSON-RPC and returns the
// decoded highlighting of the documents it is asked about.
//
// A Session negotiates the token legend (modern protocol) or the scope table
// (legacy protocol) exactly once, during initialize, and uses it for every
// payload it decodes. The legend is dropped when the session is closed.
package clangd

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/clangd-highlight/pkg/logging"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/position"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

var (
	ErrUnsupported   = errors.Base("highlighting protocol not supported by server")
	ErrDocumentBusy  = errors.Base("document already has a request in flight")
	ErrSessionClosed = errors.Base("session closed")
)

// Document is a file opened for the duration of one request.
type Document struct {
	URI  protocol.DocumentURI
	Text string

	// LanguageID overrides the session language id when set.
	LanguageID string
}

// Result is the decoded highlighting of one document. Tokens is set for the
// semantic tokens protocol and Lines for the legacy one.
type Result struct {
	URI      protocol.DocumentURI     `json:"uri"`
	Encoding position.Encoding        `json:"encoding"`
	Tokens   []semtok.SemanticToken   `json:"tokens,omitempty"`
	Lines    []semtok.HighlightedLine `json:"lines,omitempty"`
}

type Session struct {
	id     xid.ID
	opts   Options
	client *jrpc2.Client
	logger zerolog.Logger

	// set by Spawn
	cmd    *exec.Cmd
	stderr *logging.LineWriter

	mu       sync.Mutex
	legend   *semtok.Legend
	scopes   semtok.ScopeTable
	encoding position.Encoding
	// keyed by DocumentURI.Path
	pending  map[string]chan protocol.SemanticHighlightingParams
	closed   bool
}

// NewSession runs the initialize handshake on ch. Use Spawn to start a local
// clangd; NewSession is exported so any channel carrying LSP framing works.
func NewSession(ctx context.Context, ch channel.Channel, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	s := &Session{
		id:      xid.New(),
		opts:    opts,
		pending: make(map[string]chan protocol.SemanticHighlightingParams),
	}
	s.logger = zerolog.Ctx(ctx).With().Str("session", s.id.String()).Logger()

	s.client = jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		Logger: func(msg string) {
			s.logger.Trace().Msgf("clangd [client]: %s", msg)
		},
		OnNotify:   s.handleNotify,
		OnCallback: s.handleCallback,
	})

	if err := s.initialize(ctx); err != nil {
		_ = s.client.Close()
		return nil, errors.Errorf("initializing clangd session: %w", err)
	}

	return s, nil
}

func (s *Session) ID() string {
	return s.id.String()
}

func (s *Session) Protocol() Protocol {
	return s.opts.Protocol
}

// Legend returns the negotiated token legend, nil when the server offered none
// or the session is closed.
func (s *Session) Legend() *semtok.Legend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legend
}

// Scopes returns the negotiated legacy scope table.
func (s *Session) Scopes() semtok.ScopeTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopes
}

// Encoding is the unit token columns are counted in.
func (s *Session) Encoding() position.Encoding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoding
}

func (s *Session) initializeParams() protocol.InitializeParams {
	caps := protocol.ClientCapabilities{
		OffsetEncoding: []string{string(s.opts.OffsetEncoding)},
	}

	switch s.opts.Protocol {
	case ProtocolSemanticHighlighting:
		caps.TextDocument.SemanticHighlightingCapabilities = &protocol.SemanticHighlightingClientCapabilities{
			SemanticHighlighting: true,
		}
	default:
		legend := semtok.DefaultLegend()
		caps.TextDocument.SemanticTokens = &protocol.SemanticTokensClientCapabilities{
			Requests:       protocol.SemanticTokensRequests{Full: true},
			TokenTypes:     legend.TokenTypes,
			TokenModifiers: legend.TokenModifiers,
			Formats:        []string{"relative"},
		}
	}

	return protocol.InitializeParams{
		ProcessID:    nil,
		RootURI:      nil,
		Trace:        "off",
		Capabilities: caps,
	}
}

func (s *Session) initialize(ctx context.Context) error {
	var result protocol.InitializeResult
	if err := s.client.CallResult(ctx, protocol.MethodInitialize, s.initializeParams(), &result); err != nil {
		return errors.Errorf("calling %s: %w", protocol.MethodInitialize, err)
	}

	// without an acknowledgement the server counts in the LSP default
	encoding := position.UTF16
	if result.OffsetEncoding != "" {
		enc, err := position.ParseEncoding(result.OffsetEncoding)
		if err != nil {
			return errors.Errorf("negotiating offset encoding: %w", err)
		}
		encoding = enc
	}

	s.mu.Lock()
	s.encoding = encoding
	if p := result.Capabilities.SemanticTokensProvider; p != nil {
		s.legend = &semtok.Legend{
			TokenTypes:     p.Legend.TokenTypes,
			TokenModifiers: p.Legend.TokenModifiers,
		}
	}
	if h := result.Capabilities.SemanticHighlighting; h != nil {
		s.scopes = semtok.ScopeTable(h.Scopes)
	}
	s.mu.Unlock()

	if err := s.client.Notify(ctx, protocol.MethodInitialized, protocol.InitializedParams{}); err != nil {
		return errors.Errorf("sending %s: %w", protocol.MethodInitialized, err)
	}

	ev := s.logger.Debug().Str("encoding", string(encoding))
	if result.ServerInfo != nil {
		ev = ev.Str("server", result.ServerInfo.Name).Str("version", result.ServerInfo.Version)
	}
	ev.Msg("clangd session initialized")

	return nil
}

func (s *Session) handleNotify(req *jrpc2.Request) {
	if req == nil {
		return
	}

	switch req.Method() {
	case protocol.MethodSemanticHighlighting:
		var params protocol.SemanticHighlightingParams
		if err := req.UnmarshalParams(&params); err != nil {
			s.logger.Warn().Err(err).Msg("unmarshalling semantic highlighting notification")
			return
		}
		s.mu.Lock()
		waiter, ok := s.pending[params.TextDocument.URI.Path()]
		s.mu.Unlock()
		if !ok {
			s.logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("dropping highlighting for unknown document")
			return
		}
		// only the first notification after didOpen carries every line
		select {
		case waiter <- params:
		default:
		}
	case protocol.MethodLogMessage:
		var params protocol.LogMessageParams
		if err := req.UnmarshalParams(&params); err != nil {
			return
		}
		s.logger.WithLevel(params.Type.ZerologLevel()).Str("source", "clangd").Msg(params.Message)
	default:
		s.logger.Trace().Str("method", req.Method()).Msg("ignoring notification")
	}
}

// handleCallback answers server to client requests. workspace/configuration
// gets one null setting per requested item; everything else (progress tokens,
// capability registration) gets an empty result.
func (s *Session) handleCallback(ctx context.Context, req *jrpc2.Request) (any, error) {
	s.logger.Trace().Str("method", req.Method()).Msg("answering callback")

	switch req.Method() {
	case protocol.MethodWorkspaceConfiguration:
		var params protocol.ConfigurationParams
		if err := req.UnmarshalParams(&params); err != nil {
			return nil, errors.Errorf("unmarshalling %s params: %w", protocol.MethodWorkspaceConfiguration, err)
		}
		return make([]any, len(params.Items)), nil
	default:
		return nil, nil
	}
}

func (s *Session) acquire(uri protocol.DocumentURI) (chan protocol.SemanticHighlightingParams, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	key := uri.Path()
	if _, ok := s.pending[key]; ok {
		return nil, nil, errors.Errorf("%w: %s", ErrDocumentBusy, uri)
	}

	waiter := make(chan protocol.SemanticHighlightingParams, 1)
	s.pending[key] = waiter

	return waiter, func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}, nil
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

func (s *Session) openDocument(ctx context.Context, doc Document) error {
	languageID := doc.LanguageID
	if languageID == "" {
		languageID = s.opts.LanguageID
	}
	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        doc.URI,
			LanguageID: languageID,
			Version:    0,
			Text:       doc.Text,
		},
	}
	if err := s.client.Notify(ctx, protocol.MethodDidOpen, params); err != nil {
		return errors.Errorf("opening %s: %w", doc.URI, err)
	}
	return nil
}

func (s *Session) closeDocument(ctx context.Context, doc Document) error {
	params := protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI},
	}
	// sent even when the request itself was cancelled
	if err := s.client.Notify(context.WithoutCancel(ctx), protocol.MethodDidClose, params); err != nil {
		return errors.Errorf("closing %s: %w", doc.URI, err)
	}
	return nil
}

// SemanticTokens opens doc, requests its full semantic tokens and decodes them
// against the session legend.
func (s *Session) SemanticTokens(ctx context.Context, doc Document) (tokens []semtok.SemanticToken, err error) {
	legend := s.Legend()
	if legend == nil {
		if s.isClosed() {
			return nil, ErrSessionClosed
		}
		return nil, errors.Errorf("%w: %s", ErrUnsupported, protocol.MethodSemanticTokensFull)
	}

	_, release, err := s.acquire(doc.URI)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.openDocument(ctx, doc); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.closeDocument(ctx, doc); cerr != nil {
			err = multierr.Append(err, cerr)
			tokens = nil
		}
	}()

	var result protocol.SemanticTokens
	params := protocol.SemanticTokensParams{TextDocument: protocol.TextDocumentIdentifier{URI: doc.URI}}
	if err := s.client.CallResult(ctx, protocol.MethodSemanticTokensFull, params, &result); err != nil {
		return nil, errors.Errorf("calling %s: %w", protocol.MethodSemanticTokensFull, err)
	}

	tokens, err = semtok.DecodeRelative(result.Data, legend)
	if err != nil {
		return nil, errors.Errorf("decoding semantic tokens of %s: %w", doc.URI, err)
	}

	s.logger.Debug().Str("uri", string(doc.URI)).Int("tokens", len(tokens)).Msg("decoded semantic tokens")

	return tokens, nil
}

// SemanticHighlighting opens doc and waits for the first legacy
// semanticHighlighting notification clangd pushes for it.
func (s *Session) SemanticHighlighting(ctx context.Context, doc Document) (lines []semtok.HighlightedLine, err error) {
	scopes := s.Scopes()
	if scopes == nil {
		if s.isClosed() {
			return nil, ErrSessionClosed
		}
		return nil, errors.Errorf("%w: %s", ErrUnsupported, protocol.MethodSemanticHighlighting)
	}

	// registered before didOpen so an early notification is not lost
	waiter, release, err := s.acquire(doc.URI)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.openDocument(ctx, doc); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.closeDocument(ctx, doc); cerr != nil {
			err = multierr.Append(err, cerr)
			lines = nil
		}
	}()

	var params protocol.SemanticHighlightingParams
	select {
	case params = <-waiter:
	case <-ctx.Done():
		return nil, errors.Errorf("waiting for %s of %s: %w", protocol.MethodSemanticHighlighting, doc.URI, ctx.Err())
	}

	lines, err = semtok.DecodeLines(params.Lines, scopes)
	if err != nil {
		return nil, errors.Errorf("decoding semantic highlighting of %s: %w", doc.URI, err)
	}

	s.logger.Debug().Str("uri", string(doc.URI)).Int("lines", len(lines)).Msg("decoded semantic highlighting")

	return lines, nil
}

// Highlight runs whichever protocol the session was configured with.
func (s *Session) Highlight(ctx context.Context, doc Document) (*Result, error) {
	res := &Result{URI: doc.URI, Encoding: s.Encoding()}

	switch s.opts.Protocol {
	case ProtocolSemanticHighlighting:
		lines, err := s.SemanticHighlighting(ctx, doc)
		if err != nil {
			return nil, err
		}
		res.Lines = lines
	default:
		tokens, err := s.SemanticTokens(ctx, doc)
		if err != nil {
			return nil, err
		}
		res.Tokens = tokens
	}

	return res, nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close sends shutdown and exit, stops the client and waits for the clangd
// process when there is one. Calling Close again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.legend = nil
	s.scopes = nil
	s.mu.Unlock()

	var err error

	if _, cerr := s.client.Call(ctx, protocol.MethodShutdown, nil); cerr != nil {
		err = multierr.Append(err, errors.Errorf("calling %s: %w", protocol.MethodShutdown, cerr))
	}
	if nerr := s.client.Notify(ctx, protocol.MethodExit, nil); nerr != nil {
		err = multierr.Append(err, errors.Errorf("sending %s: %w", protocol.MethodExit, nerr))
	}
	if cerr := s.client.Close(); cerr != nil && !isClosedConn(cerr) {
		err = multierr.Append(err, errors.Errorf("closing client: %w", cerr))
	}

	if s.cmd != nil {
		err = multierr.Append(err, s.wait(ctx))
	}

	s.logger.Debug().Err(err).Msg("clangd session closed")

	return err
}

func (s *Session) wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	defer s.stderr.Flush()

	select {
	case err := <-done:
		if err != nil {
			return errors.Errorf("waiting for clangd: %w", err)
		}
		return nil
	case <-ctx.Done():
		_ = s.cmd.Process.Kill()
		<-done
		return errors.Errorf("waiting for clangd: %w", ctx.Err())
	}
}

func isClosedConn(err error) bool {
	return errors.Is(err, jrpc2.ErrConnClosed) || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
}
