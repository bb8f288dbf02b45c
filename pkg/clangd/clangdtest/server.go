// Package clangdtest runs an in-process stand-in for clangd that speaks the
// LSP subset a clangd.Session uses.
package clangdtest

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"

	"github.com/walteh/clangd-highlight/pkg/clangd"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

// Server answers initialize with Result and serves Data (or the output of
// Tokenize) for every semantic tokens request.
type Server struct {
	Result protocol.InitializeResult

	Data     []uint32
	Tokenize func(text string) []uint32

	// Lines is pushed as a semanticHighlighting notification after didOpen
	// when the result advertises the legacy capability and NoPush is unset.
	Lines  []protocol.SemanticHighlightingInformation
	NoPush bool

	// RewriteURI, when set, changes the URI of pushed notifications, e.g. to
	// re-escape it the way clangd does.
	RewriteURI func(protocol.DocumentURI) protocol.DocumentURI

	// Configuration, when set, is requested from the client with a
	// workspace/configuration callback on every didOpen. The answers are
	// available from Configured.
	Configuration []protocol.ConfigurationItem

	// Entered receives and Hold blocks inside the semantic tokens handler.
	Entered chan struct{}
	Hold    chan struct{}

	Tracker *protocol.RPCTracker

	mu     sync.Mutex
	init   *protocol.InitializeParams
	opened []protocol.DidOpenTextDocumentParams
	config [][]json.RawMessage
	texts  map[protocol.DocumentURI]string
}

// Modern returns a server advertising legend with utf-8 offsets.
func Modern(legend *semtok.Legend) *Server {
	return &Server{
		Result: protocol.InitializeResult{
			Capabilities: protocol.ServerCapabilities{
				SemanticTokensProvider: &protocol.SemanticTokensOptions{
					Legend: protocol.SemanticTokensLegend{
						TokenTypes:     legend.TokenTypes,
						TokenModifiers: legend.TokenModifiers,
					},
					Full: true,
				},
			},
			OffsetEncoding: "utf-8",
			ServerInfo:     &protocol.ServerInfo{Name: "clangd", Version: "fake"},
		},
	}
}

// Legacy returns a server advertising the scope table of the legacy protocol.
func Legacy(scopes semtok.ScopeTable) *Server {
	return &Server{
		Result: protocol.InitializeResult{
			Capabilities: protocol.ServerCapabilities{
				SemanticHighlighting: &protocol.SemanticHighlightingServerCapabilities{Scopes: scopes},
			},
		},
	}
}

// Start serves on a pair of pipes and returns the client end. The returned
// func waits for the server to stop once the client has closed.
func (s *Server) Start(t testing.TB) (channel.Channel, func()) {
	t.Helper()

	serverReader, clientWriter := io.Pipe()
	clientReader, serverWriter := io.Pipe()

	s.Tracker = protocol.NewRPCTracker()
	s.texts = make(map[protocol.DocumentURI]string)

	var srv *jrpc2.Server
	srv = jrpc2.NewServer(handler.Map{
		protocol.MethodInitialize: handler.New(func(ctx context.Context, p *protocol.InitializeParams) (*protocol.InitializeResult, error) {
			s.mu.Lock()
			s.init = p
			s.mu.Unlock()
			return &s.Result, nil
		}),
		protocol.MethodInitialized: handler.New(func(ctx context.Context, p *protocol.InitializedParams) error {
			return nil
		}),
		protocol.MethodDidOpen: handler.New(func(ctx context.Context, p *protocol.DidOpenTextDocumentParams) error {
			s.mu.Lock()
			s.opened = append(s.opened, *p)
			s.texts[p.TextDocument.URI] = p.TextDocument.Text
			s.mu.Unlock()
			if s.Configuration != nil {
				rsp, err := srv.Callback(ctx, protocol.MethodWorkspaceConfiguration, protocol.ConfigurationParams{Items: s.Configuration})
				if err != nil {
					return err
				}
				var settings []json.RawMessage
				if err := rsp.UnmarshalResult(&settings); err != nil {
					return err
				}
				s.mu.Lock()
				s.config = append(s.config, settings)
				s.mu.Unlock()
			}
			if s.Result.Capabilities.SemanticHighlighting == nil || s.NoPush {
				return nil
			}
			uri := p.TextDocument.URI
			if s.RewriteURI != nil {
				uri = s.RewriteURI(uri)
			}
			return srv.Notify(ctx, protocol.MethodSemanticHighlighting, protocol.SemanticHighlightingParams{
				TextDocument: protocol.VersionedTextDocumentIdentifier{URI: uri},
				Lines:        s.Lines,
			})
		}),
		protocol.MethodDidClose: handler.New(func(ctx context.Context, p *protocol.DidCloseTextDocumentParams) error {
			s.mu.Lock()
			delete(s.texts, p.TextDocument.URI)
			s.mu.Unlock()
			return nil
		}),
		protocol.MethodSemanticTokensFull: handler.New(func(ctx context.Context, p *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
			if s.Entered != nil {
				s.Entered <- struct{}{}
			}
			if s.Hold != nil {
				<-s.Hold
			}
			if s.Tokenize != nil {
				s.mu.Lock()
				text := s.texts[p.TextDocument.URI]
				s.mu.Unlock()
				return &protocol.SemanticTokens{Data: s.Tokenize(text)}, nil
			}
			return &protocol.SemanticTokens{Data: s.Data}, nil
		}),
		protocol.MethodShutdown: handler.New(func(ctx context.Context) error {
			return nil
		}),
		protocol.MethodExit: handler.New(func(ctx context.Context) error {
			return nil
		}),
	}, &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		RPCLog:      s.Tracker,
	})

	srv.Start(channel.LSP(serverReader, serverWriter))

	return channel.LSP(clientReader, clientWriter), func() {
		_ = srv.Wait()
	}
}

// Dialer returns a dial func for code that spawns sessions, serving each one
// from s. The server stops when the session is closed.
func (s *Server) Dialer(t testing.TB) func(ctx context.Context, opts clangd.Options) (*clangd.Session, error) {
	return func(ctx context.Context, opts clangd.Options) (*clangd.Session, error) {
		ch, _ := s.Start(t)
		return clangd.NewSession(ctx, ch, opts)
	}
}

func (s *Server) InitializeParams() *protocol.InitializeParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.init
}

// Configured returns the client's answer to each workspace/configuration
// callback.
func (s *Server) Configured() [][]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]json.RawMessage(nil), s.config...)
}

func (s *Server) Opened() []protocol.DidOpenTextDocumentParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.DidOpenTextDocumentParams(nil), s.opened...)
}
