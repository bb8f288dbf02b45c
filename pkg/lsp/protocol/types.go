package protocol

import (
	"net/url"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LSP 3.17 types, limited to what a semantic highlighting client needs, plus
// the clangd extensions it relies on.
// https://microsoft.github.io/language-server-protocol/
// https://clangd.llvm.org/extensions

const (
	MethodInitialize           = "initialize"
	MethodInitialized          = "initialized"
	MethodShutdown             = "shutdown"
	MethodExit                 = "exit"
	MethodDidOpen              = "textDocument/didOpen"
	MethodDidClose             = "textDocument/didClose"
	MethodSemanticTokensFull   = "textDocument/semanticTokens/full"
	MethodSemanticHighlighting = "textDocument/semanticHighlighting"
	MethodLogMessage           = "window/logMessage"
	MethodPublishDiagnostics   = "textDocument/publishDiagnostics"

	MethodWorkspaceConfiguration = "workspace/configuration"
)

// DocumentURI is a file:// URI.
type DocumentURI string

// URIFromPath builds a file URI from a filesystem path.
func URIFromPath(path string) DocumentURI {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return DocumentURI(u.String())
}

// Path returns the decoded path of a file URI. Servers are free to choose
// their own percent-encoding, so URIs naming the same file are compared by
// Path. A URI that does not parse is returned as is.
func (u DocumentURI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Scheme != "file" {
		return string(u)
	}
	return parsed.Path
}

// MessageType represents the type of a window/logMessage message
type MessageType int

const (
	Error   MessageType = 1
	Warning MessageType = 2
	Info    MessageType = 3
	Log     MessageType = 4
	Debug   MessageType = 5
)

// ZerologLevel maps a message type onto the level it is logged at.
func (mt MessageType) ZerologLevel() zerolog.Level {
	switch mt {
	case Error:
		return zerolog.ErrorLevel
	case Warning:
		return zerolog.WarnLevel
	case Info:
		return zerolog.InfoLevel
	case Debug:
		return zerolog.TraceLevel
	default:
		return zerolog.DebugLevel
	}
}

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ConfigurationParams is sent by the server with workspace/configuration. The
// result must hold one entry per item, in order.
type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

type ConfigurationItem struct {
	ScopeURI DocumentURI `json:"scopeUri,omitempty"`
	Section  string      `json:"section,omitempty"`
}

type InitializeParams struct {
	// ProcessID and RootURI are sent as explicit nulls.
	ProcessID             *int32             `json:"processId"`
	RootURI               *DocumentURI       `json:"rootUri"`
	Trace                 string             `json:"trace,omitempty"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions any                `json:"initializationOptions,omitempty"`
}

type ClientCapabilities struct {
	TextDocument TextDocumentClientCapabilities `json:"textDocument"`

	// OffsetEncoding is the clangd extension predating positionEncodings.
	OffsetEncoding []string `json:"offsetEncoding,omitempty"`
}

type TextDocumentClientCapabilities struct {
	SemanticTokens *SemanticTokensClientCapabilities `json:"semanticTokens,omitempty"`

	// SemanticHighlightingCapabilities is the legacy clangd highlighting proposal.
	SemanticHighlightingCapabilities *SemanticHighlightingClientCapabilities `json:"semanticHighlightingCapabilities,omitempty"`
}

type SemanticTokensClientCapabilities struct {
	DynamicRegistration bool                   `json:"dynamicRegistration,omitempty"`
	Requests            SemanticTokensRequests `json:"requests"`
	TokenTypes          []string               `json:"tokenTypes"`
	TokenModifiers      []string               `json:"tokenModifiers"`
	Formats             []string               `json:"formats"`
}

type SemanticTokensRequests struct {
	Full  bool `json:"full"`
	Range bool `json:"range,omitempty"`
}

type SemanticHighlightingClientCapabilities struct {
	SemanticHighlighting bool `json:"semanticHighlighting"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`

	// OffsetEncoding is set by clangd when the client sent offsetEncoding.
	OffsetEncoding string `json:"offsetEncoding,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type ServerCapabilities struct {
	SemanticTokensProvider *SemanticTokensOptions                  `json:"semanticTokensProvider,omitempty"`
	SemanticHighlighting   *SemanticHighlightingServerCapabilities `json:"semanticHighlighting,omitempty"`
}

type SemanticTokensOptions struct {
	Legend SemanticTokensLegend `json:"legend"`
	Full   any                  `json:"full,omitempty"`
	Range  any                  `json:"range,omitempty"`
}

type SemanticTokensLegend struct {
	TokenTypes     []string `json:"tokenTypes"`
	TokenModifiers []string `json:"tokenModifiers"`
}

type SemanticHighlightingServerCapabilities struct {
	Scopes [][]string `json:"scopes"`
}

type InitializedParams struct{}

type TextDocumentItem struct {
	URI        DocumentURI `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int32       `json:"version"`
	Text       string      `json:"text"`
}

type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

type VersionedTextDocumentIdentifier struct {
	URI     DocumentURI `json:"uri"`
	Version int32       `json:"version"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type SemanticTokensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type SemanticTokens struct {
	ResultID string   `json:"resultId,omitempty"`
	Data     []uint32 `json:"data"`
}

// SemanticHighlightingParams is the payload of the legacy
// textDocument/semanticHighlighting notification.
type SemanticHighlightingParams struct {
	TextDocument VersionedTextDocumentIdentifier   `json:"textDocument"`
	Lines        []SemanticHighlightingInformation `json:"lines"`
}

type SemanticHighlightingInformation struct {
	Line uint32 `json:"line"`

	// Tokens is a base64 blob of 8 byte records, see semtok.DecodeBitfield.
	Tokens string `json:"tokens"`

	IsInactive bool `json:"isInactive,omitempty"`
}
