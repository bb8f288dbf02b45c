package clangd

import (
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/position"
)

// Protocol selects which of clangd's highlighting mechanisms a session uses.
type Protocol string

const (
	// ProtocolSemanticTokens requests textDocument/semanticTokens/full.
	ProtocolSemanticTokens Protocol = "semantic-tokens"
	// ProtocolSemanticHighlighting waits for the legacy pushed notification.
	ProtocolSemanticHighlighting Protocol = "semantic-highlighting"
)

func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProtocolSemanticTokens, nil
	case ProtocolSemanticTokens, ProtocolSemanticHighlighting:
		return p, nil
	default:
		return "", errors.Errorf("unknown highlighting protocol %q", s)
	}
}

type Options struct {
	Path           string
	Args           []string
	Protocol       Protocol
	OffsetEncoding position.Encoding
	LanguageID     string

	// Timeout bounds every request made on a document, zero means none.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Path:           "clangd",
		Args:           []string{"--log=error"},
		Protocol:       ProtocolSemanticTokens,
		OffsetEncoding: position.UTF8,
		LanguageID:     "cpp",
		Timeout:        30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Path == "" {
		o.Path = def.Path
	}
	if o.Protocol == "" {
		o.Protocol = def.Protocol
	}
	if o.OffsetEncoding == "" {
		o.OffsetEncoding = def.OffsetEncoding
	}
	if o.LanguageID == "" {
		o.LanguageID = def.LanguageID
	}
	return o
}
