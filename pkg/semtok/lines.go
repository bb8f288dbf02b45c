package semtok

import (
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
)

// HighlightedLine is one decoded line of a semanticHighlighting notification.
type HighlightedLine struct {
	Line       uint32        `json:"line"`
	IsInactive bool          `json:"isInactive,omitempty"`
	Tokens     []ScopedToken `json:"tokens"`
}

// DecodeLines decodes every line of a notification, keeping notification order.
func DecodeLines(lines []protocol.SemanticHighlightingInformation, scopes ScopeTable) ([]HighlightedLine, error) {
	out := make([]HighlightedLine, 0, len(lines))
	for _, l := range lines {
		tokens, err := DecodeBitfield(l.Tokens, scopes)
		if err != nil {
			return nil, errors.Errorf("decoding line %d: %w", l.Line, err)
		}
		out = append(out, HighlightedLine{
			Line:       l.Line,
			IsInactive: l.IsInactive,
			Tokens:     tokens,
		})
	}
	return out, nil
}
