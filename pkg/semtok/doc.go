/*
Package semtok decodes the semantic highlighting payloads clangd sends over LSP.

Two wire formats are supported, one per protocol generation:

	 legacy: textDocument/semanticHighlighting     modern: textDocument/semanticTokens/full
	 -----------------------------------------     -----------------------------------------
	 base64 blob per line                          flat []uint32, five per token
	      |                                             |
	      v                                             v
	+------------------+                        +------------------+
	| DecodeBitfield   |                        | DecodeRelative   |
	| 8 byte records   |                        | delta line/col   |
	+------------------+                        +------------------+
	      |  scope index                              |  type index + modifier mask
	      v                                           v
	+------------------+                        +------------------+
	| ScopeTable       |                        | Legend           |
	+------------------+                        +------------------+
	      |                                           |
	      v                                           v
	 []ScopedToken                               []SemanticToken

Bitfield records are independent of each other. Relative groups are not: every
group is positioned against the group before it, so DecodeRelative walks the
input strictly left to right with a single cursor value.

The decoders are pure. They never log, never retain their inputs and never
modify them. Failures are *DecodeError values wrapping ErrMalformedInput or
ErrIndexOutOfRange; no partial output is returned alongside an error.

Example:

	legend := &semtok.Legend{
		TokenTypes:     []string{"keyword", "identifier"},
		TokenModifiers: []string{"declaration", "static"},
	}
	tokens, err := semtok.DecodeRelative([]uint32{0, 0, 3, 0, 1, 0, 4, 3, 1, 2}, legend)
	if err != nil {
	    return err
	}
	// tokens[1].StartColumn == 4
*/
package semtok
