package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
	"github.com/walteh/clangd-highlight/pkg/semtok"
)

type Handler struct {
	legendPath string
	scopesPath string

	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
}

func NewDecodeCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs(), stdin: os.Stdin, stdout: os.Stdout}

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "decode a raw clangd token payload read from stdin",
	}

	relative := &cobra.Command{
		Use:   "relative",
		Short: "decode a semanticTokens/full data array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return me.Relative(cmd.Context())
		},
	}
	relative.Flags().StringVar(&me.legendPath, "legend", "", "json file with tokenTypes and tokenModifiers (default: the legend clangd advertises)")

	bitfield := &cobra.Command{
		Use:   "bitfield",
		Short: "decode a legacy semanticHighlighting payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return me.Bitfield(cmd.Context())
		},
	}
	bitfield.Flags().StringVar(&me.scopesPath, "scopes", "", "json file with the scope table")
	_ = bitfield.MarkFlagRequired("scopes")

	cmd.AddCommand(relative, bitfield)

	return cmd
}

// Relative accepts either a bare json array or a SemanticTokens object.
func (me *Handler) Relative(ctx context.Context) error {
	legend := semtok.DefaultLegend()
	if me.legendPath != "" {
		legend = &semtok.Legend{}
		if err := me.readJSON(me.legendPath, legend); err != nil {
			return err
		}
	}

	input, err := me.input()
	if err != nil {
		return err
	}

	var data []uint32
	if bytes.HasPrefix(input, []byte("[")) {
		err = json.Unmarshal(input, &data)
	} else {
		var tokens protocol.SemanticTokens
		err = json.Unmarshal(input, &tokens)
		data = tokens.Data
	}
	if err != nil {
		return errors.Errorf("parsing token data: %w", err)
	}

	decoded, err := semtok.DecodeRelative(data, legend)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Int("tokens", len(decoded)).Msg("decoded relative stream")

	return me.write(decoded)
}

// Bitfield accepts either a json string holding one base64 blob or a
// semanticHighlighting notification params object.
func (me *Handler) Bitfield(ctx context.Context) error {
	var scopes semtok.ScopeTable
	if err := me.readJSON(me.scopesPath, &scopes); err != nil {
		return err
	}

	input, err := me.input()
	if err != nil {
		return err
	}

	if bytes.HasPrefix(input, []byte(`"`)) {
		var blob string
		if err := json.Unmarshal(input, &blob); err != nil {
			return errors.Errorf("parsing payload: %w", err)
		}
		decoded, err := semtok.DecodeBitfield(blob, scopes)
		if err != nil {
			return err
		}
		zerolog.Ctx(ctx).Debug().Int("tokens", len(decoded)).Msg("decoded bitfield payload")
		return me.write(decoded)
	}

	var params protocol.SemanticHighlightingParams
	if err := json.Unmarshal(input, &params); err != nil {
		return errors.Errorf("parsing payload: %w", err)
	}
	lines, err := semtok.DecodeLines(params.Lines, scopes)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Int("lines", len(lines)).Msg("decoded bitfield lines")

	return me.write(lines)
}

func (me *Handler) input() ([]byte, error) {
	data, err := io.ReadAll(me.stdin)
	if err != nil {
		return nil, errors.Errorf("reading stdin: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no input on stdin")
	}
	return data, nil
}

func (me *Handler) readJSON(path string, v any) error {
	data, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (me *Handler) write(v any) error {
	enc := json.NewEncoder(me.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	return nil
}
