package tokens

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/clangd"
	"github.com/walteh/clangd-highlight/pkg/config"
	"github.com/walteh/clangd-highlight/pkg/highlight"
	"github.com/walteh/clangd-highlight/pkg/lsp/protocol"
)

type Handler struct {
	protocol string
	compact  bool

	fs     afero.Fs
	stdout io.Writer
	dial   highlight.Dialer
}

func NewTokensCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs(), stdout: os.Stdout}

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "print the decoded clangd tokens of a file as json",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.protocol, "protocol", "", "override the configured protocol (semantic-tokens or semantic-highlighting)")
	cmd.Flags().BoolVar(&me.compact, "compact", false, "print json on a single line")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args[0])
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, path string) error {
	cfg := config.FromContext(ctx)

	opts, err := cfg.ClangdOptions()
	if err != nil {
		return err
	}
	if me.protocol != "" {
		if opts.Protocol, err = clangd.ParseProtocol(me.protocol); err != nil {
			return err
		}
	}

	data, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	h := highlight.New(highlight.Options{Clangd: opts, ClassPrefix: cfg.Markdown.ClassPrefix}, me.dial)
	defer func() {
		if err := h.Close(ctx); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing clangd")
		}
	}()

	res, _, err := h.Document(ctx, clangd.Document{
		URI:        protocol.URIFromPath(path),
		Text:       string(data),
		LanguageID: highlight.LanguageID(strings.TrimPrefix(filepath.Ext(path), ".")),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(me.stdout)
	if !me.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		return errors.Errorf("writing tokens: %w", err)
	}

	return nil
}
