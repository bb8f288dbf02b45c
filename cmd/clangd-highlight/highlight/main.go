package highlight

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/clangd-highlight/pkg/config"
	"github.com/walteh/clangd-highlight/pkg/highlight"
	"github.com/walteh/clangd-highlight/pkg/render"
)

type Handler struct {
	format   string
	tabWidth int
	color    string

	fs     afero.Fs
	stdout io.Writer
	dial   highlight.Dialer
}

func NewHighlightCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs(), stdout: os.Stdout}

	cmd := &cobra.Command{
		Use:   "highlight <file>",
		Short: "print a file with clangd semantic highlighting",
		Args:  cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&me.format, "format", "", "override the configured output format (ansi or html)")
	cmd.Flags().IntVar(&me.tabWidth, "tab-width", 0, "override the tab width used by ansi output")
	cmd.Flags().StringVar(&me.color, "color", "auto", "color ansi output: auto, always or never")

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

	formatName := cfg.Render.Format
	if me.format != "" {
		formatName = me.format
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		return err
	}

	mode, err := render.ParseColorMode(me.color)
	if err != nil {
		return err
	}

	tabWidth := me.tabWidth
	if tabWidth <= 0 {
		tabWidth = cfg.TabWidth(path)
	}

	h := highlight.New(highlight.Options{Clangd: opts, ClassPrefix: cfg.Markdown.ClassPrefix}, me.dial)
	defer func() {
		if err := h.Close(ctx); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing clangd")
		}
	}()

	text, spans, err := h.File(ctx, me.fs, path)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("spans", len(spans)).Msg("highlighted file")

	return render.Write(me.stdout, format, text, spans, render.ANSIOptions{
		TabWidth: tabWidth,
		Palette:  render.PaletteFor(mode),
	})
}
