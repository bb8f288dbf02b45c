package markdown

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/config"
	"github.com/walteh/clangd-highlight/pkg/highlight"
	"github.com/walteh/clangd-highlight/pkg/markdown"
)

type Handler struct {
	out    string
	strict bool

	fs   afero.Fs
	dial highlight.Dialer
}

func NewMarkdownCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "markdown <glob>...",
		Short: "render markdown files to html, highlighting C and C++ code blocks",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVar(&me.out, "out", "", "directory for the html files (default: next to each input)")
	cmd.Flags().BoolVar(&me.strict, "strict", false, "fail when a code block cannot be highlighted")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, patterns []string) error {
	cfg := config.FromContext(ctx)

	opts, err := cfg.ClangdOptions()
	if err != nil {
		return err
	}

	files, err := me.expand(patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %v", patterns)
	}

	h := highlight.New(highlight.Options{Clangd: opts, ClassPrefix: cfg.Markdown.ClassPrefix}, me.dial)
	defer func() {
		if err := h.Close(ctx); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("closing clangd")
		}
	}()

	mopts := cfg.MarkdownOptions()
	mopts.Strict = me.strict
	conv := markdown.New(h, mopts)

	for _, file := range files {
		if err := me.convert(ctx, conv, file); err != nil {
			return err
		}
	}

	return nil
}

// input is one matched file. rel is its path below the static base of the
// pattern that matched it, and decides where the output lands under --out.
type input struct {
	path   string
	rel    string
	output string
}

// expand resolves every pattern with doublestar, relative to its static base
// directory. Two inputs that would write the same output file are an error.
func (me *Handler) expand(patterns []string) ([]input, error) {
	seen := map[string]bool{}
	outputs := map[string]string{}
	var files []input
	for _, pattern := range patterns {
		base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(me.fs, base)), rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("expanding %q: %w", pattern, err)
		}
		for _, m := range matches {
			path := filepath.Join(base, filepath.FromSlash(m))
			if seen[path] {
				continue
			}
			seen[path] = true

			in := input{path: path, rel: filepath.FromSlash(m)}
			in.output = me.outputPath(in)
			if prev, ok := outputs[in.output]; ok {
				return nil, errors.Errorf("%s and %s both render to %s", prev, path, in.output)
			}
			outputs[in.output] = path
			files = append(files, in)
		}
	}
	return files, nil
}

func (me *Handler) outputPath(in input) string {
	if me.out != "" {
		return withHTMLExt(filepath.Join(me.out, in.rel))
	}
	return withHTMLExt(in.path)
}

func withHTMLExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
}

func (me *Handler) convert(ctx context.Context, conv *markdown.Converter, in input) error {
	path := in.path
	src, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	var buf bytes.Buffer
	stats, err := conv.Convert(ctx, src, &buf)
	if err != nil {
		return errors.Errorf("converting %s: %w", path, err)
	}

	out := in.output
	if err := me.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.Errorf("creating %s: %w", filepath.Dir(out), err)
	}
	if err := afero.WriteFile(me.fs, out, buf.Bytes(), 0o644); err != nil {
		return errors.Errorf("writing %s: %w", out, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("input", path).
		Str("output", out).
		Int("blocks", stats.Blocks).
		Int("highlighted", stats.Highlighted).
		Int("failed", stats.Failed).
		Msg("rendered markdown")

	return nil
}
