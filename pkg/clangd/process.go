package clangd

import (
	"context"
	"os/exec"

	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/pkg/logging"
)

// Spawn starts clangd as a child process and performs the initialize
// handshake over its stdio. The process lives until Close.
func Spawn(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	path, err := exec.LookPath(opts.Path)
	if err != nil {
		return nil, errors.Errorf("finding clangd binary %q: %w", opts.Path, err)
	}

	// the process must outlive the handshake context
	cmd := exec.CommandContext(context.WithoutCancel(ctx), path, opts.Args...)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("getting stdout pipe: %w", err)
	}
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("getting stdin pipe: %w", err)
	}

	stderr := logging.NewLineWriter(zerolog.Ctx(ctx).With().Str("name", "clangd").Logger(), zerolog.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Strs("args", opts.Args).Int("pid", cmd.Process.Pid).Msg("started clangd")

	sess, err := NewSession(ctx, channel.LSP(out, in), opts)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		stderr.Flush()
		return nil, err
	}

	sess.cmd = cmd
	sess.stderr = stderr

	return sess, nil
}
