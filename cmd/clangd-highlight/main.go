package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/clangd-highlight/cmd/clangd-highlight/decode"
	highlightcmd "github.com/walteh/clangd-highlight/cmd/clangd-highlight/highlight"
	markdowncmd "github.com/walteh/clangd-highlight/cmd/clangd-highlight/markdown"
	"github.com/walteh/clangd-highlight/cmd/clangd-highlight/tokens"
	"github.com/walteh/clangd-highlight/pkg/config"
	"github.com/walteh/clangd-highlight/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		debugLogs  bool
	)

	rootCmd := &cobra.Command{
		Use:           "clangd-highlight",
		Short:         "Semantic highlighting for C and C++ through clangd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.yaml, .hcl or .json)")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if debugLogs {
			level = zerolog.DebugLevel
		}
		logger := logging.New(os.Stderr, logging.Options{
			Level:     level,
			Color:     !color.NoColor,
			Component: cmd.Name(),
		})
		ctx := logger.WithContext(cmd.Context())

		cfg, err := config.Load(afero.NewOsFs(), configPath)
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return errors.Errorf("invalid config %s: %w", configPath, err)
		}

		cmd.SetContext(config.WithContext(ctx, cfg))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(tokens.NewTokensCommand())
	rootCmd.AddCommand(highlightcmd.NewHighlightCommand())
	rootCmd.AddCommand(markdowncmd.NewMarkdownCommand())
	rootCmd.AddCommand(decode.NewDecodeCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
