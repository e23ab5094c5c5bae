package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Running it without a subcommand behaves like
// serve, including the --addr flag.
func newRootCmd() *cobra.Command {
	var root = &cobra.Command{
		Use:           "profsync",
		Short:         "ProfSync chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var addr string
	serve := serveCMD(&addr)
	root.RunE = serve.RunE
	addAddrFlag(root, &addr)
	root.AddCommand(serve, lambdaCMD())
	return root
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
