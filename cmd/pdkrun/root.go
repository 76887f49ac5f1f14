package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/pdk"
)

var rootCmd = &cobra.Command{
	Use:   "pdkrun",
	Short: "Run extism:host/env plugins",
	Long: `pdkrun - Load WebAssembly plugins built with the pdk package and call them.

Plugins are described by a YAML manifest naming the module, its config,
the hosts it may reach over HTTP and where its variables persist. Print
the manifest format with "pdkrun schema".`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, json")
}

// newLogger builds the logger selected by the persistent flags. Logs go to
// w so plugin output on stdout stays clean.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	lvl, err := pdk.ParseLogLevel(levelName)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: slogLevel(lvl)}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: use text or json", format)
	}
}

func slogLevel(l pdk.LogLevel) slog.Level {
	switch l {
	case pdk.LogError:
		return slog.LevelError
	case pdk.LogWarn:
		return slog.LevelWarn
	case pdk.LogDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
