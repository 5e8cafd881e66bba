package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/streamflo/pkg/config"
	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions carries the persistent flags and the configuration they
// resolve to.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "streamflo",
		Short: "streamflo: stream graph validator and editor",
		Long: `streamflo checks and edits stream definitions drawn as DOT graphs.

Each node is an application instance (source, processor, sink, task) or a
structural element (tap, destination). Edges connect output ports to input
ports; tap=true marks a side-channel tap.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(linkCmd())
	root.AddCommand(deleteCmd(opts))
	root.AddCommand(dropCmd(opts))
	root.AddCommand(serveCmd(opts))
	return root
}

// load reads the config file, applies flag overrides and installs the logger.
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if err := initLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// ─── logging ──────────────────────────────────────────────────────────────────

// initLogger installs the default slog logger writing to stderr.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info", "":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	hopts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		h = slog.NewTextHandler(os.Stderr, hopts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, hopts)
	default:
		return fmt.Errorf("unknown log format %q: use text or json", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func readGraph(path string) (*stream.MemGraph, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	g, err := stream.ParseDOT(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return g, nil
}

func writeGraph(w io.Writer, g *stream.MemGraph) error {
	_, err := io.WriteString(w, stream.FormatDOT(g.Name, g))
	return err
}

// parseEnd reads "node" or "node:port", defaulting the port to def.
func parseEnd(s string, def stream.PortKind) stream.End {
	id, port, ok := strings.Cut(s, ":")
	if !ok || port == "" {
		return stream.End{ID: id, Port: def}
	}
	return stream.End{ID: id, Port: stream.PortKind(port)}
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
