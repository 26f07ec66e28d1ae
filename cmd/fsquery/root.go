package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/randalmurphal/fsquery/pkg/fsquery/config"
	"github.com/randalmurphal/fsquery/pkg/fsquery/observability"
	"github.com/randalmurphal/fsquery/pkg/fsquery/snapshot"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// app carries state shared by every subcommand for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	db         string
	logLevel   string
	workers    int
	color      string
	trace      bool

	settings config.Settings
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	shutdown func(context.Context) error
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "fsquery",
		Short: "Index directory trees and search them with find expressions",
		Long: `fsquery keeps snapshots of directory trees in a SQLite database and
evaluates find(1)-style expressions against them.

Expressions use find syntax: predicates such as -name, -size and -type,
joined by -and, -or, -xor and friends, grouped with parentheses and negated
with -not or !. Words that are not options match anywhere in the path, like
locate(1). Put the expression after "--" so its options are not taken as
flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "settings file (.yaml, .yml or .json)")
	pf.StringVar(&a.db, "db", "", "snapshot database path")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.IntVar(&a.workers, "workers", 0, "worker goroutines for deferred evaluation")
	pf.StringVar(&a.color, "color", "", "colour output: auto, always or never")
	pf.BoolVar(&a.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(
		newIndexCmd(a),
		newFindCmd(a),
		newExplainCmd(a),
		newSnapshotsCmd(a),
	)
	return root
}

// setup loads settings, applies flag overrides and builds the logger and
// telemetry shared by every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		s.DB = a.db
	}
	if flags.Changed("log-level") {
		s.LogLevel = a.logLevel
	}
	if flags.Changed("workers") {
		s.Workers = a.workers
	}
	if flags.Changed("color") {
		s.Color = a.color
	}
	if err := s.Validate(); err != nil {
		return err
	}
	a.settings = s

	level, _ := config.ParseLevel(s.LogLevel)
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	a.metrics = observability.NewMetricsRecorder()
	a.spans = observability.NoopSpanManager{}
	if a.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(a.stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		otel.SetTracerProvider(tp)
		a.spans = observability.NewSpanManager()
		a.shutdown = tp.Shutdown
	}
	return nil
}

// openStore opens the configured snapshot database, creating its directory.
func (a *app) openStore() (*snapshot.SQLiteStore, error) {
	if dir := filepath.Dir(a.settings.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return snapshot.NewSQLiteStore(a.settings.DB)
}

// colored decides whether -print output gets colour.
func (a *app) colored() bool {
	switch a.settings.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := a.stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
