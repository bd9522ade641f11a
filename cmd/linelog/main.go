package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maxiofs/linelog/internal/config"
	"github.com/maxiofs/linelog/internal/linelog"
	"github.com/maxiofs/linelog/internal/logging"
	"github.com/maxiofs/linelog/internal/metrics"
	"github.com/maxiofs/linelog/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// debugLogPath is the one destination of this process. Tests point it elsewhere.
var debugLogPath = linelog.DefaultPath

// errArgumentLineBreak is returned by write when an argument would not stay one line
var errArgumentLineBreak = errors.New("argument contains a line break")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linelog",
		Short: "linelog - append-only debug line log",
		Long: `linelog appends printf-style debug lines to a single fixed file.
Lines from concurrent writers never interleave; overlong lines are truncated.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Operational log format (json, text)")
	rootCmd.PersistentFlags().Bool("mirror-operational", false, "Also append operational log entries to the debug log")

	rootCmd.AddCommand(newWriteCommand(), newServeCommand(), newPathCommand())
	return rootCmd
}

func newWriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "write [message...]",
		Short: "Append each argument, or each stdin line, as one line",
		RunE:  runWrite,
	}
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept debug lines over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringP("listen", "l", ":9400", "Listen address")
	return cmd
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the debug log path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), debugLogPath)
			return err
		},
	}
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	for i, arg := range args {
		if strings.ContainsAny(arg, "\r\n") {
			return fmt.Errorf("%w: argument %d", errArgumentLineBreak, i+1)
		}
	}

	debugLog, closeDebugLog, err := openDebugLog(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDebugLog()

	if len(args) > 0 {
		for _, arg := range args {
			debugLog.Log("%s", arg)
		}
		return nil
	}

	return appendLines(debugLog, cmd.InOrStdin())
}

// appendLines logs every line read from r. Lines of any length are accepted;
// the debug log truncates them.
func appendLines(debugLog *linelog.Logger, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			debugLog.Log("%s", strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var registry *prometheus.Registry
	if cfg.Metrics.Enable {
		registry = metrics.NewRegistry()
	}

	debugLog, closeDebugLog, err := openDebugLog(cfg, registry)
	if err != nil {
		return err
	}
	defer closeDebugLog()

	if registry != nil {
		registry.MustRegister(metrics.NewDestinationCollector(debugLog))
	}

	srv, err := server.New(cfg, debugLog, registry)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("Starting linelog")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logrus.Info("linelog stopped")
	return nil
}

// loadConfig loads configuration and points operational logs at stderr so
// they never mix with command output
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logrus.SetOutput(cmd.ErrOrStderr())
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// openDebugLog opens the process debug log. An unusable destination is
// reported once here; the logger itself stays silent and discards lines.
// The returned func detaches operational mirroring and closes the log.
func openDebugLog(cfg *config.Config, registry *prometheus.Registry) (*linelog.Logger, func(), error) {
	opts := linelog.Options{}
	if registry != nil {
		opts.Metrics = linelog.NewMetrics(registry)
	}

	debugLog := linelog.Open(debugLogPath, opts)
	if err := debugLog.Err(); err != nil {
		logrus.WithError(err).WithField("path", debugLogPath).Warn("Debug log unavailable, lines will be discarded")
	}

	unmirror := func() {}
	if cfg.MirrorOperational {
		restore, err := logging.MirrorTo(debugLog, cfg.MirrorLevel)
		if err != nil {
			debugLog.Close()
			return nil, nil, fmt.Errorf("failed to mirror operational logs: %w", err)
		}
		unmirror = restore
	}

	return debugLog, func() {
		unmirror()
		debugLog.Close()
	}, nil
}
