// Command warnings parses static analysis reports into normalized issues.
//
//	warnings parse findbugs target/findbugsXml.xml
//	warnings parse --format sarif --baseline warnings-baseline.json spotbugs target/spotbugsXml.xml
//	warnings worker --tools findbugs,javac
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/zero-day-ai/warnings"
	"github.com/zero-day-ai/warnings/cache"
	"github.com/zero-day-ai/warnings/config"
	"github.com/zero-day-ai/warnings/telemetry"
)

// Version is the version of the command, overridden at build time via -ldflags.
var Version = "0.1.0-dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	color      string
	logLevel   string
	trace      bool
	cacheDir   string
	jobs       int
	locale     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "warnings",
		Short: "Parse and normalize static analysis reports",
		Long: `warnings reads the reports of static analysis tools (FindBugs, SpotBugs,
Checkstyle, javac) and turns them into one normalized list of issues.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyColorMode(opts.color, cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "configuration file or directory (default: search warnings.yaml upwards)")
	flags.StringVar(&opts.color, "color", "auto", "colorize output (auto|on|off)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	flags.BoolVar(&opts.trace, "trace", false, "log a trace span for every parsed report")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "directory of the parse cache (overrides cache_dir)")
	flags.IntVar(&opts.jobs, "jobs", 0, "max reports parsed concurrently (0=configuration or 4)")
	flags.StringVar(&opts.locale, "locale", "", "language of issue descriptions (overrides locale)")

	cmd.AddCommand(
		newParseCmd(opts),
		newToolsCmd(opts),
		newDescribeCmd(opts),
		newBaselineCmd(opts),
		newWorkerCmd(opts),
		newSubmitCmd(opts),
		newDoctorCmd(opts),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a process exit status other than 1.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func applyColorMode(mode string, out io.Writer) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(out)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// session is the state built from the persistent flags for one command run.
type session struct {
	cfg      *config.Config
	engine   *warnings.Engine
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// open loads the configuration and builds the engine.
func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return o.openWith(cmd, cfg)
}

// openWith builds the engine for an already loaded configuration.
func (o *rootOptions) openWith(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	logger, err := o.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	engineOpts := []warnings.Option{
		warnings.WithLogger(logger),
		warnings.WithConfig(cfg),
		warnings.WithJobs(o.jobs),
	}

	if o.locale != "" {
		tag, err := language.Parse(o.locale)
		if err != nil {
			return nil, fmt.Errorf("invalid --locale %q: %w", o.locale, err)
		}
		engineOpts = append(engineOpts, warnings.WithLocale(tag))
	}

	if cacheDir := o.cacheDirFor(cfg); cacheDir != "" {
		c, err := cache.Open(cacheDir)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, warnings.WithCache(c))
	}

	if o.trace {
		s.provider = telemetry.NewTracerProvider(logger, Version)
		engineOpts = append(engineOpts, warnings.WithTracer(telemetry.Tracer(s.provider)))
	}

	s.engine = warnings.New(engineOpts...)
	return s, nil
}

// cacheDirFor returns the parse cache directory, empty when caching is off.
func (o *rootOptions) cacheDirFor(cfg *config.Config) string {
	if o.cacheDir != "" || cfg == nil {
		return o.cacheDir
	}
	return cfg.CacheDir
}

// Close flushes the tracer provider.
func (s *session) Close() {
	if s.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		s.logger.Warn("failed to shut down tracer provider", "error", err)
	}
}

func (o *rootOptions) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	// spans are exported at debug level
	if o.trace && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig loads --config, or searches the working directory and its
// parents. Running without a configuration file is fine.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	cfg, err := config.LoadFromCurrentDir()
	if errors.Is(err, config.ErrNoConfig) {
		return nil, nil
	}
	return cfg, err
}
