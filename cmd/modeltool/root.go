package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"modeltool/internal/config"
	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/session"
	"modeltool/internal/tui/styles"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	cfgFile     string
	debug       bool
	jsonLog     bool
	logFile     string
	verbosity   string
	metricsAddr string
	theme       string
}

// app carries the loaded configuration between the root command and its
// subcommands.
type app struct {
	flags globalFlags
	cfg   *config.Config
	out   *printer
}

// ownsTerminal marks commands that draw on the terminal themselves, so
// application logs never reach stderr while they run.
const ownsTerminal = "owns-terminal"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "modeltool",
		Short: "Browse, inspect and convert 3D model files",
		Long: `modeltool imports 3D model files through a conversion engine, writes them
in the engine-native .lmdl format and shows their mesh structure.

Run it on a single file, on every importable file of a directory, or keep a
directory under watch from the terminal browser.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Default().Close()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.cfgFile, "config", "", "config file (default is $HOME/.config/modeltool/config.yaml)")
	pf.BoolVar(&a.flags.debug, "debug", false, "write debug logs to stderr")
	pf.BoolVar(&a.flags.jsonLog, "json-log", false, "emit application logs as JSON")
	pf.StringVar(&a.flags.logFile, "log-file", "", "also append application logs to this file")
	pf.StringVar(&a.flags.verbosity, "verbosity", "", "log pane threshold: error, warning, info, debug or verbose")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (watch and tui)")
	pf.StringVar(&a.flags.theme, "theme", "", "color theme: "+strings.Join(config.ListThemes(), ", "))

	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))
	rootCmd.AddCommand(newConvertCmd(a))
	rootCmd.AddCommand(newConvertAllCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newTUICmd(a))

	return rootCmd
}

// setup loads configuration, applies flag overrides and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	if a.flags.cfgFile != "" {
		a.cfg, err = config.LoadConfigFile(a.flags.cfgFile)
		if err != nil {
			return err
		}
	} else {
		a.cfg, err = config.LoadConfig()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nUsing default settings.\n", err)
			a.cfg = config.New()
		}
	}

	flags := cmd.Flags()
	if flags.Changed("verbosity") {
		if _, err := logsink.ParseSeverity(a.flags.verbosity); err != nil {
			return errors.NewConfigError("invalid --verbosity", "log.verbosity", errors.InvalidConfig, err)
		}
		a.cfg.Log.Verbosity = a.flags.verbosity
	}
	if flags.Changed("json-log") {
		a.cfg.Log.JSON = a.flags.jsonLog
	}
	if flags.Changed("log-file") {
		a.cfg.Log.File = a.flags.logFile
	}
	if flags.Changed("metrics-addr") {
		a.cfg.Metrics.Addr = a.flags.metricsAddr
	}
	if flags.Changed("theme") {
		if err := a.cfg.ApplyTheme(a.flags.theme); err != nil {
			return err
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.out = newPrinter(cmd.OutOrStdout(), styles.FromConfig(a.cfg))
	a.configureLogging(cmd.ErrOrStderr(), cmd.Annotations[ownsTerminal] == "")
	return nil
}

// configureLogging sends application logs to stderr only with --debug, and
// to the configured log file when there is one.
func (a *app) configureLogging(stderr io.Writer, toTerminal bool) {
	log.SetDebug(a.flags.debug)

	out := io.Discard
	if a.flags.debug && toTerminal {
		out = stderr
	}
	opts := []log.Option{log.WithOutput(out)}
	if a.cfg.Log.JSON {
		opts = append(opts, log.WithJSON())
	}
	if a.cfg.Log.File != "" {
		opts = append(opts, log.WithFile(a.cfg.Log.File))
	}
	log.Configure(opts...)
}

// newSession builds a session from the loaded configuration.
func (a *app) newSession(opts ...session.Option) (*session.Session, error) {
	return session.New(a.cfg, opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM so that the operation in
// flight is cancelled instead of the process dying mid-write.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// printLog writes the orchestrator's filtered log records to stderr.
func (a *app) printLog(cmd *cobra.Command, s *session.Session) {
	for _, r := range s.Orchestrator().LogView().Get() {
		fmt.Fprintln(cmd.ErrOrStderr(), a.out.theme.Severity(r.Severity).Render(r.String()))
	}
}
