package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string

	serverFlag   string
	timeoutFlag  time.Duration
	maxSlotsFlag int
	rootFlag     string
	setsidFlag   bool
	probeFlag    bool

	listMode   bool
	cleanMode  bool
	listFormat string

	// exitCode is the status of the command run by the last Execute.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "forage-xrun [flags] <command> [args...]",
	Short: "Run a command on its own X display",
	Long: `forage-xrun starts a private X server on the first free display, runs a
command with DISPLAY pointing at it, and tears the server down when the
command exits.

The display is claimed through the shared lock markers and sockets in
/tmp (/tmp/.X<N>-lock, /tmp/.X11-unix/X<N>), so concurrent runs and other
X servers never collide. The command's exit status is returned unchanged.

Exit codes outside the command's own range:
  2    usage error
  120  invalid configuration
  121  no free display slot
  122  display server could not be executed
  123  display server did not become ready in time
  124  display server reported the wrong display
  125  display session could not be established
  126  command is not executable
  127  command not found`,
	Example: `  forage-xrun xterm
  forage-xrun --server Xvfb --timeout 10s -- glxinfo -B
  forage-xrun --list --probe`,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, cmd.ErrOrStderr())
		logging.SetUserOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
	RunE: runRoot,
}

// Execute runs the CLI. It returns the command's exit status, or an error
// whose exit code should be used instead.
func Execute() (int, error) {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		return 0, err
	}
	return exitCode, nil
}

func init() {
	flags := rootCmd.Flags()
	// Everything after the command name belongs to the command.
	flags.SetInterspersed(false)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/forage-xrun/config.toml)")

	flags.StringVar(&serverFlag, "server", "", "Display server executable (default Xwayland)")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "How long to wait for the server to become ready (default 5s)")
	flags.IntVar(&maxSlotsFlag, "max-slots", 0, "Number of display slots to try (default 1024)")
	flags.StringVar(&rootFlag, "root", "", "Directory holding lock markers and .X11-unix (default /tmp)")
	flags.BoolVar(&setsidFlag, "setsid", false, "Start the display server in a new session")
	flags.BoolVar(&probeFlag, "probe", false, "Check the display with an X11 connection before running the command")

	flags.BoolVar(&listMode, "list", false, "List display slots in use instead of running a command")
	flags.BoolVar(&cleanMode, "clean", false, "With --list, remove artifacts left by dead servers")
	flags.StringVar(&listFormat, "format", "table", "Output format for --list: table or json")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.UsageError(err.Error())
	})
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func runRoot(cmd *cobra.Command, args []string) error {
	if cleanMode && !listMode {
		return errors.UsageError("--clean can only be used with --list")
	}
	if !listMode && len(args) == 0 {
		return errors.UsageError("no command given")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	if listMode {
		return runList(cmd, a)
	}

	// Signals cancel startup. Once the command runs, the session forwards
	// them instead.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	code, err := a.Runner.Run(ctx, args)
	if err != nil {
		return err
	}
	exitCode = code
	return nil
}

// loadConfig layers command-line flags over the loaded configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = serverFlag
	}
	if flags.Changed("timeout") {
		cfg.ReadyTimeout = config.Duration{Duration: timeoutFlag}
	}
	if flags.Changed("max-slots") {
		cfg.MaxSlots = maxSlotsFlag
	}
	if flags.Changed("root") {
		cfg.NamespaceRoot = rootFlag
	}
	if flags.Changed("setsid") {
		cfg.Setsid = setsidFlag
	}
	if flags.Changed("probe") {
		cfg.Probe = probeFlag
	}
	return cfg, nil
}
