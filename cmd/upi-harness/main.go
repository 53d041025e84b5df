package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/wishful-project/agent/common/go/logging"
	"github.com/wishful-project/agent/common/go/xcmd"
	"github.com/wishful-project/agent/harness"
	"github.com/wishful-project/agent/internal/version"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the agent configuration file.
	ConfigPath string
	// Iface is the network interface to query.
	Iface string
	// Assert is the result checking mode.
	Assert string
	// Run lists glob patterns of cases to run.
	Run []string
	// Skip lists glob patterns of cases to skip.
	Skip []string
	// LogLevel is the minimum logging level.
	LogLevel string
	// NoColor disables colored output.
	NoColor bool
}

var errCasesFailed = errors.New("some harness cases failed")

var rootCmd = &cobra.Command{
	Use:     "upi-harness",
	Short:   "Run UPI harness cases against a local agent",
	Version: version.Version(),
	Run: func(rawCmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			if xcmd.IsInterrupted(err) {
				os.Exit(130)
			}
			if !errors.Is(err, errCasesFailed) {
				fmt.Printf("ERROR: %v\n", err)
			}
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the agent configuration file (required)")
	rootCmd.Flags().StringVarP(&cmd.Iface, "iface", "i", "eth0", "Network interface to query")
	rootCmd.Flags().StringVar(&cmd.Assert, "assert", "enabled", "Result checking mode: enabled or disabled")
	rootCmd.Flags().StringSliceVar(&cmd.Run, "run", nil, "Run only cases matching these glob patterns")
	rootCmd.Flags().StringSliceVar(&cmd.Skip, "skip", nil, "Skip cases matching these glob patterns")
	rootCmd.Flags().StringVar(&cmd.LogLevel, "log-level", "info", "Minimum logging level")
	rootCmd.Flags().BoolVar(&cmd.NoColor, "no-color", false, "Disable colored output")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	assert, err := harness.ParseAssertMode(cmd.Assert)
	if err != nil {
		return err
	}
	level, err := zapcore.ParseLevel(cmd.LogLevel)
	if err != nil {
		return err
	}
	filter, err := harness.NewFilter(cmd.Run, cmd.Skip)
	if err != nil {
		return err
	}

	loggingCfg := logging.DefaultConfig()
	loggingCfg.Level = level

	lc, err := harness.NewLogContext(loggingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer lc.Close()

	ctx, stop := xcmd.NotifyContext(context.Background())
	defer stop()

	f, err := harness.Setup(ctx, harness.Options{
		ConfigPath: cmd.ConfigPath,
		Assert:     assert,
		LogContext: lc,
	})
	if err != nil {
		return err
	}
	defer f.Teardown()

	reporter := harness.NewConsoleReporter(os.Stdout, cmd.NoColor)
	results := harness.RunCases(ctx, f, harness.DefaultCases(cmd.Iface), filter, reporter)
	reporter.Summary(results)

	if err := f.Teardown(); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && xcmd.IsInterrupted(cause) {
		return cause
	}
	if !results.OK() {
		return errCasesFailed
	}
	return nil
}
