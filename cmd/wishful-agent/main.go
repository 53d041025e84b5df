package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/agent"
	"github.com/wishful-project/agent/common/go/logging"
	"github.com/wishful-project/agent/common/go/xcmd"
	"github.com/wishful-project/agent/internal/version"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
	// Mode overrides the agent mode from the configuration file.
	Mode string
	// DumpConfig prints the effective configuration and exits.
	DumpConfig bool
}

var rootCmd = &cobra.Command{
	Use:     "wishful-agent",
	Short:   "Wireless control-plane agent exposing UPI modules",
	Version: version.Version(),
	Run: func(rawCmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			if xcmd.IsInterrupted(err) {
				return
			}

			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.Flags().StringVarP(&cmd.Mode, "mode", "m", "", "Agent mode: local or remote (defaults to the configured one)")
	rootCmd.Flags().BoolVar(&cmd.DumpConfig, "dump-config", false, "Print the effective configuration with defaults applied and exit")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	doc, err := agent.ReadDocument(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := agent.DecodeConfig(doc)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mode := cfg.Agent.Mode
	if cmd.Mode != "" {
		if err := mode.UnmarshalText([]byte(cmd.Mode)); err != nil {
			return err
		}
		cfg.Agent.Mode = mode
	}

	if cmd.DumpConfig {
		return dumpConfig(os.Stdout, cfg)
	}

	log, atomicLevel, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	a, err := agent.New(mode, agent.WithLog(log), agent.WithAtomicLogLevel(&atomicLevel))
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	if err := a.LoadConfig(doc); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := xcmd.NotifyContext(context.Background())
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer func() {
		if err := a.Stop(); err != nil {
			log.Errorw("failed to stop agent", zap.Error(err))
		}
	}()

	log.Infow("agent started",
		zap.String("id", a.ID()),
		zap.Stringer("mode", a.Mode()),
	)
	if addr := a.GatewayAddr(); addr != nil {
		log.Infow("agent gateway is ready", zap.Stringer("addr", addr))
	}

	select {
	case <-a.Done():
		return fmt.Errorf("agent workers exited unexpectedly")
	case <-ctx.Done():
		cause := context.Cause(ctx)
		log.Infof("caught signal: %v", cause)
		return cause
	}
}

func dumpConfig(w io.Writer, cfg *agent.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
