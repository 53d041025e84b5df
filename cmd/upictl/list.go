package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List gateway services and exported UPI functions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func runList() error {
	ctrl, err := dial()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := context.Background()

	services, err := ctrl.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	fmt.Println("Services")
	for _, service := range services {
		fmt.Printf("  %s\n", service)
	}

	upis, err := ctrl.Call(ctx, "info.list_upis")
	if err != nil {
		return fmt.Errorf("failed to list UPI functions: %w", err)
	}
	fmt.Println("UPI functions")
	if names, ok := upis.([]any); ok {
		for _, name := range names {
			fmt.Printf("  %v\n", name)
		}
	}
	return nil
}

var logLevelCmd = &cobra.Command{
	Use:   "log-level [LEVEL]",
	Short: "Show or change the minimum logging level of the agent",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLogLevel(args); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func runLogLevel(args []string) error {
	ctrl, err := dial()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if len(args) == 0 {
		level, err := ctrl.GetLevel(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get log level: %w", err)
		}
		fmt.Println(level)
		return nil
	}

	level := args[0]
	if err := ctrl.UpdateLevel(context.Background(), level); err != nil {
		return fmt.Errorf("failed to update log level: %w", err)
	}
	fmt.Printf("log level is set to %q\n", level)
	return nil
}
