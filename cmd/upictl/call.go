package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/internal/upi"
)

var callCmdArgs struct {
	Async bool
}

var callCmd = &cobra.Command{
	Use:   "call NAME [ARGS...]",
	Short: "Call a UPI function",
	Long: `Call a UPI function, such as "net.get_iface_hw_addr eth0".
Arguments are parsed as YAML scalars, so "6" is passed as a number and
"eth0" as a string. Quote numbers to pass them as strings.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCall(args[0], args[1:]); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	callCmd.Flags().BoolVar(&callCmdArgs.Async, "async", false, "Issue a non-blocking call and wait for its completion")
}

func runCall(name string, rawArgs []string) error {
	if _, _, err := upi.ParseName(name); err != nil {
		return err
	}

	args, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	ctrl, err := dial()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := context.Background()

	var result any
	if callCmdArgs.Async {
		call := ctrl.Go(ctx, nil, name, args...)
		result, err = call.Wait(ctx)
	} else {
		result, err = ctrl.Call(ctx, name, args...)
	}
	if err != nil {
		return fmt.Errorf("failed to call %q: %w", name, err)
	}

	return printResult(result)
}

func parseArgs(rawArgs []string) ([]any, error) {
	args := make([]any, 0, len(rawArgs))
	for idx, raw := range rawArgs {
		var arg any
		if err := yaml.Unmarshal([]byte(raw), &arg); err != nil {
			return nil, fmt.Errorf("failed to parse argument %d: %w", idx, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

func printResult(result any) error {
	if result == nil {
		fmt.Println("<none>")
		return nil
	}

	out, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
