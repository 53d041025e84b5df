package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wishful-project/agent/client"
	"github.com/wishful-project/agent/internal/version"
)

var rootCmdArgs struct {
	Endpoint string
	Timeout  time.Duration
}

var rootCmd = &cobra.Command{
	Use:     "upictl",
	Short:   "Issue UPI calls to a remote wishful agent",
	Version: version.Version(),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootCmdArgs.Endpoint, "endpoint", "e", "127.0.0.1:50051", "Agent gateway endpoint")
	rootCmd.PersistentFlags().DurationVarP(&rootCmdArgs.Timeout, "timeout", "t", 10*time.Second, "UPI call timeout")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(logLevelCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func dial() (*client.RemoteController, error) {
	return client.Dial(rootCmdArgs.Endpoint, client.WithCallTimeout(rootCmdArgs.Timeout))
}
