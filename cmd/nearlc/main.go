// Command nearlc is the CLI facade over the NEAR light client verification
// core (spec.md 6): it wires a Host, a Client and an RPC collaborator
// together and exposes the start/view-head/verify-* command surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/near/light-client/log"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	var logFormat string
	var logLevel string

	root := &cobra.Command{
		Use:           "nearlc",
		Short:         "NEAR light client verification core",
		Long:          "nearlc drives a NEAR light client: syncing successor headers and verifying account state and transaction inclusion proofs against the cached consensus state.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := log.NewFormatted(logFormat, log.LevelFromString(logLevel))
			if err != nil {
				return err
			}
			log.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "nearlc.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log output format: json, text, or color")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")

	root.AddCommand(newStartCmd(&configPath))
	root.AddCommand(newViewHeadCmd(&configPath))
	root.AddCommand(newVerifyMembershipCmd(&configPath))
	root.AddCommand(newVerifyNonMembershipCmd(&configPath))
	root.AddCommand(newVerifyTransactionCmd(&configPath))
	return root
}
