// netaudit probes network devices with frozen, read-only command contracts
// and interprets the captured output into capability-annotated records.
//
// Usage:
//
//	netaudit validate -f contract.yaml
//	netaudit freeze   -f contract.yaml [--db path]
//	netaudit probe    -f contract.yaml --host H --user U [--pass-env VAR]
//	netaudit collect  --run <uuid> [--output dir]
//	netaudit runs     [--db path]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netaudit/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "netaudit",
	Short: "Contract-driven, read-only network device auditing",
	Long: "netaudit executes frozen command contracts against network devices over SSH,\n" +
		"stores every raw capture append-only, and derives normalized records with\n" +
		"explicit per-feature capability verdicts.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
