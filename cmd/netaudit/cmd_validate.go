package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netaudit/internal/contract"
)

var validateFlags struct {
	file string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a command contract and print its content hash",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.file, "file", "f", "", "Contract YAML path (required)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	c, err := validateContract(cmd, validateFlags.file)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Contract: %s rev %s (%s)\n", c.Name(), c.Revision(), c.Platform())
	fmt.Fprintf(out, "Commands: %d\n", c.Len())
	fmt.Fprintf(out, "Hash:     %s\n", c.Hash())
	return nil
}

// validateContract runs the validator over a file and reports violations on
// the command's output. Shared by validate, freeze and probe.
func validateContract(cmd *cobra.Command, path string) (*contract.Contract, error) {
	v := contract.NewValidator(contract.DefaultConfig())
	c, violations, err := v.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		out := cmd.OutOrStdout()
		for _, viol := range violations {
			fmt.Fprintf(out, "  %s\n", viol)
		}
		return nil, fmt.Errorf("%s: %d contract violation(s)", path, len(violations))
	}
	return c, nil
}
