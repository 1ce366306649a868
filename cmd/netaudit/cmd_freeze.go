package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netaudit/internal/index"
)

var freezeFlags struct {
	file string
	db   string
}

var freezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Validate a contract and record its hash as frozen",
	Long: "Freeze validates a contract and records its canonical hash in the index.\n" +
		"Probing requires a frozen contract; any later edit to the document changes\n" +
		"the hash and is refused until a new revision is frozen.",
	RunE: runFreeze,
}

func init() {
	f := freezeCmd.Flags()
	f.StringVarP(&freezeFlags.file, "file", "f", "", "Contract YAML path (required)")
	f.StringVar(&freezeFlags.db, "db", index.DefaultPath, "Run/freeze index path")
	_ = freezeCmd.MarkFlagRequired("file")
}

func runFreeze(cmd *cobra.Command, _ []string) error {
	c, err := validateContract(cmd, freezeFlags.file)
	if err != nil {
		return err
	}
	ix, err := index.Open(freezeFlags.db)
	if err != nil {
		return err
	}
	defer ix.Close()

	if err := ix.Freeze(c); err != nil {
		return fmt.Errorf("freeze %s rev %s: %w", c.Name(), c.Revision(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Frozen %s rev %s %s\n", c.Name(), c.Revision(), c.Hash())
	return nil
}
