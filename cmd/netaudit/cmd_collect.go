package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"netaudit/internal/artifact"
	"netaudit/internal/collect"
)

var collectFlags struct {
	run    string
	output string
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Interpret a probe run's artifacts into capability records",
	RunE:  runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.StringVar(&collectFlags.run, "run", "", "Probe run UUID (required)")
	f.StringVarP(&collectFlags.output, "output", "o", ".netaudit", "Artifact store root")
	_ = collectCmd.MarkFlagRequired("run")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	store, err := artifact.Open(collectFlags.output)
	if err != nil {
		return err
	}
	collector := collect.New(store, collect.DefaultRegistry())

	res, err := collector.Collect(collectFlags.run)
	if err != nil {
		return err
	}
	if err := collector.Save(res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Collection %s over run %s (%s)\n", res.CollectionID, res.RunID, res.Platform)
	for _, o := range res.Outcomes {
		if o.Note != "" {
			fmt.Fprintf(out, "  %-16s %-14s %s\n", o.Feature, o.Outcome, o.Note)
			continue
		}
		fmt.Fprintf(out, "  %-16s %s\n", o.Feature, o.Outcome)
	}
	return nil
}
