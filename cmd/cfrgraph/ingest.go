package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/config"
)

func ingestCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the entity graph from the eCFR API or a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			report, err := eng.Ingest(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				RunID          string   `json:"runId"`
				Agencies       int      `json:"agencies"`
				UnknownAgency  int      `json:"unknownAgencies"`
				Titles         int      `json:"titles"`
				DetailedTitles int      `json:"detailedTitles"`
				Sections       int      `json:"sections"`
				Changes        int      `json:"changes"`
				Synthetic      int      `json:"syntheticChanges"`
				Estimated      int      `json:"estimatedTitles"`
				Failed         []string `json:"failedTitles"`
				Duration       string   `json:"duration"`
			}{
				report.RunID, report.Agencies, report.UnknownAgency, report.Titles,
				report.DetailedTitles, report.Sections, report.Changes, report.Synthetic,
				report.Estimated, report.Failed, report.Duration.String(),
			})
		},
	}
}

func snapshotCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot DIR [TITLE...]",
		Short: "Download upstream payloads into DIR for offline ingestion",
		Long: `Download the agency directory, the title list and the per-title payloads
into DIR. Without TITLE arguments the first pipeline.detailed_titles titles
are fetched. Ingest the result later with --snapshot-dir DIR.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// a snapshot always reads from the API
			eng, err := openEngine(ctx, cmd, flags, func(cfg *config.Config) { cfg.API.SnapshotDir = "" })
			if err != nil {
				return err
			}
			defer eng.Close()
			return eng.Snapshot(ctx, args[0], args[1:])
		},
	}
}
