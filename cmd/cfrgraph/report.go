package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

func reportCmd(flags *globalFlags) *cobra.Command {
	var (
		title string
		top   int
	)
	kinds := make([]string, len(cfrgraph.ReportKinds))
	for i, k := range cfrgraph.ReportKinds {
		kinds[i] = string(k)
	}
	cmd := &cobra.Command{
		Use:       "report KIND",
		Short:     "Print a word-count or change-frequency rollup as JSON",
		Long:      fmt.Sprintf("Print a rollup as JSON rows. KIND is one of: %s.", strings.Join(kinds, ", ")),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()

			titleID := title
			if titleID != "" && !strings.HasPrefix(titleID, "title-") {
				titleID = model.TitleID(titleID)
			}
			rows, err := eng.Report(ctx, cfrgraph.ReportKind(args[0]), titleID, top)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "title number or id, required by section reports")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "keep only the first N rows (0 keeps all)")
	return cmd
}

func summaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Render a markdown summary of the largest and most amended agencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()
			return eng.Summary(ctx, cmd.OutOrStdout())
		},
	}
}
