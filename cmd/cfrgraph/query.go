package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

func agenciesCmd(flags *globalFlags) *cobra.Command {
	var (
		search       string
		byTitleCount bool
	)
	cmd := &cobra.Command{
		Use:   "agencies [ID]",
		Short: "List, search or show agencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()
			st := eng.Store()

			switch {
			case len(args) == 1:
				a, ok, err := st.GetAgency(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("agency %q: %w", args[0], internalerr.ErrNotFound)
				}
				return writeJSON(cmd.OutOrStdout(), a)
			case byTitleCount:
				rows, err := st.AgenciesByTitleCount(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			case search != "":
				rows, err := st.SearchAgencies(ctx, search)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			default:
				rows, err := st.ListAgencies(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on name, short name or display name")
	cmd.Flags().BoolVar(&byTitleCount, "by-title-count", false, "order by number of attributed titles")
	return cmd
}

func titlesCmd(flags *globalFlags) *cobra.Command {
	var (
		search  string
		agency  string
		byWords bool
	)
	cmd := &cobra.Command{
		Use:   "titles [NUMBER]",
		Short: "List, search or show titles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()
			st := eng.Store()

			var rows []model.Title
			switch {
			case len(args) == 1:
				t, ok, err := st.GetTitleByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("title %s: %w", args[0], internalerr.ErrNotFound)
				}
				return writeJSON(cmd.OutOrStdout(), t)
			case agency != "":
				rows, err = st.TitlesByAgency(ctx, agency)
			case byWords:
				rows, err = st.TitlesByWordCount(ctx)
			case search != "":
				rows, err = st.SearchTitles(ctx, search)
			default:
				rows, err = st.ListTitles(ctx)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on title name")
	cmd.Flags().StringVar(&agency, "agency", "", "only titles attributed to this agency id")
	cmd.Flags().BoolVar(&byWords, "by-words", false, "order by word count, largest first")
	return cmd
}

func sectionsCmd(flags *globalFlags) *cobra.Command {
	var withChanges bool
	cmd := &cobra.Command{
		Use:   "sections TITLE",
		Short: "List the sections of a title (number or title-N id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer eng.Close()
			st := eng.Store()

			titleID := args[0]
			if !strings.HasPrefix(titleID, "title-") {
				titleID = model.TitleID(titleID)
			}
			sections, err := st.SectionsByTitle(ctx, titleID)
			if err != nil {
				return err
			}
			if !withChanges {
				return writeJSON(cmd.OutOrStdout(), sections)
			}
			type sectionWithChanges struct {
				model.Section
				Changes []model.HistoricalChange
			}
			out := make([]sectionWithChanges, 0, len(sections))
			for _, s := range sections {
				changes, err := st.ChangesBySection(ctx, s.ID)
				if err != nil {
					return err
				}
				out = append(out, sectionWithChanges{Section: s, Changes: changes})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&withChanges, "changes", false, "include each section's historical changes")
	return cmd
}
