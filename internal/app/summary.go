package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/analytics"
	"github.com/blackwell-systems/questwatch/internal/output"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [quest-id...]",
	Short: "Overview table of play, clear and rating stats per quest",
	Long: `Summarize one or more quests. With no IDs every quest in the database is
listed. Rows keep the order the IDs were given in; duplicates are dropped.

Examples:
  questwatch summary
  questwatch summary harbor-01 castle-02 --window 7d
  questwatch summary --json`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

// summaryJSON is the --json shape of the summary command.
type summaryJSON struct {
	Window string                   `json:"window"`
	Quests []analytics.QuestSummary `json:"quests"`
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	window, err := e.window()
	if err != nil {
		return err
	}

	ids := args
	if len(ids) == 0 {
		if ids, err = e.db.ListQuestIDs(ctx); err != nil {
			return fmt.Errorf("listing quests: %w", err)
		}
	}
	if len(ids) == 0 {
		if flagJSON {
			return writeJSON(summaryJSON{Window: window.String(), Quests: []analytics.QuestSummary{}})
		}
		fmt.Println(" No quests found. Load data with 'questwatch import <path>'.")
		return nil
	}

	rows, err := e.facade.Summarize(ctx, ids, window)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(summaryJSON{Window: window.String(), Quests: rows})
	}

	fmt.Println(output.Section(fmt.Sprintf("Quests (window %s)", window)))
	fmt.Println()
	output.SummaryTable(rows).Print()

	for _, r := range rows {
		if !r.Sources.Complete() {
			fmt.Println()
			fmt.Println(output.StyleError.Render(" ! some sources were unavailable; affected columns are marked"))
			break
		}
	}
	return nil
}
