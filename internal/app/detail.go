package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/output"
)

var detailCmd = &cobra.Command{
	Use:   "detail <quest-id>",
	Short: "Full analytics for one quest",
	Long: `Show the funnel, reviews, gameplay events and feedback of a quest.
Sections whose data could not be read are shown as unavailable; the rest
are still computed.

Per-step hint and wrong-answer averages are estimates: sessions only
record totals, which are spread evenly across the quest's steps.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetail,
}

func init() {
	rootCmd.AddCommand(detailCmd)
}

func runDetail(cmd *cobra.Command, args []string) error {
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

	d, err := e.facade.Detail(ctx, args[0], window)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(d)
	}
	fmt.Print(output.Detail(d))
	return nil
}
