package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/output"
	"github.com/blackwell-systems/questwatch/internal/store"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Load quest records from JSON into the database",
	Long: `Import records from a JSON bundle file or a directory. A file holds one
object with any of the arrays "quests", "sessions", "reviews", "events" and
"feedback". A directory may contain quests.json, sessions.json,
reviews.json, events.json and feedback.json, each a JSON array.

Records are upserted by id; records without an id get a generated one. The
whole import runs in a single transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and count records without writing")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	bundle, err := store.LoadBundle(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	if bundle.Empty() {
		return errors.New("no records found")
	}

	if importDryRun {
		stats := store.ImportStats{
			Quests:   len(bundle.Quests),
			Sessions: len(bundle.Sessions),
			Reviews:  len(bundle.Reviews),
			Events:   len(bundle.Events),
			Feedback: len(bundle.Feedback),
		}
		return printImport(stats, true)
	}

	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.db.Import(ctx, bundle)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	e.log.Info("import finished", "quests", len(stats.Touched), "sessions", stats.Sessions, "events", stats.Events)
	return printImport(stats, false)
}

func printImport(stats store.ImportStats, dryRun bool) error {
	if flagJSON {
		return writeJSON(stats)
	}

	title := "Imported"
	if dryRun {
		title = "Would import"
	}
	fmt.Println(output.Section(title))
	tbl := output.NewTable("RECORDS", "COUNT")
	tbl.AddRow("quests", fmt.Sprintf("%d", stats.Quests))
	if !dryRun {
		tbl.AddRow("steps", fmt.Sprintf("%d", stats.Steps))
	}
	tbl.AddRow("sessions", fmt.Sprintf("%d", stats.Sessions))
	tbl.AddRow("reviews", fmt.Sprintf("%d", stats.Reviews))
	tbl.AddRow("events", fmt.Sprintf("%d", stats.Events))
	tbl.AddRow("feedback", fmt.Sprintf("%d", stats.Feedback))
	fmt.Println()
	tbl.Print()
	if len(stats.Touched) > 0 {
		fmt.Printf("\n %s %d quest(s) updated\n", output.StyleSuccess.Render("✓"), len(stats.Touched))
	}
	return nil
}
