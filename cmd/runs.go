package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect transformation run history",
	Long:  "Commands for listing, viewing, summarizing, and exporting transformation runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transformation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, runFilterFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		return writeJSONOutput("", run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		var from time.Time
		if since > 0 {
			from = time.Now().UTC().Add(-since)
		}

		stats, err := st.Stats(ctx, from)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, stats)
		return nil
	},
}

// -- runs export --

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runs, err := st.ListRuns(ctx, runFilterFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "runs export")
		}

		out, _ := cmd.Flags().GetString("out")
		if err := writeRunsWorkbook(out, runs); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Wrote %d runs to %s\n", len(runs), out)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runsListCmd, runsExportCmd} {
		c.Flags().String("status", "", "filter by run status (running, complete, failed)")
		c.Flags().String("final-status", "", "filter by report outcome (OK, FAIL)")
		c.Flags().Duration("since", 0, "only runs created within this window (e.g. 24h)")
	}
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsExportCmd.Flags().Int("limit", 1000, "max number of runs to export")
	runsExportCmd.Flags().String("out", "runs.xlsx", "output workbook path")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsExportCmd)
	rootCmd.AddCommand(runsCmd)
}

// runFilterFromFlags builds the store filter shared by list and export.
func runFilterFromFlags(cmd *cobra.Command) store.RunFilter {
	status, _ := cmd.Flags().GetString("status")
	final, _ := cmd.Flags().GetString("final-status")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := store.RunFilter{
		Status:      model.RunStatus(status),
		FinalStatus: model.Status(final),
		Limit:       limit,
	}
	if since > 0 {
		filter.Since = time.Now().UTC().Add(-since)
	}
	return filter
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCENARIO\tSTATUS\tFINAL\tSCORE\tRETRIES\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t--------\t------\t-----\t-----\t-------\t-------\t--------")

	for _, r := range runs {
		scenario := r.Scenario
		if len(scenario) > 40 {
			scenario = scenario[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\t%s\t%dms\n",
			truncateID(r.ID),
			scenario,
			r.Status,
			r.FinalStatus,
			r.ConsistencyScore,
			r.Retries,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.RuntimeMS,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *model.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Final OK:\t%d\n", s.FinalOK)
	_, _ = fmt.Fprintf(w, "Final FAIL:\t%d\n", s.FinalFail)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", s.FailureRate()*100)
	if s.AvgScore > 0 {
		_, _ = fmt.Fprintf(w, "Avg score:\t%.2f\n", s.AvgScore)
	}
	if s.AvgRuntimeMS > 0 {
		_, _ = fmt.Fprintf(w, "Avg runtime:\t%.0fms\n", s.AvgRuntimeMS)
	}
	if s.AvgRetries > 0 {
		_, _ = fmt.Fprintf(w, "Avg retries:\t%.2f\n", s.AvgRetries)
	}
	_ = w.Flush()
}

// writeRunsWorkbook writes the runs to an XLSX workbook at path.
func writeRunsWorkbook(path string, runs []model.Run) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("runs")
	if err != nil {
		return eris.Wrap(err, "runs export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Scenario", "Status", "Final", "Score", "Retries", "Runtime (ms)", "Changed Paths", "Error", "Created", "Updated"} {
		header.AddCell().SetString(h)
	}

	for _, r := range runs {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetString(r.Scenario)
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetString(string(r.FinalStatus))
		row.AddCell().SetFloat(r.ConsistencyScore)
		row.AddCell().SetInt(r.Retries)
		row.AddCell().SetInt64(r.RuntimeMS)
		row.AddCell().SetInt(r.ChangedPathCount)
		row.AddCell().SetString(r.Error)
		row.AddCell().SetString(r.CreatedAt.UTC().Format(time.RFC3339))
		row.AddCell().SetString(r.UpdatedAt.UTC().Format(time.RFC3339))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "runs export: save %s", path)
	}
	return nil
}

// truncateID returns the first 8 characters of a run ID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
