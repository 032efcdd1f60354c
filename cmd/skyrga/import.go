package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/ingest"
	"github.com/vova111/skyrga/internal/metrics"
	"github.com/vova111/skyrga/internal/tabular"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a backlink report for a campaign site",
	Long: `Import a 22-column backlink report (.csv or .xlsx) for the site given by --site.

The first record is the header and only its width is checked. Every data row
registers the domain of its page URL; the first row seen for a domain becomes
the domain's reviewable placement, later rows are kept as duplicates.
The whole file is applied in one transaction. Use --dry-run to see the result
without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		site, _ := cmd.Flags().GetString("site")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		batch := ingest.Batch{
			SiteURL: site,
			Source:  filepath.Base(args[0]),
			DryRun:  dryRun,
		}
		if cmd.Flags().Changed("city") {
			city, _ := cmd.Flags().GetInt64("city")
			batch.CityID = &city
		}
		if cmd.Flags().Changed("type") {
			siteType, _ := cmd.Flags().GetInt64("type")
			batch.TypeID = &siteType
		}

		records, err := tabular.ReadFile(args[0])
		if err != nil {
			return err
		}
		batch.Records = records

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		agg, err := newAggregator()
		if err != nil {
			return err
		}

		tracker := metrics.NewTracker(batch.Source)
		in := ingest.NewIngestor(store, agg).WithObserver(tracker.ObserveRow)

		// Interrupt aborts the batch before commit
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := in.Import(ctx, batch)
		outcome := "committed"
		switch {
		case err != nil:
			outcome = "aborted"
		case summary.DryRun:
			outcome = "dry_run"
		}
		if summary != nil {
			tracker.SetBatchID(summary.BatchID)
		}

		logrus.Info("Final stats: " + tracker.LogProgress())
		if werr := tracker.WriteToFile(cfg.MetricsPath, outcome); werr != nil {
			logrus.Errorf("Failed to write metrics: %v", werr)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		printSummary(summary)
		return nil
	},
}

func printSummary(s *ingest.Summary) {
	fmt.Printf("\nBatch %s", s.BatchID)
	if s.DryRun {
		fmt.Print(" (dry run, nothing saved)")
	}
	fmt.Println()
	fmt.Printf("  Accepted:        %d\n", s.Accepted)
	fmt.Printf("  Duplicate:       %d\n", s.Duplicate)
	fmt.Printf("  Skipped:         %d\n", s.Skipped)
	fmt.Printf("  Failed:          %d\n", s.Failed)
	fmt.Printf("  Domains created: %d\n", s.DomainsCreated)
	fmt.Printf("  Ratings changed: %d\n", s.RatingsChanged)

	problems := s.Problems()
	if len(problems) == 0 {
		return
	}
	fmt.Println("\nRows not imported:")
	for _, p := range problems {
		fmt.Printf("  line %-6d %-8s %s\n", p.Line, p.Outcome, p.Reason)
	}
}

func init() {
	importCmd.Flags().String("site", "", "campaign site URL the backlinks point to (required)")
	importCmd.Flags().Int64("city", 0, "site city id")
	importCmd.Flags().Int64("type", 0, "site type id")
	importCmd.Flags().Bool("dry-run", false, "run the import and roll it back")
	importCmd.Flags().Bool("json", false, "print the summary as JSON")
	_ = importCmd.MarkFlagRequired("site")

	rootCmd.AddCommand(importCmd)
}
