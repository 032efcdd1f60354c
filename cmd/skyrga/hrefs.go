package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/storage"
	"github.com/vova111/skyrga/internal/workflow"
)

const separator = "────────────────────────────────────────────────────────────────────────"

var hrefsCmd = &cobra.Command{
	Use:   "hrefs",
	Short: "List reviewed placements",
}

var hrefsSuccessfulCmd = &cobra.Command{
	Use:   "successful",
	Short: "List placements reviewed as successful",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReviewed(cmd, true)
	},
}

var hrefsFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List placements reviewed with a failure status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listReviewed(cmd, false)
	},
}

func listReviewed(cmd *cobra.Command, successful bool) error {
	domain, _ := cmd.Flags().GetString("domain")
	date, _ := cmd.Flags().GetString("date")
	page, _ := cmd.Flags().GetInt("page")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hrefs, err := newWorkflow(store).Reviewed(cmd.Context(), workflow.Filter{
		Successful: successful,
		Domain:     domain,
		Date:       date,
		Page:       page,
	})
	if err != nil {
		return err
	}
	if len(hrefs) == 0 {
		fmt.Println("No placements found")
		return nil
	}

	printHrefs(hrefs)
	return nil
}

func printHrefs(hrefs []*storage.Href) {
	fmt.Println(separator)
	fmt.Printf("  %-7s  %-30s  %-6s  %-6s  %-10s  %s\n", "ID", "Domain", "Rating", "Status", "Analysed", "Page")
	fmt.Println(separator)
	for _, h := range hrefs {
		date := h.AnalizedDate
		if date == "" {
			date = "-"
		}
		fmt.Printf("  %-7d  %-30s  %-6d  %-6d  %-10s  %s\n", h.ID, h.DomainName, h.Rating, h.StatusID, date, h.URL)
	}
	fmt.Println(separator)
}

func init() {
	for _, c := range []*cobra.Command{hrefsSuccessfulCmd, hrefsFailedCmd} {
		c.Flags().String("domain", "", "filter by domain substring")
		c.Flags().String("date", "", "filter by analysis date (YYYY-MM-DD)")
		c.Flags().Int("page", 1, "page number")
	}

	hrefsCmd.AddCommand(hrefsSuccessfulCmd, hrefsFailedCmd)
	rootCmd.AddCommand(hrefsCmd)
}
