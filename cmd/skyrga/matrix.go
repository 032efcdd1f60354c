package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/schedule"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the registration matrix of profiles",
	Long: `Print the 730-day registration matrix starting at --start.

Every date maps to one cell per profile in id order: the profile id when it
registered a target that day, 0 otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		format, _ := cmd.Flags().GetString("format")
		if start == "" {
			start = time.Now().Format("2006-01-02")
		}

		// Reject bad input before touching the database
		if _, err := schedule.ParseStart(start); err != nil {
			return err
		}
		if format != "json" && format != "table" {
			return fmt.Errorf("unknown format %q, want json or table", format)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		m, err := schedule.NewService(store).Matrix(cmd.Context(), start)
		if err != nil {
			return err
		}

		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m.AsMap())
		}

		header := make([]string, len(m.Profiles))
		for i, id := range m.Profiles {
			header[i] = fmt.Sprintf("%5d", id)
		}
		fmt.Printf("%-10s  %s\n", "date", strings.Join(header, " "))
		for _, day := range m.Days {
			cells := make([]string, len(day.Profiles))
			for i, id := range day.Profiles {
				if id == schedule.Empty {
					cells[i] = "    ."
				} else {
					cells[i] = fmt.Sprintf("%5d", id)
				}
			}
			fmt.Printf("%-10s  %s\n", day.Date, strings.Join(cells, " "))
		}
		return nil
	},
}

func init() {
	matrixCmd.Flags().String("start", "", "first date of the window, YYYY-MM-DD (default today)")
	matrixCmd.Flags().String("format", "json", "output format: json or table")

	rootCmd.AddCommand(matrixCmd)
}
