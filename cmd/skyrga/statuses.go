package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "List the statuses a reviewer may apply",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		statuses, err := newWorkflow(store).Selectable(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range statuses {
			fmt.Printf("  %-3d %s\n", s.ID, s.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusesCmd)
}
