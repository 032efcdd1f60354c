package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/schedule"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage automation profiles",
}

var profilesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.InsertProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Profile %d created\n", id)
		return nil
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Record target registrations",
}

var targetsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record that a profile registered a target on a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetInt64("profile")
		date, _ := cmd.Flags().GetString("date")

		day, err := schedule.ParseStart(date)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.InsertTarget(cmd.Context(), profile, day.Format("2006-01-02"))
		if err != nil {
			return err
		}
		fmt.Printf("Target %d recorded for profile %d on %s\n", id, profile, date)
		return nil
	},
}

func init() {
	targetsAddCmd.Flags().Int64("profile", 0, "profile id (required)")
	targetsAddCmd.Flags().String("date", "", "registration date, YYYY-MM-DD (required)")
	_ = targetsAddCmd.MarkFlagRequired("profile")
	_ = targetsAddCmd.MarkFlagRequired("date")

	profilesCmd.AddCommand(profilesAddCmd)
	targetsCmd.AddCommand(targetsAddCmd)
	rootCmd.AddCommand(profilesCmd, targetsCmd)
}
