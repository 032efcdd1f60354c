package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/registry"
	"github.com/vova111/skyrga/internal/storage"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Inspect the domain registry",
}

var domainsSiblingsCmd = &cobra.Command{
	Use:   "siblings URL",
	Short: "List registered sub-domains sharing the root of URL's domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := registry.New(store, nil)
		d, err := reg.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		siblings, err := reg.Siblings(cmd.Context(), d.ID)
		if err != nil {
			return err
		}

		if len(siblings) == 0 {
			fmt.Printf("%s has no sibling sub-domains\n", d.Domain)
			return nil
		}
		fmt.Printf("\nSiblings of %s\n", d.Domain)
		fmt.Println(separator)
		for _, s := range siblings {
			fmt.Printf("  %-7d  %-40s  rating %d\n", s.ID, s.Domain, s.Rating)
		}
		return nil
	},
}

var domainsRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute every domain rating with the configured policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, err := newAggregator()
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var changed int
		err = store.InTx(cmd.Context(), func(q *storage.Queries) error {
			changed, err = agg.RecomputeAll(cmd.Context(), q)
			return err
		})
		if err != nil {
			return err
		}

		fmt.Printf("Ratings recomputed with policy %s: %d changed\n", cfg.RatingPolicy, changed)
		return nil
	},
}

func init() {
	domainsCmd.AddCommand(domainsSiblingsCmd, domainsRecomputeCmd)
	rootCmd.AddCommand(domainsCmd)
}
