package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vova111/skyrga/internal/storage"
	"github.com/vova111/skyrga/internal/workflow"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review reviewable backlink placements",
}

var reviewNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the pending placement on the highest rated domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		href, err := newWorkflow(store).Next(cmd.Context())
		if err != nil {
			return err
		}
		if href == nil {
			fmt.Println("Review queue is empty")
			return nil
		}
		return showReview(cmd, store, href.ID)
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show HREF_ID",
	Short: "Show a placement with the other pages of its domain and sibling sub-domains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return showReview(cmd, store, id)
	},
}

var reviewApplyCmd = &cobra.Command{
	Use:   "apply HREF_ID",
	Short: "Record the review outcome of a placement",
	Long: `Record a review outcome. The status must be one of the ids listed by
'skyrga statuses'. Status and comment are replaced on every call; the analysis
date is set by the first review and kept afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetInt64("status")
		comment, _ := cmd.Flags().GetString("comment")
		user, _ := cmd.Flags().GetInt64("user")

		t := workflow.Transition{HrefID: id, StatusID: status, Comment: comment, UserID: user}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		href, err := newWorkflow(store).Apply(cmd.Context(), t)
		if err != nil {
			return err
		}
		fmt.Printf("Href %d: status %d, analysed %s\n", href.ID, href.StatusID, href.AnalizedDate)
		return nil
	},
}

func newWorkflow(store *storage.Storage) *workflow.Service {
	return workflow.NewService(store).WithPageSize(cfg.PageSize)
}

func showReview(cmd *cobra.Command, store *storage.Storage, id int64) error {
	review, err := newWorkflow(store).Review(cmd.Context(), id)
	if err != nil {
		return err
	}

	h := review.Href
	fmt.Printf("\nHref #%d on %s (rating %d)\n", h.ID, h.DomainName, h.Rating)
	fmt.Println(separator)
	fmt.Printf("  Page:     %s://%s%s\n", h.Scheme, h.DomainName, h.URL)
	fmt.Printf("  Title:    %s\n", h.PageTitle)
	fmt.Printf("  Link:     %s\n", h.LinkURL)
	fmt.Printf("  Anchor:   %s\n", h.LinkAnchor)
	fmt.Printf("  External: %d\n", h.ExternalLinksCount)
	fmt.Printf("  Status:   %d\n", h.StatusID)
	if h.AnalizedDate != "" {
		fmt.Printf("  Analysed: %s\n", h.AnalizedDate)
	}
	if h.Comment != "" {
		fmt.Printf("  Comment:  %s\n", h.Comment)
	}

	if len(review.SameDomain) > 0 {
		fmt.Printf("\nOther pages on %s:\n", h.DomainName)
		printHrefs(review.SameDomain)
	}
	if len(review.Siblings) > 0 {
		fmt.Println("\nSibling sub-domains:")
		printHrefs(review.Siblings)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	reviewApplyCmd.Flags().Int64("status", 0, "status id (required)")
	reviewApplyCmd.Flags().String("comment", "", "reviewer comment")
	reviewApplyCmd.Flags().Int64("user", 0, "acting reviewer id (required)")
	_ = reviewApplyCmd.MarkFlagRequired("status")
	_ = reviewApplyCmd.MarkFlagRequired("user")

	reviewCmd.AddCommand(reviewNextCmd, reviewShowCmd, reviewApplyCmd)
	rootCmd.AddCommand(reviewCmd)
}
