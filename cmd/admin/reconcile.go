package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vectortube/internal/catalog"
)

var (
	reconcileRemove bool
	reconcileGrace  time.Duration
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare stored thumbnails against catalog records",
	Long: `Compare stored thumbnails against catalog records.

Orphan files (no record references them) are listed, and deleted with
--remove. Dangling records (their file is gone) are only reported.

Examples:
  admin reconcile                 # Report only
  admin reconcile --remove        # Delete orphans past the server's grace window
  admin reconcile --remove --grace 0s`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileRemove, "remove", false, "delete orphan files")
	reconcileCmd.Flags().DurationVar(&reconcileGrace, "grace", -1, "minimum orphan age; 0 disables the window, negative uses the server default")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	report, err := client.Reconcile(ctx, reconcileRemove, reconcileGrace)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	if len(report.Errors) > 0 {
		return fmt.Errorf("reconcile finished with %d errors", len(report.Errors))
	}
	return nil
}

func printReport(w io.Writer, r catalog.Report) {
	fmt.Fprintf(w, "records: %d\n", r.Records)
	fmt.Fprintf(w, "assets:  %d\n", r.Assets)
	fmt.Fprintf(w, "pending: %d\n", r.Pending)

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(items))
		for _, item := range items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}
	section("orphans", r.Orphans)

	dangling := make([]string, 0, len(r.Dangling))
	for _, d := range r.Dangling {
		dangling = append(dangling, d.ID+" -> "+d.Thumbnail)
	}
	section("dangling", dangling)
	section("removed", r.Removed)
	section("errors", r.Errors)
}
