package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/ingest"
)

var (
	queueStatus string
	decideActor string
	decideNote  string
)

var queueCmd = &cobra.Command{
	Use:   "queue <claim-id>",
	Short: "List the review queue for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := store.ListQueue(args[0], queueStatus)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, items)
		}
		if len(items) == 0 && !quietFlag {
			fmt.Println("Queue is empty.")
			return nil
		}
		for _, item := range items {
			ev, err := store.GetEvidence(item.EvidenceID)
			if err != nil {
				return err
			}
			subject := ev.Metadata["subject"]
			if ev.Filename != "" {
				subject = ev.Filename
			}
			fmt.Printf("%s %s %s  %s\n",
				item.ID,
				display.ScoreLabel(item.Score, cfg.ScoreMinReview, cfg.ScoreAutoAccept),
				display.StatusBadge(item.Status),
				display.Truncate(subject, 70))
			for _, reason := range item.Reasons {
				display.SubHeader("    " + reason)
			}
		}
		return nil
	},
}

// decisionService builds an ingest service wired only for review
// decisions; neither the mailbox nor object storage is touched on that
// path.
func decisionService() *ingest.Service {
	return ingest.New(store, nil, nil, cfg)
}

var approveCmd = &cobra.Command{
	Use:   "approve <claim-id> <queue-id>",
	Short: "Approve a queued evidence item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := decisionService().Decide(cmd.Context(), args[0], args[1], decideActor, true, decideNote)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, item)
		}
		if !quietFlag {
			display.SuccessMsg("Queue item %s -> %s", item.ID, item.Status)
		}
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <claim-id> <queue-id>",
	Short: "Reject a queued evidence item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := decisionService().Decide(cmd.Context(), args[0], args[1], decideActor, false, decideNote)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, item)
		}
		if !quietFlag {
			display.SuccessMsg("Queue item %s -> %s", item.ID, item.Status)
		}
		return nil
	},
}

var evidenceStatus string

var evidenceCmd = &cobra.Command{
	Use:   "evidence <claim-id>",
	Short: "List stored evidence for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := store.ListEvidence(args[0], evidenceStatus)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, items)
		}
		for _, ev := range items {
			label := ev.Metadata["subject"]
			if ev.Filename != "" {
				label = ev.Filename
			}
			fmt.Printf("%s %-10s %s %s  %s\n",
				ev.ID, ev.Kind,
				display.ScoreLabel(ev.Score, cfg.ScoreMinReview, cfg.ScoreAutoAccept),
				display.StatusBadge(ev.ReviewStatus),
				display.Truncate(label, 60))
		}
		return nil
	},
}

var urlTTL string

var evidenceURLCmd = &cobra.Command{
	Use:   "url <evidence-id>",
	Short: "Print a time-limited download URL for an evidence item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ev, err := store.GetEvidence(args[0])
		if err != nil {
			return err
		}
		objects, err := blob.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		ttl := cfg.SignedURLTTL
		if urlTTL != "" {
			parsed, err := time.ParseDuration(urlTTL)
			if err != nil {
				return fmt.Errorf("parse --ttl: %w", err)
			}
			ttl = parsed
		}
		url, err := objects.SignedURL(cmd.Context(), ev.StorageURI, ttl)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	},
}

func init() {
	queueCmd.Flags().StringVar(&queueStatus, "status", "pending", "Filter by status (empty for all)")

	approveCmd.Flags().StringVar(&decideActor, "actor", "", "Reviewer")
	approveCmd.Flags().StringVar(&decideNote, "note", "", "Decision note")
	rejectCmd.Flags().StringVar(&decideActor, "actor", "", "Reviewer")
	rejectCmd.Flags().StringVar(&decideNote, "note", "", "Decision note")

	evidenceCmd.Flags().StringVar(&evidenceStatus, "status", "", "Filter by review status")
	evidenceURLCmd.Flags().StringVar(&urlTTL, "ttl", "", "URL lifetime (e.g. 10m; clamped to [60s, 24h])")
	evidenceCmd.AddCommand(evidenceURLCmd)

	rootCmd.AddCommand(queueCmd, approveCmd, rejectCmd, evidenceCmd)
}
