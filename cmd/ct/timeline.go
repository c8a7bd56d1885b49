package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/timeline"
	"github.com/clearclaims/claimtrail/internal/types"
)

var (
	tlType  string
	tlFrom  string
	tlTo    string
	tlQuery string
	tlLimit int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline <claim-id>",
	Short: "Show the claim timeline",
	Long:  "Print the claim's unified event timeline in stable order: occurred-at, then type priority, then source id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := db.EventFilter{
			Type:  types.EventType(tlType),
			Query: tlQuery,
			Limit: tlLimit,
		}
		if tlFrom != "" {
			at, err := time.Parse(time.RFC3339, tlFrom)
			if err != nil {
				return fmt.Errorf("--from must be RFC3339: %w", err)
			}
			filter.From = at
		}
		if tlTo != "" {
			at, err := time.Parse(time.RFC3339, tlTo)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}
			filter.To = at
		}

		events, err := timeline.New(store).List(args[0], filter)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, events)
		}
		if len(events) == 0 {
			if !quietFlag {
				fmt.Println("No events.")
			}
			return nil
		}
		for i, ev := range events {
			connector := "├─"
			switch {
			case len(events) == 1:
				connector = "──"
			case i == 0:
				connector = "┌─"
			case i == len(events)-1:
				connector = "└─"
			}
			display.TimelineRow(connector, ev.OccurredAt, string(ev.Type), ev.Summary)
		}
		return nil
	},
}

var baselineCmd = &cobra.Command{
	Use:   "baseline <claim-id>",
	Short: "Project claim records (notes, documents, inspections, status) into the timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}
		created, err := timeline.New(store).SyncBaseline(claim)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, map[string]int{"created": created})
		}
		if !quietFlag {
			display.SuccessMsg("Baseline synced: %d new events", created)
		}
		return nil
	},
}

func init() {
	timelineCmd.Flags().StringVar(&tlType, "type", "", "Filter by event type")
	timelineCmd.Flags().StringVar(&tlFrom, "from", "", "Events at or after (RFC3339)")
	timelineCmd.Flags().StringVar(&tlTo, "to", "", "Events before (RFC3339)")
	timelineCmd.Flags().StringVar(&tlQuery, "query", "", "Substring filter on summary or type")
	timelineCmd.Flags().IntVar(&tlLimit, "limit", 0, "Max events (0 for all)")

	rootCmd.AddCommand(timelineCmd, baselineCmd)
}
