package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/auth"
	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/gmail"
	"github.com/clearclaims/claimtrail/internal/ingest"
)

var (
	ingestMode   string
	ingestFrom   string
	ingestTo     string
	ingestKey    string
	ingestActor  string
	ingestWindow int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <claim-id>",
	Short: "Pull claim-relevant mail into the evidence store",
	Long:  "Run one ingestion pass: search the mailbox with the claim's identity profile, score candidates, store relevant evidence, and queue borderline messages for review.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}

		objects, err := blob.New(ctx, cfg)
		if err != nil {
			return err
		}
		svc, err := auth.LoadService(ctx, cfg.CredentialsDir)
		if err != nil {
			return err
		}

		req := ingest.RunRequest{
			Mode:           ingestMode,
			IdempotencyKey: ingestKey,
			Actor:          ingestActor,
		}
		if ingestFrom != "" {
			at, err := time.Parse(time.RFC3339, ingestFrom)
			if err != nil {
				return fmt.Errorf("--from must be RFC3339: %w", err)
			}
			req.WindowStart = &at
		}
		if ingestTo != "" {
			at, err := time.Parse(time.RFC3339, ingestTo)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}
			req.WindowEnd = &at
		}
		if ingestWindow > 0 && req.WindowStart == nil {
			end := time.Now().UTC()
			if req.WindowEnd != nil {
				end = *req.WindowEnd
			}
			start := end.AddDate(0, 0, -ingestWindow)
			req.WindowStart = &start
		}

		if !quietFlag {
			fmt.Printf("Ingesting mail for %s...\n", claim.ClaimNumber)
		}

		service := ingest.New(store, objects, gmail.NewClient(svc), cfg)
		run, err := service.Ingest(ctx, claim, req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, run)
		}
		fmt.Printf("Run %s %s\n", run.ID, display.StatusBadge(run.Status))
		fmt.Println("  " + display.CounterLine(
			run.Counters.Fetched, run.Counters.Ingested, run.Counters.Queued,
			run.Counters.Deduped, run.Counters.Rejected, run.Counters.Errors))
		for _, e := range run.Errors {
			display.ErrorMsg("%s (%s): %s", e.SourceID, e.Stage, e.Message)
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs <claim-id>",
	Short: "List ingestion runs for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := store.ListRuns(args[0], runsLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, runs)
		}
		for _, r := range runs {
			fmt.Printf("%s %s %s  %s\n",
				r.ID, display.StatusBadge(r.Status), r.Mode, display.TimeAgo(r.StartedAt))
			fmt.Println("  " + display.CounterLine(
				r.Counters.Fetched, r.Counters.Ingested, r.Counters.Queued,
				r.Counters.Deduped, r.Counters.Rejected, r.Counters.Errors))
		}
		return nil
	},
}

var runsLimit int

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show one ingestion run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, r)
		}
		display.Header(fmt.Sprintf("Run %s on claim %s", r.ID, r.ClaimID))
		fmt.Printf("  status:  %s\n", display.StatusBadge(r.Status))
		fmt.Printf("  window:  %s .. %s\n",
			r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02"))
		fmt.Println("  " + display.CounterLine(
			r.Counters.Fetched, r.Counters.Ingested, r.Counters.Queued,
			r.Counters.Deduped, r.Counters.Rejected, r.Counters.Errors))
		if r.DurationMS > 0 {
			fmt.Printf("  took:    %dms\n", r.DurationMS)
		}
		for _, e := range r.Errors {
			display.ErrorMsg("%s (%s): %s", e.SourceID, e.Stage, e.Message)
		}
		if len(r.Steps) > 0 {
			display.SubHeader("  steps:")
			for _, step := range r.Steps {
				fmt.Printf("    %s  %s\n", step.At.Format("15:04:05"), step.Note)
			}
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMode, "mode", "manual", "Run mode (manual or scheduled)")
	ingestCmd.Flags().StringVar(&ingestFrom, "from", "", "Window start (RFC3339, default: window-days before end)")
	ingestCmd.Flags().StringVar(&ingestTo, "to", "", "Window end (RFC3339, default: now)")
	ingestCmd.Flags().StringVar(&ingestKey, "key", "", "Idempotency key (derived from claim, mode, and window when empty)")
	ingestCmd.Flags().StringVar(&ingestActor, "actor", "", "Who triggered the run")
	ingestCmd.Flags().IntVar(&ingestWindow, "window-days", 0, "Window length in days (overrides the configured default)")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Max runs to list")

	rootCmd.AddCommand(ingestCmd, runsCmd, runCmd)
}
