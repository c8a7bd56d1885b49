package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/report"
	"github.com/clearclaims/claimtrail/internal/types"
)

var reportActor string

var reportCmd = &cobra.Command{
	Use:   "report <claim-id>",
	Short: "Generate a timeline report artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}
		objects, err := blob.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		rep, err := report.New(store, objects, nil, cfg).Generate(cmd.Context(), claim, reportActor)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, rep)
		}
		if rep.Status == types.ReportReady {
			display.SuccessMsg("Report %s ready: %s", rep.ID, rep.StorageURI)
		} else {
			display.ErrorMsg("Report %s failed: %s", rep.ID, rep.Error)
		}
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <claim-id>",
	Short: "List report jobs for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := store.ListReports(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, reports)
		}
		for _, r := range reports {
			line := fmt.Sprintf("%s %s  %s", r.ID, display.StatusBadge(r.Status), display.TimeAgo(r.CreatedAt))
			if r.StorageURI != "" {
				line += "  " + r.StorageURI
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportActor, "actor", "", "Who requested the report")
	rootCmd.AddCommand(reportCmd, reportsCmd)
}
