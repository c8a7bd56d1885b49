package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/types"
)

var (
	claimNumber        string
	claimPolicy        string
	claimName          string
	claimAddress       string
	claimCarrier       string
	claimAdjusterName  string
	claimAdjusterEmail string

	noteAuthor string
	docType    string
	docURI     string
	docBy      string

	inspectAt  string
	inspectWho string
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage claims and their records",
}

var claimAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		if claimNumber == "" || claimName == "" {
			return fmt.Errorf("--number and --name are required")
		}
		now := time.Now().UTC()
		claim := &types.Claim{
			ID:               db.NewID(),
			ClaimNumber:      claimNumber,
			PolicyNumber:     claimPolicy,
			PolicyholderName: claimName,
			PropertyAddress:  claimAddress,
			CarrierName:      claimCarrier,
			AdjusterName:     claimAdjusterName,
			AdjusterEmail:    claimAdjusterEmail,
			Status:           "open",
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := store.InsertClaim(claim); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, claim)
		}
		if !quietFlag {
			display.SuccessMsg("Added claim %s (%s)", claim.ClaimNumber, claim.ID)
		}
		return nil
	},
}

var claimShowCmd = &cobra.Command{
	Use:   "show <claim-id>",
	Short: "Show a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, claim)
		}
		display.Header(fmt.Sprintf("%s — %s", claim.ClaimNumber, claim.PolicyholderName))
		fmt.Printf("  status:   %s\n", display.StatusBadge(claim.Status))
		if claim.PolicyNumber != "" {
			fmt.Printf("  policy:   %s\n", claim.PolicyNumber)
		}
		if claim.PropertyAddress != "" {
			fmt.Printf("  property: %s\n", claim.PropertyAddress)
		}
		if claim.CarrierName != "" {
			fmt.Printf("  carrier:  %s\n", claim.CarrierName)
		}
		if claim.AdjusterEmail != "" {
			fmt.Printf("  adjuster: %s <%s>\n", claim.AdjusterName, claim.AdjusterEmail)
		}
		fmt.Printf("  updated:  %s\n", display.TimeAgo(claim.UpdatedAt))
		return nil
	},
}

var claimStatusCmd = &cobra.Command{
	Use:   "status <claim-id> <status>",
	Short: "Update a claim's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.UpdateClaimStatus(args[0], args[1], time.Now().UTC()); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Claim %s -> %s", args[0], args[1])
		}
		return nil
	},
}

var claimNoteCmd = &cobra.Command{
	Use:   "note <claim-id> <body>",
	Short: "Add a note to a claim",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		note := &types.ClaimNote{
			ID:        db.NewID(),
			ClaimID:   args[0],
			Body:      args[1],
			Author:    noteAuthor,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.InsertNote(note); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, note)
		}
		if !quietFlag {
			display.SuccessMsg("Noted on %s", args[0])
		}
		return nil
	},
}

var claimDocCmd = &cobra.Command{
	Use:   "doc <claim-id> <name>",
	Short: "Record a document against a claim",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := &types.ClaimDocument{
			ID:         db.NewID(),
			ClaimID:    args[0],
			Name:       args[1],
			DocType:    docType,
			StorageURI: docURI,
			UploadedBy: docBy,
			CreatedAt:  time.Now().UTC(),
		}
		if err := store.InsertDocument(doc); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, doc)
		}
		if !quietFlag {
			display.SuccessMsg("Recorded %s on %s", doc.Name, args[0])
		}
		return nil
	},
}

var claimInspectCmd = &cobra.Command{
	Use:   "inspect <claim-id>",
	Short: "Schedule an inspection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := time.Parse(time.RFC3339, inspectAt)
		if err != nil {
			return fmt.Errorf("--at must be RFC3339: %w", err)
		}
		insp := &types.ClaimInspection{
			ID:           db.NewID(),
			ClaimID:      args[0],
			Inspector:    inspectWho,
			ScheduledFor: at.UTC(),
			CreatedAt:    time.Now().UTC(),
		}
		if err := store.InsertInspection(insp); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, insp)
		}
		if !quietFlag {
			display.SuccessMsg("Inspection %s scheduled for %s", insp.ID, insp.ScheduledFor.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var claimInspectDoneCmd = &cobra.Command{
	Use:   "inspect-done <inspection-id>",
	Short: "Mark an inspection completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.CompleteInspection(args[0], time.Now().UTC()); err != nil {
			return err
		}
		if !quietFlag {
			display.SuccessMsg("Inspection %s completed", args[0])
		}
		return nil
	},
}

func init() {
	claimAddCmd.Flags().StringVar(&claimNumber, "number", "", "Claim number (required)")
	claimAddCmd.Flags().StringVar(&claimPolicy, "policy", "", "Policy number")
	claimAddCmd.Flags().StringVar(&claimName, "name", "", "Policyholder name (required)")
	claimAddCmd.Flags().StringVar(&claimAddress, "address", "", "Property address")
	claimAddCmd.Flags().StringVar(&claimCarrier, "carrier", "", "Carrier name")
	claimAddCmd.Flags().StringVar(&claimAdjusterName, "adjuster-name", "", "Adjuster name")
	claimAddCmd.Flags().StringVar(&claimAdjusterEmail, "adjuster-email", "", "Adjuster email")

	claimNoteCmd.Flags().StringVar(&noteAuthor, "author", "", "Note author")

	claimDocCmd.Flags().StringVar(&docType, "type", "", "Document type (estimate, carrier_submission, ...)")
	claimDocCmd.Flags().StringVar(&docURI, "uri", "", "Storage URI")
	claimDocCmd.Flags().StringVar(&docBy, "by", "", "Uploader")

	claimInspectCmd.Flags().StringVar(&inspectAt, "at", "", "Scheduled time (RFC3339, required)")
	claimInspectCmd.Flags().StringVar(&inspectWho, "inspector", "", "Inspector name")
	claimInspectCmd.MarkFlagRequired("at")

	claimCmd.AddCommand(claimAddCmd, claimShowCmd, claimStatusCmd, claimNoteCmd,
		claimDocCmd, claimInspectCmd, claimInspectDoneCmd)
	rootCmd.AddCommand(claimCmd)
}
