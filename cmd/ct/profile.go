package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearclaims/claimtrail/internal/display"
	"github.com/clearclaims/claimtrail/internal/profile"
	"github.com/clearclaims/claimtrail/internal/types"
)

var (
	profNames    []string
	profAddrs    []string
	profClaimNos []string
	profPolicies []string
	profCarriers []string
	profEmails   []string
	profPatterns []string
	profActor    string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and override claim identity profiles",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <claim-id>",
	Short: "Show the resolved identity profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}
		override, err := store.GetProfileOverride(claim.ID)
		if err != nil {
			return err
		}
		resolved := profile.Resolve(claim, override)
		if jsonOutput {
			return printJSON(cmd, resolved)
		}
		display.Header("Identity profile for " + claim.ClaimNumber)
		printTokens("claim numbers", resolved.ClaimNumbers)
		printTokens("policy numbers", resolved.PolicyNumbers)
		printTokens("names", resolved.Names)
		printTokens("addresses", resolved.Addresses)
		printTokens("carriers", resolved.Carriers)
		printTokens("adjuster emails", resolved.AdjusterEmails)
		printTokens("subject patterns", resolved.SubjectPatterns)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <claim-id>",
	Short: "Add override tokens to a claim's identity profile",
	Long:  "Override tokens merge with the claim-derived defaults; repeated flags accumulate.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claim, err := store.GetClaim(args[0])
		if err != nil {
			return err
		}
		existing, err := store.GetProfileOverride(claim.ID)
		if err != nil {
			return err
		}
		override := &types.IdentityProfile{ClaimID: claim.ID}
		if existing != nil {
			override = existing
		}
		override.Names = append(override.Names, profNames...)
		override.Addresses = append(override.Addresses, profAddrs...)
		override.ClaimNumbers = append(override.ClaimNumbers, profClaimNos...)
		override.PolicyNumbers = append(override.PolicyNumbers, profPolicies...)
		override.Carriers = append(override.Carriers, profCarriers...)
		override.AdjusterEmails = append(override.AdjusterEmails, profEmails...)
		override.SubjectPatterns = append(override.SubjectPatterns, profPatterns...)

		profile.Sanitize(override, profActor, time.Now().UTC())
		if err := store.UpsertProfileOverride(override); err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, override)
		}
		if !quietFlag {
			display.SuccessMsg("Profile override saved for %s", claim.ClaimNumber)
		}
		return nil
	},
}

func printTokens(label string, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	display.SubHeader("  " + label + ":")
	for _, tok := range tokens {
		fmt.Println("    " + tok)
	}
}

func init() {
	profileSetCmd.Flags().StringArrayVar(&profNames, "name", nil, "Additional name")
	profileSetCmd.Flags().StringArrayVar(&profAddrs, "address", nil, "Additional address")
	profileSetCmd.Flags().StringArrayVar(&profClaimNos, "claim-number", nil, "Additional claim number")
	profileSetCmd.Flags().StringArrayVar(&profPolicies, "policy-number", nil, "Additional policy number")
	profileSetCmd.Flags().StringArrayVar(&profCarriers, "carrier", nil, "Additional carrier")
	profileSetCmd.Flags().StringArrayVar(&profEmails, "adjuster-email", nil, "Additional adjuster email")
	profileSetCmd.Flags().StringArrayVar(&profPatterns, "subject-pattern", nil, "Additional subject pattern")
	profileSetCmd.Flags().StringVar(&profActor, "actor", "", "Who is making the change")

	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
