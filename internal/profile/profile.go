// Package profile resolves the per-claim identity profile: the set of
// matchable tokens used to build provider queries and score messages.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/clearclaims/claimtrail/internal/canon"
	"github.com/clearclaims/claimtrail/internal/types"
)

// Defaults derives an identity profile from the claim's own fields.
func Defaults(claim *types.Claim) types.IdentityProfile {
	p := types.IdentityProfile{ClaimID: claim.ID}

	if claim.ClaimNumber != "" {
		p.ClaimNumbers = append(p.ClaimNumbers, claim.ClaimNumber)
	}
	if claim.PolicyNumber != "" {
		p.PolicyNumbers = append(p.PolicyNumbers, claim.PolicyNumber)
	}
	if claim.PolicyholderName != "" {
		p.Names = append(p.Names, claim.PolicyholderName)
	}
	if claim.PropertyAddress != "" {
		p.Addresses = append(p.Addresses, claim.PropertyAddress)
	}
	if claim.CarrierName != "" {
		p.Carriers = append(p.Carriers, claim.CarrierName)
	}
	if claim.AdjusterEmail != "" {
		p.AdjusterEmails = append(p.AdjusterEmails, strings.ToLower(claim.AdjusterEmail))
	}
	if claim.AdjusterName != "" {
		p.Names = append(p.Names, claim.AdjusterName)
	}

	if claim.ClaimNumber != "" {
		p.SubjectPatterns = append(p.SubjectPatterns,
			fmt.Sprintf("claim %s", claim.ClaimNumber),
			claim.ClaimNumber,
		)
	}
	if last := canon.LastName(claim.PolicyholderName); last != "" {
		p.SubjectPatterns = append(p.SubjectPatterns, fmt.Sprintf("%s claim", last))
	}

	return p
}

// Resolve merges claim-derived defaults with a stored manual override.
// Tokens are deduplicated case-insensitively with defaults first,
// preserving first-seen order.
func Resolve(claim *types.Claim, override *types.IdentityProfile) types.IdentityProfile {
	merged := Defaults(claim)
	if override != nil {
		merged.Names = canon.CleanTokens(append(merged.Names, override.Names...))
		merged.Addresses = canon.CleanTokens(append(merged.Addresses, override.Addresses...))
		merged.ClaimNumbers = canon.CleanTokens(append(merged.ClaimNumbers, override.ClaimNumbers...))
		merged.PolicyNumbers = canon.CleanTokens(append(merged.PolicyNumbers, override.PolicyNumbers...))
		merged.Carriers = canon.CleanTokens(append(merged.Carriers, override.Carriers...))
		merged.AdjusterEmails = canon.CleanTokens(append(merged.AdjusterEmails, override.AdjusterEmails...))
		merged.SubjectPatterns = canon.CleanTokens(append(merged.SubjectPatterns, override.SubjectPatterns...))
		merged.UpdatedAt = override.UpdatedAt
		merged.UpdatedBy = override.UpdatedBy
	} else {
		merged.Names = canon.CleanTokens(merged.Names)
		merged.Addresses = canon.CleanTokens(merged.Addresses)
		merged.ClaimNumbers = canon.CleanTokens(merged.ClaimNumbers)
		merged.PolicyNumbers = canon.CleanTokens(merged.PolicyNumbers)
		merged.Carriers = canon.CleanTokens(merged.Carriers)
		merged.AdjusterEmails = canon.CleanTokens(merged.AdjusterEmails)
		merged.SubjectPatterns = canon.CleanTokens(merged.SubjectPatterns)
	}
	return merged
}

// Sanitize cleans a manual override payload before storage: every category
// passes through the shared token-cleaning function and gets stamped.
func Sanitize(p *types.IdentityProfile, actor string, at time.Time) {
	p.Names = canon.CleanTokens(p.Names)
	p.Addresses = canon.CleanTokens(p.Addresses)
	p.ClaimNumbers = canon.CleanTokens(p.ClaimNumbers)
	p.PolicyNumbers = canon.CleanTokens(p.PolicyNumbers)
	p.Carriers = canon.CleanTokens(p.Carriers)
	p.AdjusterEmails = canon.CleanTokens(p.AdjusterEmails)
	p.SubjectPatterns = canon.CleanTokens(p.SubjectPatterns)
	p.UpdatedAt = at.UTC()
	p.UpdatedBy = actor
}

// QueryTokens collects profile tokens in query-building order: claim
// numbers, policy numbers, subject patterns, addresses, names, adjuster
// emails, carriers. Capped to the first limit tokens.
func QueryTokens(p types.IdentityProfile, limit int) []string {
	var tokens []string
	for _, group := range [][]string{
		p.ClaimNumbers, p.PolicyNumbers, p.SubjectPatterns,
		p.Addresses, p.Names, p.AdjusterEmails, p.Carriers,
	} {
		tokens = append(tokens, group...)
	}
	tokens = canon.CleanTokens(tokens)
	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}
