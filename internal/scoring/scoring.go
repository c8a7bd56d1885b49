// Package scoring maps an identity profile and a normalized message to a
// claim-relevance score. Pure and deterministic; no I/O.
//
// Points accumulate in two tiers. Hard matches are high-confidence
// identity evidence (claim number, policy number, address, adjuster
// email); a single hard hit should usually clear any reasonable review
// threshold. Soft matches are corroborating signals that can rescue a
// message lacking an explicit identifier but never alone justify
// auto-acceptance.
package scoring

import (
	"fmt"
	"strings"

	"github.com/clearclaims/claimtrail/internal/canon"
	"github.com/clearclaims/claimtrail/internal/types"
)

// Hard-match weights.
const (
	weightClaimNumber     = 40
	weightPolicyNumber    = 35
	weightAddressFragment = 30
	weightNameAndAddress  = 30
	weightAdjusterParty   = 25
)

// Soft-match weights.
const (
	weightCarrierDomain      = 10
	weightAdjusterThread     = 10
	weightAttachmentFilename = 10
)

// Breakdown splits a score into its hard and soft components.
type Breakdown struct {
	Hard int `json:"hard"`
	Soft int `json:"soft"`
}

// Result is the outcome of scoring one message against one profile.
type Result struct {
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons"`
	Breakdown Breakdown `json:"breakdown"`
}

// Score evaluates a normalized message against a claim identity profile.
// Matching is case-insensitive substring containment; blank candidate
// tokens never match. The result is clamped to [0, 100].
func Score(p types.IdentityProfile, m *types.NormalizedMessage) Result {
	haystack := strings.ToLower(strings.Join([]string{
		m.Subject, m.From, m.To, m.Cc, m.Snippet, m.BodyText,
	}, "\n"))
	parties := strings.ToLower(strings.Join([]string{m.From, m.To, m.Cc}, "\n"))

	var res Result

	// Hard tier.
	if tok := firstMatch(p.ClaimNumbers, haystack); tok != "" {
		res.Breakdown.Hard += weightClaimNumber
		res.Reasons = append(res.Reasons, fmt.Sprintf("claim number %q", tok))
	}
	if tok := firstMatch(p.PolicyNumbers, haystack); tok != "" {
		res.Breakdown.Hard += weightPolicyNumber
		res.Reasons = append(res.Reasons, fmt.Sprintf("policy number %q", tok))
	}
	addressHit := firstMatch(addressFragments(p.Addresses), haystack)
	if addressHit != "" {
		res.Breakdown.Hard += weightAddressFragment
		res.Reasons = append(res.Reasons, fmt.Sprintf("address %q", addressHit))
	}
	lastNameHit := firstMatch(lastNames(p.Names), haystack)
	if lastNameHit != "" && addressHit != "" {
		res.Breakdown.Hard += weightNameAndAddress
		res.Reasons = append(res.Reasons, fmt.Sprintf("name %q with address", lastNameHit))
	}
	if tok := firstMatch(p.AdjusterEmails, parties); tok != "" {
		res.Breakdown.Hard += weightAdjusterParty
		res.Reasons = append(res.Reasons, fmt.Sprintf("adjuster %q on message", tok))
	}

	// Soft tier.
	if tok := firstMatch(carrierDomains(p.Carriers), parties); tok != "" && lastNameHit != "" {
		res.Breakdown.Soft += weightCarrierDomain
		res.Reasons = append(res.Reasons, fmt.Sprintf("carrier domain %q with insured name", tok))
	}
	if tok := firstMatch(p.AdjusterEmails, parties); tok != "" {
		res.Breakdown.Soft += weightAdjusterThread
		res.Reasons = append(res.Reasons, fmt.Sprintf("adjuster %q among participants", tok))
	}
	if reason := attachmentNameMatch(p, m.Attachments); reason != "" {
		res.Breakdown.Soft += weightAttachmentFilename
		res.Reasons = append(res.Reasons, reason)
	}

	res.Score = clamp(res.Breakdown.Hard + res.Breakdown.Soft)
	return res
}

// firstMatch returns the first non-blank token contained in the haystack.
func firstMatch(tokens []string, haystack string) string {
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(tok)) {
			return tok
		}
	}
	return ""
}

func addressFragments(addresses []string) []string {
	var out []string
	for _, addr := range addresses {
		if frag := canon.AddressFragment(addr); frag != "" {
			out = append(out, frag)
		}
	}
	return out
}

func lastNames(names []string) []string {
	var out []string
	for _, name := range names {
		if last := canon.LastName(name); last != "" {
			out = append(out, last)
		}
	}
	return out
}

func carrierDomains(carriers []string) []string {
	var out []string
	for _, c := range carriers {
		if dom := canon.CarrierDomain(c); dom != "" {
			out = append(out, dom)
		}
	}
	return out
}

func attachmentNameMatch(p types.IdentityProfile, attachments []types.AttachmentMeta) string {
	tokens := append(append([]string{}, p.ClaimNumbers...), p.PolicyNumbers...)
	tokens = append(tokens, lastNames(p.Names)...)
	for _, att := range attachments {
		name := strings.ToLower(att.Filename)
		if name == "" {
			continue
		}
		if tok := firstMatch(tokens, name); tok != "" {
			return fmt.Sprintf("attachment %q mentions %q", att.Filename, tok)
		}
	}
	return ""
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
