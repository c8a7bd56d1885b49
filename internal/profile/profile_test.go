package profile

import (
	"testing"
	"time"

	"github.com/clearclaims/claimtrail/internal/types"
)

func testClaim() *types.Claim {
	return &types.Claim{
		ID:               "claim-1",
		ClaimNumber:      "CLM-1001",
		PolicyNumber:     "POL-88",
		PolicyholderName: "John Smith",
		PropertyAddress:  "123 Oak St, Tampa FL",
		CarrierName:      "State Farm",
		AdjusterName:     "Jane Adjuster",
		AdjusterEmail:    "Jane@StateFarm.com",
	}
}

func TestDefaults(t *testing.T) {
	p := Defaults(testClaim())

	if len(p.ClaimNumbers) != 1 || p.ClaimNumbers[0] != "CLM-1001" {
		t.Errorf("ClaimNumbers = %v", p.ClaimNumbers)
	}
	if len(p.AdjusterEmails) != 1 || p.AdjusterEmails[0] != "jane@statefarm.com" {
		t.Errorf("AdjusterEmails = %v, want lowercased", p.AdjusterEmails)
	}
	wantPatterns := map[string]bool{"claim CLM-1001": true, "CLM-1001": true, "Smith claim": true}
	for _, pat := range p.SubjectPatterns {
		if !wantPatterns[pat] {
			t.Errorf("unexpected subject pattern %q", pat)
		}
	}
	if len(p.SubjectPatterns) != 3 {
		t.Errorf("SubjectPatterns = %v", p.SubjectPatterns)
	}
}

func TestResolve_MergesOverridesAfterDefaults(t *testing.T) {
	override := &types.IdentityProfile{
		ClaimID:      "claim-1",
		ClaimNumbers: []string{"clm-1001", "CLM-1001-B"}, // first is a case-dup
		Names:        []string{"Smith Property LLC"},
	}

	p := Resolve(testClaim(), override)

	if len(p.ClaimNumbers) != 2 {
		t.Fatalf("ClaimNumbers = %v, want default + 1 new", p.ClaimNumbers)
	}
	if p.ClaimNumbers[0] != "CLM-1001" {
		t.Errorf("defaults must come first, got %v", p.ClaimNumbers)
	}
	if p.ClaimNumbers[1] != "CLM-1001-B" {
		t.Errorf("override token missing: %v", p.ClaimNumbers)
	}

	foundLLC := false
	for _, n := range p.Names {
		if n == "Smith Property LLC" {
			foundLLC = true
		}
	}
	if !foundLLC {
		t.Errorf("override name not merged: %v", p.Names)
	}
}

func TestResolve_NoOverride(t *testing.T) {
	p := Resolve(testClaim(), nil)
	if len(p.ClaimNumbers) != 1 {
		t.Errorf("ClaimNumbers = %v", p.ClaimNumbers)
	}
}

func TestSanitize(t *testing.T) {
	p := &types.IdentityProfile{
		ClaimID: "claim-1",
		Names:   []string{" John Smith ", "", "john smith", "Acme"},
	}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	Sanitize(p, "user-9", at)

	if len(p.Names) != 2 {
		t.Errorf("Names = %v, want cleaned pair", p.Names)
	}
	if p.UpdatedBy != "user-9" || !p.UpdatedAt.Equal(at) {
		t.Errorf("stamps = %q %v", p.UpdatedBy, p.UpdatedAt)
	}
}

func TestQueryTokens_OrderAndCap(t *testing.T) {
	p := Resolve(testClaim(), nil)
	tokens := QueryTokens(p, 20)

	if len(tokens) == 0 || tokens[0] != "CLM-1001" {
		t.Errorf("claim number should lead the query tokens: %v", tokens)
	}

	capped := QueryTokens(p, 3)
	if len(capped) != 3 {
		t.Errorf("cap not applied: %v", capped)
	}
}
