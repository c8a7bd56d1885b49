package scoring

import (
	"testing"

	"github.com/clearclaims/claimtrail/internal/types"
)

func testProfile() types.IdentityProfile {
	return types.IdentityProfile{
		ClaimID:        "claim-1",
		ClaimNumbers:   []string{"CLM-1001"},
		PolicyNumbers:  []string{"POL-88"},
		Names:          []string{"John Smith"},
		Addresses:      []string{"123 Oak St, Tampa FL"},
		Carriers:       []string{"State Farm"},
		AdjusterEmails: []string{"jane@statefarm.com"},
	}
}

func msg(subject, from, body string) *types.NormalizedMessage {
	return &types.NormalizedMessage{
		ID:       "m1",
		Subject:  subject,
		From:     from,
		BodyText: body,
	}
}

func TestScore_ClaimNumberHardMatch(t *testing.T) {
	res := Score(testProfile(), msg("Update", "someone@example.com", "Regarding CLM-1001 status"))
	if res.Breakdown.Hard < 40 {
		t.Errorf("hard = %d, want >= 40", res.Breakdown.Hard)
	}
	if res.Score < 40 {
		t.Errorf("score = %d, want >= 40", res.Score)
	}
	if len(res.Reasons) == 0 {
		t.Error("expected a reason for the claim number hit")
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	res := Score(testProfile(), msg("clm-1001 docs", "x@y.com", ""))
	if res.Breakdown.Hard < 40 {
		t.Errorf("case-insensitive match failed: hard = %d", res.Breakdown.Hard)
	}
}

func TestScore_SoftOnlyCarrierDomain(t *testing.T) {
	// Carrier employee mentions the insured by name, no identifiers.
	m := msg("The Smith property", "adjusting@statefarm.com", "Checking in about the Smith property damage")
	res := Score(testProfile(), m)
	if res.Breakdown.Hard != 0 {
		t.Errorf("hard = %d, want 0 (no identifiers present)", res.Breakdown.Hard)
	}
	if res.Breakdown.Soft != 10 {
		t.Errorf("soft = %d, want 10 (carrier domain + insured name)", res.Breakdown.Soft)
	}
	if res.Score != 10 {
		t.Errorf("score = %d, want 10", res.Score)
	}
}

func TestScore_Monotonicity(t *testing.T) {
	// Adding a hard-match token to a soft-only message strictly increases
	// the score.
	soft := msg("The Smith property", "adjusting@statefarm.com", "Checking in about the Smith property")
	hard := msg("The Smith property", "adjusting@statefarm.com", "Checking in about the Smith property, ref CLM-1001")

	softRes := Score(testProfile(), soft)
	hardRes := Score(testProfile(), hard)
	if hardRes.Score <= softRes.Score {
		t.Errorf("adding claim number did not increase score: %d -> %d", softRes.Score, hardRes.Score)
	}
}

func TestScore_Clamped(t *testing.T) {
	// Every rule fires: the raw sum exceeds 100 and must clamp.
	m := &types.NormalizedMessage{
		ID:       "m1",
		Subject:  "CLM-1001 POL-88 123 Oak St Smith",
		From:     "jane@statefarm.com",
		To:       "owner@example.com",
		BodyText: "CLM-1001 POL-88 123 Oak St Tampa FL John Smith",
		Attachments: []types.AttachmentMeta{
			{Filename: "CLM-1001_estimate.pdf"},
		},
	}
	res := Score(testProfile(), m)
	if res.Score != 100 {
		t.Errorf("score = %d, want clamp at 100", res.Score)
	}
	if res.Breakdown.Hard+res.Breakdown.Soft <= 100 {
		t.Errorf("raw sum = %d, expected over 100 before clamp", res.Breakdown.Hard+res.Breakdown.Soft)
	}
}

func TestScore_AdjusterEmailHardAndSoft(t *testing.T) {
	m := msg("Re: inspection", "jane@statefarm.com", "See you Tuesday")
	res := Score(testProfile(), m)
	// Adjuster in a party field scores the hard rule and the participant
	// soft rule.
	if res.Breakdown.Hard != 25 {
		t.Errorf("hard = %d, want 25", res.Breakdown.Hard)
	}
	if res.Breakdown.Soft != 10 {
		t.Errorf("soft = %d, want 10", res.Breakdown.Soft)
	}
}

func TestScore_BlankTokensNeverMatch(t *testing.T) {
	p := types.IdentityProfile{
		ClaimNumbers: []string{"", "   "},
		Names:        []string{""},
	}
	res := Score(p, msg("anything", "a@b.com", "body text"))
	if res.Score != 0 {
		t.Errorf("blank tokens matched: score = %d", res.Score)
	}
}

func TestScore_AddressFragment(t *testing.T) {
	m := msg("Damage at 123 Oak St Tampa FL", "x@y.com", "")
	res := Score(testProfile(), m)
	// Address fragment (+30) and last name not present -> no combo bonus.
	if res.Breakdown.Hard != 30 {
		t.Errorf("hard = %d, want 30", res.Breakdown.Hard)
	}
}

func TestScore_AddressAsWritten(t *testing.T) {
	// The address rule fires whether the text quotes the address with its
	// comma or mentions only the street portion.
	for _, body := range []string{
		"Loss location: 123 Oak St, Tampa FL",
		"We inspected the roof at 123 Oak St on Tuesday",
	} {
		res := Score(testProfile(), msg("Inspection", "x@y.com", body))
		if res.Breakdown.Hard < 30 {
			t.Errorf("body %q: hard = %d, want >= 30", body, res.Breakdown.Hard)
		}
	}
}

func TestScore_NameWithAddressCombo(t *testing.T) {
	m := msg("Damage at 123 Oak St Tampa FL", "x@y.com", "Insured: John Smith")
	res := Score(testProfile(), m)
	// Fragment (+30) plus last-name-with-address combo (+30).
	if res.Breakdown.Hard != 60 {
		t.Errorf("hard = %d, want 60", res.Breakdown.Hard)
	}
}

func TestScore_AttachmentFilename(t *testing.T) {
	m := &types.NormalizedMessage{
		ID:      "m1",
		Subject: "photos",
		From:    "neighbor@example.com",
		Attachments: []types.AttachmentMeta{
			{Filename: "smith_roof_photos.zip"},
		},
	}
	res := Score(testProfile(), m)
	if res.Breakdown.Soft != 10 {
		t.Errorf("soft = %d, want 10 for filename mention", res.Breakdown.Soft)
	}
}

func TestScore_Deterministic(t *testing.T) {
	m := msg("CLM-1001", "jane@statefarm.com", "123 Oak St John Smith")
	first := Score(testProfile(), m)
	for i := 0; i < 5; i++ {
		if again := Score(testProfile(), m); again.Score != first.Score {
			t.Fatalf("score not deterministic: %d vs %d", first.Score, again.Score)
		}
	}
}
