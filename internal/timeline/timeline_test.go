package timeline

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/types"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "claims.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seedClaim(t *testing.T, d *db.DB, status string, updatedAt time.Time) *types.Claim {
	t.Helper()
	claim := &types.Claim{
		ID:               "claim-1",
		ClaimNumber:      "CLM-1001",
		PolicyholderName: "John Smith",
		Status:           status,
		CreatedAt:        updatedAt.Add(-48 * time.Hour),
		UpdatedAt:        updatedAt,
	}
	if err := d.InsertClaim(claim); err != nil {
		t.Fatal(err)
	}
	return claim
}

func TestSyncBaseline_Idempotent(t *testing.T) {
	d := testDB(t)
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	claim := seedClaim(t, d, "open", at)
	svc := New(d)

	if err := d.InsertNote(&types.ClaimNote{
		ID: "note-1", ClaimID: claim.ID, Body: "Called the insured", Author: "ops", CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}
	completed := at.Add(72 * time.Hour)
	if err := d.InsertInspection(&types.ClaimInspection{
		ID: "insp-1", ClaimID: claim.ID, Inspector: "Pat Lee",
		ScheduledFor: at.Add(48 * time.Hour), CompletedAt: &completed, CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}

	created, err := svc.SyncBaseline(claim)
	if err != nil {
		t.Fatal(err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want note + scheduled + completed", created)
	}

	again, err := svc.SyncBaseline(claim)
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second sync created %d events, want 0", again)
	}
	events, err := svc.List(claim.ID, db.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("events = %d, want 3", len(events))
	}
}

func TestSyncBaseline_StatusGranularity(t *testing.T) {
	d := testDB(t)
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	claim := seedClaim(t, d, "approved", at)
	svc := New(d)

	if _, err := svc.SyncBaseline(claim); err != nil {
		t.Fatal(err)
	}

	// A reversed determination is a second decision, not a duplicate.
	claim.Status = "denied"
	claim.UpdatedAt = at.Add(24 * time.Hour)
	if _, err := svc.SyncBaseline(claim); err != nil {
		t.Fatal(err)
	}
	events, err := svc.List(claim.ID, db.EventFilter{Type: types.EventCoverageDetermination})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("determinations = %d, want 2 (approved then denied)", len(events))
	}

	// Closure records once no matter how often the claim re-closes.
	claim.Status = "closed"
	claim.UpdatedAt = at.Add(48 * time.Hour)
	if _, err := svc.SyncBaseline(claim); err != nil {
		t.Fatal(err)
	}
	claim.UpdatedAt = at.Add(72 * time.Hour)
	if _, err := svc.SyncBaseline(claim); err != nil {
		t.Fatal(err)
	}
	closed, err := svc.List(claim.ID, db.EventFilter{Type: types.EventClaimClosed})
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 {
		t.Errorf("closed events = %d, want exactly 1", len(closed))
	}
}

func TestList_StableOrder(t *testing.T) {
	d := testDB(t)
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	claim := seedClaim(t, d, "open", at)
	svc := New(d)

	// Same timestamp across types: priority decides, then source id.
	if err := d.InsertNote(&types.ClaimNote{
		ID: "note-b", ClaimID: claim.ID, Body: "second note", CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertNote(&types.ClaimNote{
		ID: "note-a", ClaimID: claim.ID, Body: "first note", CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.InsertInspection(&types.ClaimInspection{
		ID: "insp-1", ClaimID: claim.ID, ScheduledFor: at, CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SyncBaseline(claim); err != nil {
		t.Fatal(err)
	}

	events, err := svc.List(claim.ID, db.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d", len(events))
	}
	// NOTE (30) sorts before INSPECTION_SCHEDULED (40); notes tie-break on
	// source id.
	if events[0].SourceID != "note-a" || events[1].SourceID != "note-b" {
		t.Errorf("note order = [%s, %s]", events[0].SourceID, events[1].SourceID)
	}
	if events[2].Type != types.EventInspectionScheduled {
		t.Errorf("last event = %s", events[2].Type)
	}

	// Ordering is reproducible across reads.
	again, err := svc.List(claim.ID, db.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range events {
		if events[i].ID != again[i].ID {
			t.Fatalf("order changed between reads at index %d", i)
		}
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 30)
	got := truncate(long, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Errorf("rune count = %d, want 10", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated string missing ellipsis: %q", got)
	}
	if short := truncate("short", 10); short != "short" {
		t.Errorf("short input changed: %q", short)
	}
}

func TestClassifyDocument(t *testing.T) {
	tests := []struct {
		name    string
		docType string
		want    types.EventType
	}{
		{"scope_estimate.pdf", "", types.EventEstimateUploaded},
		{"estimate_revised.pdf", "", types.EventEstimateRevised},
		{"anything.pdf", "estimate", types.EventEstimateUploaded},
		{"packet.pdf", "carrier_submission", types.EventDocSubmittedToCarrier},
		{"submitted_to_carrier_packet.pdf", "", types.EventDocSubmittedToCarrier},
		{"photos.zip", "", types.EventAttachmentAdded},
	}
	for _, tt := range tests {
		doc := &types.ClaimDocument{Name: tt.name, DocType: tt.docType}
		if got := classifyDocument(doc); got != tt.want {
			t.Errorf("classifyDocument(%q, %q) = %s, want %s", tt.name, tt.docType, got, tt.want)
		}
	}
}
