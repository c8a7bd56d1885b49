package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearclaims/claimtrail/internal/types"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "claims.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seedClaim(t *testing.T, d *DB) *types.Claim {
	t.Helper()
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	claim := &types.Claim{
		ID:               "claim-1",
		ClaimNumber:      "CLM-1001",
		PolicyholderName: "John Smith",
		Status:           "open",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := d.InsertClaim(claim); err != nil {
		t.Fatal(err)
	}
	return claim
}

func evidence(id, dedupeKey string) *types.EvidenceItem {
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &types.EvidenceItem{
		ID:           id,
		ClaimID:      "claim-1",
		Kind:         types.KindEmail,
		SourceSystem: "gmail",
		SourceID:     "m1",
		Checksum:     "abc",
		StorageURI:   "blob://bucket/raw.json",
		OccurredAt:   at,
		IngestedAt:   at,
		Score:        75,
		DedupeKey:    dedupeKey,
		ReviewStatus: types.ReviewApproved,
	}
}

func TestUpsertEvidence_DuplicateReturnsExisting(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)

	first, created, err := d.UpsertEvidence(evidence("e1", "k1"))
	if err != nil || !created {
		t.Fatalf("first upsert = (%v, %v)", created, err)
	}

	// Same identity under a new id: absorbed, original returned.
	second, created, err := d.UpsertEvidence(evidence("e2", "k1"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("duplicate dedupe key reported as created")
	}
	if second.ID != first.ID {
		t.Errorf("returned id = %s, want original %s", second.ID, first.ID)
	}

	items, err := d.ListEvidence("claim-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("stored items = %d, want 1", len(items))
	}
}

func TestUpsertEvent_Immutable(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	ev := &types.ClaimEvent{
		ID: "ev-1", ClaimID: "claim-1", Type: types.EventEmailReceived,
		OccurredAt: at, IngestedAt: at, SourceSystem: "gmail", SourceID: "m1",
		Summary: "original summary", TypePriority: 10, DedupeKey: "k1",
	}
	if _, created, err := d.UpsertEvent(ev); err != nil || !created {
		t.Fatalf("first upsert = (%v, %v)", created, err)
	}

	dup := *ev
	dup.ID = "ev-2"
	dup.Summary = "attempted rewrite"
	stored, created, err := d.UpsertEvent(&dup)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("duplicate event reported as created")
	}
	if stored.ID != "ev-1" || stored.Summary != "original summary" {
		t.Errorf("event mutated: %+v", stored)
	}
}

func TestEnqueueReview_OnePerEvidence(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	if _, _, err := d.UpsertEvidence(evidence("e1", "k1")); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	item := &types.ReviewQueueItem{
		ID: "q1", ClaimID: "claim-1", EvidenceID: "e1",
		Score: 45, Status: types.ReviewPending, CreatedAt: at,
	}
	if _, created, err := d.EnqueueReview(item); err != nil || !created {
		t.Fatalf("first enqueue = (%v, %v)", created, err)
	}

	dup := *item
	dup.ID = "q2"
	existing, created, err := d.EnqueueReview(&dup)
	if err != nil {
		t.Fatal(err)
	}
	if created || existing.ID != "q1" {
		t.Errorf("second enqueue = (%v, %s), want existing q1", created, existing.ID)
	}
}

func TestDecideQueueItem_OnlyPending(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	if _, _, err := d.UpsertEvidence(evidence("e1", "k1")); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := d.EnqueueReview(&types.ReviewQueueItem{
		ID: "q1", ClaimID: "claim-1", EvidenceID: "e1",
		Status: types.ReviewPending, CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}

	decided, err := d.DecideQueueItem("q1", types.ReviewApproved, "reviewer", "", at)
	if err != nil || !decided {
		t.Fatalf("decide = (%v, %v)", decided, err)
	}

	// A second decision loses: the row is no longer pending.
	decided, err = d.DecideQueueItem("q1", types.ReviewRejected, "someone-else", "", at)
	if err != nil {
		t.Fatal(err)
	}
	if decided {
		t.Error("decided an already-decided item")
	}
	item, err := d.GetQueueItem("claim-1", "q1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != types.ReviewApproved || item.DecidedBy != "reviewer" {
		t.Errorf("item = %+v", item)
	}
}

func TestFindActiveRunByKey_SkipsFailed(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	run := &types.IngestionRun{
		ID: "r1", ClaimID: "claim-1", Mode: types.ModeManual, Status: types.RunFailed,
		WindowStart: at.AddDate(0, 0, -30), WindowEnd: at,
		IdempotencyKey: "key-1", StartedAt: at,
	}
	if err := d.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	found, err := d.FindActiveRunByKey("claim-1", "key-1")
	if err != nil {
		t.Fatal(err)
	}
	if found != nil {
		t.Errorf("failed run blocks a retry: %+v", found)
	}

	run.ID = "r2"
	run.Status = types.RunCompleted
	if err := d.CreateRun(run); err != nil {
		t.Fatal(err)
	}
	found, err = d.FindActiveRunByKey("claim-1", "key-1")
	if err != nil {
		t.Fatal(err)
	}
	if found == nil || found.ID != "r2" {
		t.Errorf("completed run not found: %+v", found)
	}
}

func TestSaveRunState_RoundTrip(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	run := &types.IngestionRun{
		ID: "r1", ClaimID: "claim-1", Mode: types.ModeManual, Status: types.RunRunning,
		WindowStart: at.AddDate(0, 0, -30), WindowEnd: at,
		IdempotencyKey: "key-1", StartedAt: at,
	}
	if err := d.CreateRun(run); err != nil {
		t.Fatal(err)
	}

	finished := at.Add(2 * time.Second)
	run.Status = types.RunPartial
	run.Counters = types.RunCounters{Fetched: 5, Ingested: 3, Errors: 1}
	run.Errors = []types.RunError{{SourceID: "m3", Stage: "message", Message: "boom", At: at}}
	run.Steps = []types.RunStep{{At: at, Note: "listed 5 candidate messages"}}
	run.FinishedAt = &finished
	run.DurationMS = 2000
	if err := d.SaveRunState(run); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetRun("r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.RunPartial || got.Counters != run.Counters {
		t.Errorf("run = %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0].SourceID != "m3" {
		t.Errorf("errors = %+v", got.Errors)
	}
	if len(got.Steps) != 1 || got.FinishedAt == nil || got.DurationMS != 2000 {
		t.Errorf("steps/finish = %+v", got)
	}
}

func TestListEvents_StableOrder(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	mk := func(id string, ty types.EventType, occurred time.Time, sourceID string) {
		t.Helper()
		if _, _, err := d.UpsertEvent(&types.ClaimEvent{
			ID: id, ClaimID: "claim-1", Type: ty, OccurredAt: occurred, IngestedAt: at,
			SourceSystem: "gmail", SourceID: sourceID, Summary: string(ty),
			TypePriority: ty.Priority(), DedupeKey: id,
		}); err != nil {
			t.Fatal(err)
		}
	}
	// Insert out of order: same timestamp resolves by priority then source.
	mk("e-note", types.EventNote, at, "n1")
	mk("e-mail-b", types.EventEmailReceived, at, "m2")
	mk("e-mail-a", types.EventEmailReceived, at, "m1")
	mk("e-early", types.EventClaimClosed, at.Add(-time.Hour), "c1")

	events, err := d.ListEvents("claim-1", EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"e-early", "e-mail-a", "e-mail-b", "e-note"}
	if len(events) != len(wantOrder) {
		t.Fatalf("events = %d", len(events))
	}
	for i, want := range wantOrder {
		if events[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, events[i].ID, want)
		}
	}
}

func TestGetClaim_NotFound(t *testing.T) {
	d := openTest(t)
	_, err := d.GetClaim("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertLink_Dedupes(t *testing.T) {
	d := openTest(t)
	seedClaim(t, d)
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if _, _, err := d.UpsertEvidence(evidence("e1", "k1")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.UpsertEvent(&types.ClaimEvent{
		ID: "ev-1", ClaimID: "claim-1", Type: types.EventEmailReceived,
		OccurredAt: at, IngestedAt: at, SourceSystem: "gmail", SourceID: "m1",
		Summary: "email", TypePriority: 10, DedupeKey: "evk",
	}); err != nil {
		t.Fatal(err)
	}

	link := &types.EvidenceLink{
		ID: "l1", ClaimID: "claim-1", EventID: "ev-1", EvidenceID: "e1",
		LinkType: types.LinkPrimarySource, CreatedAt: at,
	}
	if created, err := d.UpsertLink(link); err != nil || !created {
		t.Fatalf("first link = (%v, %v)", created, err)
	}
	dup := *link
	dup.ID = "l2"
	if created, err := d.UpsertLink(&dup); err != nil || created {
		t.Fatalf("duplicate link = (%v, %v), want absorbed", created, err)
	}
	links, err := d.ListLinksForEvent("ev-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Errorf("links = %d, want 1", len(links))
	}
}
