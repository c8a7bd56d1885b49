package report

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/config"
	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/types"
)

type fakeObjects struct {
	data    map[string][]byte
	signErr error
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{data: make(map[string][]byte)}
}

func (f *fakeObjects) Key(claimID string, parts ...string) string {
	return filepath.Join(append([]string{"claimtrail", "claims", claimID}, parts...)...)
}

func (f *fakeObjects) PutBytes(_ context.Context, key string, data []byte, _ string, _ map[string]string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.data[key] = data
	return "blob://bucket/" + key, nil
}

func (f *fakeObjects) SignedURL(_ context.Context, uri string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + strings.TrimPrefix(uri, "blob://"), nil
}

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "claims.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func seed(t *testing.T, d *db.DB) *types.Claim {
	t.Helper()
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	claim := &types.Claim{
		ID: "claim-1", ClaimNumber: "CLM-1001", PolicyholderName: "John Smith",
		Status: "open", CreatedAt: at, UpdatedAt: at,
	}
	if err := d.InsertClaim(claim); err != nil {
		t.Fatal(err)
	}
	ev := &types.ClaimEvent{
		ID: "ev-1", ClaimID: claim.ID, Type: types.EventEmailReceived,
		OccurredAt: at, IngestedAt: at, SourceSystem: "gmail", SourceID: "m1",
		Summary: "Email from the adjuster", TypePriority: types.EventEmailReceived.Priority(),
		DedupeKey: "k1",
	}
	if _, _, err := d.UpsertEvent(ev); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.UpsertEvidence(&types.EvidenceItem{
		ID: "e1", ClaimID: claim.ID, Kind: types.KindEmail,
		SourceSystem: "gmail", SourceID: "m1", Checksum: "abc",
		StorageURI: "blob://bucket/raw.json", OccurredAt: at, IngestedAt: at,
		Score: 75, DedupeKey: "ek1", ReviewStatus: types.ReviewApproved,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.UpsertLink(&types.EvidenceLink{
		ID: "l1", ClaimID: claim.ID, EventID: "ev-1", EvidenceID: "e1",
		LinkType: types.LinkPrimarySource, RefStorageURI: "blob://bucket/raw.json",
		RefChecksum: "abc", CreatedAt: at,
	}); err != nil {
		t.Fatal(err)
	}
	return claim
}

func cfg() config.Config {
	return config.Config{S3Bucket: "bucket", SignedURLTTL: 15 * time.Minute}
}

func TestGenerate_Ready(t *testing.T) {
	d := testDB(t)
	claim := seed(t, d)
	objects := newFakeObjects()
	svc := New(d, objects, nil, cfg())

	rep, err := svc.Generate(context.Background(), claim, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Status != types.ReportReady {
		t.Fatalf("status = %s, error = %s", rep.Status, rep.Error)
	}
	if rep.StorageURI == "" || rep.ArtifactID == "" || rep.FinishedAt == nil {
		t.Errorf("incomplete report record: %+v", rep)
	}

	var artifact []byte
	for _, data := range objects.data {
		artifact = data
	}
	text := string(artifact)
	if !strings.Contains(text, "CLM-1001") {
		t.Error("artifact missing claim number")
	}
	if !strings.Contains(text, "EMAIL_RECEIVED") {
		t.Error("artifact missing the event")
	}
	if !strings.Contains(text, "https://signed.example/bucket/raw.json") {
		t.Error("artifact missing the signed evidence URL")
	}

	reports, err := svc.List(claim.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Status != types.ReportReady {
		t.Errorf("listed reports = %+v", reports)
	}
}

func TestGenerate_SigningFailureDegrades(t *testing.T) {
	d := testDB(t)
	claim := seed(t, d)
	objects := newFakeObjects()
	objects.signErr = errors.New("presign unavailable")
	svc := New(d, objects, nil, cfg())

	rep, err := svc.Generate(context.Background(), claim, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Status != types.ReportReady {
		t.Fatalf("signing failure must not fail the report: %s", rep.Status)
	}
	var artifact []byte
	for _, data := range objects.data {
		artifact = data
	}
	if !strings.Contains(string(artifact), "blob://bucket/raw.json") {
		t.Error("artifact should fall back to the storage URI")
	}
}

func TestGenerate_StoreFailureRecordsFailed(t *testing.T) {
	d := testDB(t)
	claim := seed(t, d)
	objects := newFakeObjects()
	objects.putErr = errors.New("bucket gone")
	svc := New(d, objects, nil, cfg())

	rep, err := svc.Generate(context.Background(), claim, "ops")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Status != types.ReportFailed {
		t.Fatalf("status = %s, want failed", rep.Status)
	}
	if !strings.Contains(rep.Error, "bucket gone") {
		t.Errorf("error = %q", rep.Error)
	}
	if rep.FinishedAt == nil {
		t.Error("failed report missing finish time")
	}
}

func TestGenerate_StorageUnconfigured(t *testing.T) {
	d := testDB(t)
	claim := seed(t, d)
	svc := New(d, nil, nil, config.Config{})

	_, err := svc.Generate(context.Background(), claim, "ops")
	if !errors.Is(err, blob.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	reports, _ := svc.List(claim.ID)
	if len(reports) != 0 {
		t.Errorf("unconfigured storage created %d report rows", len(reports))
	}
}
