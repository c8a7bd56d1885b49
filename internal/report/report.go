// Package report generates timeline report artifacts: a snapshot of the
// claim's ordered events with evidence citations, rendered and stored as
// an object. Generation failures land on the report record, never on the
// caller.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/config"
	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/types"
)

// ObjectStore is the storage surface report generation consumes.
type ObjectStore interface {
	Key(claimID string, parts ...string) string
	PutBytes(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error)
	SignedURL(ctx context.Context, uri string, ttl time.Duration) (string, error)
}

// Citation points a rendered event at its stored evidence.
type Citation struct {
	LinkType  string `json:"link_type"`
	URI       string `json:"uri"`
	Checksum  string `json:"checksum,omitempty"`
	SignedURL string `json:"signed_url,omitempty"`
}

// Entry is one event plus its citations.
type Entry struct {
	Event     *types.ClaimEvent `json:"event"`
	Citations []Citation        `json:"citations,omitempty"`
}

// Snapshot is the full input to a renderer.
type Snapshot struct {
	Claim       *types.Claim `json:"claim"`
	GeneratedAt time.Time    `json:"generated_at"`
	Entries     []Entry      `json:"entries"`
}

// Renderer turns a snapshot into an artifact.
type Renderer interface {
	Render(snap *Snapshot) (data []byte, contentType, ext string, err error)
}

// Service generates and lists timeline reports.
type Service struct {
	store    *db.DB
	objects  ObjectStore
	renderer Renderer
	cfg      config.Config
	now      func() time.Time
}

// New builds a report service. A nil renderer defaults to Markdown.
func New(store *db.DB, objects ObjectStore, renderer Renderer, cfg config.Config) *Service {
	if renderer == nil {
		renderer = Markdown{}
	}
	return &Service{store: store, objects: objects, renderer: renderer, cfg: cfg, now: time.Now}
}

// Generate produces one report artifact for a claim. The report record
// moves generating -> ready or generating -> failed; pipeline failures are
// recorded on the report rather than returned, so a caller always gets the
// terminal record back.
func (s *Service) Generate(ctx context.Context, claim *types.Claim, actor string) (*types.Report, error) {
	if s.objects == nil || !s.cfg.StorageConfigured() {
		return nil, fmt.Errorf("report for claim %s: %w", claim.ID, blob.ErrNotConfigured)
	}

	rep := &types.Report{
		ID:        db.NewID(),
		ClaimID:   claim.ID,
		Status:    types.ReportGenerating,
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertReport(rep); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	uri, artifactID, err := s.generate(ctx, claim, rep)
	finished := s.now().UTC()
	rep.FinishedAt = &finished
	if err != nil {
		rep.Status = types.ReportFailed
		rep.Error = err.Error()
	} else {
		rep.Status = types.ReportReady
		rep.ArtifactID = artifactID
		rep.StorageURI = uri
	}
	if err := s.store.UpdateReport(rep); err != nil {
		return nil, fmt.Errorf("finalize report: %w", err)
	}
	return rep, nil
}

func (s *Service) generate(ctx context.Context, claim *types.Claim, rep *types.Report) (uri, artifactID string, err error) {
	snap, err := s.snapshot(ctx, claim)
	if err != nil {
		return "", "", err
	}
	data, contentType, ext, err := s.renderer.Render(snap)
	if err != nil {
		return "", "", fmt.Errorf("render: %w", err)
	}

	artifactID = rep.ID + ext
	key := s.objects.Key(claim.ID, "reports", artifactID)
	uri, err = s.objects.PutBytes(ctx, key, data, contentType, map[string]string{
		"claim-id":  claim.ID,
		"report-id": rep.ID,
	})
	if err != nil {
		return "", "", fmt.Errorf("store artifact: %w", err)
	}
	return uri, artifactID, nil
}

// snapshot assembles the ordered timeline with citations. Signed URLs are
// best effort: a failed signing leaves the citation with its storage URI
// only.
func (s *Service) snapshot(ctx context.Context, claim *types.Claim) (*Snapshot, error) {
	events, err := s.store.ListEvents(claim.ID, db.EventFilter{})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	snap := &Snapshot{Claim: claim, GeneratedAt: s.now().UTC()}
	for _, ev := range events {
		entry := Entry{Event: ev}
		links, err := s.store.ListLinksForEvent(ev.ID)
		if err != nil {
			return nil, fmt.Errorf("list links for %s: %w", ev.ID, err)
		}
		for _, link := range links {
			c := Citation{
				LinkType: link.LinkType,
				URI:      link.RefStorageURI,
				Checksum: link.RefChecksum,
			}
			if c.URI != "" {
				if signed, err := s.objects.SignedURL(ctx, c.URI, s.cfg.SignedURLTTL); err == nil {
					c.SignedURL = signed
				}
			}
			entry.Citations = append(entry.Citations, c)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	return snap, nil
}

// List returns a claim's report records, newest first.
func (s *Service) List(claimID string) ([]*types.Report, error) {
	return s.store.ListReports(claimID)
}

// Markdown renders the snapshot as a human-readable timeline document.
type Markdown struct{}

// Render implements Renderer.
func (Markdown) Render(snap *Snapshot) ([]byte, string, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Claim Timeline — %s\n\n", snap.Claim.ClaimNumber)
	fmt.Fprintf(&b, "Policyholder: %s\n", snap.Claim.PolicyholderName)
	if snap.Claim.PropertyAddress != "" {
		fmt.Fprintf(&b, "Property: %s\n", snap.Claim.PropertyAddress)
	}
	fmt.Fprintf(&b, "Status: %s\n", snap.Claim.Status)
	fmt.Fprintf(&b, "Generated: %s\n\n", snap.GeneratedAt.Format(time.RFC3339))

	if len(snap.Entries) == 0 {
		b.WriteString("_No events recorded._\n")
	}
	for _, entry := range snap.Entries {
		ev := entry.Event
		fmt.Fprintf(&b, "## %s — %s\n\n", ev.OccurredAt.Format("2006-01-02 15:04"), ev.Type)
		fmt.Fprintf(&b, "%s\n", ev.Summary)
		if len(ev.Parties) > 0 {
			fmt.Fprintf(&b, "Parties: %s\n", strings.Join(ev.Parties, ", "))
		}
		for _, c := range entry.Citations {
			ref := c.URI
			if c.SignedURL != "" {
				ref = c.SignedURL
			}
			fmt.Fprintf(&b, "- Evidence (%s): %s\n", c.LinkType, ref)
		}
		b.WriteString("\n")
	}
	return []byte(b.String()), "text/markdown; charset=utf-8", ".md", nil
}
