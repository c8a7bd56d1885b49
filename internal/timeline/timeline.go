// Package timeline projects claim-system records into the unified event
// timeline and serves ordered timeline reads. Projection is idempotent:
// every baseline event carries a dedupe key derived from the source
// record, so repeated syncs converge instead of duplicating.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/clearclaims/claimtrail/internal/canon"
	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/types"
)

// Service reads and projects timeline events.
type Service struct {
	store *db.DB
	now   func() time.Time
}

// New builds a timeline service.
func New(store *db.DB) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns a claim's events in stable order: occurred-at first, then
// type priority, then source id.
func (s *Service) List(claimID string, f db.EventFilter) ([]*types.ClaimEvent, error) {
	return s.store.ListEvents(claimID, f)
}

// SyncBaseline projects the claim's own records (notes, documents,
// inspections, status) into timeline events, returning how many events
// were newly created. Safe to call any number of times.
func (s *Service) SyncBaseline(claim *types.Claim) (int, error) {
	var events []*types.ClaimEvent

	notes, err := s.store.ListNotes(claim.ID)
	if err != nil {
		return 0, fmt.Errorf("list notes: %w", err)
	}
	for _, n := range notes {
		events = append(events, s.noteEvent(claim, n))
	}

	docs, err := s.store.ListDocuments(claim.ID)
	if err != nil {
		return 0, fmt.Errorf("list documents: %w", err)
	}
	for _, doc := range docs {
		events = append(events, s.documentEvent(claim, doc))
	}

	inspections, err := s.store.ListInspections(claim.ID)
	if err != nil {
		return 0, fmt.Errorf("list inspections: %w", err)
	}
	for _, insp := range inspections {
		events = append(events, s.inspectionEvents(claim, insp)...)
	}

	events = append(events, s.statusEvents(claim)...)

	created := 0
	for _, ev := range events {
		_, isNew, err := s.store.UpsertEvent(ev)
		if err != nil {
			return created, fmt.Errorf("upsert %s event: %w", ev.Type, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func (s *Service) noteEvent(claim *types.Claim, n *types.ClaimNote) *types.ClaimEvent {
	summary := "Note: " + truncate(n.Body, 120)
	if n.Author != "" {
		summary = fmt.Sprintf("Note by %s: %s", n.Author, truncate(n.Body, 120))
	}
	return s.baseEvent(claim, types.EventNote, n.CreatedAt, n.ID, summary, n.Author)
}

func (s *Service) documentEvent(claim *types.Claim, doc *types.ClaimDocument) *types.ClaimEvent {
	evType := classifyDocument(doc)
	var summary string
	switch evType {
	case types.EventEstimateUploaded:
		summary = "Estimate uploaded: " + doc.Name
	case types.EventEstimateRevised:
		summary = "Estimate revised: " + doc.Name
	case types.EventDocSubmittedToCarrier:
		summary = "Document submitted to carrier: " + doc.Name
	default:
		summary = "Document added: " + doc.Name
	}
	return s.baseEvent(claim, evType, doc.CreatedAt, doc.ID, summary, doc.UploadedBy)
}

func (s *Service) inspectionEvents(claim *types.Claim, insp *types.ClaimInspection) []*types.ClaimEvent {
	scheduled := s.baseEvent(claim, types.EventInspectionScheduled, insp.ScheduledFor, insp.ID,
		"Inspection scheduled"+withActor(insp.Inspector), insp.Inspector)
	out := []*types.ClaimEvent{scheduled}
	if insp.CompletedAt != nil {
		out = append(out, s.baseEvent(claim, types.EventInspectionCompleted, *insp.CompletedAt, insp.ID,
			"Inspection completed"+withActor(insp.Inspector), insp.Inspector))
	}
	return out
}

// statusEvents derives lifecycle events from the claim's current status.
// Determination keys incorporate the status value so a claim that moves
// from approved to denied records both decisions; payment and closure
// are keyed on the claim alone because each can only happen once.
func (s *Service) statusEvents(claim *types.Claim) []*types.ClaimEvent {
	status := strings.ToLower(claim.Status)
	at := claim.UpdatedAt
	var out []*types.ClaimEvent

	switch status {
	case "approved", "denied":
		ev := s.baseEvent(claim, types.EventCoverageDetermination, at, claim.ID,
			"Coverage determination: "+status, "")
		ev.DedupeKey = canon.DedupeKey(claim.ID, string(types.EventCoverageDetermination), status)
		out = append(out, ev)
	case "paid", "payment_issued":
		ev := s.baseEvent(claim, types.EventPaymentIssued, at, claim.ID,
			"Payment issued", "")
		ev.DedupeKey = canon.DedupeKey(claim.ID, string(types.EventPaymentIssued))
		out = append(out, ev)
	case "closed", "completed":
		ev := s.baseEvent(claim, types.EventClaimClosed, at, claim.ID,
			"Claim closed", "")
		ev.DedupeKey = canon.DedupeKey(claim.ID, string(types.EventClaimClosed))
		out = append(out, ev)
	}
	return out
}

func (s *Service) baseEvent(claim *types.Claim, t types.EventType, at time.Time, sourceID, summary, actor string) *types.ClaimEvent {
	ev := &types.ClaimEvent{
		ID:           db.NewID(),
		ClaimID:      claim.ID,
		Type:         t,
		OccurredAt:   at.UTC(),
		IngestedAt:   s.now().UTC(),
		SourceSystem: "claims",
		SourceID:     sourceID,
		Summary:      summary,
		TypePriority: t.Priority(),
		DedupeKey:    canon.DedupeKey(claim.ID, string(t), sourceID),
	}
	if actor != "" {
		ev.Parties = []string{actor}
	}
	return ev
}

func classifyDocument(doc *types.ClaimDocument) types.EventType {
	name := strings.ToLower(doc.Name)
	switch strings.ToLower(doc.DocType) {
	case "carrier_submission":
		return types.EventDocSubmittedToCarrier
	case "estimate":
		if strings.Contains(name, "rev") || strings.Contains(name, "supp") {
			return types.EventEstimateRevised
		}
		return types.EventEstimateUploaded
	}
	if strings.Contains(name, "carrier") && strings.Contains(name, "submitted") {
		return types.EventDocSubmittedToCarrier
	}
	if strings.Contains(name, "estimate") {
		if strings.Contains(name, "rev") || strings.Contains(name, "supp") {
			return types.EventEstimateRevised
		}
		return types.EventEstimateUploaded
	}
	return types.EventAttachmentAdded
}

func withActor(actor string) string {
	if actor == "" {
		return ""
	}
	return " by " + actor
}

// truncate shortens s to at most max runes, never splitting a multibyte
// character.
func truncate(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
