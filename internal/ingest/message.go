package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/clearclaims/claimtrail/internal/canon"
	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/extract"
	"github.com/clearclaims/claimtrail/internal/gmail"
	"github.com/clearclaims/claimtrail/internal/scoring"
	"github.com/clearclaims/claimtrail/internal/types"
)

// Normalize reduces a raw provider message to the fields the scoring and
// storage layers consume. The provider's internal timestamp wins; the Date
// header is the fallback.
func Normalize(raw *gmail.RawMessage) *types.NormalizedMessage {
	plain, html, atts := gmail.WalkParts(raw.Payload)

	m := &types.NormalizedMessage{
		ID:        raw.ID,
		ThreadID:  raw.ThreadID,
		MessageID: raw.Header("Message-ID"),
		Subject:   raw.Header("Subject"),
		From:      raw.Header("From"),
		To:        raw.Header("To"),
		Cc:        raw.Header("Cc"),
		Snippet:   raw.Snippet,
		BodyText:  gmail.DecodeText(plain),
		BodyHTML:  gmail.DecodeText(html),
		Labels:    raw.Labels,
	}
	if raw.Payload != nil {
		m.Headers = raw.Payload.Headers
	}
	for _, att := range atts {
		m.Attachments = append(m.Attachments, types.AttachmentMeta{
			Filename:     att.Filename,
			MimeType:     att.MimeType,
			Size:         att.BodySize,
			AttachmentID: att.AttachmentID,
		})
	}

	if raw.InternalDate > 0 {
		m.InternalAt = canon.FromEpoch(raw.InternalDate)
	} else if at, err := canon.ToUTC(raw.Header("Date")); err == nil {
		m.InternalAt = at
	}
	return m
}

// processMessage runs the full per-message pipeline: fetch, normalize,
// score, store, branch, and handle attachments. Irrelevant messages leave
// no stored trace.
func (s *Service) processMessage(ctx context.Context, claim *types.Claim, prof types.IdentityProfile, run *types.IngestionRun, id string) error {
	raw, err := s.mail.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	run.Counters.Fetched++

	norm := Normalize(raw)
	res := scoring.Score(prof, norm)

	if res.Score < s.cfg.ScoreMinReview {
		run.Counters.Rejected++
		s.step(run, "rejected %s (score %d)", id, res.Score)
		return nil
	}

	status := types.ReviewPending
	if res.Score >= s.cfg.ScoreAutoAccept {
		status = types.ReviewApproved
	}

	item, created, err := s.storeEmail(ctx, claim, run, norm, res, status)
	if err != nil {
		return err
	}
	if created {
		run.Counters.Ingested++
		s.step(run, "stored email %s as %s (score %d)", id, item.ReviewStatus, res.Score)
	} else {
		run.Counters.Deduped++
	}

	switch item.ReviewStatus {
	case types.ReviewApproved:
		if _, err := s.promote(ctx, item); err != nil {
			return fmt.Errorf("promote email: %w", err)
		}
	case types.ReviewPending:
		if created {
			if err := s.enqueue(run, item, res.Reasons); err != nil {
				return err
			}
		}
	}

	// The stored record's status governs attachments: a message seen
	// before inherits its prior disposition.
	for _, att := range norm.Attachments {
		err := s.processAttachment(ctx, claim, run, norm, att, item, res.Reasons)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return err
		}
		run.Counters.Errors++
		run.Errors = append(run.Errors, types.RunError{
			SourceID: id + "/" + att.Filename,
			Stage:    "attachment",
			Message:  err.Error(),
			At:       s.now().UTC(),
		})
	}
	return nil
}

// storeEmail persists the normalized message to object storage and the
// evidence table. The identity key covers the provider message id, the
// content checksum, the internal id, and the thread id; a duplicate returns
// the existing record untouched.
func (s *Service) storeEmail(ctx context.Context, claim *types.Claim, run *types.IngestionRun, norm *types.NormalizedMessage, res scoring.Result, status string) (*types.EvidenceItem, bool, error) {
	stable, err := canon.StableJSON(norm)
	if err != nil {
		return nil, false, fmt.Errorf("serialize message: %w", err)
	}
	checksum := canon.Checksum(stable)
	dedupeKey := canon.DedupeKey(norm.MessageID, checksum, norm.ID, norm.ThreadID)

	if exists, err := s.store.EvidenceExists(claim.ID, types.KindEmail, dedupeKey); err != nil {
		return nil, false, err
	} else if exists {
		existing, err := s.store.FindEvidenceByDedupeKey(claim.ID, types.KindEmail, dedupeKey)
		return existing, false, err
	}

	key := s.objects.Key(claim.ID, "messages", checksum+".json")
	uri, err := s.objects.PutText(ctx, key, string(stable), "application/json")
	if err != nil {
		return nil, false, fmt.Errorf("store message body: %w", err)
	}

	item := &types.EvidenceItem{
		ID:           db.NewID(),
		ClaimID:      claim.ID,
		RunID:        run.ID,
		Kind:         types.KindEmail,
		SourceSystem: "gmail",
		SourceID:     norm.ID,
		ThreadID:     norm.ThreadID,
		MessageID:    norm.MessageID,
		MimeType:     "message/rfc822",
		Size:         int64(len(stable)),
		Checksum:     checksum,
		StorageURI:   uri,
		Metadata: map[string]string{
			"subject": norm.Subject,
			"from":    norm.From,
			"to":      norm.To,
			"cc":      norm.Cc,
			"labels":  strings.Join(norm.Labels, ","),
			"reasons": strings.Join(res.Reasons, "; "),
		},
		OccurredAt:   norm.InternalAt,
		IngestedAt:   s.now().UTC(),
		Score:        res.Score,
		DedupeKey:    dedupeKey,
		ReviewStatus: status,
	}
	return s.store.UpsertEvidence(item)
}

// processAttachment downloads, stores, and classifies one attachment.
// Existence is checked before any download so re-ingestion performs no new
// I/O for known attachments. Review status is inherited from the parent
// email's stored record.
func (s *Service) processAttachment(ctx context.Context, claim *types.Claim, run *types.IngestionRun, norm *types.NormalizedMessage, att types.AttachmentMeta, parent *types.EvidenceItem, reasons []string) error {
	var data []byte
	var err error

	// Size is known up front; a cheap pre-check on (filename, size, parent)
	// is impossible because the checksum is part of the identity, so the
	// bytes must be fetched first.
	if att.AttachmentID != "" {
		data, err = s.mail.Attachment(ctx, norm.ID, att.AttachmentID)
	} else {
		err = fmt.Errorf("attachment %q has no attachment id", att.Filename)
	}
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	checksum := canon.Checksum(data)
	dedupeKey := canon.DedupeKey(checksum, att.Filename, strconv.Itoa(len(data)), norm.ID)

	exists, err := s.store.EvidenceExists(claim.ID, types.KindAttachment, dedupeKey)
	if err != nil {
		return err
	}
	if exists {
		run.Counters.Deduped++
		return nil
	}

	key := s.objects.Key(claim.ID, "attachments", checksum[:16], att.Filename)
	uri, err := s.objects.PutBytes(ctx, key, data, att.MimeType, map[string]string{
		"claim-id":  claim.ID,
		"source-id": norm.ID,
	})
	if err != nil {
		return fmt.Errorf("store attachment: %w", err)
	}

	// Extraction is best effort: failures are recorded and the item keeps
	// an empty text URI.
	var textURI string
	text, matched, err := extract.Text(att.Filename, att.MimeType, data)
	if err != nil {
		run.Counters.Errors++
		run.Errors = append(run.Errors, types.RunError{
			SourceID: norm.ID + "/" + att.Filename,
			Stage:    "extract",
			Message:  err.Error(),
			At:       s.now().UTC(),
		})
	} else if matched && text != "" {
		textURI, err = s.objects.PutText(ctx, key+".txt", text, "text/plain; charset=utf-8")
		if err != nil {
			return fmt.Errorf("store extracted text: %w", err)
		}
	}

	item := &types.EvidenceItem{
		ID:           db.NewID(),
		ClaimID:      claim.ID,
		RunID:        run.ID,
		Kind:         types.KindAttachment,
		SourceSystem: "gmail",
		SourceID:     norm.ID + "/" + att.Filename,
		ThreadID:     norm.ThreadID,
		MessageID:    norm.MessageID,
		Filename:     att.Filename,
		MimeType:     att.MimeType,
		Size:         int64(len(data)),
		Checksum:     checksum,
		StorageURI:   uri,
		TextURI:      textURI,
		Metadata: map[string]string{
			"parent_message_id": norm.ID,
			"subject":           norm.Subject,
			"from":              norm.From,
		},
		OccurredAt:   norm.InternalAt,
		IngestedAt:   s.now().UTC(),
		Score:        parent.Score,
		DedupeKey:    dedupeKey,
		ReviewStatus: parent.ReviewStatus,
	}
	stored, created, err := s.store.UpsertEvidence(item)
	if err != nil {
		return err
	}
	if !created {
		run.Counters.Deduped++
		return nil
	}
	run.Counters.Ingested++
	s.step(run, "stored attachment %s from %s", att.Filename, norm.ID)

	switch stored.ReviewStatus {
	case types.ReviewApproved:
		if _, err := s.promote(ctx, stored); err != nil {
			return fmt.Errorf("promote attachment: %w", err)
		}
	case types.ReviewPending:
		if err := s.enqueue(run, stored, reasons); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueue(run *types.IngestionRun, item *types.EvidenceItem, reasons []string) error {
	_, created, err := s.store.EnqueueReview(&types.ReviewQueueItem{
		ID:         db.NewID(),
		ClaimID:    item.ClaimID,
		EvidenceID: item.ID,
		RunID:      run.ID,
		Score:      item.Score,
		Reasons:    reasons,
		Status:     types.ReviewPending,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("enqueue review: %w", err)
	}
	if created {
		run.Counters.Queued++
	}
	return nil
}

// promote turns an accepted evidence item into a timeline event with a
// primary_source link, plus an attachment_of link to the parent email's
// event when one exists. The event key derives from stable evidence
// identity, so promoting the same item from any path converges on one
// event.
func (s *Service) promote(ctx context.Context, ev *types.EvidenceItem) (*types.ClaimEvent, error) {
	_ = ctx

	var evType types.EventType
	var eventKey, summary string

	switch ev.Kind {
	case types.KindEmail:
		evType = types.EventEmailReceived
		if labelsContain(ev.Metadata["labels"], "SENT") {
			evType = types.EventEmailSent
		}
		eventKey = canon.DedupeKey(ev.ClaimID, string(evType), ev.SourceID)
		summary = emailSummary(evType, ev.Metadata["subject"], ev.Metadata["from"])
	case types.KindAttachment:
		evType = ClassifyAttachment(ev.Filename)
		eventKey = canon.DedupeKey(ev.ClaimID, string(evType), ev.DedupeKey)
		summary = attachmentSummary(evType, ev.Filename)
	default:
		return nil, fmt.Errorf("unknown evidence kind %q", ev.Kind)
	}

	var parties []string
	parties = append(parties, canon.ParseAddressList(ev.Metadata["from"])...)
	parties = append(parties, canon.ParseAddressList(ev.Metadata["to"])...)
	parties = append(parties, canon.ParseAddressList(ev.Metadata["cc"])...)

	now := s.now().UTC()
	event, _, err := s.store.UpsertEvent(&types.ClaimEvent{
		ID:           db.NewID(),
		ClaimID:      ev.ClaimID,
		Type:         evType,
		OccurredAt:   ev.OccurredAt,
		IngestedAt:   now,
		SourceSystem: ev.SourceSystem,
		SourceID:     ev.SourceID,
		ThreadID:     ev.ThreadID,
		Parties:      canon.CleanTokens(parties),
		Score:        ev.Score,
		Summary:      summary,
		TypePriority: evType.Priority(),
		DedupeKey:    eventKey,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.UpsertLink(&types.EvidenceLink{
		ID:            db.NewID(),
		ClaimID:       ev.ClaimID,
		EventID:       event.ID,
		EvidenceID:    ev.ID,
		LinkType:      types.LinkPrimarySource,
		RefMessageID:  ev.MessageID,
		RefStorageURI: ev.StorageURI,
		RefChecksum:   ev.Checksum,
		CreatedAt:     now,
	}); err != nil {
		return nil, err
	}

	if ev.Kind == types.KindAttachment {
		if parent, err := s.findParentEmailEvent(ev); err != nil {
			return nil, err
		} else if parent != nil {
			if _, err := s.store.UpsertLink(&types.EvidenceLink{
				ID:            db.NewID(),
				ClaimID:       ev.ClaimID,
				EventID:       parent.ID,
				EvidenceID:    ev.ID,
				LinkType:      types.LinkAttachmentOf,
				RefMessageID:  ev.MessageID,
				RefStorageURI: ev.StorageURI,
				RefChecksum:   ev.Checksum,
				CreatedAt:     now,
			}); err != nil {
				return nil, err
			}
		}
	}
	return event, nil
}

// findParentEmailEvent locates the timeline event for an attachment's
// parent email, whichever direction the mail flowed.
func (s *Service) findParentEmailEvent(ev *types.EvidenceItem) (*types.ClaimEvent, error) {
	parentID := ev.Metadata["parent_message_id"]
	if parentID == "" {
		return nil, nil
	}
	for _, t := range []types.EventType{types.EventEmailReceived, types.EventEmailSent} {
		key := canon.DedupeKey(ev.ClaimID, string(t), parentID)
		event, err := s.store.FindEventByDedupeKey(ev.ClaimID, key)
		if err != nil {
			return nil, err
		}
		if event != nil {
			return event, nil
		}
	}
	return nil, nil
}

// ClassifyAttachment maps an attachment filename to a timeline event type.
// Estimate revisions and supplements rank as ESTIMATE_REVISED; other
// estimates as ESTIMATE_UPLOADED; everything else is a plain attachment.
func ClassifyAttachment(filename string) types.EventType {
	name := strings.ToLower(filename)
	if strings.Contains(name, "estimate") {
		if strings.Contains(name, "rev") || strings.Contains(name, "supp") {
			return types.EventEstimateRevised
		}
		return types.EventEstimateUploaded
	}
	return types.EventAttachmentAdded
}

func labelsContain(joined, label string) bool {
	for _, l := range strings.Split(joined, ",") {
		if l == label {
			return true
		}
	}
	return false
}

func emailSummary(t types.EventType, subject, from string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "(no subject)"
	}
	if t == types.EventEmailSent {
		return "Email sent: " + subject
	}
	if from != "" {
		return fmt.Sprintf("Email from %s: %s", from, subject)
	}
	return "Email received: " + subject
}

func attachmentSummary(t types.EventType, filename string) string {
	switch t {
	case types.EventEstimateUploaded:
		return "Estimate uploaded: " + filename
	case types.EventEstimateRevised:
		return "Estimate revised: " + filename
	default:
		return "Attachment added: " + filename
	}
}
