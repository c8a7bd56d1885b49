// Package types defines the core data structures for claimtrail.
package types

import "time"

// Claim is the subset of a claim record the pipeline reads.
type Claim struct {
	ID               string    `json:"id"`
	ClaimNumber      string    `json:"claim_number"`
	PolicyNumber     string    `json:"policy_number,omitempty"`
	PolicyholderName string    `json:"policyholder_name"`
	PropertyAddress  string    `json:"property_address,omitempty"`
	CarrierName      string    `json:"carrier_name,omitempty"`
	AdjusterName     string    `json:"adjuster_name,omitempty"`
	AdjusterEmail    string    `json:"adjuster_email,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ClaimNote is a free-form note attached to a claim.
type ClaimNote struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claim_id"`
	Body      string    `json:"body"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClaimDocument is a document uploaded against a claim outside of mail
// ingestion (e.g., through the portal).
type ClaimDocument struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	Name       string    `json:"name"`
	DocType    string    `json:"doc_type,omitempty"`
	StorageURI string    `json:"storage_uri,omitempty"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClaimInspection is an inspection session on a claim.
type ClaimInspection struct {
	ID           string     `json:"id"`
	ClaimID      string     `json:"claim_id"`
	Inspector    string     `json:"inspector,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IdentityProfile is the per-claim set of matchable identifiers used to
// decide whether a message belongs to the claim. Resolved profiles are the
// union of claim-derived defaults and a stored manual override.
type IdentityProfile struct {
	ClaimID         string    `json:"claim_id"`
	Names           []string  `json:"names,omitempty"`
	Addresses       []string  `json:"addresses,omitempty"`
	ClaimNumbers    []string  `json:"claim_numbers,omitempty"`
	PolicyNumbers   []string  `json:"policy_numbers,omitempty"`
	Carriers        []string  `json:"carriers,omitempty"`
	AdjusterEmails  []string  `json:"adjuster_emails,omitempty"`
	SubjectPatterns []string  `json:"subject_patterns,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
}

// Run modes.
const (
	ModeManual    = "manual"
	ModeScheduled = "scheduled"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

// RunCounters tracks per-run processing counts.
type RunCounters struct {
	Fetched  int `json:"fetched"`
	Ingested int `json:"ingested"`
	Queued   int `json:"queued"`
	Deduped  int `json:"deduped"`
	Rejected int `json:"rejected"`
	Errors   int `json:"errors"`
}

// RunError records one per-item failure inside a run.
type RunError struct {
	SourceID string    `json:"source_id,omitempty"`
	Stage    string    `json:"stage"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// RunStep is one entry in a run's step log.
type RunStep struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// IngestionRun is one execution of "pull mail for claim X in a window".
type IngestionRun struct {
	ID             string      `json:"id"`
	ClaimID        string      `json:"claim_id"`
	Mode           string      `json:"mode"`
	Status         string      `json:"status"`
	WindowStart    time.Time   `json:"window_start"`
	WindowEnd      time.Time   `json:"window_end"`
	IdempotencyKey string      `json:"idempotency_key"`
	Counters       RunCounters `json:"counters"`
	Errors         []RunError  `json:"errors,omitempty"`
	Steps          []RunStep   `json:"steps,omitempty"`
	TriggeredBy    string      `json:"triggered_by,omitempty"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
	DurationMS     int64       `json:"duration_ms,omitempty"`
}

// Terminal reports whether the run has finished, in any state.
func (r *IngestionRun) Terminal() bool {
	return r.Status == RunCompleted || r.Status == RunPartial || r.Status == RunFailed
}

// Evidence kinds.
const (
	KindEmail      = "email"
	KindAttachment = "attachment"
)

// Review statuses.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// ValidReviewStatuses is the set of allowed review status values.
var ValidReviewStatuses = []string{ReviewPending, ReviewApproved, ReviewRejected}

// IsValidReviewStatus checks if a review status string is valid.
func IsValidReviewStatus(s string) bool {
	for _, v := range ValidReviewStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// EvidenceItem is one stored piece of evidence: an email or an attachment.
// Uniqueness is enforced on (claim id, kind, dedupe key).
type EvidenceItem struct {
	ID           string            `json:"id"`
	ClaimID      string            `json:"claim_id"`
	RunID        string            `json:"run_id,omitempty"`
	Kind         string            `json:"kind"`
	SourceSystem string            `json:"source_system"`
	SourceID     string            `json:"source_id"`
	ThreadID     string            `json:"thread_id,omitempty"`
	MessageID    string            `json:"message_id,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	Size         int64             `json:"size"`
	Checksum     string            `json:"checksum"`
	StorageURI   string            `json:"storage_uri"`
	TextURI      string            `json:"text_uri,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
	IngestedAt   time.Time         `json:"ingested_at"`
	Score        int               `json:"score"`
	DedupeKey    string            `json:"dedupe_key"`
	ReviewStatus string            `json:"review_status"`
	Tags         []string          `json:"tags,omitempty"`
}

// ReviewQueueItem is a pending human decision on one EvidenceItem.
type ReviewQueueItem struct {
	ID         string     `json:"id"`
	ClaimID    string     `json:"claim_id"`
	EvidenceID string     `json:"evidence_id"`
	RunID      string     `json:"run_id,omitempty"`
	Score      int        `json:"score"`
	Reasons    []string   `json:"reasons,omitempty"`
	Status     string     `json:"status"`
	DecidedBy  string     `json:"decided_by,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ClaimEvent is one entry in the unified claim timeline. Uniqueness is
// enforced on (claim id, dedupe key); events are never mutated once written.
type ClaimEvent struct {
	ID           string    `json:"id"`
	ClaimID      string    `json:"claim_id"`
	Type         EventType `json:"type"`
	OccurredAt   time.Time `json:"occurred_at"`
	IngestedAt   time.Time `json:"ingested_at"`
	SourceSystem string    `json:"source_system"`
	SourceID     string    `json:"source_id"`
	ThreadID     string    `json:"thread_id,omitempty"`
	Parties      []string  `json:"parties,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Score        int       `json:"score,omitempty"`
	Summary      string    `json:"summary"`
	TypePriority int       `json:"type_priority"`
	DedupeKey    string    `json:"dedupe_key"`
}

// Link types.
const (
	LinkPrimarySource = "primary_source"
	LinkAttachmentOf  = "attachment_of"
)

// EvidenceLink is a typed relationship between a ClaimEvent and an
// EvidenceItem, carrying a source reference for citation.
type EvidenceLink struct {
	ID            string    `json:"id"`
	ClaimID       string    `json:"claim_id"`
	EventID       string    `json:"event_id"`
	EvidenceID    string    `json:"evidence_id"`
	LinkType      string    `json:"link_type"`
	RefMessageID  string    `json:"ref_message_id,omitempty"`
	RefStorageURI string    `json:"ref_storage_uri,omitempty"`
	RefChecksum   string    `json:"ref_checksum,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Report statuses.
const (
	ReportGenerating = "generating"
	ReportReady      = "ready"
	ReportFailed     = "failed"
)

// Report records one timeline report generation job.
type Report struct {
	ID         string     `json:"id"`
	ClaimID    string     `json:"claim_id"`
	Status     string     `json:"status"`
	ArtifactID string     `json:"artifact_id,omitempty"`
	StorageURI string     `json:"storage_uri,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// AttachmentMeta describes one attachment on a normalized message.
type AttachmentMeta struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id,omitempty"`
}

// NormalizedMessage is a provider message reduced to the fields the
// scoring and storage layers consume.
type NormalizedMessage struct {
	ID          string            `json:"id"`
	ThreadID    string            `json:"thread_id"`
	MessageID   string            `json:"message_id,omitempty"`
	Subject     string            `json:"subject"`
	From        string            `json:"from"`
	To          string            `json:"to,omitempty"`
	Cc          string            `json:"cc,omitempty"`
	Snippet     string            `json:"snippet,omitempty"`
	BodyText    string            `json:"body_text,omitempty"`
	BodyHTML    string            `json:"body_html,omitempty"`
	Labels      []string          `json:"labels,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Attachments []AttachmentMeta  `json:"attachments,omitempty"`
	InternalAt  time.Time         `json:"internal_at"`
}

// Sent reports whether the provider marked this message as sent mail.
func (m *NormalizedMessage) Sent() bool {
	for _, l := range m.Labels {
		if l == "SENT" {
			return true
		}
	}
	return false
}
