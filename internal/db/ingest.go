package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/clearclaims/claimtrail/internal/types"
)

// --- Ingestion runs ---

// CreateRun stores a new ingestion run document.
func (d *DB) CreateRun(r *types.IngestionRun) error {
	_, err := d.conn.Exec(`
		INSERT INTO ingestion_runs
			(id, claim_id, mode, status, window_start, window_end, idempotency_key,
			 counters, errors, steps, triggered_by, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ClaimID, r.Mode, r.Status, fmtTime(r.WindowStart), fmtTime(r.WindowEnd),
		r.IdempotencyKey, jsonCol(r.Counters), jsonCol(r.Errors), jsonCol(r.Steps),
		nullStr(r.TriggeredBy), fmtTime(r.StartedAt), fmtTimePtr(r.FinishedAt), r.DurationMS,
	)
	return err
}

// SaveRunState persists a run's mutable fields (status, counters, errors,
// step log, finish time). Called throughout execution and from the final
// guaranteed flush.
func (d *DB) SaveRunState(r *types.IngestionRun) error {
	_, err := d.conn.Exec(`
		UPDATE ingestion_runs SET
			status = ?, counters = ?, errors = ?, steps = ?, finished_at = ?, duration_ms = ?
		WHERE id = ?`,
		r.Status, jsonCol(r.Counters), jsonCol(r.Errors), jsonCol(r.Steps),
		fmtTimePtr(r.FinishedAt), r.DurationMS, r.ID,
	)
	return err
}

// GetRun returns a run by id.
func (d *DB) GetRun(id string) (*types.IngestionRun, error) {
	row := d.conn.QueryRow(runSelect+" WHERE id = ?", id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return r, err
}

// FindActiveRunByKey returns an existing run with the same idempotency key
// in a non-terminal-failure state (running, completed, or partial), or nil.
// This is the short-circuit that makes re-invoking ingestion safe.
func (d *DB) FindActiveRunByKey(claimID, key string) (*types.IngestionRun, error) {
	row := d.conn.QueryRow(runSelect+`
		WHERE claim_id = ? AND idempotency_key = ?
		  AND status IN ('running', 'completed', 'partial')
		ORDER BY started_at DESC LIMIT 1`, claimID, key)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListRuns returns runs for a claim, newest first.
func (d *DB) ListRuns(claimID string, limit int) ([]*types.IngestionRun, error) {
	query := runSelect + " WHERE claim_id = ? ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := d.conn.Query(query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.IngestionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const runSelect = `
	SELECT id, claim_id, mode, status, window_start, window_end, idempotency_key,
	       counters, errors, steps, triggered_by, started_at, finished_at, duration_ms
	FROM ingestion_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*types.IngestionRun, error) {
	r := &types.IngestionRun{}
	var counters, errs, steps, triggeredBy, finishedAt sql.NullString
	var windowStart, windowEnd, startedAt string
	var durationMS sql.NullInt64
	if err := row.Scan(
		&r.ID, &r.ClaimID, &r.Mode, &r.Status, &windowStart, &windowEnd, &r.IdempotencyKey,
		&counters, &errs, &steps, &triggeredBy, &startedAt, &finishedAt, &durationMS,
	); err != nil {
		return nil, err
	}
	scanJSON(counters, &r.Counters)
	scanJSON(errs, &r.Errors)
	scanJSON(steps, &r.Steps)
	r.TriggeredBy = triggeredBy.String
	r.WindowStart = parseTime(windowStart)
	r.WindowEnd = parseTime(windowEnd)
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTimePtr(finishedAt)
	r.DurationMS = durationMS.Int64
	return r, nil
}

// --- Evidence items ---

// UpsertEvidence inserts an evidence item; a duplicate (claim, kind,
// dedupe key) is a no-op returning the existing record.
func (d *DB) UpsertEvidence(item *types.EvidenceItem) (*types.EvidenceItem, bool, error) {
	res, err := d.conn.Exec(`
		INSERT INTO evidence_items
			(id, claim_id, run_id, kind, source_system, source_id, thread_id, message_id,
			 filename, mime_type, size, checksum, storage_uri, text_uri, metadata,
			 occurred_at, ingested_at, score, dedupe_key, review_status, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, kind, dedupe_key) DO NOTHING`,
		item.ID, item.ClaimID, nullStr(item.RunID), item.Kind, item.SourceSystem,
		item.SourceID, nullStr(item.ThreadID), nullStr(item.MessageID),
		nullStr(item.Filename), nullStr(item.MimeType), item.Size, item.Checksum,
		item.StorageURI, nullStr(item.TextURI), jsonCol(item.Metadata),
		fmtTime(item.OccurredAt), fmtTime(item.IngestedAt), item.Score,
		item.DedupeKey, item.ReviewStatus, jsonCol(item.Tags),
	)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := d.FindEvidenceByDedupeKey(item.ClaimID, item.Kind, item.DedupeKey)
		return existing, false, err
	}
	return item, true, nil
}

// EvidenceExists checks whether evidence with the dedupe key is already
// stored, without fetching the row.
func (d *DB) EvidenceExists(claimID, kind, dedupeKey string) (bool, error) {
	var n int
	err := d.conn.QueryRow(
		"SELECT 1 FROM evidence_items WHERE claim_id = ? AND kind = ? AND dedupe_key = ?",
		claimID, kind, dedupeKey,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetEvidence returns an evidence item by id.
func (d *DB) GetEvidence(id string) (*types.EvidenceItem, error) {
	row := d.conn.QueryRow(evidenceSelect+" WHERE id = ?", id)
	item, err := scanEvidence(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evidence %q: %w", id, ErrNotFound)
	}
	return item, err
}

// FindEvidenceByDedupeKey returns the evidence item with the given
// identity, or ErrNotFound.
func (d *DB) FindEvidenceByDedupeKey(claimID, kind, dedupeKey string) (*types.EvidenceItem, error) {
	row := d.conn.QueryRow(
		evidenceSelect+" WHERE claim_id = ? AND kind = ? AND dedupe_key = ?",
		claimID, kind, dedupeKey,
	)
	item, err := scanEvidence(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("evidence (%s, %s): %w", claimID, dedupeKey, ErrNotFound)
	}
	return item, err
}

// UpdateEvidenceStatus sets the review status of an evidence item. This is
// the only mutation the pipeline performs after creation, besides tag merges.
func (d *DB) UpdateEvidenceStatus(id, status string) error {
	res, err := d.conn.Exec(
		"UPDATE evidence_items SET review_status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("evidence %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListEvidence returns evidence for a claim, optionally filtered by review
// status, newest first.
func (d *DB) ListEvidence(claimID, status string) ([]*types.EvidenceItem, error) {
	query := evidenceSelect + " WHERE claim_id = ?"
	args := []any{claimID}
	if status != "" {
		query += " AND review_status = ?"
		args = append(args, status)
	}
	query += " ORDER BY ingested_at DESC, id DESC"

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.EvidenceItem
	for rows.Next() {
		item, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const evidenceSelect = `
	SELECT id, claim_id, run_id, kind, source_system, source_id, thread_id, message_id,
	       filename, mime_type, size, checksum, storage_uri, text_uri, metadata,
	       occurred_at, ingested_at, score, dedupe_key, review_status, tags
	FROM evidence_items`

func scanEvidence(row rowScanner) (*types.EvidenceItem, error) {
	item := &types.EvidenceItem{}
	var runID, threadID, messageID, filename, mimeType, textURI, metadata, tags sql.NullString
	var occurredAt, ingestedAt string
	if err := row.Scan(
		&item.ID, &item.ClaimID, &runID, &item.Kind, &item.SourceSystem, &item.SourceID,
		&threadID, &messageID, &filename, &mimeType, &item.Size, &item.Checksum,
		&item.StorageURI, &textURI, &metadata, &occurredAt, &ingestedAt,
		&item.Score, &item.DedupeKey, &item.ReviewStatus, &tags,
	); err != nil {
		return nil, err
	}
	item.RunID = runID.String
	item.ThreadID = threadID.String
	item.MessageID = messageID.String
	item.Filename = filename.String
	item.MimeType = mimeType.String
	item.TextURI = textURI.String
	scanJSON(metadata, &item.Metadata)
	scanJSON(tags, &item.Tags)
	item.OccurredAt = parseTime(occurredAt)
	item.IngestedAt = parseTime(ingestedAt)
	return item, nil
}

// --- Review queue ---

// EnqueueReview adds a queue item for an evidence item; re-encountering
// the same evidence returns the existing item instead of a second row.
func (d *DB) EnqueueReview(item *types.ReviewQueueItem) (*types.ReviewQueueItem, bool, error) {
	res, err := d.conn.Exec(`
		INSERT INTO review_queue
			(id, claim_id, evidence_id, run_id, score, reasons, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, evidence_id) DO NOTHING`,
		item.ID, item.ClaimID, item.EvidenceID, nullStr(item.RunID),
		item.Score, jsonCol(item.Reasons), item.Status, fmtTime(item.CreatedAt),
	)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		row := d.conn.QueryRow(
			queueSelect+" WHERE claim_id = ? AND evidence_id = ?",
			item.ClaimID, item.EvidenceID,
		)
		existing, err := scanQueueItem(row)
		return existing, false, err
	}
	return item, true, nil
}

// GetQueueItem returns a queue item scoped to a claim.
func (d *DB) GetQueueItem(claimID, id string) (*types.ReviewQueueItem, error) {
	row := d.conn.QueryRow(queueSelect+" WHERE claim_id = ? AND id = ?", claimID, id)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("queue item %q: %w", id, ErrNotFound)
	}
	return item, err
}

// DecideQueueItem transitions a pending queue item to a terminal status.
// Returns false when the item was not pending (the caller treats that as a
// no-op).
func (d *DB) DecideQueueItem(id, status, actor, note string, at time.Time) (bool, error) {
	res, err := d.conn.Exec(`
		UPDATE review_queue
		SET status = ?, decided_by = ?, decided_at = ?, note = ?
		WHERE id = ? AND status = 'pending'`,
		status, nullStr(actor), fmtTime(at), nullStr(note), id,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListQueue returns queue items for a claim, optionally filtered by status.
func (d *DB) ListQueue(claimID, status string) ([]*types.ReviewQueueItem, error) {
	query := queueSelect + " WHERE claim_id = ?"
	args := []any{claimID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ReviewQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

const queueSelect = `
	SELECT id, claim_id, evidence_id, run_id, score, reasons, status,
	       decided_by, decided_at, note, created_at
	FROM review_queue`

func scanQueueItem(row rowScanner) (*types.ReviewQueueItem, error) {
	item := &types.ReviewQueueItem{}
	var runID, reasons, decidedBy, decidedAt, note sql.NullString
	var createdAt string
	if err := row.Scan(
		&item.ID, &item.ClaimID, &item.EvidenceID, &runID, &item.Score, &reasons,
		&item.Status, &decidedBy, &decidedAt, &note, &createdAt,
	); err != nil {
		return nil, err
	}
	item.RunID = runID.String
	scanJSON(reasons, &item.Reasons)
	item.DecidedBy = decidedBy.String
	item.DecidedAt = parseTimePtr(decidedAt)
	item.Note = note.String
	item.CreatedAt = parseTime(createdAt)
	return item, nil
}
