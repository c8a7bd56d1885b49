package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/clearclaims/claimtrail/internal/types"
)

// --- Claim events ---

// UpsertEvent inserts a timeline event; a duplicate (claim, dedupe key) is
// a no-op returning the existing event. Events are immutable once written.
func (d *DB) UpsertEvent(ev *types.ClaimEvent) (*types.ClaimEvent, bool, error) {
	res, err := d.conn.Exec(`
		INSERT INTO claim_events
			(id, claim_id, type, occurred_at, ingested_at, source_system, source_id,
			 thread_id, parties, tags, score, summary, type_priority, dedupe_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, dedupe_key) DO NOTHING`,
		ev.ID, ev.ClaimID, string(ev.Type), fmtTime(ev.OccurredAt), fmtTime(ev.IngestedAt),
		ev.SourceSystem, ev.SourceID, nullStr(ev.ThreadID), jsonCol(ev.Parties),
		jsonCol(ev.Tags), ev.Score, ev.Summary, ev.TypePriority, ev.DedupeKey,
	)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := d.FindEventByDedupeKey(ev.ClaimID, ev.DedupeKey)
		return existing, false, err
	}
	return ev, true, nil
}

// FindEventByDedupeKey returns the event with the given dedupe key, or nil.
func (d *DB) FindEventByDedupeKey(claimID, dedupeKey string) (*types.ClaimEvent, error) {
	row := d.conn.QueryRow(
		eventSelect+" WHERE claim_id = ? AND dedupe_key = ?", claimID, dedupeKey)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ev, err
}

// EventFilter narrows a timeline listing.
type EventFilter struct {
	Type  types.EventType
	From  time.Time
	To    time.Time
	Query string
	Limit int
}

// ListEvents returns a claim's events in the stable timeline order:
// occurred_at, then type priority, then source id. The three-part key
// makes the ordering reproducible when timestamps collide.
func (d *DB) ListEvents(claimID string, f EventFilter) ([]*types.ClaimEvent, error) {
	query := eventSelect + " WHERE claim_id = ?"
	args := []any{claimID}

	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		query += " AND occurred_at < ?"
		args = append(args, fmtTime(f.To))
	}
	if f.Query != "" {
		query += " AND (lower(summary) LIKE ? OR lower(type) LIKE ?)"
		needle := "%" + strings.ToLower(f.Query) + "%"
		args = append(args, needle, needle)
	}

	query += " ORDER BY occurred_at ASC, type_priority ASC, source_id ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ClaimEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

const eventSelect = `
	SELECT id, claim_id, type, occurred_at, ingested_at, source_system, source_id,
	       thread_id, parties, tags, score, summary, type_priority, dedupe_key
	FROM claim_events`

func scanEvent(row rowScanner) (*types.ClaimEvent, error) {
	ev := &types.ClaimEvent{}
	var evType string
	var threadID, parties, tags sql.NullString
	var occurredAt, ingestedAt string
	if err := row.Scan(
		&ev.ID, &ev.ClaimID, &evType, &occurredAt, &ingestedAt, &ev.SourceSystem,
		&ev.SourceID, &threadID, &parties, &tags, &ev.Score, &ev.Summary,
		&ev.TypePriority, &ev.DedupeKey,
	); err != nil {
		return nil, err
	}
	ev.Type = types.EventType(evType)
	ev.ThreadID = threadID.String
	scanJSON(parties, &ev.Parties)
	scanJSON(tags, &ev.Tags)
	ev.OccurredAt = parseTime(occurredAt)
	ev.IngestedAt = parseTime(ingestedAt)
	return ev, nil
}

// --- Evidence links ---

// UpsertLink records a typed event-evidence relationship, deduplicated on
// the full relation tuple.
func (d *DB) UpsertLink(link *types.EvidenceLink) (bool, error) {
	res, err := d.conn.Exec(`
		INSERT INTO evidence_links
			(id, claim_id, event_id, evidence_id, link_type,
			 ref_message_id, ref_storage_uri, ref_checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id, event_id, evidence_id, link_type) DO NOTHING`,
		link.ID, link.ClaimID, link.EventID, link.EvidenceID, link.LinkType,
		nullStr(link.RefMessageID), nullStr(link.RefStorageURI),
		nullStr(link.RefChecksum), fmtTime(link.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// ListLinksForEvent returns all links attached to one event.
func (d *DB) ListLinksForEvent(eventID string) ([]*types.EvidenceLink, error) {
	rows, err := d.conn.Query(`
		SELECT id, claim_id, event_id, evidence_id, link_type,
		       ref_message_id, ref_storage_uri, ref_checksum, created_at
		FROM evidence_links WHERE event_id = ? ORDER BY created_at ASC, id ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.EvidenceLink
	for rows.Next() {
		link := &types.EvidenceLink{}
		var msgID, uri, checksum sql.NullString
		var createdAt string
		if err := rows.Scan(
			&link.ID, &link.ClaimID, &link.EventID, &link.EvidenceID, &link.LinkType,
			&msgID, &uri, &checksum, &createdAt,
		); err != nil {
			return nil, err
		}
		link.RefMessageID = msgID.String
		link.RefStorageURI = uri.String
		link.RefChecksum = checksum.String
		link.CreatedAt = parseTime(createdAt)
		out = append(out, link)
	}
	return out, rows.Err()
}

// --- Reports ---

// InsertReport stores a new report job record.
func (d *DB) InsertReport(r *types.Report) error {
	_, err := d.conn.Exec(`
		INSERT INTO reports (id, claim_id, status, artifact_id, storage_uri, error, created_by, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ClaimID, r.Status, nullStr(r.ArtifactID), nullStr(r.StorageURI),
		nullStr(r.Error), nullStr(r.CreatedBy), fmtTime(r.CreatedAt), fmtTimePtr(r.FinishedAt),
	)
	return err
}

// UpdateReport persists a report job's terminal state.
func (d *DB) UpdateReport(r *types.Report) error {
	_, err := d.conn.Exec(`
		UPDATE reports SET status = ?, artifact_id = ?, storage_uri = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		r.Status, nullStr(r.ArtifactID), nullStr(r.StorageURI), nullStr(r.Error),
		fmtTimePtr(r.FinishedAt), r.ID,
	)
	return err
}

// ListReports returns report jobs for a claim, newest first.
func (d *DB) ListReports(claimID string) ([]*types.Report, error) {
	rows, err := d.conn.Query(`
		SELECT id, claim_id, status, artifact_id, storage_uri, error, created_by, created_at, finished_at
		FROM reports WHERE claim_id = ? ORDER BY created_at DESC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Report
	for rows.Next() {
		r := &types.Report{}
		var artifactID, uri, errStr, createdBy, finishedAt sql.NullString
		var createdAt string
		if err := rows.Scan(
			&r.ID, &r.ClaimID, &r.Status, &artifactID, &uri, &errStr,
			&createdBy, &createdAt, &finishedAt,
		); err != nil {
			return nil, err
		}
		r.ArtifactID = artifactID.String
		r.StorageURI = uri.String
		r.Error = errStr.String
		r.CreatedBy = createdBy.String
		r.CreatedAt = parseTime(createdAt)
		r.FinishedAt = parseTimePtr(finishedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
