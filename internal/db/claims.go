package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/clearclaims/claimtrail/internal/types"
)

// --- Claim operations ---

// InsertClaim stores a new claim record.
func (d *DB) InsertClaim(c *types.Claim) error {
	_, err := d.conn.Exec(`
		INSERT INTO claims
			(id, claim_number, policy_number, policyholder_name, property_address,
			 carrier_name, adjuster_name, adjuster_email, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClaimNumber, nullStr(c.PolicyNumber), c.PolicyholderName, nullStr(c.PropertyAddress),
		nullStr(c.CarrierName), nullStr(c.AdjusterName), nullStr(c.AdjusterEmail),
		c.Status, fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt),
	)
	return err
}

// GetClaim returns a claim by id.
func (d *DB) GetClaim(id string) (*types.Claim, error) {
	c := &types.Claim{}
	var policy, address, carrier, adjName, adjEmail sql.NullString
	var createdAt, updatedAt string
	err := d.conn.QueryRow(`
		SELECT id, claim_number, policy_number, policyholder_name, property_address,
		       carrier_name, adjuster_name, adjuster_email, status, created_at, updated_at
		FROM claims WHERE id = ?`, id).Scan(
		&c.ID, &c.ClaimNumber, &policy, &c.PolicyholderName, &address,
		&carrier, &adjName, &adjEmail, &c.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("claim %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	c.PolicyNumber = policy.String
	c.PropertyAddress = address.String
	c.CarrierName = carrier.String
	c.AdjusterName = adjName.String
	c.AdjusterEmail = adjEmail.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

// UpdateClaimStatus transitions a claim's status.
func (d *DB) UpdateClaimStatus(id, status string, at time.Time) error {
	res, err := d.conn.Exec(
		"UPDATE claims SET status = ?, updated_at = ? WHERE id = ?",
		status, fmtTime(at), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("claim %q: %w", id, ErrNotFound)
	}
	return nil
}

// --- Claim sub-records (projector inputs) ---

// InsertNote stores a claim note.
func (d *DB) InsertNote(n *types.ClaimNote) error {
	_, err := d.conn.Exec(`
		INSERT INTO claim_notes (id, claim_id, body, author, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.ClaimID, n.Body, nullStr(n.Author), fmtTime(n.CreatedAt),
	)
	return err
}

// ListNotes returns all notes for a claim, oldest first.
func (d *DB) ListNotes(claimID string) ([]*types.ClaimNote, error) {
	rows, err := d.conn.Query(`
		SELECT id, claim_id, body, author, created_at
		FROM claim_notes WHERE claim_id = ? ORDER BY created_at ASC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*types.ClaimNote
	for rows.Next() {
		n := &types.ClaimNote{}
		var author sql.NullString
		var createdAt string
		if err := rows.Scan(&n.ID, &n.ClaimID, &n.Body, &author, &createdAt); err != nil {
			return nil, err
		}
		n.Author = author.String
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// InsertDocument stores a claim document record.
func (d *DB) InsertDocument(doc *types.ClaimDocument) error {
	_, err := d.conn.Exec(`
		INSERT INTO claim_documents (id, claim_id, name, doc_type, storage_uri, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.ClaimID, doc.Name, nullStr(doc.DocType),
		nullStr(doc.StorageURI), nullStr(doc.UploadedBy), fmtTime(doc.CreatedAt),
	)
	return err
}

// ListDocuments returns all documents for a claim, oldest first.
func (d *DB) ListDocuments(claimID string) ([]*types.ClaimDocument, error) {
	rows, err := d.conn.Query(`
		SELECT id, claim_id, name, doc_type, storage_uri, uploaded_by, created_at
		FROM claim_documents WHERE claim_id = ? ORDER BY created_at ASC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*types.ClaimDocument
	for rows.Next() {
		doc := &types.ClaimDocument{}
		var docType, uri, by sql.NullString
		var createdAt string
		if err := rows.Scan(&doc.ID, &doc.ClaimID, &doc.Name, &docType, &uri, &by, &createdAt); err != nil {
			return nil, err
		}
		doc.DocType = docType.String
		doc.StorageURI = uri.String
		doc.UploadedBy = by.String
		doc.CreatedAt = parseTime(createdAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// InsertInspection stores an inspection session.
func (d *DB) InsertInspection(i *types.ClaimInspection) error {
	_, err := d.conn.Exec(`
		INSERT INTO claim_inspections (id, claim_id, inspector, scheduled_for, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.ClaimID, nullStr(i.Inspector), fmtTime(i.ScheduledFor),
		fmtTimePtr(i.CompletedAt), fmtTime(i.CreatedAt),
	)
	return err
}

// CompleteInspection marks an inspection as completed.
func (d *DB) CompleteInspection(id string, at time.Time) error {
	res, err := d.conn.Exec(
		"UPDATE claim_inspections SET completed_at = ? WHERE id = ?",
		fmtTime(at), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("inspection %q: %w", id, ErrNotFound)
	}
	return nil
}

// ListInspections returns all inspections for a claim, oldest first.
func (d *DB) ListInspections(claimID string) ([]*types.ClaimInspection, error) {
	rows, err := d.conn.Query(`
		SELECT id, claim_id, inspector, scheduled_for, completed_at, created_at
		FROM claim_inspections WHERE claim_id = ? ORDER BY scheduled_for ASC`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ClaimInspection
	for rows.Next() {
		i := &types.ClaimInspection{}
		var inspector, completedAt sql.NullString
		var scheduledFor, createdAt string
		if err := rows.Scan(&i.ID, &i.ClaimID, &inspector, &scheduledFor, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		i.Inspector = inspector.String
		i.ScheduledFor = parseTime(scheduledFor)
		i.CompletedAt = parseTimePtr(completedAt)
		i.CreatedAt = parseTime(createdAt)
		out = append(out, i)
	}
	return out, rows.Err()
}

// --- Identity profile overrides ---

// GetProfileOverride returns the stored manual profile for a claim, or nil
// when none exists.
func (d *DB) GetProfileOverride(claimID string) (*types.IdentityProfile, error) {
	p := &types.IdentityProfile{ClaimID: claimID}
	var names, addresses, claimNums, policyNums, carriers, adjusters, patterns, updatedBy sql.NullString
	var updatedAt string
	err := d.conn.QueryRow(`
		SELECT names, addresses, claim_numbers, policy_numbers, carriers,
		       adjuster_emails, subject_patterns, updated_at, updated_by
		FROM identity_profiles WHERE claim_id = ?`, claimID).Scan(
		&names, &addresses, &claimNums, &policyNums, &carriers,
		&adjusters, &patterns, &updatedAt, &updatedBy,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	scanJSON(names, &p.Names)
	scanJSON(addresses, &p.Addresses)
	scanJSON(claimNums, &p.ClaimNumbers)
	scanJSON(policyNums, &p.PolicyNumbers)
	scanJSON(carriers, &p.Carriers)
	scanJSON(adjusters, &p.AdjusterEmails)
	scanJSON(patterns, &p.SubjectPatterns)
	p.UpdatedAt = parseTime(updatedAt)
	p.UpdatedBy = updatedBy.String
	return p, nil
}

// UpsertProfileOverride creates or replaces the manual profile for a claim.
func (d *DB) UpsertProfileOverride(p *types.IdentityProfile) error {
	_, err := d.conn.Exec(`
		INSERT INTO identity_profiles
			(claim_id, names, addresses, claim_numbers, policy_numbers, carriers,
			 adjuster_emails, subject_patterns, updated_at, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			names = excluded.names,
			addresses = excluded.addresses,
			claim_numbers = excluded.claim_numbers,
			policy_numbers = excluded.policy_numbers,
			carriers = excluded.carriers,
			adjuster_emails = excluded.adjuster_emails,
			subject_patterns = excluded.subject_patterns,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		p.ClaimID, jsonCol(p.Names), jsonCol(p.Addresses), jsonCol(p.ClaimNumbers),
		jsonCol(p.PolicyNumbers), jsonCol(p.Carriers), jsonCol(p.AdjusterEmails),
		jsonCol(p.SubjectPatterns), fmtTime(p.UpdatedAt), nullStr(p.UpdatedBy),
	)
	return err
}
