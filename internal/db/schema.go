package db

// Schema is the DDL for the claimtrail database. UNIQUE constraints carry
// the idempotency invariants: evidence on (claim, kind, dedupe key),
// events on (claim, dedupe key), queue items on (claim, evidence), links
// on the full relation tuple.
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
    id                 TEXT PRIMARY KEY,
    claim_number       TEXT NOT NULL,
    policy_number      TEXT,
    policyholder_name  TEXT NOT NULL,
    property_address   TEXT,
    carrier_name       TEXT,
    adjuster_name      TEXT,
    adjuster_email     TEXT,
    status             TEXT NOT NULL DEFAULT 'open',
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_notes (
    id          TEXT PRIMARY KEY,
    claim_id    TEXT NOT NULL REFERENCES claims(id),
    body        TEXT NOT NULL,
    author      TEXT,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_documents (
    id           TEXT PRIMARY KEY,
    claim_id     TEXT NOT NULL REFERENCES claims(id),
    name         TEXT NOT NULL,
    doc_type     TEXT,
    storage_uri  TEXT,
    uploaded_by  TEXT,
    created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS claim_inspections (
    id             TEXT PRIMARY KEY,
    claim_id       TEXT NOT NULL REFERENCES claims(id),
    inspector      TEXT,
    scheduled_for  TEXT NOT NULL,
    completed_at   TEXT,
    created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS identity_profiles (
    claim_id          TEXT PRIMARY KEY REFERENCES claims(id),
    names             TEXT,
    addresses         TEXT,
    claim_numbers     TEXT,
    policy_numbers    TEXT,
    carriers          TEXT,
    adjuster_emails   TEXT,
    subject_patterns  TEXT,
    updated_at        TEXT NOT NULL,
    updated_by        TEXT
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
    id               TEXT PRIMARY KEY,
    claim_id         TEXT NOT NULL REFERENCES claims(id),
    mode             TEXT NOT NULL,
    status           TEXT NOT NULL,
    window_start     TEXT NOT NULL,
    window_end       TEXT NOT NULL,
    idempotency_key  TEXT NOT NULL,
    counters         TEXT,
    errors           TEXT,
    steps            TEXT,
    triggered_by     TEXT,
    started_at       TEXT NOT NULL,
    finished_at      TEXT,
    duration_ms      INTEGER
);

CREATE TABLE IF NOT EXISTS evidence_items (
    id             TEXT PRIMARY KEY,
    claim_id       TEXT NOT NULL REFERENCES claims(id),
    run_id         TEXT,
    kind           TEXT NOT NULL,
    source_system  TEXT NOT NULL,
    source_id      TEXT NOT NULL,
    thread_id      TEXT,
    message_id     TEXT,
    filename       TEXT,
    mime_type      TEXT,
    size           INTEGER NOT NULL DEFAULT 0,
    checksum       TEXT NOT NULL,
    storage_uri    TEXT NOT NULL,
    text_uri       TEXT,
    metadata       TEXT,
    occurred_at    TEXT NOT NULL,
    ingested_at    TEXT NOT NULL,
    score          INTEGER NOT NULL DEFAULT 0,
    dedupe_key     TEXT NOT NULL,
    review_status  TEXT NOT NULL DEFAULT 'pending',
    tags           TEXT,
    UNIQUE(claim_id, kind, dedupe_key)
);

CREATE TABLE IF NOT EXISTS review_queue (
    id           TEXT PRIMARY KEY,
    claim_id     TEXT NOT NULL REFERENCES claims(id),
    evidence_id  TEXT NOT NULL REFERENCES evidence_items(id),
    run_id       TEXT,
    score        INTEGER NOT NULL DEFAULT 0,
    reasons      TEXT,
    status       TEXT NOT NULL DEFAULT 'pending',
    decided_by   TEXT,
    decided_at   TEXT,
    note         TEXT,
    created_at   TEXT NOT NULL,
    UNIQUE(claim_id, evidence_id)
);

CREATE TABLE IF NOT EXISTS claim_events (
    id             TEXT PRIMARY KEY,
    claim_id       TEXT NOT NULL REFERENCES claims(id),
    type           TEXT NOT NULL,
    occurred_at    TEXT NOT NULL,
    ingested_at    TEXT NOT NULL,
    source_system  TEXT NOT NULL,
    source_id      TEXT NOT NULL,
    thread_id      TEXT,
    parties        TEXT,
    tags           TEXT,
    score          INTEGER NOT NULL DEFAULT 0,
    summary        TEXT NOT NULL,
    type_priority  INTEGER NOT NULL,
    dedupe_key     TEXT NOT NULL,
    UNIQUE(claim_id, dedupe_key)
);

CREATE TABLE IF NOT EXISTS evidence_links (
    id               TEXT PRIMARY KEY,
    claim_id         TEXT NOT NULL REFERENCES claims(id),
    event_id         TEXT NOT NULL REFERENCES claim_events(id),
    evidence_id      TEXT NOT NULL REFERENCES evidence_items(id),
    link_type        TEXT NOT NULL,
    ref_message_id   TEXT,
    ref_storage_uri  TEXT,
    ref_checksum     TEXT,
    created_at       TEXT NOT NULL,
    UNIQUE(claim_id, event_id, evidence_id, link_type)
);

CREATE TABLE IF NOT EXISTS reports (
    id           TEXT PRIMARY KEY,
    claim_id     TEXT NOT NULL REFERENCES claims(id),
    status       TEXT NOT NULL,
    artifact_id  TEXT,
    storage_uri  TEXT,
    error        TEXT,
    created_by   TEXT,
    created_at   TEXT NOT NULL,
    finished_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_claim ON ingestion_runs(claim_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_key ON ingestion_runs(idempotency_key);
CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence_items(claim_id);
CREATE INDEX IF NOT EXISTS idx_queue_claim_status ON review_queue(claim_id, status);
CREATE INDEX IF NOT EXISTS idx_events_claim_time ON claim_events(claim_id, occurred_at, type_priority, source_id);
CREATE INDEX IF NOT EXISTS idx_links_event ON evidence_links(event_id);
CREATE INDEX IF NOT EXISTS idx_notes_claim ON claim_notes(claim_id);
CREATE INDEX IF NOT EXISTS idx_documents_claim ON claim_documents(claim_id);
CREATE INDEX IF NOT EXISTS idx_inspections_claim ON claim_inspections(claim_id);
`
