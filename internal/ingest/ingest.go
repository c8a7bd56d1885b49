// Package ingest orchestrates claim-scoped mail ingestion: it builds a
// provider query from the claim's identity profile, scores each candidate
// message, stores relevant material content-addressably, and branches
// between auto-acceptance and human review.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clearclaims/claimtrail/internal/auth"
	"github.com/clearclaims/claimtrail/internal/blob"
	"github.com/clearclaims/claimtrail/internal/canon"
	"github.com/clearclaims/claimtrail/internal/config"
	"github.com/clearclaims/claimtrail/internal/db"
	"github.com/clearclaims/claimtrail/internal/gmail"
	"github.com/clearclaims/claimtrail/internal/profile"
	"github.com/clearclaims/claimtrail/internal/types"
)

// Query building and run bookkeeping bounds.
const (
	maxQueryTokens = 20
	maxStepLog     = 200
)

// Mailbox is the provider surface the service consumes.
type Mailbox interface {
	List(ctx context.Context, query string, max int64) ([]string, error)
	Fetch(ctx context.Context, id string) (*gmail.RawMessage, error)
	Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// ObjectStore is the storage surface the service consumes.
type ObjectStore interface {
	Key(claimID string, parts ...string) string
	PutBytes(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) (string, error)
	PutText(ctx context.Context, key, text, contentType string) (string, error)
}

// Service runs ingestion and review decisions for claims.
type Service struct {
	store   *db.DB
	objects ObjectStore
	mail    Mailbox
	cfg     config.Config
	now     func() time.Time
}

// New builds an ingestion service. The object store may be nil when
// storage is unconfigured; Ingest fails fast in that case.
func New(store *db.DB, objects ObjectStore, mail Mailbox, cfg config.Config) *Service {
	return &Service{store: store, objects: objects, mail: mail, cfg: cfg, now: time.Now}
}

// RunRequest describes one ingestion invocation.
type RunRequest struct {
	Mode           string
	WindowStart    *time.Time
	WindowEnd      *time.Time
	IdempotencyKey string
	Actor          string
}

// Ingest pulls mail for a claim over a time window. A run with the same
// idempotency key in a running, completed, or partial state short-circuits
// to the existing run document. The run is finalized (status, finish
// time, counters, bounded error list and step log) no matter which path
// execution takes.
func (s *Service) Ingest(ctx context.Context, claim *types.Claim, req RunRequest) (*types.IngestionRun, error) {
	if s.objects == nil || !s.cfg.StorageConfigured() {
		return nil, fmt.Errorf("ingest claim %s: %w", claim.ID, blob.ErrNotConfigured)
	}

	mode := req.Mode
	if mode == "" {
		mode = types.ModeManual
	}

	windowEnd := s.now().UTC()
	if req.WindowEnd != nil {
		windowEnd = req.WindowEnd.UTC()
	}
	windowStart := windowEnd.AddDate(0, 0, -s.cfg.WindowDays)
	if req.WindowStart != nil {
		windowStart = req.WindowStart.UTC()
	}

	key := req.IdempotencyKey
	if key == "" {
		key = canon.DedupeKey(claim.ID, mode,
			windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	}

	if existing, err := s.store.FindActiveRunByKey(claim.ID, key); err != nil {
		return nil, fmt.Errorf("check existing run: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	override, err := s.store.GetProfileOverride(claim.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile override: %w", err)
	}
	prof := profile.Resolve(claim, override)

	run := &types.IngestionRun{
		ID:             db.NewID(),
		ClaimID:        claim.ID,
		Mode:           mode,
		Status:         types.RunRunning,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		IdempotencyKey: key,
		TriggeredBy:    req.Actor,
		StartedAt:      s.now().UTC(),
	}
	if err := s.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	// Final flush happens regardless of how execution ends.
	defer func() {
		finished := s.now().UTC()
		run.FinishedAt = &finished
		run.DurationMS = finished.Sub(run.StartedAt).Milliseconds()
		if len(run.Steps) > maxStepLog {
			run.Steps = run.Steps[len(run.Steps)-maxStepLog:]
		}
		if err := s.store.SaveRunState(run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: persist run %s: %v\n", run.ID, err)
		}
	}()

	if execErr := s.execute(ctx, claim, prof, run); execErr != nil {
		run.Status = types.RunFailed
		run.Errors = append(run.Errors, types.RunError{
			Stage:   "run",
			Message: execErr.Error(),
			At:      s.now().UTC(),
		})
	} else if run.Counters.Errors > 0 {
		run.Status = types.RunPartial
	} else {
		run.Status = types.RunCompleted
	}

	return run, nil
}

// execute performs the run body. A returned error fails the whole run;
// per-message failures are absorbed into the run's error list instead.
func (s *Service) execute(ctx context.Context, claim *types.Claim, prof types.IdentityProfile, run *types.IngestionRun) error {
	query := BuildQuery(prof, run.WindowStart, run.WindowEnd)
	s.step(run, "search query: %s", query)

	ids, err := s.mail.List(ctx, query, s.cfg.MaxResults)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	s.step(run, "listed %d candidate messages", len(ids))

	for _, id := range ids {
		err := s.processMessage(ctx, claim, prof, run, id)
		if err == nil {
			continue
		}
		// Auth failures and deadline expiry would fail every remaining
		// call identically; abort with that reason.
		if errors.Is(err, auth.ErrReconnectRequired) || ctx.Err() != nil {
			return err
		}
		run.Counters.Errors++
		run.Errors = append(run.Errors, types.RunError{
			SourceID: id,
			Stage:    "message",
			Message:  err.Error(),
			At:       s.now().UTC(),
		})
		s.step(run, "message %s failed: %v", id, err)
	}

	// Persist progress so pollers observe counters before finalization.
	if err := s.store.SaveRunState(run); err != nil {
		fmt.Fprintf(os.Stderr, "warning: persist run %s: %v\n", run.ID, err)
	}
	return nil
}

func (s *Service) step(run *types.IngestionRun, format string, args ...any) {
	run.Steps = append(run.Steps, types.RunStep{
		At:   s.now().UTC(),
		Note: fmt.Sprintf(format, args...),
	})
}

// BuildQuery assembles the provider search query: profile tokens quoted
// and OR-joined (capped to the first 20 collected), plus an explicit date
// range clause.
func BuildQuery(p types.IdentityProfile, start, end time.Time) string {
	tokens := profile.QueryTokens(p, maxQueryTokens)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(tok, `"`, "")+`"`)
	}

	var b strings.Builder
	if len(quoted) > 0 {
		b.WriteString("(" + strings.Join(quoted, " OR ") + ")")
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "after:%s before:%s",
		start.UTC().Format("2006/01/02"), end.UTC().Format("2006/01/02"))
	return b.String()
}
