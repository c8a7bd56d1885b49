package ingest

import (
	"context"
	"fmt"

	"github.com/clearclaims/claimtrail/internal/types"
)

// Decide resolves one review queue item. Approval promotes the underlying
// evidence through the same path auto-acceptance uses, so a manually
// approved message ends in exactly the state it would have reached with a
// higher score. Deciding an already-decided item is a no-op returning the
// current state.
func (s *Service) Decide(ctx context.Context, claimID, queueID, actor string, approve bool, note string) (*types.ReviewQueueItem, error) {
	item, err := s.store.GetQueueItem(claimID, queueID)
	if err != nil {
		return nil, err
	}
	if item.Status != types.ReviewPending {
		return item, nil
	}

	status := types.ReviewRejected
	if approve {
		status = types.ReviewApproved
	}

	decided, err := s.store.DecideQueueItem(item.ID, status, actor, note, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("decide queue item: %w", err)
	}
	if !decided {
		// Lost a race with another decision; surface the winner.
		return s.store.GetQueueItem(claimID, queueID)
	}

	if err := s.store.UpdateEvidenceStatus(item.EvidenceID, status); err != nil {
		return nil, fmt.Errorf("update evidence status: %w", err)
	}

	if approve {
		ev, err := s.store.GetEvidence(item.EvidenceID)
		if err != nil {
			return nil, err
		}
		if _, err := s.promote(ctx, ev); err != nil {
			return nil, fmt.Errorf("promote approved evidence: %w", err)
		}
	}

	return s.store.GetQueueItem(claimID, queueID)
}
