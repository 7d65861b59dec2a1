// Package escalate detects disputes whose statutory response deadline lapsed
// without an answer and applies the follow-up batch exactly once per dispute.
package escalate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"creditflow/dispute"
)

// escalationNote is the fixed history note recorded on auto-escalation.
const escalationNote = "Response deadline passed without a bureau response; follow-up documents generated"

// followUpKinds are the documents generated per escalation, in order.
var followUpKinds = []dispute.DocumentKind{
	dispute.DocNoResponseNotice,
	dispute.DocMOVRequest,
	dispute.DocCFPBComplaint,
}

// Scheduler walks the repository on demand and escalates lapsed disputes. It
// owns no clock and no goroutine: callers invoke Tick from a cron, a worker
// loop, or after a mutation. Ticks are idempotent and safe to run
// concurrently; the persisted escalation marker, re-verified inside the
// repository write, is the only guard.
type Scheduler struct {
	repo    dispute.Repository
	builder DocumentBuilder
	log     *zap.Logger
	newID   func() string
}

func NewScheduler(repo dispute.Repository, builder DocumentBuilder, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		repo:    repo,
		builder: builder,
		log:     log,
		newID:   uuid.NewString,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Tick runs one escalation pass and returns the ids of disputes escalated in
// this pass. A dispute lapses when its response deadline falls on a calendar
// day strictly before now's; time of day is ignored.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]string, error) {
	candidates, err := s.repo.List(ctx, dispute.Filter{
		ExcludeTerminal: true,
		DeadlineBefore:  startOfDay(now),
	})
	if err != nil {
		return nil, fmt.Errorf("escalate: list candidates: %w", err)
	}

	var escalated []string
	for i := range candidates {
		d := candidates[i]
		if d.HasEscalationMarker() {
			continue
		}

		batch, err := s.buildBatch(d, now)
		if err != nil {
			return escalated, err
		}

		applied, err := s.repo.ApplyEscalation(ctx, d.ID, batch)
		if err != nil {
			return escalated, fmt.Errorf("escalate: apply batch for %s: %w", d.ID, err)
		}
		if !applied {
			// Another tick won the race; nothing to do.
			continue
		}
		escalated = append(escalated, d.ID)
		s.log.Info("dispute escalated",
			zap.String("dispute_id", d.ID),
			zap.Time("response_deadline", d.ResponseDeadline),
		)
	}
	return escalated, nil
}

func (s *Scheduler) buildBatch(d dispute.Dispute, now time.Time) (dispute.EscalationBatch, error) {
	var batch dispute.EscalationBatch
	for _, kind := range followUpKinds {
		name, content, err := s.builder.BuildFollowUp(d, kind, now)
		if err != nil {
			return dispute.EscalationBatch{}, fmt.Errorf("escalate: build %s for %s: %w", kind, d.ID, err)
		}
		batch.Documents = append(batch.Documents, dispute.Document{
			ID:               s.newID(),
			Name:             name,
			Kind:             kind,
			Content:          content,
			AutoGenerated:    true,
			EscalationMarker: true,
			DateAdded:        now,
		})
	}
	batch.Communication = dispute.Communication{
		Date:      now,
		Direction: dispute.CommSent,
		Method:    dispute.CommMail,
		Subject:   "Deadline follow-up package",
		Summary: fmt.Sprintf("Generated %d follow-up documents after the %s response deadline lapsed",
			len(batch.Documents), d.ResponseDeadline.Format("2006-01-02")),
	}
	batch.Change = dispute.StatusChange{
		Date:  now,
		To:    dispute.StatusEscalated,
		Notes: escalationNote,
	}
	return batch, nil
}
