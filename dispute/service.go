package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is the dispute state machine. Every mutation goes through it; no
// caller writes record fields directly. Operations on an unknown id return
// ErrNotFound and leave the repository untouched.
type Service struct {
	repo    Repository
	windows Windows
	now     func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock substitutes the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator substitutes the id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(repo Repository, windows Windows, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		windows: windows,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams enumerates the fields required to open a dispute.
type CreateParams struct {
	OwnerID      string
	Account      Account
	Type         Type
	Bureau       Bureau
	Reason       string
	ViolationIDs []string
}

// Create opens a dispute in submitted status. The response deadline is fixed
// here as submission time plus the statutory window for the dispute type and
// never recomputed afterwards.
func (s *Service) Create(ctx context.Context, p CreateParams) (Dispute, error) {
	if p.Account.Creditor == "" {
		return Dispute{}, fmt.Errorf("dispute: creditor required")
	}
	switch p.Type {
	case TypeBureau, TypeFurnisher, TypeValidation, TypeCFPB, TypeLegal:
	default:
		return Dispute{}, fmt.Errorf("dispute: invalid type %q", p.Type)
	}
	if p.Bureau != "" && p.Bureau != BureauExperian && p.Bureau != BureauEquifax && p.Bureau != BureauTransUnion {
		return Dispute{}, fmt.Errorf("dispute: invalid bureau %q", p.Bureau)
	}

	now := s.now()
	d := Dispute{
		ID:               s.newID(),
		OwnerID:          p.OwnerID,
		Account:          p.Account,
		Type:             p.Type,
		Bureau:           p.Bureau,
		Reason:           p.Reason,
		Status:           StatusSubmitted,
		SubmittedAt:      now,
		ResponseDeadline: now.AddDate(0, 0, s.windows.Days(p.Type)),
		ViolationIDs:     append([]string(nil), p.ViolationIDs...),
		History: []StatusChange{{
			Date: now,
			From: StatusDraft,
			To:   StatusSubmitted,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.repo.Create(ctx, d)
}

// UpdateStatus appends a history entry and moves the dispute to newStatus.
// There is no transition graph: any status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus Status, notes string) (Dispute, error) {
	return s.repo.UpdateStatus(ctx, id, StatusChange{
		Date:  s.now(),
		To:    newStatus,
		Notes: notes,
	})
}

// AddCommunication appends a correspondence entry. A zero date defaults to
// now.
func (s *Service) AddCommunication(ctx context.Context, id string, c Communication) (Dispute, error) {
	if c.Date.IsZero() {
		c.Date = s.now()
	}
	return s.repo.AppendCommunication(ctx, id, c)
}

// AddDocument appends a document, assigning an id and DateAdded when absent.
func (s *Service) AddDocument(ctx context.Context, id string, doc Document) (Dispute, error) {
	if doc.ID == "" {
		doc.ID = s.newID()
	}
	if doc.DateAdded.IsZero() {
		doc.DateAdded = s.now()
	}
	if doc.Kind == "" {
		doc.Kind = DocUpload
	}
	return s.repo.AppendDocument(ctx, id, doc)
}

// SetOutcome records the dispute's outcome. It deliberately does not change
// the status; callers decide the correlated transition.
func (s *Service) SetOutcome(ctx context.Context, id string, o Outcome) (Dispute, error) {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = s.now()
	}
	return s.repo.SetOutcome(ctx, id, o)
}

// UpdateNotes replaces the free-form notes field.
func (s *Service) UpdateNotes(ctx context.Context, id, notes string) (Dispute, error) {
	return s.repo.SetNotes(ctx, id, notes, s.now())
}

// UpdateDocumentTags replaces the label tags on a document. Tags are labels
// only; they carry no control-flow meaning.
func (s *Service) UpdateDocumentTags(ctx context.Context, id, docID string, tags []string) (Dispute, error) {
	return s.repo.SetDocumentTags(ctx, id, docID, tags, s.now())
}

// Get returns a single dispute.
func (s *Service) Get(ctx context.Context, id string) (Dispute, error) {
	return s.repo.Get(ctx, id)
}

// List returns disputes matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Dispute, error) {
	return s.repo.List(ctx, f)
}
