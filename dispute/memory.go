package dispute

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository used by tests and by callers
// that want a deterministic, storage-free engine. It copies records on the way
// in and out so callers never alias internal state.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Dispute
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Dispute)}
}

func copyDispute(d Dispute) Dispute {
	out := d
	out.ViolationIDs = append([]string(nil), d.ViolationIDs...)
	out.History = append([]StatusChange(nil), d.History...)
	out.Communications = append([]Communication(nil), d.Communications...)
	out.Documents = make([]Document, len(d.Documents))
	for i, doc := range d.Documents {
		doc.Tags = append([]string(nil), doc.Tags...)
		out.Documents[i] = doc
	}
	if d.Outcome != nil {
		o := *d.Outcome
		out.Outcome = &o
	}
	return out
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	return copyDispute(d), nil
}

func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Dispute, 0, len(r.records))
	for _, d := range r.records {
		if f.OwnerID != "" && d.OwnerID != f.OwnerID {
			continue
		}
		if f.Bureau != "" && d.Bureau != f.Bureau {
			continue
		}
		if f.ExcludeTerminal && d.Status.IsTerminal() {
			continue
		}
		if !f.DeadlineBefore.IsZero() && !d.ResponseDeadline.Before(f.DeadlineBefore) {
			continue
		}
		out = append(out, copyDispute(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Create(ctx context.Context, d Dispute) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[d.ID] = copyDispute(d)
	return copyDispute(d), nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	change.From = d.Status
	d.History = append(d.History, change)
	d.Status = change.To
	d.UpdatedAt = change.Date
	r.records[id] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) AppendCommunication(ctx context.Context, id string, c Communication) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	d.Communications = append(d.Communications, c)
	d.UpdatedAt = c.Date
	r.records[id] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) AppendDocument(ctx context.Context, id string, doc Document) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	d.Documents = append(d.Documents, doc)
	d.UpdatedAt = doc.DateAdded
	r.records[id] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) SetOutcome(ctx context.Context, id string, o Outcome) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	d.Outcome = &o
	d.UpdatedAt = o.RecordedAt
	r.records[id] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) SetNotes(ctx context.Context, id, notes string, at time.Time) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	d.Notes = notes
	d.UpdatedAt = at
	r.records[id] = d
	return copyDispute(d), nil
}

func (r *MemoryRepository) SetDocumentTags(ctx context.Context, id, docID string, tags []string, at time.Time) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	for i := range d.Documents {
		if d.Documents[i].ID == docID {
			d.Documents[i].Tags = append([]string(nil), tags...)
			d.UpdatedAt = at
			r.records[id] = d
			return copyDispute(d), nil
		}
	}
	return Dispute{}, ErrDocNotFound
}

func (r *MemoryRepository) ApplyEscalation(ctx context.Context, id string, batch EscalationBatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status.IsTerminal() || d.HasEscalationMarker() {
		return false, nil
	}
	d.Documents = append(d.Documents, batch.Documents...)
	d.Communications = append(d.Communications, batch.Communication)
	change := batch.Change
	change.From = d.Status
	d.History = append(d.History, change)
	d.Status = change.To
	d.UpdatedAt = change.Date
	r.records[id] = d
	return true, nil
}
