package escalate

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"creditflow/dispute"
)

func seedDispute(t *testing.T, repo dispute.Repository, submitted time.Time) dispute.Dispute {
	t.Helper()
	svc := dispute.NewService(repo, dispute.DefaultWindows(),
		dispute.WithClock(func() time.Time { return submitted }))
	d, err := svc.Create(context.Background(), dispute.CreateParams{
		OwnerID: "owner-1",
		Account: dispute.Account{Creditor: "Acme Bank", Value: "$900", AccountType: "credit_card"},
		Type:    dispute.TypeBureau,
		Bureau:  dispute.BureauExperian,
		Reason:  "not mine",
	})
	if err != nil {
		t.Fatalf("seed dispute: %v", err)
	}
	return d
}

func newScheduler(repo dispute.Repository) *Scheduler {
	return NewScheduler(repo, &StubBuilder{Consumer: ConsumerInfo{Name: "Jordan Doe"}}, nil)
}

func TestTick_EscalatesLapsedDispute(t *testing.T) {
	repo := dispute.NewMemoryRepository()
	submitted := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	seeded := seedDispute(t, repo, submitted)

	// Day after the 30-day deadline.
	now := seeded.ResponseDeadline.AddDate(0, 0, 1)
	sched := newScheduler(repo)

	ids, err := sched.Tick(context.Background(), now)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(ids) != 1 || ids[0] != seeded.ID {
		t.Fatalf("escalated = %v, want [%s]", ids, seeded.ID)
	}

	d, err := repo.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Status != dispute.StatusEscalated {
		t.Errorf("status = %s, want escalated", d.Status)
	}
	if len(d.Documents) != 3 {
		t.Fatalf("documents = %d, want 3", len(d.Documents))
	}
	kinds := map[dispute.DocumentKind]bool{}
	for _, doc := range d.Documents {
		kinds[doc.Kind] = true
		if !doc.AutoGenerated || !doc.EscalationMarker {
			t.Errorf("document %s missing auto/marker flags", doc.Kind)
		}
		if doc.ID == "" || doc.Content == "" {
			t.Errorf("document %s missing id or content", doc.Kind)
		}
	}
	for _, want := range []dispute.DocumentKind{dispute.DocNoResponseNotice, dispute.DocMOVRequest, dispute.DocCFPBComplaint} {
		if !kinds[want] {
			t.Errorf("missing generated document %s", want)
		}
	}
	if len(d.Communications) != 1 {
		t.Errorf("communications = %d, want 1", len(d.Communications))
	}
	last := d.History[len(d.History)-1]
	if last.From != dispute.StatusSubmitted || last.To != dispute.StatusEscalated {
		t.Errorf("last history entry = %s -> %s", last.From, last.To)
	}
	if last.Notes != escalationNote {
		t.Errorf("history note = %q", last.Notes)
	}
}

func TestTick_SecondPassIsNoOp(t *testing.T) {
	repo := dispute.NewMemoryRepository()
	seeded := seedDispute(t, repo, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	now := seeded.ResponseDeadline.AddDate(0, 0, 5)
	sched := newScheduler(repo)
	ctx := context.Background()

	if _, err := sched.Tick(ctx, now); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	ids, err := sched.Tick(ctx, now)
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("second tick escalated %v, want none", ids)
	}

	d, _ := repo.Get(ctx, seeded.ID)
	if len(d.Documents) != 3 {
		t.Errorf("documents = %d after second tick, want 3", len(d.Documents))
	}
	if len(d.Communications) != 1 {
		t.Errorf("communications = %d after second tick, want 1", len(d.Communications))
	}
	if len(d.History) != 2 {
		t.Errorf("history = %d after second tick, want 2", len(d.History))
	}
}

func TestTick_DateOnlyComparison(t *testing.T) {
	repo := dispute.NewMemoryRepository()
	seeded := seedDispute(t, repo, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	sched := newScheduler(repo)
	ctx := context.Background()

	// Deadline day itself, even late in the evening, does not lapse.
	sameDay := time.Date(
		seeded.ResponseDeadline.Year(), seeded.ResponseDeadline.Month(), seeded.ResponseDeadline.Day(),
		23, 30, 0, 0, time.UTC)
	ids, err := sched.Tick(ctx, sameDay)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("escalated on deadline day: %v", ids)
	}

	// First moment of the next day lapses.
	nextMidnight := startOfDay(seeded.ResponseDeadline).AddDate(0, 0, 1)
	ids, err = sched.Tick(ctx, nextMidnight)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("escalated = %v, want one", ids)
	}
}

func TestTick_SkipsTerminalDisputes(t *testing.T) {
	repo := dispute.NewMemoryRepository()
	seeded := seedDispute(t, repo, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	svc := dispute.NewService(repo, dispute.DefaultWindows())
	if _, err := svc.UpdateStatus(context.Background(), seeded.ID, dispute.StatusClosed, "withdrawn"); err != nil {
		t.Fatalf("close: %v", err)
	}

	sched := newScheduler(repo)
	ids, err := sched.Tick(context.Background(), seeded.ResponseDeadline.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("escalated closed dispute: %v", ids)
	}
}

func TestTick_ConcurrentTicksApplyOneBatch(t *testing.T) {
	repo := dispute.NewMemoryRepository()
	seeded := seedDispute(t, repo, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	now := seeded.ResponseDeadline.AddDate(0, 0, 2)
	sched := newScheduler(repo)

	g, ctx := errgroup.WithContext(context.Background())
	results := make([][]string, 8)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			ids, err := sched.Tick(ctx, now)
			results[i] = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent ticks: %v", err)
	}

	total := 0
	for _, ids := range results {
		total += len(ids)
	}
	if total != 1 {
		t.Fatalf("escalation applied %d times across ticks, want exactly 1", total)
	}

	d, _ := repo.Get(context.Background(), seeded.ID)
	if len(d.Documents) != 3 || len(d.Communications) != 1 || len(d.History) != 2 {
		t.Fatalf("duplicated batch: %d docs, %d comms, %d history entries",
			len(d.Documents), len(d.Communications), len(d.History))
	}
}
