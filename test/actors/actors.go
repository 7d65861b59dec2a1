package actors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"creditflow/dispute"
	"creditflow/escalate"
)

// Actors are load generators, not assertions: the chaos worker kills database
// backends underneath them, so any single call may fail with a connection
// error. Per-call errors are ignored and the loop retries; correctness is
// judged by the oracles reading the resulting state.

var disputeTypes = []dispute.Type{
	dispute.TypeBureau,
	dispute.TypeFurnisher,
	dispute.TypeValidation,
	dispute.TypeCFPB,
	dispute.TypeLegal,
}

var bureaus = []dispute.Bureau{
	dispute.BureauExperian,
	dispute.BureauEquifax,
	dispute.BureauTransUnion,
}

// nonTerminal are the statuses a flipper cycles through; a terminal status is
// applied occasionally so some-but-not-all disputes leave the pool.
var nonTerminal = []dispute.Status{
	dispute.StatusSubmitted,
	dispute.StatusInvestigating,
	dispute.StatusResponseReceived,
}

// Filer opens disputes against random creditors. The service it receives is
// expected to run on a back-dated clock so every new dispute is born with a
// lapsed response deadline and immediately becomes an escalation candidate.
func Filer(ctx context.Context, svc *dispute.Service, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = svc.Create(ctx, dispute.CreateParams{
			OwnerID: ownerID,
			Account: dispute.Account{
				Creditor:    fmt.Sprintf("Stress Creditor %d", rand.Int63()),
				AccountType: "credit_card",
			},
			Type:   disputeTypes[rand.Intn(len(disputeTypes))],
			Bureau: bureaus[rand.Intn(len(bureaus))],
			Reason: "stress run filing",
		})
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Flipper picks a random open dispute owned by ownerID and moves it to a
// random status, occasionally a terminal one. It races the escalation tickers
// on purpose: a dispute may be resolved and escalated in either order, the
// oracles only require the history ledger to stay consistent.
func Flipper(ctx context.Context, svc *dispute.Service, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		open, err := svc.List(ctx, dispute.Filter{OwnerID: ownerID, ExcludeTerminal: true})
		if err == nil && len(open) > 0 {
			target := open[rand.Intn(len(open))]
			next := nonTerminal[rand.Intn(len(nonTerminal))]
			if rand.Intn(10) == 0 {
				next = dispute.StatusResolvedFavorable
			}
			_, _ = svc.UpdateStatus(ctx, target.ID, next, "stress flip")
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Ticker runs escalation passes back to back. Several tickers run at once so
// the marker guard inside the repository is exercised under real contention.
func Ticker(ctx context.Context, sched *escalate.Scheduler, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = sched.Tick(ctx, time.Now())
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// Reader hammers Get and List while writers mutate, to surface torn reads.
func Reader(ctx context.Context, svc *dispute.Service, ownerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if all, err := svc.List(ctx, dispute.Filter{OwnerID: ownerID}); err == nil && len(all) > 0 {
			_, _ = svc.Get(ctx, all[rand.Intn(len(all))].ID)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}
