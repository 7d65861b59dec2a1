package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"creditflow/dispute"
	"creditflow/escalate"
	"creditflow/test/actors"
	"creditflow/test/chaos"
	"creditflow/test/infra"
	"creditflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

// TestEscalationConcurrency floods the dispute store with filers working on a
// back-dated clock, status flippers, and several concurrent escalation
// tickers, while a chaos worker kills backends. The oracles assert the
// history ledger and the exactly-once escalation guarantee the whole time.
func TestEscalationConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	ownerID := mustSeedOwner(t, ctx, pool)

	repo := dispute.NewPGRepository(pool)

	// Filers run 45 days in the past so every dispute they open already has a
	// lapsed response deadline (the longest statutory window is 30 days).
	backdated := dispute.NewService(repo, dispute.DefaultWindows(),
		dispute.WithClock(func() time.Time { return time.Now().AddDate(0, 0, -45) }))
	live := dispute.NewService(repo, dispute.DefaultWindows())
	sched := escalate.NewScheduler(repo, &escalate.StubBuilder{
		Consumer: escalate.ConsumerInfo{Name: "Stress Consumer"},
	}, zap.NewNop())

	// run actors
	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Filer(ctx2, backdated, ownerID, stop) })
		g.Go(func() error { return actors.Ticker(ctx2, sched, stop) })
	}
	g.Go(func() error { return actors.Flipper(ctx2, live, ownerID, stop) })
	g.Go(func() error { return actors.Reader(ctx2, live, ownerID, stop) })

	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}

	// final sweep after all writers stopped
	if name, row, err := oracles.Run(ctx, pool); err != nil {
		t.Fatalf("final oracle error: %v", err)
	} else if name != "" {
		dumpRecent(t, ctx, pool)
		t.Fatalf("Oracle %s failed after quiesce. First row: %s (seed=%d)", name, row, seed)
	}

	// every escalated dispute carries a complete follow-up batch
	var incomplete int
	if err := pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM disputes d
        WHERE EXISTS (SELECT 1 FROM dispute_documents doc
                      WHERE doc.dispute_id = d.id AND doc.escalation_marker)
          AND (SELECT COUNT(*) FROM dispute_documents doc
               WHERE doc.dispute_id = d.id AND doc.escalation_marker) <> 3`).Scan(&incomplete); err != nil {
		t.Fatalf("count incomplete batches: %v", err)
	}
	if incomplete != 0 {
		t.Fatalf("%d disputes have a partial follow-up batch (seed=%d)", incomplete, seed)
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

func mustSeedOwner(t *testing.T, ctx context.Context, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		fmt.Sprintf("stress%d@example.com", rand.Int63()), "Stress Owner", "x").Scan(&id)
	if err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return id
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"disputes", `SELECT id, status, dispute_type, response_deadline FROM disputes ORDER BY created_at DESC LIMIT 50`},
		{"dispute_status_history", `SELECT id, dispute_id, seq, from_status, to_status, changed_at FROM dispute_status_history ORDER BY id DESC LIMIT 50`},
		{"dispute_documents", `SELECT id, dispute_id, kind, escalation_marker, date_added FROM dispute_documents WHERE escalation_marker ORDER BY date_added DESC LIMIT 50`},
		{"dispute_communications", `SELECT id, dispute_id, subject, sent_at FROM dispute_communications ORDER BY id DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			// compact print
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
