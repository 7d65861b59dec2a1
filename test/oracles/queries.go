package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the invariant queries run against the dispute schema during a
// stress run. Each query selects VIOLATING rows, so an empty result means the
// invariant holds.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_history_seq_monotonic",
			SQL: `WITH seqs AS (
                      SELECT dispute_id, seq,
                             LAG(seq) OVER (PARTITION BY dispute_id ORDER BY seq) AS prev
                      FROM dispute_status_history)
                  SELECT * FROM seqs WHERE prev IS NOT NULL AND seq <= prev`,
		},
		{
			Name: "O2_history_tail_matches_status",
			SQL: `SELECT d.id, d.status, h.to_status FROM disputes d
                  JOIN LATERAL (
                      SELECT to_status FROM dispute_status_history
                      WHERE dispute_id = d.id ORDER BY seq DESC LIMIT 1
                  ) h ON true
                  WHERE h.to_status <> d.status`,
		},
		{
			Name: "O3_single_followup_batch",
			SQL: `SELECT dispute_id, kind, COUNT(*) FROM dispute_documents
                  WHERE escalation_marker
                  GROUP BY dispute_id, kind HAVING COUNT(*) > 1`,
		},
		{
			Name: "O4_followup_comm_unique",
			SQL: `SELECT dispute_id, COUNT(*) FROM dispute_communications
                  WHERE subject = 'Deadline follow-up package'
                  GROUP BY dispute_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_marker_implies_lapsed_deadline",
			SQL: `SELECT DISTINCT d.id, d.response_deadline FROM disputes d
                  JOIN dispute_documents doc ON doc.dispute_id = d.id AND doc.escalation_marker
                  WHERE d.response_deadline::date >= now()::date`,
		},
		{
			Name: "O6_marker_implies_escalation_history",
			SQL: `SELECT DISTINCT d.id FROM disputes d
                  JOIN dispute_documents doc ON doc.dispute_id = d.id AND doc.escalation_marker
                  WHERE NOT EXISTS (
                      SELECT 1 FROM dispute_status_history h
                      WHERE h.dispute_id = d.id AND h.to_status = 'escalated')`,
		},
		{
			Name: "O7_deadline_not_before_submission",
			SQL: `SELECT id, dispute_type, submitted_at, response_deadline FROM disputes
                  WHERE response_deadline < submitted_at`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
