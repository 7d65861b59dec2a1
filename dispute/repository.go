package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("dispute: not found")
	ErrDocNotFound = errors.New("dispute: document not found")
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	OwnerID         string
	Bureau          Bureau
	ExcludeTerminal bool
	// DeadlineBefore keeps only disputes whose response deadline falls
	// strictly before the given instant.
	DeadlineBefore time.Time
}

// EscalationBatch bundles the writes of one escalation pass. The repository
// applies it atomically and only if the dispute carries no escalation marker
// yet.
type EscalationBatch struct {
	Documents     []Document
	Communication Communication
	Change        StatusChange
}

// Repository is the durable store for dispute records. Records are never
// physically deleted through this interface; archival is an external concern.
//
// The store has last-write-wins semantics: two callers mutating the same
// dispute from different processes can lose updates. Only ApplyEscalation is
// guarded against concurrent duplication.
type Repository interface {
	Get(ctx context.Context, id string) (Dispute, error)
	List(ctx context.Context, f Filter) ([]Dispute, error)
	Create(ctx context.Context, d Dispute) (Dispute, error)
	// UpdateStatus sets the status and appends the matching history entry in
	// one atomic write.
	UpdateStatus(ctx context.Context, id string, change StatusChange) (Dispute, error)
	AppendCommunication(ctx context.Context, id string, c Communication) (Dispute, error)
	AppendDocument(ctx context.Context, id string, doc Document) (Dispute, error)
	SetOutcome(ctx context.Context, id string, o Outcome) (Dispute, error)
	SetNotes(ctx context.Context, id string, notes string, at time.Time) (Dispute, error)
	SetDocumentTags(ctx context.Context, id, docID string, tags []string, at time.Time) (Dispute, error)
	// ApplyEscalation re-verifies the escalation marker under lock and, when
	// absent, writes the whole batch. Returns false without error when the
	// marker (or a terminal status) is already present.
	ApplyEscalation(ctx context.Context, id string, batch EscalationBatch) (bool, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const disputeColumns = `
	id, owner_user_id, creditor, collector, account_value, account_type,
	dispute_type, bureau, reason, status::text, submitted_at, response_deadline,
	violation_ids, outcome_result, outcome_details, outcome_follow_up,
	outcome_recorded_at, notes, created_at, updated_at
`

func scanDispute(row pgx.Row) (Dispute, error) {
	var (
		d              Dispute
		collector      *string
		bureau         *string
		outcomeResult  *string
		outcomeDetails *string
		outcomeFollow  *bool
		outcomeAt      *time.Time
		notes          *string
	)
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Account.Creditor, &collector, &d.Account.Value,
		&d.Account.AccountType, &d.Type, &bureau, &d.Reason, &d.Status,
		&d.SubmittedAt, &d.ResponseDeadline, &d.ViolationIDs, &outcomeResult,
		&outcomeDetails, &outcomeFollow, &outcomeAt, &notes, &d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return Dispute{}, err
	}
	if collector != nil {
		d.Account.Collector = *collector
	}
	if bureau != nil {
		d.Bureau = Bureau(*bureau)
	}
	if notes != nil {
		d.Notes = *notes
	}
	if outcomeResult != nil {
		d.Outcome = &Outcome{Result: OutcomeResult(*outcomeResult)}
		if outcomeDetails != nil {
			d.Outcome.Details = *outcomeDetails
		}
		if outcomeFollow != nil {
			d.Outcome.FollowUpRequired = *outcomeFollow
		}
		if outcomeAt != nil {
			d.Outcome.RecordedAt = *outcomeAt
		}
	}
	return d, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	d, err := scanDispute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: get: %w", err)
	}
	if err := r.loadSubCollections(ctx, &d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (r *PGRepository) List(ctx context.Context, f Filter) ([]Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE 1=1`
	args := []any{}
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		query += fmt.Sprintf(" AND owner_user_id = $%d", len(args))
	}
	if f.Bureau != "" {
		args = append(args, string(f.Bureau))
		query += fmt.Sprintf(" AND bureau = $%d", len(args))
	}
	if f.ExcludeTerminal {
		query += ` AND status NOT IN ('resolved_favorable','resolved_unfavorable','closed')`
	}
	if !f.DeadlineBefore.IsZero() {
		args = append(args, f.DeadlineBefore)
		query += fmt.Sprintf(" AND response_deadline < $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	out := make([]Dispute, 0, 8)
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	for i := range out {
		if err := r.loadSubCollections(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PGRepository) loadSubCollections(ctx context.Context, d *Dispute) error {
	hrows, err := r.pool.Query(ctx, `
		SELECT changed_at, from_status::text, to_status::text, COALESCE(notes,'')
		FROM dispute_status_history WHERE dispute_id = $1 ORDER BY seq
	`, d.ID)
	if err != nil {
		return fmt.Errorf("dispute: load history: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var c StatusChange
		if err := hrows.Scan(&c.Date, &c.From, &c.To, &c.Notes); err != nil {
			return fmt.Errorf("dispute: scan history: %w", err)
		}
		d.History = append(d.History, c)
	}
	if err := hrows.Err(); err != nil {
		return fmt.Errorf("dispute: iterate history: %w", err)
	}

	crows, err := r.pool.Query(ctx, `
		SELECT sent_at, direction::text, method::text, subject, summary
		FROM dispute_communications WHERE dispute_id = $1 ORDER BY id
	`, d.ID)
	if err != nil {
		return fmt.Errorf("dispute: load communications: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var c Communication
		if err := crows.Scan(&c.Date, &c.Direction, &c.Method, &c.Subject, &c.Summary); err != nil {
			return fmt.Errorf("dispute: scan communication: %w", err)
		}
		d.Communications = append(d.Communications, c)
	}
	if err := crows.Err(); err != nil {
		return fmt.Errorf("dispute: iterate communications: %w", err)
	}

	drows, err := r.pool.Query(ctx, `
		SELECT id, name, kind::text, COALESCE(content,''), tags, COALESCE(source,''),
		       auto_generated, escalation_marker, date_added
		FROM dispute_documents WHERE dispute_id = $1 ORDER BY date_added, id
	`, d.ID)
	if err != nil {
		return fmt.Errorf("dispute: load documents: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var doc Document
		if err := drows.Scan(&doc.ID, &doc.Name, &doc.Kind, &doc.Content, &doc.Tags,
			&doc.Source, &doc.AutoGenerated, &doc.EscalationMarker, &doc.DateAdded); err != nil {
			return fmt.Errorf("dispute: scan document: %w", err)
		}
		d.Documents = append(d.Documents, doc)
	}
	if err := drows.Err(); err != nil {
		return fmt.Errorf("dispute: iterate documents: %w", err)
	}
	return nil
}

func (r *PGRepository) Create(ctx context.Context, d Dispute) (Dispute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO disputes (
			id, owner_user_id, creditor, collector, account_value, account_type,
			dispute_type, bureau, reason, status, submitted_at, response_deadline,
			violation_ids, notes, created_at, updated_at
		) VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,$13,NULLIF($14,''),$15,$16)
	`
	if _, err := tx.Exec(ctx, insertSQL,
		d.ID, d.OwnerID, d.Account.Creditor, d.Account.Collector, d.Account.Value,
		d.Account.AccountType, string(d.Type), string(d.Bureau), d.Reason,
		string(d.Status), d.SubmittedAt, d.ResponseDeadline, d.ViolationIDs,
		d.Notes, d.CreatedAt, d.UpdatedAt,
	); err != nil {
		return Dispute{}, fmt.Errorf("dispute: insert: %w", err)
	}

	for i, c := range d.History {
		if err := insertHistory(ctx, tx, d.ID, i+1, c); err != nil {
			return Dispute{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("dispute: commit create: %w", err)
	}
	return d, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, disputeID string, seq int, c StatusChange) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO dispute_status_history (dispute_id, seq, changed_at, from_status, to_status, notes)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''))
	`, disputeID, seq, c.Date, string(c.From), string(c.To), c.Notes); err != nil {
		return fmt.Errorf("dispute: insert history: %w", err)
	}
	return nil
}

func nextHistorySeq(ctx context.Context, tx pgx.Tx, disputeID string) (int, error) {
	var seq int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq),0)+1 FROM dispute_status_history WHERE dispute_id=$1`,
		disputeID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("dispute: next history seq: %w", err)
	}
	return seq, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (Dispute, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(ctx, `SELECT status::text FROM disputes WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: fetch current status: %w", err)
	}
	change.From = Status(current)

	if _, err := tx.Exec(ctx, `UPDATE disputes SET status=$1, updated_at=$2 WHERE id=$3`,
		string(change.To), change.Date, id); err != nil {
		return Dispute{}, fmt.Errorf("dispute: update status: %w", err)
	}
	seq, err := nextHistorySeq(ctx, tx, id)
	if err != nil {
		return Dispute{}, err
	}
	if err := insertHistory(ctx, tx, id, seq, change); err != nil {
		return Dispute{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("dispute: commit status update: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) AppendCommunication(ctx context.Context, id string, c Communication) (Dispute, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO dispute_communications (dispute_id, sent_at, direction, method, subject, summary)
		SELECT $1,$2,$3,$4,$5,$6 WHERE EXISTS (SELECT 1 FROM disputes WHERE id=$1)
	`, id, c.Date, string(c.Direction), string(c.Method), c.Subject, c.Summary)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: append communication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Dispute{}, ErrNotFound
	}
	if _, err := r.pool.Exec(ctx, `UPDATE disputes SET updated_at=$1 WHERE id=$2`, c.Date, id); err != nil {
		return Dispute{}, fmt.Errorf("dispute: touch updated_at: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) AppendDocument(ctx context.Context, id string, doc Document) (Dispute, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO dispute_documents (id, dispute_id, name, kind, content, tags, source, auto_generated, escalation_marker, date_added)
		SELECT $1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),$8,$9,$10
		WHERE EXISTS (SELECT 1 FROM disputes WHERE id=$2)
	`, doc.ID, id, doc.Name, string(doc.Kind), doc.Content, doc.Tags, doc.Source,
		doc.AutoGenerated, doc.EscalationMarker, doc.DateAdded)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: append document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Dispute{}, ErrNotFound
	}
	if _, err := r.pool.Exec(ctx, `UPDATE disputes SET updated_at=$1 WHERE id=$2`, doc.DateAdded, id); err != nil {
		return Dispute{}, fmt.Errorf("dispute: touch updated_at: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) SetOutcome(ctx context.Context, id string, o Outcome) (Dispute, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE disputes
		SET outcome_result=$1, outcome_details=NULLIF($2,''), outcome_follow_up=$3,
		    outcome_recorded_at=$4, updated_at=$4
		WHERE id=$5
	`, string(o.Result), o.Details, o.FollowUpRequired, o.RecordedAt, id)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: set outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Dispute{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) SetNotes(ctx context.Context, id, notes string, at time.Time) (Dispute, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE disputes SET notes=NULLIF($1,''), updated_at=$2 WHERE id=$3`, notes, at, id)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: set notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Dispute{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) SetDocumentTags(ctx context.Context, id, docID string, tags []string, at time.Time) (Dispute, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dispute_documents SET tags=$1 WHERE id=$2 AND dispute_id=$3`, tags, docID, id)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: set document tags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM disputes WHERE id=$1)`, id).Scan(&exists); err != nil {
			return Dispute{}, fmt.Errorf("dispute: verify dispute: %w", err)
		}
		if !exists {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, ErrDocNotFound
	}
	if _, err := r.pool.Exec(ctx, `UPDATE disputes SET updated_at=$1 WHERE id=$2`, at, id); err != nil {
		return Dispute{}, fmt.Errorf("dispute: touch updated_at: %w", err)
	}
	return r.Get(ctx, id)
}

// ApplyEscalation locks the dispute row, re-checks the escalation marker and
// the terminal statuses, and writes documents, communication and status change
// in a single transaction. Concurrent callers serialize on the row lock, so at
// most one batch ever lands.
func (r *PGRepository) ApplyEscalation(ctx context.Context, id string, batch EscalationBatch) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(ctx, `SELECT status::text FROM disputes WHERE id=$1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("dispute: fetch for escalation: %w", err)
	}
	if Status(current).IsTerminal() {
		return false, nil
	}
	var marked bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dispute_documents WHERE dispute_id=$1 AND escalation_marker)`,
		id).Scan(&marked); err != nil {
		return false, fmt.Errorf("dispute: check escalation marker: %w", err)
	}
	if marked {
		return false, nil
	}

	for _, doc := range batch.Documents {
		if _, err := tx.Exec(ctx, `
			INSERT INTO dispute_documents (id, dispute_id, name, kind, content, tags, source, auto_generated, escalation_marker, date_added)
			VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),$8,$9,$10)
		`, doc.ID, id, doc.Name, string(doc.Kind), doc.Content, doc.Tags, doc.Source,
			doc.AutoGenerated, doc.EscalationMarker, doc.DateAdded); err != nil {
			return false, fmt.Errorf("dispute: insert escalation document: %w", err)
		}
	}
	c := batch.Communication
	if _, err := tx.Exec(ctx, `
		INSERT INTO dispute_communications (dispute_id, sent_at, direction, method, subject, summary)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, id, c.Date, string(c.Direction), string(c.Method), c.Subject, c.Summary); err != nil {
		return false, fmt.Errorf("dispute: insert escalation communication: %w", err)
	}

	change := batch.Change
	change.From = Status(current)
	if _, err := tx.Exec(ctx, `UPDATE disputes SET status=$1, updated_at=$2 WHERE id=$3`,
		string(change.To), change.Date, id); err != nil {
		return false, fmt.Errorf("dispute: escalation status update: %w", err)
	}
	seq, err := nextHistorySeq(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if err := insertHistory(ctx, tx, id, seq, change); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("dispute: commit escalation: %w", err)
	}
	return true, nil
}
