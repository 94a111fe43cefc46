// Package postgres is a PostgreSQL-backed repository.Store built on sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okian/hackscore/internal/adapters/repository"
	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/metrics"
)

// foreignKeyViolation is the PostgreSQL SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

const (
	defaultQueryTimeout = 5 * time.Second
	defaultMaxOpenConns = 10
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db           *sqlx.DB
	timeout      time.Duration
	maxOpenConns int
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := New(db, opts...)
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return s, nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, timeout: defaultQueryTimeout, maxOpenConns: defaultMaxOpenConns}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const (
	upsertRubricQuery = `
		INSERT INTO rubrics (id, challenge_id, nombre, escala_minima, escala_maxima, porcentaje)
		VALUES (:id, :challenge_id, :nombre, :escala_minima, :escala_maxima, :porcentaje)
		ON CONFLICT (id) DO UPDATE SET
			challenge_id = EXCLUDED.challenge_id,
			nombre = EXCLUDED.nombre,
			escala_minima = EXCLUDED.escala_minima,
			escala_maxima = EXCLUDED.escala_maxima,
			porcentaje = EXCLUDED.porcentaje`

	challengeRubricsQuery = `
		SELECT id, challenge_id, nombre, escala_minima, escala_maxima, porcentaje
		FROM rubrics
		WHERE challenge_id = $1
		ORDER BY id`

	// Held until commit; serializes checked writes to one challenge even
	// while it has no rubric rows to lock.
	challengeLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

// PutRubric upserts r in a transaction. With a check, the challenge is locked
// and its rubrics are read and vetted before the write.
func (s *Store) PutRubric(ctx context.Context, r model.Rubric, check repository.RubricCheck) error {
	ctx, done := s.begin(ctx, "put_rubric")
	defer done()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail("failed to begin rubric transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if check != nil {
		if _, err := tx.ExecContext(ctx, challengeLockQuery, r.ChallengeID); err != nil {
			return s.fail("failed to lock challenge", err)
		}
		existing := []model.Rubric{}
		if err := tx.SelectContext(ctx, &existing, challengeRubricsQuery+" FOR UPDATE", r.ChallengeID); err != nil {
			return s.fail("failed to list rubrics", err)
		}
		if err := check(existing); err != nil {
			return err
		}
	}

	if _, err := tx.NamedExecContext(ctx, upsertRubricQuery, r); err != nil {
		return s.fail("failed to upsert rubric", err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail("failed to commit rubric", err)
	}
	return nil
}

func (s *Store) Rubric(ctx context.Context, id string) (model.Rubric, error) {
	ctx, done := s.begin(ctx, "rubric")
	defer done()

	var r model.Rubric
	query := `
		SELECT id, challenge_id, nombre, escala_minima, escala_maxima, porcentaje
		FROM rubrics
		WHERE id = $1`
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Rubric{}, fmt.Errorf("rubric %q: %w", id, repository.ErrNotFound)
		}
		return model.Rubric{}, s.fail("failed to get rubric", err)
	}
	return r, nil
}

func (s *Store) Rubrics(ctx context.Context, challengeID string) ([]model.Rubric, error) {
	ctx, done := s.begin(ctx, "rubrics")
	defer done()

	out := []model.Rubric{}
	if err := s.db.SelectContext(ctx, &out, challengeRubricsQuery, challengeID); err != nil {
		return nil, s.fail("failed to list rubrics", err)
	}
	return out, nil
}

func (s *Store) PutSubmission(ctx context.Context, sub model.Submission) error {
	ctx, done := s.begin(ctx, "put_submission")
	defer done()

	query := `
		INSERT INTO submissions (id, team_id, challenge_id, status, created_at, puntaje_final)
		VALUES (:id, :team_id, :challenge_id, :status, :created_at, :puntaje_final)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			challenge_id = EXCLUDED.challenge_id,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			puntaje_final = COALESCE(EXCLUDED.puntaje_final, submissions.puntaje_final)`

	if _, err := s.db.NamedExecContext(ctx, query, sub); err != nil {
		return s.fail("failed to upsert submission", err)
	}
	return nil
}

func (s *Store) Submission(ctx context.Context, id string) (model.Submission, error) {
	ctx, done := s.begin(ctx, "submission")
	defer done()

	var sub model.Submission
	query := `
		SELECT id, team_id, challenge_id, status, created_at, puntaje_final
		FROM submissions
		WHERE id = $1`
	if err := s.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Submission{}, fmt.Errorf("submission %q: %w", id, repository.ErrNotFound)
		}
		return model.Submission{}, s.fail("failed to get submission", err)
	}
	return sub, nil
}

func (s *Store) Submissions(ctx context.Context, challengeID string) ([]model.Submission, error) {
	ctx, done := s.begin(ctx, "submissions")
	defer done()

	out := []model.Submission{}
	query := `
		SELECT id, team_id, challenge_id, status, created_at, puntaje_final
		FROM submissions
		WHERE challenge_id = $1
		ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &out, query, challengeID); err != nil {
		return nil, s.fail("failed to list submissions", err)
	}
	return out, nil
}

func (s *Store) SetFinalScore(ctx context.Context, challengeID, teamID string, score float64) (int, error) {
	ctx, done := s.begin(ctx, "set_final_score")
	defer done()

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET puntaje_final = $1 WHERE challenge_id = $2 AND team_id = $3`,
		score, challengeID, teamID)
	if err != nil {
		return 0, s.fail("failed to set final score", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail("failed to read affected rows", err)
	}
	return int(n), nil
}

func (s *Store) AddEvaluation(ctx context.Context, e model.Evaluation) (bool, error) {
	ctx, done := s.begin(ctx, "add_evaluation")
	defer done()

	query := `
		INSERT INTO evaluations (id, rubric_id, team_id, submission_id, juez_id, calificacion, comentarios, created_at)
		VALUES (:id, :rubric_id, :team_id, :submission_id, :juez_id, :calificacion, :comentarios, :created_at)
		ON CONFLICT (id) DO NOTHING`

	res, err := s.db.NamedExecContext(ctx, query, e)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return false, fmt.Errorf("rubric %q: %w", e.RubricID, repository.ErrNotFound)
		}
		return false, s.fail("failed to insert evaluation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail("failed to read affected rows", err)
	}
	return n > 0, nil
}

const evaluationColumns = `e.id, e.rubric_id, e.team_id, e.submission_id, e.juez_id, e.calificacion, e.comentarios, e.created_at`

func (s *Store) Evaluations(ctx context.Context, challengeID string) ([]model.Evaluation, error) {
	ctx, done := s.begin(ctx, "evaluations")
	defer done()

	out := []model.Evaluation{}
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations e
		JOIN rubrics r ON r.id = e.rubric_id
		WHERE r.challenge_id = $1
		ORDER BY e.created_at, e.id`
	if err := s.db.SelectContext(ctx, &out, query, challengeID); err != nil {
		return nil, s.fail("failed to list evaluations", err)
	}
	return out, nil
}

func (s *Store) TeamEvaluations(ctx context.Context, challengeID, teamID string) ([]model.Evaluation, error) {
	ctx, done := s.begin(ctx, "team_evaluations")
	defer done()

	out := []model.Evaluation{}
	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations e
		JOIN rubrics r ON r.id = e.rubric_id
		WHERE r.challenge_id = $1 AND e.team_id = $2
		ORDER BY e.created_at, e.id`
	if err := s.db.SelectContext(ctx, &out, query, challengeID, teamID); err != nil {
		return nil, s.fail("failed to list team evaluations", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (repository.Counts, error) {
	ctx, done := s.begin(ctx, "count")
	defer done()

	var c repository.Counts
	query := `
		SELECT
			(SELECT COUNT(*) FROM rubrics) AS rubrics,
			(SELECT COUNT(*) FROM submissions) AS submissions,
			(SELECT COUNT(*) FROM evaluations) AS evaluations`
	if err := s.db.GetContext(ctx, &c, query); err != nil {
		return repository.Counts{}, s.fail("failed to count records", err)
	}
	return c, nil
}

// begin applies the query timeout and returns a func that records latency
// and releases the context.
func (s *Store) begin(ctx context.Context, op string) (context.Context, func()) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
	}
}

func (s *Store) fail(msg string, err error) error {
	metrics.RecordErrorByComponent("postgres", "query_failed")
	return fmt.Errorf("%s: %w", msg, err)
}
