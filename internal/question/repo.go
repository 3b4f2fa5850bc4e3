package question

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract the state machine depends on.
type Store interface {
	Insert(ctx context.Context, q Question) (Question, error)
	Get(ctx context.Context, id string) (Question, error)
	Update(ctx context.Context, q Question) (Question, error)
	// Claim atomically assigns a helper to a queued, unclaimed question.
	// Returns ErrAlreadyClaimed when the question is no longer claimable.
	Claim(ctx context.Context, id, helperID string, at time.Time) (Question, error)
	ListByQueue(ctx context.Context, queueID string) ([]Question, error)
	// CountResolvedHelped counts resolved questions helped by helperID with
	// helpedAt in [from, to).
	CountResolvedHelped(ctx context.Context, helperID string, from, to time.Time) (int, error)
}

// Repository persists questions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const questionColumns = `id, course_id, queue_id, text, question_type, status, creator_id, helper_id, helped_at, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (Question, error) {
	var q Question
	err := row.Scan(&q.ID, &q.CourseID, &q.QueueID, &q.Text, &q.QuestionType,
		&q.Status, &q.CreatorID, &q.HelperID, &q.HelpedAt, &q.CreatedAt)
	return q, err
}

// Insert writes a new question row.
func (r *Repository) Insert(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Status == "" {
		q.Status = StatusDrafting
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (id, course_id, queue_id, text, question_type, status, creator_id, helper_id, helped_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, q.ID, q.CourseID, q.QueueID, q.Text, q.QuestionType, q.Status, q.CreatorID, q.HelperID, q.HelpedAt, q.CreatedAt)
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// Get returns a question by id.
func (r *Repository) Get(ctx context.Context, id string) (Question, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

// Update rewrites the mutable fields of an existing question.
func (r *Repository) Update(ctx context.Context, q Question) (Question, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE questions
		SET text = $2, question_type = $3, status = $4, helper_id = $5, helped_at = $6
		WHERE id = $1
	`, q.ID, q.Text, q.QuestionType, q.Status, q.HelperID, q.HelpedAt)
	if err != nil {
		return Question{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Question{}, ErrNotFound
	}
	return q, nil
}

// Claim performs a compare-and-swap claim so at most one staff member wins.
// The WHERE clause is the serialization point: it only matches a queued row
// with no helper, so a concurrent claim updates zero rows.
func (r *Repository) Claim(ctx context.Context, id, helperID string, at time.Time) (Question, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE questions
		SET status = $2, helper_id = $3, helped_at = $4
		WHERE id = $1 AND status = $5 AND helper_id IS NULL
		RETURNING `+questionColumns+`
	`, id, StatusHelping, helperID, at, StatusQueued)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a lost race from a missing question.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Question{}, getErr
		}
		return Question{}, ErrAlreadyClaimed
	}
	return q, err
}

// ListByQueue returns all questions for a queue, oldest first.
func (r *Repository) ListByQueue(ctx context.Context, queueID string) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE queue_id = $1
		ORDER BY created_at
	`, queueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

// CountResolvedHelped counts resolved questions a helper handled inside a window.
func (r *Repository) CountResolvedHelped(ctx context.Context, helperID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM questions
		WHERE helper_id = $1 AND status = $2 AND helped_at >= $3 AND helped_at < $4
	`, helperID, StatusResolved, from, to).Scan(&n)
	return n, err
}
