package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append writes a new event. ID and time are defaulted when empty.
func (r *Repository) Append(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, course_id, user_id, event_type, time)
		VALUES ($1,$2,$3,$4,$5)
	`, evt.ID, evt.CourseID, evt.UserID, evt.Type, evt.Time)
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ListCourseWindow returns matching events ordered by time.
func (r *Repository) ListCourseWindow(ctx context.Context, courseID string, types []Type, start, end time.Time) ([]Event, error) {
	args := []any{courseID, start, end}
	placeholders := ""
	for i, t := range types {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", len(args)+1)
		args = append(args, string(t))
	}
	query := `
		SELECT id, course_id, user_id, event_type, time
		FROM events
		WHERE course_id = $1 AND time >= $2 AND time < $3 AND event_type IN (` + placeholders + `)
		ORDER BY time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.CourseID, &evt.UserID, &evt.Type, &evt.Time); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
