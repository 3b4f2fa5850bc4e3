package event

import (
	"context"
	"time"
)

// Type classifies a domain event.
type Type string

const (
	TypeCheckedIn             Type = "checked_in"
	TypeCheckedOut            Type = "checked_out"
	TypeCheckedOutForced      Type = "checked_out_forced"
	TypeQuestionStatusChanged Type = "question_status_changed"
)

// Event is one timestamped domain event. Events are append-only and never
// mutated after being written.
type Event struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	UserID   string    `json:"user_id"`
	Type     Type      `json:"event_type"`
	Time     time.Time `json:"time"`
}

// Log is the append-only event sink with time-range reads.
type Log interface {
	Append(ctx context.Context, evt Event) (Event, error)
	// ListCourseWindow returns events for the course with one of the given
	// types and time in [start, end), ordered by time.
	ListCourseWindow(ctx context.Context, courseID string, types []Type, start, end time.Time) ([]Event, error)
}
