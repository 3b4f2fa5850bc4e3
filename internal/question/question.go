package question

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a question.
type Status string

const (
	StatusDrafting Status = "Drafting"
	StatusQueued   Status = "Queued"
	StatusHelping  Status = "Helping"
	StatusResolved Status = "Resolved"
	StatusDeleted  Status = "Deleted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDrafting, StatusQueued, StatusHelping, StatusResolved, StatusDeleted:
		return true
	}
	return false
}

// Terminal reports whether s ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusDeleted
}

// Question is a single student help request.
type Question struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	QueueID      string     `json:"queue_id"`
	Text         string     `json:"text"`
	QuestionType *string    `json:"question_type,omitempty"`
	Status       Status     `json:"status"`
	CreatorID    string     `json:"creator_id"`
	HelperID     *string    `json:"helper_id,omitempty"`
	HelpedAt     *time.Time `json:"helped_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Patch is a partial update submitted against a question.
type Patch struct {
	Text         *string
	QuestionType *string
	Status       *Status
}

var (
	// ErrNotFound means the referenced question does not exist.
	ErrNotFound = errors.New("question not found")

	// ErrAlreadyClaimed means another staff member won the claim race.
	ErrAlreadyClaimed = errors.New("question already claimed")

	// ErrInvalidQuestionState means the question content is not fit to queue
	// (empty text or missing type).
	ErrInvalidQuestionState = errors.New("question text and type required before queueing")
)

// InvalidTransitionError names the rejected source and target state.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
