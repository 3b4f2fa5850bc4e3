package question

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"officehours/internal/event"
)

// Notifier hands a message off for best-effort delivery. Implementations must
// not block on the actual transports; the state machine treats publish
// failures as non-fatal.
type Notifier interface {
	QueueNotification(ctx context.Context, userID, message string) error
}

// Actor identifies who is performing a transition.
type Actor struct {
	ID    string
	Staff bool
}

// ErrNotAllowed means the actor may not perform this transition.
var ErrNotAllowed = errors.New("actor not allowed to perform this transition")

const (
	msgHelping  = "A staff member is on their way to help you with your question!"
	msgResolved = "Your question has been resolved. If you need more help, feel free to rejoin the queue."
)

// Service owns the question lifecycle. Transitions are validated here and
// serialized per question at the store (compare-and-swap claim).
type Service struct {
	store    Store
	events   event.Log
	notifier Notifier
	now      func() time.Time
}

// NewService creates a service. notifier may be nil to disable notifications.
func NewService(store Store, events event.Log, notifier Notifier) *Service {
	return &Service{
		store:    store,
		events:   events,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateDraft opens a new question in Drafting for a student.
func (s *Service) CreateDraft(ctx context.Context, courseID, queueID, creatorID string) (Question, error) {
	if courseID == "" || queueID == "" || creatorID == "" {
		return Question{}, errors.New("course, queue and creator required")
	}
	return s.store.Insert(ctx, Question{
		CourseID:  courseID,
		QueueID:   queueID,
		Status:    StatusDrafting,
		CreatorID: creatorID,
		CreatedAt: s.now(),
	})
}

// ListQueue returns the questions of a queue.
func (s *Service) ListQueue(ctx context.Context, queueID string) ([]Question, error) {
	return s.store.ListByQueue(ctx, queueID)
}

// Update applies a patch to a question. Content fields are applied first,
// then the status transition if one is requested. A patch carrying the
// current status is a no-op on the status.
func (s *Service) Update(ctx context.Context, id string, actor Actor, p Patch) (Question, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return Question{}, err
	}

	changed := false
	if p.Text != nil && *p.Text != q.Text {
		q.Text = *p.Text
		changed = true
	}
	if p.QuestionType != nil {
		q.QuestionType = p.QuestionType
		changed = true
	}
	if changed && q.Status.Terminal() {
		return Question{}, &InvalidTransitionError{From: q.Status, To: q.Status}
	}

	if p.Status == nil || *p.Status == q.Status {
		if p.Status != nil && *p.Status == StatusHelping && q.HelperID != nil && *q.HelperID != actor.ID {
			return Question{}, ErrAlreadyClaimed
		}
		if !changed {
			return q, nil
		}
		return s.store.Update(ctx, q)
	}

	return s.transition(ctx, q, actor, *p.Status)
}

func (s *Service) transition(ctx context.Context, q Question, actor Actor, target Status) (Question, error) {
	from := q.Status
	var notifyMsg string

	switch target {
	case StatusQueued:
		switch from {
		case StatusDrafting:
			if strings.TrimSpace(q.Text) == "" || q.QuestionType == nil {
				return Question{}, ErrInvalidQuestionState
			}
		case StatusHelping:
			if !actor.Staff {
				return Question{}, ErrNotAllowed
			}
			q.HelperID = nil
			q.HelpedAt = nil
		default:
			return Question{}, &InvalidTransitionError{From: from, To: target}
		}
		q.Status = StatusQueued

	case StatusHelping:
		if from != StatusQueued {
			return Question{}, &InvalidTransitionError{From: from, To: target}
		}
		if !actor.Staff {
			return Question{}, ErrNotAllowed
		}
		claimed, err := s.store.Claim(ctx, q.ID, actor.ID, s.now())
		if err != nil {
			return Question{}, err
		}
		s.afterTransition(ctx, claimed, actor, from, msgHelping)
		return claimed, nil

	case StatusResolved:
		if from != StatusHelping {
			return Question{}, &InvalidTransitionError{From: from, To: target}
		}
		if !actor.Staff {
			return Question{}, ErrNotAllowed
		}
		q.Status = StatusResolved
		notifyMsg = msgResolved

	case StatusDeleted:
		if from.Terminal() {
			return Question{}, &InvalidTransitionError{From: from, To: target}
		}
		if !actor.Staff && actor.ID != q.CreatorID {
			return Question{}, ErrNotAllowed
		}
		q.HelperID = nil
		q.HelpedAt = nil
		q.Status = StatusDeleted

	default:
		return Question{}, &InvalidTransitionError{From: from, To: target}
	}

	updated, err := s.store.Update(ctx, q)
	if err != nil {
		return Question{}, err
	}
	s.afterTransition(ctx, updated, actor, from, notifyMsg)
	return updated, nil
}

// afterTransition runs the post-commit side effects: event append and, when a
// message is set, a single notification to the creator. Neither can fail the
// transition; the persisted state change is the source of truth.
func (s *Service) afterTransition(ctx context.Context, q Question, actor Actor, from Status, notifyMsg string) {
	transitionsTotal.WithLabelValues(string(from), string(q.Status)).Inc()

	if _, err := s.events.Append(ctx, event.Event{
		CourseID: q.CourseID,
		UserID:   actor.ID,
		Type:     event.TypeQuestionStatusChanged,
		Time:     s.now(),
	}); err != nil {
		log.Printf("append status event for question %s failed: %v", q.ID, err)
	}

	if notifyMsg == "" || s.notifier == nil {
		return
	}
	if err := s.notifier.QueueNotification(ctx, q.CreatorID, notifyMsg); err != nil {
		log.Printf("queue notification for question %s failed: %v", q.ID, err)
	}
}
