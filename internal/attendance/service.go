package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"officehours/internal/event"
)

// HelpCounter counts resolved questions a helper handled inside a window.
type HelpCounter interface {
	CountResolvedHelped(ctx context.Context, helperID string, from, to time.Time) (int, error)
}

// UserDirectory resolves staff display names for reports.
type UserDirectory interface {
	UserName(ctx context.Context, userID string) (string, error)
}

// SessionSummary is one derived attendance session: a check-in paired with
// its earliest later terminator, or still in progress.
type SessionSummary struct {
	UserName     string     `json:"name"`
	CheckinTime  time.Time  `json:"checkin_time"`
	CheckoutTime *time.Time `json:"checkout_time,omitempty"`
	InProgress   bool       `json:"in_progress"`
	Forced       bool       `json:"forced"`
	NumHelped    int        `json:"num_helped"`
}

// Service records staff attendance events and reconciles them into sessions.
type Service struct {
	events    event.Log
	questions HelpCounter
	users     UserDirectory
	now       func() time.Time
}

// NewService creates a service. users may be nil; summaries then carry raw ids.
func NewService(events event.Log, questions HelpCounter, users UserDirectory) *Service {
	return &Service{
		events:    events,
		questions: questions,
		users:     users,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RecordEvent appends one staff check-in/out event. Append-only; succeeds
// whenever the inputs are valid.
func (s *Service) RecordEvent(ctx context.Context, courseID, userID string, t event.Type) (event.Event, error) {
	switch t {
	case event.TypeCheckedIn, event.TypeCheckedOut, event.TypeCheckedOutForced:
	default:
		return event.Event{}, fmt.Errorf("unsupported attendance event type %q", t)
	}
	if courseID == "" || userID == "" {
		return event.Event{}, errors.New("course and user required")
	}
	return s.events.Append(ctx, event.Event{
		CourseID: courseID,
		UserID:   userID,
		Type:     t,
		Time:     s.now(),
	})
}

// Report pairs check-in events with their terminators over [start, end) and
// counts how many resolved questions each session helped with. One entry per
// check-in event; unmatched check-ins appear as in-progress. Overlapping
// check-ins for the same user are evaluated independently, matching the
// recorded data even when a check-out is missing.
func (s *Service) Report(ctx context.Context, courseID string, start, end time.Time) ([]SessionSummary, error) {
	// A report for a single day is queried as that whole day.
	if sameUTCDate(start, end) {
		end = end.AddDate(0, 0, 1)
	}

	events, err := s.events.ListCourseWindow(ctx, courseID, []event.Type{
		event.TypeCheckedIn,
		event.TypeCheckedOut,
		event.TypeCheckedOutForced,
	}, start, end)
	if err != nil {
		return nil, err
	}

	var checkins []event.Event
	terminators := make(map[string][]event.Event)
	for _, evt := range events {
		if evt.Type == event.TypeCheckedIn {
			checkins = append(checkins, evt)
		} else {
			terminators[evt.UserID] = append(terminators[evt.UserID], evt)
		}
	}
	for _, evts := range terminators {
		sort.Slice(evts, func(i, j int) bool { return evts[i].Time.Before(evts[j].Time) })
	}

	now := s.now()
	summaries := make([]SessionSummary, 0, len(checkins))
	for _, checkin := range checkins {
		summary := SessionSummary{
			UserName:    s.userName(ctx, checkin.UserID),
			CheckinTime: checkin.Time,
			InProgress:  true,
		}
		closeTime := now

		userTerms := terminators[checkin.UserID]
		idx := sort.Search(len(userTerms), func(i int) bool {
			return userTerms[i].Time.After(checkin.Time)
		})
		if idx < len(userTerms) {
			closing := userTerms[idx]
			t := closing.Time
			summary.CheckoutTime = &t
			summary.InProgress = false
			summary.Forced = closing.Type == event.TypeCheckedOutForced
			closeTime = closing.Time
		}

		helped, err := s.questions.CountResolvedHelped(ctx, checkin.UserID, checkin.Time, closeTime)
		if err != nil {
			return nil, err
		}
		summary.NumHelped = helped
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Service) userName(ctx context.Context, userID string) string {
	if s.users == nil {
		return userID
	}
	name, err := s.users.UserName(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			log.Printf("resolve name for user %s failed: %v", userID, err)
		}
		return userID
	}
	return name
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
