package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is an in-memory Log for dev and testing.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append stores a new event.
func (l *MemoryLog) Append(ctx context.Context, evt Event) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}
	l.events = append(l.events, evt)
	return evt, nil
}

// ListCourseWindow returns matching events ordered by time.
func (l *MemoryLog) ListCourseWindow(ctx context.Context, courseID string, types []Type, start, end time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	wanted := make(map[Type]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var res []Event
	for _, evt := range l.events {
		if evt.CourseID != courseID || !wanted[evt.Type] {
			continue
		}
		if evt.Time.Before(start) || !evt.Time.Before(end) {
			continue
		}
		res = append(res, evt)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Time.Before(res[j].Time) })
	return res, nil
}
