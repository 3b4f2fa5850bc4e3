package event

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLog_WindowFiltering(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	add := func(courseID string, typ Type, at time.Time) {
		if _, err := log.Append(ctx, Event{CourseID: courseID, UserID: "u", Type: typ, Time: at}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	add("c1", TypeCheckedIn, base.Add(2*time.Hour))             // in
	add("c1", TypeCheckedOut, base.Add(3*time.Hour))            // in
	add("c1", TypeQuestionStatusChanged, base.Add(4*time.Hour)) // wrong type
	add("c2", TypeCheckedIn, base.Add(2*time.Hour))             // wrong course
	add("c1", TypeCheckedIn, base.Add(-time.Hour))              // before window
	add("c1", TypeCheckedIn, base.Add(24*time.Hour))            // at end, excluded

	got, err := log.ListCourseWindow(ctx, "c1", []Type{TypeCheckedIn, TypeCheckedOut}, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListCourseWindow: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if !got[0].Time.Before(got[1].Time) {
		t.Error("events not ordered by time")
	}
}

func TestMemoryLog_AppendAssignsIDAndTime(t *testing.T) {
	log := NewMemoryLog()
	evt, err := log.Append(context.Background(), Event{CourseID: "c1", UserID: "u", Type: TypeCheckedIn})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if evt.ID == "" {
		t.Error("no id assigned")
	}
	if evt.Time.IsZero() {
		t.Error("no timestamp assigned")
	}
}
