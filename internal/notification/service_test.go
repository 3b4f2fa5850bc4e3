package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"officehours/internal/queue"
)

type fakeLookup struct {
	canonical string
	err       error
}

func (f *fakeLookup) Lookup(ctx context.Context, number string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.canonical != "" {
		return f.canonical, nil
	}
	return number, nil
}

func newPhoneService(t *testing.T, lookup NumberLookup) (*Service, *MemoryStore, *fakeTexter) {
	t.Helper()
	store := NewMemoryStore()
	sms := &fakeTexter{}
	d := NewDispatcher(store, nil, sms, time.Second)
	return NewService(store, d, lookup, "vapid-pub"), store, sms
}

func TestRegisterPhone_StoresCanonicalUnverifiedAndTextsOptIn(t *testing.T) {
	svc, store, sms := newPhoneService(t, &fakeLookup{canonical: "+15551234567"})
	ctx := context.Background()

	if err := svc.RegisterPhone(ctx, "555-123-4567", "u1"); err != nil {
		t.Fatalf("RegisterPhone: %v", err)
	}

	ch, err := store.FindPhoneByNumber(ctx, "+15551234567")
	if err != nil {
		t.Fatalf("FindPhoneByNumber: %v", err)
	}
	if ch.Verified {
		t.Error("new registration must start unverified")
	}
	if sms.count() != 1 || sms.sends[0].To != "+15551234567" {
		t.Errorf("opt-in text = %+v, want one to the canonical number", sms.sends)
	}
	if sms.sends[0].Body != optInMessage {
		t.Errorf("opt-in body = %q", sms.sends[0].Body)
	}
}

func TestRegisterPhone_LookupRejection(t *testing.T) {
	svc, _, sms := newPhoneService(t, &fakeLookup{err: errors.New("not a number")})
	err := svc.RegisterPhone(context.Background(), "garbage", "u1")
	if !errors.Is(err, ErrInvalidPhoneNumber) {
		t.Errorf("err = %v, want ErrInvalidPhoneNumber", err)
	}
	if sms.count() != 0 {
		t.Error("opt-in text sent for a rejected number")
	}
}

func TestHandleInboundSMS_UnknownNumber(t *testing.T) {
	svc, _, _ := newPhoneService(t, nil)
	reply, err := svc.HandleInboundSMS(context.Background(), "+15550000000", "YES")
	if err != nil {
		t.Fatalf("HandleInboundSMS: %v", err)
	}
	if reply != ReplyNotFound {
		t.Errorf("reply = %q, want ReplyNotFound", reply)
	}
}

func TestHandleInboundSMS_VerificationSequence(t *testing.T) {
	svc, store, _ := newPhoneService(t, nil)
	ctx := context.Background()
	if err := svc.RegisterPhone(ctx, "+15551234", "u1"); err != nil {
		t.Fatalf("RegisterPhone: %v", err)
	}

	steps := []struct {
		body string
		want string
	}{
		{"MAYBE", ReplyWrongMessage},
		{"yes", ReplyWrongMessage}, // keywords are case-sensitive
		{"YES", ReplyOK},
		{"YES", ReplyDuplicate},
	}
	for _, step := range steps {
		reply, err := svc.HandleInboundSMS(ctx, "+15551234", step.body)
		if err != nil {
			t.Fatalf("HandleInboundSMS(%q): %v", step.body, err)
		}
		if reply != step.want {
			t.Errorf("reply to %q = %q, want %q", step.body, reply, step.want)
		}
	}

	ch, err := store.FindPhoneByNumber(ctx, "+15551234")
	if err != nil {
		t.Fatalf("FindPhoneByNumber: %v", err)
	}
	if !ch.Verified {
		t.Error("channel not verified after YES")
	}
}

func TestHandleInboundSMS_WrongMessageLeavesUnverified(t *testing.T) {
	svc, store, _ := newPhoneService(t, nil)
	ctx := context.Background()
	if err := svc.RegisterPhone(ctx, "+15551234", "u1"); err != nil {
		t.Fatalf("RegisterPhone: %v", err)
	}
	if _, err := svc.HandleInboundSMS(ctx, "+15551234", "MAYBE"); err != nil {
		t.Fatalf("HandleInboundSMS: %v", err)
	}
	ch, _ := store.FindPhoneByNumber(ctx, "+15551234")
	if ch.Verified {
		t.Error("non-keyword reply verified the channel")
	}
}

func TestHandleInboundSMS_UnregisterKeywords(t *testing.T) {
	for _, keyword := range []string{"NO", "STOP"} {
		t.Run(keyword, func(t *testing.T) {
			svc, store, _ := newPhoneService(t, nil)
			ctx := context.Background()
			if err := svc.RegisterPhone(ctx, "+15551234", "u1"); err != nil {
				t.Fatalf("RegisterPhone: %v", err)
			}

			reply, err := svc.HandleInboundSMS(ctx, "+15551234", keyword)
			if err != nil {
				t.Fatalf("HandleInboundSMS: %v", err)
			}
			if reply != ReplyUnregister {
				t.Errorf("reply = %q, want ReplyUnregister", reply)
			}
			if _, err := store.FindPhoneByNumber(ctx, "+15551234"); !errors.Is(err, ErrNotFound) {
				t.Error("channel still present after unregister")
			}
		})
	}
}

func TestRegisterDesktop_RequiresSubscriptionFields(t *testing.T) {
	svc, store, _ := newPhoneService(t, nil)
	ctx := context.Background()

	if _, err := svc.RegisterDesktop(ctx, "u1", "https://push/1", "", "a"); err == nil {
		t.Error("subscription without p256dh accepted")
	}

	ch, err := svc.RegisterDesktop(ctx, "u1", "https://push/1", "k", "a")
	if err != nil {
		t.Fatalf("RegisterDesktop: %v", err)
	}
	if ch.ID == "" {
		t.Error("no id assigned")
	}
	desktops, _ := store.ListDesktopByUser(ctx, "u1")
	if len(desktops) != 1 {
		t.Errorf("stored %d desktop channels, want 1", len(desktops))
	}
}

func TestQueuePublisher_JobRoundTrip(t *testing.T) {
	q := queue.NewInMemory(1)
	pub := NewQueuePublisher(q)
	ctx := context.Background()

	if err := pub.QueueNotification(ctx, "u1", "your turn"); err != nil {
		t.Fatalf("QueueNotification: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	msg := <-msgs
	if msg.Type != JobType {
		t.Errorf("message type = %q, want %q", msg.Type, JobType)
	}
	job, err := DecodeJob(msg.Body)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if job.UserID != "u1" || job.Message != "your turn" {
		t.Errorf("job = %+v", job)
	}
}
