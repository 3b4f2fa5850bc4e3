package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePusher struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (f *fakePusher) Send(ctx context.Context, endpoint, p256dh, auth, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, endpoint)
	return f.err
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeTexter struct {
	mu    sync.Mutex
	sends []struct{ To, Body string }
	err   error
}

func (f *fakeTexter) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, struct{ To, Body string }{to, body})
	return nil
}

func (f *fakeTexter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func TestNotify_FansOutToAllChannels(t *testing.T) {
	store := NewMemoryStore()
	push := &fakePusher{}
	sms := &fakeTexter{}
	d := NewDispatcher(store, push, sms, time.Second)
	ctx := context.Background()

	if _, err := store.CreateDesktop(ctx, DesktopChannel{UserID: "u1", Endpoint: "https://push/1", P256dh: "k", Auth: "a"}); err != nil {
		t.Fatalf("CreateDesktop: %v", err)
	}
	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234", Verified: true}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}
	// Another user's channels must not receive anything.
	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u2", PhoneNumber: "+15559999", Verified: true}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	d.Notify(ctx, "u1", "your turn")

	if push.count() != 1 {
		t.Errorf("push sends = %d, want 1", push.count())
	}
	if sms.count() != 1 || sms.sends[0].To != "+15551234" {
		t.Errorf("sms sends = %+v, want one to +15551234", sms.sends)
	}
}

func TestNotify_FailedDesktopDeregisteredOthersStillDelivered(t *testing.T) {
	store := NewMemoryStore()
	push := &fakePusher{err: errors.New("410 gone")}
	sms := &fakeTexter{}
	d := NewDispatcher(store, push, sms, time.Second)
	ctx := context.Background()

	ch, err := store.CreateDesktop(ctx, DesktopChannel{UserID: "u1", Endpoint: "https://push/1", P256dh: "k", Auth: "a"})
	if err != nil {
		t.Fatalf("CreateDesktop: %v", err)
	}
	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234", Verified: true}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	d.Notify(ctx, "u1", "your turn")

	if sms.count() != 1 {
		t.Errorf("phone delivery affected by desktop failure: sends = %d", sms.count())
	}
	desktops, err := store.ListDesktopByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListDesktopByUser: %v", err)
	}
	if len(desktops) != 0 {
		t.Errorf("stale desktop channel %s not deregistered", ch.ID)
	}
	if push.count() != 1 {
		t.Errorf("failed push attempted %d times, want 1 (no retry)", push.count())
	}
}

func TestNotify_UnverifiedPhoneSkipped(t *testing.T) {
	store := NewMemoryStore()
	sms := &fakeTexter{}
	d := NewDispatcher(store, nil, sms, time.Second)
	ctx := context.Background()

	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234"}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	d.Notify(ctx, "u1", "your turn")
	if sms.count() != 0 {
		t.Errorf("unverified phone received %d messages, want 0", sms.count())
	}
}

func TestNotifyPhone_ForceReachesUnverified(t *testing.T) {
	store := NewMemoryStore()
	sms := &fakeTexter{}
	d := NewDispatcher(store, nil, sms, time.Second)
	ctx := context.Background()

	ch, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234"})
	if err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	d.NotifyPhone(ctx, ch, "please verify", true)
	if sms.count() != 1 {
		t.Errorf("forced send to unverified phone: sends = %d, want 1", sms.count())
	}
}

func TestNotifyPhone_FailureKeepsChannel(t *testing.T) {
	store := NewMemoryStore()
	sms := &fakeTexter{err: errors.New("carrier down")}
	d := NewDispatcher(store, nil, sms, time.Second)
	ctx := context.Background()

	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234", Verified: true}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	d.Notify(ctx, "u1", "your turn")

	phones, err := store.ListPhoneByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPhoneByUser: %v", err)
	}
	if len(phones) != 1 {
		t.Errorf("phone channel dropped after a transient send failure")
	}
}

func TestNotify_NilTransportsAreNoops(t *testing.T) {
	store := NewMemoryStore()
	d := NewDispatcher(store, nil, nil, time.Second)
	ctx := context.Background()

	if _, err := store.CreateDesktop(ctx, DesktopChannel{UserID: "u1", Endpoint: "https://push/1", P256dh: "k", Auth: "a"}); err != nil {
		t.Fatalf("CreateDesktop: %v", err)
	}
	if _, err := store.CreatePhone(ctx, PhoneChannel{UserID: "u1", PhoneNumber: "+15551234", Verified: true}); err != nil {
		t.Fatalf("CreatePhone: %v", err)
	}

	// Must not panic or mutate channels.
	d.Notify(ctx, "u1", "your turn")

	desktops, _ := store.ListDesktopByUser(ctx, "u1")
	if len(desktops) != 1 {
		t.Error("desktop channel removed with no pusher configured")
	}
}
