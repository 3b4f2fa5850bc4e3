package notification

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pusher delivers a desktop push notification.
type Pusher interface {
	Send(ctx context.Context, endpoint, p256dh, auth, message string) error
}

// Texter delivers an SMS.
type Texter interface {
	Send(ctx context.Context, to, body string) error
}

// Dispatcher fans a message out to every channel a user owns. Channel
// failures are handled locally and never reach the caller: a failed desktop
// push deregisters the subscription, a failed SMS is logged and dropped.
type Dispatcher struct {
	store   ChannelStore
	push    Pusher
	sms     Texter
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. timeout bounds each transport call.
func NewDispatcher(store ChannelStore, push Pusher, sms Texter, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{store: store, push: push, sms: sms, timeout: timeout}
}

// Notify sends message to all of the user's channels concurrently and waits
// for every attempt to settle. It never returns an error.
func (d *Dispatcher) Notify(ctx context.Context, userID, message string) {
	desktops, err := d.store.ListDesktopByUser(ctx, userID)
	if err != nil {
		log.Printf("list desktop channels for user %s failed: %v", userID, err)
	}
	phones, err := d.store.ListPhoneByUser(ctx, userID)
	if err != nil {
		log.Printf("list phone channels for user %s failed: %v", userID, err)
	}

	var wg sync.WaitGroup
	for _, ch := range desktops {
		wg.Add(1)
		go func(ch DesktopChannel) {
			defer wg.Done()
			d.notifyDesktop(ctx, ch, message)
		}(ch)
	}
	for _, ch := range phones {
		wg.Add(1)
		go func(ch PhoneChannel) {
			defer wg.Done()
			d.NotifyPhone(ctx, ch, message, false)
		}(ch)
	}
	wg.Wait()
}

// notifyDesktop pushes to one subscription. Any transport failure marks the
// subscription stale and removes it; there is no retry.
func (d *Dispatcher) notifyDesktop(ctx context.Context, ch DesktopChannel, message string) {
	if d.push == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.push.Send(sendCtx, ch.Endpoint, ch.P256dh, ch.Auth, message); err != nil {
		sendFailures.WithLabelValues("desktop").Inc()
		log.Printf("desktop push to channel %s failed, deregistering: %v", ch.ID, err)
		if delErr := d.store.DeleteDesktop(ctx, ch.ID); delErr != nil {
			log.Printf("deregister desktop channel %s failed: %v", ch.ID, delErr)
		}
		return
	}
	sendsTotal.WithLabelValues("desktop").Inc()
}

// NotifyPhone texts one phone channel. Unverified numbers are skipped unless
// force is set (the opt-in confirmation must reach an unverified number).
// Failures are logged and swallowed; the channel is kept.
func (d *Dispatcher) NotifyPhone(ctx context.Context, ch PhoneChannel, message string, force bool) {
	if d.sms == nil || (!force && !ch.Verified) {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sms.Send(sendCtx, ch.PhoneNumber, message); err != nil {
		sendFailures.WithLabelValues("phone").Inc()
		log.Printf("sms to channel %s failed: %v", ch.ID, err)
		return
	}
	sendsTotal.WithLabelValues("phone").Inc()
}
