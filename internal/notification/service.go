package notification

import (
	"context"
	"errors"
	"fmt"
)

// Reply texts for the inbound SMS verification machine.
const (
	ReplyWrongMessage = "Please respond with either YES or NO. Text STOP at any time to stop receiving text messages"
	ReplyNotFound     = "Could not find an Office Hours account with your phone number."
	ReplyUnregister   = "You've unregistered from text notifications for Office Hours. Feel free to re-register any time through the website"
	ReplyDuplicate    = "You've already been verified to receive text notifications from Office Hours!"
	ReplyOK           = "Thank you for verifying your number with Office Hours! You are now signed up for text notifications!"
)

const optInMessage = "You've signed up for phone notifications for Office Hours. To verify your number, please respond to this message with YES. To unsubscribe, respond to this message with NO or STOP"

// NumberLookup canonicalizes a phone number via the carrier, rejecting
// numbers the carrier does not recognize.
type NumberLookup interface {
	Lookup(ctx context.Context, number string) (string, error)
}

// Service handles channel registration and the inbound SMS verification
// state machine.
type Service struct {
	store            ChannelStore
	dispatcher       *Dispatcher
	lookup           NumberLookup
	desktopPublicKey string
}

// NewService creates a service. lookup may be nil to accept numbers as-is.
func NewService(store ChannelStore, dispatcher *Dispatcher, lookup NumberLookup, desktopPublicKey string) *Service {
	return &Service{
		store:            store,
		dispatcher:       dispatcher,
		lookup:           lookup,
		desktopPublicKey: desktopPublicKey,
	}
}

// DesktopPublicKey returns the VAPID public key browsers subscribe with.
func (s *Service) DesktopPublicKey() string {
	return s.desktopPublicKey
}

// RegisterDesktop stores a web-push subscription for a user.
func (s *Service) RegisterDesktop(ctx context.Context, userID, endpoint, p256dh, auth string) (DesktopChannel, error) {
	if userID == "" || endpoint == "" || p256dh == "" || auth == "" {
		return DesktopChannel{}, errors.New("user, endpoint and keys required")
	}
	return s.store.CreateDesktop(ctx, DesktopChannel{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
}

// RegisterPhone canonicalizes the number through the carrier lookup, stores
// it unverified and force-dispatches the opt-in confirmation so it reaches
// the still-unverified number.
func (s *Service) RegisterPhone(ctx context.Context, phoneNumber, userID string) error {
	if phoneNumber == "" || userID == "" {
		return errors.New("phone number and user required")
	}
	if s.lookup != nil {
		canonical, err := s.lookup.Lookup(ctx, phoneNumber)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPhoneNumber, err)
		}
		phoneNumber = canonical
	}

	ch, err := s.store.CreatePhone(ctx, PhoneChannel{
		UserID:      userID,
		PhoneNumber: phoneNumber,
		Verified:    false,
	})
	if err != nil {
		return err
	}

	s.dispatcher.NotifyPhone(ctx, ch, optInMessage, true)
	return nil
}

// HandleInboundSMS runs the verification state machine for one inbound reply
// and returns the text to send back. The three keywords are case-sensitive.
func (s *Service) HandleInboundSMS(ctx context.Context, fromNumber, body string) (string, error) {
	ch, err := s.store.FindPhoneByNumber(ctx, fromNumber)
	if errors.Is(err, ErrNotFound) {
		return ReplyNotFound, nil
	}
	if err != nil {
		return "", err
	}

	switch body {
	case "NO", "STOP":
		if err := s.store.DeletePhone(ctx, ch.ID); err != nil {
			return "", err
		}
		return ReplyUnregister, nil
	case "YES":
		if ch.Verified {
			return ReplyDuplicate, nil
		}
		if err := s.store.SetPhoneVerified(ctx, ch.ID, true); err != nil {
			return "", err
		}
		return ReplyOK, nil
	default:
		return ReplyWrongMessage, nil
	}
}
