package notification

import (
	"context"
	"errors"
	"time"
)

// DesktopChannel is a web-push subscription registered by a user.
type DesktopChannel struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

// PhoneChannel is a phone number registered for SMS notifications. Only
// verified numbers receive regular notifications; the opt-in confirmation is
// force-dispatched to unverified numbers.
type PhoneChannel struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PhoneNumber string    `json:"phone_number"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	// ErrNotFound means the referenced channel does not exist.
	ErrNotFound = errors.New("channel not found")

	// ErrInvalidPhoneNumber means the carrier lookup rejected the number.
	ErrInvalidPhoneNumber = errors.New("phone number invalid")
)

// ChannelStore is the persistence contract for notification channels.
type ChannelStore interface {
	CreateDesktop(ctx context.Context, ch DesktopChannel) (DesktopChannel, error)
	DeleteDesktop(ctx context.Context, id string) error
	ListDesktopByUser(ctx context.Context, userID string) ([]DesktopChannel, error)

	CreatePhone(ctx context.Context, ch PhoneChannel) (PhoneChannel, error)
	FindPhoneByNumber(ctx context.Context, number string) (PhoneChannel, error)
	SetPhoneVerified(ctx context.Context, id string, verified bool) error
	DeletePhone(ctx context.Context, id string) error
	ListPhoneByUser(ctx context.Context, userID string) ([]PhoneChannel, error)
}
