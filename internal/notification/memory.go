package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory ChannelStore for dev and testing.
type MemoryStore struct {
	mu       sync.Mutex
	desktops map[string]DesktopChannel
	phones   map[string]PhoneChannel
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		desktops: make(map[string]DesktopChannel),
		phones:   make(map[string]PhoneChannel),
	}
}

// CreateDesktop registers a web-push subscription.
func (s *MemoryStore) CreateDesktop(ctx context.Context, ch DesktopChannel) (DesktopChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	s.desktops[ch.ID] = ch
	return ch, nil
}

// DeleteDesktop removes a subscription.
func (s *MemoryStore) DeleteDesktop(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.desktops, id)
	return nil
}

// ListDesktopByUser returns desktop channels owned by a user.
func (s *MemoryStore) ListDesktopByUser(ctx context.Context, userID string) ([]DesktopChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []DesktopChannel
	for _, ch := range s.desktops {
		if ch.UserID == userID {
			res = append(res, ch)
		}
	}
	return res, nil
}

// CreatePhone registers a phone number.
func (s *MemoryStore) CreatePhone(ctx context.Context, ch PhoneChannel) (PhoneChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	s.phones[ch.ID] = ch
	return ch, nil
}

// FindPhoneByNumber looks up a channel by sender number.
func (s *MemoryStore) FindPhoneByNumber(ctx context.Context, number string) (PhoneChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.phones {
		if ch.PhoneNumber == number {
			return ch, nil
		}
	}
	return PhoneChannel{}, ErrNotFound
}

// SetPhoneVerified flips the verification gate.
func (s *MemoryStore) SetPhoneVerified(ctx context.Context, id string, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.phones[id]
	if !ok {
		return ErrNotFound
	}
	ch.Verified = verified
	s.phones[id] = ch
	return nil
}

// DeletePhone removes a phone channel.
func (s *MemoryStore) DeletePhone(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.phones, id)
	return nil
}

// ListPhoneByUser returns phone channels owned by a user.
func (s *MemoryStore) ListPhoneByUser(ctx context.Context, userID string) ([]PhoneChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []PhoneChannel
	for _, ch := range s.phones {
		if ch.UserID == userID {
			res = append(res, ch)
		}
	}
	return res, nil
}
