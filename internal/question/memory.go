package question

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for dev and testing. A single mutex
// serializes claims the way the SQL compare-and-swap does.
type MemoryStore struct {
	mu        sync.Mutex
	questions map[string]Question
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{questions: make(map[string]Question)}
}

// Insert stores a new question.
func (s *MemoryStore) Insert(ctx context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Status == "" {
		q.Status = StatusDrafting
	}
	s.questions[q.ID] = q
	return q, nil
}

// Get returns a question by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

// Update rewrites an existing question.
func (s *MemoryStore) Update(ctx context.Context, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return Question{}, ErrNotFound
	}
	s.questions[q.ID] = q
	return q, nil
}

// Claim assigns a helper if and only if the question is still queued and
// unclaimed.
func (s *MemoryStore) Claim(ctx context.Context, id, helperID string, at time.Time) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	if q.Status != StatusQueued || q.HelperID != nil {
		return Question{}, ErrAlreadyClaimed
	}
	q.Status = StatusHelping
	q.HelperID = &helperID
	q.HelpedAt = &at
	s.questions[id] = q
	return q, nil
}

// ListByQueue returns questions for a queue ordered by creation time.
func (s *MemoryStore) ListByQueue(ctx context.Context, queueID string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Question
	for _, q := range s.questions {
		if q.QueueID == queueID {
			res = append(res, q)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// CountResolvedHelped counts resolved questions helped inside [from, to).
func (s *MemoryStore) CountResolvedHelped(ctx context.Context, helperID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.questions {
		if q.Status != StatusResolved || q.HelperID == nil || *q.HelperID != helperID || q.HelpedAt == nil {
			continue
		}
		if !q.HelpedAt.Before(from) && q.HelpedAt.Before(to) {
			n++
		}
	}
	return n, nil
}
