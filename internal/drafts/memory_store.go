package drafts

import (
	"context"
	"sync"
	"time"

	"github.com/johnrirwin/fieldreport/internal/models"
)

const (
	defaultMaxEntries = 1000
	defaultMaxBytes   = 256 * 1024 * 1024
)

type memoryEntry struct {
	draft     *models.ReportDraft
	size      int
	storedAt  time.Time
	expiresAt time.Time
}

// InMemoryStore keeps drafts in process memory. Entries expire after the TTL
// and the oldest are evicted once entry or byte limits are exceeded.
type InMemoryStore struct {
	mu         sync.Mutex
	drafts     map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	maxBytes   int
	totalBytes int
	now        func() time.Time
}

// NewInMemoryStore creates a draft store with the provided TTL.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return NewInMemoryStoreWithLimits(ttl, defaultMaxEntries, defaultMaxBytes)
}

// NewInMemoryStoreWithLimits creates a draft store with explicit limits.
func NewInMemoryStoreWithLimits(ttl time.Duration, maxEntries, maxBytes int) *InMemoryStore {
	if ttl <= 0 {
		ttl = defaultDraftTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &InMemoryStore{
		drafts:     make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

// Get returns a copy of the user's draft.
func (s *InMemoryStore) Get(_ context.Context, userID string) (*models.ReportDraft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked(s.now())

	entry, ok := s.drafts[userID]
	if !ok {
		return nil, false, nil
	}
	return clone(entry.draft), true, nil
}

// Put stores a copy of draft for the user.
func (s *InMemoryStore) Put(_ context.Context, userID string, draft *models.ReportDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanupLocked(now)
	s.removeLocked(userID)

	entry := memoryEntry{
		draft:     clone(draft),
		size:      draftSize(draft),
		storedAt:  now,
		expiresAt: now.Add(s.ttl),
	}
	s.drafts[userID] = entry
	s.totalBytes += entry.size

	s.evictLocked(userID)
	return nil
}

// Delete removes the user's draft.
func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(userID)
	return nil
}

func (s *InMemoryStore) removeLocked(userID string) {
	if entry, ok := s.drafts[userID]; ok {
		s.totalBytes -= entry.size
		delete(s.drafts, userID)
	}
}

func (s *InMemoryStore) cleanupLocked(now time.Time) {
	for id, entry := range s.drafts {
		if now.After(entry.expiresAt) {
			s.removeLocked(id)
		}
	}
}

// evictLocked drops the oldest drafts other than keep until limits hold.
func (s *InMemoryStore) evictLocked(keep string) {
	for len(s.drafts) > s.maxEntries || s.totalBytes > s.maxBytes {
		oldestID := ""
		var oldest time.Time
		for id, entry := range s.drafts {
			if id == keep {
				continue
			}
			if oldestID == "" || entry.storedAt.Before(oldest) {
				oldestID = id
				oldest = entry.storedAt
			}
		}
		if oldestID == "" {
			return
		}
		s.removeLocked(oldestID)
	}
}

var _ Store = (*InMemoryStore)(nil)
