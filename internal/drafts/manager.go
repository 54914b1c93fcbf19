package drafts

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/johnrirwin/fieldreport/internal/models"
)

// Manager applies draft operations to the session's stored draft. A session
// without a stored draft gets one with defaults on first access.
//
// Each operation is a read-modify-write of the whole draft, so operations
// for the same user are serialised. The lock is held per process; replicas
// sharing a Redis store still race each other.
type Manager struct {
	store Store
	clock clockwork.Clock

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a draft manager.
func NewManager(store Store, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		store: store,
		clock: clock,
		locks: make(map[string]*userLock),
	}
}

// lock acquires the user's draft lock and returns its release func.
func (m *Manager) lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.mu.Unlock()
	}
}

// Current returns the session's draft, creating it if needed.
func (m *Manager) Current(ctx context.Context, session models.Session) (*models.ReportDraft, error) {
	unlock := m.lock(session.UserID)
	defer unlock()

	return m.current(ctx, session)
}

func (m *Manager) current(ctx context.Context, session models.Session) (*models.ReportDraft, error) {
	draft, ok, err := m.store.Get(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if ok {
		return draft, nil
	}

	draft = New(session, m.clock.Now())
	if err := m.store.Put(ctx, session.UserID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// put bumps the revision and stores the draft.
func (m *Manager) put(ctx context.Context, session models.Session, draft *models.ReportDraft) error {
	draft.Revision++
	return m.store.Put(ctx, session.UserID, draft)
}

// Update sets one field of the session's draft.
func (m *Manager) Update(ctx context.Context, session models.Session, key, value string) (*models.ReportDraft, error) {
	unlock := m.lock(session.UserID)
	defer unlock()

	draft, err := m.current(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := Update(draft, key, value); err != nil {
		return nil, err
	}
	if err := m.put(ctx, session, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// AttachImage replaces the draft's image.
func (m *Manager) AttachImage(ctx context.Context, session models.Session, img *models.NormalizedImage) error {
	unlock := m.lock(session.UserID)
	defer unlock()

	draft, err := m.current(ctx, session)
	if err != nil {
		return err
	}
	draft.Image = img
	if err := m.put(ctx, session, draft); err != nil {
		return fmt.Errorf("store draft image: %w", err)
	}
	return nil
}

// Reset discards the session's input and restores defaults.
func (m *Manager) Reset(ctx context.Context, session models.Session) (*models.ReportDraft, error) {
	unlock := m.lock(session.UserID)
	defer unlock()

	old, _, err := m.store.Get(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return m.reset(ctx, session, old)
}

// ResetIfUnchanged resets the draft only while it is still at revision.
// It reports false when the draft was written since that revision was read.
func (m *Manager) ResetIfUnchanged(ctx context.Context, session models.Session, revision int64) (bool, error) {
	unlock := m.lock(session.UserID)
	defer unlock()

	draft, ok, err := m.store.Get(ctx, session.UserID)
	if err != nil {
		return false, err
	}
	if ok && draft.Revision != revision {
		return false, nil
	}
	if _, err := m.reset(ctx, session, draft); err != nil {
		return false, err
	}
	return true, nil
}

// reset stores fresh defaults, keeping the revision count of old.
func (m *Manager) reset(ctx context.Context, session models.Session, old *models.ReportDraft) (*models.ReportDraft, error) {
	draft := New(session, m.clock.Now())
	if old != nil {
		draft.Revision = old.Revision
	}
	if err := m.put(ctx, session, draft); err != nil {
		return nil, err
	}
	return draft, nil
}
