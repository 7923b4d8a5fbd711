package staging

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fan-ledger/constants"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
)

// Preview is the cropped review image of one analyzed screenshot.
type Preview struct {
	Source string
	JPEG   []byte
}

// Failure records an image that produced no tokens.
type Failure struct {
	Source string
	Reason string
}

// Session is one analyze run awaiting review.
type Session struct {
	ID        uuid.UUID
	Status    constants.SessionStatus
	Entries   []extract.Entry
	Previews  []Preview
	Failures  []Failure
	CreatedAt time.Time
}

func NewSession(entries []extract.Entry, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		Status:    constants.SessionStaged,
		Entries:   Aggregate(entries),
		CreatedAt: now,
	}
}

// Sessions keeps staged sessions in memory for the daemon. When full, the oldest
// session is evicted on Put.
type Sessions struct {
	mu    sync.Mutex
	limit int
	byID  map[uuid.UUID]*Session
}

func NewSessions(limit int) *Sessions {
	return &Sessions{limit: limit, byID: make(map[uuid.UUID]*Session)}
}

func (s *Sessions) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.byID) >= s.limit {
		s.evictOldestLocked()
	}
	s.byID[sess.ID] = sess
}

// Get returns a copy so callers cannot mutate stored state.
func (s *Sessions) Get(id uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return Session{}, notFound(id)
	}
	return *sess, nil
}

// Claim marks a staged session committed and returns its entries, with the entries
// optionally replaced by the operator's reviewed table. A second claim fails with ErrConflict.
func (s *Sessions) Claim(id uuid.UUID, reviewed []extract.Entry) ([]extract.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	if sess.Status.Terminal() {
		return nil, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("session %s is %s", id, sess.Status), common.ErrConflict)
	}
	if reviewed != nil {
		sess.Entries = reviewed
	}
	sess.Status = constants.SessionCommitted
	return sess.Entries, nil
}

// Release returns a claimed session to staged, used when the commit itself failed.
func (s *Sessions) Release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[id]; ok && sess.Status == constants.SessionCommitted {
		sess.Status = constants.SessionStaged
	}
}

// Cancel discards a staged session.
func (s *Sessions) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return notFound(id)
	}
	if sess.Status == constants.SessionCommitted {
		return common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("session %s already committed", id), common.ErrConflict)
	}
	sess.Status = constants.SessionCancelled
	sess.Entries = nil
	sess.Previews = nil
	return nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Sessions) evictOldestLocked() {
	ids := make([]uuid.UUID, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.byID[ids[i]].CreatedAt.Before(s.byID[ids[j]].CreatedAt)
	})
	delete(s.byID, ids[0])
}

func notFound(id uuid.UUID) error {
	return common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("session %s", id), common.ErrNotFound)
}
