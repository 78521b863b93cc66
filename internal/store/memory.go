package store

import (
	"context"
	"sync"

	"github.com/procledger/procledger/internal/models"
)

// MemoryVersionStore keeps version chains in process memory behind a
// read-write mutex. Versions are stored and returned as clones so callers
// can never mutate committed history.
type MemoryVersionStore struct {
	mu    sync.RWMutex
	byDoc map[string][]*models.Version // oldest first
	byID  map[string]*models.Version
}

// NewMemoryVersionStore creates an empty in-memory version store.
func NewMemoryVersionStore() *MemoryVersionStore {
	return &MemoryVersionStore{
		byDoc: make(map[string][]*models.Version),
		byID:  make(map[string]*models.Version),
	}
}

// CommitVersion clears the latest flag on the document's current latest
// version and inserts v as the new latest, in one critical section.
func (s *MemoryVersionStore) CommitVersion(_ context.Context, v *models.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.byDoc[v.DocumentID]
	for _, existing := range chain {
		existing.IsLatest = false
	}

	stored := v.Clone()
	stored.IsLatest = true
	s.byDoc[v.DocumentID] = append(chain, stored)
	s.byID[stored.ID] = stored

	return nil
}

// GetVersion returns the version with the given id.
func (s *MemoryVersionStore) GetVersion(_ context.Context, versionID string) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[versionID]
	if !ok {
		return nil, models.ErrVersionNotFound
	}

	return v.Clone(), nil
}

// ListVersions returns the document's versions, newest first.
func (s *MemoryVersionStore) ListVersions(_ context.Context, documentID string) ([]*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.byDoc[documentID]
	out := make([]*models.Version, 0, len(chain))

	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Clone())
	}

	return out, nil
}

// LatestVersion returns the current latest version, or nil when the
// document has no versions.
func (s *MemoryVersionStore) LatestVersion(_ context.Context, documentID string) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.byDoc[documentID]
	if len(chain) == 0 {
		return nil, nil
	}

	return chain[len(chain)-1].Clone(), nil
}

// DeleteVersion removes a non-latest version from the chain. Surrounding
// versions are never renumbered.
func (s *MemoryVersionStore) DeleteVersion(_ context.Context, versionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.byID[versionID]
	if !ok {
		return models.ErrVersionNotFound
	}

	if v.IsLatest {
		return models.ErrCannotDeleteLatest
	}

	chain := s.byDoc[v.DocumentID]
	for i, existing := range chain {
		if existing.ID == versionID {
			s.byDoc[v.DocumentID] = append(chain[:i], chain[i+1:]...)

			break
		}
	}

	delete(s.byID, versionID)

	return nil
}

// MemoryAuditStore keeps audit entries in a bounded in-memory slice.
// Once the retention cap is exceeded the oldest entries are evicted first.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditEntry // oldest first
	cap     int
}

// DefaultAuditRetention is the fallback retention ceiling.
const DefaultAuditRetention = 1000

// NewMemoryAuditStore creates an in-memory audit store with the given
// retention ceiling (entries, FIFO eviction).
func NewMemoryAuditStore(retention int) *MemoryAuditStore {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}

	return &MemoryAuditStore{cap: retention}
}

// RecordAudit appends an entry, evicting the oldest beyond the cap.
func (s *MemoryAuditStore) RecordAudit(_ context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e.Clone())
	if excess := len(s.entries) - s.cap; excess > 0 {
		s.entries = append([]models.AuditEntry(nil), s.entries[excess:]...)
	}

	return nil
}

// QueryAudit returns entries matching opts, newest first, plus the total
// number of matches before pagination.
func (s *MemoryAuditStore) QueryAudit(_ context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.AuditEntry

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].MatchesFilter(opts) {
			matched = append(matched, s.entries[i].Clone())
		}
	}

	total := len(matched)

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	if offset >= total {
		return []models.AuditEntry{}, total, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}

	return matched[offset:end], total, nil
}
