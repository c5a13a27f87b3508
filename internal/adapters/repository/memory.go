package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// In-memory Stores implementation.
//
// Entry ordering: CreatedAt ASC, then UserID ASC (deterministic). The mutex
// makes MarkMatched and MatchPair atomic with respect to concurrent matching
// passes; no lock is ever held across I/O because there is none.

// MemoryOption applies a configuration option to MemoryStores.
type MemoryOption func(*MemoryStores)

// WithNow injects a time source, used by tests for determinism.
func WithNow(now func() time.Time) MemoryOption {
	return func(m *MemoryStores) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator injects an id source, used by tests for determinism.
func WithIDGenerator(next func() string) MemoryOption {
	return func(m *MemoryStores) {
		if next != nil {
			m.nextID = next
		}
	}
}

// MemoryStores implements Stores entirely in process memory. It is the
// default backend; the sqlite backend provides durability across restarts.
type MemoryStores struct {
	now    func() time.Time
	nextID func() string

	queue    *memoryQueue
	sessions *memorySessions
	prefs    *memoryPreferences
	tools    *memoryTools
}

// NewMemoryStores creates an empty in-memory backend.
func NewMemoryStores(opts ...MemoryOption) *MemoryStores {
	m := &MemoryStores{
		now:    time.Now,
		nextID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = &memoryQueue{now: m.now, nextID: m.nextID, entries: make(map[string]*model.QueueEntry)}
	m.sessions = &memorySessions{byID: make(map[string]*model.Session)}
	m.prefs = &memoryPreferences{}
	m.tools = &memoryTools{sets: make(map[string][]string)}
	return m
}

func (m *MemoryStores) Queue() QueueStore { return m.queue }
func (m *MemoryStores) Sessions() SessionStore { return m.sessions }
func (m *MemoryStores) Preferences() PreferenceStore { return m.prefs }
func (m *MemoryStores) Tools() ToolStore { return m.tools }
func (m *MemoryStores) Close() error { return nil }

// memoryQueue implements QueueStore.
type memoryQueue struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  func() string
	entries map[string]*model.QueueEntry
}

func (q *memoryQueue) Enqueue(ctx context.Context, userID string, role model.Role, bucket model.Bucket) (model.QueueEntry, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.Status == model.EntryWaiting &&
			e.UserID == userID && e.Role == role &&
			e.Profession == bucket.Profession && e.Language == bucket.Language &&
			e.Slot.Equal(bucket.Slot) {
			return *e, false, nil
		}
	}

	entry := &model.QueueEntry{
		ID:         q.nextID(),
		UserID:     userID,
		Role:       role,
		Profession: bucket.Profession,
		Language:   bucket.Language,
		Slot:       bucket.Slot,
		Status:     model.EntryWaiting,
		CreatedAt:  q.now().UTC(),
	}
	q.entries[entry.ID] = entry
	return *entry, true, nil
}

func (q *memoryQueue) ListWaiting(ctx context.Context, bucket model.Bucket, role model.Role) ([]model.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []model.QueueEntry
	for _, e := range q.entries {
		if e.Status == model.EntryWaiting && e.Role == role &&
			e.Profession == bucket.Profession && e.Language == bucket.Language &&
			e.Slot.Equal(bucket.Slot) {
			out = append(out, *e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (q *memoryQueue) MarkMatched(ctx context.Context, entryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.markMatchedLocked(entryID)
}

func (q *memoryQueue) MatchPair(ctx context.Context, interviewerEntryID, candidateEntryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Check both before flipping either, so a lost race on one entry
	// leaves the other untouched.
	for _, id := range []string{interviewerEntryID, candidateEntryID} {
		e, ok := q.entries[id]
		if !ok {
			return ErrNotFound
		}
		if e.Status != model.EntryWaiting {
			return ErrAlreadyMatched
		}
	}
	q.entries[interviewerEntryID].Status = model.EntryMatched
	q.entries[candidateEntryID].Status = model.EntryMatched
	return nil
}

func (q *memoryQueue) markMatchedLocked(entryID string) error {
	e, ok := q.entries[entryID]
	if !ok {
		return ErrNotFound
	}
	if e.Status != model.EntryWaiting {
		return ErrAlreadyMatched
	}
	e.Status = model.EntryMatched
	return nil
}

func (q *memoryQueue) RemoveForUser(ctx context.Context, userID string, role model.Role) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, e := range q.entries {
		if e.Status != model.EntryWaiting || e.UserID != userID {
			continue
		}
		if role != "" && e.Role != role {
			continue
		}
		e.Status = model.EntryCancelled
		count++
	}
	return count, nil
}

func (q *memoryQueue) ListBuckets(ctx context.Context) ([]model.Bucket, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]model.Bucket)
	for _, e := range q.entries {
		if e.Status == model.EntryWaiting {
			b := e.BucketOf()
			seen[b.Key()] = b
		}
	}
	out := make([]model.Bucket, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (q *memoryQueue) CountWaiting(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	for _, e := range q.entries {
		if e.Status == model.EntryWaiting {
			count++
		}
	}
	return count, nil
}

// sortEntries orders by creation time ascending, ties by user id ascending.
func sortEntries(entries []model.QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// memorySessions implements SessionStore.
type memorySessions struct {
	mu   sync.RWMutex
	byID map[string]*model.Session
}

func (s *memorySessions) Create(ctx context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneSession(sess)
	s.byID[sess.ID] = &cp
	return nil
}

func (s *memorySessions) Get(ctx context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return cloneSession(*sess), nil
}

func (s *memorySessions) Update(ctx context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sess.ID]; !ok {
		return ErrNotFound
	}
	cp := cloneSession(sess)
	s.byID[sess.ID] = &cp
	return nil
}

func (s *memorySessions) LastByInterviewer(ctx context.Context, userID string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Session
	for _, sess := range s.byID {
		if sess.InterviewerID != userID {
			continue
		}
		if best == nil || sess.CreatedAt.After(best.CreatedAt) ||
			(sess.CreatedAt.Equal(best.CreatedAt) && sess.ID > best.ID) {
			best = sess
		}
	}
	if best == nil {
		return model.Session{}, ErrNotFound
	}
	return cloneSession(*best), nil
}

func cloneSession(s model.Session) model.Session {
	out := s
	out.ObserverIDs = append([]string(nil), s.ObserverIDs...)
	return out
}

// memoryPreferences implements PreferenceStore as an append-only log.
type memoryPreferences struct {
	mu  sync.RWMutex
	log []model.Preference
}

func (p *memoryPreferences) Save(ctx context.Context, pref model.Preference) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pref.Slots = append([]time.Time(nil), pref.Slots...)
	p.log = append(p.log, pref)
	return nil
}

func (p *memoryPreferences) Current(ctx context.Context, userID string, role model.Role) (model.Preference, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	found := false
	var current model.Preference
	for _, pref := range p.log {
		if pref.UserID != userID || pref.Role != role {
			continue
		}
		// Later log position wins ties, matching append order.
		if !found || !pref.CreatedAt.Before(current.CreatedAt) {
			current = pref
			found = true
		}
	}
	if !found {
		return model.Preference{}, ErrNotFound
	}
	return current, nil
}

func (p *memoryPreferences) CurrentAll(ctx context.Context) ([]model.Preference, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	latest := make(map[string]model.Preference)
	order := make([]string, 0)
	for _, pref := range p.log {
		key := pref.UserID + "|" + string(pref.Role)
		prev, ok := latest[key]
		if !ok {
			order = append(order, key)
			latest[key] = pref
			continue
		}
		if !pref.CreatedAt.Before(prev.CreatedAt) {
			latest[key] = pref
		}
	}
	out := make([]model.Preference, 0, len(latest))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out, nil
}

// memoryTools implements ToolStore.
type memoryTools struct {
	mu   sync.RWMutex
	sets map[string][]string // userID|profession -> tools
}

func (t *memoryTools) Save(ctx context.Context, ut model.UserTools) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[ut.UserID+"|"+ut.Profession] = append([]string(nil), ut.Tools...)
	return nil
}

func (t *memoryTools) For(ctx context.Context, userID, profession string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.sets[userID+"|"+profession]...), nil
}
