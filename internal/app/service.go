// Package service provides the core business service that implements
// the dependencies required by the HTTP API: preference ingestion,
// cancellation, matching triggers and session operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/korobprog/supermock-matcher/internal/adapters/mq/trigger"
	workerpool "github.com/korobprog/supermock-matcher/internal/adapters/mq/worker"
	"github.com/korobprog/supermock-matcher/internal/adapters/notify"
	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/adapters/repository/sqlite"
	"github.com/korobprog/supermock-matcher/internal/adapters/video"
	"github.com/korobprog/supermock-matcher/internal/domain/match"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/internal/domain/rank"
	"github.com/korobprog/supermock-matcher/internal/domain/session"
	"github.com/korobprog/supermock-matcher/internal/domain/slot"
	"github.com/korobprog/supermock-matcher/pkg/logger"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount      = 4
	defaultTriggerQueueSize = 4096
	defaultSweepInterval    = 30 * time.Second
)

// Service implements the engine-facing interfaces of the matching core.
type Service struct {
	mu sync.RWMutex

	// Core components
	stores     repository.Stores
	normalizer *slot.Normalizer
	engine     *match.Engine
	sessions   *session.Manager
	triggers   trigger.Queue
	pool       *workerpool.Pool

	// Configuration
	storeBackend     string
	sqlitePath       string
	granularity      time.Duration
	horizon          time.Duration
	retryLimit       int
	skipBound        int
	workerCount      int
	triggerQueueSize int
	sweepInterval    time.Duration
	videoBaseURL     string

	// Injected collaborators (defaults are built on Start)
	provisioner session.Provisioner
	notifier    session.Notifier
	now         func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStores injects a pre-built repository backend, bypassing the
// configured one. Used by tests.
func WithStores(stores repository.Stores) Option {
	return func(s *Service) {
		if stores != nil {
			s.stores = stores
		}
	}
}

// WithStoreBackend selects the repository backend by name (memory or
// sqlite) and the sqlite database path.
func WithStoreBackend(backend, sqlitePath string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
		if sqlitePath != "" {
			s.sqlitePath = sqlitePath
		}
	}
}

// WithGranularity sets the slot scheduling granularity.
func WithGranularity(g time.Duration) Option {
	return func(s *Service) {
		if g > 0 {
			s.granularity = g
		}
	}
}

// WithHorizon sets the scheduling horizon.
func WithHorizon(h time.Duration) Option {
	return func(s *Service) {
		if h > 0 {
			s.horizon = h
		}
	}
}

// WithMatchRetryLimit bounds bucket rescans after a lost race.
func WithMatchRetryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryLimit = n
		}
	}
}

// WithToolSkipBound caps the tool-overlap fairness skip.
func WithToolSkipBound(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.skipBound = n
		}
	}
}

// WithWorkerCount sets the number of matching workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithTriggerQueueSize bounds the bucket trigger queue.
func WithTriggerQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.triggerQueueSize = size
		}
	}
}

// WithSweepInterval sets the safety-net sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithVideoBaseURL sets the meeting host for provisioned rooms.
func WithVideoBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.videoBaseURL = base
		}
	}
}

// WithProvisioner injects a video provisioner. Used by tests.
func WithProvisioner(p session.Provisioner) Option {
	return func(s *Service) {
		if p != nil {
			s.provisioner = p
		}
	}
}

// WithNotifier injects a lifecycle event notifier. Used by tests.
func WithNotifier(n session.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithNow injects a time source, used by tests for determinism.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeBackend:     "memory",
		granularity:      time.Hour,
		horizon:          30 * 24 * time.Hour,
		retryLimit:       3,
		skipBound:        2,
		workerCount:      defaultWorkerCount,
		triggerQueueSize: defaultTriggerQueueSize,
		sweepInterval:    defaultSweepInterval,
		now:              time.Now,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components, replays current
// preferences into the queue, and launches the worker pool and sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting matching service...")

	if s.stores == nil {
		switch s.storeBackend {
		case "sqlite":
			stores, err := sqlite.Open(ctx, s.sqlitePath)
			if err != nil {
				return fmt.Errorf("open sqlite store: %w", err)
			}
			s.stores = stores
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		default:
			s.stores = repository.NewMemoryStores()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	s.normalizer = slot.New(
		slot.WithGranularity(s.granularity),
		slot.WithHorizon(s.horizon),
		slot.WithNow(s.now),
	)

	if s.provisioner == nil {
		s.provisioner = video.NewRoomProvisioner(video.WithBaseURL(s.videoBaseURL))
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.logger.Named("notify"))
	}

	s.sessions = session.NewManager(s.stores.Sessions(),
		session.WithProvisioner(s.provisioner),
		session.WithNotifier(s.notifier),
		session.WithLogger(s.logger.Named("session")),
		session.WithNow(s.now),
	)

	s.engine = match.NewEngine(s.stores.Queue(), s.sessions,
		match.WithTools(s.stores.Tools()),
		match.WithSelector(rank.New(rank.WithSkipBound(s.skipBound))),
		match.WithRetryLimit(s.retryLimit),
		match.WithLogger(s.logger.Named("match")),
	)

	s.triggers = trigger.NewInMemoryQueue(trigger.WithCapacity(s.triggerQueueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.triggers, s.engine)
	s.pool.Start(ctx)

	if err := s.replay(ctx); err != nil {
		s.logger.Warn(ctx, "preference replay failed", logger.Error(err))
	}

	go s.sweepLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.String("store", s.storeBackend),
		logger.Duration("sweepInterval", s.sweepInterval),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping matching service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if s.pool != nil {
		s.pool.Stop()
	}
	if s.triggers != nil {
		_ = s.triggers.Close()
	}
	if s.stores != nil {
		if err := s.stores.Close(); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// replay re-derives queue state from the authoritative preferences, so a
// restart does not lose waiting users. Stale slots are skipped, everything
// else is an idempotent enqueue.
func (s *Service) replay(ctx context.Context) error {
	prefs, err := s.stores.Preferences().CurrentAll(ctx)
	if err != nil {
		return fmt.Errorf("load current preferences: %w", err)
	}
	replayed := 0
	for _, pref := range prefs {
		for _, raw := range pref.Slots {
			normalized, err := s.normalizer.Normalize(raw)
			if err != nil {
				continue // slot fell out of the horizon since it was saved
			}
			bucket := model.Bucket{Profession: pref.Profession, Language: pref.Language, Slot: normalized}
			if _, created, err := s.stores.Queue().Enqueue(ctx, pref.UserID, pref.Role, bucket); err != nil {
				return fmt.Errorf("replay enqueue: %w", err)
			} else if created {
				replayed++
			}
			s.triggers.Fire(ctx, bucket)
		}
	}
	if replayed > 0 {
		s.logger.Info(ctx, "replayed preferences into queue", logger.Int("entries", replayed))
	}
	return nil
}

// sweepLoop periodically re-fires every live bucket. It is only a safety
// net for missed triggers; the pass itself is idempotent.
func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Warn(ctx, "sweep failed", logger.Error(err))
			}
		}
	}
}

// Sweep fires a matching pass for every bucket with waiting entries.
func (s *Service) Sweep(ctx context.Context) error {
	buckets, err := s.stores.Queue().ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	for _, b := range buckets {
		s.triggers.Fire(ctx, b)
	}
	metrics.RecordSweepRun()
	metrics.UpdateBucketsLive(len(buckets))
	return nil
}

// OnPreferenceSaved handles a preference save from the profile subsystem:
// normalize each slot, append the preference record, replace the user's
// waiting entries for that role, and fire the affected buckets. A slot that
// fails normalization rejects the whole request before any state changes.
func (s *Service) OnPreferenceSaved(ctx context.Context, userID string, role model.Role, profession, language string, slots []time.Time) (model.Preference, error) {
	if userID == "" || profession == "" || language == "" {
		return model.Preference{}, fmt.Errorf("%w: user, profession and language are required", ErrBadInput)
	}
	if !role.QueueRole() {
		return model.Preference{}, fmt.Errorf("%w: role %q cannot enqueue", ErrBadInput, role)
	}
	if len(slots) == 0 {
		return model.Preference{}, fmt.Errorf("%w: at least one slot is required", ErrBadInput)
	}

	normalized := make([]time.Time, 0, len(slots))
	for _, raw := range slots {
		n, err := s.normalizer.Normalize(raw)
		if err != nil {
			return model.Preference{}, err
		}
		normalized = append(normalized, n)
	}

	// Last preference wins: entries for slots the user no longer wants must
	// not survive into future matching passes.
	if _, err := s.stores.Queue().RemoveForUser(ctx, userID, role); err != nil {
		return model.Preference{}, fmt.Errorf("clear previous entries: %w", err)
	}

	pref := model.Preference{
		ID:         uuid.NewString(),
		UserID:     userID,
		Role:       role,
		Profession: profession,
		Language:   language,
		Slots:      normalized,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.stores.Preferences().Save(ctx, pref); err != nil {
		return model.Preference{}, fmt.Errorf("save preference: %w", err)
	}

	for _, n := range normalized {
		bucket := model.Bucket{Profession: profession, Language: language, Slot: n}
		_, created, err := s.stores.Queue().Enqueue(ctx, userID, role, bucket)
		if err != nil {
			return model.Preference{}, fmt.Errorf("enqueue slot: %w", err)
		}
		if created {
			metrics.RecordEnqueue()
		} else {
			metrics.RecordEnqueueDuplicate()
		}
		s.triggers.Fire(ctx, bucket)
	}
	s.updateQueueGauges(ctx)
	return pref, nil
}

// OnUserWithdrawn handles an explicit cancellation: all waiting entries for
// the user (optionally scoped to one role) are removed before any future
// matching pass can select them.
func (s *Service) OnUserWithdrawn(ctx context.Context, userID string, role model.Role) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user is required", ErrBadInput)
	}
	if role != "" && !role.QueueRole() {
		return 0, fmt.Errorf("%w: role %q cannot be withdrawn", ErrBadInput, role)
	}
	count, err := s.stores.Queue().RemoveForUser(ctx, userID, role)
	if err != nil {
		return 0, fmt.Errorf("remove for user: %w", err)
	}
	metrics.RecordWithdrawal()
	s.updateQueueGauges(ctx)
	return count, nil
}

// SaveTools records a user's declared tool set for a profession.
func (s *Service) SaveTools(ctx context.Context, userID, profession string, tools []string) error {
	if userID == "" || profession == "" {
		return fmt.Errorf("%w: user and profession are required", ErrBadInput)
	}
	err := s.stores.Tools().Save(ctx, model.UserTools{UserID: userID, Profession: profession, Tools: tools})
	if err != nil {
		return fmt.Errorf("save tools: %w", err)
	}
	return nil
}

// GetSession returns a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Transition moves a session along its state machine.
func (s *Service) Transition(ctx context.Context, sessionID string, target model.SessionStatus) (model.Session, error) {
	return s.sessions.Transition(ctx, sessionID, target)
}

// AssignRole fills a session role via the manual/admin path.
func (s *Service) AssignRole(ctx context.Context, sessionID, userID string, role model.Role) (model.Session, error) {
	return s.sessions.AssignRole(ctx, sessionID, userID, role)
}

// CreateManualSession creates an empty pending session for the admin path.
func (s *Service) CreateManualSession(ctx context.Context, creatorID, profession, language string, slotAt time.Time) (model.Session, error) {
	normalized, err := s.normalizer.Normalize(slotAt)
	if err != nil {
		return model.Session{}, err
	}
	bucket := model.Bucket{Profession: profession, Language: language, Slot: normalized}
	return s.sessions.CreateManual(ctx, creatorID, bucket)
}

// FindLastAsInterviewer returns the user's most recent interviewer session.
func (s *Service) FindLastAsInterviewer(ctx context.Context, userID string) (model.Session, error) {
	return s.sessions.FindLastAsInterviewer(ctx, userID)
}

// NotFound reports whether err is the store's missing-record error.
func NotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"store":       s.storeBackend,
	}
	if !s.started {
		return stats
	}

	if waiting, err := s.stores.Queue().CountWaiting(ctx); err == nil {
		stats["queueWaiting"] = waiting
		metrics.UpdateQueueWaiting(waiting)
	}
	if buckets, err := s.stores.Queue().ListBuckets(ctx); err == nil {
		stats["bucketsLive"] = len(buckets)
		metrics.UpdateBucketsLive(len(buckets))
	}
	stats["triggerQueue"] = s.triggers.Len(ctx)
	return stats
}

func (s *Service) updateQueueGauges(ctx context.Context) {
	if waiting, err := s.stores.Queue().CountWaiting(ctx); err == nil {
		metrics.UpdateQueueWaiting(waiting)
	}
}
