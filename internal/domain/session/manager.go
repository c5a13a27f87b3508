// Package session owns the interview session lifecycle: creation from
// matched pairs, the pending/active/completed state machine, manual role
// assignment and the video-link sub-state.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/pkg/logger"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// Link is the result of provisioning a video room for a session.
type Link struct {
	URL    string
	Status model.VideoLinkStatus
}

// Provisioner requests a video link from the external video collaborator.
type Provisioner interface {
	Provision(ctx context.Context, sessionID string) (Link, error)
}

// EventType labels session lifecycle events.
type EventType string

const (
	EventCreated   EventType = "created"
	EventActivated EventType = "activated"
	EventCompleted EventType = "completed"
	EventCancelled EventType = "cancelled"
)

// Event is emitted to the notification collaborator on every successful
// create and transition.
type Event struct {
	SessionID    string
	Type         EventType
	Participants []string
}

// Notifier receives lifecycle events. Delivery is best-effort: failures are
// logged and never roll back the state change that produced the event.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithProvisioner sets the video provisioner.
func WithProvisioner(p Provisioner) Option {
	return func(m *Manager) {
		if p != nil {
			m.video = p
		}
	}
}

// WithNotifier sets the lifecycle event notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNow injects a time source, used by tests for determinism.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator injects an id source, used by tests for determinism.
func WithIDGenerator(next func() string) Option {
	return func(m *Manager) {
		if next != nil {
			m.nextID = next
		}
	}
}

// Manager owns every session mutation. Callers never write session state
// directly, so the role-immutability and state-machine invariants hold for
// the matcher, the admin path and the sweep alike.
type Manager struct {
	store    repository.SessionStore
	video    Provisioner
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
	nextID   func() string
}

// NewManager creates a Manager over the given session store.
func NewManager(store repository.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		nextID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("session")
	}
	return m
}

// Create builds a pending session for a matched pair, requests a video link
// and emits the created event. Both roles arrive pre-resolved from the
// matching engine. A provisioning failure downgrades the link to manual
// instead of failing session creation.
func (m *Manager) Create(ctx context.Context, interviewerID, candidateID string, bucket model.Bucket) (model.Session, error) {
	sess := model.Session{
		ID:            m.nextID(),
		InterviewerID: interviewerID,
		CandidateID:   candidateID,
		Slot:          bucket.Slot,
		Profession:    bucket.Profession,
		Language:      bucket.Language,
		Status:        model.SessionPending,
		VideoStatus:   model.VideoPending,
		CreatedAt:     m.now().UTC(),
	}
	m.provisionVideo(ctx, &sess)

	if err := m.store.Create(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	metrics.RecordSessionCreated()
	m.logger.Info(ctx, "session created",
		logger.String("sessionID", sess.ID),
		logger.String("interviewer", interviewerID),
		logger.String("candidate", candidateID),
		logger.String("bucket", bucket.Key()),
	)
	m.emit(ctx, sess, EventCreated)
	return sess, nil
}

// CreateManual builds a pending session with no roles assigned, for the
// admin assignment path. Roles are filled afterwards via AssignRole.
func (m *Manager) CreateManual(ctx context.Context, creatorID string, bucket model.Bucket) (model.Session, error) {
	sess := model.Session{
		ID:          m.nextID(),
		Slot:        bucket.Slot,
		Profession:  bucket.Profession,
		Language:    bucket.Language,
		Status:      model.SessionPending,
		VideoStatus: model.VideoPending,
		CreatorID:   creatorID,
		CreatedAt:   m.now().UTC(),
	}
	m.provisionVideo(ctx, &sess)

	if err := m.store.Create(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("create manual session: %w", err)
	}
	metrics.RecordSessionCreated()
	m.emit(ctx, sess, EventCreated)
	return sess, nil
}

func (m *Manager) provisionVideo(ctx context.Context, sess *model.Session) {
	if m.video == nil {
		sess.VideoStatus = model.VideoManual
		return
	}
	link, err := m.video.Provision(ctx, sess.ID)
	if err != nil {
		metrics.RecordVideoFallback()
		m.logger.Warn(ctx, "video provisioning failed, falling back to manual",
			logger.String("sessionID", sess.ID), logger.Error(err))
		sess.VideoStatus = model.VideoManual
		return
	}
	sess.VideoURL = link.URL
	sess.VideoStatus = link.Status
}

// AssignRole fills an unset interviewer/candidate slot or appends an
// observer. Re-assigning the same user to the same slot is a no-op; a slot
// occupied by a different user fails with ErrAlreadyAssigned. Only the
// manual/admin path calls this; the matcher assigns roles at creation.
func (m *Manager) AssignRole(ctx context.Context, sessionID, userID string, role model.Role) (model.Session, error) {
	if !role.SessionRole() {
		return model.Session{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("assign role: %w", err)
	}

	changed := false
	switch role {
	case model.RoleInterviewer:
		switch sess.InterviewerID {
		case userID:
			// idempotent re-assign
		case "":
			sess.InterviewerID = userID
			changed = true
		default:
			return model.Session{}, fmt.Errorf("%w: interviewer is %s", ErrAlreadyAssigned, sess.InterviewerID)
		}
	case model.RoleCandidate:
		switch sess.CandidateID {
		case userID:
		case "":
			sess.CandidateID = userID
			changed = true
		default:
			return model.Session{}, fmt.Errorf("%w: candidate is %s", ErrAlreadyAssigned, sess.CandidateID)
		}
	case model.RoleObserver:
		if !sess.HasObserver(userID) {
			sess.ObserverIDs = append(sess.ObserverIDs, userID)
			changed = true
		}
	}

	if changed {
		if err := m.store.Update(ctx, sess); err != nil {
			return model.Session{}, fmt.Errorf("assign role: %w", err)
		}
	}
	return sess, nil
}

// transitions lists the legal session status edges.
var transitions = map[model.SessionStatus][]model.SessionStatus{
	model.SessionPending: {model.SessionActive, model.SessionCancelled},
	model.SessionActive:  {model.SessionCompleted},
}

func legalTransition(from, to model.SessionStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves a session along the state machine and emits the matching
// lifecycle event. Any edge not in the state machine fails with
// ErrInvalidTransition.
func (m *Manager) Transition(ctx context.Context, sessionID string, target model.SessionStatus) (model.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("transition: %w", err)
	}
	if !legalTransition(sess.Status, target) {
		return model.Session{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, target)
	}

	sess.Status = target
	if target == model.SessionActive {
		started := m.now().UTC()
		sess.StartedAt = &started
		if sess.VideoStatus == model.VideoPending {
			sess.VideoStatus = model.VideoActive
		}
	}
	if err := m.store.Update(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("transition: %w", err)
	}
	metrics.RecordSessionTransition(string(target))

	switch target {
	case model.SessionActive:
		m.emit(ctx, sess, EventActivated)
	case model.SessionCompleted:
		m.emit(ctx, sess, EventCompleted)
	case model.SessionCancelled:
		m.emit(ctx, sess, EventCancelled)
	}
	return sess, nil
}

// ExpireVideoLink marks a provisioned link as expired. The session status is
// untouched; the link sub-state is independent.
func (m *Manager) ExpireVideoLink(ctx context.Context, sessionID string) (model.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("expire video link: %w", err)
	}
	if sess.VideoStatus != model.VideoActive && sess.VideoStatus != model.VideoManual {
		return model.Session{}, fmt.Errorf("%w: video link %s -> %s", ErrInvalidTransition, sess.VideoStatus, model.VideoExpired)
	}
	sess.VideoStatus = model.VideoExpired
	if err := m.store.Update(ctx, sess); err != nil {
		return model.Session{}, fmt.Errorf("expire video link: %w", err)
	}
	return sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, sessionID string) (model.Session, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// FindLastAsInterviewer returns the most recent session where the user held
// the interviewer role, or repository.ErrNotFound.
func (m *Manager) FindLastAsInterviewer(ctx context.Context, userID string) (model.Session, error) {
	sess, err := m.store.LastByInterviewer(ctx, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("find last as interviewer: %w", err)
	}
	return sess, nil
}

// emit delivers a lifecycle event best-effort. A notifier failure is logged
// and dropped; the state change it describes has already been persisted.
func (m *Manager) emit(ctx context.Context, sess model.Session, typ EventType) {
	if m.notifier == nil {
		return
	}
	event := Event{SessionID: sess.ID, Type: typ, Participants: sess.Participants()}
	if err := m.notifier.Notify(ctx, event); err != nil {
		metrics.RecordNotifyFailure()
		m.logger.Warn(ctx, "notification delivery failed",
			logger.String("sessionID", sess.ID),
			logger.String("event", string(typ)),
			logger.Error(err),
		)
	}
}
