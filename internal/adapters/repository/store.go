// Package repository defines the store contracts for queue entries,
// sessions, preferences and tool sets, plus their errors.
package repository

import (
	"context"

	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// QueueStore provides durable access to waiting-to-be-matched entries.
// All mutation of queue state goes through this interface so the
// uniqueness and atomicity invariants hold regardless of the caller.
type QueueStore interface {
	// Enqueue inserts a waiting entry for the tuple, or returns the existing
	// waiting entry unchanged when one is already present (idempotent). The
	// boolean reports whether a new entry was created.
	Enqueue(ctx context.Context, userID string, role model.Role, bucket model.Bucket) (model.QueueEntry, bool, error)

	// ListWaiting returns waiting entries for one side of a bucket, ordered
	// by creation time ascending, ties broken by user id ascending.
	ListWaiting(ctx context.Context, bucket model.Bucket, role model.Role) ([]model.QueueEntry, error)

	// MarkMatched flips a single waiting entry to matched. Fails with
	// ErrAlreadyMatched if the entry is no longer waiting, so concurrent
	// matching passes detect lost races instead of double-counting.
	MarkMatched(ctx context.Context, entryID string) error

	// MatchPair flips both entries to matched atomically: either both
	// transition or neither does. A pass that loses the race on either
	// entry leaves the other in its prior status.
	MatchPair(ctx context.Context, interviewerEntryID, candidateEntryID string) error

	// RemoveForUser cancels all waiting entries for the user, optionally
	// scoped to one role (empty role means both). Returns the number of
	// entries cancelled.
	RemoveForUser(ctx context.Context, userID string, role model.Role) (int, error)

	// ListBuckets returns every bucket currently holding at least one
	// waiting entry. Used by the periodic sweep.
	ListBuckets(ctx context.Context) ([]model.Bucket, error)

	// CountWaiting returns the total number of waiting entries.
	CountWaiting(ctx context.Context) (int, error)
}

// SessionStore persists interview sessions. Sessions are never deleted,
// only transitioned to a terminal status.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Update(ctx context.Context, s model.Session) error

	// LastByInterviewer returns the most recent session (by creation time)
	// where userID held the interviewer role, or ErrNotFound.
	LastByInterviewer(ctx context.Context, userID string) (model.Session, error)
}

// PreferenceStore is an append-only log of preference records with a
// "current" projection: the newest record per (user, role) wins.
type PreferenceStore interface {
	Save(ctx context.Context, p model.Preference) error
	Current(ctx context.Context, userID string, role model.Role) (model.Preference, error)

	// CurrentAll returns the authoritative preference per (user, role),
	// used to replay queue state after a restart.
	CurrentAll(ctx context.Context) ([]model.Preference, error)
}

// ToolStore keeps declared tool sets per (user, profession).
type ToolStore interface {
	Save(ctx context.Context, t model.UserTools) error
	For(ctx context.Context, userID, profession string) ([]string, error)
}

// Stores bundles the four contracts a backend must provide.
type Stores interface {
	Queue() QueueStore
	Sessions() SessionStore
	Preferences() PreferenceStore
	Tools() ToolStore
	Close() error
}
