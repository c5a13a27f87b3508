// Package model contains domain models passed between layers.
package model

import "time"

// Role identifies which side of an interview a user takes.
type Role string

// Recognized roles. Observer is valid only on sessions, never in the queue.
const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
	RoleObserver    Role = "observer"
)

// QueueRole reports whether r is a role that can wait in the queue.
func (r Role) QueueRole() bool {
	return r == RoleCandidate || r == RoleInterviewer
}

// SessionRole reports whether r is assignable on a session.
func (r Role) SessionRole() bool {
	return r.QueueRole() || r == RoleObserver
}

// Bucket groups queue entries that are matchable against each other.
type Bucket struct {
	Profession string
	Language   string
	Slot       time.Time // normalized UTC slot
}

// Key returns a stable string form usable as a map key or trigger id.
func (b Bucket) Key() string {
	return b.Profession + "|" + b.Language + "|" + b.Slot.UTC().Format(time.RFC3339)
}

// EntryStatus is the lifecycle state of a QueueEntry.
type EntryStatus string

const (
	EntryWaiting   EntryStatus = "waiting"
	EntryMatched   EntryStatus = "matched"
	EntryCancelled EntryStatus = "cancelled"
)

// QueueEntry is one user/role/bucket combination waiting to be matched.
// At most one waiting entry exists per (user, role, profession, language, slot).
type QueueEntry struct {
	ID         string
	UserID     string
	Role       Role
	Profession string
	Language   string
	Slot       time.Time
	Status     EntryStatus
	CreatedAt  time.Time
}

// BucketOf returns the matching bucket this entry belongs to.
func (e QueueEntry) BucketOf() Bucket {
	return Bucket{Profession: e.Profession, Language: e.Language, Slot: e.Slot}
}

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// VideoLinkStatus tracks the video link independently of session status.
type VideoLinkStatus string

const (
	VideoPending VideoLinkStatus = "pending"
	VideoActive  VideoLinkStatus = "active"
	VideoManual  VideoLinkStatus = "manual"
	VideoExpired VideoLinkStatus = "expired"
)

// Session is a matched, schedulable interview. InterviewerID and CandidateID
// are empty until assigned; once both are set they are immutable.
type Session struct {
	ID            string
	InterviewerID string
	CandidateID   string
	ObserverIDs   []string
	Slot          time.Time
	Profession    string
	Language      string
	Status        SessionStatus
	VideoURL      string
	VideoStatus   VideoLinkStatus
	CreatorID     string
	CreatedAt     time.Time
	StartedAt     *time.Time
}

// Participants lists all user ids attached to the session.
func (s Session) Participants() []string {
	ids := make([]string, 0, 2+len(s.ObserverIDs))
	if s.InterviewerID != "" {
		ids = append(ids, s.InterviewerID)
	}
	if s.CandidateID != "" {
		ids = append(ids, s.CandidateID)
	}
	ids = append(ids, s.ObserverIDs...)
	return ids
}

// HasObserver reports whether userID is already in the observer set.
func (s Session) HasObserver(userID string) bool {
	for _, id := range s.ObserverIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Preference is one append-only record of a user's desired matching
// parameters. Only the most recent record per (user, role) is authoritative.
type Preference struct {
	ID         string
	UserID     string
	Role       Role
	Profession string
	Language   string
	Slots      []time.Time // normalized UTC slots
	CreatedAt  time.Time
}

// User is the profile subsystem's identity record, read-only to the matcher.
type User struct {
	ID          string
	DisplayName string
	Language    string
	CreatedAt   time.Time
}

// UserTools is a user's declared tool set for one profession. Consumed as a
// match-quality signal only; never required for a match.
type UserTools struct {
	UserID     string
	Profession string
	Tools      []string
}
