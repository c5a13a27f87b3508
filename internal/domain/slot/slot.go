// Package slot normalizes wall-clock scheduling input into canonical UTC
// slots. Every other component operates only on already-normalized slots,
// so normalization is the single place timezone handling lives.
package slot

import (
	"fmt"
	"time"
)

// Default normalizer configuration constants.
const (
	defaultGranularity = time.Hour
	defaultHorizon     = 30 * 24 * time.Hour
)

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithGranularity sets the scheduling granularity slots are truncated to.
func WithGranularity(g time.Duration) Option {
	return func(n *Normalizer) {
		if g > 0 {
			n.granularity = g
		}
	}
}

// WithHorizon sets how far into the future a slot may lie.
func WithHorizon(h time.Duration) Option {
	return func(n *Normalizer) {
		if h > 0 {
			n.horizon = h
		}
	}
}

// WithNow injects a time source, used by tests for determinism.
func WithNow(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// Normalizer converts arbitrary timestamp input into UTC slots truncated to
// the configured granularity. It is pure and deterministic: identical input
// always yields an identical slot, which the queue store relies on because
// the slot is part of its uniqueness key.
type Normalizer struct {
	granularity time.Duration
	horizon     time.Duration
	now         func() time.Time
}

// New creates a Normalizer with the given options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		granularity: defaultGranularity,
		horizon:     defaultHorizon,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Granularity returns the configured scheduling granularity.
func (n *Normalizer) Granularity() time.Duration {
	return n.granularity
}

// Normalize truncates t down to the granularity boundary in UTC and checks it
// against the scheduling horizon. Slots more than the horizon in the future,
// or earlier than the previous slot boundary, fail with ErrInvalidTime.
func (n *Normalizer) Normalize(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero timestamp", ErrInvalidTime)
	}
	normalized := t.UTC().Truncate(n.granularity)

	now := n.now().UTC()
	earliest := now.Truncate(n.granularity).Add(-n.granularity)
	if normalized.Before(earliest) {
		return time.Time{}, fmt.Errorf("%w: slot %s is in the past", ErrInvalidTime, normalized.Format(time.RFC3339))
	}
	if normalized.After(now.Add(n.horizon)) {
		return time.Time{}, fmt.Errorf("%w: slot %s is beyond the scheduling horizon", ErrInvalidTime, normalized.Format(time.RFC3339))
	}
	return normalized, nil
}

// Parse accepts an RFC3339 timestamp (any zone offset) and normalizes it.
func (n *Normalizer) Parse(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC3339", ErrInvalidTime, raw)
	}
	return n.Normalize(t)
}
