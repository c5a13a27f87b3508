// Package match implements the core pairing algorithm: converting waiting
// interviewers and candidates in one (profession, language, slot) bucket
// into sessions, one-to-one, without double-allocation.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
	"github.com/korobprog/supermock-matcher/internal/domain/rank"
	"github.com/korobprog/supermock-matcher/pkg/logger"
	"github.com/korobprog/supermock-matcher/pkg/metrics"
)

// defaultRetryLimit bounds rescans after losing a markMatched race, so
// contention never turns into an unbounded loop. A bucket that exhausts its
// retries is simply picked up again by the next trigger or sweep.
const defaultRetryLimit = 3

// SessionCreator turns a resolved pair into a pending session. Implemented
// by the session manager; the engine never talks to video or notification
// systems itself.
type SessionCreator interface {
	Create(ctx context.Context, interviewerID, candidateID string, bucket model.Bucket) (model.Session, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRetryLimit sets the bounded retry count for lost races.
func WithRetryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retryLimit = n
		}
	}
}

// WithSelector sets the interviewer-preference selector.
func WithSelector(s *rank.Selector) Option {
	return func(e *Engine) {
		if s != nil {
			e.selector = s
		}
	}
}

// WithTools sets the tool store used for overlap ranking. Without one the
// engine pairs in strict FIFO order.
func WithTools(t repository.ToolStore) Option {
	return func(e *Engine) {
		e.tools = t
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs matching passes over buckets. Passes over different buckets
// are independent and safe to run in parallel; passes over the same bucket
// serialize through the queue store's atomic MatchPair, not a global lock.
type Engine struct {
	queue    repository.QueueStore
	sessions SessionCreator
	tools    repository.ToolStore
	selector *rank.Selector

	retryLimit int
	logger     logger.Logger
}

// NewEngine creates an Engine over the queue store and session creator.
func NewEngine(queue repository.QueueStore, sessions SessionCreator, opts ...Option) *Engine {
	e := &Engine{
		queue:      queue,
		sessions:   sessions,
		selector:   rank.New(),
		retryLimit: defaultRetryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("match")
	}
	return e
}

// Pass drains one bucket: while both sides have waiting entries it pairs the
// oldest candidate with the preferred interviewer, consumes both entries
// atomically and creates a session. Returns the number of sessions created.
//
// A lost race on MatchPair triggers a bucket rescan, bounded by the retry
// limit; exhausting the limit yields control without error because the
// idempotent pass will run again on the next trigger.
func (e *Engine) Pass(ctx context.Context, bucket model.Bucket) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordMatchPassLatency(float64(time.Since(start).Milliseconds()))
	}()

	created := 0
	retries := 0
	for {
		if err := ctx.Err(); err != nil {
			return created, fmt.Errorf("matching pass interrupted: %w", err)
		}

		interviewers, err := e.queue.ListWaiting(ctx, bucket, model.RoleInterviewer)
		if err != nil {
			return created, fmt.Errorf("list interviewers: %w", err)
		}
		candidates, err := e.queue.ListWaiting(ctx, bucket, model.RoleCandidate)
		if err != nil {
			return created, fmt.Errorf("list candidates: %w", err)
		}
		if len(interviewers) == 0 || len(candidates) == 0 {
			return created, nil
		}

		pair, ok := e.choosePair(ctx, bucket, interviewers, candidates)
		if !ok {
			// Only self-pairs remain; nothing this pass can do.
			return created, nil
		}

		switch err := e.queue.MatchPair(ctx, pair.interviewer.ID, pair.candidate.ID); {
		case err == nil:
			// fall through to session creation
		case errors.Is(err, repository.ErrAlreadyMatched), errors.Is(err, repository.ErrNotFound):
			metrics.RecordMatchConflict()
			retries++
			if retries > e.retryLimit {
				e.logger.Debug(ctx, "retry limit reached, yielding bucket",
					logger.String("bucket", bucket.Key()))
				return created, nil
			}
			continue
		default:
			return created, fmt.Errorf("match pair: %w", err)
		}
		retries = 0

		sess, err := e.sessions.Create(ctx, pair.interviewer.UserID, pair.candidate.UserID, bucket)
		if err != nil {
			return created, fmt.Errorf("create session for pair: %w", err)
		}
		created++
		metrics.RecordMatch()
		e.logger.Info(ctx, "pair matched",
			logger.String("bucket", bucket.Key()),
			logger.String("sessionID", sess.ID),
			logger.String("interviewer", pair.interviewer.UserID),
			logger.String("candidate", pair.candidate.UserID),
		)
	}
}

type chosenPair struct {
	interviewer model.QueueEntry
	candidate   model.QueueEntry
}

// choosePair walks candidates in FIFO order and picks the interviewer for
// the first candidate that has any counterpart other than themself. Tool
// overlap promotes an interviewer within the selector's bounded window;
// otherwise the oldest-waiting interviewer wins.
func (e *Engine) choosePair(ctx context.Context, bucket model.Bucket, interviewers, candidates []model.QueueEntry) (chosenPair, bool) {
	for _, cand := range candidates {
		eligible := make([]model.QueueEntry, 0, len(interviewers))
		for _, intv := range interviewers {
			if intv.UserID != cand.UserID {
				eligible = append(eligible, intv)
			}
		}
		if len(eligible) == 0 {
			continue
		}

		idx := 0
		if e.tools != nil && len(eligible) > 1 {
			idx = e.rankByTools(ctx, bucket, cand, eligible)
		}
		return chosenPair{interviewer: eligible[idx], candidate: cand}, true
	}
	return chosenPair{}, false
}

// rankByTools resolves the preferred interviewer index. Tool lookups are a
// quality signal only: any store error degrades to FIFO rather than failing
// the pass.
func (e *Engine) rankByTools(ctx context.Context, bucket model.Bucket, cand model.QueueEntry, eligible []model.QueueEntry) int {
	candTools, err := e.tools.For(ctx, cand.UserID, bucket.Profession)
	if err != nil || len(candTools) == 0 {
		return 0
	}
	toolSets := make([][]string, len(eligible))
	for i, intv := range eligible {
		set, err := e.tools.For(ctx, intv.UserID, bucket.Profession)
		if err != nil {
			return 0
		}
		toolSets[i] = set
	}
	idx := e.selector.Pick(candTools, toolSets)
	if idx < 0 {
		return 0
	}
	return idx
}
