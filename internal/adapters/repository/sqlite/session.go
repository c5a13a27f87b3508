package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// sessionStore implements repository.SessionStore.
type sessionStore struct {
	db *sql.DB
}

const sessionColumns = `id, interviewer_id, candidate_id, observer_ids, slot, profession, language,
	status, video_url, video_status, creator_id, created_at, started_at`

func (s *sessionStore) Create(ctx context.Context, sess model.Session) error {
	const op = "sessions.create"

	observers, err := json.Marshal(sess.ObserverIDs)
	if err != nil {
		return wrap(op, err)
	}
	var startedAt sql.NullString
	if sess.StartedAt != nil {
		startedAt = sql.NullString{String: sess.StartedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.InterviewerID, sess.CandidateID, string(observers),
		sess.Slot.UTC().Format(time.RFC3339), sess.Profession, sess.Language,
		string(sess.Status), sess.VideoURL, string(sess.VideoStatus), sess.CreatorID,
		sess.CreatedAt.UTC().Format(time.RFC3339), startedAt,
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *sessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *sessionStore) Update(ctx context.Context, sess model.Session) error {
	const op = "sessions.update"

	observers, err := json.Marshal(sess.ObserverIDs)
	if err != nil {
		return wrap(op, err)
	}
	var startedAt sql.NullString
	if sess.StartedAt != nil {
		startedAt = sql.NullString{String: sess.StartedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET interviewer_id = ?, candidate_id = ?, observer_ids = ?,
			status = ?, video_url = ?, video_status = ?, started_at = ?
		WHERE id = ?`,
		sess.InterviewerID, sess.CandidateID, string(observers),
		string(sess.Status), sess.VideoURL, string(sess.VideoStatus), startedAt, sess.ID,
	)
	if err != nil {
		return wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *sessionStore) LastByInterviewer(ctx context.Context, userID string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE interviewer_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID)
	return scanSession(row)
}

func scanSession(row *sql.Row) (model.Session, error) {
	const op = "sessions.scan"

	var (
		sess                       model.Session
		observers                  string
		slotRaw, status, videoStat string
		createdRaw                 string
		startedRaw                 sql.NullString
	)
	err := row.Scan(
		&sess.ID, &sess.InterviewerID, &sess.CandidateID, &observers,
		&slotRaw, &sess.Profession, &sess.Language,
		&status, &sess.VideoURL, &videoStat, &sess.CreatorID,
		&createdRaw, &startedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Session{}, wrap(op, err)
	}

	if err := json.Unmarshal([]byte(observers), &sess.ObserverIDs); err != nil {
		return model.Session{}, wrap(op, err)
	}
	if sess.Slot, err = time.Parse(time.RFC3339, slotRaw); err != nil {
		return model.Session{}, wrap(op, err)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdRaw); err != nil {
		return model.Session{}, wrap(op, err)
	}
	if startedRaw.Valid {
		started, err := time.Parse(time.RFC3339, startedRaw.String)
		if err != nil {
			return model.Session{}, wrap(op, err)
		}
		sess.StartedAt = &started
	}
	sess.Status = model.SessionStatus(status)
	sess.VideoStatus = model.VideoLinkStatus(videoStat)
	return sess, nil
}
