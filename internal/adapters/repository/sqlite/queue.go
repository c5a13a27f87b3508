package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	repository "github.com/korobprog/supermock-matcher/internal/adapters/repository"
	"github.com/korobprog/supermock-matcher/internal/domain/model"
)

// queueStore implements repository.QueueStore.
type queueStore struct {
	db *sql.DB
}

func (q *queueStore) Enqueue(ctx context.Context, userID string, role model.Role, bucket model.Bucket) (model.QueueEntry, bool, error) {
	const op = "queue.enqueue"

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return model.QueueEntry{}, false, wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	slot := bucket.Slot.UTC().Format(time.RFC3339)

	// Return the existing waiting entry unchanged when the tuple is already
	// enqueued; the partial unique index backs this up under concurrency.
	row := tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM queue_entries
		WHERE user_id = ? AND role = ? AND profession = ? AND language = ? AND slot = ? AND status = 'waiting'`,
		userID, string(role), bucket.Profession, bucket.Language, slot,
	)
	var existingID, existingCreated string
	switch err := row.Scan(&existingID, &existingCreated); {
	case err == nil:
		createdAt, perr := time.Parse(time.RFC3339, existingCreated)
		if perr != nil {
			return model.QueueEntry{}, false, wrap(op, perr)
		}
		return model.QueueEntry{
			ID: existingID, UserID: userID, Role: role,
			Profession: bucket.Profession, Language: bucket.Language, Slot: bucket.Slot,
			Status: model.EntryWaiting, CreatedAt: createdAt,
		}, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return model.QueueEntry{}, false, wrap(op, err)
	}

	entry := model.QueueEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Role:       role,
		Profession: bucket.Profession,
		Language:   bucket.Language,
		Slot:       bucket.Slot,
		Status:     model.EntryWaiting,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries (id, user_id, role, profession, language, slot, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'waiting', ?)`,
		entry.ID, entry.UserID, string(entry.Role), entry.Profession, entry.Language,
		slot, entry.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return model.QueueEntry{}, false, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return model.QueueEntry{}, false, wrap(op, err)
	}
	return entry, true, nil
}

func (q *queueStore) ListWaiting(ctx context.Context, bucket model.Bucket, role model.Role) ([]model.QueueEntry, error) {
	const op = "queue.list_waiting"

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, created_at FROM queue_entries
		WHERE profession = ? AND language = ? AND slot = ? AND role = ? AND status = 'waiting'
		ORDER BY created_at ASC, user_id ASC`,
		bucket.Profession, bucket.Language, bucket.Slot.UTC().Format(time.RFC3339), string(role),
	)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.QueueEntry
	for rows.Next() {
		var id, userID, created string
		if err := rows.Scan(&id, &userID, &created); err != nil {
			return nil, wrap(op, err)
		}
		createdAt, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, model.QueueEntry{
			ID: id, UserID: userID, Role: role,
			Profession: bucket.Profession, Language: bucket.Language, Slot: bucket.Slot,
			Status: model.EntryWaiting, CreatedAt: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (q *queueStore) MarkMatched(ctx context.Context, entryID string) error {
	const op = "queue.mark_matched"

	res, err := q.db.ExecContext(ctx,
		`UPDATE queue_entries SET status = 'matched' WHERE id = ? AND status = 'waiting'`, entryID)
	if err != nil {
		return wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if affected == 1 {
		return nil
	}
	return q.missReason(ctx, entryID)
}

func (q *queueStore) MatchPair(ctx context.Context, interviewerEntryID, candidateEntryID string) error {
	const op = "queue.match_pair"

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range []string{interviewerEntryID, candidateEntryID} {
		res, err := tx.ExecContext(ctx,
			`UPDATE queue_entries SET status = 'matched' WHERE id = ? AND status = 'waiting'`, id)
		if err != nil {
			return wrap(op, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return wrap(op, err)
		}
		if affected != 1 {
			// Rolling back leaves the sibling entry in its prior status.
			return q.missReason(ctx, id)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, err)
	}
	return nil
}

// missReason distinguishes a missing entry from one that lost the race.
func (q *queueStore) missReason(ctx context.Context, entryID string) error {
	var status string
	err := q.db.QueryRowContext(ctx,
		`SELECT status FROM queue_entries WHERE id = ?`, entryID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return wrap("queue.status", err)
	}
	return repository.ErrAlreadyMatched
}

func (q *queueStore) RemoveForUser(ctx context.Context, userID string, role model.Role) (int, error) {
	const op = "queue.remove_for_user"

	query := `UPDATE queue_entries SET status = 'cancelled' WHERE user_id = ? AND status = 'waiting'`
	args := []any{userID}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, string(role))
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrap(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(op, err)
	}
	return int(affected), nil
}

func (q *queueStore) ListBuckets(ctx context.Context) ([]model.Bucket, error) {
	const op = "queue.list_buckets"

	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT profession, language, slot FROM queue_entries
		WHERE status = 'waiting'
		ORDER BY profession, language, slot`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Bucket
	for rows.Next() {
		var profession, language, slotRaw string
		if err := rows.Scan(&profession, &language, &slotRaw); err != nil {
			return nil, wrap(op, err)
		}
		slot, err := time.Parse(time.RFC3339, slotRaw)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, model.Bucket{Profession: profession, Language: language, Slot: slot})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func (q *queueStore) CountWaiting(ctx context.Context) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_entries WHERE status = 'waiting'`).Scan(&count)
	if err != nil {
		return 0, wrap("queue.count_waiting", err)
	}
	return count, nil
}
