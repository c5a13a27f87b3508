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

// preferenceStore implements repository.PreferenceStore. Records are only
// ever inserted; the "current" projection is a query.
type preferenceStore struct {
	db *sql.DB
}

func (p *preferenceStore) Save(ctx context.Context, pref model.Preference) error {
	const op = "preferences.save"

	slots := make([]string, len(pref.Slots))
	for i, s := range pref.Slots {
		slots[i] = s.UTC().Format(time.RFC3339)
	}
	encoded, err := json.Marshal(slots)
	if err != nil {
		return wrap(op, err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO preferences (id, user_id, role, profession, language, slots, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pref.ID, pref.UserID, string(pref.Role), pref.Profession, pref.Language,
		string(encoded), pref.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (p *preferenceStore) Current(ctx context.Context, userID string, role model.Role) (model.Preference, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, role, profession, language, slots, created_at FROM preferences
		WHERE user_id = ? AND role = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, userID, string(role))
	pref, err := scanPreference(row.Scan)
	if err != nil {
		return model.Preference{}, err
	}
	return pref, nil
}

func (p *preferenceStore) CurrentAll(ctx context.Context) ([]model.Preference, error) {
	const op = "preferences.current_all"

	// Newest row per (user, role); rowid breaks same-timestamp ties in
	// favor of the later append.
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, role, profession, language, slots, created_at FROM preferences
		WHERE rowid IN (
			SELECT MAX(rowid) FROM preferences p2
			WHERE p2.created_at = (
				SELECT MAX(created_at) FROM preferences p3
				WHERE p3.user_id = p2.user_id AND p3.role = p2.role
			)
			GROUP BY p2.user_id, p2.role
		)
		ORDER BY user_id, role`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Preference
	for rows.Next() {
		pref, err := scanPreference(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func scanPreference(scan func(dest ...any) error) (model.Preference, error) {
	const op = "preferences.scan"

	var (
		pref              model.Preference
		role              string
		slotsRaw, created string
	)
	err := scan(&pref.ID, &pref.UserID, &role, &pref.Profession, &pref.Language, &slotsRaw, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Preference{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Preference{}, wrap(op, err)
	}

	var slotStrings []string
	if err := json.Unmarshal([]byte(slotsRaw), &slotStrings); err != nil {
		return model.Preference{}, wrap(op, err)
	}
	pref.Slots = make([]time.Time, len(slotStrings))
	for i, s := range slotStrings {
		if pref.Slots[i], err = time.Parse(time.RFC3339, s); err != nil {
			return model.Preference{}, wrap(op, err)
		}
	}
	if pref.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return model.Preference{}, wrap(op, err)
	}
	pref.Role = model.Role(role)
	return pref, nil
}

// toolStore implements repository.ToolStore.
type toolStore struct {
	db *sql.DB
}

func (t *toolStore) Save(ctx context.Context, ut model.UserTools) error {
	const op = "tools.save"

	encoded, err := json.Marshal(ut.Tools)
	if err != nil {
		return wrap(op, err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO user_tools (user_id, profession, tools) VALUES (?, ?, ?)
		ON CONFLICT (user_id, profession) DO UPDATE SET tools = excluded.tools`,
		ut.UserID, ut.Profession, string(encoded),
	)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func (t *toolStore) For(ctx context.Context, userID, profession string) ([]string, error) {
	const op = "tools.for"

	var encoded string
	err := t.db.QueryRowContext(ctx,
		`SELECT tools FROM user_tools WHERE user_id = ? AND profession = ?`,
		userID, profession).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	var tools []string
	if err := json.Unmarshal([]byte(encoded), &tools); err != nil {
		return nil, wrap(op, err)
	}
	return tools, nil
}
