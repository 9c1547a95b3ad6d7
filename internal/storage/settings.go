package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"

	"volleybot/internal/domain"
)

const (
	settingAdminIDs     = "admin_user_ids"
	settingPollTemplate = "default_poll_template"
)

// GetSetting loads a JSON-encoded setting into out. The second return value
// reports whether the key existed.
func (s *sqliteStore) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(raw), out)
}

func (s *sqliteStore) SetSetting(ctx context.Context, key string, value any) error {
	if err := s.ready(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), now(),
	)
	return err
}

// GetTemplate returns the default poll template, falling back to the seed
// values for any field a stored (possibly older) template is missing.
func (s *sqliteStore) GetTemplate(ctx context.Context) (domain.PollTemplate, error) {
	t := domain.DefaultPollTemplate()
	var stored map[string]json.RawMessage
	ok, err := s.GetSetting(ctx, settingPollTemplate, &stored)
	if err != nil {
		return domain.PollTemplate{}, err
	}
	if !ok {
		return t, nil
	}
	// Merge stored fields over the defaults so newly added fields keep their
	// seed values.
	base, _ := json.Marshal(t)
	var merged map[string]json.RawMessage
	_ = json.Unmarshal(base, &merged)
	for k, v := range stored {
		merged[k] = v
	}
	full, _ := json.Marshal(merged)
	if err := json.Unmarshal(full, &t); err != nil {
		return domain.PollTemplate{}, err
	}
	return t, nil
}

func (s *sqliteStore) SetTemplate(ctx context.Context, t domain.PollTemplate) error {
	return s.SetSetting(ctx, settingPollTemplate, t)
}

// UpdateTemplateField updates a single template field, preserving the rest.
func (s *sqliteStore) UpdateTemplateField(ctx context.Context, field string, value any) error {
	t, err := s.GetTemplate(ctx)
	if err != nil {
		return err
	}
	raw, _ := json.Marshal(t)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	m[field] = value
	merged, _ := json.Marshal(m)
	var updated domain.PollTemplate
	if err := json.Unmarshal(merged, &updated); err != nil {
		return err
	}
	return s.SetTemplate(ctx, updated)
}

func (s *sqliteStore) GetAdminIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if _, err := s.GetSetting(ctx, settingAdminIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *sqliteStore) SetAdminIDs(ctx context.Context, ids []int64) error {
	return s.SetSetting(ctx, settingAdminIDs, ids)
}

func (s *sqliteStore) AddAdminID(ctx context.Context, id int64) error {
	ids, err := s.GetAdminIDs(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return s.SetAdminIDs(ctx, append(ids, id))
}
