package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volleybot/internal/domain"
)

// UpsertUser creates the roster row on first telegram login and refreshes
// profile fields plus last_login on subsequent ones. The admin and active
// flags are never touched by a login.
func (s *sqliteStore) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, first_name, last_name, username, photo_url, is_admin, is_active, created_at, updated_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT(telegram_id) DO UPDATE SET
		   first_name = excluded.first_name,
		   last_name  = excluded.last_name,
		   username   = excluded.username,
		   photo_url  = excluded.photo_url,
		   updated_at = excluded.updated_at,
		   last_login = excluded.last_login`,
		u.TelegramID, u.FirstName, nullStr(u.LastName), nullStr(u.Username), nullStr(u.PhotoURL),
		boolInt(u.IsAdmin), ts, ts, ts,
	)
	if err != nil {
		return domain.User{}, err
	}
	return s.GetUser(ctx, u.TelegramID)
}

func (s *sqliteStore) GetUser(ctx context.Context, telegramID int64) (domain.User, error) {
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, first_name, last_name, username, photo_url, is_admin, is_active, created_at, updated_at, last_login
		 FROM users WHERE telegram_id = ?`, telegramID)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", telegramID, ErrNotFound)
	}
	return u, err
}

func (s *sqliteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, telegram_id, first_name, last_name, username, photo_url, is_admin, is_active, created_at, updated_at, last_login
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SetUserActive(ctx context.Context, telegramID int64, active bool) error {
	return s.setUserFlag(ctx, telegramID, "is_active", active)
}

func (s *sqliteStore) SetUserAdmin(ctx context.Context, telegramID int64, admin bool) error {
	return s.setUserFlag(ctx, telegramID, "is_admin", admin)
}

func (s *sqliteStore) setUserFlag(ctx context.Context, telegramID int64, col string, v bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET `+col+` = ?, updated_at = ? WHERE telegram_id = ?`,
		boolInt(v), now(), telegramID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", telegramID, ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		last, uname, photo   sql.NullString
		isAdmin, isActive    int
		createdAt, updatedAt string
		lastLogin            sql.NullString
	)
	err := row.Scan(&u.ID, &u.TelegramID, &u.FirstName, &last, &uname, &photo,
		&isAdmin, &isActive, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		return domain.User{}, err
	}
	u.LastName = last.String
	u.Username = uname.String
	u.PhotoURL = photo.String
	u.IsAdmin = isAdmin != 0
	u.IsActive = isActive != 0
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	if lastLogin.Valid {
		t := parseTime(lastLogin.String)
		u.LastLogin = &t
	}
	return u, nil
}
