package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"volleybot/internal/domain"
)

func (s *sqliteStore) CreateInviteCode(ctx context.Context, code string, createdBy int64, expiresAt *time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invite_codes (code, created_by, created_at, expires_at, enabled)
		 VALUES (?, ?, ?, ?, 1)`,
		code, createdBy, now(), nullTime(expiresAt),
	)
	return err
}

func (s *sqliteStore) GetInviteCode(ctx context.Context, code string) (domain.InviteCode, error) {
	if err := s.ready(); err != nil {
		return domain.InviteCode{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT ic.code, ic.created_by, ic.created_at, ic.expires_at, ic.used_by, ic.used_at, ic.enabled,
		        u.first_name, u.last_name, u.username
		 FROM invite_codes ic
		 LEFT JOIN users u ON ic.used_by = u.telegram_id
		 WHERE ic.code = ?`, code)

	var (
		ic                   domain.InviteCode
		createdAt            string
		expiresAt, usedAt    sql.NullString
		usedBy               sql.NullInt64
		enabled              int
		first, last, uname   sql.NullString
	)
	err := row.Scan(&ic.Code, &ic.CreatedBy, &createdAt, &expiresAt, &usedBy, &usedAt, &enabled,
		&first, &last, &uname)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InviteCode{}, fmt.Errorf("invite code: %w", ErrNotFound)
	}
	if err != nil {
		return domain.InviteCode{}, err
	}
	ic.CreatedAt = parseTime(createdAt)
	ic.Enabled = enabled != 0
	if expiresAt.Valid {
		t := parseTime(expiresAt.String)
		ic.ExpiresAt = &t
	}
	if usedBy.Valid {
		ic.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		t := parseTime(usedAt.String)
		ic.UsedAt = &t
	}
	ic.UserFirstName = first.String
	ic.UserLastName = last.String
	ic.UserUsername = uname.String
	return ic, nil
}

// ConsumeInviteCode flips the code to used+disabled, but only while it is
// still enabled, unconsumed and unexpired. The guard lives in the UPDATE's
// WHERE clause, so a losing concurrent caller simply affects zero rows.
func (s *sqliteStore) ConsumeInviteCode(ctx context.Context, code string, userID int64) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE invite_codes
		 SET used_by = ?, used_at = ?, enabled = 0
		 WHERE code = ? AND used_by IS NULL AND enabled = 1
		   AND (expires_at IS NULL OR expires_at > ?)`,
		userID, now(), code, now(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *sqliteStore) RevokeInviteCode(ctx context.Context, code string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE invite_codes SET enabled = 0 WHERE code = ?`, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *sqliteStore) ListInviteCodes(ctx context.Context) ([]domain.InviteCode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ic.code, ic.created_by, ic.created_at, ic.expires_at, ic.used_by, ic.used_at, ic.enabled,
		        creator.first_name, creator.last_name, creator.username
		 FROM invite_codes ic
		 LEFT JOIN users creator ON ic.created_by = creator.telegram_id
		 ORDER BY ic.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InviteCode
	for rows.Next() {
		var (
			ic                 domain.InviteCode
			createdAt          string
			expiresAt, usedAt  sql.NullString
			usedBy             sql.NullInt64
			enabled            int
			first, last, uname sql.NullString
		)
		err := rows.Scan(&ic.Code, &ic.CreatedBy, &createdAt, &expiresAt, &usedBy, &usedAt, &enabled,
			&first, &last, &uname)
		if err != nil {
			return nil, err
		}
		ic.CreatedAt = parseTime(createdAt)
		ic.Enabled = enabled != 0
		if expiresAt.Valid {
			t := parseTime(expiresAt.String)
			ic.ExpiresAt = &t
		}
		if usedBy.Valid {
			ic.UsedBy = &usedBy.Int64
		}
		if usedAt.Valid {
			t := parseTime(usedAt.String)
			ic.UsedAt = &t
		}
		ic.CreatorFirstName = first.String
		ic.CreatorLastName = last.String
		ic.CreatorUsername = uname.String
		out = append(out, ic)
	}
	return out, rows.Err()
}
