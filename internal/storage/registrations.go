package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"volleybot/internal/domain"
	"volleybot/pkg/logx"
)

// Register signs userID up for the occurrence. The caller's resulting status
// depends on how many registered slots the occurrence already holds: fewer
// than domain.Capacity admits immediately, otherwise the row lands on the
// waitlist. A repeat call by an already signed-up user is a no-op that
// returns the current status.
//
// The whole read-decide-write sequence runs in one transaction on the single
// write connection, so two concurrent callers can never both observe the same
// free slot.
func (s *sqliteStore) Register(ctx context.Context, key domain.OccurrenceKey, topicID int, userID int64) (domain.Status, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	var status domain.Status
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Repeat call: keep the existing row and its status untouched, so the
		// caller's FIFO position is preserved.
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM training_registrations
			 WHERE training_date = ? AND training_time = ? AND chat_id = ? AND user_telegram_id = ?`,
			key.Date, key.Time, key.ChatID, userID,
		).Scan(&existing)
		if err == nil {
			status = domain.Status(existing)
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM training_registrations
			 WHERE training_date = ? AND training_time = ? AND chat_id = ? AND status = ?`,
			key.Date, key.Time, key.ChatID, domain.StatusRegistered,
		).Scan(&count)
		if err != nil {
			return err
		}

		status = domain.StatusRegistered
		if count >= domain.Capacity {
			status = domain.StatusWaitlist
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO training_registrations
			 (id, training_date, training_time, chat_id, topic_id, user_telegram_id, status, registered_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(training_date, training_time, chat_id, user_telegram_id)
			 DO UPDATE SET topic_id = excluded.topic_id`,
			uuid.NewString(), key.Date, key.Time, key.ChatID, nullInt(topicID), userID, status, now(),
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	return status, nil
}

// Unregister removes the user's row for the occurrence. If that freed a
// registered slot, exactly one waitlisted user is promoted: the one with the
// earliest original registration time.
func (s *sqliteStore) Unregister(ctx context.Context, key domain.OccurrenceKey, userID int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var dropped string
		err := tx.QueryRowContext(ctx,
			`DELETE FROM training_registrations
			 WHERE training_date = ? AND training_time = ? AND chat_id = ? AND user_telegram_id = ?
			 RETURNING status`,
			key.Date, key.Time, key.ChatID, userID,
		).Scan(&dropped)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // nothing to remove, nothing to promote
		}
		if err != nil {
			return err
		}
		if domain.Status(dropped) != domain.StatusRegistered {
			return nil // a waitlist departure frees no slot
		}

		// Promote the earliest-waiting registrant, if any. Their position is
		// determined by when they originally joined, not by this event.
		var promoteID string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM training_registrations
			 WHERE training_date = ? AND training_time = ? AND chat_id = ? AND status = ?
			 ORDER BY registered_at ASC
			 LIMIT 1`,
			key.Date, key.Time, key.ChatID, domain.StatusWaitlist,
		).Scan(&promoteID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE training_registrations SET status = ? WHERE id = ?`,
			domain.StatusRegistered, promoteID,
		)
		if err == nil {
			s.log.Info("waitlist promotion",
				logx.String("date", key.Date),
				logx.String("time", key.Time),
				logx.String("chat", key.ChatID))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("unregister: %w", err)
	}
	return nil
}

// ListUserRegistrations returns all of a user's registrations ordered by
// occurrence date, then time.
func (s *sqliteStore) ListUserRegistrations(ctx context.Context, userID int64) ([]domain.Registration, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, training_date, training_time, chat_id, topic_id, user_telegram_id, status, registered_at
		 FROM training_registrations
		 WHERE user_telegram_id = ?
		 ORDER BY training_date ASC, training_time ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows, false)
}

// ListOccurrenceRegistrations returns every registration for one occurrence,
// joined with public profile fields, ordered by registration time ascending.
// The ordering is load-bearing: the UI derives the registered/waitlist split
// from it and promotion relies on it.
func (s *sqliteStore) ListOccurrenceRegistrations(ctx context.Context, key domain.OccurrenceKey) ([]domain.Registration, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tr.id, tr.training_date, tr.training_time, tr.chat_id, tr.topic_id,
		        tr.user_telegram_id, tr.status, tr.registered_at,
		        u.first_name, u.last_name, u.username, u.photo_url
		 FROM training_registrations tr
		 LEFT JOIN users u ON tr.user_telegram_id = u.telegram_id
		 WHERE tr.training_date = ? AND tr.training_time = ? AND tr.chat_id = ?
		 ORDER BY tr.registered_at ASC`,
		key.Date, key.Time, key.ChatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows, true)
}

// ListRegistrationsBetween returns registrations for a date range joined with
// profile fields, for calendar rollups and the admin period view.
func (s *sqliteStore) ListRegistrationsBetween(ctx context.Context, startDate, endDate string) ([]domain.Registration, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tr.id, tr.training_date, tr.training_time, tr.chat_id, tr.topic_id,
		        tr.user_telegram_id, tr.status, tr.registered_at,
		        u.first_name, u.last_name, u.username, u.photo_url
		 FROM training_registrations tr
		 LEFT JOIN users u ON tr.user_telegram_id = u.telegram_id
		 WHERE tr.training_date BETWEEN ? AND ?
		 ORDER BY tr.training_date ASC, tr.training_time ASC, tr.registered_at ASC`,
		startDate, endDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRegistrations(rows, true)
}

func scanRegistrations(rows *sql.Rows, withProfile bool) ([]domain.Registration, error) {
	var out []domain.Registration
	for rows.Next() {
		var (
			r            domain.Registration
			topicID      sql.NullInt64
			registeredAt string
			status       string
			first, last  sql.NullString
			uname, photo sql.NullString
		)
		dest := []any{&r.ID, &r.Date, &r.Time, &r.ChatID, &topicID, &r.UserID, &status, &registeredAt}
		if withProfile {
			dest = append(dest, &first, &last, &uname, &photo)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.TopicID = int(topicID.Int64)
		r.Status = domain.Status(status)
		r.RegisteredAt = parseTime(registeredAt)
		r.FirstName = first.String
		r.LastName = last.String
		r.Username = uname.String
		r.PhotoURL = photo.String
		out = append(out, r)
	}
	return out, rows.Err()
}
