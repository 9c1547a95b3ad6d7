package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"volleybot/internal/domain"
)

func (s *sqliteStore) AddTraining(ctx context.Context, t domain.Training) error {
	if err := s.ready(); err != nil {
		return err
	}
	trainingTime, err := domain.NormalizeTimeOfDay(t.Time)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO one_time_trainings (id, training_date, training_time, chat_id, topic_id, name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date, trainingTime, t.ChatID, nullInt(t.TopicID), t.Name, now(),
	)
	return err
}

// RemoveTraining deletes a one-time training and its registrations. The
// occurrence key is read back from the stored row, never reconstructed from
// the id string.
func (s *sqliteStore) RemoveTraining(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var date, tm, chatID string
		err := tx.QueryRowContext(ctx,
			`SELECT training_date, training_time, chat_id FROM one_time_trainings WHERE id = ?`, id,
		).Scan(&date, &tm, &chatID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("training %q: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM training_registrations
			 WHERE training_date = ? AND training_time = ? AND chat_id = ?`,
			date, tm, chatID,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM one_time_trainings WHERE id = ?`, id)
		return err
	})
}

func (s *sqliteStore) ListTrainingsForMonth(ctx context.Context, year, month int) ([]domain.Training, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, training_date, training_time, chat_id, topic_id, name, created_at
		 FROM one_time_trainings
		 WHERE strftime('%Y', training_date) = ? AND strftime('%m', training_date) = ?
		 ORDER BY training_date ASC, training_time ASC`,
		fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", month),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Training
	for rows.Next() {
		var (
			t         domain.Training
			topicID   sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Date, &t.Time, &t.ChatID, &topicID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		t.TopicID = int(topicID.Int64)
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}
