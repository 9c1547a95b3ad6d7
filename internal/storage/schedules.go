package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"volleybot/internal/domain"
)

func (s *sqliteStore) AddSchedule(ctx context.Context, r domain.ScheduleRule) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := domain.ParseWeekday(r.TrainingDay); err != nil {
		return err
	}
	if _, err := domain.ParseWeekday(r.PollDay); err != nil {
		return err
	}
	trainingTime, err := domain.NormalizeTimeOfDay(r.TrainingTime)
	if err != nil {
		return err
	}
	ts := now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO poll_schedules
		 (id, name, chat_id, message_thread_id, training_day, poll_day, training_time, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.ChatID, nullInt(r.TopicID),
		strings.ToLower(r.TrainingDay), strings.ToLower(r.PollDay), trainingTime,
		boolInt(r.Enabled), ts, ts,
	)
	return err
}

func (s *sqliteStore) GetSchedule(ctx context.Context, id string) (domain.ScheduleRule, error) {
	if err := s.ready(); err != nil {
		return domain.ScheduleRule{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, chat_id, message_thread_id, training_day, poll_day, training_time, enabled, created_at, updated_at
		 FROM poll_schedules WHERE id = ?`, id)
	r, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScheduleRule{}, fmt.Errorf("schedule %q: %w", id, ErrNotFound)
	}
	return r, err
}

func (s *sqliteStore) ListSchedules(ctx context.Context) ([]domain.ScheduleRule, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.querySchedules(ctx,
		`SELECT id, name, chat_id, message_thread_id, training_day, poll_day, training_time, enabled, created_at, updated_at
		 FROM poll_schedules ORDER BY created_at ASC`)
}

// ListSchedulesForPollDay returns enabled rules whose poll weekday equals the
// given day. Disabled rules never match, even on their poll day.
func (s *sqliteStore) ListSchedulesForPollDay(ctx context.Context, weekday time.Weekday) ([]domain.ScheduleRule, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name := strings.ToLower(weekday.String())
	return s.querySchedules(ctx,
		`SELECT id, name, chat_id, message_thread_id, training_day, poll_day, training_time, enabled, created_at, updated_at
		 FROM poll_schedules WHERE enabled = 1 AND poll_day = ? ORDER BY created_at ASC`, name)
}

// UpdateSchedule applies a sparse field set. Unset fields are preserved; the
// read-modify-write is the store's responsibility, not the caller's.
func (s *sqliteStore) UpdateSchedule(ctx context.Context, id string, upd domain.ScheduleUpdate) error {
	if err := s.ready(); err != nil {
		return err
	}
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.ChatID != nil {
		add("chat_id", *upd.ChatID)
	}
	if upd.TopicID != nil {
		add("message_thread_id", nullInt(*upd.TopicID))
	}
	if upd.TrainingDay != nil {
		if _, err := domain.ParseWeekday(*upd.TrainingDay); err != nil {
			return err
		}
		add("training_day", strings.ToLower(*upd.TrainingDay))
	}
	if upd.PollDay != nil {
		if _, err := domain.ParseWeekday(*upd.PollDay); err != nil {
			return err
		}
		add("poll_day", strings.ToLower(*upd.PollDay))
	}
	if upd.TrainingTime != nil {
		trainingTime, err := domain.NormalizeTimeOfDay(*upd.TrainingTime)
		if err != nil {
			return err
		}
		add("training_time", trainingTime)
	}
	if upd.Enabled != nil {
		add("enabled", boolInt(*upd.Enabled))
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", now())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE poll_schedules SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) RemoveSchedule(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM poll_schedules WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) querySchedules(ctx context.Context, q string, args ...any) ([]domain.ScheduleRule, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduleRule
	for rows.Next() {
		r, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (domain.ScheduleRule, error) {
	var (
		r                    domain.ScheduleRule
		topicID              sql.NullInt64
		enabled              int
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.Name, &r.ChatID, &topicID, &r.TrainingDay, &r.PollDay,
		&r.TrainingTime, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return domain.ScheduleRule{}, err
	}
	r.TopicID = int(topicID.Int64)
	r.Enabled = enabled != 0
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
