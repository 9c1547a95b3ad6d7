package storage

import (
	"context"
	"database/sql"

	"volleybot/internal/domain"
)

func (s *sqliteStore) AddActivePoll(ctx context.Context, p domain.ActivePoll) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO active_polls (id, poll_id, chat_id, message_id, message_thread_id, schedule_id, question, training_date, training_time, posted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PollID, p.ChatID, p.MessageID, nullInt(p.TopicID), nullStr(p.ScheduleID),
		p.Question, p.TrainingDate, p.TrainingTime, now(),
	)
	return err
}

func (s *sqliteStore) ListActivePolls(ctx context.Context) ([]domain.ActivePoll, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, poll_id, chat_id, message_id, message_thread_id, schedule_id, question, training_date, training_time, posted_at
		 FROM active_polls ORDER BY posted_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivePoll
	for rows.Next() {
		var (
			p          domain.ActivePoll
			topicID    sql.NullInt64
			scheduleID sql.NullString
			postedAt   string
		)
		if err := rows.Scan(&p.ID, &p.PollID, &p.ChatID, &p.MessageID, &topicID, &scheduleID,
			&p.Question, &p.TrainingDate, &p.TrainingTime, &postedAt); err != nil {
			return nil, err
		}
		p.TopicID = int(topicID.Int64)
		p.ScheduleID = scheduleID.String
		p.PostedAt = parseTime(postedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) RemoveActivePoll(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_polls WHERE id = ?`, id)
	return err
}
