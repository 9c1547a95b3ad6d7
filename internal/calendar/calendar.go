// Package calendar projects recurring schedules and one-time trainings onto
// concrete month dates and folds the registration roster into each entry.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

// Source tells where a calendar entry came from.
const (
	SourceSchedule = "schedule"
	SourceOneTime  = "one_time"
)

// Entry is one training occurrence on the calendar with its roster.
type Entry struct {
	domain.OccurrenceKey
	TopicID    int                   `json:"topic_id,omitempty"`
	Title      string                `json:"title"`
	Source     string                `json:"source"`
	Registered []domain.Registration `json:"registered"`
	Waitlist   []domain.Registration `json:"waitlist"`
	SpotsLeft  int                   `json:"spots_left"`

	// UserStatus is the requesting user's own status for this entry, empty
	// when they are not signed up.
	UserStatus domain.Status `json:"user_status,omitempty"`
}

// Service builds calendar views from the store.
type Service struct {
	store storage.Store
	log   logx.Logger
}

func New(store storage.Store, log logx.Logger) *Service {
	return &Service{store: store, log: log.With(logx.String("component", "calendar"))}
}

// Month returns every training occurrence in the given month, ordered by date
// then time. userID marks the caller's own entries; pass 0 for an anonymous
// view.
func (s *Service) Month(ctx context.Context, year int, month time.Month, userID int64) ([]Entry, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("calendar: month %d out of range", month)
	}

	schedules, err := s.store.ListSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar: list schedules: %w", err)
	}
	trainings, err := s.store.ListTrainingsForMonth(ctx, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("calendar: list trainings: %w", err)
	}

	entries := map[domain.OccurrenceKey]*Entry{}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for _, rule := range schedules {
		if !rule.Enabled {
			continue
		}
		wd, err := domain.ParseWeekday(rule.TrainingDay)
		if err != nil {
			s.log.Warn("schedule with bad weekday skipped",
				logx.String("schedule_id", rule.ID), logx.Err(err))
			continue
		}
		for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
			if d.Weekday() != wd {
				continue
			}
			key := domain.OccurrenceKey{
				Date:   d.Format(domain.DateLayout),
				Time:   rule.TrainingTime,
				ChatID: rule.ChatID,
			}
			entries[key] = &Entry{
				OccurrenceKey: key,
				TopicID:       rule.TopicID,
				Title:         rule.Name,
				Source:        SourceSchedule,
			}
		}
	}

	// One-time trainings win over a schedule landing on the same slot.
	for _, tr := range trainings {
		entries[tr.OccurrenceKey] = &Entry{
			OccurrenceKey: tr.OccurrenceKey,
			TopicID:       tr.TopicID,
			Title:         tr.Name,
			Source:        SourceOneTime,
		}
	}

	if err := s.attachRosters(ctx, year, month, userID, entries); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.SpotsLeft = domain.Capacity - len(e.Registered)
		if e.SpotsLeft < 0 {
			e.SpotsLeft = 0
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (s *Service) attachRosters(ctx context.Context, year int, month time.Month, userID int64, entries map[domain.OccurrenceKey]*Entry) error {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	regs, err := s.store.ListRegistrationsBetween(ctx,
		start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	if err != nil {
		return fmt.Errorf("calendar: list registrations: %w", err)
	}
	for _, r := range regs {
		e, ok := entries[r.OccurrenceKey]
		if !ok {
			// Sign-up for a since-removed schedule: still show it so the
			// roster is never silently hidden.
			e = &Entry{OccurrenceKey: r.OccurrenceKey, Source: SourceSchedule}
			entries[r.OccurrenceKey] = e
		}
		switch r.Status {
		case domain.StatusRegistered:
			e.Registered = append(e.Registered, r)
		case domain.StatusWaitlist:
			e.Waitlist = append(e.Waitlist, r)
		}
		if userID != 0 && r.UserID == userID {
			e.UserStatus = r.Status
		}
	}
	return nil
}

// UpcomingForUser lists the user's own sign-ups from today onward.
func (s *Service) UpcomingForUser(ctx context.Context, userID int64, now time.Time) ([]domain.Registration, error) {
	regs, err := s.store.ListUserRegistrations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("calendar: list user registrations: %w", err)
	}
	today := now.Format(domain.DateLayout)
	out := regs[:0]
	for _, r := range regs {
		if r.Date >= today {
			out = append(out, r)
		}
	}
	return out, nil
}
