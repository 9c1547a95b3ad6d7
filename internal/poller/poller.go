// Package poller posts the weekly training polls. A daily cron tick looks up
// schedules whose poll day is today, projects the next training date and
// publishes a pinned poll per schedule.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

// PollRef identifies a published poll message.
type PollRef struct {
	PollID    string
	MessageID int
}

// Transport publishes polls to the chat platform.
type Transport interface {
	PublishPoll(ctx context.Context, chatID string, topicID int, question string, options []string) (PollRef, error)
	Pin(ctx context.Context, chatID string, messageID int) error
}

// Config configures the orchestrator.
type Config struct {
	TickTime string         // "HH:MM", local to Location; default 12:00
	Location *time.Location // nil means time.Local
}

// Service runs the daily tick.
type Service struct {
	cfg       Config
	store     storage.Store
	transport Transport
	log       logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entryID cron.EntryID
}

func New(cfg Config, store storage.Store, transport Transport, log logx.Logger) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		transport: transport,
		log:       log.With(logx.String("component", "poller")),
	}
}

// Start registers the daily tick and starts the cron loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	spec, err := tickSpec(s.cfg.TickTime)
	if err != nil {
		return err
	}
	s.c = cron.New(cron.WithLocation(loc))
	s.entryID, err = s.c.AddFunc(spec, func() {
		s.Tick(ctx, time.Now().In(loc))
	})
	if err != nil {
		s.c = nil
		return fmt.Errorf("poller: register tick: %w", err)
	}
	s.c.Start()
	s.log.Info("started", logx.String("tick", spec), logx.String("location", loc.String()))
	return nil
}

// Apply re-registers the tick with a new time. Used by config hot reload.
func (s *Service) Apply(ctx context.Context, tickTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		s.cfg.TickTime = tickTime
		return nil
	}
	spec, err := tickSpec(tickTime)
	if err != nil {
		return err
	}
	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	id, err := s.c.AddFunc(spec, func() {
		s.Tick(ctx, time.Now().In(loc))
	})
	if err != nil {
		return fmt.Errorf("poller: reschedule tick: %w", err)
	}
	s.c.Remove(s.entryID)
	s.entryID = id
	s.cfg.TickTime = tickTime
	s.log.Info("tick rescheduled", logx.String("tick", spec))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("stopped")
}

// Tick posts every poll due on the given day. One schedule failing never
// blocks the rest; each failure is logged and skipped.
func (s *Service) Tick(ctx context.Context, now time.Time) {
	weekday := now.Weekday()
	log := s.log.With(logx.String("weekday", strings.ToLower(weekday.String())))

	tpl, err := s.store.GetTemplate(ctx)
	if err != nil {
		log.Error("load poll template", logx.Err(err))
		return
	}

	schedules, err := s.store.ListSchedulesForPollDay(ctx, weekday)
	if err != nil {
		log.Error("list schedules", logx.Err(err))
		return
	}

	posted := 0
	for _, rule := range schedules {
		if err := s.postForSchedule(ctx, tpl, rule, now); err != nil {
			log.Error("schedule poll failed",
				logx.String("schedule_id", rule.ID),
				logx.String("schedule", rule.Name),
				logx.Err(err))
			continue
		}
		posted++
	}

	if s.defaultDue(tpl, weekday, schedules) {
		if err := s.postDefault(ctx, tpl, now); err != nil {
			log.Error("default poll failed", logx.Err(err))
		} else {
			posted++
		}
	}

	log.Info("tick complete",
		logx.Int("schedules", len(schedules)),
		logx.Int("posted", posted))
}

// PostNow publishes one poll immediately for the given schedule. Backs the
// admin "post now" action.
func (s *Service) PostNow(ctx context.Context, scheduleID string, now time.Time) error {
	rule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	tpl, err := s.store.GetTemplate(ctx)
	if err != nil {
		return err
	}
	return s.postForSchedule(ctx, tpl, rule, now)
}

func (s *Service) postForSchedule(ctx context.Context, tpl domain.PollTemplate, rule domain.ScheduleRule, now time.Time) error {
	date, err := domain.NextOccurrenceOf(rule.TrainingDay, now)
	if err != nil {
		return fmt.Errorf("project training date: %w", err)
	}
	question := RenderQuestion(tpl.Description, date, rule.TrainingTime)
	return s.publish(ctx, rule.ChatID, rule.TopicID, question, tpl.Options, rule.ID, date, rule.TrainingTime)
}

func (s *Service) postDefault(ctx context.Context, tpl domain.PollTemplate, now time.Time) error {
	date, err := domain.NextOccurrenceOf(tpl.TrainingDay, now)
	if err != nil {
		return fmt.Errorf("project training date: %w", err)
	}
	question := RenderQuestion(tpl.Description, date, tpl.TrainingTime)
	return s.publish(ctx, tpl.DefaultChatID, tpl.DefaultTopicID, question, tpl.Options, "", date, tpl.TrainingTime)
}

func (s *Service) publish(ctx context.Context, chatID string, topicID int, question string, options []string, scheduleID string, date time.Time, trainingTime string) error {
	ref, err := s.transport.PublishPoll(ctx, chatID, topicID, question, options)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	// Pinning is best-effort: a missing pin right in the chat must not undo
	// the already-posted poll.
	if err := s.transport.Pin(ctx, chatID, ref.MessageID); err != nil {
		s.log.Warn("pin failed",
			logx.String("chat_id", chatID),
			logx.Int("message_id", ref.MessageID),
			logx.Err(err))
	}
	record := domain.ActivePoll{
		ID:           uuid.NewString(),
		PollID:       ref.PollID,
		MessageID:    ref.MessageID,
		ChatID:       chatID,
		TopicID:      topicID,
		ScheduleID:   scheduleID,
		Question:     question,
		TrainingDate: date.Format(domain.DateLayout),
		TrainingTime: trainingTime,
		PostedAt:     time.Now(),
	}
	if err := s.store.AddActivePoll(ctx, record); err != nil {
		// The poll is live either way; losing the record only affects later
		// cleanup, so log instead of failing the schedule.
		s.log.Error("record active poll", logx.String("poll_id", ref.PollID), logx.Err(err))
	}
	s.log.Info("poll posted",
		logx.String("chat_id", chatID),
		logx.String("schedule_id", scheduleID),
		logx.String("training_date", record.TrainingDate),
		logx.String("poll_id", ref.PollID))
	return nil
}

// defaultDue reports whether the built-in template should fire on its own:
// enabled, aimed at a chat, due today, and not already covered by a schedule
// posting the same slot to the same chat.
func (s *Service) defaultDue(tpl domain.PollTemplate, weekday time.Weekday, schedules []domain.ScheduleRule) bool {
	if !tpl.Enabled || tpl.DefaultChatID == "" {
		return false
	}
	wd, err := domain.ParseWeekday(tpl.PollDay)
	if err != nil || wd != weekday {
		return false
	}
	for _, rule := range schedules {
		if rule.ChatID == tpl.DefaultChatID &&
			strings.EqualFold(rule.TrainingDay, tpl.TrainingDay) &&
			rule.TrainingTime == tpl.TrainingTime {
			return false
		}
	}
	return true
}

// RenderQuestion substitutes {date} and {time} in the template text. The date
// is rendered with its Russian weekday name.
func RenderQuestion(text string, date time.Time, trainingTime string) string {
	r := strings.NewReplacer(
		"{date}", domain.FormatDateWithWeekday(date),
		"{time}", trainingTime,
	)
	return r.Replace(text)
}

func tickSpec(tickTime string) (string, error) {
	if tickTime == "" {
		tickTime = "12:00"
	}
	hour, minute, err := domain.ParseTimeOfDay(tickTime)
	if err != nil {
		return "", fmt.Errorf("poller: tick time %q: %w", tickTime, err)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
