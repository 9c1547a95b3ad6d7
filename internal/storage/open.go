package storage

import (
	"context"
	"errors"
	"time"

	"volleybot/internal/domain"
	"volleybot/pkg/logx"
)

var (
	// ErrUnavailable reports a store that is not provisioned or not reachable.
	// It is distinct from "zero rows": callers must never treat it as empty.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound reports a missing row for a keyed lookup.
	ErrNotFound = errors.New("not found")
)

// Config configures storage. Path is the SQLite database file.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API used by the bot, the poller and the web layer.
type Store interface {
	// Settings and default poll template.
	GetSetting(ctx context.Context, key string, out any) (bool, error)
	SetSetting(ctx context.Context, key string, value any) error
	GetTemplate(ctx context.Context) (domain.PollTemplate, error)
	SetTemplate(ctx context.Context, t domain.PollTemplate) error
	UpdateTemplateField(ctx context.Context, field string, value any) error
	GetAdminIDs(ctx context.Context) ([]int64, error)
	SetAdminIDs(ctx context.Context, ids []int64) error
	AddAdminID(ctx context.Context, id int64) error

	// Poll schedules.
	AddSchedule(ctx context.Context, s domain.ScheduleRule) error
	GetSchedule(ctx context.Context, id string) (domain.ScheduleRule, error)
	ListSchedules(ctx context.Context) ([]domain.ScheduleRule, error)
	ListSchedulesForPollDay(ctx context.Context, weekday time.Weekday) ([]domain.ScheduleRule, error)
	UpdateSchedule(ctx context.Context, id string, upd domain.ScheduleUpdate) error
	RemoveSchedule(ctx context.Context, id string) error

	// Training registrations.
	Register(ctx context.Context, key domain.OccurrenceKey, topicID int, userID int64) (domain.Status, error)
	Unregister(ctx context.Context, key domain.OccurrenceKey, userID int64) error
	ListUserRegistrations(ctx context.Context, userID int64) ([]domain.Registration, error)
	ListOccurrenceRegistrations(ctx context.Context, key domain.OccurrenceKey) ([]domain.Registration, error)
	ListRegistrationsBetween(ctx context.Context, startDate, endDate string) ([]domain.Registration, error)

	// One-time trainings.
	AddTraining(ctx context.Context, t domain.Training) error
	RemoveTraining(ctx context.Context, id string) error
	ListTrainingsForMonth(ctx context.Context, year, month int) ([]domain.Training, error)

	// Invite codes.
	CreateInviteCode(ctx context.Context, code string, createdBy int64, expiresAt *time.Time) error
	GetInviteCode(ctx context.Context, code string) (domain.InviteCode, error)
	ConsumeInviteCode(ctx context.Context, code string, userID int64) (bool, error)
	RevokeInviteCode(ctx context.Context, code string) (bool, error)
	ListInviteCodes(ctx context.Context) ([]domain.InviteCode, error)

	// Web user roster.
	UpsertUser(ctx context.Context, u domain.User) (domain.User, error)
	GetUser(ctx context.Context, telegramID int64) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SetUserActive(ctx context.Context, telegramID int64, active bool) error
	SetUserAdmin(ctx context.Context, telegramID int64, admin bool) error

	// Active polls.
	AddActivePoll(ctx context.Context, p domain.ActivePoll) error
	ListActivePolls(ctx context.Context) ([]domain.ActivePoll, error)
	RemoveActivePoll(ctx context.Context, id string) error

	Close() error
}

// Open initializes the SQLite store at cfg.Path, applying pragmas and
// embedded migrations.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	return openSQLite(cfg, log)
}
