package domain

import "time"

// Capacity is the fixed number of registered slots per training occurrence.
// Sign-ups beyond it go to the waitlist.
const Capacity = 12

// Status of a training registration.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusWaitlist   Status = "waitlist"
)

// OccurrenceKey identifies one concrete training occurrence. It is derived,
// never stored as its own row: date+time+chat so a user can hold a morning and
// an evening registration on the same calendar day.
type OccurrenceKey struct {
	Date   string `json:"training_date"` // DateLayout
	Time   string `json:"training_time"` // "HH:MM" or "HH:MM - HH:MM"
	ChatID string `json:"chat_id"`
}

// ScheduleRule is a recurring weekly definition of when training happens and
// when its attendance poll is posted.
type ScheduleRule struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ChatID       string    `json:"chat_id"`
	TopicID      int       `json:"message_thread_id,omitempty"`
	TrainingDay  string    `json:"training_day"`
	PollDay      string    `json:"poll_day"`
	TrainingTime string    `json:"training_time"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleUpdate is a sparse field set for partial schedule edits.
// Nil fields are left untouched.
type ScheduleUpdate struct {
	Name         *string `json:"name,omitempty"`
	ChatID       *string `json:"chat_id,omitempty"`
	TopicID      *int    `json:"message_thread_id,omitempty"`
	TrainingDay  *string `json:"training_day,omitempty"`
	PollDay      *string `json:"poll_day,omitempty"`
	TrainingTime *string `json:"training_time,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

// Registration is one user's sign-up for one occurrence.
type Registration struct {
	ID           string    `json:"id"`
	OccurrenceKey
	TopicID      int       `json:"topic_id,omitempty"`
	UserID       int64     `json:"user_telegram_id"`
	Status       Status    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`

	// Profile fields joined from the user roster; empty when the user never
	// logged in to the web UI.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// Training is an ad-hoc occurrence not generated by any schedule rule.
type Training struct {
	ID        string    `json:"id"`
	OccurrenceKey
	TopicID   int       `json:"topic_id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteCode is a single-use, optionally time-limited token granting web access.
type InviteCode struct {
	Code      string     `json:"code"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	Enabled   bool       `json:"enabled"`

	// Joined profile fields (creator for listings, consumer for lookups).
	CreatorFirstName string `json:"creator_first_name,omitempty"`
	CreatorLastName  string `json:"creator_last_name,omitempty"`
	CreatorUsername  string `json:"creator_username,omitempty"`
	UserFirstName    string `json:"first_name,omitempty"`
	UserLastName     string `json:"last_name,omitempty"`
	UserUsername     string `json:"username,omitempty"`
}

// User is a web-roster entry keyed by telegram identity.
type User struct {
	ID         int64      `json:"id"`
	TelegramID int64      `json:"telegram_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name,omitempty"`
	Username   string     `json:"username,omitempty"`
	PhotoURL   string     `json:"photo_url,omitempty"`
	IsAdmin    bool       `json:"is_admin"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// PollTemplate is the default poll definition used by schedules that do not
// override options, and by the "post now" admin action.
type PollTemplate struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"` // contains {date} and {time} placeholders
	TrainingDay    string   `json:"training_day"`
	PollDay        string   `json:"poll_day"`
	TrainingTime   string   `json:"training_time"`
	Options        []string `json:"options"`
	Enabled        bool     `json:"enabled"`
	DefaultChatID  string   `json:"default_chat_id"`
	DefaultTopicID int      `json:"default_topic_id,omitempty"`
}

// DefaultPollTemplate mirrors the seed values applied on first run.
func DefaultPollTemplate() PollTemplate {
	return PollTemplate{
		Name:         "Волейбольный опрос",
		Description:  "Волейбол {date} {time} ВГАФК",
		TrainingDay:  "sunday",
		PollDay:      "friday",
		TrainingTime: "18:00",
		Options:      []string{"Буду", "Не буду", "Возможно"},
		Enabled:      true,
	}
}

// ActivePoll tracks a published poll message so it can be stopped or unpinned.
type ActivePoll struct {
	ID           string    `json:"id"`
	PollID       string    `json:"poll_id"`
	ChatID       string    `json:"chat_id"`
	MessageID    int       `json:"message_id"`
	TopicID      int       `json:"message_thread_id,omitempty"`
	ScheduleID   string    `json:"schedule_id,omitempty"`
	Question     string    `json:"question"`
	TrainingDate string    `json:"training_date"`
	TrainingTime string    `json:"training_time"`
	PostedAt     time.Time `json:"posted_at"`
}
