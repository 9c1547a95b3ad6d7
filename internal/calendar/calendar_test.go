package calendar

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

func setup(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "cal.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, logx.Nop()), st
}

func TestMonth_ExpandsScheduleToMatchingDates(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	err := st.AddSchedule(ctx, domain.ScheduleRule{
		ID:           "s1",
		Name:         "sunday volleyball",
		ChatID:       "-1001",
		TrainingDay:  "sunday",
		PollDay:      "friday",
		TrainingTime: "18:00",
		Enabled:      true,
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}

	entries, err := svc.Month(ctx, 2026, time.February, 0)
	if err != nil {
		t.Fatalf("month: %v", err)
	}

	// February 2026 has Sundays on the 1st, 8th, 15th and 22nd.
	want := []string{"2026-02-01", "2026-02-08", "2026-02-15", "2026-02-22"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e.Date != want[i] {
			t.Errorf("entry %d: date %s, want %s", i, e.Date, want[i])
		}
		if e.Source != SourceSchedule || e.Time != "18:00" {
			t.Errorf("entry %d: %+v", i, e)
		}
		if e.SpotsLeft != domain.Capacity {
			t.Errorf("entry %d: spots left %d, want %d", i, e.SpotsLeft, domain.Capacity)
		}
	}
}

func TestMonth_DisabledScheduleHidden(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	err := st.AddSchedule(ctx, domain.ScheduleRule{
		ID: "s1", Name: "off", ChatID: "-1001",
		TrainingDay: "monday", PollDay: "friday", TrainingTime: "18:00",
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}

	entries, err := svc.Month(ctx, 2026, time.February, 0)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("disabled schedule produced %d entries", len(entries))
	}
}

func TestMonth_MergesOneTimeAndRoster(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	tr := domain.Training{
		ID:            "t1",
		OccurrenceKey: domain.OccurrenceKey{Date: "2026-02-10", Time: "10:00", ChatID: "-1001"},
		Name:          "extra session",
	}
	if err := st.AddTraining(ctx, tr); err != nil {
		t.Fatalf("add training: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := st.Register(ctx, tr.OccurrenceKey, 0, int64(i)); err != nil {
			t.Fatalf("register u%d: %v", i, err)
		}
	}

	entries, err := svc.Month(ctx, 2026, time.February, 2)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Source != SourceOneTime || e.Title != "extra session" {
		t.Fatalf("entry: %+v", e)
	}
	if len(e.Registered) != 3 || len(e.Waitlist) != 0 {
		t.Fatalf("roster: %d registered, %d waitlist", len(e.Registered), len(e.Waitlist))
	}
	if e.SpotsLeft != domain.Capacity-3 {
		t.Fatalf("spots left %d, want %d", e.SpotsLeft, domain.Capacity-3)
	}
	if e.UserStatus != domain.StatusRegistered {
		t.Fatalf("caller's own status not marked: %q", e.UserStatus)
	}
}

func TestMonth_OrphanRegistrationStillShown(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	key := domain.OccurrenceKey{Date: "2026-02-03", Time: "20:00", ChatID: "-1001"}
	if _, err := st.Register(ctx, key, 0, 5); err != nil {
		t.Fatalf("register: %v", err)
	}

	entries, err := svc.Month(ctx, 2026, time.February, 0)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Registered) != 1 {
		t.Fatalf("orphan roster lost: %+v", entries)
	}
}

func TestUpcomingForUser_DropsPastDates(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	past := domain.OccurrenceKey{Date: "2026-02-01", Time: "18:00", ChatID: "-1001"}
	future := domain.OccurrenceKey{Date: "2026-02-20", Time: "18:00", ChatID: "-1001"}
	for _, key := range []domain.OccurrenceKey{past, future} {
		if _, err := st.Register(ctx, key, 0, 5); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	now := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	regs, err := svc.UpcomingForUser(ctx, 5, now)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(regs) != 1 || regs[0].Date != "2026-02-20" {
		t.Fatalf("got %+v, want only the future date", regs)
	}
}
