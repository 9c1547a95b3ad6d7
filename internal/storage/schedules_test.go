package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"volleybot/internal/domain"
)

func seedSchedule(t *testing.T, st Store, id, pollDay string, enabled bool) {
	t.Helper()
	err := st.AddSchedule(context.Background(), domain.ScheduleRule{
		ID:           id,
		Name:         "evening game",
		ChatID:       "-1001",
		TrainingDay:  "sunday",
		PollDay:      pollDay,
		TrainingTime: "18:00 - 20:00",
		Enabled:      enabled,
	})
	if err != nil {
		t.Fatalf("add schedule %s: %v", id, err)
	}
}

func TestListSchedulesForPollDay_SkipsDisabled(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedSchedule(t, st, "s1", "thursday", true)
	seedSchedule(t, st, "s2", "thursday", false)
	seedSchedule(t, st, "s3", "friday", true)

	due, err := st.ListSchedulesForPollDay(ctx, time.Thursday)
	if err != nil {
		t.Fatalf("list for poll day: %v", err)
	}
	if len(due) != 1 || due[0].ID != "s1" {
		t.Fatalf("got %v, want exactly s1", due)
	}
}

func TestUpdateSchedule_PartialLeavesRestIntact(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedSchedule(t, st, "s1", "thursday", true)

	enabled := false
	if err := st.UpdateSchedule(ctx, "s1", domain.ScheduleUpdate{Enabled: &enabled}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.GetSchedule(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Enabled {
		t.Fatal("enabled flag not cleared")
	}
	if got.TrainingDay != "sunday" || got.TrainingTime != "18:00 - 20:00" || got.PollDay != "thursday" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestUpdateSchedule_RejectsBadWeekday(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedSchedule(t, st, "s1", "thursday", true)

	day := "someday"
	err := st.UpdateSchedule(ctx, "s1", domain.ScheduleUpdate{TrainingDay: &day})
	if !errors.Is(err, domain.ErrInvalidWeekday) {
		t.Fatalf("got %v, want ErrInvalidWeekday", err)
	}
}

func TestUpdateSchedule_UnknownID(t *testing.T) {
	st := openTestStore(t)

	name := "renamed"
	err := st.UpdateSchedule(context.Background(), "ghost", domain.ScheduleUpdate{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRemoveSchedule(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedSchedule(t, st, "s1", "thursday", true)
	if err := st.RemoveSchedule(ctx, "s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.GetSchedule(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound after removal", err)
	}
}

func TestTrainings_RemoveCascadesRegistrations(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tr := domain.Training{
		ID:            "t1",
		OccurrenceKey: domain.OccurrenceKey{Date: "2026-03-08", Time: "10:00", ChatID: "-1001"},
		Name:          "beach session",
	}
	if err := st.AddTraining(ctx, tr); err != nil {
		t.Fatalf("add training: %v", err)
	}
	if _, err := st.Register(ctx, tr.OccurrenceKey, 0, 5); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := st.RemoveTraining(ctx, "t1"); err != nil {
		t.Fatalf("remove training: %v", err)
	}

	regs, err := st.ListOccurrenceRegistrations(ctx, tr.OccurrenceKey)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != 0 {
		t.Fatalf("%d registrations survived training removal, want 0", len(regs))
	}
}

func TestListTrainingsForMonth(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, tr := range []domain.Training{
		{ID: "t1", OccurrenceKey: domain.OccurrenceKey{Date: "2026-03-08", Time: "10:00", ChatID: "-1001"}, Name: "march a"},
		{ID: "t2", OccurrenceKey: domain.OccurrenceKey{Date: "2026-03-21", Time: "12:00", ChatID: "-1001"}, Name: "march b"},
		{ID: "t3", OccurrenceKey: domain.OccurrenceKey{Date: "2026-04-01", Time: "10:00", ChatID: "-1001"}, Name: "april"},
	} {
		if err := st.AddTraining(ctx, tr); err != nil {
			t.Fatalf("add %s: %v", tr.ID, err)
		}
	}

	got, err := st.ListTrainingsForMonth(ctx, 2026, 3)
	if err != nil {
		t.Fatalf("list month: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d trainings for 2026-03, want 2", len(got))
	}
}

func TestTemplate_DefaultsThenOverride(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	tpl, err := st.GetTemplate(ctx)
	if err != nil {
		t.Fatalf("get default template: %v", err)
	}
	def := domain.DefaultPollTemplate()
	if tpl.Description != def.Description || len(tpl.Options) != len(def.Options) {
		t.Fatalf("fresh store did not return defaults: %+v", tpl)
	}

	if err := st.UpdateTemplateField(ctx, "description", "Игра {date} в {time}"); err != nil {
		t.Fatalf("update field: %v", err)
	}
	tpl, err = st.GetTemplate(ctx)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if tpl.Description != "Игра {date} в {time}" {
		t.Fatalf("description override lost: %q", tpl.Description)
	}
	if len(tpl.Options) != len(def.Options) {
		t.Fatal("options should fall back to defaults when not overridden")
	}
}

func TestAdminIDs_AddIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 2, 1} {
		if err := st.AddAdminID(ctx, id); err != nil {
			t.Fatalf("add admin %d: %v", id, err)
		}
	}
	ids, err := st.GetAdminIDs(ctx)
	if err != nil {
		t.Fatalf("get admin ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %v, want two distinct ids", ids)
	}
}

func TestUsers_UpsertPreservesFlags(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	u, err := st.UpsertUser(ctx, domain.User{TelegramID: 9, FirstName: "Ann"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.SetUserAdmin(ctx, 9, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := st.SetUserActive(ctx, 9, false); err != nil {
		t.Fatalf("set active: %v", err)
	}

	// A later login refreshes the profile but must not reset moderation flags.
	u, err = st.UpsertUser(ctx, domain.User{TelegramID: 9, FirstName: "Ann", Username: "ann_v"})
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if !u.IsAdmin || u.IsActive {
		t.Fatalf("flags reset by login upsert: admin=%v active=%v", u.IsAdmin, u.IsActive)
	}
	if u.Username != "ann_v" {
		t.Fatalf("profile not refreshed: %+v", u)
	}
}

func TestAddSchedule_NormalizesTrainingTime(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	err := st.AddSchedule(ctx, domain.ScheduleRule{
		ID:           "s1",
		Name:         "morning game",
		ChatID:       "-1001",
		TrainingDay:  "sunday",
		PollDay:      "friday",
		TrainingTime: "9:00 - 20:00",
		Enabled:      true,
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}
	got, err := st.GetSchedule(ctx, "s1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if got.TrainingTime != "09:00 - 20:00" {
		t.Fatalf("training time not normalized: %q", got.TrainingTime)
	}

	short := "8:15"
	if err := st.UpdateSchedule(ctx, "s1", domain.ScheduleUpdate{TrainingTime: &short}); err != nil {
		t.Fatalf("update schedule: %v", err)
	}
	got, _ = st.GetSchedule(ctx, "s1")
	if got.TrainingTime != "08:15" {
		t.Fatalf("updated time not normalized: %q", got.TrainingTime)
	}
}

func TestAddTraining_ValidatesAndNormalizesTime(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	err := st.AddTraining(ctx, domain.Training{
		ID: "t-bad", OccurrenceKey: domain.OccurrenceKey{Date: "2026-02-20", Time: "half past nine", ChatID: "-1001"},
	})
	if !errors.Is(err, domain.ErrInvalidTimeFormat) {
		t.Fatalf("want ErrInvalidTimeFormat, got %v", err)
	}

	err = st.AddTraining(ctx, domain.Training{
		ID: "t1", OccurrenceKey: domain.OccurrenceKey{Date: "2026-02-20", Time: "9:30", ChatID: "-1001"}, Name: "extra",
	})
	if err != nil {
		t.Fatalf("add training: %v", err)
	}
	list, err := st.ListTrainingsForMonth(ctx, 2026, 2)
	if err != nil {
		t.Fatalf("list trainings: %v", err)
	}
	if len(list) != 1 || list[0].Time != "09:30" {
		t.Fatalf("training time not normalized: %+v", list)
	}
}
