package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	tele "gopkg.in/telebot.v4"

	"volleybot/internal/domain"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

const adminID = 42

// fakeCtx implements the handful of tele.Context methods the handlers touch.
type fakeCtx struct {
	tele.Context
	sender *tele.User
	data   string

	resp string
	sent []string
}

func (f *fakeCtx) Sender() *tele.User       { return f.sender }
func (f *fakeCtx) Callback() *tele.Callback { return &tele.Callback{Data: f.data} }
func (f *fakeCtx) Chat() *tele.Chat         { return &tele.Chat{ID: 1, Type: tele.ChatPrivate} }

func (f *fakeCtx) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		f.resp = resp[0].Text
	}
	return nil
}

func (f *fakeCtx) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, fmt.Sprint(what))
	return nil
}

func newTestBot(t *testing.T) (*Bot, storage.Store) {
	t.Helper()
	st, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	b := &Bot{
		store:      st,
		log:        logx.Nop(),
		wizards:    newWizardStore(),
		seedAdmins: []int64{adminID},
	}
	return b, st
}

func seedRule(t *testing.T, st storage.Store, id string) {
	t.Helper()
	err := st.AddSchedule(context.Background(), domain.ScheduleRule{
		ID:           id,
		Name:         "evening game",
		ChatID:       "-1001",
		TrainingDay:  "sunday",
		PollDay:      "friday",
		TrainingTime: "18:00",
		Enabled:      true,
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}
}

func TestCallbacks_RejectNonAdmin(t *testing.T) {
	b, st := newTestBot(t)
	ctx := context.Background()
	seedRule(t, st, "s1")

	handlers := map[string]func(tele.Context) error{
		"toggle":    b.onToggleSchedule,
		"delete":    b.onDeleteSchedule,
		"post_now":  b.onPostNow,
		"stop_poll": b.onStopPoll,
	}
	for name, h := range handlers {
		c := &fakeCtx{sender: &tele.User{ID: 7}, data: "s1"}
		if err := h(c); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if c.resp != "Только для администраторов" {
			t.Fatalf("%s: non-admin got %q", name, c.resp)
		}
	}

	got, err := st.GetSchedule(ctx, "s1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if !got.Enabled {
		t.Fatal("schedule mutated by non-admin callback")
	}
}

func TestToggleSchedule_AdminFlips(t *testing.T) {
	b, st := newTestBot(t)
	ctx := context.Background()
	seedRule(t, st, "s1")

	c := &fakeCtx{sender: &tele.User{ID: adminID}, data: "s1"}
	if err := b.onToggleSchedule(c); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	got, err := st.GetSchedule(ctx, "s1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if got.Enabled {
		t.Fatal("toggle had no effect")
	}
}

func TestDeleteSchedule_AdminRemoves(t *testing.T) {
	b, st := newTestBot(t)
	seedRule(t, st, "s1")

	c := &fakeCtx{sender: &tele.User{ID: adminID}, data: "s1"}
	if err := b.onDeleteSchedule(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetSchedule(context.Background(), "s1"); err == nil {
		t.Fatal("schedule still present after delete")
	}
}
