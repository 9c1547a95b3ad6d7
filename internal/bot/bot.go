// Package bot wires the Telegram command surface: a /start menu, chat id
// discovery and the admin-only schedule management dialog.
package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"volleybot/internal/domain"
	"volleybot/internal/poller"
	"volleybot/internal/storage"
	"volleybot/pkg/logx"
)

// Chat performs chat-level actions through the rate-limited transport
// adapter.
type Chat interface {
	StopPoll(ctx context.Context, chatID string, messageID int) error
	Unpin(ctx context.Context, chatID string, messageID int) error
	SendMessage(ctx context.Context, chatID string, topicID int, text string) error
}

type Bot struct {
	tb         *tele.Bot
	store      storage.Store
	poller     *poller.Service
	chat       Chat
	log        logx.Logger
	wizards    *wizardStore
	seedAdmins []int64

	btnAddSchedule   tele.Btn
	btnListSchedules tele.Btn
	btnListPolls     tele.Btn
	btnConfirm       tele.Btn
	btnCancel        tele.Btn
	btnToggle        tele.Btn
	btnDelete        tele.Btn
	btnPostNow       tele.Btn
	btnStopPoll      tele.Btn
}

func New(tb *tele.Bot, store storage.Store, pollSvc *poller.Service, chat Chat, seedAdmins []int64, log logx.Logger) *Bot {
	menu := &tele.ReplyMarkup{}
	b := &Bot{
		tb:         tb,
		store:      store,
		poller:     pollSvc,
		chat:       chat,
		log:        log.With(logx.String("component", "bot")),
		wizards:    newWizardStore(),
		seedAdmins: seedAdmins,

		btnAddSchedule:   menu.Data("➕ Новое расписание", "sched_add"),
		btnListSchedules: menu.Data("📋 Расписания", "sched_list"),
		btnListPolls:     menu.Data("📊 Активные опросы", "polls_list"),
		btnConfirm:       menu.Data("✅ Сохранить", "wiz_confirm"),
		btnCancel:        menu.Data("✖️ Отмена", "wiz_cancel"),
		btnToggle:        menu.Data("", "sched_toggle"),
		btnDelete:        menu.Data("", "sched_delete"),
		btnPostNow:       menu.Data("", "sched_post"),
		btnStopPoll:      menu.Data("", "poll_stop"),
	}
	b.register()
	return b
}

// Start runs the wizard TTL sweeper until ctx is cancelled. The telebot long
// poll loop is owned by the transport adapter.
func (b *Bot) Start(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.wizards.sweep()
		}
	}
}

func (b *Bot) register() {
	b.tb.Handle("/start", b.onStart)
	b.tb.Handle("/getid", b.onGetID)
	b.tb.Handle("/cancel", b.onCancel)
	b.tb.Handle("/schedules", b.onListSchedules)
	b.tb.Handle("/polls", b.onListPolls)

	b.tb.Handle(&b.btnAddSchedule, b.onAddSchedule)
	b.tb.Handle(&b.btnListSchedules, b.onListSchedules)
	b.tb.Handle(&b.btnListPolls, b.onListPolls)
	b.tb.Handle(&b.btnStopPoll, b.onStopPoll)
	b.tb.Handle(&b.btnConfirm, b.onWizardConfirm)
	b.tb.Handle(&b.btnCancel, b.onWizardCancel)
	b.tb.Handle(&b.btnToggle, b.onToggleSchedule)
	b.tb.Handle(&b.btnDelete, b.onDeleteSchedule)
	b.tb.Handle(&b.btnPostNow, b.onPostNow)

	b.tb.Handle(tele.OnText, b.onText)
}

func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	if slices.Contains(b.seedAdmins, userID) {
		return true
	}
	ids, err := b.store.GetAdminIDs(ctx)
	if err != nil {
		b.log.Warn("admin list lookup failed", logx.Err(err))
		return false
	}
	return slices.Contains(ids, userID)
}

func (b *Bot) onStart(c tele.Context) error {
	ctx := context.Background()
	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Send("Привет! Запись на тренировки и календарь — в веб-интерфейсе. Команда /getid покажет ID этого чата.")
	}
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(b.btnAddSchedule),
		menu.Row(b.btnListSchedules),
		menu.Row(b.btnListPolls),
	)
	return c.Send("Панель управления опросами:", menu)
}

func (b *Bot) onGetID(c tele.Context) error {
	msg := c.Message()
	text := fmt.Sprintf("ID чата: `%d`", msg.Chat.ID)
	if msg.ThreadID != 0 {
		text += fmt.Sprintf("\nID топика: `%d`", msg.ThreadID)
	}
	return c.Send(text, tele.ModeMarkdown)
}

func (b *Bot) onCancel(c tele.Context) error {
	b.wizards.clear(c.Sender().ID)
	return c.Send("Диалог сброшен.")
}

func (b *Bot) onAddSchedule(c tele.Context) error {
	if !b.isAdmin(context.Background(), c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Только для администраторов"})
	}
	b.wizards.start(c.Sender().ID)
	return c.Send("Название расписания?")
}

// onText advances the schedule wizard. Private chats only so group chatter
// never feeds the dialog.
func (b *Bot) onText(c tele.Context) error {
	if c.Chat().Type != tele.ChatPrivate {
		return nil
	}
	st, ok := b.wizards.get(c.Sender().ID)
	if !ok {
		return nil
	}
	input := strings.TrimSpace(c.Text())

	switch st.step {
	case stepName:
		st.draft.Name = input
		st.step = stepChat
		return c.Send("ID чата для опроса? (узнать: /getid в нужном чате)")
	case stepChat:
		st.draft.ChatID = input
		st.step = stepTrainingDay
		return c.Send("День тренировки? (например: sunday)")
	case stepTrainingDay:
		if _, err := domain.ParseWeekday(input); err != nil {
			return c.Send("Не понял день недели, попробуйте ещё раз (monday..sunday).")
		}
		st.draft.TrainingDay = strings.ToLower(input)
		st.step = stepPollDay
		return c.Send("День публикации опроса? (например: friday)")
	case stepPollDay:
		if _, err := domain.ParseWeekday(input); err != nil {
			return c.Send("Не понял день недели, попробуйте ещё раз (monday..sunday).")
		}
		st.draft.PollDay = strings.ToLower(input)
		st.step = stepTime
		return c.Send("Время тренировки? (например: 18:00 или 18:00 - 20:00)")
	case stepTime:
		if _, _, err := domain.ParseTimeOfDay(input); err != nil {
			return c.Send("Не понял время, нужен формат ЧЧ:ММ.")
		}
		st.draft.TrainingTime = input
		st.step = stepConfirm
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(b.btnConfirm, b.btnCancel))
		return c.Send(b.draftSummary(st.draft), menu)
	default:
		return nil
	}
}

func (b *Bot) draftSummary(d domain.ScheduleRule) string {
	return fmt.Sprintf(
		"Проверьте:\n• %s\n• чат %s\n• тренировка: %s %s\n• опрос: %s",
		d.Name, d.ChatID, d.TrainingDay, d.TrainingTime, d.PollDay,
	)
}

func (b *Bot) onWizardConfirm(c tele.Context) error {
	userID := c.Sender().ID
	st, ok := b.wizards.get(userID)
	if !ok || st.step != stepConfirm {
		return c.Respond(&tele.CallbackResponse{Text: "Диалог устарел, начните заново"})
	}
	rule := st.draft
	rule.ID = uuid.NewString()
	rule.Enabled = true
	if err := b.store.AddSchedule(context.Background(), rule); err != nil {
		b.log.Error("add schedule", logx.String("name", rule.Name), logx.Err(err))
		return c.Send("Не удалось сохранить: " + err.Error())
	}
	b.wizards.clear(userID)
	b.log.Info("schedule created",
		logx.String("schedule_id", rule.ID),
		logx.Int64("admin", userID))
	return c.Send("Расписание сохранено ✅")
}

func (b *Bot) onWizardCancel(c tele.Context) error {
	b.wizards.clear(c.Sender().ID)
	return c.Send("Отменено.")
}

func (b *Bot) onListSchedules(c tele.Context) error {
	ctx := context.Background()
	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Send("Только для администраторов.")
	}
	schedules, err := b.store.ListSchedules(ctx)
	if err != nil {
		return c.Send("Ошибка чтения расписаний: " + err.Error())
	}
	if len(schedules) == 0 {
		return c.Send("Расписаний пока нет.")
	}
	for _, s := range schedules {
		state := "⏸ выключено"
		if s.Enabled {
			state = "▶️ включено"
		}
		text := fmt.Sprintf("%s — %s %s, опрос в %s (%s)",
			s.Name, s.TrainingDay, s.TrainingTime, s.PollDay, state)

		menu := &tele.ReplyMarkup{}
		toggle := menu.Data("Вкл/выкл", b.btnToggle.Unique, s.ID)
		post := menu.Data("Опубликовать сейчас", b.btnPostNow.Unique, s.ID)
		del := menu.Data("Удалить", b.btnDelete.Unique, s.ID)
		menu.Inline(menu.Row(toggle, post), menu.Row(del))
		if err := c.Send(text, menu); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) onToggleSchedule(c tele.Context) error {
	ctx := context.Background()
	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Только для администраторов"})
	}
	id := callbackData(c)
	rule, err := b.store.GetSchedule(ctx, id)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Расписание не найдено"})
	}
	enabled := !rule.Enabled
	if err := b.store.UpdateSchedule(ctx, id, domain.ScheduleUpdate{Enabled: &enabled}); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка: " + err.Error()})
	}
	state := "выключено"
	if enabled {
		state = "включено"
	}
	return c.Respond(&tele.CallbackResponse{Text: "Расписание " + state})
}

func (b *Bot) onDeleteSchedule(c tele.Context) error {
	if !b.isAdmin(context.Background(), c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Только для администраторов"})
	}
	id := callbackData(c)
	if err := b.store.RemoveSchedule(context.Background(), id); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка: " + err.Error()})
	}
	b.log.Info("schedule removed", logx.String("schedule_id", id), logx.Int64("admin", c.Sender().ID))
	return c.Respond(&tele.CallbackResponse{Text: "Удалено"})
}

func (b *Bot) onPostNow(c tele.Context) error {
	if !b.isAdmin(context.Background(), c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Только для администраторов"})
	}
	id := callbackData(c)
	if err := b.poller.PostNow(context.Background(), id, time.Now()); err != nil {
		b.log.Error("post now", logx.String("schedule_id", id), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Не удалось опубликовать: " + err.Error()})
	}
	return c.Respond(&tele.CallbackResponse{Text: "Опрос опубликован"})
}

func (b *Bot) onListPolls(c tele.Context) error {
	ctx := context.Background()
	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Send("Только для администраторов.")
	}
	polls, err := b.store.ListActivePolls(ctx)
	if err != nil {
		return c.Send("Ошибка чтения опросов: " + err.Error())
	}
	if len(polls) == 0 {
		return c.Send("Активных опросов нет.")
	}
	for _, p := range polls {
		text := fmt.Sprintf("%s\nчат %s, опубликован %s",
			p.Question, p.ChatID, p.PostedAt.Format("02.01.2006 15:04"))
		menu := &tele.ReplyMarkup{}
		stop := menu.Data("Закрыть опрос", b.btnStopPoll.Unique, p.ID)
		menu.Inline(menu.Row(stop))
		if err := c.Send(text, menu); err != nil {
			return err
		}
	}
	return nil
}

// onStopPoll closes voting, unpins the message and announces the closure in
// the poll's chat. The record is removed last so a transport hiccup leaves
// the poll listed for a retry.
func (b *Bot) onStopPoll(c tele.Context) error {
	ctx := context.Background()
	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Только для администраторов"})
	}
	id := callbackData(c)
	polls, err := b.store.ListActivePolls(ctx)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка: " + err.Error()})
	}
	var rec *domain.ActivePoll
	for i := range polls {
		if polls[i].ID == id {
			rec = &polls[i]
			break
		}
	}
	if rec == nil {
		return c.Respond(&tele.CallbackResponse{Text: "Опрос не найден"})
	}

	if err := b.chat.StopPoll(ctx, rec.ChatID, rec.MessageID); err != nil {
		b.log.Error("stop poll", logx.String("poll_id", rec.ID), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "Не удалось закрыть: " + err.Error()})
	}
	if err := b.chat.Unpin(ctx, rec.ChatID, rec.MessageID); err != nil {
		b.log.Warn("unpin poll", logx.String("poll_id", rec.ID), logx.Err(err))
	}
	if err := b.chat.SendMessage(ctx, rec.ChatID, rec.TopicID, "Запись закрыта: "+rec.Question); err != nil {
		b.log.Warn("closure notice", logx.String("poll_id", rec.ID), logx.Err(err))
	}
	if err := b.store.RemoveActivePoll(ctx, rec.ID); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка: " + err.Error()})
	}
	b.log.Info("poll closed",
		logx.String("poll_id", rec.ID),
		logx.Int64("admin", c.Sender().ID))
	return c.Respond(&tele.CallbackResponse{Text: "Опрос закрыт"})
}

func callbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimSpace(cb.Data)
}
