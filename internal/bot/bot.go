// Package bot implements the Telegram command surface: manual question
// fetches, done/missed resolution, the preference and reminder wizards,
// stats and the progress export.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dsamentor/internal/clock"
	"dsamentor/internal/matcher"
	"dsamentor/internal/metrics"
	"dsamentor/internal/model"
	"dsamentor/internal/session"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Storage is the slice of the store the command handlers need.
type Storage interface {
	GetPreferences(ctx context.Context, userID int64) (*model.UserPreferences, error)
	SetPreferences(ctx context.Context, p *model.UserPreferences) error
	GetSchedule(ctx context.Context, userID int64) (*model.ReminderSchedule, error)
	SetSchedule(ctx context.Context, s *model.ReminderSchedule) error
	SetQuestionStatus(ctx context.Context, userID int64, title string, status model.QuestionStatus) error
	QuestionHistory(ctx context.Context, userID int64) ([]model.QuestionState, error)
	GetStreak(ctx context.Context, userID int64) (int, error)
	IncrementStreak(ctx context.Context, userID int64) (int, error)
	ResetStreak(ctx context.Context, userID int64) error
}

// Matcher selects eligible questions for a user.
type Matcher interface {
	Match(ctx context.Context, userID int64) ([]model.QuestionRecord, error)
}

// Exporter renders the /export workbook.
type Exporter interface {
	Workbook(ctx context.Context, userID int64) ([]byte, error)
}

// Bot polls Telegram updates and dispatches commands.
type Bot struct {
	tg       telegramClient
	store    Storage
	matcher  Matcher
	exporter Exporter
	guard    *session.Guard
	current  *session.Current
	state    *stateStore
	zone     *time.Location
	now      func() time.Time
	logger   *zerolog.Logger
}

func New(token string, store Storage, m Matcher, exporter Exporter, guard *session.Guard, current *session.Current, zone *time.Location, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return NewWithTelegramClient(&realTelegramClient{api: api}, store, m, exporter, guard, current, zone, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, store Storage, m Matcher, exporter Exporter, guard *session.Guard, current *session.Current, zone *time.Location, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if zone == nil {
		zone = time.UTC
	}
	return &Bot{
		tg:       tg,
		store:    store,
		matcher:  m,
		exporter: exporter,
		guard:    guard,
		current:  current,
		state:    newStateStore(),
		zone:     zone,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Sender exposes the underlying Telegram client for the outbound notifier,
// so sweeps and commands share one connection.
func (b *Bot) Sender() interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
} {
	return b.tg
}

// Start begins polling updates and handles commands until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	l := zerolog.Ctx(ctx)
	l.Debug().
		Int64("user_id", update.Message.From.ID).
		Str("text", update.Message.Text).
		Msg("handling message")
	b.handleMessage(ctx, update.Message)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Commands take priority and interrupt any active dialog.
	if strings.HasPrefix(text, "/") {
		cmd := text
		if i := strings.IndexAny(cmd, " @"); i > 0 {
			cmd = cmd[:i]
		}
		switch cmd {
		case "/start":
			b.cancelDialog(userID)
			b.reply(chatID, welcomeText)
		case "/help":
			b.reply(chatID, helpText)
		case "/question":
			b.handleQuestion(ctx, chatID, userID)
		case "/done":
			b.handleResolve(ctx, chatID, userID, model.StatusDone)
		case "/missed":
			b.handleResolve(ctx, chatID, userID, model.StatusMissed)
		case "/stats":
			b.handleStats(ctx, chatID, userID)
		case "/export":
			b.handleExport(ctx, chatID, userID)
		case "/setup":
			b.startSetup(ctx, chatID, userID)
		case "/setreminder":
			b.startSetReminder(ctx, chatID, userID)
		case "/cancel", "/exit":
			b.cancelDialog(userID)
			b.replyPlain(chatID, "Cancelled.", removeKeyboard())
		default:
			b.reply(chatID, "Unknown command. See /help.")
		}
		return
	}

	st := b.state.get(userID)
	switch st.Step {
	case stepDifficulty, stepTopics, stepCompanies:
		b.handleSetupStep(ctx, chatID, userID, st, text)
	case stepPractice, stepDeadline, stepReminder:
		b.handleReminderStep(ctx, chatID, userID, st, text)
	default:
		b.reply(chatID, "I didn't get that. See /help for commands.")
	}
}

const welcomeText = "👋 I send you one practice question a day and keep you honest about solving it.\n\n" +
	"Run /setup to pick difficulties, topics and companies, then /setreminder to schedule your daily question."

const helpText = "/question — get a question now\n" +
	"/done — mark the pending question solved\n" +
	"/missed — give up on the pending question\n" +
	"/setup — pick difficulty, topic and company filters\n" +
	"/setreminder — set daily practice, reminder and deadline times\n" +
	"/stats — progress and streak\n" +
	"/export — download your history as a spreadsheet\n" +
	"/cancel — abort the current dialog"

func (b *Bot) handleQuestion(ctx context.Context, chatID, userID int64) {
	release, err := b.guard.TryAcquireFetch(userID)
	switch {
	case errors.Is(err, session.ErrFetchInProgress):
		b.reply(chatID, "Hold on, I'm still fetching your question.")
		return
	case errors.Is(err, session.ErrWizardActive):
		b.reply(chatID, "Finish the current dialog first, or /cancel it.")
		return
	}
	defer release()

	if title, ok := b.current.Get(userID); ok {
		b.reply(chatID, fmt.Sprintf("You already have a pending question: <b>%s</b>.\nResolve it with /done or /missed first.", title))
		return
	}

	eligible, err := b.matcher.Match(ctx, userID)
	switch {
	case errors.Is(err, matcher.ErrNoPreferences):
		b.reply(chatID, "You haven't configured filters yet. Run /setup first.")
		return
	case errors.Is(err, matcher.ErrCatalogUnavailable):
		b.reply(chatID, "The question catalog is unreachable right now. Try again in a minute.")
		return
	case errors.Is(err, matcher.ErrNoMatch):
		b.reply(chatID, "No unsolved questions match your filters. Widen them with /setup.")
		return
	case err != nil:
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("match failed")
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}

	q := eligible[rand.Intn(len(eligible))]
	if err := b.store.SetQuestionStatus(ctx, userID, q.Title, model.StatusPending); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("persist pending failed")
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}
	b.current.Set(userID, q.Title)
	metrics.IncQuestionDelivered("manual")

	b.reply(chatID, fmt.Sprintf(
		"🎯 Your question:\n\n<b>%s</b>\nDifficulty: %s\nTopics: %s\n\nReply /done when you solve it, or /missed to give up.",
		q.Title, q.Difficulty, q.Topics))
}

func (b *Bot) handleResolve(ctx context.Context, chatID, userID int64, status model.QuestionStatus) {
	release := b.guard.LockFetch(userID)
	defer release()

	title, ok := b.current.Pop(userID)
	if !ok {
		b.reply(chatID, "Nothing is pending. Get a question with /question.")
		return
	}

	if err := b.store.SetQuestionStatus(ctx, userID, title, status); err != nil {
		b.current.Set(userID, title)
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("persist status failed")
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}
	metrics.IncQuestionResolved(string(status))

	if status == model.StatusDone {
		streak, err := b.store.IncrementStreak(ctx, userID)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("streak update failed")
		}
		b.reply(chatID, fmt.Sprintf("🎉 <b>%s</b> solved! Streak: %d.", title, streak))
		return
	}

	if err := b.store.ResetStreak(ctx, userID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("streak reset failed")
	}
	b.reply(chatID, fmt.Sprintf("Marked <b>%s</b> as missed. Streak reset, tomorrow is a fresh start.", title))
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64) {
	history, err := b.store.QuestionHistory(ctx, userID)
	if err != nil {
		b.reply(chatID, "Could not load your stats.")
		return
	}
	streak, err := b.store.GetStreak(ctx, userID)
	if err != nil {
		b.reply(chatID, "Could not load your stats.")
		return
	}

	done, missed, pending := 0, 0, 0
	for _, st := range history {
		switch st.Status {
		case model.StatusDone:
			done++
		case model.StatusMissed:
			missed++
		default:
			pending++
		}
	}

	b.reply(chatID, fmt.Sprintf(
		"📊 Your progress:\n\nSolved: %d\nMissed: %d\nPending: %d\nCurrent streak: %d",
		done, missed, pending, streak))
}

func (b *Bot) handleExport(ctx context.Context, chatID, userID int64) {
	data, err := b.exporter.Workbook(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("export failed")
		b.reply(chatID, "Could not build the export, try again later.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "progress.xlsx",
		Bytes: data,
	})
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("export upload failed")
	}
}

func (b *Bot) startSetup(ctx context.Context, chatID, userID int64) {
	if err := b.guard.BeginWizard(userID); err != nil {
		b.replyWizardBusy(chatID, err)
		return
	}

	b.state.reset(userID)
	st := b.state.get(userID)
	st.Step = stepDifficulty

	var saved []string
	if prefs, err := b.store.GetPreferences(ctx, userID); err == nil && prefs != nil {
		saved = prefs.Difficulties
	}
	b.replyPlain(chatID,
		"Which difficulties do you want? Pick one or list several separated by commas.",
		optionsKeyboard(model.Difficulties, saved))
}

func (b *Bot) handleSetupStep(ctx context.Context, chatID, userID int64, st *userState, text string) {
	switch st.Step {
	case stepDifficulty:
		st.Setup.Difficulties = model.ParseSelection(text, model.Difficulties)
		st.Step = stepTopics

		var saved []string
		if prefs, err := b.store.GetPreferences(ctx, userID); err == nil && prefs != nil {
			saved = prefs.Topics
		}
		b.replyPlain(chatID, "Which topics?", optionsKeyboard(model.Topics, saved))

	case stepTopics:
		st.Setup.Topics = model.ParseSelection(text, model.Topics)
		st.Step = stepCompanies

		var saved []string
		if prefs, err := b.store.GetPreferences(ctx, userID); err == nil && prefs != nil {
			saved = prefs.Companies
		}
		b.replyPlain(chatID, "Any target companies?", optionsKeyboard(model.Companies, saved))

	case stepCompanies:
		st.Setup.Companies = model.ParseSelection(text, model.Companies)

		prefs := &model.UserPreferences{
			UserID:       userID,
			Difficulties: st.Setup.Difficulties,
			Topics:       st.Setup.Topics,
			Companies:    st.Setup.Companies,
			UpdatedAt:    b.now(),
		}
		if err := b.store.SetPreferences(ctx, prefs); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("save preferences failed")
			b.reply(chatID, "Could not save your preferences, try /setup again.")
		} else {
			b.replyPlain(chatID, fmt.Sprintf(
				"Saved! Difficulty: %s. Topics: %s. Companies: %s.\n\nNow /setreminder to schedule your daily question.",
				strings.Join(prefs.Difficulties, ", "),
				strings.Join(prefs.Topics, ", "),
				strings.Join(prefs.Companies, ", ")),
				removeKeyboard())
		}
		b.state.reset(userID)
		b.guard.EndWizard(userID)
	}
}

func (b *Bot) startSetReminder(_ context.Context, chatID, userID int64) {
	if err := b.guard.BeginWizard(userID); err != nil {
		b.replyWizardBusy(chatID, err)
		return
	}

	b.state.reset(userID)
	st := b.state.get(userID)
	st.Step = stepPractice
	b.reply(chatID, "What time should your daily question arrive? For example 09:00 or 9:00 AM.")
}

func (b *Bot) handleReminderStep(ctx context.Context, chatID, userID int64, st *userState, text string) {
	norm, err := clock.Normalize(text)
	if err != nil {
		b.reply(chatID, "I couldn't read that time. Use HH:MM or H:MM AM/PM, like 21:30 or 9:30 PM.")
		return
	}

	switch st.Step {
	case stepPractice:
		st.Sched.Practice = norm
		st.Step = stepDeadline
		b.reply(chatID, fmt.Sprintf(
			"Question at %s. When is your deadline? It must be at least an hour later.",
			clock.Display12h(norm)))

	case stepDeadline:
		gap, err := clock.MinutesBetween(st.Sched.Practice, norm)
		if err != nil || gap < model.MinSolveWindow {
			b.reply(chatID, fmt.Sprintf(
				"The deadline must be at least an hour after %s. Try another time.",
				clock.Display12h(st.Sched.Practice)))
			return
		}
		st.Sched.Deadline = norm
		st.Step = stepReminder
		b.reply(chatID, fmt.Sprintf(
			"Deadline at %s. When should I remind you? At least 30 minutes after %s and before the deadline.",
			clock.Display12h(norm), clock.Display12h(st.Sched.Practice)))

	case stepReminder:
		sched, err := model.NewReminderSchedule(userID, st.Sched.Practice, norm, st.Sched.Deadline, b.zone, b.now())
		if err != nil {
			b.reply(chatID, fmt.Sprintf(
				"The reminder must fall at least 30 minutes after %s and before %s. Try again.",
				clock.Display12h(st.Sched.Practice), clock.Display12h(st.Sched.Deadline)))
			return
		}

		if err := b.store.SetSchedule(ctx, sched); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("save schedule failed")
			b.reply(chatID, "Could not save your schedule, try /setreminder again.")
		} else {
			b.reply(chatID, fmt.Sprintf(
				"All set! Question at %s, reminder at %s, deadline at %s (%s).",
				clock.Display12h(sched.PracticeLocal),
				clock.Display12h(sched.ReminderLocal),
				clock.Display12h(sched.DeadlineLocal),
				sched.Timezone))
		}
		b.state.reset(userID)
		b.guard.EndWizard(userID)
	}
}

func (b *Bot) cancelDialog(userID int64) {
	b.state.reset(userID)
	b.guard.EndWizard(userID)
}

func (b *Bot) replyWizardBusy(chatID int64, err error) {
	if errors.Is(err, session.ErrFetchInProgress) {
		b.reply(chatID, "Hold on, I'm still fetching your question. Try again in a moment.")
		return
	}
	b.reply(chatID, "You're already in a dialog. Finish it or /cancel first.")
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, _ = b.tg.Send(msg)
}

func (b *Bot) replyPlain(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	_, _ = b.tg.Send(msg)
}
