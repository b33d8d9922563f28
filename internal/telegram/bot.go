// Package telegram adapts the Telegram Bot API to the conversation machine:
// it long-polls updates, converts them to events, and delivers replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gurujiofficial51-wq/info1/internal/conversation"
	"github.com/gurujiofficial51-wq/info1/internal/dispatch"
	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// Handler consumes converted events.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) error
	HandleCallback(ctx context.Context, cb conversation.Callback) error
}

// Submitter queues a job behind earlier jobs with the same key.
type Submitter interface {
	Submit(ctx context.Context, key string, job dispatch.Job) error
}

// poller is the subset of *tgbotapi.BotAPI used to receive updates.
type poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot routes updates to the handler through the dispatcher, keyed by sender.
type Bot struct {
	api         poller
	handler     Handler
	exec        Submitter
	pollTimeout int
	log         zerolog.Logger
}

func NewBot(api poller, handler Handler, exec Submitter, pollTimeout int, log zerolog.Logger) *Bot {
	return &Bot{
		api:         api,
		handler:     handler,
		exec:        exec,
		pollTimeout: pollTimeout,
		log:         log.With().Str("component", "telegram").Logger(),
	}
}

// NewAPI connects to the Bot API and routes the library's own logging
// through log.
func NewAPI(token string, log zerolog.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("bot token is required")
	}
	_ = tgbotapi.SetLogger(botLogger{log.With().Str("component", "tgbotapi").Logger()})
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")
	return api, nil
}

// Run polls until ctx ends. Queued events keep running after ctx ends so an
// accepted search always completes; the dispatcher drains them on Stop.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	work := context.WithoutCancel(ctx)
	b.log.Info().Msg("polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("update polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.route(work, upd)
		}
	}
}

func (b *Bot) route(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		cb, ok := CallbackFromQuery(upd.CallbackQuery)
		if !ok {
			return
		}
		b.submit(ctx, cb.PrincipalID, cb.EventID, func(ctx context.Context) error {
			return b.handler.HandleCallback(ctx, cb)
		})
	case upd.Message != nil:
		ev, ok := EventFromMessage(upd.Message)
		if !ok {
			return
		}
		b.submit(ctx, ev.PrincipalID, ev.EventID, func(ctx context.Context) error {
			return b.handler.Handle(ctx, ev)
		})
	}
}

func (b *Bot) submit(ctx context.Context, key, eventID string, fn dispatch.JobFunc) {
	if err := b.exec.Submit(ctx, key, fn); err != nil {
		b.log.Warn().Err(err).Str("principal", key).Str("event_id", eventID).Msg("event dropped")
	}
}

// EventFromMessage converts a text message. Messages without a sender or
// without text are not events.
func EventFromMessage(m *tgbotapi.Message) (conversation.Event, bool) {
	if m == nil || m.From == nil || m.Chat == nil || m.Text == "" {
		return conversation.Event{}, false
	}
	id := strconv.FormatInt(m.From.ID, 10)
	ev := conversation.Event{
		EventID:     uuid.NewString(),
		PrincipalID: id,
		ChatID:      m.Chat.ID,
		Profile: model.Profile{
			ExternalID: id,
			Username:   m.From.UserName,
			FirstName:  m.From.FirstName,
			LastName:   m.From.LastName,
		},
		Text: m.Text,
	}
	if m.IsCommand() {
		ev.Command = m.Command()
		ev.Args = m.CommandArguments()
	}
	return ev, true
}

// CallbackFromQuery converts an inline button press.
func CallbackFromQuery(q *tgbotapi.CallbackQuery) (conversation.Callback, bool) {
	if q == nil || q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return conversation.Callback{}, false
	}
	return conversation.Callback{
		ID:          q.ID,
		EventID:     uuid.NewString(),
		PrincipalID: strconv.FormatInt(q.From.ID, 10),
		ChatID:      q.Message.Chat.ID,
		Data:        q.Data,
	}, true
}

// botLogger adapts zerolog to tgbotapi.BotLogger.
type botLogger struct{ log zerolog.Logger }

func (l botLogger) Println(v ...interface{}) { l.log.Debug().Msg(fmt.Sprint(v...)) }

func (l botLogger) Printf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
