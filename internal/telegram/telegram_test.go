package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurujiofficial51-wq/info1/internal/conversation"
	"github.com/gurujiofficial51-wq/info1/internal/dispatch"
)

func textMessage(from int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: from, UserName: "u", FirstName: "First"},
		Chat: &tgbotapi.Chat{ID: from},
		Text: text,
	}
}

func commandMessage(from int64, text string, cmdLen int) *tgbotapi.Message {
	m := textMessage(from, text)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	return m
}

func TestEventFromMessage(t *testing.T) {
	ev, ok := EventFromMessage(textMessage(42, "💰 Wallet"))
	require.True(t, ok)
	assert.Equal(t, "42", ev.PrincipalID)
	assert.Equal(t, int64(42), ev.ChatID)
	assert.Equal(t, "42", ev.Profile.ExternalID)
	assert.Equal(t, "First", ev.Profile.FirstName)
	assert.Empty(t, ev.Command)
	assert.NotEmpty(t, ev.EventID)

	ev, ok = EventFromMessage(commandMessage(42, "/start REF7", len("/start")))
	require.True(t, ok)
	assert.Equal(t, "start", ev.Command)
	assert.Equal(t, "REF7", ev.Args)

	_, ok = EventFromMessage(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "x"})
	assert.False(t, ok, "no sender")
	_, ok = EventFromMessage(textMessage(1, ""))
	assert.False(t, ok, "no text")
}

func TestCallbackFromQuery(t *testing.T) {
	cb, ok := CallbackFromQuery(&tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 5},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 9}},
		Data:    conversation.CallbackOption1,
	})
	require.True(t, ok)
	assert.Equal(t, conversation.Callback{ID: "q1", EventID: cb.EventID, PrincipalID: "5", ChatID: 9, Data: "option_1"}, cb)

	_, ok = CallbackFromQuery(&tgbotapi.CallbackQuery{ID: "q2", From: &tgbotapi.User{ID: 5}})
	assert.False(t, ok)
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage(conversation.Reply{ChatID: 3, Text: "*hi*", Markdown: true, Keyboard: conversation.KeyboardMain})
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.Keyboard, 3)
	assert.Equal(t, conversation.ButtonEnterNumber, kb.Keyboard[0][0].Text)
	assert.Equal(t, conversation.ButtonRefer, kb.Keyboard[1][1].Text)

	msg = buildMessage(conversation.Reply{ChatID: 3, Text: "x", Keyboard: conversation.KeyboardCancel})
	assert.Empty(t, msg.ParseMode)
	kb = msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	assert.True(t, kb.OneTimeKeyboard)

	msg = buildMessage(conversation.Reply{ChatID: 3, Text: "x", Keyboard: conversation.KeyboardRemove})
	_, ok = msg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	assert.True(t, ok)

	msg = buildMessage(conversation.Reply{ChatID: 3, Text: "x", Keyboard: conversation.KeyboardMenu})
	inline, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, inline.InlineKeyboard[1][0].URL)

	msg = buildMessage(conversation.Reply{ChatID: 3, Text: "x"})
	assert.Nil(t, msg.ReplyMarkup)
}

// --- Sender ---

type fakeAPI struct {
	mu       sync.Mutex
	errs     []error
	sent     []tgbotapi.MessageConfig
	requests int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return tgbotapi.Message{}, err
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func fastSender(api requester) *Sender {
	s := NewSender(api, 1000, zerolog.Nop())
	s.newBack = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return s
}

func TestSender_RetriesTransientErrors(t *testing.T) {
	api := &fakeAPI{errs: []error{
		&tgbotapi.Error{Code: 502, Message: "Bad Gateway"},
		errors.New("connection reset"),
	}}
	s := fastSender(api)

	require.NoError(t, s.Send(context.Background(), conversation.Reply{ChatID: 1, Text: "hi"}))
	assert.Len(t, api.sent, 3)
}

func TestSender_PermanentErrorNotRetried(t *testing.T) {
	api := &fakeAPI{errs: []error{&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}}}
	s := fastSender(api)

	err := s.Send(context.Background(), conversation.Reply{ChatID: 1, Text: "hi"})
	require.Error(t, err)
	assert.Len(t, api.sent, 1)
}

func TestSender_GivesUpAfterMaxAttempts(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &tgbotapi.Error{Code: 500, Message: "boom"}
	}
	api := &fakeAPI{errs: errs}
	s := fastSender(api)

	require.Error(t, s.Send(context.Background(), conversation.Reply{ChatID: 1, Text: "hi"}))
	assert.Len(t, api.sent, maxSendAttempts)
}

func TestSender_MarkdownFallback(t *testing.T) {
	api := &fakeAPI{errs: []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: can't parse entities: Can't find end of the entity"}}}
	s := fastSender(api)

	require.NoError(t, s.Send(context.Background(), conversation.Reply{ChatID: 1, Text: "a_b", Markdown: true}))
	require.Len(t, api.sent, 2)
	assert.Equal(t, tgbotapi.ModeMarkdown, api.sent[0].ParseMode)
	assert.Empty(t, api.sent[1].ParseMode)
}

func TestSender_AnswerCallback(t *testing.T) {
	api := &fakeAPI{}
	s := fastSender(api)
	require.NoError(t, s.AnswerCallback(context.Background(), "cb"))
	assert.Equal(t, 1, api.requests)
}

// --- Bot ---

type fakePoller struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func (p *fakePoller) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return p.ch }

func (p *fakePoller) StopReceivingUpdates() { p.once.Do(func() { close(p.stopped) }) }

type recordingHandler struct {
	mu        sync.Mutex
	events    []conversation.Event
	callbacks []conversation.Callback
}

func (h *recordingHandler) Handle(_ context.Context, ev conversation.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return nil
}

func (h *recordingHandler) HandleCallback(_ context.Context, cb conversation.Callback) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, cb)
	return nil
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events), len(h.callbacks)
}

func TestBot_RoutesUpdatesThroughDispatcher(t *testing.T) {
	p := &fakePoller{ch: make(chan tgbotapi.Update, 4), stopped: make(chan struct{})}
	h := &recordingHandler{}
	exec := dispatch.NewExecutor(dispatch.Config{Shards: 2, QueueSize: 4})
	defer exec.Stop()

	bot := NewBot(p, h, exec, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	p.ch <- tgbotapi.Update{Message: textMessage(1, "hello")}
	p.ch <- tgbotapi.Update{Message: textMessage(1, "")}
	p.ch <- tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "q", From: &tgbotapi.User{ID: 1}, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}, Data: "option_2",
	}}

	assert.Eventually(t, func() bool {
		e, c := h.counts()
		return e == 1 && c == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	select {
	case <-p.stopped:
	default:
		t.Fatal("updates were not stopped")
	}
}
