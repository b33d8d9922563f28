package conversation

import (
	"context"

	"github.com/gurujiofficial51-wq/info1/internal/model"
)

// Event is one inbound text message from a principal.
type Event struct {
	EventID     string
	PrincipalID string
	ChatID      int64
	Profile     model.Profile
	Text        string
	// Command is the bot command without its slash, empty for plain text.
	Command string
	Args    string
}

// Callback is a press on an inline keyboard button.
type Callback struct {
	ID          string
	EventID     string
	PrincipalID string
	ChatID      int64
	Data        string
}

// Keyboard is a reply keyboard hint attached to an outbound message.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain
	KeyboardCancel
	KeyboardRemove
	KeyboardMenu
)

// Reply is one outbound message.
type Reply struct {
	ChatID   int64
	Text     string
	Markdown bool
	Keyboard Keyboard
}

// Replier delivers replies back through the identity source.
type Replier interface {
	Send(ctx context.Context, r Reply) error
	AnswerCallback(ctx context.Context, callbackID string) error
}
