package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gurujiofficial51-wq/info1/internal/conversation"
)

const menuURL = "https://telegram.org"

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonEnterNumber)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.ButtonWallet),
			tgbotapi.NewKeyboardButton(conversation.ButtonRefer),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.ButtonHelp),
			tgbotapi.NewKeyboardButton(conversation.ButtonAbout),
		),
	)
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(conversation.ButtonCancel)),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌟 Option 1", conversation.CallbackOption1),
			tgbotapi.NewInlineKeyboardButtonData("🎯 Option 2", conversation.CallbackOption2),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Visit Website", menuURL),
		),
	)
}

// markup maps a keyboard hint to its reply markup. KeyboardNone maps to nil.
func markup(k conversation.Keyboard) any {
	switch k {
	case conversation.KeyboardMain:
		return mainKeyboard()
	case conversation.KeyboardCancel:
		return cancelKeyboard()
	case conversation.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(false)
	case conversation.KeyboardMenu:
		return menuKeyboard()
	default:
		return nil
	}
}

// buildMessage renders a reply as a sendMessage request.
func buildMessage(r conversation.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(r.ChatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if m := markup(r.Keyboard); m != nil {
		msg.ReplyMarkup = m
	}
	return msg
}
