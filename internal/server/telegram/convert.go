package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/hronboard/internal/server/bot"
)

type fetchFunc func(fileID string) func(ctx context.Context) ([]byte, error)

// toEvent converts an update into a bot event. Updates the conversation does
// not handle (edits, channel posts, stickers) are reported as not ok.
func toEvent(u tgbotapi.Update, fetch fetchFunc) (bot.Event, bool) {
	if q := u.CallbackQuery; q != nil {
		if q.Message == nil || q.Message.Chat == nil {
			return bot.Event{}, false
		}
		return bot.Event{ChatID: q.Message.Chat.ID, Kind: bot.KindCallback, Data: q.Data}, true
	}

	m := u.Message
	if m == nil || m.Chat == nil {
		return bot.Event{}, false
	}
	ev := bot.Event{ChatID: m.Chat.ID}

	switch {
	case m.IsCommand():
		ev.Kind = bot.KindCommand
		ev.Command = m.Command()
	case m.Document != nil:
		ev.Kind = bot.KindFile
		ev.File = &bot.File{
			Name:        m.Document.FileName,
			ContentType: m.Document.MimeType,
			Size:        int64(m.Document.FileSize),
			Fetch:       fetch(m.Document.FileID),
		}
	case len(m.Photo) > 0:
		// the last size is the largest
		p := m.Photo[len(m.Photo)-1]
		ev.Kind = bot.KindFile
		ev.File = &bot.File{
			Name:        p.FileUniqueID + ".jpg",
			ContentType: "image/jpeg",
			Size:        int64(p.FileSize),
			Fetch:       fetch(p.FileID),
		}
	case m.Location != nil:
		ev.Kind = bot.KindLocation
		ev.Location = &bot.Location{
			Latitude:  m.Location.Latitude,
			Longitude: m.Location.Longitude,
			Accuracy:  m.Location.HorizontalAccuracy,
		}
	case m.Text != "":
		ev.Kind = bot.KindText
		ev.Text = m.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

// replyMarkup renders a keyboard. A location request becomes a one-time reply
// keyboard since inline buttons cannot ask for a location; the other rows
// follow it as plain reply buttons, which come back as their label text.
func replyMarkup(kb *bot.Keyboard) any {
	if kb == nil {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	if kb.RequestLocation != "" {
		rows := [][]tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(kb.RequestLocation)),
		}
		for _, r := range kb.Rows {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, b := range r {
				row = append(row, tgbotapi.NewKeyboardButton(b.Text))
			}
			rows = append(rows, row)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.OneTimeKeyboard = true
		markup.ResizeKeyboard = true
		return markup
	}
	if len(kb.Rows) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
