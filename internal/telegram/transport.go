// Package telegram adapts the Telegram Bot API to the dialogue engine's
// transport contract.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amirulm/aidlog/internal/dialogue"
)

// Transport implements dialogue.Transport over tgbotapi.
type Transport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// New connects to the Telegram Bot API with the given token.
func New(token string, logger *slog.Logger) (*Transport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info("telegram connected", "username", bot.Self.UserName)
	return &Transport{bot: bot, logger: logger}, nil
}

// SendMessage sends text with an optional keyboard.
func (t *Transport) SendMessage(_ context.Context, chatID int64, text string, opts *dialogue.SendOptions) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = buildMarkup(opts)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendPhoto sends a photo by its transport-native file reference.
func (t *Transport) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("sending photo: %w", err)
	}
	return nil
}

// SendDocument sends a document by its transport-native file reference.
func (t *Transport) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	if _, err := t.bot.Send(doc); err != nil {
		return fmt.Errorf("sending document: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press.
func (t *Transport) AnswerCallback(_ context.Context, callbackID, text string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

// ClearMessageKeyboard removes the inline keyboard from a sent message.
func (t *Transport) ClearMessageKeyboard(_ context.Context, chatID int64, messageID int) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := t.bot.Request(edit); err != nil {
		return fmt.Errorf("clearing keyboard: %w", err)
	}
	return nil
}

// FileURL resolves a file reference to a downloadable URL.
func (t *Transport) FileURL(_ context.Context, fileID string) (string, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolving file url: %w", err)
	}
	return url, nil
}

func buildMarkup(opts *dialogue.SendOptions) any {
	if opts == nil {
		return nil
	}

	if len(opts.InlineRows) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts.InlineRows))
		for _, row := range opts.InlineRows {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if len(opts.ReplyButtons) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(opts.ReplyButtons)+1)
		if opts.LocationButton {
			rows = append(rows, []tgbotapi.KeyboardButton{
				{Text: "Send my location", RequestLocation: true},
			})
		}
		for _, row := range opts.ReplyButtons {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		return markup
	}

	if opts.ForceReply {
		return tgbotapi.ForceReply{ForceReply: true}
	}
	if opts.RemoveKeyboard {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	return nil
}
