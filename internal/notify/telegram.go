package notify

import (
	"context"
	"fmt"
	"net/http"
)

// TelegramSender posts notifications to one chat through the Bot API. The
// title goes out in bold, Markdown parse mode.
type TelegramSender struct {
	sendURL string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a sender posting to the given chat.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		sendURL: "https://api.telegram.org/bot" + token + "/sendMessage",
		chatID:  chatID,
		client:  &http.Client{Timeout: sendTimeout},
	}
}

func (t *TelegramSender) Send(ctx context.Context, title, body string) error {
	msg := struct {
		ChatID    string `json:"chat_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}{
		ChatID:    t.chatID,
		Text:      fmt.Sprintf("*%s*\n%s", title, body),
		ParseMode: "Markdown",
	}
	if err := postJSON(ctx, t.client, t.sendURL, msg); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (t *TelegramSender) Name() string { return "telegram" }

var _ Sender = (*TelegramSender)(nil)
