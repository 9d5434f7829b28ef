package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/hronboard/internal/common"
	"github.com/dmitrijs2005/hronboard/internal/server/models"
)

// ChatSender sends plain text to a chat.
type ChatSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ChatNotifier delivers to the contact's bound chat. Contacts without a chat
// binding are skipped.
type ChatNotifier struct {
	sender    ChatSender
	catalogue *Catalogue
}

func NewChatNotifier(sender ChatSender, catalogue *Catalogue) *ChatNotifier {
	return &ChatNotifier{sender: sender, catalogue: catalogue}
}

func (n *ChatNotifier) Notify(ctx context.Context, to models.Contact, templateKey string, vars map[string]string) error {
	if to.ChatID == nil {
		return nil
	}
	msg, err := n.catalogue.Render(templateKey, vars)
	if err != nil {
		return err
	}
	if err := n.sender.SendText(ctx, *to.ChatID, msg.Text); err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	return nil
}

// DisabledSender is used when no chat transport is configured.
type DisabledSender struct{}

func (DisabledSender) SendText(context.Context, int64, string) error {
	return fmt.Errorf("%w: chat transport is not configured", common.ErrTransport)
}
