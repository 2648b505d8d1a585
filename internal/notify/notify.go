// Package notify posts audit messages to the log channel.
package notify

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// TimeLayout is the timestamp format used in audit messages.
const TimeLayout = "2006-01-02 03:04:05 PM"

// Notifier delivers best-effort audit messages. Delivery failures never reach
// the caller.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Channel sends audit messages to a Telegram chat.
type Channel struct {
	sender Sender
	chatID int64
}

// NewChannel returns a Notifier posting to chatID. A zero chatID disables
// notifications.
func NewChannel(sender Sender, chatID int64) Notifier {
	if sender == nil || chatID == 0 {
		return Nop{}
	}
	return &Channel{sender: sender, chatID: chatID}
}

func (c *Channel) Notify(ctx context.Context, text string) {
	if _, err := c.sender.SendMessage(ctx, tu.Message(tu.ID(c.chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", c.chatID).Warn("Failed to post to log channel")
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, string) {}
