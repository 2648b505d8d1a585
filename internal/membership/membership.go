// Package membership answers whether a user belongs to a Telegram chat.
package membership

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

type Oracle interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

type ChatAPI interface {
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
	GetChat(ctx context.Context, params *telego.GetChatParams) (*telego.ChatFullInfo, error)
}

// ChatMemberOracle asks Telegram for the member status.
type ChatMemberOracle struct {
	api ChatAPI
}

func NewChatMemberOracle(api ChatAPI) *ChatMemberOracle {
	return &ChatMemberOracle{api: api}
}

func (o *ChatMemberOracle) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	member, err := o.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(groupID),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d in %d: %w", userID, groupID, err)
	}
	return IsJoinedStatus(member.MemberStatus()), nil
}

func IsJoinedStatus(status string) bool {
	switch status {
	case telego.MemberStatusMember, telego.MemberStatusAdministrator, telego.MemberStatusCreator:
		return true
	default:
		return false
	}
}

// InviteLinks returns one join link per group, in order. Groups whose invite
// link cannot be read get a t.me/c link.
func (o *ChatMemberOracle) InviteLinks(ctx context.Context, groups []int64) []string {
	links := make([]string, 0, len(groups))
	for _, groupID := range groups {
		chat, err := o.api.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(groupID)})
		if err == nil && chat != nil && chat.InviteLink != "" {
			links = append(links, chat.InviteLink)
			continue
		}
		if err != nil {
			log.WithError(err).WithField("chat_id", groupID).Warn("Failed to read invite link")
		}
		links = append(links, FallbackLink(groupID))
	}
	return links
}

// FallbackLink builds a t.me/c link from a -100 prefixed channel id.
func FallbackLink(groupID int64) string {
	id := strconv.FormatInt(groupID, 10)
	id = strings.TrimPrefix(id, "-100")
	id = strings.TrimPrefix(id, "-")
	return fmt.Sprintf("https://t.me/c/%s/1", id)
}
