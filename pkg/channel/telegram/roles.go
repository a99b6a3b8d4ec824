package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// roleChecker answers channel.RoleChecker from getChatMember, remembering
// answers for a short while so repeated admin commands stay cheap.
type roleChecker struct {
	api   botAPI
	cache *expirable.LRU[string, bool]
}

func newRoleChecker(api botAPI, size int, ttl time.Duration) *roleChecker {
	if size <= 0 {
		size = 512
	}
	return &roleChecker{
		api:   api,
		cache: expirable.NewLRU[string, bool](size, nil, ttl),
	}
}

func (r *roleChecker) IsElevated(ctx context.Context, chatID string, userID string) (bool, error) {
	key := chatID + ":" + userID
	if elevated, ok := r.cache.Get(key); ok {
		return elevated, nil
	}

	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	user, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse user id %q: %w", userID, err)
	}

	member, err := r.api.GetChatMember(ctx, &telego.GetChatMemberParams{ChatID: tu.ID(chat), UserID: user})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}

	status := member.MemberStatus()
	elevated := status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator
	r.cache.Add(key, elevated)
	return elevated, nil
}
