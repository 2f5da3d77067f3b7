package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLocator parses t.me post links:
//
//	https://t.me/c/<internal id>/<msg>
//	https://t.me/c/<internal id>/<topic>/<msg>
//	https://t.me/<username>/<msg>
//	https://t.me/<username>/<topic>/<msg>
func ParseLocator(link string) (Locator, error) {
	raw := strings.TrimSpace(link)
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	rest := raw
	for _, prefix := range []string{"https://", "http://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	matched := false
	for _, host := range []string{"t.me/", "telegram.me/", "telegram.dog/"} {
		if strings.HasPrefix(rest, host) {
			rest = strings.TrimPrefix(rest, host)
			matched = true
			break
		}
	}
	if !matched {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, link)
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, link)
	}

	msgID, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || msgID <= 0 {
		return Locator{}, fmt.Errorf("%w: bad message id in %q", ErrInvalidLocator, link)
	}

	if parts[0] == "c" {
		if len(parts) < 3 || len(parts) > 4 {
			return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, link)
		}
		internal, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || internal <= 0 {
			return Locator{}, fmt.Errorf("%w: bad chat id in %q", ErrInvalidLocator, link)
		}
		return Locator{Chat: ChatRef{ID: ChannelChatID(internal)}, MessageID: msgID}, nil
	}

	if len(parts) > 3 || !validUsername(parts[0]) {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, link)
	}
	return Locator{Chat: ChatRef{Username: parts[0]}, MessageID: msgID}, nil
}

// ChannelChatID converts a bare channel id into the Bot API form -100<id>
func ChannelChatID(channelID int64) int64 {
	return -1_000_000_000_000 - channelID
}

// SplitChatID classifies a Bot API style chat id into channel, basic group or user
func SplitChatID(chatID int64) (kind string, id int64) {
	switch {
	case chatID <= -1_000_000_000_000:
		return "channel", -chatID - 1_000_000_000_000
	case chatID < 0:
		return "chat", -chatID
	default:
		return "user", chatID
	}
}

func validUsername(s string) bool {
	if len(s) < 4 || len(s) > 32 {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
