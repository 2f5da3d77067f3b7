package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/internal/domain/bot/consts"
)

func privateUpdate(text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   11,
			From: &models.User{ID: 42, Username: "alice"},
			Chat: models.Chat{ID: 42, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}

func TestNewRequest(t *testing.T) {
	req, ok := newRequest(privateUpdate("  /bdl https://t.me/news/1   https://t.me/news/9 "))
	require.True(t, ok)
	require.Equal(t, int64(42), req.UserID)
	require.Equal(t, 11, req.MessageID)
	require.Equal(t, []string{"https://t.me/news/1", "https://t.me/news/9"}, req.Args)

	req, ok = newRequest(privateUpdate("+15550001111"))
	require.True(t, ok)
	require.Empty(t, req.Args, "plain text has no arguments")
	require.Equal(t, "+15550001111", req.Text)

	group := privateUpdate("/start")
	group.Message.Chat.Type = models.ChatTypeGroup
	_, ok = newRequest(group)
	require.False(t, ok, "group chats are ignored")

	_, ok = newRequest(&models.Update{})
	require.False(t, ok)
}

func TestIsCommand(t *testing.T) {
	require.True(t, isCommand("/dl https://t.me/news/1", "/dl"))
	require.True(t, isCommand("/DL@relaybot link", "/dl"))
	require.True(t, isCommand("/setchannel", "/setchannel"))
	require.False(t, isCommand("/dlx", "/dl"), "prefix match must stop at the command word")
	require.False(t, isCommand("/setchannelx -100", "/setchannel"))
	require.False(t, isCommand("", "/dl"))
}

func TestSplitMessage(t *testing.T) {
	require.Equal(t, []string{"short"}, splitMessage("short"))

	line := strings.Repeat("a", 3000)
	parts := splitMessage(line + "\n" + line)
	require.Equal(t, []string{line, line}, parts)

	long := strings.Repeat("я", MaxMessageLength)
	parts = splitMessage(long)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		require.LessOrEqual(t, len(p), MaxMessageLength)
		require.True(t, utf8.ValidString(p), "parts must not cut a rune")
	}
	require.Equal(t, long, strings.Join(parts, ""))
}

func TestMenuCommands(t *testing.T) {
	cmds := MenuCommands()
	require.Len(t, cmds, len(consts.AllCommands))
	for _, c := range cmds {
		require.NotEmpty(t, c.Description)
		require.False(t, strings.HasPrefix(c.Command, "/"))
	}
}
