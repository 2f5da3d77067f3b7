// Package consts contains constants for the bot domain
package consts

// Command represents a bot command
type Command struct {
	Name        string
	Description string
}

// Bot commands
var (
	CommandStart      = Command{Name: "start", Description: "Start the bot"}
	CommandHelp       = Command{Name: "help", Description: "Show help message"}
	CommandLogin      = Command{Name: "login", Description: "Log in with your Telegram account"}
	CommandCancel     = Command{Name: "cancel", Description: "Cancel the login in progress"}
	CommandLogout     = Command{Name: "logout", Description: "Remove your session"}
	CommandStatus     = Command{Name: "status", Description: "Show your session status"}
	CommandDownload   = Command{Name: "dl", Description: "Relay one post by link"}
	CommandBatch      = Command{Name: "bdl", Description: "Relay a range of posts"}
	CommandKillAll    = Command{Name: "killall", Description: "Cancel all running transfers"}
	CommandChannel    = Command{Name: "channel", Description: "Show relay and backup channels"}
	CommandSetChannel = Command{Name: "setchannel", Description: "Set the relay channel"}
	CommandSetBackup  = Command{Name: "setbackup", Description: "Set the backup channel"}
	CommandPing       = Command{Name: "ping", Description: "Check that the bot responds"}
)

// AllCommands contains all available bot commands for menu registration
var AllCommands = []Command{
	CommandStart,
	CommandHelp,
	CommandLogin,
	CommandCancel,
	CommandLogout,
	CommandStatus,
	CommandDownload,
	CommandBatch,
	CommandKillAll,
	CommandChannel,
	CommandSetChannel,
	CommandSetBackup,
	CommandPing,
}

// Slash returns the command as typed in chat
func (c Command) Slash() string {
	return "/" + c.Name
}
