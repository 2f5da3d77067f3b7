// Package dto contains data transfer objects for the bot domain
package dto

// CommandRequest is one incoming command or text message
type CommandRequest struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Username  string
	// Args are the whitespace separated words after the command
	Args []string
	Text string
}

// Arg returns the i-th argument or an empty string
func (r *CommandRequest) Arg(i int) string {
	if i < len(r.Args) {
		return r.Args[i]
	}
	return ""
}

// CommandResponse represents a response for bot commands
type CommandResponse struct {
	Message string
}
