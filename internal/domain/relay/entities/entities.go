package entities

import (
	"time"

	"github.com/Conte777/media-relay/internal/domain"
)

// Stage names the pipeline step a progress report belongs to
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageDownload Stage = "download"
	StageUpload   Stage = "upload"
	StageBackup   Stage = "backup"
)

// Progress receives pipeline progress; done and total are bytes for transfer stages
type Progress func(stage Stage, done, total int64)

// Request describes one relay
type Request struct {
	UserID int64
	// Source resolves and downloads the post
	Source domain.Connection
	// Sink uploads and copies; Source is used when nil
	Sink    domain.Connection
	Locator domain.Locator
	// Origin is the requesting chat, the destination when no relay channel is set
	Origin   domain.ChatRef
	Progress Progress
}

// Uploader returns the connection that performs uploads
func (r *Request) Uploader() domain.Connection {
	if r.Sink != nil {
		return r.Sink
	}
	return r.Source
}

// BackupMode is how the backup channel received its copy
type BackupMode string

const (
	BackupNone     BackupMode = "none"
	BackupCopy     BackupMode = "copy"
	BackupReupload BackupMode = "reupload"
	BackupFailed   BackupMode = "failed"
)

// Result is the outcome of one relay
type Result struct {
	Locator     domain.Locator
	Kind        domain.MediaKind
	Destination domain.ChatRef
	Sent        []domain.Sent

	// Uploaded counts delivered items, Failed items whose upload failed,
	// Invalid items dropped before upload
	Uploaded int
	Failed   int
	Invalid  int

	Grouped       bool
	GroupFallback bool
	TextOnly      bool
	Backup        BackupMode
	Duration      time.Duration
}

// Targets is the runtime relay configuration; 0 disables a target
type Targets struct {
	RelayChannelID  int64
	BackupChannelID int64
}

// RelayEvent is published once per finished relay
type RelayEvent struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	SourceChat  string    `json:"source_chat"`
	MessageID   int       `json:"message_id"`
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	MessageIDs  []int     `json:"message_ids,omitempty"`
	Uploaded    int       `json:"uploaded"`
	Failed      int       `json:"failed"`
	Backup      string    `json:"backup"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}
