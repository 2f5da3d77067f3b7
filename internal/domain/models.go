package domain

import (
	"strconv"
	"strings"
	"time"
)

// Scope distinguishes login-only connections from authenticated ones
type Scope int

const (
	// ScopeEphemeral is an unauthenticated connection used only during login
	ScopeEphemeral Scope = iota
	// ScopeDurable is an authenticated connection restored from a session token
	ScopeDurable
)

func (s Scope) String() string {
	if s == ScopeDurable {
		return "durable"
	}
	return "ephemeral"
}

// ChatRef identifies a chat either by Bot API style id (-100... for channels) or by username
type ChatRef struct {
	ID       int64
	Username string
}

// IsZero reports whether the reference points nowhere
func (c ChatRef) IsZero() bool {
	return c.ID == 0 && c.Username == ""
}

// Same reports whether two references name the same chat
func (c ChatRef) Same(other ChatRef) bool {
	if c.Username != "" || other.Username != "" {
		return strings.EqualFold(c.Username, other.Username)
	}
	return c.ID == other.ID
}

func (c ChatRef) String() string {
	if c.Username != "" {
		return "@" + c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// Locator is a (chat, message id) pair parsed from a post reference
type Locator struct {
	Chat      ChatRef
	MessageID int
}

// MediaKind is the tag of the media variant
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaPhoto
	MediaVideo
	MediaAudio
	MediaDocument
)

func (k MediaKind) String() string {
	switch k {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaDocument:
		return "document"
	default:
		return "none"
	}
}

// IsLargeBinary reports whether the kind is subject to the size tier check
func (k MediaKind) IsLargeBinary() bool {
	return k == MediaVideo || k == MediaAudio || k == MediaDocument
}

// VideoMeta is the video-specific part of the media variant
type VideoMeta struct {
	Duration int
	Width    int
	Height   int
}

// AudioMeta is the audio-specific part of the media variant
type AudioMeta struct {
	Duration  int
	Performer string
	Title     string
}

// Media is a tagged variant; only the field matching Kind is set
type Media struct {
	Kind     MediaKind
	Size     int64
	FileName string
	MimeType string
	Video    *VideoMeta
	Audio    *AudioMeta
	// Location is the provider handle needed to download the file
	Location any
}

// Item is a resolved source post
type Item struct {
	Locator Locator
	GroupID int64
	Text    string
	Media   *Media
	Date    time.Time
}

// HasMedia reports whether the item carries an attachment
func (i *Item) HasMedia() bool {
	return i != nil && (i.Media != nil || i.GroupID != 0)
}

// HasText reports whether the item carries text or a caption
func (i *Item) HasText() bool {
	return i != nil && i.Text != ""
}

// Upload describes one artifact to send
type Upload struct {
	Kind      MediaKind
	Path      string
	Caption   string
	FileName  string
	MimeType  string
	Duration  int
	Width     int
	Height    int
	Performer string
	Title     string
	// ThumbPath is optional
	ThumbPath string
}

// Sent identifies a message produced by a send or copy call
type Sent struct {
	ChatID int64
	ID     int
}

// Account is the identity behind an authenticated connection
type Account struct {
	ID       int64
	Username string
	Phone    string
	Premium  bool
}

// UserSession is the persisted credential of one user
type UserSession struct {
	UserID       int64
	SessionToken string
	PhoneNumber  string
	Active       bool
}

// ProbeResult is what the media probe reports for a file
type ProbeResult struct {
	Duration int
	Width    int
	Height   int
	Artist   string
	Title    string
}

// ProgressFunc receives transferred and total byte counts
type ProgressFunc func(done, total int64)
