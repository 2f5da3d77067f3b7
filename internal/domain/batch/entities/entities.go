package entities

import (
	"github.com/Conte777/media-relay/internal/domain"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// Request describes a batch over start..end of one chat
type Request struct {
	UserID int64
	Source domain.Connection
	Sink   domain.Connection
	Start  domain.Locator
	End    domain.Locator
	Origin domain.ChatRef

	// OnWindow is called after each window with the running totals
	OnWindow func(Report)
}

// Report is the batch tally
type Report struct {
	Total      int
	Processed  int
	Downloaded int
	Skipped    int
	Failed     int
	FailedIDs  []int
	// FailedOverflow counts failed ids not kept in FailedIDs
	FailedOverflow int
	Cancelled      bool
}

// RelayRequest converts the batch request into a single-item relay request
func (r *Request) RelayRequest(msgID int) relayentities.Request {
	return relayentities.Request{
		UserID:  r.UserID,
		Source:  r.Source,
		Sink:    r.Sink,
		Locator: domain.Locator{Chat: r.Start.Chat, MessageID: msgID},
		Origin:  r.Origin,
	}
}
