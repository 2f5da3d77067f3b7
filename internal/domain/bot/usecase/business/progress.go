package business

import (
	"sync"
	"time"

	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
)

// progressTracker turns pipeline progress into status message edits.
// Edits within interval of the previous one are dropped unless the stage changed.
type progressTracker struct {
	edit     func(text string)
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	started  time.Time
	last     time.Time
	stage    relayentities.Stage
	lastText string
	stopped  bool
}

func newProgressTracker(interval time.Duration, edit func(text string)) *progressTracker {
	now := time.Now
	return &progressTracker{
		edit:     edit,
		interval: interval,
		now:      now,
		started:  now(),
	}
}

// Report is an entities.Progress; album downloads call it concurrently
func (p *progressTracker) Report(stage relayentities.Stage, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	now := p.now()
	if stage == p.stage && now.Sub(p.last) < p.interval {
		return
	}

	text := progressMessage(stage, done, total, now.Sub(p.started))
	if text == p.lastText {
		return
	}

	p.stage = stage
	p.last = now
	p.lastText = text
	p.edit(text)
}

// Stop drops every later report
func (p *progressTracker) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
