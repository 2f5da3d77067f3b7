package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/internal/domain"
	batchentities "github.com/Conte777/media-relay/internal/domain/batch/entities"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

func TestProgressMessage(t *testing.T) {
	require.Equal(t, "🔎 <b>Resolving post…</b>", progressMessage(relayentities.StageResolve, 0, 0, 0))
	require.Equal(t, "📤 <b>Uploading</b>…", progressMessage(relayentities.StageUpload, 10, 0, time.Second))

	msg := progressMessage(relayentities.StageDownload, 512, 1024, 2*time.Second)
	require.Contains(t, msg, "▓▓▓▓▓░░░░░ 50.00%")
	require.Contains(t, msg, "ETA: 2s")
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "░░░░░░░░░░", progressBar(0, 100))
	require.Equal(t, "▓▓▓▓▓▓▓▓▓▓", progressBar(150, 100))
	require.Equal(t, "░░░░░░░░░░", progressBar(5, 0))
	require.Equal(t, float64(100), percent(150, 100))
}

func TestBatchReportMessage(t *testing.T) {
	rep := &batchentities.Report{Downloaded: 7, Skipped: 2, Failed: 3, FailedIDs: []int{3, 8}, FailedOverflow: 1}

	msg := batchReportMessage(rep)
	require.Contains(t, msg, "Batch Process Complete")
	require.Contains(t, msg, "<code>3, 8</code> and 1 more")

	rep.Cancelled = true
	msg = batchReportMessage(rep)
	require.True(t, strings.HasPrefix(msg, "🛑 <b>Batch cancelled</b> after relaying <code>7</code>"))
}

func TestRelayErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: pkgerrors.NewRateLimitError(12*time.Second), want: "wait 12 seconds"},
		{err: fmt.Errorf("relay: %w", context.Canceled), want: "Cancelled"},
		{err: relayerrors.ErrNothingToRelay, want: "No media or text"},
		{err: fmt.Errorf("resolve: %w", domain.ErrResourceNotFound), want: "Post not found"},
		{err: errors.New("a <b> tag"), want: "a &lt;b&gt; tag"},
	}
	for _, tt := range tests {
		require.Contains(t, relayErrorMessage(tt.err), tt.want, tt.err.Error())
	}
}

func TestRelayResultMessage(t *testing.T) {
	msg := relayResultMessage(&relayentities.Result{
		Kind:        domain.MediaPhoto,
		Destination: domain.ChatRef{Username: "archive"},
		Grouped:     true,
		Uploaded:    3,
		Failed:      1,
		Backup:      relayentities.BackupFailed,
	})

	require.Contains(t, msg, "Relayed 3 of 4 items</b> (album of 3) to @archive")
	require.Contains(t, msg, "Backup failed")
}

func TestProgressTracker_Throttles(t *testing.T) {
	var edits []string
	p := newProgressTracker(3*time.Second, func(text string) { edits = append(edits, text) })

	clock := p.started
	p.now = func() time.Time { return clock }

	p.Report(relayentities.StageDownload, 10, 100)
	clock = clock.Add(time.Second)
	p.Report(relayentities.StageDownload, 20, 100)
	require.Len(t, edits, 1, "same stage within the interval is dropped")

	p.Report(relayentities.StageUpload, 0, 100)
	require.Len(t, edits, 2, "a stage change is shown at once")

	clock = clock.Add(3 * time.Second)
	p.Report(relayentities.StageUpload, 50, 100)
	require.Len(t, edits, 3)

	p.Stop()
	clock = clock.Add(time.Minute)
	p.Report(relayentities.StageUpload, 100, 100)
	require.Len(t, edits, 3, "stopped tracker ignores reports")
}
