package business

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Conte777/media-relay/internal/domain"
	batchentities "github.com/Conte777/media-relay/internal/domain/batch/entities"
	batcherrors "github.com/Conte777/media-relay/internal/domain/batch/errors"
	relayentities "github.com/Conte777/media-relay/internal/domain/relay/entities"
	relayerrors "github.com/Conte777/media-relay/internal/domain/relay/errors"
	relaybusiness "github.com/Conte777/media-relay/internal/domain/relay/usecase/business"
	sessionentities "github.com/Conte777/media-relay/internal/domain/session/entities"
	sessionerrors "github.com/Conte777/media-relay/internal/domain/session/errors"
	transferentities "github.com/Conte777/media-relay/internal/domain/transfer/entities"
	"github.com/Conte777/media-relay/internal/infrastructure/logger"
	pkgerrors "github.com/Conte777/media-relay/pkg/errors"
)

const (
	msgWelcome = `👋 <b>Welcome to Media Relay Bot!</b>

I can grab photos, videos, audio, documents and albums from any Telegram post and relay them for you.
Just send me a link (paste it directly or use <code>/dl &lt;link&gt;</code>).

🔐 Use /login to connect your own Telegram account.
ℹ️ Use /help to view all commands and examples.

Ready? Send me a Telegram post link!`

	msgHelp = `💡 <b>Media Relay Bot Help</b>

➤ <b>Account</b>
   /login - connect your Telegram account
   /cancel - cancel a login in progress
   /logout - remove your session
   /status - show your session status

➤ <b>Relay one post</b>
   <code>/dl https://t.me/channel/123</code> or just paste the link

➤ <b>Relay a range</b>
   <code>/bdl https://t.me/channel/100 https://t.me/channel/120</code>
   Relays every post from 100 to 120.

➤ <b>Channels</b>
   /channel - show relay and backup channels
   <code>/setchannel -1001234567890</code> or <code>/setchannel off</code>
   <code>/setbackup -1001234567890</code> or <code>/setbackup off</code>

➤ <b>If the bot hangs</b>
   /killall - cancel all running transfers

🔒 The account used for relaying must be a member of the source chat.`

	msgDefault = "🤖 Send me a Telegram post link or use /help for the list of commands."

	msgLoginPrompt = `🔐 <b>Login to Telegram</b>

Please send your <b>phone number</b> with country code.

Example: <code>+1234567890</code>

Use /cancel to cancel the login process.`

	msgCodeSent = `✅ <b>Verification code sent!</b>

📱 Check your Telegram app or SMS for the code.
Please send the <b>verification code</b>.

Example: <code>12345</code>`

	msgPasswordRequired = `🔐 <b>Two-Factor Authentication Required</b>

Please send your <b>2FA password</b>.
⚠️ The message with your password is deleted and the password is not stored.`

	msgUsageDownload = "❌ <b>Provide a post URL after the /dl command.</b>"

	msgUsageBatch = `🚀 <b>Batch Relay</b>
<code>/bdl start_link end_link</code>

💡 <b>Example:</b>
<code>/bdl https://t.me/mychannel/100 https://t.me/mychannel/120</code>`

	msgNoConnection = "❌ <b>No Telegram session available.</b> Use /login to connect your account."
	msgPong         = "🏓 <b>Pong!</b> Bot is alive and responding!"
	msgAdminOnly    = "⛔ <b>This command is restricted to the bot admin.</b>"
)

// progressBarWidth is the number of cells in the progress bar
const progressBarWidth = 10

func escape(s string) string {
	return html.EscapeString(s)
}

// loginStepMessage renders the prompt for the state a login step left the user in
func loginStepMessage(step *sessionentities.LoginStep) string {
	if step.Authenticated() {
		return loginSuccessMessage(step.Account)
	}

	switch step.State {
	case sessionentities.StateWaitingPhone:
		return msgLoginPrompt
	case sessionentities.StateWaitingCode:
		return msgCodeSent
	case sessionentities.StateWaitingPassword:
		return msgPasswordRequired
	default:
		return "❌ <b>No login session active.</b> Use /login to start."
	}
}

func loginSuccessMessage(acc *domain.Account) string {
	var b strings.Builder
	b.WriteString("✅ <b>Login Successful!</b>\n\n")
	b.WriteString(fmt.Sprintf("👤 <b>Logged in as:</b> %s\n", accountName(acc)))
	if acc.Phone != "" {
		b.WriteString(fmt.Sprintf("📱 <b>Phone:</b> <code>%s</code>\n", escape(logger.MaskPhone(acc.Phone))))
	}
	b.WriteString("\nYour session has been saved. You can now relay posts!\n\nUse /logout to remove your session.")
	return b.String()
}

// loginErrorMessage explains a failed login step.
// step.State tells whether the attempt survived the error.
func loginErrorMessage(step *sessionentities.LoginStep, err error) string {
	var inProgress *sessionerrors.InProgressError
	if errors.As(err, &inProgress) {
		return fmt.Sprintf("⚠️ <b>Login already in progress</b> (%s).\n\nSend the requested value or use /cancel.",
			stateLabel(inProgress.State))
	}

	var rateLimit *pkgerrors.RateLimitError
	if errors.As(err, &rateLimit) {
		return fmt.Sprintf("⏳ <b>Please wait %d seconds</b> before trying again.", int(rateLimit.RetryAfter.Round(time.Second).Seconds()))
	}

	var msg string
	switch {
	case errors.Is(err, sessionerrors.ErrAlreadyAuthenticated):
		return "✅ <b>You are already logged in.</b> Use /logout first to switch accounts."
	case errors.Is(err, sessionerrors.ErrTransitionInFlight):
		return "⏳ <b>Still working on your previous input.</b> Please wait."
	case errors.Is(err, sessionerrors.ErrEmptyInput):
		return "❌ <b>Empty input.</b> Please send the requested value."
	case errors.Is(err, domain.ErrPhoneInvalid):
		msg = "❌ <b>Invalid phone number.</b> Please check and try again."
	case errors.Is(err, domain.ErrPhoneCodeInvalid):
		msg = "❌ <b>Invalid verification code.</b> Please check and try again."
	case errors.Is(err, domain.ErrPhoneCodeExpired):
		msg = "❌ <b>Verification code expired.</b>"
	case errors.Is(err, domain.ErrPasswordInvalid):
		msg = "❌ <b>Incorrect password.</b> Please try again."
	case errors.Is(err, domain.ErrAPICredentialsInvalid):
		msg = "❌ <b>Invalid API credentials.</b> Contact the bot admin."
	default:
		msg = fmt.Sprintf("❌ <b>Error:</b> %s", escape(err.Error()))
	}

	if step == nil || step.State == sessionentities.StateIdle {
		msg += "\n\nLogin cancelled. Use /login to try again."
	}
	return msg
}

func stateLabel(s sessionentities.LoginState) string {
	switch s {
	case sessionentities.StateWaitingPhone:
		return "waiting for phone number"
	case sessionentities.StateWaitingCode:
		return "waiting for verification code"
	case sessionentities.StateWaitingPassword:
		return "waiting for 2FA password"
	default:
		return "idle"
	}
}

func accountName(acc *domain.Account) string {
	if acc == nil {
		return "unknown"
	}
	if acc.Username != "" {
		return "@" + escape(acc.Username)
	}
	return fmt.Sprintf("<code>%d</code>", acc.ID)
}

func logoutMessage(outcome sessionentities.LogoutOutcome) string {
	switch outcome {
	case sessionentities.LogoutDisconnected:
		return "✅ <b>Logged out successfully!</b>\n\nYour session has been removed."
	case sessionentities.LogoutSessionDeleted:
		return "✅ <b>Session removed from database.</b>"
	default:
		return "❌ <b>You are not logged in.</b>"
	}
}

func statusMessage(st sessionentities.Status, stats transferentities.Stats) string {
	var b strings.Builder

	switch {
	case st.State != sessionentities.StateIdle:
		b.WriteString(fmt.Sprintf("🔐 <b>Login in progress:</b> %s.\n\nSend it or use /cancel.", stateLabel(st.State)))
	case st.LoggedIn:
		b.WriteString("✅ <b>Session Active</b>\n\n")
		b.WriteString(fmt.Sprintf("👤 <b>Logged in as:</b> %s\n", accountName(st.Account)))
		if st.Account != nil {
			b.WriteString(fmt.Sprintf("🆔 <b>User ID:</b> <code>%d</code>", st.Account.ID))
		}
	case st.UsingFallback:
		b.WriteString("ℹ️ <b>You are not logged in.</b>\n\n")
		b.WriteString(fmt.Sprintf("Relays run through the shared session (%s).\nUse /login to connect your own account.", accountName(st.Account)))
	default:
		b.WriteString("❌ <b>You are not logged in.</b>\n\nUse /login to connect your account.")
	}

	b.WriteString(fmt.Sprintf("\n\n⚙️ <b>Transfers:</b> %d/%d running, %d queued", stats.Running, stats.Limit, stats.Queued))
	return b.String()
}

func channelMessage(t relayentities.Targets) string {
	var b strings.Builder
	b.WriteString("📢 <b>Channel Forwarding Status</b>\n\n")
	b.WriteString("➡️ <b>Relay channel:</b> " + channelLabel(t.RelayChannelID) + "\n")
	b.WriteString("🗄 <b>Backup channel:</b> " + channelLabel(t.BackupChannelID) + "\n\n")
	if t.RelayChannelID == 0 {
		b.WriteString("Posts are relayed back to this chat.")
	} else {
		b.WriteString("The relaying account must be able to post in the relay channel.")
	}
	return b.String()
}

func channelLabel(id int64) string {
	if id == 0 {
		return "disabled"
	}
	return fmt.Sprintf("<code>%d</code>", id)
}

func pingMessage(uptime time.Duration) string {
	return fmt.Sprintf("%s\n\n⏱ <b>Uptime:</b> <code>%s</code>", msgPong, uptime.Round(time.Second))
}

// relayErrorMessage explains why a relay did not happen
func relayErrorMessage(err error) string {
	var rateLimit *pkgerrors.RateLimitError
	if errors.As(err, &rateLimit) {
		return fmt.Sprintf("⏳ <b>Telegram asked to wait %d seconds.</b> Try again later.", int(rateLimit.RetryAfter.Round(time.Second).Seconds()))
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "🛑 <b>Cancelled.</b>"
	case errors.Is(err, relayerrors.ErrNoConnection):
		return msgNoConnection
	case errors.Is(err, domain.ErrInvalidLocator):
		return "❌ <b>Invalid post link.</b> Expected https://t.me/&lt;channel&gt;/&lt;id&gt; or https://t.me/c/&lt;id&gt;/&lt;id&gt;."
	case errors.Is(err, domain.ErrResourceNotFound):
		return "❌ <b>Post not found.</b> Make sure the relaying account is part of the chat."
	case errors.Is(err, relayerrors.ErrNothingToRelay):
		return "ℹ️ <b>No media or text found in the post URL.</b>"
	case errors.Is(err, relayerrors.ErrNoValidMedia):
		return "❌ <b>Could not extract any valid media from the media group.</b>"
	case errors.Is(err, relayerrors.ErrSizeLimitExceeded):
		return "❌ <b>The file exceeds the size limit of the relaying account.</b>"
	case errors.Is(err, relayerrors.ErrEmptyArtifact):
		return "❌ <b>Download failed:</b> file not saved properly."
	case errors.Is(err, domain.ErrSessionRevoked):
		return "❌ <b>The session has been revoked.</b> Use /login again."
	case errors.Is(err, batcherrors.ErrCrossChatRange):
		return "❌ <b>Both links must be from the same channel.</b>"
	case errors.Is(err, batcherrors.ErrInvalidRange):
		return "❌ <b>Invalid range:</b> start ID cannot exceed end ID."
	default:
		return fmt.Sprintf("❌ <b>%s</b>", escape(err.Error()))
	}
}

// relayResultMessage summarizes a finished relay
func relayResultMessage(res *relayentities.Result) string {
	var b strings.Builder

	what := res.Kind.String()
	switch {
	case res.TextOnly:
		what = "text"
	case res.Grouped:
		what = fmt.Sprintf("album of %d", res.Uploaded)
	}

	if res.Failed > 0 {
		b.WriteString(fmt.Sprintf("⚠️ <b>Relayed %d of %d items</b> (%s)", res.Uploaded, res.Uploaded+res.Failed, what))
	} else {
		b.WriteString(fmt.Sprintf("✅ <b>Relayed</b> %s", what))
	}
	b.WriteString(" to " + escape(res.Destination.String()))
	if res.Duration > 0 {
		b.WriteString(fmt.Sprintf(" in %s", res.Duration.Round(100*time.Millisecond)))
	}

	if res.Invalid > 0 {
		b.WriteString(fmt.Sprintf("\n⏭️ %d item(s) skipped as invalid", res.Invalid))
	}
	if res.GroupFallback {
		b.WriteString("\nℹ️ Album sent item by item")
	}

	switch res.Backup {
	case relayentities.BackupCopy, relayentities.BackupReupload:
		b.WriteString("\n🗄 Backup saved")
	case relayentities.BackupFailed:
		b.WriteString("\n⚠️ Backup failed")
	}

	return b.String()
}

func batchStartMessage(start, end domain.Locator) string {
	return fmt.Sprintf("📥 <b>Relaying posts %d–%d…</b>", start.MessageID, end.MessageID)
}

func batchProgressMessage(start, end domain.Locator, rep batchentities.Report) string {
	return fmt.Sprintf("%s\n\n%s %d/%d\n📥 %d relayed | ⏭️ %d skipped | ❌ %d failed",
		batchStartMessage(start, end),
		progressBar(int64(rep.Processed), int64(rep.Total)),
		rep.Processed, rep.Total,
		rep.Downloaded, rep.Skipped, rep.Failed)
}

// batchReportMessage is the final batch summary
func batchReportMessage(rep *batchentities.Report) string {
	var b strings.Builder

	if rep.Cancelled {
		b.WriteString(fmt.Sprintf("🛑 <b>Batch cancelled</b> after relaying <code>%d</code> post(s).\n", rep.Downloaded))
	} else {
		b.WriteString("✅ <b>Batch Process Complete!</b>\n")
	}
	b.WriteString("━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString(fmt.Sprintf("📥 <b>Relayed</b> : <code>%d</code> post(s)\n", rep.Downloaded))
	b.WriteString(fmt.Sprintf("⏭️ <b>Skipped</b> : <code>%d</code> (no content)\n", rep.Skipped))
	b.WriteString(fmt.Sprintf("❌ <b>Failed</b>  : <code>%d</code> error(s)", rep.Failed))

	if len(rep.FailedIDs) > 0 {
		ids := make([]string, len(rep.FailedIDs))
		for i, id := range rep.FailedIDs {
			ids[i] = fmt.Sprint(id)
		}
		b.WriteString("\n\n<b>Failed IDs:</b> <code>" + strings.Join(ids, ", ") + "</code>")
		if rep.FailedOverflow > 0 {
			b.WriteString(fmt.Sprintf(" and %d more", rep.FailedOverflow))
		}
	}

	return b.String()
}

// progressMessage renders one pipeline progress report
func progressMessage(stage relayentities.Stage, done, total int64, elapsed time.Duration) string {
	var title string
	switch stage {
	case relayentities.StageResolve:
		return "🔎 <b>Resolving post…</b>"
	case relayentities.StageDownload:
		title = "📥 <b>Downloading</b>"
	case relayentities.StageUpload:
		title = "📤 <b>Uploading</b>"
	case relayentities.StageBackup:
		title = "🗄 <b>Backing up</b>"
	default:
		title = "⏳ <b>Working</b>"
	}

	if total <= 0 {
		return title + "…"
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(progressBar(done, total))
	b.WriteString(fmt.Sprintf(" %.2f%%\n", percent(done, total)))
	b.WriteString(fmt.Sprintf("%s / %s\n", relaybusiness.FormatBytes(done), relaybusiness.FormatBytes(total)))

	speed := int64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		speed = int64(float64(done) / secs)
	}
	eta := "-"
	if speed > 0 && done < total {
		eta = (time.Duration(float64(total-done)/float64(speed)) * time.Second).String()
	}
	b.WriteString(fmt.Sprintf("Speed: %s/s | ETA: %s", relaybusiness.FormatBytes(speed), eta))

	return b.String()
}

func progressBar(done, total int64) string {
	filled := 0
	if total > 0 {
		filled = int(done * progressBarWidth / total)
	}
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", progressBarWidth-filled)
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) * 100 / float64(total)
	if p > 100 {
		return 100
	}
	return p
}

func startupMessage(now time.Time, pool sessionentities.PoolStats, t relayentities.Targets) string {
	var b strings.Builder
	b.WriteString("🚀 <b>Bot Started Successfully!</b>\n\n")
	b.WriteString(fmt.Sprintf("📅 <b>Time:</b> <code>%s</code>\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("👥 <b>Connections:</b> %d", pool.Connections))
	if pool.HasFallback {
		b.WriteString(" + shared session")
	}
	b.WriteString("\n")
	b.WriteString("➡️ <b>Relay channel:</b> " + channelLabel(t.RelayChannelID) + "\n")
	b.WriteString("🗄 <b>Backup channel:</b> " + channelLabel(t.BackupChannelID) + "\n\n")
	b.WriteString("The bot is now ready to receive messages!")
	return b.String()
}
