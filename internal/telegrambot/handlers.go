package telegrambot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Anarq42/Reddit2TgGroup/internal/caption"
)

const helpText = `Reddit media bridge.

I watch a list of subreddits and forward new posts with their media into this group's forum topics.

Commands:
/add &lt;subreddit&gt; &lt;topic_id&gt; - watch a subreddit, routing its posts to a topic
/comments &lt;post url&gt; - show the top-comment digest for a post
/reload - reply to a message with a Reddit link to send that post again
/admin - bot status (admins only)

You can also just send me a link to a Reddit post and I will deliver it.`

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.reply(msg, helpText)
}

func (b *Bot) handleAdmin(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.logger.Warn().Int64("user_id", msg.From.ID).Msg("unauthorized /admin attempt")
		b.reply(msg, "Admins only.")

		return
	}

	uptime := time.Since(b.startedAt).Round(time.Second)

	var sb strings.Builder

	sb.WriteString("<b>Bridge status</b>\n\n")
	sb.WriteString(fmt.Sprintf("Uptime: <code>%s</code>\n", uptime))
	sb.WriteString(fmt.Sprintf("Watched subreddits: <code>%d</code>\n", b.routes.Len()))
	sb.WriteString(fmt.Sprintf("Target chat: <code>%d</code>\n", b.cfg.TargetChatID))

	b.reply(msg, sb.String())
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	if len(args) != 2 {
		b.reply(msg, "Usage: <code>/add &lt;subreddit&gt; &lt;topic_id&gt;</code>")

		return
	}

	subreddit := strings.ToLower(strings.TrimPrefix(args[0], "r/"))

	topicID, err := strconv.Atoi(args[1])
	if err != nil || topicID < 0 {
		b.reply(msg, "Topic ID must be a non-negative number.")

		return
	}

	if err := b.reddit.SubredditExists(ctx, subreddit); err != nil {
		b.logger.Warn().Err(err).Str("subreddit", subreddit).Msg("subreddit check failed")
		b.reply(msg, fmt.Sprintf("Could not find r/%s. Check the name and try again.", html.EscapeString(subreddit)))

		return
	}

	if err := b.routes.Add(subreddit, topicID); err != nil {
		b.reply(msg, fmt.Sprintf("Failed to save the route: %s", html.EscapeString(err.Error())))

		return
	}

	b.reply(msg, fmt.Sprintf("Watching r/%s, posts go to topic <code>%d</code>.", html.EscapeString(subreddit), topicID))
}

func (b *Bot) handleComments(ctx context.Context, msg *tgbotapi.Message) {
	id := submissionIDFromMessage(msg)
	if id == "" {
		b.reply(msg, "Usage: <code>/comments &lt;post url&gt;</code>, or reply to a message with a Reddit link.")

		return
	}

	comments, err := b.reddit.Comments(ctx, id)
	if err != nil {
		b.logger.Error().Err(err).Str("submission_id", id).Msg("comments fetch failed")
		b.reply(msg, "Could not load comments for that post.")

		return
	}

	digest := caption.Digest(comments, b.captionOpts, time.Now())
	if digest == "" {
		b.reply(msg, "No comments yet.")

		return
	}

	b.reply(msg, "<b>Top Comments:</b>\n"+digest)
}

func (b *Bot) handleReload(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(msg, "Reply to a message containing a Reddit link with /reload.")

		return
	}

	id := extractSubmissionID(messageText(msg.ReplyToMessage))
	if id == "" {
		b.reply(msg, "No Reddit post link found in that message.")

		return
	}

	sub, err := b.reddit.Submission(ctx, id)
	if err != nil {
		b.logger.Error().Err(err).Str("submission_id", id).Msg("submission fetch failed")
		b.reply(msg, "Could not load that post.")

		return
	}

	dest := b.routes.Destination(sub.Subreddit)

	if _, err := b.engine.Redeliver(ctx, sub, dest); err != nil {
		b.reply(msg, fmt.Sprintf("Delivery failed: %s", html.EscapeString(err.Error())))

		return
	}

	b.reply(msg, fmt.Sprintf("Re-sent r/%s post <code>%s</code>.", html.EscapeString(sub.Subreddit), html.EscapeString(id)))
}

// handleLinkMessage delivers a post whose link was pasted into the chat,
// going through the regular dedup gate.
func (b *Bot) handleLinkMessage(ctx context.Context, msg *tgbotapi.Message) {
	id := extractSubmissionID(messageText(msg))
	if id == "" {
		return
	}

	b.logger.Info().Str("submission_id", id).Int64("user_id", msg.From.ID).Msg("manual delivery request")

	sub, err := b.reddit.Submission(ctx, id)
	if err != nil {
		b.logger.Error().Err(err).Str("submission_id", id).Msg("submission fetch failed")
		b.reply(msg, "Could not load that post.")

		return
	}

	dest := b.routes.Destination(sub.Subreddit)

	delivered, err := b.engine.Deliver(ctx, sub, dest)
	if err != nil {
		b.reply(msg, fmt.Sprintf("Delivery failed: %s", html.EscapeString(err.Error())))

		return
	}

	if !delivered {
		b.reply(msg, "That post was already sent.")

		return
	}

	b.reply(msg, fmt.Sprintf("Sent r/%s post <code>%s</code>.", html.EscapeString(sub.Subreddit), html.EscapeString(id)))
}

// submissionIDFromMessage looks for a post link in the command arguments
// first, then in the replied-to message.
func submissionIDFromMessage(msg *tgbotapi.Message) string {
	if id := extractSubmissionID(msg.CommandArguments()); id != "" {
		return id
	}

	if msg.ReplyToMessage != nil {
		return extractSubmissionID(messageText(msg.ReplyToMessage))
	}

	return ""
}

// messageText returns the text of a message, falling back to the caption for
// media messages.
func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}

	return msg.Caption
}
