// Package telegrambot is the chat-facing control surface: commands for
// managing the subreddit watchlist and for pushing individual posts through
// the delivery engine by hand.
package telegrambot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/caption"
	"github.com/Anarq42/Reddit2TgGroup/internal/config"
	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// Deliverer pushes one submission into the group. Deliver is gated by the
// dedup store; Redeliver bypasses it for explicit replays.
type Deliverer interface {
	Deliver(ctx context.Context, sub *domain.Submission, dest domain.Destination) (bool, error)
	Redeliver(ctx context.Context, sub *domain.Submission, dest domain.Destination) (bool, error)
}

// RedditAPI is the slice of the Reddit client the command handlers need.
type RedditAPI interface {
	Submission(ctx context.Context, id string) (*domain.Submission, error)
	Comments(ctx context.Context, id string) ([]domain.Comment, error)
	SubredditExists(ctx context.Context, name string) error
}

type Bot struct {
	cfg         *config.Config
	routes      *config.Routes
	reddit      RedditAPI
	engine      Deliverer
	captionOpts caption.Options
	api         *tgbotapi.BotAPI
	logger      *zerolog.Logger
	startedAt   time.Time
}

func New(cfg *config.Config, routes *config.Routes, redditClient RedditAPI, engine Deliverer, api *tgbotapi.BotAPI, logger *zerolog.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		routes: routes,
		reddit: redditClient,
		engine: engine,
		captionOpts: caption.Options{
			TopComments:  cfg.CommentDigestSize,
			RecentWindow: time.Duration(cfg.CommentRecentHours) * time.Hour,
		},
		api:       api,
		logger:    logger,
		startedAt: time.Now(),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil || update.Message.From == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.handleLinkMessage(ctx, msg)

		return
	}

	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("handling command")

	switch msg.Command() {
	case "start", "help":
		b.handleHelp(msg)
	case "admin":
		b.handleAdmin(msg)
	case "add":
		b.handleAdd(ctx, msg)
	case "comments":
		b.handleComments(ctx, msg)
	case "reload":
		b.handleReload(ctx, msg)
	default:
		b.reply(msg, "Unknown command. Try /help.")
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID
	reply.DisableWebPagePreview = true

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Msg("failed to send reply")
	}
}
