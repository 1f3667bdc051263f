// Package app wires the bridge together: config, the Reddit client, the
// delivery pipeline, the chat bot and the stream, plus the health endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/caption"
	"github.com/Anarq42/Reddit2TgGroup/internal/classify"
	"github.com/Anarq42/Reddit2TgGroup/internal/config"
	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
	"github.com/Anarq42/Reddit2TgGroup/internal/dedup"
	"github.com/Anarq42/Reddit2TgGroup/internal/delivery"
	"github.com/Anarq42/Reddit2TgGroup/internal/fetch"
	"github.com/Anarq42/Reddit2TgGroup/internal/observability"
	"github.com/Anarq42/Reddit2TgGroup/internal/reddit"
	"github.com/Anarq42/Reddit2TgGroup/internal/telegrambot"
)

const dedupGaugeInterval = time.Minute

// App holds the wired bridge components.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger

	routes *config.Routes
	store  *dedup.Store
	client *reddit.Client
	engine *delivery.Engine
	bot    *telegrambot.Bot
	stream *reddit.Stream
}

// New builds the full component graph. The returned App owns the dedup store
// file handle; call Close when done.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	routes, err := config.LoadRouting(cfg.SubredditsFile, cfg.TargetChatID, cfg.ErrorTopicID, logger)
	if err != nil {
		return nil, fmt.Errorf("load routing: %w", err)
	}

	store, err := dedup.Open(cfg.DedupFile, logger)
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}

	client := reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		Username:     cfg.RedditUsername,
		Password:     cfg.RedditPassword,
		UserAgent:    cfg.RedditUserAgent,
	}, cfg.RedditRPS, logger)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	captionOpts := caption.Options{
		TopComments:  cfg.CommentDigestSize,
		RecentWindow: time.Duration(cfg.CommentRecentHours) * time.Hour,
	}

	engine := delivery.NewEngine(
		classify.New(logger),
		classify.NewPageResolver(logger),
		fetch.New(cfg.MediaFetchRPS, cfg.FetchTimeout, logger),
		delivery.NewTelegramSender(api, logger),
		store,
		client,
		captionOpts,
		logger,
	)

	a := &App{
		cfg:    cfg,
		logger: logger,
		routes: routes,
		store:  store,
		client: client,
		engine: engine,
		bot:    telegrambot.New(cfg, routes, client, engine, api, logger),
	}

	a.stream = reddit.NewStream(client, routes, a.deliverSubmission, cfg.ListingLimit, logger)

	return a, nil
}

// Run starts the stream and the bot and blocks until ctx is canceled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().
		Int("subreddits", a.routes.Len()).
		Int("dedup_entries", a.store.Size()).
		Msg("starting bridge")

	go a.trackDedupSize(ctx)

	errCh := make(chan error, 2)

	go func() {
		errCh <- a.stream.Run(ctx, a.cfg.PollInterval)
	}()

	go func() {
		errCh <- a.bot.Run(ctx)
	}()

	err := <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// StartHealthServer serves /healthz and /metrics until ctx is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.cfg.HealthPort, a.logger).Start(ctx)
}

func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("dedup store close failed")
	}
}

// deliverSubmission is the stream callback: route by subreddit and push
// through the gated delivery path.
func (a *App) deliverSubmission(ctx context.Context, sub *domain.Submission) {
	dest := a.routes.Destination(sub.Subreddit)

	if _, err := a.engine.Deliver(ctx, sub, dest); err != nil {
		a.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("delivery failed")
	}
}

func (a *App) trackDedupSize(ctx context.Context) {
	ticker := time.NewTicker(dedupGaugeInterval)
	defer ticker.Stop()

	for {
		observability.DedupEntries.Set(float64(a.store.Size()))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
