package reddit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
	"github.com/Anarq42/Reddit2TgGroup/internal/observability"
	"github.com/Anarq42/Reddit2TgGroup/internal/platform/worker"
)

// cursorResetThreshold is how many consecutive empty polls are tolerated
// before the before-cursor is dropped. If the anchor post gets deleted the
// listing API returns empty pages forever; resetting recovers at the cost of
// re-seeing recent posts, which the dedup gate absorbs.
const cursorResetThreshold = 20

// SubredditSource yields the current watchlist. Re-read every poll so /add
// takes effect without a restart.
type SubredditSource interface {
	Subreddits() []string
}

// DeliverFunc handles one new submission. Invoked as a fire-and-forget
// goroutine; it must do its own error handling.
type DeliverFunc func(ctx context.Context, sub *domain.Submission)

// Stream polls the listing API for new submissions and hands each unseen one
// to the deliver callback. The stream never stops on poll errors; only
// context cancellation ends it.
type Stream struct {
	client  *Client
	source  SubredditSource
	deliver DeliverFunc
	limit   int
	logger  *zerolog.Logger

	mu      sync.Mutex
	cursor  string
	empties int
	primed  bool
}

func NewStream(client *Client, source SubredditSource, deliver DeliverFunc, limit int, logger *zerolog.Logger) *Stream {
	return &Stream{
		client:  client,
		source:  source,
		deliver: deliver,
		limit:   limit,
		logger:  logger,
	}
}

// Run polls until ctx is canceled. Poll failures are logged and counted,
// never fatal: the bridge is a long-running service and the feed must outlive
// any Reddit outage.
func (s *Stream) Run(ctx context.Context, pollInterval time.Duration) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "reddit-stream",
		PollInterval: pollInterval,
		Process:      s.pollOnce,
		OnError: func(err error) bool {
			observability.StreamRestarts.Inc()
			s.logger.Error().Err(err).Msg("poll failed, will retry")

			return true
		},
		Logger: s.logger,
	})
}

func (s *Stream) pollOnce(ctx context.Context) error {
	defer worker.RecoverPanic(s.logger, "reddit poll")

	subreddits := s.source.Subreddits()
	if len(subreddits) == 0 {
		s.logger.Debug().Msg("no subreddits configured")

		return nil
	}

	s.mu.Lock()
	cursor := s.cursor
	primed := s.primed
	s.mu.Unlock()

	subs, err := s.client.NewSubmissions(ctx, subreddits, cursor, s.limit)
	if err != nil {
		return err
	}

	s.advanceCursor(subs)

	if !primed {
		// First poll only anchors the cursor; pre-existing posts are not
		// replayed into the group.
		s.logger.Info().Int("skipped", len(subs)).Msg("stream primed, skipping existing posts")

		return nil
	}

	// The listing is newest-first; deliver oldest-first so topics read in
	// posting order when several posts arrive in one poll.
	for i := len(subs) - 1; i >= 0; i-- {
		sub := subs[i]

		observability.SubmissionsSeen.WithLabelValues(sub.Subreddit).Inc()
		s.logger.Info().Str("submission_id", sub.ID).Str("subreddit", sub.Subreddit).Msg("new submission")

		go s.deliver(ctx, sub)
	}

	return nil
}

func (s *Stream) advanceCursor(subs []*domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.primed = true

	if len(subs) > 0 {
		s.cursor = subs[0].Fullname
		s.empties = 0

		return
	}

	s.empties++
	if s.cursor != "" && s.empties >= cursorResetThreshold {
		s.logger.Warn().Str("cursor", s.cursor).Msg("cursor stale, resetting")

		s.cursor = ""
		s.empties = 0
	}
}
