// Package delivery orchestrates one submission's trip from classification to
// a Telegram send: fetch all media, compose the caption, pick the endpoint,
// fall back when the topic is closed, retry transient failures, and report
// what could not be delivered. Each submission is delivered at most once;
// the dedup store's claim gate closes the check-then-act race between
// concurrent attempts.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Anarq42/Reddit2TgGroup/internal/caption"
	"github.com/Anarq42/Reddit2TgGroup/internal/classify"
	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
	"github.com/Anarq42/Reddit2TgGroup/internal/observability"
)

const (
	// sendRetries is how many times a transient send failure is re-attempted
	// after the first try.
	sendRetries = 2

	retryInitialInterval = time.Second
	retryMultiplier      = 2

	fetchParallelism = 4

	// maxReportedErrorLen truncates error text in failure reports.
	maxReportedErrorLen = 500
)

// Fetcher downloads one media URL. A single deterministic attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url, referer string) ([]byte, error)
}

// HostResolver resolves a video host landing page to a direct media URL.
type HostResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, error)
}

// Store is the dedup gate.
type Store interface {
	CheckAndMark(id string) (bool, error)
	MarkSeen(id string)
}

// CommentLoader supplies a submission's comments for the caption digest.
// Optional; errors degrade the digest, never the delivery.
type CommentLoader interface {
	Comments(ctx context.Context, submissionID string) ([]domain.Comment, error)
}

// Engine delivers submissions. Safe for concurrent use.
type Engine struct {
	classifier   *classify.Classifier
	resolver     HostResolver
	fetcher      Fetcher
	sender       Sender
	store        Store
	comments     CommentLoader
	captionOpts  caption.Options
	retryInitial time.Duration
	logger       *zerolog.Logger
}

func NewEngine(
	classifier *classify.Classifier,
	resolver HostResolver,
	fetcher Fetcher,
	sender Sender,
	store Store,
	comments CommentLoader,
	captionOpts caption.Options,
	logger *zerolog.Logger,
) *Engine {
	return &Engine{
		classifier:   classifier,
		resolver:     resolver,
		fetcher:      fetcher,
		sender:       sender,
		store:        store,
		comments:     comments,
		captionOpts:  captionOpts,
		retryInitial: retryInitialInterval,
		logger:       logger,
	}
}

// Deliver runs the full pipeline for one submission. It returns (false, nil)
// without any network calls when the submission was already delivered. The
// dedup claim is taken before any work starts, so an at-least-once ingestion
// source cannot cause a double post.
func (e *Engine) Deliver(ctx context.Context, sub *domain.Submission, dest domain.Destination) (bool, error) {
	claimed, err := e.store.CheckAndMark(sub.ID)
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}

	if !claimed {
		observability.DeliveriesTotal.WithLabelValues(observability.StatusDuplicate).Inc()
		e.logger.Debug().Str("submission_id", sub.ID).Msg("submission already delivered, skipping")

		return false, nil
	}

	return e.run(ctx, sub, dest)
}

// Redeliver runs the pipeline bypassing the dedup gate. Used by explicit
// replay commands. The submission is marked delivered on success so the feed
// path will not post it again.
func (e *Engine) Redeliver(ctx context.Context, sub *domain.Submission, dest domain.Destination) (bool, error) {
	delivered, err := e.run(ctx, sub, dest)
	if delivered {
		e.store.MarkSeen(sub.ID)
	}

	return delivered, err
}

func (e *Engine) run(ctx context.Context, sub *domain.Submission, dest domain.Destination) (bool, error) {
	logger := e.logger.With().
		Str("submission_id", sub.ID).
		Str("subreddit", sub.Subreddit).
		Str("delivery_id", uuid.NewString()).
		Logger()

	items := e.prepareItems(ctx, sub, &logger)
	capt := caption.Compose(sub, e.loadComments(ctx, sub, &logger), e.captionOpts)

	var err error

	switch len(items) {
	case 0:
		logger.Info().Msg("no media classified, delivering text-only")

		err = e.send(ctx, dest, &logger, func(d domain.Destination) error {
			return e.sender.SendText(ctx, d, capt)
		})
	default:
		err = e.deliverMedia(ctx, sub, dest, items, capt, &logger)
	}

	if err != nil {
		observability.DeliveriesTotal.WithLabelValues(observability.StatusFailed).Inc()
		e.reportFailure(ctx, sub, dest, err, &logger)

		return false, err
	}

	observability.DeliveriesTotal.WithLabelValues(observability.StatusDelivered).Inc()
	logger.Info().Int("items", len(items)).Msg("submission delivered")

	return true, nil
}

// prepareItems classifies the submission, resolves host landing pages to
// direct URLs and applies the group size cap. Items whose landing page
// yields no media are dropped, degrading toward text-only delivery.
func (e *Engine) prepareItems(ctx context.Context, sub *domain.Submission, logger *zerolog.Logger) []domain.MediaItem {
	items := e.classifier.Classify(sub)

	resolved := items[:0]

	for _, item := range items {
		if !classify.NeedsResolution(item) {
			resolved = append(resolved, item)
			continue
		}

		directURL, err := e.resolver.Resolve(ctx, item.SourceURL)
		if err != nil {
			logger.Warn().Err(err).Str("url", item.SourceURL).Msg("host page resolution failed, dropping item")
			continue
		}

		item.SourceURL = directURL
		resolved = append(resolved, item)
	}

	if len(resolved) > domain.MaxMediaGroupSize {
		logger.Warn().Int("items", len(resolved)).Msg("gallery exceeds group size cap, truncating")

		resolved = resolved[:domain.MaxMediaGroupSize]
	}

	return resolved
}

func (e *Engine) loadComments(ctx context.Context, sub *domain.Submission, logger *zerolog.Logger) []domain.Comment {
	if e.comments == nil {
		return nil
	}

	comments, err := e.comments.Comments(ctx, sub.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("comment digest unavailable")

		return nil
	}

	return comments
}

func (e *Engine) deliverMedia(ctx context.Context, sub *domain.Submission, dest domain.Destination, items []domain.MediaItem, capt string, logger *zerolog.Logger) error {
	fetched, err := e.fetchAll(ctx, sub, items)
	if err != nil {
		// Partial galleries are confusing output; one failed download fails
		// the whole submission.
		return fmt.Errorf("%w: %w", coreerrors.ErrFetchFailed, err)
	}

	if len(fetched) == 1 {
		return e.send(ctx, dest, logger, func(d domain.Destination) error {
			return e.sender.SendMedia(ctx, d, fetched[0], capt)
		})
	}

	return e.send(ctx, dest, logger, func(d domain.Destination) error {
		return e.sender.SendMediaGroup(ctx, d, fetched, capt)
	})
}

// fetchAll downloads every item with bounded parallelism, preserving
// classification order in the result.
func (e *Engine) fetchAll(ctx context.Context, sub *domain.Submission, items []domain.MediaItem) ([]domain.FetchedMedia, error) {
	fetched := make([]domain.FetchedMedia, len(items))
	referer := sub.PermalinkURL()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			start := time.Now()

			body, err := e.fetcher.Fetch(gctx, item.SourceURL, referer)
			if err != nil {
				return fmt.Errorf("download %s: %w", item.SourceURL, err)
			}

			observability.MediaFetchDuration.Observe(time.Since(start).Seconds())

			fetched[i] = domain.FetchedMedia{
				Bytes:    body,
				Filename: sub.ID + "_" + strconv.Itoa(i) + item.Kind.FileExt(),
				Kind:     item.Kind,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fetched, nil
}

// send runs one send with bounded retry, falling back to the group default
// destination exactly once if the target topic is closed.
func (e *Engine) send(ctx context.Context, dest domain.Destination, logger *zerolog.Logger, do func(domain.Destination) error) error {
	err := e.sendWithRetry(ctx, dest, do)
	if err == nil {
		return nil
	}

	if errors.Is(err, coreerrors.ErrTopicClosed) && dest.TopicID != 0 {
		observability.SendFallbacksTotal.Inc()
		logger.Warn().Int("topic_id", dest.TopicID).Msg("topic unavailable, falling back to group default")

		fallback := dest
		fallback.TopicID = 0

		return e.sendWithRetry(ctx, fallback, do)
	}

	return err
}

func (e *Engine) sendWithRetry(ctx context.Context, dest domain.Destination, do func(domain.Destination) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.retryInitial
	bo.Multiplier = retryMultiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempt := 0

	return backoff.Retry(func() error {
		if attempt > 0 {
			observability.SendRetriesTotal.Inc()
		}
		attempt++

		err := do(dest)
		if err == nil {
			return nil
		}

		if retryable(err) {
			return err
		}

		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, sendRetries), ctx))
}

// reportFailure posts a failure notice to the error-reporting topic. A
// failed report is logged and dropped; it must never take the pipeline down.
func (e *Engine) reportFailure(ctx context.Context, sub *domain.Submission, dest domain.Destination, cause error, logger *zerolog.Logger) {
	errText := cause.Error()
	if len(errText) > maxReportedErrorLen {
		errText = errText[:maxReportedErrorLen]
	}

	text := fmt.Sprintf(
		"<b>Delivery failed</b>: %s\n<code>%s</code>",
		html.EscapeString(sub.Title),
		html.EscapeString(errText),
	)

	errDest := domain.Destination{
		ChatID:       dest.ChatID,
		TopicID:      dest.ErrorTopicID,
		ErrorTopicID: dest.ErrorTopicID,
	}

	if err := e.sender.SendText(ctx, errDest, text); err != nil {
		logger.Error().Err(err).Msg("failed to deliver error report")
	}
}
