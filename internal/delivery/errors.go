package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

// Telegram error descriptions that mean the target topic cannot receive
// messages. These trigger the one-shot fallback to the group default.
var topicErrorFragments = []string{
	"TOPIC_CLOSED",
	"TOPIC_DELETED",
	"message thread not found",
}

// classifySendError maps a raw Telegram API error onto the engine's error
// taxonomy: topic-closed (fallback), rate-limited/transient (retry with
// backoff) or permanent (report, no retry).
func classifySendError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", coreerrors.ErrTransient, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", coreerrors.ErrTransient, err)
	}

	// Unrecognized failures (connection resets, DNS, proxy errors) are
	// treated as transient: a retry is cheap and usually succeeds.
	return fmt.Errorf("%w: %w", coreerrors.ErrTransient, err)
}

func classifyAPIError(apiErr *tgbotapi.Error, err error) error {
	for _, fragment := range topicErrorFragments {
		if strings.Contains(apiErr.Message, fragment) {
			return fmt.Errorf("%w: %w", coreerrors.ErrTopicClosed, err)
		}
	}

	if apiErr.Code == 429 || apiErr.RetryAfter > 0 {
		return fmt.Errorf("%w: %w", coreerrors.ErrRateLimited, err)
	}

	if apiErr.Code >= 500 {
		return fmt.Errorf("%w: %w", coreerrors.ErrTransient, err)
	}

	return fmt.Errorf("%w: %w", coreerrors.ErrPermanent, err)
}

// retryable reports whether the engine should re-attempt the same send.
func retryable(err error) bool {
	return errors.Is(err, coreerrors.ErrTransient) || errors.Is(err, coreerrors.ErrRateLimited)
}
