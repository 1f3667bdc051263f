// Package caption renders the Telegram-HTML caption attached to a delivered
// submission. Everything here is pure string building; all user-supplied text
// is escaped against HTML injection.
package caption

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// Options controls the comment digest appended to a caption.
type Options struct {
	// TopComments is how many top-scored comments to include.
	TopComments int

	// RecentWindow additionally includes comments posted within this window,
	// deduplicated against the top-scored set.
	RecentWindow time.Duration
}

// DefaultOptions mirror the digest size the bridge historically used.
func DefaultOptions() Options {
	return Options{
		TopComments:  5,
		RecentWindow: 12 * time.Hour,
	}
}

// Compose renders the caption for a submission. comments may be nil or empty;
// the digest section is simply omitted then. The result is valid Telegram
// HTML regardless of what the title, author or subreddit contain.
func Compose(sub *domain.Submission, comments []domain.Comment, opts Options) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>New Post from r/%s</b>\n", html.EscapeString(sub.Subreddit))
	fmt.Fprintf(&sb, "<b>Title</b>: %s\n", html.EscapeString(sub.Title))
	fmt.Fprintf(&sb, "<b>Author</b>: u/%s\n\n", html.EscapeString(sub.AuthorName()))
	fmt.Fprintf(&sb, "<b>Link</b>: <a href=\"%s\">Click to view post</a>\n\n", html.EscapeString(sub.PermalinkURL()))

	if digest := Digest(comments, opts, time.Now()); digest != "" {
		sb.WriteString("<b>Top Comments:</b>\n")
		sb.WriteString(digest)
	}

	return sb.String()
}

// Digest renders the comment digest: the top-N comments by score, plus any
// comment newer than the recency window, each appearing at most once, in
// "author: body" form. An empty slice yields an empty string.
func Digest(comments []domain.Comment, opts Options, now time.Time) string {
	if len(comments) == 0 || opts.TopComments <= 0 {
		return ""
	}

	byScore := make([]domain.Comment, len(comments))
	copy(byScore, comments)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })

	if len(byScore) > opts.TopComments {
		byScore = byScore[:opts.TopComments]
	}

	var sb strings.Builder

	rendered := make(map[string]struct{}, len(byScore))
	for _, c := range byScore {
		renderComment(&sb, c, rendered)
	}

	if opts.RecentWindow > 0 {
		cutoff := now.Add(-opts.RecentWindow)
		for _, c := range comments {
			if c.CreatedAt.After(cutoff) {
				renderComment(&sb, c, rendered)
			}
		}
	}

	return sb.String()
}

func renderComment(sb *strings.Builder, c domain.Comment, rendered map[string]struct{}) {
	if c.ID == "" {
		return
	}

	if _, ok := rendered[c.ID]; ok {
		return
	}

	rendered[c.ID] = struct{}{}

	author := c.Author
	if author == "" {
		author = domain.DeletedAuthor
	}

	fmt.Fprintf(sb, "<b>%s</b>: <code>%s</code>\n\n", html.EscapeString(author), html.EscapeString(c.Body))
}
