package caption

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

func testSubmission() *domain.Submission {
	return &domain.Submission{
		ID:        "1abc2d",
		Title:     "A <b>bold</b> title & more",
		Author:    "someuser",
		Subreddit: "pics",
		Permalink: "/r/pics/comments/1abc2d/a_title/",
	}
}

func TestCompose_EscapesUserText(t *testing.T) {
	got := Compose(testSubmission(), nil, DefaultOptions())

	require.Contains(t, got, "A &lt;b&gt;bold&lt;/b&gt; title &amp; more")
	require.Contains(t, got, "u/someuser")
	require.Contains(t, got, "r/pics")
	require.Contains(t, got, "https://reddit.com/r/pics/comments/1abc2d/a_title/")
	require.NotContains(t, got, "<b>bold</b>", "raw user markup must not survive")
	require.NotContains(t, got, "Top Comments", "no digest section without comments")
}

func TestCompose_DeletedAuthorPlaceholder(t *testing.T) {
	sub := testSubmission()
	sub.Author = ""

	got := Compose(sub, nil, DefaultOptions())

	require.Contains(t, got, "u/[deleted]")
	require.NotEmpty(t, got)
}

func TestCompose_Deterministic(t *testing.T) {
	sub := testSubmission()
	comments := []domain.Comment{
		{ID: "c1", Author: "alice", Body: "first", Score: 10},
		{ID: "c2", Author: "bob", Body: "second", Score: 5},
	}

	first := Compose(sub, comments, Options{TopComments: 5})
	second := Compose(sub, comments, Options{TopComments: 5})
	require.Equal(t, first, second)
}

func TestDigest_TopCommentsByScore(t *testing.T) {
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	comments := []domain.Comment{
		{ID: "c1", Author: "low", Body: "meh", Score: 1, CreatedAt: old},
		{ID: "c2", Author: "high", Body: "great", Score: 100, CreatedAt: old},
		{ID: "c3", Author: "mid", Body: "ok", Score: 50, CreatedAt: old},
	}

	got := Digest(comments, Options{TopComments: 2}, now)

	require.Contains(t, got, "<b>high</b>: <code>great</code>")
	require.Contains(t, got, "<b>mid</b>: <code>ok</code>")
	require.NotContains(t, got, "low")
	require.Less(t, strings.Index(got, "high"), strings.Index(got, "mid"), "score order preserved")
}

func TestDigest_RecentCommentsDeduplicated(t *testing.T) {
	now := time.Now()
	comments := []domain.Comment{
		{ID: "c1", Author: "top", Body: "top comment", Score: 100, CreatedAt: now.Add(-time.Hour)},
		{ID: "c2", Author: "fresh", Body: "just posted", Score: 0, CreatedAt: now.Add(-time.Minute)},
		{ID: "c3", Author: "stale", Body: "last week", Score: 0, CreatedAt: now.Add(-200 * time.Hour)},
	}

	got := Digest(comments, Options{TopComments: 1, RecentWindow: 12 * time.Hour}, now)

	require.Equal(t, 1, strings.Count(got, "top comment"), "comment in both sets renders once")
	require.Contains(t, got, "just posted")
	require.NotContains(t, got, "last week")
}

func TestDigest_Empty(t *testing.T) {
	require.Empty(t, Digest(nil, DefaultOptions(), time.Now()))
	require.Empty(t, Digest([]domain.Comment{{ID: "c1", Body: "x"}}, Options{TopComments: 0}, time.Now()))
}
