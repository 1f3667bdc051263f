package telegrambot

import "regexp"

// Post links come in two shapes: the full permalink
// (reddit.com/r/<sub>/comments/<id>/...) and the short redd.it/<id> form.
var (
	permalinkPattern = regexp.MustCompile(`(?i)reddit\.com/r/[A-Za-z0-9_]+/comments/([a-z0-9]+)`)
	shortlinkPattern = regexp.MustCompile(`(?i)\bredd\.it/([a-z0-9]+)`)
)

// extractSubmissionID pulls a bare post ID out of free-form text, or returns
// an empty string when no Reddit post link is present.
func extractSubmissionID(text string) string {
	if m := permalinkPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	if m := shortlinkPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return ""
}
