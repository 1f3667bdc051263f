// Package domain defines the core data model shared across the bridge:
// submissions as surfaced by Reddit, the typed media items the classifier
// derives from them, and the Telegram destinations they are routed to.
package domain

import "time"

// MaxMediaGroupSize is the largest number of items Telegram accepts in one
// grouped-media send. Galleries larger than this are truncated at delivery.
const MaxMediaGroupSize = 10

// DeletedAuthor is the placeholder rendered when a submission's author
// account has been deleted.
const DeletedAuthor = "[deleted]"

// Submission is one Reddit post as surfaced by the listing API.
// All media-related fields are optional; the classifier treats every one of
// them as possibly absent.
type Submission struct {
	// ID is the bare submission identifier (e.g. "1abc2d"). Globally unique
	// and stable; used as the dedup key.
	ID string

	// Fullname is the prefixed identifier (e.g. "t3_1abc2d") used as the
	// listing cursor.
	Fullname string

	Title     string
	Author    string // empty when the account is deleted
	Subreddit string
	Permalink string // path component, e.g. /r/pics/comments/1abc2d/title/
	URL       string

	IsVideo       bool
	Video         *VideoDescriptor
	GalleryItems  []GalleryItem
	MediaMetadata map[string]MediaMetadata

	CreatedAt time.Time
}

// PermalinkURL returns the absolute permalink.
func (s *Submission) PermalinkURL() string {
	return "https://reddit.com" + s.Permalink
}

// AuthorName returns the author or the deleted-account placeholder.
func (s *Submission) AuthorName() string {
	if s.Author == "" {
		return DeletedAuthor
	}

	return s.Author
}

// VideoDescriptor carries the playback info of a Reddit-hosted video.
type VideoDescriptor struct {
	FallbackURL string
	Duration    int
	HasAudio    bool
}

// GalleryItem is one entry of a gallery post, in display order.
type GalleryItem struct {
	MediaID string
}

// MediaMetadata describes one gallery item, keyed by its media ID.
type MediaMetadata struct {
	// Kind is Reddit's "e" tag: "Image", "AnimatedImage" or "RedditVideo".
	Kind string

	// Source is Reddit's "s" entry with the full-size variants.
	Source MediaSource
}

// MediaSource holds the URL variants of a gallery item. URLs may be
// HTML-entity escaped and carry query parameters; the classifier normalizes
// both.
type MediaSource struct {
	URL string // "u": full-size image
	GIF string // "gif"
	MP4 string // "mp4"
}

// Comment is one submission comment, used for the caption digest.
type Comment struct {
	ID        string
	Author    string
	Body      string
	Score     int
	CreatedAt time.Time
}
