// Package classify turns a Reddit submission into the ordered list of typed
// media items it should be delivered as.
//
// Classification itself is pure and total: malformed or missing metadata
// degrades per item, never per submission, and no input shape causes an
// error. Resolving an external video host's landing page to a direct media
// URL is the one step that needs the network; it lives in PageResolver and
// is invoked by the delivery engine, not by Classify.
package classify

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// Reddit "e" tags in gallery media metadata.
const (
	metaKindRedditVideo   = "RedditVideo"
	metaKindAnimatedImage = "AnimatedImage"
)

var knownVideoHosts = []string{
	"gfycat.com",
	"redgifs.com",
	"streamable.com",
}

var videoExts = []string{".mp4", ".webm", ".mov"}

var imageExts = []string{".jpg", ".jpeg", ".png", ".webp"}

var directImageHost = regexp.MustCompile(`^https?://(i\.redd\.it|preview\.redd\.it)/`)

// Classifier derives media items from submissions.
type Classifier struct {
	logger *zerolog.Logger
}

func New(logger *zerolog.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify returns the submission's media items in display order. The rules
// are tried in priority order and the first match wins:
//
//  1. native Reddit video
//  2. gallery
//  3. external video host or video container extension
//  4. direct image extension
//
// No match yields an empty list, which the engine delivers as text-only.
func (c *Classifier) Classify(sub *domain.Submission) []domain.MediaItem {
	if sub == nil {
		return nil
	}

	if item, ok := c.classifyNativeVideo(sub); ok {
		return []domain.MediaItem{item}
	}

	if items := c.classifyGallery(sub); len(items) > 0 {
		return items
	}

	if item, ok := classifyExternalVideo(sub.URL); ok {
		return []domain.MediaItem{item}
	}

	if item, ok := classifyDirectFile(sub.URL); ok {
		return []domain.MediaItem{item}
	}

	return nil
}

func (c *Classifier) classifyNativeVideo(sub *domain.Submission) (domain.MediaItem, bool) {
	if !sub.IsVideo || sub.Video == nil || sub.Video.FallbackURL == "" {
		return domain.MediaItem{}, false
	}

	return domain.MediaItem{
		SourceURL: normalizeMediaURL(sub.Video.FallbackURL),
		Kind:      domain.KindVideo,
	}, true
}

func (c *Classifier) classifyGallery(sub *domain.Submission) []domain.MediaItem {
	if len(sub.GalleryItems) == 0 || len(sub.MediaMetadata) == 0 {
		return nil
	}

	items := make([]domain.MediaItem, 0, len(sub.GalleryItems))

	for _, gi := range sub.GalleryItems {
		meta, ok := sub.MediaMetadata[gi.MediaID]
		if !ok {
			c.logger.Warn().Str("submission_id", sub.ID).Str("media_id", gi.MediaID).Msg("gallery item has no metadata entry, skipping")
			continue
		}

		item, ok := classifyGalleryItem(meta)
		if !ok {
			c.logger.Warn().Str("submission_id", sub.ID).Str("media_id", gi.MediaID).Msg("gallery item has no usable url, skipping")
			continue
		}

		items = append(items, item)
	}

	return items
}

func classifyGalleryItem(meta domain.MediaMetadata) (domain.MediaItem, bool) {
	var (
		kind domain.MediaKind
		url  string
	)

	switch meta.Kind {
	case metaKindRedditVideo:
		kind = domain.KindVideo
		url = firstNonEmpty(meta.Source.MP4, meta.Source.URL)
	case metaKindAnimatedImage:
		kind = domain.KindAnimation
		url = firstNonEmpty(meta.Source.GIF, meta.Source.MP4, meta.Source.URL)
	default:
		kind = domain.KindPhoto
		url = firstNonEmpty(meta.Source.URL, meta.Source.GIF, meta.Source.MP4)
	}

	if url == "" {
		return domain.MediaItem{}, false
	}

	return domain.MediaItem{SourceURL: normalizeMediaURL(url), Kind: kind}, true
}

func classifyExternalVideo(url string) (domain.MediaItem, bool) {
	if url == "" {
		return domain.MediaItem{}, false
	}

	if isKnownVideoHost(url) || hasAnySuffix(url, videoExts) || strings.HasSuffix(url, ".gifv") {
		return domain.MediaItem{SourceURL: url, Kind: domain.KindVideo}, true
	}

	return domain.MediaItem{}, false
}

func classifyDirectFile(url string) (domain.MediaItem, bool) {
	switch {
	case url == "":
		return domain.MediaItem{}, false
	case strings.HasSuffix(url, ".gif"):
		return domain.MediaItem{SourceURL: url, Kind: domain.KindAnimation}, true
	case hasAnySuffix(url, imageExts):
		return domain.MediaItem{SourceURL: url, Kind: domain.KindPhoto}, true
	case directImageHost.MatchString(url):
		// i.redd.it occasionally serves extensionless image URLs.
		return domain.MediaItem{SourceURL: url, Kind: domain.KindPhoto}, true
	default:
		return domain.MediaItem{}, false
	}
}

// NeedsResolution reports whether the item's URL is a host landing page that
// must be resolved to a direct media URL before fetching.
func NeedsResolution(item domain.MediaItem) bool {
	if item.Kind != domain.KindVideo {
		return false
	}

	if hasAnySuffix(item.SourceURL, videoExts) {
		return false
	}

	return isKnownVideoHost(item.SourceURL) || strings.HasSuffix(item.SourceURL, ".gifv")
}

func isKnownVideoHost(url string) bool {
	for _, host := range knownVideoHosts {
		if strings.Contains(url, host) {
			return true
		}
	}

	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}

	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

// normalizeMediaURL undoes the HTML-entity escaping Reddit applies to
// metadata URLs and strips query parameters, which v.redd.it and
// preview.redd.it tolerate and which keeps dedup-friendly stable URLs.
func normalizeMediaURL(url string) string {
	url = strings.ReplaceAll(url, "&amp;", "&")

	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}

	return url
}
