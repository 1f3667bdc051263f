package reddit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// deletedAuthorMarker is what the listing API reports for soft-deleted
// accounts. Mapped to an empty Author so the caption layer substitutes its
// own placeholder.
const deletedAuthorMarker = "[deleted]"

type listingEnvelope struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	IsVideo    bool    `json:"is_video"`
	CreatedUTC float64 `json:"created_utc"`

	Media *struct {
		RedditVideo *struct {
			FallbackURL string `json:"fallback_url"`
			Duration    int    `json:"duration"`
			HasAudio    bool   `json:"has_audio"`
		} `json:"reddit_video"`
	} `json:"media"`

	GalleryData *struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`

	MediaMetadata map[string]struct {
		E string `json:"e"`
		S struct {
			U   string `json:"u"`
			GIF string `json:"gif"`
			MP4 string `json:"mp4"`
		} `json:"s"`
	} `json:"media_metadata"`
}

func (p *postData) toDomain() *domain.Submission {
	sub := &domain.Submission{
		ID:        p.ID,
		Fullname:  p.Name,
		Title:     p.Title,
		Author:    p.Author,
		Subreddit: p.Subreddit,
		Permalink: p.Permalink,
		URL:       p.URL,
		IsVideo:   p.IsVideo,
		CreatedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}

	if sub.Author == deletedAuthorMarker {
		sub.Author = ""
	}

	if p.Media != nil && p.Media.RedditVideo != nil {
		sub.Video = &domain.VideoDescriptor{
			FallbackURL: p.Media.RedditVideo.FallbackURL,
			Duration:    p.Media.RedditVideo.Duration,
			HasAudio:    p.Media.RedditVideo.HasAudio,
		}
	}

	if p.GalleryData != nil {
		for _, item := range p.GalleryData.Items {
			sub.GalleryItems = append(sub.GalleryItems, domain.GalleryItem{MediaID: item.MediaID})
		}
	}

	if len(p.MediaMetadata) > 0 {
		sub.MediaMetadata = make(map[string]domain.MediaMetadata, len(p.MediaMetadata))

		for id, meta := range p.MediaMetadata {
			sub.MediaMetadata[id] = domain.MediaMetadata{
				Kind: meta.E,
				Source: domain.MediaSource{
					URL: meta.S.U,
					GIF: meta.S.GIF,
					MP4: meta.S.MP4,
				},
			}
		}
	}

	return sub
}

// decodeListing parses a listing response into submissions, preserving the
// listing order (newest first for /new). Non-post children are skipped.
func decodeListing(body []byte) ([]*domain.Submission, error) {
	var envelope listingEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	subs := make([]*domain.Submission, 0, len(envelope.Data.Children))

	for _, child := range envelope.Data.Children {
		if child.Kind != "t3" {
			continue
		}

		var post postData
		if err := json.Unmarshal(child.Data, &post); err != nil {
			// A single malformed post must not drop the whole listing.
			continue
		}

		subs = append(subs, post.toDomain())
	}

	return subs, nil
}
