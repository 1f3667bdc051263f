package classify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

func newTestClassifier() *Classifier {
	logger := zerolog.Nop()

	return New(&logger)
}

func TestClassify_NativeVideo(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID:      "abc",
		IsVideo: true,
		Video:   &domain.VideoDescriptor{FallbackURL: "https://v.redd.it/abc?source=1"},
		URL:     "https://v.redd.it/abc",
	}

	items := c.Classify(sub)
	require.Len(t, items, 1)
	require.Equal(t, "https://v.redd.it/abc", items[0].SourceURL, "query params stripped")
	require.Equal(t, domain.KindVideo, items[0].Kind)
}

func TestClassify_NativeVideoWithoutDescriptorFallsThrough(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID:      "abc",
		IsVideo: true,
		URL:     "https://i.redd.it/xyz.png",
	}

	items := c.Classify(sub)
	require.Len(t, items, 1)
	require.Equal(t, domain.KindPhoto, items[0].Kind)
}

func TestClassify_DirectImage(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		url  string
		kind domain.MediaKind
	}{
		{name: "png", url: "https://i.redd.it/xyz.png", kind: domain.KindPhoto},
		{name: "jpg", url: "https://i.redd.it/xyz.jpg", kind: domain.KindPhoto},
		{name: "gif", url: "https://i.redd.it/xyz.gif", kind: domain.KindAnimation},
		{name: "extensionless i.redd.it", url: "https://i.redd.it/xyz", kind: domain.KindPhoto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := c.Classify(&domain.Submission{ID: "x", URL: tt.url})
			require.Len(t, items, 1)
			require.Equal(t, tt.kind, items[0].Kind)
			require.Equal(t, tt.url, items[0].SourceURL)
		})
	}
}

func TestClassify_ExternalVideoHosts(t *testing.T) {
	c := newTestClassifier()

	for _, url := range []string{
		"https://www.redgifs.com/watch/somegif",
		"https://gfycat.com/somegif",
		"https://i.imgur.com/abc.gifv",
		"https://example.com/clip.mp4",
	} {
		items := c.Classify(&domain.Submission{ID: "x", URL: url})
		require.Len(t, items, 1, url)
		require.Equal(t, domain.KindVideo, items[0].Kind, url)
	}
}

func TestClassify_Gallery(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID: "gal",
		GalleryItems: []domain.GalleryItem{
			{MediaID: "m1"}, {MediaID: "m2"}, {MediaID: "m3"},
		},
		MediaMetadata: map[string]domain.MediaMetadata{
			"m1": {Kind: "Image", Source: domain.MediaSource{URL: "https://preview.redd.it/m1.jpg?width=640&amp;s=sig"}},
			"m2": {Kind: "AnimatedImage", Source: domain.MediaSource{GIF: "https://preview.redd.it/m2.gif"}},
			"m3": {Kind: "RedditVideo", Source: domain.MediaSource{MP4: "https://preview.redd.it/m3.mp4"}},
		},
	}

	items := c.Classify(sub)
	require.Len(t, items, 3)

	require.Equal(t, "https://preview.redd.it/m1.jpg", items[0].SourceURL, "entity escape and query stripped")
	require.Equal(t, domain.KindPhoto, items[0].Kind)
	require.Equal(t, domain.KindAnimation, items[1].Kind)
	require.Equal(t, domain.KindVideo, items[2].Kind)
}

func TestClassify_GalleryMissingMetadataSkipsItem(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID: "gal",
		GalleryItems: []domain.GalleryItem{
			{MediaID: "m1"}, {MediaID: "missing"}, {MediaID: "m3"},
		},
		MediaMetadata: map[string]domain.MediaMetadata{
			"m1": {Kind: "Image", Source: domain.MediaSource{URL: "https://preview.redd.it/m1.jpg"}},
			"m3": {Kind: "Image", Source: domain.MediaSource{URL: "https://preview.redd.it/m3.jpg"}},
		},
	}

	items := c.Classify(sub)
	require.Len(t, items, 2, "sibling items survive a missing metadata entry")
	require.Equal(t, "https://preview.redd.it/m1.jpg", items[0].SourceURL)
	require.Equal(t, "https://preview.redd.it/m3.jpg", items[1].SourceURL, "order preserved")
}

func TestClassify_GalleryItemWithoutURLSkipped(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID:            "gal",
		GalleryItems:  []domain.GalleryItem{{MediaID: "m1"}},
		MediaMetadata: map[string]domain.MediaMetadata{"m1": {Kind: "Image"}},
	}

	require.Empty(t, c.Classify(sub))
}

func TestClassify_NoMatchYieldsNothing(t *testing.T) {
	c := newTestClassifier()

	require.Empty(t, c.Classify(&domain.Submission{ID: "x", URL: "https://example.com/article"}))
	require.Empty(t, c.Classify(&domain.Submission{ID: "x"}))
	require.Empty(t, c.Classify(nil))
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier()

	sub := &domain.Submission{
		ID:           "gal",
		GalleryItems: []domain.GalleryItem{{MediaID: "m1"}, {MediaID: "m2"}},
		MediaMetadata: map[string]domain.MediaMetadata{
			"m1": {Kind: "Image", Source: domain.MediaSource{URL: "https://preview.redd.it/m1.jpg"}},
			"m2": {Kind: "Image", Source: domain.MediaSource{URL: "https://preview.redd.it/m2.jpg"}},
		},
	}

	first := c.Classify(sub)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, c.Classify(sub))
	}
}

func TestNeedsResolution(t *testing.T) {
	tests := []struct {
		name string
		item domain.MediaItem
		want bool
	}{
		{
			name: "redgifs landing page",
			item: domain.MediaItem{SourceURL: "https://www.redgifs.com/watch/x", Kind: domain.KindVideo},
			want: true,
		},
		{
			name: "imgur gifv",
			item: domain.MediaItem{SourceURL: "https://i.imgur.com/a.gifv", Kind: domain.KindVideo},
			want: true,
		},
		{
			name: "direct mp4",
			item: domain.MediaItem{SourceURL: "https://v.redd.it/a.mp4", Kind: domain.KindVideo},
			want: false,
		},
		{
			name: "photo never resolves",
			item: domain.MediaItem{SourceURL: "https://i.redd.it/a.jpg", Kind: domain.KindPhoto},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NeedsResolution(tt.item))
		})
	}
}
