package domain

// MediaKind is the delivery type of one media item. It selects the Telegram
// endpoint used to send it.
type MediaKind int

const (
	KindPhoto MediaKind = iota
	KindVideo
	KindAnimation
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAnimation:
		return "animation"
	default:
		return "photo"
	}
}

// FileExt returns the filename extension Telegram expects for this kind.
func (k MediaKind) FileExt() string {
	switch k {
	case KindVideo:
		return ".mp4"
	case KindAnimation:
		return ".gif"
	default:
		return ".jpg"
	}
}

// MediaItem is one classified media reference, in display order.
type MediaItem struct {
	SourceURL string
	Kind      MediaKind
}

// FetchedMedia is the downloaded payload of one MediaItem. It exists only
// for the duration of a single delivery attempt and is never persisted.
type FetchedMedia struct {
	Bytes    []byte
	Filename string
	Kind     MediaKind
}

// Destination is the resolved Telegram target of one submission.
type Destination struct {
	// ChatID is the supergroup the bridge posts into.
	ChatID int64

	// TopicID is the forum topic within the group, 0 for the group default.
	TopicID int

	// ErrorTopicID receives failure reports.
	ErrorTopicID int
}
