package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// Sender is the outbound messaging surface the engine drives. Implementations
// must return errors already mapped through the engine's taxonomy.
type Sender interface {
	SendMedia(ctx context.Context, dest domain.Destination, media domain.FetchedMedia, caption string) error
	SendMediaGroup(ctx context.Context, dest domain.Destination, media []domain.FetchedMedia, caption string) error
	SendText(ctx context.Context, dest domain.Destination, text string) error
}

// TelegramSender sends through the Bot API. Requests are assembled as raw
// parameter maps because forum topics (message_thread_id) postdate the
// high-level config types of the bot API library.
type TelegramSender struct {
	api    *tgbotapi.BotAPI
	logger *zerolog.Logger
}

func NewTelegramSender(api *tgbotapi.BotAPI, logger *zerolog.Logger) *TelegramSender {
	return &TelegramSender{api: api, logger: logger}
}

func endpointForKind(kind domain.MediaKind) (endpoint, field string) {
	switch kind {
	case domain.KindVideo:
		return "sendVideo", "video"
	case domain.KindAnimation:
		return "sendAnimation", "animation"
	default:
		return "sendPhoto", "photo"
	}
}

// SendMedia delivers a single photo, video or animation with its caption.
func (s *TelegramSender) SendMedia(_ context.Context, dest domain.Destination, media domain.FetchedMedia, caption string) error {
	endpoint, field := endpointForKind(media.Kind)

	params := destParams(dest)
	params.AddNonEmpty("caption", caption)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)

	files := []tgbotapi.RequestFile{{
		Name: field,
		Data: tgbotapi.FileBytes{Name: media.Filename, Bytes: media.Bytes},
	}}

	if _, err := s.api.UploadFiles(endpoint, params, files); err != nil {
		return classifySendError(fmt.Errorf("%s: %w", endpoint, err))
	}

	return nil
}

// inputMediaSpec is one entry of the sendMediaGroup media array.
type inputMediaSpec struct {
	Type      string `json:"type"`
	Media     string `json:"media"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// SendMediaGroup delivers up to MaxMediaGroupSize items as one grouped send.
// The caption is attached to the first item only, which Telegram renders as
// the album caption.
func (s *TelegramSender) SendMediaGroup(_ context.Context, dest domain.Destination, media []domain.FetchedMedia, caption string) error {
	specs := make([]inputMediaSpec, 0, len(media))
	files := make([]tgbotapi.RequestFile, 0, len(media))

	for i, m := range media {
		attachName := fmt.Sprintf("file%d", i)

		spec := inputMediaSpec{
			Type:  groupMediaType(m.Kind),
			Media: "attach://" + attachName,
		}
		if i == 0 {
			spec.Caption = caption
			spec.ParseMode = tgbotapi.ModeHTML
		}

		specs = append(specs, spec)
		files = append(files, tgbotapi.RequestFile{
			Name: attachName,
			Data: tgbotapi.FileBytes{Name: m.Filename, Bytes: m.Bytes},
		})
	}

	mediaJSON, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("marshal media group: %w", err)
	}

	params := destParams(dest)
	params["media"] = string(mediaJSON)

	if _, err := s.api.UploadFiles("sendMediaGroup", params, files); err != nil {
		return classifySendError(fmt.Errorf("sendMediaGroup: %w", err))
	}

	return nil
}

// groupMediaType maps a media kind to its sendMediaGroup type tag. Telegram
// media groups cannot contain animations, so those degrade to video entries.
func groupMediaType(kind domain.MediaKind) string {
	switch kind {
	case domain.KindVideo, domain.KindAnimation:
		return "video"
	default:
		return "photo"
	}
}

// SendText delivers a plain HTML-formatted message.
func (s *TelegramSender) SendText(_ context.Context, dest domain.Destination, text string) error {
	params := destParams(dest)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	params.AddBool("disable_web_page_preview", true)

	if _, err := s.api.MakeRequest("sendMessage", params); err != nil {
		return classifySendError(fmt.Errorf("sendMessage: %w", err))
	}

	return nil
}

func destParams(dest domain.Destination) tgbotapi.Params {
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", dest.ChatID)
	params.AddNonZero("message_thread_id", dest.TopicID)

	return params
}
