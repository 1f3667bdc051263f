package classify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"

	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

const (
	resolveTimeout  = 30 * time.Second
	maxPageSize     = 5 * 1024 * 1024
	resolverUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	gifvReplacement = ".mp4"
)

// PageResolver turns a video host's landing page into a direct media URL.
// It fetches the page once and tries two strategies in order: a
// <video>/<source> tag, then a JSON blob embedded in an inline script
// (redgifs and friends ship the content URL in ld+json or preloaded state).
type PageResolver struct {
	client *http.Client
	logger *zerolog.Logger
}

func NewPageResolver(logger *zerolog.Logger) *PageResolver {
	return &PageResolver{
		client: &http.Client{Timeout: resolveTimeout},
		logger: logger,
	}
}

// Resolve returns the direct media URL behind pageURL, or ErrNoMediaResolved
// when the page exposes none. Imgur's .gifv wrapper is rewritten without a
// fetch since the direct file lives at the same path.
func (r *PageResolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	if strings.HasSuffix(pageURL, ".gifv") {
		return strings.TrimSuffix(pageURL, ".gifv") + gifvReplacement, nil
	}

	body, err := r.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse host page: %w", err)
	}

	if src := findVideoSource(doc); src != "" {
		return src, nil
	}

	if src := findScriptContentURL(doc); src != "" {
		return src, nil
	}

	return "", fmt.Errorf("%w: %s", coreerrors.ErrNoMediaResolved, pageURL)
}

func (r *PageResolver) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", resolverUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch host page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", coreerrors.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read host page: %w", err)
	}

	return body, nil
}

// findVideoSource walks the document for a <video src> or a <source src>
// nested under a <video> element.
func findVideoSource(doc *html.Node) string {
	var found string

	var walk func(n *html.Node, inVideo bool)
	walk = func(n *html.Node, inVideo bool) {
		if found != "" {
			return
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "video":
				if src := attrVal(n, "src"); src != "" {
					found = src
					return
				}

				inVideo = true
			case "source":
				if inVideo {
					if src := attrVal(n, "src"); src != "" {
						found = src
						return
					}
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child, inVideo)
		}
	}

	walk(doc, false)

	return found
}

// findScriptContentURL scans inline scripts for a JSON blob carrying a
// content URL. ld+json publishes it as contentUrl; app state blobs nest it.
func findScriptContentURL(doc *html.Node) string {
	var found string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}

		if n.Type == html.ElementNode && n.Data == "script" && n.FirstChild != nil {
			if src := contentURLFromJSON(n.FirstChild.Data); src != "" {
				found = src
				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(doc)

	return found
}

func contentURLFromJSON(text string) string {
	if !strings.Contains(text, "contentUrl") || !gjson.Valid(strings.TrimSpace(text)) {
		return ""
	}

	text = strings.TrimSpace(text)

	for _, path := range []string{"contentUrl", "video.contentUrl", "gif.urls.hd", "gif.urls.sd"} {
		if v := gjson.Get(text, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}

	// Arrays of ld+json entities.
	if v := gjson.Get(text, "#.contentUrl|0"); v.Exists() && v.String() != "" {
		return v.String()
	}

	return ""
}

func attrVal(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}

	return ""
}
