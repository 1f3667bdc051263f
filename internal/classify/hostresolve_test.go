package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

func newTestResolver(t *testing.T) *PageResolver {
	t.Helper()

	logger := zerolog.Nop()

	return NewPageResolver(&logger)
}

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestResolve_VideoSourceTag(t *testing.T) {
	srv := servePage(t, `<html><body><video><source src="https://cdn.example.com/clip.mp4" type="video/mp4"></video></body></html>`)

	got, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/clip.mp4", got)
}

func TestResolve_VideoSrcAttribute(t *testing.T) {
	srv := servePage(t, `<html><body><video src="https://cdn.example.com/direct.mp4"></video></body></html>`)

	got, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/direct.mp4", got)
}

func TestResolve_ScriptJSONFallback(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@type":"VideoObject","contentUrl":"https://cdn.example.com/from-json.mp4"}</script>
</head><body>no video tag here</body></html>`
	srv := servePage(t, page)

	got, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/from-json.mp4", got)
}

func TestResolve_TagPreferredOverScript(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"contentUrl":"https://cdn.example.com/from-json.mp4"}</script>
</head><body><video><source src="https://cdn.example.com/from-tag.mp4"></video></body></html>`
	srv := servePage(t, page)

	got, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/from-tag.mp4", got)
}

func TestResolve_NothingFound(t *testing.T) {
	srv := servePage(t, `<html><body><p>just text</p></body></html>`)

	_, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.ErrorIs(t, err, coreerrors.ErrNoMediaResolved)
}

func TestResolve_GifvRewrittenWithoutFetch(t *testing.T) {
	got, err := newTestResolver(t).Resolve(context.Background(), "https://i.imgur.com/abc.gifv")
	require.NoError(t, err)
	require.Equal(t, "https://i.imgur.com/abc.mp4", got)
}

func TestResolve_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestResolver(t).Resolve(context.Background(), srv.URL)
	require.ErrorIs(t, err, coreerrors.ErrUnexpectedStatus)
}
