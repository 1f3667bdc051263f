package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/Anarq42/Reddit2TgGroup/internal/core/errors"
)

const testReferer = "https://reddit.com/r/pics/comments/1abc2d/title/"

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()

	logger := zerolog.Nop()

	return New(100, 5*time.Second, &logger)
}

func TestFetch_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("imagebytes"))
	}))
	t.Cleanup(srv.Close)

	body, err := newTestFetcher(t).Fetch(context.Background(), srv.URL+"/a.jpg", testReferer)
	require.NoError(t, err)
	require.Equal(t, []byte("imagebytes"), body)
	require.Contains(t, gotUA, "Mozilla/5.0")
	require.Equal(t, testReferer, gotReferer)
}

func TestFetch_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestFetcher(t).Fetch(context.Background(), srv.URL, testReferer)
	require.ErrorIs(t, err, coreerrors.ErrFetchFailed)
	require.ErrorIs(t, err, coreerrors.ErrUnexpectedStatus)
}

func TestFetch_NetworkErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	_, err := newTestFetcher(t).Fetch(context.Background(), srv.URL, testReferer)
	require.ErrorIs(t, err, coreerrors.ErrFetchFailed)
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	fetcher := New(100, 50*time.Millisecond, &logger)

	_, err := fetcher.Fetch(context.Background(), srv.URL, testReferer)
	require.ErrorIs(t, err, coreerrors.ErrFetchFailed)
}

func TestFetch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher(t).Fetch(ctx, "http://127.0.0.1:0/never", testReferer)
	require.Error(t, err)
}
