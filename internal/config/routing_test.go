package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testChatID = int64(-1001234567890)

func writeRoutingFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "subreddits.db")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func newTestRoutes(t *testing.T, content string) *Routes {
	t.Helper()

	logger := zerolog.Nop()

	routes, err := LoadRouting(writeRoutingFile(t, content), testChatID, 99, &logger)
	require.NoError(t, err)

	return routes
}

func TestLoadRouting(t *testing.T) {
	routes := newTestRoutes(t, "pics,10\nAww,20\n\n# comment\nvideos,30\n")

	require.Equal(t, 3, routes.Len())
	require.Equal(t, 10, routes.Destination("pics").TopicID)
	require.Equal(t, 20, routes.Destination("aww").TopicID, "names must be case-insensitive")
	require.Equal(t, 20, routes.Destination("AWW").TopicID)
	require.Equal(t, testChatID, routes.Destination("pics").ChatID)
}

func TestLoadRouting_SkipsMalformedLines(t *testing.T) {
	routes := newTestRoutes(t, "pics,10\nnotopic\nbad,notanumber\n,5\nvideos,30\n")

	require.Equal(t, 2, routes.Len())
	require.Equal(t, 10, routes.Destination("pics").TopicID)
	require.Equal(t, 30, routes.Destination("videos").TopicID)
}

func TestLoadRouting_MissingFile(t *testing.T) {
	logger := zerolog.Nop()

	_, err := LoadRouting(filepath.Join(t.TempDir(), "nope.db"), testChatID, 0, &logger)
	require.Error(t, err)
}

func TestRoutes_UnknownSubredditFallsBackToErrorTopic(t *testing.T) {
	routes := newTestRoutes(t, "pics,10\n")

	dest := routes.Destination("unknown")
	require.Equal(t, 99, dest.TopicID)
	require.Equal(t, 99, dest.ErrorTopicID)
}

func TestRoutes_AddPersists(t *testing.T) {
	logger := zerolog.Nop()
	path := writeRoutingFile(t, "pics,10\n")

	routes, err := LoadRouting(path, testChatID, 0, &logger)
	require.NoError(t, err)

	require.NoError(t, routes.Add("Gifs", 42))
	require.Equal(t, 42, routes.Destination("gifs").TopicID)

	reloaded, err := LoadRouting(path, testChatID, 0, &logger)
	require.NoError(t, err)
	require.Equal(t, 42, reloaded.Destination("gifs").TopicID)
}
