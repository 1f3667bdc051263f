package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Anarq42/Reddit2TgGroup/internal/core/domain"
)

// Routes maps subreddit names to forum topics within the target supergroup.
// The backing file is line-oriented: one "subreddit,topic_id" pair per line,
// blank lines and #-prefixed lines ignored, names case-insensitive.
type Routes struct {
	mu           sync.RWMutex
	topics       map[string]int
	path         string
	chatID       int64
	errorTopicID int
	logger       *zerolog.Logger
}

// LoadRouting reads the routing table from path. Malformed lines are skipped
// with a warning, never fatal. A missing file is an error: running with no
// routes at all is almost always a deployment mistake.
func LoadRouting(path string, chatID int64, errorTopicID int, logger *zerolog.Logger) (*Routes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routing file: %w", err)
	}
	defer f.Close()

	r := &Routes{
		topics:       make(map[string]int),
		path:         path,
		chatID:       chatID,
		errorTopicID: errorTopicID,
		logger:       logger,
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, topicID, ok := parseRoutingLine(line)
		if !ok {
			logger.Warn().Str("file", path).Int("line", lineNo).Str("content", line).Msg("skipping malformed routing line")
			continue
		}

		r.topics[name] = topicID
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read routing file: %w", err)
	}

	return r, nil
}

func parseRoutingLine(line string) (string, int, bool) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return "", 0, false
	}

	name := strings.ToLower(strings.TrimSpace(parts[0]))
	if name == "" {
		return "", 0, false
	}

	topicID, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, false
	}

	return name, topicID, true
}

// Destination resolves the delivery target for a subreddit. Unknown
// subreddits route to the error-reporting topic so the post is still visible
// to operators instead of silently dropped.
func (r *Routes) Destination(subreddit string) domain.Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dest := domain.Destination{
		ChatID:       r.chatID,
		ErrorTopicID: r.errorTopicID,
	}

	if topicID, ok := r.topics[strings.ToLower(subreddit)]; ok {
		dest.TopicID = topicID
	} else {
		dest.TopicID = r.errorTopicID
	}

	return dest
}

// Subreddits returns the watched subreddit names in no particular order.
func (r *Routes) Subreddits() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}

	return names
}

// Add registers a new subreddit→topic route and appends it to the backing
// file so it survives restarts.
func (r *Routes) Add(subreddit string, topicID int) error {
	name := strings.ToLower(strings.TrimSpace(subreddit))

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open routing file for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s,%d\n", name, topicID); err != nil {
		return fmt.Errorf("append routing line: %w", err)
	}

	r.topics[name] = topicID

	return nil
}

// Len returns the number of configured routes.
func (r *Routes) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.topics)
}
