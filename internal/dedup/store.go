// Package dedup tracks which submissions have already been delivered so the
// bridge never posts the same submission twice, across restarts included.
//
// The backing format is one submission ID per line. The full set is loaded
// into memory at startup and every new ID is appended and fsynced before the
// claim is visible to the caller. Entries never expire; growth is unbounded
// by design, given tens of submissions per hour.
package dedup

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Store answers "already delivered?" and records "now delivered" for
// submission IDs. All methods are safe for concurrent use; the membership
// check and the record-and-persist step share one critical section so two
// concurrent deliveries of the same submission cannot both pass the gate.
type Store struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	file   *os.File
	logger *zerolog.Logger
}

// Open loads the delivered set from path and keeps the file open for
// appending. A missing or unreadable file starts the store empty rather than
// failing startup: a corrupted dedup file costs a possible re-delivery, not
// downtime.
func Open(path string, logger *zerolog.Logger) (*Store, error) {
	s := &Store{
		seen:   make(map[string]struct{}),
		logger: logger,
	}

	if err := s.load(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("dedup state unreadable, starting empty")

		s.seen = make(map[string]struct{})
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dedup file for append: %w", err)
	}

	s.file = f

	return s, nil
}

func (s *Store) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("open dedup file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			s.seen[id] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read dedup file: %w", err)
	}

	return nil
}

// Seen reports whether id has already been delivered.
func (s *Store) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.seen[id]

	return ok
}

// CheckAndMark claims id for delivery. It returns true if this caller won the
// claim (id was unseen) and false if id was already delivered or claimed.
// The claim is persisted before the method returns.
func (s *Store) CheckAndMark(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false, nil
	}

	if err := s.persist(id); err != nil {
		// Favor availability: an unwritable file must not stop deliveries.
		// The claim still holds in memory for the life of the process.
		s.logger.Error().Err(err).Str("submission_id", id).Msg("failed to persist dedup entry")
	}

	s.seen[id] = struct{}{}

	return true, nil
}

// MarkSeen records id as delivered without checking. Used by replay paths
// that bypass the gate.
func (s *Store) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return
	}

	if err := s.persist(id); err != nil {
		s.logger.Error().Err(err).Str("submission_id", id).Msg("failed to persist dedup entry")
	}

	s.seen[id] = struct{}{}
}

func (s *Store) persist(id string) error {
	if _, err := fmt.Fprintln(s.file, id); err != nil {
		return fmt.Errorf("append dedup entry: %w", err)
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync dedup file: %w", err)
	}

	return nil
}

// Size returns the number of delivered IDs.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.seen)
}

// Close releases the backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Close()
}
