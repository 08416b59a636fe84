// Package session holds the per-conversation state owned by the caller:
// message history, counters, the sources of the last answer and a bounded
// answer cache. The pipeline itself stays stateless between calls; it only
// reads from and appends to a session handed to it.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

// SearchEntry is one remembered query for the history panel.
type SearchEntry struct {
	Query   string
	Preview string
	At      time.Time
}

// Stats summarizes a session for display.
type Stats struct {
	Queries      int
	Duration     time.Duration
	SourcesFound int
}

// Session is the state of one conversation. Single-writer; appended to only
// by the calling session, never by the pipeline on a failed turn.
type Session struct {
	id            string
	startedAt     time.Time
	messages      []domain.Message
	lastSources   []domain.RetrievedSource
	searchHistory []SearchEntry
	historyLimit  int
	chatCount     int
	cache         *Cache
}

// Options bounds session bookkeeping.
type Options struct {
	CacheTTL           time.Duration
	CacheCapacity      int
	SearchHistoryLimit int
}

// New creates an empty session.
func New(opts Options) *Session {
	limit := opts.SearchHistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &Session{
		id:           uuid.New().String(),
		startedAt:    time.Now(),
		historyLimit: limit,
		cache:        NewCache(opts.CacheTTL, opts.CacheCapacity),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Messages returns the conversation so far.
func (s *Session) Messages() []domain.Message { return s.messages }

// Append records a completed message.
func (s *Session) Append(role, content string) {
	s.messages = append(s.messages, domain.Message{Role: role, Content: content})
}

// IncrementChatCount bumps the query counter.
func (s *Session) IncrementChatCount() { s.chatCount++ }

// LastSources returns the sources behind the most recent answer.
func (s *Session) LastSources() []domain.RetrievedSource { return s.lastSources }

// SetLastSources replaces the sources behind the most recent answer.
func (s *Session) SetLastSources(sources []domain.RetrievedSource) { s.lastSources = sources }

// RecordSearch appends a query to the search history, dropping the oldest
// entry beyond the limit. Repeated queries are not duplicated.
func (s *Session) RecordSearch(query, preview string) {
	for _, e := range s.searchHistory {
		if e.Query == query {
			return
		}
	}
	if r := []rune(preview); len(r) > 100 {
		preview = string(r[:100]) + "..."
	}
	s.searchHistory = append(s.searchHistory, SearchEntry{Query: query, Preview: preview, At: time.Now()})
	if len(s.searchHistory) > s.historyLimit {
		s.searchHistory = s.searchHistory[len(s.searchHistory)-s.historyLimit:]
	}
}

// SearchHistory returns remembered queries, oldest first.
func (s *Session) SearchHistory() []SearchEntry { return s.searchHistory }

// Cache returns the session's answer cache.
func (s *Session) Cache() *Cache { return s.cache }

// Stats returns display statistics for the session.
func (s *Session) Stats() Stats {
	return Stats{
		Queries:      s.chatCount,
		Duration:     time.Since(s.startedAt),
		SourcesFound: len(s.lastSources),
	}
}
