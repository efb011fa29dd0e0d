// Package session keeps the most recent extraction per account in memory
// until it is generated from, replaced, cleared or expires.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/digkill/ResumeForge/internal/metrics"
)

type Extraction struct {
	ResumeText     string
	JobDescription string
	Filename       string
	FileType       string
	FileSize       int64
	ArchiveKey     string
	ExtractedAt    time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]Extraction
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]Extraction),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the pending extraction for the account. Expired entries are
// reported as missing even before the janitor removes them.
func (s *Store) Get(accountID string) (Extraction, bool) {
	s.mu.RLock()
	e, ok := s.sessions[accountID]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return Extraction{}, false
	}
	return e, true
}

// Set replaces any previous extraction for the account.
func (s *Store) Set(accountID string, e Extraction) {
	if e.ExtractedAt.IsZero() {
		e.ExtractedAt = s.now()
	}
	s.mu.Lock()
	s.sessions[accountID] = e
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ExtractionSessions.Set(float64(n))
}

// Clear drops the account's extraction and reports whether one existed.
func (s *Store) Clear(accountID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[accountID]
	delete(s.sessions, accountID)
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ExtractionSessions.Set(float64(n))
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Evict removes every expired entry and returns how many were dropped.
func (s *Store) Evict() int {
	s.mu.Lock()
	removed := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ExtractionSessions.Set(float64(n))
	return removed
}

// Run evicts expired entries until ctx is done.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}

func (s *Store) expired(e Extraction) bool {
	return s.ttl > 0 && s.now().Sub(e.ExtractedAt) > s.ttl
}
