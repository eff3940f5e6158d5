// Package session owns concurrent streaming generation sessions: their state
// machine, event delivery, and background cleanup.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

// Session is one streaming generation. It is owned exclusively by the
// Manager; callers only ever hold a domain.SessionHandle.
//
// The events channel has a single owner: the manager's consume goroutine is
// the only sender and the only closer. Stop requests cancellation by flipping
// the state and cancelling the generation context; the consume goroutine
// observes that at its next suspension point.
type Session struct {
	mu sync.Mutex

	id        string
	state     domain.SessionState
	startTime time.Time
	endTime   time.Time
	chunks    []domain.StreamingChunk
	text      strings.Builder
	usage     domain.TokenCount

	events chan domain.StreamEvent
	cancel context.CancelFunc
}

func newSession(id string, cancel context.CancelFunc, buffer int) *Session {
	return &Session{
		id:        id,
		state:     domain.SessionCreated,
		startTime: time.Now(),
		chunks:    []domain.StreamingChunk{},
		events:    make(chan domain.StreamEvent, buffer),
		cancel:    cancel,
	}
}

// markActive moves Created to Active once the first chunk is scheduled.
func (s *Session) markActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.SessionCreated {
		s.state = domain.SessionActive
	}
}

// transition moves the session into a terminal state. It returns false when
// the session is already terminal; terminal states are absorbing, so exactly
// one transition ever succeeds.
func (s *Session) transition(to domain.SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return false
	}

	s.state = to
	s.endTime = time.Now()
	return true
}

// appendChunk records an ordered chunk and keeps the running text.
func (s *Session) appendChunk(chunk domain.StreamingChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = append(s.chunks, chunk)
	if !chunk.IsComplete {
		s.text.WriteString(chunk.Text)
	}
}

// setUsage records the final token accounting for the session.
func (s *Session) setUsage(usage domain.TokenCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = usage
}

// fullText returns the concatenation of all non-terminal chunk texts.
func (s *Session) fullText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// currentState returns the session state.
func (s *Session) currentState() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// terminalSince reports the end time for terminal sessions.
func (s *Session) terminalSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		return time.Time{}, false
	}
	return s.endTime, true
}

// snapshot copies the session for external callers.
func (s *Session) snapshot() *domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := make([]domain.StreamingChunk, len(s.chunks))
	copy(chunks, s.chunks)

	totalTokens := s.usage.TotalTokens
	if totalTokens == 0 {
		totalTokens = domain.EstimateTokens(s.text.String())
	}

	return &domain.SessionSnapshot{
		ID:          s.id,
		State:       s.state,
		StartTime:   s.startTime,
		EndTime:     s.endTime,
		TotalTokens: totalTokens,
		Chunks:      chunks,
	}
}
