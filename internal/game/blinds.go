package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

// BlindLevel is one step of a blind schedule. A zero Duration never expires.
type BlindLevel struct {
	Level      int           `json:"level"`
	SmallBlind int           `json:"small_blind"`
	BigBlind   int           `json:"big_blind"`
	Ante       int           `json:"ante,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// BlindSchedule tracks the active level. It never advances on its own; the
// host calls CheckForLevelIncrease between hands.
type BlindSchedule struct {
	mu      sync.Mutex
	clock   quartz.Clock
	levels  []BlindLevel
	current int
	started time.Time
}

// NewBlindSchedule validates levels and starts the clock at startLevel,
// an index into levels.
func NewBlindSchedule(levels []BlindLevel, startLevel int, clock quartz.Clock) (*BlindSchedule, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("blind schedule needs at least one level")
	}
	for i, l := range levels {
		if l.SmallBlind <= 0 || l.BigBlind <= 0 {
			return nil, fmt.Errorf("level %d: blinds must be positive", i)
		}
		if l.SmallBlind > l.BigBlind {
			return nil, fmt.Errorf("level %d: small blind %d exceeds big blind %d", i, l.SmallBlind, l.BigBlind)
		}
		if l.Ante < 0 || l.Duration < 0 {
			return nil, fmt.Errorf("level %d: ante and duration cannot be negative", i)
		}
	}
	if startLevel < 0 || startLevel >= len(levels) {
		return nil, fmt.Errorf("start level %d out of range", startLevel)
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &BlindSchedule{
		clock:   clock,
		levels:  append([]BlindLevel(nil), levels...),
		current: startLevel,
		started: clock.Now(),
	}, nil
}

// FixedBlinds is a single level that never changes.
func FixedBlinds(small, big int) []BlindLevel {
	return []BlindLevel{{Level: 1, SmallBlind: small, BigBlind: big}}
}

// CurrentLevel returns the active level.
func (s *BlindSchedule) CurrentLevel() BlindLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels[s.current]
}

// Index is the position of the active level.
func (s *BlindSchedule) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Levels returns a copy of the schedule.
func (s *BlindSchedule) Levels() []BlindLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BlindLevel(nil), s.levels...)
}

// StartedAt is when the active level began.
func (s *BlindSchedule) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// TimeRemaining is how long the active level has left, clamped at zero.
// The last level and untimed levels report zero.
func (s *BlindSchedule) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.levels[s.current]
	if l.Duration == 0 {
		return 0
	}
	return max(0, l.Duration-s.clock.Since(s.started))
}

// CheckForLevelIncrease moves to the next level if the active one has run
// its duration. At most one level is advanced per call and the new level's
// clock starts now.
func (s *BlindSchedule) CheckForLevelIncrease() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.levels[s.current]
	if l.Duration == 0 || s.current == len(s.levels)-1 {
		return false
	}
	if s.clock.Since(s.started) < l.Duration {
		return false
	}
	s.current++
	s.started = s.clock.Now()
	return true
}

func (s *BlindSchedule) restore(current int, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current >= 0 && current < len(s.levels) {
		s.current = current
	}
	if !started.IsZero() {
		s.started = started
	}
}
