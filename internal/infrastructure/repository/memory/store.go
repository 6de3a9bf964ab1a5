package memory

import (
	"sync"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/domain/user"
)

// Store holds every aggregate behind one lock so per-user versions stay
// consistent across predictions, penalties and score writes.
type Store struct {
	mu sync.RWMutex

	fixtures        map[string]fixture.Fixture
	fixtureExternal map[int64]string
	users           map[string]*userState
	predictions     map[string]map[string]prediction.Prediction
	jokers          map[string]prediction.Joker
	prophecies      map[string]prophecy.Prophecy
	dispatches      map[string]jobscheduler.DispatchEvent
}

type userState struct {
	profile      user.Profile
	hasProfile   bool
	version      int64
	gameweeks    map[int]scoring.GameweekScore
	total        int
	calculatedAt time.Time
}

func NewStore() *Store {
	return &Store{
		fixtures:        make(map[string]fixture.Fixture),
		fixtureExternal: make(map[int64]string),
		users:           make(map[string]*userState),
		predictions:     make(map[string]map[string]prediction.Prediction),
		jokers:          make(map[string]prediction.Joker),
		prophecies:      make(map[string]prophecy.Prophecy),
		dispatches:      make(map[string]jobscheduler.DispatchEvent),
	}
}

// userLocked returns the user's state, creating it on first touch. Callers
// must hold the write lock.
func (s *Store) userLocked(userID string) *userState {
	state := s.users[userID]
	if state == nil {
		state = &userState{gameweeks: make(map[int]scoring.GameweekScore)}
		s.users[userID] = state
	}
	return state
}

func cloneFixture(item fixture.Fixture) fixture.Fixture {
	if item.Result != nil {
		result := *item.Result
		item.Result = &result
	}
	if item.ScoredAt != nil {
		scoredAt := *item.ScoredAt
		item.ScoredAt = &scoredAt
	}
	return item
}
