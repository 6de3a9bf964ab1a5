package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
)

type ScoringRepository struct {
	store *Store
}

func NewScoringRepository(store *Store) *ScoringRepository {
	return &ScoringRepository{store: store}
}

func (r *ScoringRepository) ListUserSnapshots(_ context.Context) ([]scoring.UserSnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]scoring.UserSnapshot, 0, len(r.store.users))
	for userID := range r.store.users {
		out = append(out, r.snapshotLocked(userID))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *ScoringRepository) GetUserSnapshot(_ context.Context, userID string) (scoring.UserSnapshot, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.store.users[userID]; !ok {
		return scoring.UserSnapshot{}, false, nil
	}
	return r.snapshotLocked(userID), true, nil
}

func (r *ScoringRepository) snapshotLocked(userID string) scoring.UserSnapshot {
	state := r.store.users[userID]
	out := scoring.UserSnapshot{
		UserID:      userID,
		DisplayName: displayName(userID, state),
		Version:     state.version,
		Gameweeks:   sortedGameweeks(state.gameweeks),
		Total:       state.total,
	}
	if joker, ok := r.store.jokers[userID]; ok {
		out.JokerFixtureID = joker.FixtureID
	}

	for fixtureID, item := range r.store.predictions[userID] {
		fx, ok := r.store.fixtures[fixtureID]
		if !ok {
			continue
		}
		view := scoring.PredictionView{
			FixtureID: fixtureID,
			Gameweek:  fx.Gameweek,
			IsDerby:   fx.IsDerby,
			Predicted: item.Score,
			Late:      item.Late,
		}
		if fx.Result != nil {
			actual := *fx.Result
			view.Actual = &actual
		}
		out.Predictions = append(out.Predictions, view)
	}
	sort.Slice(out.Predictions, func(i, j int) bool {
		return out.Predictions[i].FixtureID < out.Predictions[j].FixtureID
	})
	return out
}

func (r *ScoringRepository) UpdateUserScores(_ context.Context, update scoring.UserScoreUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state := r.store.userLocked(update.UserID)
	if state.version != update.ExpectedVersion {
		return scoring.ErrVersionConflict
	}

	next := make(map[int]scoring.GameweekScore, len(update.Gameweeks))
	for _, item := range update.Gameweeks {
		item.Penalty = scoring.MergePenalty(item.Penalty, state.gameweeks[item.Gameweek].Penalty)
		next[item.Gameweek] = item
	}
	// Gameweeks missing from the update keep their row with points reset.
	for gameweek, item := range state.gameweeks {
		if _, ok := next[gameweek]; ok {
			continue
		}
		next[gameweek] = scoring.GameweekScore{Gameweek: gameweek, Penalty: item.Penalty}
	}

	state.gameweeks = next
	state.total = scoring.TotalOf(sortedGameweeks(next))
	state.calculatedAt = update.CalculatedAt.UTC()
	state.version++
	return nil
}

func (r *ScoringRepository) MarkGameweekPenalty(_ context.Context, userID string, gameweek int, penalty int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state := r.store.userLocked(userID)
	row := state.gameweeks[gameweek]
	row.Gameweek = gameweek
	merged := scoring.MergePenalty(row.Penalty, penalty)
	if merged == row.Penalty {
		return nil
	}
	row.Penalty = merged
	state.gameweeks[gameweek] = row
	state.total = scoring.TotalOf(sortedGameweeks(state.gameweeks))
	state.version++
	return nil
}

func (r *ScoringRepository) ListStandings(_ context.Context) ([]scoring.Standing, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]scoring.Standing, 0, len(r.store.users))
	for userID, state := range r.store.users {
		out = append(out, scoring.Standing{
			UserID:      userID,
			DisplayName: displayName(userID, state),
			Total:       state.total,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func sortedGameweeks(items map[int]scoring.GameweekScore) []scoring.GameweekScore {
	out := make([]scoring.GameweekScore, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Gameweek < out[j].Gameweek
	})
	return out
}

func displayName(userID string, state *userState) string {
	if state == nil || !state.hasProfile {
		return userID
	}
	if state.profile.Name != "" {
		return state.profile.Name
	}
	if state.profile.Email != "" {
		return state.profile.Email
	}
	return userID
}
