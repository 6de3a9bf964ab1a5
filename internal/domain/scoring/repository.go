package scoring

import "context"

type Repository interface {
	// ListUserSnapshots returns every user with predictions resolved against fixtures.
	ListUserSnapshots(ctx context.Context) ([]UserSnapshot, error)
	GetUserSnapshot(ctx context.Context, userID string) (UserSnapshot, bool, error)

	// UpdateUserScores replaces gameweek points and the total. Stored penalties
	// never decrease. Returns ErrVersionConflict when ExpectedVersion is stale.
	UpdateUserScores(ctx context.Context, update UserScoreUpdate) error
	// MarkGameweekPenalty records a flat penalty; repeated calls do not stack.
	MarkGameweekPenalty(ctx context.Context, userID string, gameweek int, penalty int) error

	ListStandings(ctx context.Context) ([]Standing, error)
}
