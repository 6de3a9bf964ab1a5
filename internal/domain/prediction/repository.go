package prediction

import "context"

type Repository interface {
	// Upsert stores the prediction, replacing any previous one for the same fixture.
	Upsert(ctx context.Context, item Prediction) error
	ListByUser(ctx context.Context, userID string) ([]Prediction, error)

	GetJoker(ctx context.Context, userID string) (Joker, bool, error)
	SetJoker(ctx context.Context, joker Joker) error
}
