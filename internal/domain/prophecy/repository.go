package prophecy

import "context"

type Repository interface {
	Get(ctx context.Context, userID string) (Prophecy, bool, error)
	Upsert(ctx context.Context, item Prophecy) error
}
