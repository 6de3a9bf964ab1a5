package user

import "context"

type Repository interface {
	Upsert(ctx context.Context, profile Profile) error
	GetByID(ctx context.Context, userID string) (Profile, bool, error)
}
