package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SettlementLockKey is the advisory lock id shared by every settlement runner.
const SettlementLockKey int64 = 7_310_442_018

// AdvisoryLocker serializes settlement runs across processes with a
// session-level Postgres advisory lock.
type AdvisoryLocker struct {
	db  *sqlx.DB
	key int64
}

func NewAdvisoryLocker(db *sqlx.DB, key int64) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: key}
}

func (l *AdvisoryLocker) Lock(ctx context.Context) (func(), error) {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, l.key); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire advisory lock key=%d: %w", l.key, err)
	}

	return func() {
		// The run context may already be cancelled here.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		_ = conn.Close()
	}, nil
}
