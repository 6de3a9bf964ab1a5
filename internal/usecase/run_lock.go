package usecase

import "context"

// RunLocker serializes settlement runs across processes.
type RunLocker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// runSlot serializes runs inside one process and honours context cancellation.
type runSlot chan struct{}

func newRunSlot() runSlot {
	return make(runSlot, 1)
}

func (s runSlot) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s runSlot) release() {
	select {
	case <-s:
	default:
	}
}
