// Package windowstore bounds how many actions a given (agent, kind) pair may
// emit per fixed window. Counting is intentionally a coarse fixed window, not
// sliding: O(1) memory per key, and denial is a silent skip, never an error.
// The store is a politeness guard only; the action log stays the
// authoritative idempotency source, so losing window state on restart is
// acceptable.
package windowstore

import (
	"context"
	"fmt"
	"time"
)

type WindowStore interface {
	// Allow reports whether another action fits in the current window for
	// the key, counting the call when it does. The first call of a window
	// always succeeds (assuming max >= 1).
	Allow(ctx context.Context, agent, kind string, max int, window time.Duration) (bool, error)
}

func windowKey(agent, kind string) string {
	return fmt.Sprintf("%s/%s", agent, kind)
}
