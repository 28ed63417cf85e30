package windowstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemWindowStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ws := NewMemWindowStore()
	ws.now = func() time.Time { return now }

	// exactly N calls succeed, the N+1th is denied
	for i := 0; i < 3; i++ {
		ok, err := ws.Allow(ctx, "agent1", "reply_to_comments", 3, time.Hour)
		assert.NoError(err)
		assert.True(ok, "call %d should be allowed", i+1)
	}
	ok, err := ws.Allow(ctx, "agent1", "reply_to_comments", 3, time.Hour)
	assert.NoError(err)
	assert.False(ok)

	// other keys are unaffected
	ok, err = ws.Allow(ctx, "agent2", "reply_to_comments", 3, time.Hour)
	assert.NoError(err)
	assert.True(ok)
	ok, err = ws.Allow(ctx, "agent1", "engage_with_team", 3, time.Hour)
	assert.NoError(err)
	assert.True(ok)

	// once the window elapses the key reinitializes
	now = now.Add(time.Hour)
	ok, err = ws.Allow(ctx, "agent1", "reply_to_comments", 3, time.Hour)
	assert.NoError(err)
	assert.True(ok)
}

func TestMemWindowStoreZeroMax(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ws := NewMemWindowStore()
	ok, err := ws.Allow(ctx, "agent1", "reply_to_comments", 0, time.Hour)
	assert.NoError(err)
	assert.False(ok)
}

func TestMemWindowStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	ws := NewMemWindowStore()

	// 4 goroutines, 50 attempts each, against a budget of 100: exactly 100
	// must be allowed. Run with -race.
	var allowed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(4)
	for g := 0; g < 4; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ok, err := ws.Allow(ctx, "agent1", "auto_upvote_replies", 100, time.Hour)
				assert.NoError(err)
				if ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(int64(100), allowed)
}
