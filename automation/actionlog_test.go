package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestActionLogAppendBumpsTriggerCount(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	rule := f.rule(agent, KindAutoUpvoteReplies, &AutoUpvoteRepliesConfig{Enabled: true}, true)

	entry, err := f.alog.Append(ctx, rule, ActionUpvoted, "comment", 7, datatypes.JSON(`{}`))
	require.NoError(err)
	assert.Equal(rule.ID, entry.Rule)
	assert.Equal(agent, entry.Agent)
	assert.Nil(entry.OpenTarget)

	reloaded, err := f.rules.Get(ctx, agent, KindAutoUpvoteReplies)
	require.NoError(err)
	assert.Equal(int64(1), reloaded.TriggerCount)
	require.NotNil(reloaded.LastTriggeredAt)
	assert.WithinDuration(time.Now().UTC(), *reloaded.LastTriggeredAt, 5*time.Second)
}

func TestActionLogOpenEntryUniqueness(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	rule := f.rule(agent, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5}, true)

	_, err := f.alog.Append(ctx, rule, ActionPendingReply, "comment", 42, nil)
	require.NoError(err)

	open, err := f.alog.HasOpenEntry(ctx, rule.ID, 42)
	require.NoError(err)
	assert.True(open)

	// second append for the same target hits the unique index
	_, err = f.alog.Append(ctx, rule, ActionPendingReply, "comment", 42, nil)
	assert.ErrorIs(err, ErrAlreadyQueued)

	// a different target under the same rule is fine
	_, err = f.alog.Append(ctx, rule, ActionPendingReply, "comment", 43, nil)
	assert.NoError(err)

	// the failed append must not have bumped the trigger counter
	reloaded, err := f.rules.Get(ctx, agent, KindReplyToComments)
	require.NoError(err)
	assert.Equal(int64(2), reloaded.TriggerCount)
}

func TestActionLogListForAgent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	other := f.account("bot2", true)
	replyRule := f.rule(agent, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5}, true)
	upvoteRule := f.rule(agent, KindAutoUpvoteReplies, &AutoUpvoteRepliesConfig{Enabled: true}, true)
	otherRule := f.rule(other, KindAutoUpvoteReplies, &AutoUpvoteRepliesConfig{Enabled: true}, true)

	_, err := f.alog.Append(ctx, replyRule, ActionPendingReply, "comment", 1, nil)
	require.NoError(err)
	_, err = f.alog.Append(ctx, upvoteRule, ActionUpvoted, "comment", 2, nil)
	require.NoError(err)
	_, err = f.alog.Append(ctx, otherRule, ActionUpvoted, "comment", 3, nil)
	require.NoError(err)

	entries, err := f.alog.ListForAgent(ctx, agent, nil, 10)
	require.NoError(err)
	assert.Len(entries, 2)

	kind := KindAutoUpvoteReplies
	entries, err = f.alog.ListForAgent(ctx, agent, &kind, 10)
	require.NoError(err)
	require.Len(entries, 1)
	assert.Equal(ActionUpvoted, entries[0].Action)
	assert.Equal(agent, entries[0].Agent)
}

func TestActionLogListPendingWindow(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	rule := f.rule(agent, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5}, true)

	fresh, err := f.alog.Append(ctx, rule, ActionPendingReply, "comment", 1, nil)
	require.NoError(err)
	stale, err := f.alog.Append(ctx, rule, ActionPendingReply, "comment", 2, nil)
	require.NoError(err)
	_, err = f.alog.Append(ctx, rule, ActionUpvoted, "comment", 3, nil)
	require.NoError(err)

	// age the second entry past the lookback; it stays in storage but drops
	// out of the pending view
	require.NoError(f.db.Model(&ActionEntry{}).Where("id = ?", stale.ID).
		Update("created_at", time.Now().UTC().Add(-25*time.Hour)).Error)

	pending, err := f.alog.ListPending(ctx, agent, 24*time.Hour)
	require.NoError(err)
	require.Len(pending, 1)
	assert.Equal(fresh.ID, pending[0].ID)

	var total int64
	require.NoError(f.db.Model(&ActionEntry{}).Count(&total).Error)
	assert.Equal(int64(3), total)
}

func TestActionLogComplete(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	stranger := f.account("bot2", true)
	rule := f.rule(agent, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5}, true)

	entry, err := f.alog.Append(ctx, rule, ActionPendingReply, "comment", 1, nil)
	require.NoError(err)

	// a different agent cannot complete it, and is not told it exists
	_, err = f.alog.Complete(ctx, entry.ID, stranger)
	assert.ErrorIs(err, ErrNotFound)

	completed, err := f.alog.Complete(ctx, entry.ID, agent)
	require.NoError(err)
	assert.Equal("completed_reply", completed.Action)
	assert.Nil(completed.OpenTarget)

	pending, err := f.alog.ListPending(ctx, agent, 24*time.Hour)
	require.NoError(err)
	assert.Empty(pending)

	// already completed: a second completion attempt finds nothing pending
	_, err = f.alog.Complete(ctx, entry.ID, agent)
	assert.ErrorIs(err, ErrNotFound)

	// completing an unknown id
	_, err = f.alog.Complete(ctx, 9999, agent)
	assert.ErrorIs(err, ErrNotFound)

	// once completed, the slot for that (rule, target) is free again
	_, err = f.alog.Append(ctx, rule, ActionPendingReply, "comment", 1, nil)
	assert.NoError(err)
}
