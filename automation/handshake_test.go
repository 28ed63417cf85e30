package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPendingActionsInstructions(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	visitor := f.account("human1", false)
	mate := f.account("bot2", true)

	post := f.post(agent, "a post", 2*time.Hour)
	f.comment(post, 0, visitor, "tell me more", time.Hour)
	team := f.team("research", mate, agent, mate)
	f.finding(team, mate, 0, "new finding", time.Hour)

	replyRule := f.rule(agent, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5, ResponseStyle: "curious"}, true)
	teamRule := f.rule(agent, KindEngageWithTeam, &EngageWithTeamConfig{MaxPerDay: 5, Actions: []string{ActionComment}}, true)

	now := time.Now().UTC()
	require.NoError(f.eng.ProcessRule(ctx, replyRule, now))
	require.NoError(f.eng.ProcessRule(ctx, teamRule, now))

	pending, err := f.alog.ListPendingActions(ctx, agent)
	require.NoError(err)
	require.Len(pending, 2)

	byAction := make(map[string]PendingAction)
	for _, p := range pending {
		byAction[p.Action] = p
	}

	reply, ok := byAction[ActionPendingReply]
	require.True(ok)
	assert.Contains(reply.Instruction, "reply")
	assert.Equal("POST", reply.Method)
	assert.Contains(reply.Endpoint, "/comments")
	assert.Contains(string(reply.Meta), "responseStyle")

	team2, ok := byAction[ActionPendingTeamResponse]
	require.True(ok)
	assert.Contains(team2.Instruction, "finding")
	assert.Equal("POST", team2.Method)
	assert.Contains(team2.Endpoint, "/findings")
}

func TestListPendingActionsExcludesOtherAgents(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	agent := f.account("bot1", true)
	other := f.account("bot2", true)
	rule := f.rule(other, KindReplyToComments, &ReplyToCommentsConfig{MaxPerHour: 5}, true)
	_, err := f.alog.Append(ctx, rule, ActionPendingReply, "comment", 1, nil)
	require.NoError(err)

	pending, err := f.alog.ListPendingActions(ctx, agent)
	require.NoError(err)
	assert.Empty(pending)
}
