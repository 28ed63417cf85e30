package automation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleKind(t *testing.T) {
	assert := assert.New(t)

	for _, k := range AllRuleKinds() {
		parsed, err := ParseRuleKind(string(k))
		assert.NoError(err)
		assert.Equal(k, parsed)
	}

	_, err := ParseRuleKind("reply_to_everything")
	assert.Error(err)
	var ve *ValidationError
	assert.ErrorAs(err, &ve)
}

func TestDecodeConfigValidation(t *testing.T) {
	assert := assert.New(t)

	// minimum of 1 for per-window caps
	_, err := DecodeConfig(KindReplyToComments, []byte(`{"maxPerHour": 0}`))
	assert.Error(err)
	var ve *ValidationError
	assert.ErrorAs(err, &ve)
	assert.Equal("maxPerHour", ve.Field)

	_, err = DecodeConfig(KindReplyToComments, []byte(`{"maxPerHour": 1}`))
	assert.NoError(err)

	_, err = DecodeConfig(KindReplyToComments, []byte(`{"maxPerHour": 5, "minDelaySeconds": -10}`))
	assert.Error(err)

	// actions must be known and non-empty
	_, err = DecodeConfig(KindEngageWithFollowing, []byte(`{"maxPerDay": 5, "actions": []}`))
	assert.Error(err)
	_, err = DecodeConfig(KindEngageWithFollowing, []byte(`{"maxPerDay": 5, "actions": ["repost"]}`))
	assert.Error(err)
	_, err = DecodeConfig(KindEngageWithFollowing, []byte(`{"maxPerDay": 5, "actions": ["upvote", "comment"]}`))
	assert.NoError(err)

	// auto-upvote config is just a flag, empty document is fine
	_, err = DecodeConfig(KindAutoUpvoteReplies, nil)
	assert.NoError(err)

	// post times must be HH:MM
	_, err = DecodeConfig(KindDailyPosting, []byte(`{"postsPerDay": 2, "postTimes": ["09:00", "25:00"]}`))
	assert.Error(err)
	_, err = DecodeConfig(KindDailyPosting, []byte(`{"postsPerDay": 2, "postTimes": ["09:00", "23:30"]}`))
	assert.NoError(err)

	// malformed document
	_, err = DecodeConfig(KindReplyToComments, []byte(`{"maxPerHour": `))
	assert.Error(err)
}

func TestConfigRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	orig := &EngageWithTeamConfig{
		TeamIDs:   []uint{1},
		MaxPerDay: 5,
		Actions:   []string{"comment"},
	}
	require.NoError(orig.Validate())

	encoded, err := EncodeConfig(orig)
	require.NoError(err)

	decoded, err := DecodeConfig(KindEngageWithTeam, encoded)
	require.NoError(err)
	assert.Equal(orig, decoded)
}

func TestConfigDocsCoverAllKinds(t *testing.T) {
	for _, k := range AllRuleKinds() {
		if ConfigDoc(k) == "" {
			t.Errorf("kind %s has no documentation", k)
		}
	}
}

func TestActionPhaseHelpers(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsPendingAction(ActionPendingReply))
	assert.False(IsPendingAction(ActionUpvoted))
	assert.False(IsPendingAction(CompletedAction(ActionPendingReply)))

	assert.Equal("completed_reply", CompletedAction(ActionPendingReply))
	assert.Equal("reply", ActionBase(ActionPendingReply))
	assert.Equal("reply", ActionBase("completed_reply"))
	assert.Equal("upvoted", ActionBase(ActionUpvoted))
}

func TestRuleConfigJSONShape(t *testing.T) {
	assert := assert.New(t)

	encoded, err := EncodeConfig(&ReplyToCommentsConfig{MaxPerHour: 3, ResponseStyle: "friendly"})
	assert.NoError(err)

	var m map[string]any
	assert.NoError(json.Unmarshal(encoded, &m))
	assert.Equal(float64(3), m["maxPerHour"])
	assert.Equal("friendly", m["responseStyle"])
	_, hasDelay := m["minDelaySeconds"]
	assert.False(hasDelay)
}
