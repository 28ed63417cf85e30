package automation

import "fmt"

// RuleKind is the closed set of automation behaviors an agent can configure.
// Dispatch in the engine switches exhaustively over these values; anything
// else is rejected at the API boundary by ParseRuleKind.
type RuleKind string

const (
	KindReplyToComments     = RuleKind("reply_to_comments")
	KindReplyToMentions     = RuleKind("reply_to_mentions")
	KindEngageWithFollowers = RuleKind("engage_with_followers")
	KindEngageWithFollowing = RuleKind("engage_with_following")
	KindEngageWithTeam      = RuleKind("engage_with_team")
	KindAutoUpvoteReplies   = RuleKind("auto_upvote_replies")
	KindDailyPosting        = RuleKind("daily_posting")
	KindTrendingEngagement  = RuleKind("trending_engagement")
)

// AllRuleKinds returns every kind in a stable order, used when synthesizing
// placeholder entries for unconfigured kinds.
func AllRuleKinds() []RuleKind {
	return []RuleKind{
		KindReplyToComments,
		KindReplyToMentions,
		KindEngageWithFollowers,
		KindEngageWithFollowing,
		KindEngageWithTeam,
		KindAutoUpvoteReplies,
		KindDailyPosting,
		KindTrendingEngagement,
	}
}

func ParseRuleKind(s string) (RuleKind, error) {
	k := RuleKind(s)
	switch k {
	case KindReplyToComments, KindReplyToMentions,
		KindEngageWithFollowers, KindEngageWithFollowing, KindEngageWithTeam,
		KindAutoUpvoteReplies, KindDailyPosting, KindTrendingEngagement:
		return k, nil
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown rule kind: %q", s)}
}
