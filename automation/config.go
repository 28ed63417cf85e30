package automation

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gorm.io/datatypes"
)

// RuleConfig is the tagged variant carried inside a Rule: one concrete shape
// per kind, decoded by kind on load so a loaded rule is always well-typed.
type RuleConfig interface {
	Kind() RuleKind
	Validate() error
}

type ReplyToCommentsConfig struct {
	MaxPerHour      int    `json:"maxPerHour"`
	ResponseStyle   string `json:"responseStyle,omitempty"`
	MinDelaySeconds int    `json:"minDelaySeconds,omitempty"`
}

func (c *ReplyToCommentsConfig) Kind() RuleKind { return KindReplyToComments }

func (c *ReplyToCommentsConfig) Validate() error {
	if c.MaxPerHour < 1 {
		return validationErrorf("maxPerHour", "must be at least 1")
	}
	if c.MinDelaySeconds < 0 {
		return validationErrorf("minDelaySeconds", "must not be negative")
	}
	return nil
}

type ReplyToMentionsConfig struct {
	MaxPerHour      int    `json:"maxPerHour"`
	ResponseStyle   string `json:"responseStyle,omitempty"`
	MinDelaySeconds int    `json:"minDelaySeconds,omitempty"`
}

func (c *ReplyToMentionsConfig) Kind() RuleKind { return KindReplyToMentions }

func (c *ReplyToMentionsConfig) Validate() error {
	if c.MaxPerHour < 1 {
		return validationErrorf("maxPerHour", "must be at least 1")
	}
	if c.MinDelaySeconds < 0 {
		return validationErrorf("minDelaySeconds", "must not be negative")
	}
	return nil
}

type EngageWithFollowersConfig struct {
	MaxPerDay        int      `json:"maxPerDay"`
	Actions          []string `json:"actions"`
	PrioritizeActive bool     `json:"prioritizeActive,omitempty"`
}

func (c *EngageWithFollowersConfig) Kind() RuleKind { return KindEngageWithFollowers }

func (c *EngageWithFollowersConfig) Validate() error {
	if c.MaxPerDay < 1 {
		return validationErrorf("maxPerDay", "must be at least 1")
	}
	return validateActions(c.Actions)
}

type EngageWithFollowingConfig struct {
	MaxPerDay int      `json:"maxPerDay"`
	Actions   []string `json:"actions"`
}

func (c *EngageWithFollowingConfig) Kind() RuleKind { return KindEngageWithFollowing }

func (c *EngageWithFollowingConfig) Validate() error {
	if c.MaxPerDay < 1 {
		return validationErrorf("maxPerDay", "must be at least 1")
	}
	return validateActions(c.Actions)
}

type EngageWithTeamConfig struct {
	TeamIDs   []uint   `json:"teamIds,omitempty"`
	MaxPerDay int      `json:"maxPerDay"`
	Actions   []string `json:"actions"`
}

func (c *EngageWithTeamConfig) Kind() RuleKind { return KindEngageWithTeam }

func (c *EngageWithTeamConfig) Validate() error {
	if c.MaxPerDay < 1 {
		return validationErrorf("maxPerDay", "must be at least 1")
	}
	return validateActions(c.Actions)
}

type AutoUpvoteRepliesConfig struct {
	Enabled bool `json:"enabled"`
}

func (c *AutoUpvoteRepliesConfig) Kind() RuleKind { return KindAutoUpvoteReplies }

func (c *AutoUpvoteRepliesConfig) Validate() error { return nil }

type DailyPostingConfig struct {
	PostsPerDay int      `json:"postsPerDay"`
	Topics      []string `json:"topics,omitempty"`
	PostTimes   []string `json:"postTimes,omitempty"`
}

func (c *DailyPostingConfig) Kind() RuleKind { return KindDailyPosting }

var postTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (c *DailyPostingConfig) Validate() error {
	if c.PostsPerDay < 1 {
		return validationErrorf("postsPerDay", "must be at least 1")
	}
	for _, t := range c.PostTimes {
		if !postTimePattern.MatchString(t) {
			return validationErrorf("postTimes", "invalid time %q, expected HH:MM", t)
		}
	}
	return nil
}

type TrendingEngagementConfig struct {
	MaxPerDay     int      `json:"maxPerDay"`
	MinTrendScore float64  `json:"minTrendScore,omitempty"`
	Actions       []string `json:"actions"`
}

func (c *TrendingEngagementConfig) Kind() RuleKind { return KindTrendingEngagement }

func (c *TrendingEngagementConfig) Validate() error {
	if c.MaxPerDay < 1 {
		return validationErrorf("maxPerDay", "must be at least 1")
	}
	if c.MinTrendScore < 0 {
		return validationErrorf("minTrendScore", "must not be negative")
	}
	return validateActions(c.Actions)
}

const (
	ActionUpvote  = "upvote"
	ActionComment = "comment"
)

func validateActions(actions []string) error {
	if len(actions) == 0 {
		return validationErrorf("actions", "at least one action required")
	}
	for _, a := range actions {
		switch a {
		case ActionUpvote, ActionComment:
		default:
			return validationErrorf("actions", "unknown action %q", a)
		}
	}
	return nil
}

func containsAction(actions []string, action string) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// DecodeConfig parses and validates a raw config document for the given
// kind. Nothing is persisted if this fails.
func DecodeConfig(kind RuleKind, raw []byte) (RuleConfig, error) {
	var cfg RuleConfig
	switch kind {
	case KindReplyToComments:
		cfg = &ReplyToCommentsConfig{}
	case KindReplyToMentions:
		cfg = &ReplyToMentionsConfig{}
	case KindEngageWithFollowers:
		cfg = &EngageWithFollowersConfig{}
	case KindEngageWithFollowing:
		cfg = &EngageWithFollowingConfig{}
	case KindEngageWithTeam:
		cfg = &EngageWithTeamConfig{}
	case KindAutoUpvoteReplies:
		cfg = &AutoUpvoteRepliesConfig{}
	case KindDailyPosting:
		cfg = &DailyPostingConfig{}
	case KindTrendingEngagement:
		cfg = &TrendingEngagementConfig{}
	default:
		return nil, &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown rule kind: %q", kind)}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, &ValidationError{Field: "config", Message: fmt.Sprintf("malformed config document: %v", err)}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func EncodeConfig(cfg RuleConfig) (datatypes.JSON, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s config: %w", cfg.Kind(), err)
	}
	return datatypes.JSON(b), nil
}

// ConfigDoc returns the static schema documentation surfaced alongside each
// kind in rule listings.
func ConfigDoc(kind RuleKind) string {
	switch kind {
	case KindReplyToComments:
		return "Reply to new comments on your posts. Config: maxPerHour (int, >=1), responseStyle (string), minDelaySeconds (int, >=0)."
	case KindReplyToMentions:
		return "Reply to comments that @-mention your handle. Config: maxPerHour (int, >=1), responseStyle (string), minDelaySeconds (int, >=0)."
	case KindEngageWithFollowers:
		return "Engage with recent posts from accounts that follow you. Config: maxPerDay (int, >=1), actions ([\"upvote\",\"comment\"]), prioritizeActive (bool)."
	case KindEngageWithFollowing:
		return "Engage with recent posts from accounts you follow. Config: maxPerDay (int, >=1), actions ([\"upvote\",\"comment\"])."
	case KindEngageWithTeam:
		return "Respond to new top-level findings in your teams. Config: teamIds ([]int, optional subset), maxPerDay (int, >=1), actions ([\"upvote\",\"comment\"])."
	case KindAutoUpvoteReplies:
		return "Automatically upvote replies to your posts. Config: enabled (bool)."
	case KindDailyPosting:
		return "Publish scheduled posts. Config: postsPerDay (int, >=1), topics ([]string), postTimes ([]\"HH:MM\"). Not yet active."
	case KindTrendingEngagement:
		return "Engage with trending posts. Config: maxPerDay (int, >=1), minTrendScore (float, >=0), actions ([\"upvote\",\"comment\"]). Not yet active."
	default:
		return ""
	}
}
