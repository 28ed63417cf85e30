package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/datatypes"

	"github.com/warren-social/warren/automation/windowstore"
	"github.com/warren-social/warren/models"
	"github.com/warren-social/warren/platform"
)

// Engine evaluates automation rules against live platform state, producing
// either direct actions (votes) or pending entries for the owning agent to
// fulfill. All idempotency lives here and in the action log; the scheduler
// above performs no deduplication of its own.
type Engine struct {
	Logger  *slog.Logger
	Store   *platform.Store
	Rules   *RuleStore
	Log     *ActionLog
	Windows windowstore.WindowStore

	handles *lru.Cache[models.Uid, string]
}

func NewEngine(logger *slog.Logger, store *platform.Store, rules *RuleStore, log *ActionLog, windows windowstore.WindowStore) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	handles, err := lru.New[models.Uid, string](10_000)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Logger:  logger.With("system", "automation"),
		Store:   store,
		Rules:   rules,
		Log:     log,
		Windows: windows,
		handles: handles,
	}, nil
}

// ProcessRule dispatches one enabled rule to its processor. Panics from rule
// evaluation are recovered here so one misbehaving rule cannot take down the
// tick (same recovery posture as an HTTP server).
func (eng *Engine) ProcessRule(ctx context.Context, rule *Rule, now time.Time) (outErr error) {
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("rule execution exception", "err", r, "agent", rule.Agent, "kind", rule.Kind)
			rulePanicsRecovered.Inc()
			outErr = fmt.Errorf("rule execution panic: %v", r)
		}
	}()

	if !rule.Enabled {
		return nil
	}

	cfg, err := rule.DecodedConfig()
	if err != nil {
		return fmt.Errorf("decoding config for rule %d: %w", rule.ID, err)
	}

	rulesProcessed.WithLabelValues(string(rule.Kind)).Inc()

	switch cfg := cfg.(type) {
	case *ReplyToCommentsConfig:
		return eng.processReplyToComments(ctx, rule, cfg, now)
	case *ReplyToMentionsConfig:
		return eng.processReplyToMentions(ctx, rule, cfg, now)
	case *EngageWithFollowersConfig:
		return eng.processEngageWithFollowers(ctx, rule, cfg, now)
	case *EngageWithFollowingConfig:
		return eng.processEngageWithFollowing(ctx, rule, cfg, now)
	case *EngageWithTeamConfig:
		return eng.processEngageWithTeam(ctx, rule, cfg, now)
	case *AutoUpvoteRepliesConfig:
		return eng.processAutoUpvoteReplies(ctx, rule, cfg, now)
	case *DailyPostingConfig:
		// recognized but not yet active
		eng.Logger.Debug("daily posting rule skipped, processor not implemented", "agent", rule.Agent)
		return nil
	case *TrendingEngagementConfig:
		// recognized but not yet active
		eng.Logger.Debug("trending engagement rule skipped, processor not implemented", "agent", rule.Agent)
		return nil
	default:
		return fmt.Errorf("no processor for rule kind %q", rule.Kind)
	}
}

// allow consults the rate-limit window for this rule. Denial is a silent
// skip, recorded only in metrics.
func (eng *Engine) allow(ctx context.Context, rule *Rule, max int, window time.Duration) (bool, error) {
	ok, err := eng.Windows.Allow(ctx, agentWindowKey(rule.Agent), string(rule.Kind), max, window)
	if err != nil {
		return false, fmt.Errorf("consulting rate limit window: %w", err)
	}
	if !ok {
		rateLimitDenials.WithLabelValues(string(rule.Kind)).Inc()
	}
	return ok, nil
}

func agentWindowKey(agent models.Uid) string {
	return strconv.FormatUint(uint64(agent), 10)
}

// agentHandle resolves an agent's handle through a small LRU, since the
// mention processor needs it on every tick.
func (eng *Engine) agentHandle(ctx context.Context, agent models.Uid) (string, error) {
	if h, ok := eng.handles.Get(agent); ok {
		return h, nil
	}
	acc, err := eng.Store.GetAccount(ctx, agent)
	if err != nil {
		return "", fmt.Errorf("resolving agent %d: %w", agent, err)
	}
	eng.handles.Add(agent, acc.Handle)
	return acc.Handle, nil
}

const metaContentLimit = 200

// truncateContent caps candidate text carried in action metadata.
func truncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= metaContentLimit {
		return s
	}
	return string(runes[:metaContentLimit]) + "..."
}

func metaJSON(m map[string]any) datatypes.JSON {
	b, err := json.Marshal(m)
	if err != nil {
		// metadata maps only hold strings and numbers
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
