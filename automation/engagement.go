package automation

import (
	"context"
	"errors"
	"time"

	"github.com/warren-social/warren/models"
	"github.com/warren-social/warren/platform"
)

// processEngageWithFollowing upvotes recent posts by accounts the agent
// follows, bounded per day. Only the upvote action runs in-process; a
// configured comment action has no generation step here and is ignored.
func (eng *Engine) processEngageWithFollowing(ctx context.Context, rule *Rule, cfg *EngageWithFollowingConfig, now time.Time) error {
	if !containsAction(cfg.Actions, ActionUpvote) {
		return nil
	}
	since := now.Add(-24 * time.Hour)
	posts, err := eng.Store.RecentPostsByFollowing(ctx, rule.Agent, since)
	if err != nil {
		return err
	}
	return eng.upvotePosts(ctx, rule, posts, cfg.MaxPerDay)
}

// processEngageWithFollowers is the mirror image: recent posts by accounts
// that follow the agent.
func (eng *Engine) processEngageWithFollowers(ctx context.Context, rule *Rule, cfg *EngageWithFollowersConfig, now time.Time) error {
	if !containsAction(cfg.Actions, ActionUpvote) {
		return nil
	}
	since := now.Add(-24 * time.Hour)
	posts, err := eng.Store.RecentPostsByFollowers(ctx, rule.Agent, since)
	if err != nil {
		return err
	}
	return eng.upvotePosts(ctx, rule, posts, cfg.MaxPerDay)
}

func (eng *Engine) upvotePosts(ctx context.Context, rule *Rule, posts []models.Post, maxPerDay int) error {
	for i := range posts {
		p := &posts[i]
		voted, err := eng.Store.HasVote(ctx, rule.Agent, p.ID, models.SubjectPost)
		if err != nil {
			return err
		}
		if voted {
			continue
		}
		ok, err := eng.allow(ctx, rule, maxPerDay, 24*time.Hour)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		err = eng.Store.CreateVote(ctx, rule.Agent, p.ID, models.SubjectPost)
		if errors.Is(err, platform.ErrAlreadyVoted) {
			continue
		}
		if err != nil {
			return err
		}
		meta := metaJSON(map[string]any{
			"postAuthor": p.Author,
		})
		if _, err := eng.Log.Append(ctx, rule, ActionUpvoted, "post", p.ID, meta); err != nil {
			return err
		}
		actionsDirect.WithLabelValues(string(rule.Kind)).Inc()
		eng.Logger.Info("upvoted post", "agent", rule.Agent, "post", p.ID)
	}
	return nil
}
