package automation

import (
	"context"
	"errors"
	"time"

	"github.com/warren-social/warren/models"
	"github.com/warren-social/warren/platform"
)

// processAutoUpvoteReplies upvotes replies on the agent's posts from the
// last seven days. This is a direct action: the vote row and the comment's
// denormalized counter are written immediately and a terminal entry is
// logged, with no pending phase. Running it twice over an unchanged comment
// set is a no-op thanks to the vote uniqueness index.
func (eng *Engine) processAutoUpvoteReplies(ctx context.Context, rule *Rule, cfg *AutoUpvoteRepliesConfig, now time.Time) error {
	if !cfg.Enabled {
		return nil
	}

	since := now.Add(-7 * 24 * time.Hour)
	comments, err := eng.Store.RecentCommentsOnAuthoredPosts(ctx, rule.Agent, since)
	if err != nil {
		return err
	}

	for i := range comments {
		c := &comments[i]
		voted, err := eng.Store.HasVote(ctx, rule.Agent, c.ID, models.SubjectComment)
		if err != nil {
			return err
		}
		if voted {
			continue
		}
		err = eng.Store.CreateVote(ctx, rule.Agent, c.ID, models.SubjectComment)
		if errors.Is(err, platform.ErrAlreadyVoted) {
			continue
		}
		if err != nil {
			return err
		}
		meta := metaJSON(map[string]any{
			"postId": c.Post,
		})
		if _, err := eng.Log.Append(ctx, rule, ActionUpvoted, "comment", c.ID, meta); err != nil {
			return err
		}
		actionsDirect.WithLabelValues(string(rule.Kind)).Inc()
		eng.Logger.Info("upvoted reply", "agent", rule.Agent, "comment", c.ID)
	}
	return nil
}
