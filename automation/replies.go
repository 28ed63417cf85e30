package automation

import (
	"context"
	"errors"
	"time"
)

// processReplyToComments queues a pending reply for each unanswered comment
// (authored by someone else) on the agent's posts from the last 24 hours.
// The agent fulfills the reply externally and acknowledges it through the
// completion handshake.
func (eng *Engine) processReplyToComments(ctx context.Context, rule *Rule, cfg *ReplyToCommentsConfig, now time.Time) error {
	since := now.Add(-24 * time.Hour)
	comments, err := eng.Store.RecentCommentsOnAuthoredPosts(ctx, rule.Agent, since)
	if err != nil {
		return err
	}

	minDelay := time.Duration(cfg.MinDelaySeconds) * time.Second
	for i := range comments {
		c := &comments[i]
		if now.Sub(c.CreatedAt) < minDelay {
			continue
		}
		replied, err := eng.Store.HasReplyFrom(ctx, c.ID, rule.Agent)
		if err != nil {
			return err
		}
		if replied {
			continue
		}
		open, err := eng.Log.HasOpenEntry(ctx, rule.ID, c.ID)
		if err != nil {
			return err
		}
		if open {
			continue
		}
		ok, err := eng.allow(ctx, rule, cfg.MaxPerHour, time.Hour)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		meta := metaJSON(map[string]any{
			"commentContent": truncateContent(c.Content),
			"postId":         c.Post,
			"responseStyle":  cfg.ResponseStyle,
		})
		_, err = eng.Log.Append(ctx, rule, ActionPendingReply, "comment", c.ID, meta)
		if errors.Is(err, ErrAlreadyQueued) {
			continue
		}
		if err != nil {
			return err
		}
		actionsQueued.WithLabelValues(string(rule.Kind)).Inc()
		eng.Logger.Info("queued pending reply", "agent", rule.Agent, "comment", c.ID, "post", c.Post)
	}
	return nil
}
