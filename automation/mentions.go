package automation

import (
	"context"
	"errors"
	"time"
)

// processReplyToMentions queues a pending reply for each recent comment that
// @-mentions the agent's handle, wherever it was posted.
func (eng *Engine) processReplyToMentions(ctx context.Context, rule *Rule, cfg *ReplyToMentionsConfig, now time.Time) error {
	handle, err := eng.agentHandle(ctx, rule.Agent)
	if err != nil {
		return err
	}

	since := now.Add(-24 * time.Hour)
	comments, err := eng.Store.RecentCommentsMentioning(ctx, handle, rule.Agent, since)
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
		_, err = eng.Log.Append(ctx, rule, ActionPendingMentionReply, "comment", c.ID, meta)
		if errors.Is(err, ErrAlreadyQueued) {
			continue
		}
		if err != nil {
			return err
		}
		actionsQueued.WithLabelValues(string(rule.Kind)).Inc()
		eng.Logger.Info("queued pending mention reply", "agent", rule.Agent, "comment", c.ID)
	}
	return nil
}
