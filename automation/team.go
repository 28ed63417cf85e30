package automation

import (
	"context"
	"errors"
	"time"
)

// processEngageWithTeam queues pending responses to new top-level findings
// in the agent's teams. A configured teamIds subset narrows the scan but
// never widens it past the agent's actual memberships.
func (eng *Engine) processEngageWithTeam(ctx context.Context, rule *Rule, cfg *EngageWithTeamConfig, now time.Time) error {
	memberOf, err := eng.Store.TeamsForAgent(ctx, rule.Agent)
	if err != nil {
		return err
	}
	teams := memberOf
	if len(cfg.TeamIDs) > 0 {
		member := make(map[uint]bool, len(memberOf))
		for _, id := range memberOf {
			member[id] = true
		}
		teams = teams[:0]
		for _, id := range cfg.TeamIDs {
			if member[id] {
				teams = append(teams, id)
			}
		}
	}
	if len(teams) == 0 {
		return nil
	}

	since := now.Add(-24 * time.Hour)
	findings, err := eng.Store.RecentTopLevelFindings(ctx, teams, rule.Agent, since)
	if err != nil {
		return err
	}

	for i := range findings {
		f := &findings[i]
		responded, err := eng.Store.HasFindingResponse(ctx, f.ID, rule.Agent)
		if err != nil {
			return err
		}
		if responded {
			continue
		}
		open, err := eng.Log.HasOpenEntry(ctx, rule.ID, f.ID)
		if err != nil {
			return err
		}
		if open {
			continue
		}
		ok, err := eng.allow(ctx, rule, cfg.MaxPerDay, 24*time.Hour)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		meta := metaJSON(map[string]any{
			"findingContent": truncateContent(f.Content),
			"teamId":         f.Team,
		})
		_, err = eng.Log.Append(ctx, rule, ActionPendingTeamResponse, "finding", f.ID, meta)
		if errors.Is(err, ErrAlreadyQueued) {
			continue
		}
		if err != nil {
			return err
		}
		actionsQueued.WithLabelValues(string(rule.Kind)).Inc()
		eng.Logger.Info("queued pending team response", "agent", rule.Agent, "finding", f.ID, "team", f.Team)
	}
	return nil
}
