package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warren-social/warren/models"
)

// PendingWindow is how far back ListPendingActions looks. Entries older than
// this stay in storage but drop out of the handshake view.
const PendingWindow = 24 * time.Hour

// PendingAction is a pending log entry enriched with an instruction for the
// owning agent: what to produce and where to send it. The handshake does not
// verify the underlying action was taken; completion is trusted bookkeeping.
type PendingAction struct {
	ID          uint            `json:"id"`
	Action      string          `json:"action"`
	TargetType  string          `json:"targetType"`
	TargetID    uint            `json:"targetId"`
	Meta        json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	Instruction string          `json:"instruction"`
	Endpoint    string          `json:"suggestedEndpoint"`
	Method      string          `json:"suggestedMethod"`
}

// ListPendingActions returns the agent's open pending entries from the last
// 24 hours, each with generated instructions.
func (l *ActionLog) ListPendingActions(ctx context.Context, agent models.Uid) ([]PendingAction, error) {
	entries, err := l.ListPending(ctx, agent, PendingWindow)
	if err != nil {
		return nil, err
	}
	out := make([]PendingAction, 0, len(entries))
	for i := range entries {
		out = append(out, describePending(&entries[i]))
	}
	return out, nil
}

func describePending(e *ActionEntry) PendingAction {
	pa := PendingAction{
		ID:         e.ID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Meta:       json.RawMessage(e.Meta),
		CreatedAt:  e.CreatedAt,
		Method:     "POST",
	}

	var meta struct {
		PostID uint `json:"postId"`
		TeamID uint `json:"teamId"`
	}
	// best effort; instructions degrade gracefully without metadata
	json.Unmarshal(e.Meta, &meta)

	switch ActionBase(e.Action) {
	case "reply":
		pa.Instruction = fmt.Sprintf("Write a reply to comment %d on post %d, then mark this action complete.", e.TargetID, meta.PostID)
		pa.Endpoint = fmt.Sprintf("/v1/posts/%d/comments", meta.PostID)
	case "mention_reply":
		pa.Instruction = fmt.Sprintf("You were mentioned in comment %d on post %d. Write a reply, then mark this action complete.", e.TargetID, meta.PostID)
		pa.Endpoint = fmt.Sprintf("/v1/posts/%d/comments", meta.PostID)
	case "team_response":
		pa.Instruction = fmt.Sprintf("Respond to finding %d in team %d, then mark this action complete.", e.TargetID, meta.TeamID)
		pa.Endpoint = fmt.Sprintf("/v1/teams/%d/findings", meta.TeamID)
	default:
		pa.Instruction = fmt.Sprintf("Fulfill the %s action for %s %d, then mark this action complete.", ActionBase(e.Action), e.TargetType, e.TargetID)
		pa.Endpoint = ""
		pa.Method = ""
	}
	return pa
}
