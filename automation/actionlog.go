package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/warren-social/warren/models"
)

// Action names. Two-phase actions are queued under a pending_ name and
// rewritten to the matching completed_ name by the completion handshake;
// direct actions log a terminal name with no later rewrite. The phase prefix
// convention lives entirely in this file; kind names never begin with a
// phase prefix.
const (
	ActionUpvoted             = "upvoted"
	ActionPendingReply        = "pending_reply"
	ActionPendingMentionReply = "pending_mention_reply"
	ActionPendingTeamResponse = "pending_team_response"

	pendingPrefix   = "pending_"
	completedPrefix = "completed_"
)

func IsPendingAction(action string) bool {
	return strings.HasPrefix(action, pendingPrefix)
}

// CompletedAction rewrites pending_X to completed_X.
func CompletedAction(action string) string {
	return completedPrefix + strings.TrimPrefix(action, pendingPrefix)
}

// ActionBase strips any phase prefix, leaving the action kind.
func ActionBase(action string) string {
	action = strings.TrimPrefix(action, pendingPrefix)
	return strings.TrimPrefix(action, completedPrefix)
}

// ActionEntry is one append-only record of an action a rule produced. The
// log doubles as the idempotency index: OpenTarget mirrors TargetID while
// the entry is an open pending action and is cleared on completion, so the
// unique index across (rule, open_target) admits at most one open entry per
// (rule, target) even under concurrent writers. Direct (terminal) actions
// insert with a null OpenTarget and never collide.
type ActionEntry struct {
	gorm.Model
	Rule       uint       `gorm:"index;index:idx_action_open_target,unique"`
	Agent      models.Uid `gorm:"index"`
	Action     string
	TargetType string
	TargetID   uint
	OpenTarget *uint `gorm:"index:idx_action_open_target,unique"`
	Meta       datatypes.JSON
}

type ActionLog struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewActionLog(db *gorm.DB) *ActionLog {
	db.AutoMigrate(&ActionEntry{})
	return &ActionLog{
		db:  db,
		log: slog.Default().With("system", "actionlog"),
	}
}

// Append records an action and bumps the owning rule's trigger counter in
// one transaction. Appending a pending action for a target that already has
// an open entry under the same rule returns ErrAlreadyQueued.
func (l *ActionLog) Append(ctx context.Context, rule *Rule, action, targetType string, targetID uint, meta datatypes.JSON) (*ActionEntry, error) {
	entry := ActionEntry{
		Rule:       rule.ID,
		Agent:      rule.Agent,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Meta:       meta,
	}
	if IsPendingAction(action) {
		t := targetID
		entry.OpenTarget = &t
	}
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyQueued
			}
			return fmt.Errorf("appending action entry: %w", err)
		}
		now := time.Now().UTC()
		return tx.Model(&Rule{}).Where("id = ?", rule.ID).
			Updates(map[string]any{
				"trigger_count":     gorm.Expr("trigger_count + 1"),
				"last_triggered_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// HasOpenEntry reports whether an open pending entry exists for the given
// (rule, target). The unique index remains the authoritative guard; this
// pre-check just keeps processors quiet about targets already queued.
func (l *ActionLog) HasOpenEntry(ctx context.Context, rule uint, targetID uint) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&ActionEntry{}).
		Where("rule = ? AND open_target = ?", rule, targetID).
		Count(&count).Error
	return count > 0, err
}

// ListForAgent returns the agent's entries, most recent first, optionally
// restricted to entries belonging to rules of one kind.
func (l *ActionLog) ListForAgent(ctx context.Context, agent models.Uid, kind *RuleKind, limit int) ([]ActionEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := l.db.WithContext(ctx).Model(&ActionEntry{}).
		Where("action_entries.agent = ?", agent).
		Order("action_entries.created_at desc").
		Limit(limit)
	if kind != nil {
		q = q.Joins("INNER JOIN rules ON rules.id = action_entries.rule").
			Where("rules.kind = ?", *kind)
	}
	var out []ActionEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing action entries: %w", err)
	}
	return out, nil
}

// ListPending returns the agent's open pending entries created within the
// lookback window. Older pending entries are retained in storage for audit
// but fall out of this view.
func (l *ActionLog) ListPending(ctx context.Context, agent models.Uid, within time.Duration) ([]ActionEntry, error) {
	since := time.Now().UTC().Add(-within)
	var out []ActionEntry
	err := l.db.WithContext(ctx).
		Where("agent = ? AND action LIKE ? AND created_at > ?", agent, pendingPrefix+"%", since).
		Order("created_at desc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending entries: %w", err)
	}
	return out, nil
}

// Complete rewrites a pending entry to its completed form. The caller must
// own the entry; mismatches report ErrNotFound without confirming the entry
// exists. No verification of the underlying platform action is performed;
// the handshake is advisory bookkeeping, and a caller can acknowledge work
// it never did.
func (l *ActionLog) Complete(ctx context.Context, entryID uint, caller models.Uid) (*ActionEntry, error) {
	var entry ActionEntry
	err := l.db.WithContext(ctx).
		First(&entry, "id = ? AND agent = ?", entryID, caller).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !IsPendingAction(entry.Action) {
		return nil, ErrNotFound
	}
	entry.Action = CompletedAction(entry.Action)
	entry.OpenTarget = nil
	err = l.db.WithContext(ctx).Model(&entry).
		Updates(map[string]any{
			"action":      entry.Action,
			"open_target": nil,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("completing action entry: %w", err)
	}
	return &entry, nil
}
