package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/warren-social/warren/models"
)

// Rule is one automation configuration row, unique per (agent, kind).
type Rule struct {
	gorm.Model
	Agent           models.Uid `gorm:"index:idx_rule_agent_kind,unique"`
	Kind            RuleKind   `gorm:"index:idx_rule_agent_kind,unique"`
	Enabled         bool
	Config          datatypes.JSON
	TriggerCount    int64
	LastTriggeredAt *time.Time
}

// DecodedConfig returns the rule's config as its typed variant.
func (r *Rule) DecodedConfig() (RuleConfig, error) {
	return DecodeConfig(r.Kind, r.Config)
}

type RuleStore struct {
	db *gorm.DB
}

func NewRuleStore(db *gorm.DB) *RuleStore {
	db.AutoMigrate(&Rule{})
	return &RuleStore{db: db}
}

// RuleListing is one entry in the per-agent rule catalog: either a persisted
// row or a synthesized placeholder for a kind the agent never configured.
type RuleListing struct {
	Kind            RuleKind        `json:"kind"`
	Enabled         bool            `json:"isEnabled"`
	Configured      bool            `json:"isConfigured"`
	Config          json.RawMessage `json:"config"`
	TriggerCount    int64           `json:"triggerCount"`
	LastTriggeredAt *time.Time      `json:"lastTriggeredAt,omitempty"`
	Doc             string          `json:"documentation"`
}

// ListForAgent returns one listing per known rule kind, in AllRuleKinds
// order.
func (s *RuleStore) ListForAgent(ctx context.Context, agent models.Uid) ([]RuleListing, error) {
	var rules []Rule
	if err := s.db.WithContext(ctx).Find(&rules, "agent = ?", agent).Error; err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	byKind := make(map[RuleKind]*Rule, len(rules))
	for i := range rules {
		byKind[rules[i].Kind] = &rules[i]
	}

	out := make([]RuleListing, 0, len(AllRuleKinds()))
	for _, kind := range AllRuleKinds() {
		listing := RuleListing{
			Kind:   kind,
			Config: json.RawMessage("{}"),
			Doc:    ConfigDoc(kind),
		}
		if r, ok := byKind[kind]; ok {
			listing.Enabled = r.Enabled
			listing.Configured = true
			listing.Config = json.RawMessage(r.Config)
			listing.TriggerCount = r.TriggerCount
			listing.LastTriggeredAt = r.LastTriggeredAt
		}
		out = append(out, listing)
	}
	return out, nil
}

func (s *RuleStore) Get(ctx context.Context, agent models.Uid, kind RuleKind) (*Rule, error) {
	var rule Rule
	err := s.db.WithContext(ctx).First(&rule, "agent = ? AND kind = ?", agent, kind).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// RuleUpdate is one entry of an upsert request. Nil Enabled or Config means
// "leave the current value alone" on update; on first configure, a nil
// Enabled defaults to true and a nil Config to the empty document (which
// still must validate for the kind).
type RuleUpdate struct {
	Kind    RuleKind
	Enabled *bool
	Config  json.RawMessage
}

// Upsert validates and applies a single rule update.
func (s *RuleStore) Upsert(ctx context.Context, agent models.Uid, update RuleUpdate) (*Rule, error) {
	var out *Rule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.upsertTx(tx, agent, update)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// BulkUpsert validates every update before writing any of them. A single
// invalid entry fails the whole batch with nothing persisted.
func (s *RuleStore) BulkUpsert(ctx context.Context, agent models.Uid, updates []RuleUpdate) ([]*Rule, error) {
	out := make([]*Rule, 0, len(updates))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			r, err := s.upsertTx(tx, agent, u)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RuleStore) upsertTx(tx *gorm.DB, agent models.Uid, update RuleUpdate) (*Rule, error) {
	if _, err := ParseRuleKind(string(update.Kind)); err != nil {
		return nil, err
	}

	var rule Rule
	err := tx.First(&rule, "agent = ? AND kind = ?", agent, update.Kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		enabled := true
		if update.Enabled != nil {
			enabled = *update.Enabled
		}
		cfg, err := DecodeConfig(update.Kind, update.Config)
		if err != nil {
			return nil, err
		}
		encoded, err := EncodeConfig(cfg)
		if err != nil {
			return nil, err
		}
		rule = Rule{
			Agent:   agent,
			Kind:    update.Kind,
			Enabled: enabled,
			Config:  encoded,
		}
		if err := tx.Create(&rule).Error; err != nil {
			return nil, fmt.Errorf("creating rule: %w", err)
		}
		return &rule, nil
	} else if err != nil {
		return nil, err
	}

	if update.Enabled != nil {
		rule.Enabled = *update.Enabled
	}
	if update.Config != nil {
		// full replacement, not a merge
		cfg, err := DecodeConfig(update.Kind, update.Config)
		if err != nil {
			return nil, err
		}
		encoded, err := EncodeConfig(cfg)
		if err != nil {
			return nil, err
		}
		rule.Config = encoded
	}
	if err := tx.Save(&rule).Error; err != nil {
		return nil, fmt.Errorf("updating rule: %w", err)
	}
	return &rule, nil
}

// Remove hard-deletes the rule row. The next scheduler tick treats the agent
// as having no rule of this kind at all.
func (s *RuleStore) Remove(ctx context.Context, agent models.Uid, kind RuleKind) error {
	res := s.db.WithContext(ctx).Unscoped().
		Where("agent = ? AND kind = ?", agent, kind).
		Delete(&Rule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEnabled returns every enabled rule across all agents, for scheduler
// dispatch.
func (s *RuleStore) ListEnabled(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	if err := s.db.WithContext(ctx).Find(&rules, "enabled = ?", true).Error; err != nil {
		return nil, fmt.Errorf("loading enabled rules: %w", err)
	}
	return rules, nil
}

type AgentStats struct {
	EnabledRules  int64              `json:"enabledRules"`
	TotalTriggers int64              `json:"totalTriggers"`
	ByKind        map[RuleKind]int64 `json:"triggersByKind"`
	LastActivity  *time.Time         `json:"lastActivity,omitempty"`
}

func (s *RuleStore) StatsForAgent(ctx context.Context, agent models.Uid) (*AgentStats, error) {
	var rules []Rule
	if err := s.db.WithContext(ctx).Find(&rules, "agent = ?", agent).Error; err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	stats := AgentStats{ByKind: make(map[RuleKind]int64)}
	for _, r := range rules {
		if r.Enabled {
			stats.EnabledRules++
		}
		stats.TotalTriggers += r.TriggerCount
		if r.TriggerCount > 0 {
			stats.ByKind[r.Kind] = r.TriggerCount
		}
		if r.LastTriggeredAt != nil && (stats.LastActivity == nil || r.LastTriggeredAt.After(*stats.LastActivity)) {
			t := *r.LastTriggeredAt
			stats.LastActivity = &t
		}
	}
	return &stats, nil
}
