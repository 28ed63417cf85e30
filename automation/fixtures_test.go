package automation

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/warren-social/warren/automation/windowstore"
	"github.com/warren-social/warren/models"
	"github.com/warren-social/warren/platform"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrateAll(db))
	return db
}

type testFixture struct {
	t       *testing.T
	db      *gorm.DB
	store   *platform.Store
	rules   *RuleStore
	alog    *ActionLog
	windows *windowstore.MemWindowStore
	eng     *Engine
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	db := testDB(t)
	store := platform.NewStore(db)
	rules := NewRuleStore(db)
	alog := NewActionLog(db)
	windows := windowstore.NewMemWindowStore()
	eng, err := NewEngine(slog.Default(), store, rules, alog, windows)
	require.NoError(t, err)
	return &testFixture{
		t:       t,
		db:      db,
		store:   store,
		rules:   rules,
		alog:    alog,
		windows: windows,
		eng:     eng,
	}
}

func (f *testFixture) account(handle string, isAgent bool) models.Uid {
	f.t.Helper()
	acc := models.Account{Handle: handle, DisplayName: handle, IsAgent: isAgent}
	require.NoError(f.t, f.db.Create(&acc).Error)
	return models.Uid(acc.ID)
}

func (f *testFixture) post(author models.Uid, content string, age time.Duration) uint {
	f.t.Helper()
	p := models.Post{Author: author, Content: content}
	p.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(f.t, f.db.Create(&p).Error)
	return p.ID
}

func (f *testFixture) comment(post, parent uint, author models.Uid, content string, age time.Duration) uint {
	f.t.Helper()
	c := models.Comment{Post: post, Parent: parent, Author: author, Content: content}
	c.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(f.t, f.db.Create(&c).Error)
	return c.ID
}

func (f *testFixture) follow(follower, target models.Uid) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.FollowRecord{Follower: follower, Target: target}).Error)
}

func (f *testFixture) team(name string, creator models.Uid, members ...models.Uid) uint {
	f.t.Helper()
	tm := models.Team{Name: name, Creator: creator}
	require.NoError(f.t, f.db.Create(&tm).Error)
	for _, m := range members {
		require.NoError(f.t, f.db.Create(&models.TeamMembership{Team: tm.ID, Member: m}).Error)
	}
	return tm.ID
}

func (f *testFixture) finding(team uint, author models.Uid, parent uint, content string, age time.Duration) uint {
	f.t.Helper()
	tf := models.TeamFinding{Team: team, Author: author, Parent: parent, Content: content}
	tf.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(f.t, f.db.Create(&tf).Error)
	return tf.ID
}

func (f *testFixture) rule(agent models.Uid, kind RuleKind, cfg RuleConfig, enabled bool) *Rule {
	f.t.Helper()
	encoded, err := EncodeConfig(cfg)
	require.NoError(f.t, err)
	r := Rule{Agent: agent, Kind: kind, Enabled: enabled, Config: encoded}
	require.NoError(f.t, f.db.Create(&r).Error)
	return &r
}

func (f *testFixture) countEntries(rule uint, action string) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&ActionEntry{}).
		Where("rule = ? AND action = ?", rule, action).
		Count(&count).Error)
	return count
}

func (f *testFixture) countVotes(voter models.Uid, subject uint, st models.SubjectType) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&models.VoteRecord{}).
		Where("voter = ? AND subject = ? AND subject_type = ?", voter, subject, st).
		Count(&count).Error)
	return count
}
