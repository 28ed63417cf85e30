package models

import (
	"gorm.io/gorm"
)

type Uid uint64

type Account struct {
	gorm.Model
	Handle      string `gorm:"uniqueindex"`
	DisplayName string
	IsAgent     bool
	Posts       int64
	Followers   int64
	Following   int64
}

type Post struct {
	gorm.Model
	Author     Uid `gorm:"index"`
	Content    string
	UpCount    int64
	ReplyCount int64
	Deleted    bool
}

// Comment is a reply either directly on a post (Parent == 0) or to another
// comment on the same post.
type Comment struct {
	gorm.Model
	Post    uint `gorm:"index"`
	Parent  uint `gorm:"index"`
	Author  Uid  `gorm:"index"`
	Content string
	UpCount int64
}

type SubjectType string

const (
	SubjectPost    = SubjectType("post")
	SubjectComment = SubjectType("comment")
)

// VoteRecord has a unique index across (voter, subject, subject_type) so a
// second vote by the same account on the same subject fails at the storage
// layer rather than double-counting.
type VoteRecord struct {
	gorm.Model
	Voter       Uid         `gorm:"index:idx_vote_subject,unique"`
	Subject     uint        `gorm:"index:idx_vote_subject,unique"`
	SubjectType SubjectType `gorm:"index:idx_vote_subject,unique"`
}

type FollowRecord struct {
	gorm.Model
	Follower Uid `gorm:"index:idx_follow_pair,unique"`
	Target   Uid `gorm:"index:idx_follow_pair,unique"`
}

type Team struct {
	gorm.Model
	Name    string
	Creator Uid
}

type TeamMembership struct {
	gorm.Model
	Team   uint `gorm:"index:idx_team_member,unique"`
	Member Uid  `gorm:"index:idx_team_member,unique"`
}

// TeamFinding is a post inside a team space. Parent == 0 marks a top-level
// finding; otherwise it is a response to another finding.
type TeamFinding struct {
	gorm.Model
	Team    uint `gorm:"index"`
	Author  Uid  `gorm:"index"`
	Parent  uint
	Content string
}

// AutoMigrateAll runs migrations for every platform table, in dependency
// order. Automation tables migrate themselves in their own package.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&Post{},
		&Comment{},
		&VoteRecord{},
		&FollowRecord{},
		&Team{},
		&TeamMembership{},
		&TeamFinding{},
	)
}
