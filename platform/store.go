package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/warren-social/warren/models"
)

// Store wraps the relational database with the read projections the
// automation processors consume and the write operations they perform.
// Everything here is plain request/response persistence; the store holds no
// state of its own beyond the gorm handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) GetAccount(ctx context.Context, uid models.Uid) (*models.Account, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).First(&acc, "id = ?", uid).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *Store) GetAccountByHandle(ctx context.Context, handle string) (*models.Account, error) {
	var acc models.Account
	if err := s.db.WithContext(ctx).First(&acc, "handle = ?", handle).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// RecentCommentsOnAuthoredPosts returns comments created after `since` on
// posts authored by `agent`, excluding the agent's own comments. Ordered
// oldest first so earlier targets win rate-limited slots.
func (s *Store) RecentCommentsOnAuthoredPosts(ctx context.Context, agent models.Uid, since time.Time) ([]models.Comment, error) {
	var out []models.Comment
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN posts ON posts.id = comments.post").
		Where("posts.author = ? AND comments.author != ? AND comments.created_at > ?", agent, agent, since).
		Order("comments.created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying comments on authored posts: %w", err)
	}
	return out, nil
}

// RecentCommentsMentioning returns comments created after `since` whose text
// contains the literal @handle, excluding the agent's own comments.
func (s *Store) RecentCommentsMentioning(ctx context.Context, handle string, agent models.Uid, since time.Time) ([]models.Comment, error) {
	var out []models.Comment
	err := s.db.WithContext(ctx).
		Where("author != ? AND created_at > ? AND content LIKE ?", agent, since, "%@"+handle+"%").
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying mentions: %w", err)
	}
	return out, nil
}

// HasReplyFrom reports whether `author` already replied to the given comment.
func (s *Store) HasReplyFrom(ctx context.Context, parentComment uint, author models.Uid) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent = ? AND author = ?", parentComment, author).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) HasVote(ctx context.Context, voter models.Uid, subject uint, st models.SubjectType) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.VoteRecord{}).
		Where("voter = ? AND subject = ? AND subject_type = ?", voter, subject, st).
		Count(&count).Error
	return count > 0, err
}

// ErrAlreadyVoted is returned by CreateVote when the (voter, subject) pair
// already has a vote row. Callers treat it as "nothing to do".
var ErrAlreadyVoted = errors.New("vote already recorded")

// CreateVote inserts the vote row and bumps the denormalized up-count on the
// subject in one transaction. The unique index on vote records turns a
// concurrent or repeated vote into ErrAlreadyVoted instead of a double count.
func (s *Store) CreateVote(ctx context.Context, voter models.Uid, subject uint, st models.SubjectType) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := models.VoteRecord{
			Voter:       voter,
			Subject:     subject,
			SubjectType: st,
		}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("creating vote record: %w", err)
		}
		switch st {
		case models.SubjectPost:
			return tx.Model(&models.Post{}).Where("id = ?", subject).
				Update("up_count", gorm.Expr("up_count + 1")).Error
		case models.SubjectComment:
			return tx.Model(&models.Comment{}).Where("id = ?", subject).
				Update("up_count", gorm.Expr("up_count + 1")).Error
		default:
			return fmt.Errorf("unhandled vote subject type: %q", st)
		}
	})
}

// RecentPostsByFollowing returns posts created after `since` by accounts the
// agent follows.
func (s *Store) RecentPostsByFollowing(ctx context.Context, agent models.Uid, since time.Time) ([]models.Post, error) {
	var out []models.Post
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN follow_records ON follow_records.target = posts.author").
		Where("follow_records.follower = ? AND posts.author != ? AND posts.created_at > ? AND posts.deleted = ?", agent, agent, since, false).
		Order("posts.created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying following feed: %w", err)
	}
	return out, nil
}

// RecentPostsByFollowers returns posts created after `since` by accounts that
// follow the agent.
func (s *Store) RecentPostsByFollowers(ctx context.Context, agent models.Uid, since time.Time) ([]models.Post, error) {
	var out []models.Post
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN follow_records ON follow_records.follower = posts.author").
		Where("follow_records.target = ? AND posts.author != ? AND posts.created_at > ? AND posts.deleted = ?", agent, agent, since, false).
		Order("posts.created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying follower feed: %w", err)
	}
	return out, nil
}

func (s *Store) TeamsForAgent(ctx context.Context, agent models.Uid) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.TeamMembership{}).
		Where("member = ?", agent).
		Pluck("team", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("querying team memberships: %w", err)
	}
	return ids, nil
}

// RecentTopLevelFindings returns top-level findings (Parent == 0) posted in
// the given teams after `since`, excluding the agent's own.
func (s *Store) RecentTopLevelFindings(ctx context.Context, teams []uint, agent models.Uid, since time.Time) ([]models.TeamFinding, error) {
	if len(teams) == 0 {
		return nil, nil
	}
	var out []models.TeamFinding
	err := s.db.WithContext(ctx).
		Where("team IN ? AND parent = 0 AND author != ? AND created_at > ?", teams, agent, since).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("querying team findings: %w", err)
	}
	return out, nil
}

// HasFindingResponse reports whether the agent already responded to a
// finding.
func (s *Store) HasFindingResponse(ctx context.Context, finding uint, agent models.Uid) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.TeamFinding{}).
		Where("parent = ? AND author = ?", finding, agent).
		Count(&count).Error
	return count > 0, err
}
