// Package engine executes relationship mutations (follow/unfollow,
// like/unlike, user deletion) as single transactions that change the
// relationship rows and their denormalized counters together, so the counters
// never drift from the rows.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/devlinkhq/backend/internal/apperrors"
	"github.com/devlinkhq/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTimeout bounds every engine transaction. An operation that exceeds
// it reports Unavailable instead of hanging.
const DefaultTimeout = 5 * time.Second

// Engine performs counter-consistent relationship mutations over the
// relational store. All correctness under concurrency comes from the store's
// transactions and unique indexes, not from in-process locking.
type Engine struct {
	db      *gorm.DB
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an Engine. A non-positive timeout falls back to DefaultTimeout.
func New(db *gorm.DB, timeout time.Duration, logger *zap.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		db:      db,
		timeout: timeout,
		logger:  logger.Named("engine"),
	}
}

// Follow creates a follower->target relationship and increments both users'
// counters atomically. Returns the created relationship.
func (e *Engine) Follow(ctx context.Context, followerID, targetID uint) (*models.Follow, error) {
	if followerID == targetID {
		return nil, apperrors.InvalidOperation("users cannot follow themselves")
	}

	ctx, cancel := e.opContext(ctx)
	defer cancel()

	var follow models.Follow
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var endpoints int64
		if err := tx.Model(&models.User{}).Where("id IN ?", []uint{followerID, targetID}).Count(&endpoints).Error; err != nil {
			return err
		}
		if endpoints != 2 {
			return apperrors.NotFound("user not found")
		}

		var existing int64
		if err := tx.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", followerID, targetID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.Conflict("already following user %d", targetID)
		}

		follow = models.Follow{FollowerID: followerID, FollowingID: targetID}
		if err := tx.Create(&follow).Error; err != nil {
			// The unique index on (follower_id, following_id) catches the
			// race where the existence check passed in both of two
			// concurrent transactions.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("already following user %d", targetID)
			}
			return err
		}

		if err := e.adjustUserCounter(tx, followerID, "following_count", +1); err != nil {
			return err
		}
		return e.adjustUserCounter(tx, targetID, "followers_count", +1)
	})
	if err != nil {
		return nil, e.finish(ctx, "follow", err,
			zap.Uint("followerID", followerID), zap.Uint("targetID", targetID))
	}
	return &follow, nil
}

// Unfollow removes a follower->target relationship and decrements both
// counters atomically. A second call for the same pair fails with NotFound.
func (e *Engine) Unfollow(ctx context.Context, followerID, targetID uint) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, targetID).
			Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("not following user %d", targetID)
		}

		if err := e.adjustUserCounter(tx, followerID, "following_count", -1); err != nil {
			return err
		}
		return e.adjustUserCounter(tx, targetID, "followers_count", -1)
	})
	return e.finish(ctx, "unfollow", err,
		zap.Uint("followerID", followerID), zap.Uint("targetID", targetID))
}

// Like creates a user->post like and increments the post's like count
// atomically. Liking your own post is rejected before any store access is
// committed.
func (e *Engine) Like(ctx context.Context, userID, postID uint) (*models.Like, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	var like models.Like
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user %d not found", userID)
			}
			return err
		}

		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("post %d not found", postID)
			}
			return err
		}
		if post.AuthorID == userID {
			return apperrors.InvalidOperation("users cannot like their own posts")
		}

		var existing int64
		if err := tx.Model(&models.Like{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.Conflict("post %d already liked", postID)
		}

		like = models.Like{UserID: userID, PostID: postID}
		if err := tx.Create(&like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("post %d already liked", postID)
			}
			return err
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return nil, e.finish(ctx, "like", err,
			zap.Uint("userID", userID), zap.Uint("postID", postID))
	}
	return &like, nil
}

// Unlike removes a user->post like and decrements the post's like count
// atomically. Fails with NotFound when no like exists.
func (e *Engine) Unlike(ctx context.Context, userID, postID uint) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("post %d not liked", postID)
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	})
	return e.finish(ctx, "unlike", err,
		zap.Uint("userID", userID), zap.Uint("postID", postID))
}

// DeleteUser removes a user together with every relationship that references
// them, adjusting all counterpart counters, in one transaction. A user with N
// edges costs 2N counter adjustments plus the row deletions, all-or-nothing.
func (e *Engine) DeleteUser(ctx context.Context, targetID uint) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user %d not found", targetID)
			}
			return err
		}

		if err := e.removeFollowEdges(tx, targetID); err != nil {
			return err
		}
		if err := e.removeLikesByUser(tx, targetID); err != nil {
			return err
		}
		if err := e.removePostsByUser(tx, targetID); err != nil {
			return err
		}
		if err := e.removeJobsByUser(tx, targetID); err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", targetID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
	return e.finish(ctx, "deleteUser", err, zap.Uint("targetID", targetID))
}

// removeFollowEdges deletes every follow row touching the user and decrements
// the counterpart counter on the other end of each edge. Pairs are unique, so
// one UPDATE per direction covers every counterpart exactly once.
func (e *Engine) removeFollowEdges(tx *gorm.DB, targetID uint) error {
	var followerIDs []uint
	if err := tx.Model(&models.Follow{}).Where("following_id = ?", targetID).
		Pluck("follower_id", &followerIDs).Error; err != nil {
		return err
	}
	var followingIDs []uint
	if err := tx.Model(&models.Follow{}).Where("follower_id = ?", targetID).
		Pluck("following_id", &followingIDs).Error; err != nil {
		return err
	}

	if len(followerIDs) > 0 {
		if err := tx.Model(&models.User{}).Where("id IN ?", followerIDs).
			UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
			return err
		}
	}
	if len(followingIDs) > 0 {
		if err := tx.Model(&models.User{}).Where("id IN ?", followingIDs).
			UpdateColumn("followers_count", gorm.Expr("followers_count - 1")).Error; err != nil {
			return err
		}
	}

	return tx.Where("follower_id = ? OR following_id = ?", targetID, targetID).
		Delete(&models.Follow{}).Error
}

// removeLikesByUser deletes the user's likes and decrements the like count of
// every post they had liked.
func (e *Engine) removeLikesByUser(tx *gorm.DB, targetID uint) error {
	var likedPostIDs []uint
	if err := tx.Model(&models.Like{}).Where("user_id = ?", targetID).
		Pluck("post_id", &likedPostIDs).Error; err != nil {
		return err
	}
	if len(likedPostIDs) > 0 {
		if err := tx.Model(&models.Post{}).Where("id IN ?", likedPostIDs).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
			return err
		}
	}
	return tx.Where("user_id = ?", targetID).Delete(&models.Like{}).Error
}

// removePostsByUser deletes the user's posts along with the like rows and
// comments pointing at them. The posts die with the user, so their counters
// need no adjustment.
func (e *Engine) removePostsByUser(tx *gorm.DB, targetID uint) error {
	var postIDs []uint
	if err := tx.Model(&models.Post{}).Where("author_id = ?", targetID).
		Pluck("id", &postIDs).Error; err != nil {
		return err
	}
	if len(postIDs) == 0 {
		return nil
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error
}

// removeJobsByUser deletes the user's job applications, their postings and
// the applications those postings received.
func (e *Engine) removeJobsByUser(tx *gorm.DB, targetID uint) error {
	if err := tx.Where("applicant_id = ?", targetID).Delete(&models.JobApplication{}).Error; err != nil {
		return err
	}
	var postingIDs []uint
	if err := tx.Model(&models.JobPosting{}).Where("job_author_id = ?", targetID).
		Pluck("id", &postingIDs).Error; err != nil {
		return err
	}
	if len(postingIDs) == 0 {
		return nil
	}
	if err := tx.Where("job_posting_id IN ?", postingIDs).Delete(&models.JobApplication{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", postingIDs).Delete(&models.JobPosting{}).Error
}

func (e *Engine) adjustUserCounter(tx *gorm.DB, userID uint, column string, delta int) error {
	expr := gorm.Expr(column+" + ?", delta)
	return tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn(column, expr).Error
}

func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// finish translates transaction outcomes into the failure taxonomy. Business
// failures pass through unchanged; a store timeout becomes Unavailable;
// anything else is logged and returned as-is for the boundary to treat as
// internal.
func (e *Engine) finish(ctx context.Context, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrInvalidOperation):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		e.logger.Warn("store transaction timed out", append(fields, zap.String("op", op))...)
		return apperrors.Unavailable("%s: store did not respond in time", op)
	default:
		e.logger.Error("store transaction failed", append(fields, zap.String("op", op), zap.Error(err))...)
		return err
	}
}
