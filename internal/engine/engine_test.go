package engine_test

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/devlinkhq/backend/internal/apperrors"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*engine.Engine, *gorm.DB) {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same in-memory store.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.JobPosting{},
		&models.JobApplication{},
	))

	eng := engine.New(db, 5*time.Second, zap.NewNop())
	return eng, db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{FirebaseUID: "uid-" + name, Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createPost(t *testing.T, db *gorm.DB, authorID uint, content string) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: authorID, Content: content}
	require.NoError(t, db.Create(post).Error)
	return post
}

// requireCounterInvariant recounts the relationship rows and asserts every
// denormalized counter matches them exactly.
func requireCounterInvariant(t *testing.T, db *gorm.DB) {
	t.Helper()

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		var followers, following int64
		require.NoError(t, db.Model(&models.Follow{}).Where("following_id = ?", u.ID).Count(&followers).Error)
		require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ?", u.ID).Count(&following).Error)
		require.EqualValues(t, followers, u.FollowersCount, "followers count drifted for user %d", u.ID)
		require.EqualValues(t, following, u.FollowingCount, "following count drifted for user %d", u.ID)
	}

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		var likes int64
		require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes).Error)
		require.EqualValues(t, likes, p.LikeCount, "like count drifted for post %d", p.ID)
	}
}

func TestFollowUpdatesBothCounters(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	follow, err := eng.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, follow.FollowerID)
	assert.Equal(t, bob.ID, follow.FollowingID)

	var freshAlice, freshBob models.User
	require.NoError(t, db.First(&freshAlice, alice.ID).Error)
	require.NoError(t, db.First(&freshBob, bob.ID).Error)
	assert.Equal(t, 1, freshAlice.FollowingCount)
	assert.Equal(t, 0, freshAlice.FollowersCount)
	assert.Equal(t, 1, freshBob.FollowersCount)
	assert.Equal(t, 0, freshBob.FollowingCount)

	requireCounterInvariant(t, db)
}

func TestSelfFollowRejected(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")

	_, err := eng.Follow(ctx, alice.ID, alice.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)

	var fresh models.User
	require.NoError(t, db.First(&fresh, alice.ID).Error)
	assert.Equal(t, 0, fresh.FollowersCount)
	assert.Equal(t, 0, fresh.FollowingCount)
}

func TestFollowMissingUser(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")

	_, err := eng.Follow(ctx, alice.ID, alice.ID+100)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	requireCounterInvariant(t, db)
}

func TestDuplicateFollowConflicts(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := eng.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = eng.Follow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	// Counters changed exactly once.
	var freshBob models.User
	require.NoError(t, db.First(&freshBob, bob.ID).Error)
	assert.Equal(t, 1, freshBob.FollowersCount)
	requireCounterInvariant(t, db)
}

func TestUnfollowWithoutFollow(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	err := eng.Unfollow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	requireCounterInvariant(t, db)
}

func TestUnfollowIsNotIdempotent(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := eng.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, eng.Unfollow(ctx, alice.ID, bob.ID))

	err = eng.Unfollow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	requireCounterInvariant(t, db)
}

func TestFollowUnfollowSequencesKeepInvariant(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	users := make([]*models.User, 5)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("user%d", i))
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := users[rng.Intn(len(users))].ID
		b := users[rng.Intn(len(users))].ID
		if rng.Intn(2) == 0 {
			_, _ = eng.Follow(ctx, a, b)
		} else {
			_ = eng.Unfollow(ctx, a, b)
		}
		requireCounterInvariant(t, db)
	}
}

func TestLikeAndUnlike(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	post := createPost(t, db, author.ID, "hello")

	like, err := eng.Like(ctx, reader.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, reader.ID, like.UserID)

	var fresh models.Post
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 1, fresh.LikeCount)

	// Duplicate like conflicts, counter unchanged.
	_, err = eng.Like(ctx, reader.ID, post.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 1, fresh.LikeCount)

	require.NoError(t, eng.Unlike(ctx, reader.ID, post.ID))
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 0, fresh.LikeCount)

	err = eng.Unlike(ctx, reader.ID, post.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	requireCounterInvariant(t, db)
}

func TestLikeOwnPostRejected(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	author := createUser(t, db, "author")
	post := createPost(t, db, author.ID, "mine")

	_, err := eng.Like(ctx, author.ID, post.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidOperation)

	var fresh models.Post
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 0, fresh.LikeCount)
}

func TestLikeMissingPost(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	reader := createUser(t, db, "reader")

	_, err := eng.Like(ctx, reader.ID, 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteUserFanOut(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)
	ctx := t.Context()

	target := createUser(t, db, "target")
	followers := []*models.User{
		createUser(t, db, "f1"),
		createUser(t, db, "f2"),
		createUser(t, db, "f3"),
	}
	followees := []*models.User{
		createUser(t, db, "g1"),
		createUser(t, db, "g2"),
	}

	for _, f := range followers {
		_, err := eng.Follow(ctx, f.ID, target.ID)
		require.NoError(t, err)
	}
	for _, g := range followees {
		_, err := eng.Follow(ctx, target.ID, g.ID)
		require.NoError(t, err)
	}

	// The target also liked a post that outlives them.
	outsider := createUser(t, db, "outsider")
	likedPost := createPost(t, db, outsider.ID, "survivor")
	_, err := eng.Like(ctx, target.ID, likedPost.ID)
	require.NoError(t, err)

	require.NoError(t, eng.DeleteUser(ctx, target.ID))

	// All 5 counterpart counters decreased by exactly 1.
	for _, f := range followers {
		var fresh models.User
		require.NoError(t, db.First(&fresh, f.ID).Error)
		assert.Equal(t, 0, fresh.FollowingCount, "follower %s", fresh.Name)
	}
	for _, g := range followees {
		var fresh models.User
		require.NoError(t, db.First(&fresh, g.ID).Error)
		assert.Equal(t, 0, fresh.FollowersCount, "followee %s", fresh.Name)
	}

	// All relationship rows are gone and the user no longer exists.
	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? OR following_id = ?", target.ID, target.ID).
		Count(&edges).Error)
	assert.Zero(t, edges)

	err = db.First(&models.User{}, target.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The surviving post lost the target's like.
	var fresh models.Post
	require.NoError(t, db.First(&fresh, likedPost.ID).Error)
	assert.Equal(t, 0, fresh.LikeCount)

	requireCounterInvariant(t, db)
}

func TestDeleteMissingUser(t *testing.T) {
	t.Parallel()
	eng, _ := setupTest(t)

	err := eng.DeleteUser(t.Context(), 4242)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExpiredDeadlineMapsToUnavailable(t *testing.T) {
	t.Parallel()
	eng, db := setupTest(t)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	ctx, cancel := context.WithDeadline(t.Context(), time.Now().Add(-time.Millisecond))
	defer cancel()

	_, err := eng.Follow(ctx, alice.ID, bob.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	// The timed-out transaction must leave no trace.
	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)
	requireCounterInvariant(t, db)
}
