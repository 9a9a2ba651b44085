package repositories

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/devlinkhq/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPostRepo(t *testing.T) (*PostgresPostRepository, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}, &models.Comment{}))

	return NewPostgresPostRepository(db), db
}

func TestRecentSinceReturnsNewPostsNewestFirst(t *testing.T) {
	repo, db := setupPostRepo(t)
	ctx := t.Context()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		post := &models.Post{
			AuthorID:  1,
			Content:   "post " + strconv.Itoa(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(post).Error)
	}

	posts, total, err := repo.RecentSince(ctx, base.Add(90*time.Second), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 3)
	assert.Equal(t, "post 4", posts[0].Content)
	assert.Equal(t, "post 2", posts[2].Content)
}

func TestRecentSinceTotalCountsBeyondLimit(t *testing.T) {
	repo, db := setupPostRepo(t)
	ctx := t.Context()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		post := &models.Post{
			AuthorID:  1,
			Content:   "post " + strconv.Itoa(i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(post).Error)
	}

	posts, total, err := repo.RecentSince(ctx, base.Add(-time.Second), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)
	assert.Len(t, posts, 3)
}

func TestRecentSinceEmptyWindow(t *testing.T) {
	repo, db := setupPostRepo(t)
	ctx := t.Context()

	require.NoError(t, db.Create(&models.Post{AuthorID: 1, Content: "old"}).Error)

	posts, total, err := repo.RecentSince(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, posts)
}

func TestDeletePostRemovesLikesAndComments(t *testing.T) {
	repo, db := setupPostRepo(t)
	ctx := t.Context()

	post := &models.Post{AuthorID: 1, Content: "to delete"}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.Like{UserID: 2, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, AuthorID: 2, Content: "nice"}).Error)

	require.NoError(t, repo.DeletePost(ctx, post.ID))

	var likes, comments int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	assert.Zero(t, likes)
	assert.Zero(t, comments)
}
