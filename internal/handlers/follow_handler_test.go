package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type followHarness struct {
	db      *gorm.DB
	handler *FollowHandler
	cache   *cache.Cache
	echo    *echo.Echo
}

func newFollowHarness(t *testing.T) *followHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Follow{}, &models.Post{}, &models.Like{},
		&models.Comment{}, &models.JobPosting{}, &models.JobApplication{},
	))

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	log := zap.NewNop()
	appCache := cache.New(client, 0, log)
	eng := engine.New(db, 0, log)
	followRepo := repositories.NewPostgresFollowRepository(db)

	return &followHarness{
		db:      db,
		handler: NewFollowHandler(eng, followRepo, appCache, log),
		cache:   appCache,
		echo:    echo.New(),
	}
}

func (h *followHarness) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{
		FirebaseUID: "uid-" + name,
		Name:        name,
		Email:       name + "@example.com",
	}
	require.NoError(t, h.db.Create(user).Error)
	return user
}

func (h *followHarness) followRequest(method string, currentUserID, targetID uint) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := h.echo.NewContext(req, rec)
	c.SetPath("/users/:id/follow")
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(targetID), 10))
	if currentUserID != 0 {
		c.Set("userID", currentUserID)
	}
	return c, rec
}

func TestFollowUserCreatesEdgeAndEvictsCache(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")
	bob := h.seedUser(t, "bob")

	ctx := t.Context()
	require.NoError(t, h.cache.Set(ctx, "users:limit=10&offset=0", "stale-page", 0))

	c, rec := h.followRequest(http.MethodPost, alice.ID, bob.ID)
	require.NoError(t, h.handler.FollowUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var count int64
	require.NoError(t, h.db.Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", alice.ID, bob.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var target models.User
	require.NoError(t, h.db.First(&target, bob.ID).Error)
	assert.Equal(t, 1, target.FollowersCount)

	_, ok := h.cache.Get(ctx, "users:limit=10&offset=0")
	assert.False(t, ok, "listing entry should be evicted after a follow")
}

func TestFollowUserTwiceReturnsConflict(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")
	bob := h.seedUser(t, "bob")

	c, _ := h.followRequest(http.MethodPost, alice.ID, bob.ID)
	require.NoError(t, h.handler.FollowUser(c))

	c, _ = h.followRequest(http.MethodPost, alice.ID, bob.ID)
	err := h.handler.FollowUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
}

func TestFollowSelfReturnsBadRequest(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")

	c, _ := h.followRequest(http.MethodPost, alice.ID, alice.ID)
	err := h.handler.FollowUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestFollowMissingUserReturnsNotFound(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")

	c, _ := h.followRequest(http.MethodPost, alice.ID, 9999)
	err := h.handler.FollowUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestFollowRequiresAuthentication(t *testing.T) {
	h := newFollowHarness(t)
	bob := h.seedUser(t, "bob")

	c, _ := h.followRequest(http.MethodPost, 0, bob.ID)
	err := h.handler.FollowUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestUnfollowWithoutFollowReturnsNotFound(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")
	bob := h.seedUser(t, "bob")

	c, _ := h.followRequest(http.MethodDelete, alice.ID, bob.ID)
	err := h.handler.UnfollowUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestUnfollowReversesFollow(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")
	bob := h.seedUser(t, "bob")

	c, _ := h.followRequest(http.MethodPost, alice.ID, bob.ID)
	require.NoError(t, h.handler.FollowUser(c))

	c, rec := h.followRequest(http.MethodDelete, alice.ID, bob.ID)
	require.NoError(t, h.handler.UnfollowUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var target models.User
	require.NoError(t, h.db.First(&target, bob.ID).Error)
	assert.Equal(t, 0, target.FollowersCount)
}

func TestFollowStatusReflectsEdge(t *testing.T) {
	h := newFollowHarness(t)
	alice := h.seedUser(t, "alice")
	bob := h.seedUser(t, "bob")

	status := func() map[string]bool {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := h.echo.NewContext(req, rec)
		c.SetPath("/users/:id/follow/status")
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatUint(uint64(bob.ID), 10))
		c.Set("userID", alice.ID)
		require.NoError(t, h.handler.GetFollowStatus(c))

		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	assert.False(t, status()["following"])

	c, _ := h.followRequest(http.MethodPost, alice.ID, bob.ID)
	require.NoError(t, h.handler.FollowUser(c))
	assert.True(t, status()["following"])

	c, _ = h.followRequest(http.MethodDelete, alice.ID, bob.ID)
	require.NoError(t, h.handler.UnfollowUser(c))
	assert.False(t, status()["following"])
}
