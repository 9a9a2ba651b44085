package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
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

type userHarness struct {
	db      *gorm.DB
	handler *UserHandler
	cache   *cache.Cache
	echo    *echo.Echo
}

func newUserHarness(t *testing.T) *userHarness {
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
	userRepo := repositories.NewPostgresUserRepository(db)

	return &userHarness{
		db:      db,
		handler: NewUserHandler(userRepo, &stubServiceRepository{}, eng, appCache, log),
		cache:   appCache,
		echo:    echo.New(),
	}
}

func TestDisableUserFlipsEnabledAndEvictsCache(t *testing.T) {
	h := newUserHarness(t)
	user := &models.User{FirebaseUID: "uid-carol", Name: "carol", Email: "carol@example.com", Enabled: true}
	require.NoError(t, h.db.Create(user).Error)

	ctx := t.Context()
	require.NoError(t, h.cache.Set(ctx, "users:limit=10&offset=0", "stale-page", 0))

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := h.echo.NewContext(req, rec)
	c.SetPath("/users/me/disable")
	c.Set("userID", user.ID)

	require.NoError(t, h.handler.DisableUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated models.User
	require.NoError(t, h.db.First(&updated, user.ID).Error)
	assert.False(t, updated.Enabled)

	_, ok := h.cache.Get(ctx, "users:limit=10&offset=0")
	assert.False(t, ok, "listing entry should be evicted after a disable")
}

func TestDisableUserRequiresAuthentication(t *testing.T) {
	h := newUserHarness(t)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	rec := httptest.NewRecorder()
	c := h.echo.NewContext(req, rec)
	c.SetPath("/users/me/disable")

	err := h.handler.DisableUser(c)
	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
