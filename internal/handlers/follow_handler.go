package handlers

import (
	"net/http"
	"strconv"

	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	engine           *engine.Engine
	followRepository repositories.FollowRepository
	cache            *cache.Cache
	logger           *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(eng *engine.Engine, followRepo repositories.FollowRepository, c *cache.Cache, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{
		engine:           eng,
		followRepository: followRepo,
		cache:            c,
		logger:           logger.Named("follow_handler"),
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/follow/status", h.GetFollowStatus)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	follow, err := h.engine.Follow(c.Request().Context(), currentUserID, uint(targetID))
	if err != nil {
		return httpError(err)
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": follow})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.engine.Unfollow(c.Request().Context(), currentUserID, uint(targetID)); err != nil {
		return httpError(err)
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// GetFollowStatus reports whether the authenticated user follows the given
// user
func (h *FollowHandler) GetFollowStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	following, err := h.followRepository.IsFollowing(currentUserID, uint(targetID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"following": following})
}

// GetFollowers lists the users following the given user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	users, err := h.followRepository.GetFollowers(uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"followers": users, "count": len(users)})
}

// GetFollowing lists the users the given user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	users, err := h.followRepository.GetFollowing(uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"following": users, "count": len(users)})
}
