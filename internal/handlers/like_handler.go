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

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	engine         *engine.Engine
	likeRepository repositories.LikeRepository
	cache          *cache.Cache
	logger         *zap.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(eng *engine.Engine, likeRepo repositories.LikeRepository, c *cache.Cache, logger *zap.Logger) *LikeHandler {
	return &LikeHandler{
		engine:         eng,
		likeRepository: likeRepo,
		cache:          c,
		logger:         logger.Named("like_handler"),
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes", h.LikePost)
	g.DELETE("/posts/:post_id/likes", h.UnlikePost)
	g.GET("/posts/:post_id/likes", h.GetLikesCount)
	g.GET("/posts/:post_id/likes/status", h.GetUserLikeStatusForPost)
	g.GET("/users/me/liked-posts", h.GetLikedPosts)
}

// GetLikesCount retrieves the number of likes on a post
func (h *LikeHandler) GetLikesCount(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	count, err := h.likeRepository.GetLikesCountByPostID(uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	like, err := h.engine.Like(c.Request().Context(), currentUserID, uint(postID))
	if err != nil {
		return httpError(err)
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "posts:*")

	return c.JSON(http.StatusCreated, like)
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	if err := h.engine.Unlike(c.Request().Context(), currentUserID, uint(postID)); err != nil {
		return httpError(err)
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "posts:*")

	return c.NoContent(http.StatusNoContent)
}

// GetUserLikeStatusForPost checks if the authenticated user has liked a specific post
func (h *LikeHandler) GetUserLikeStatusForPost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("post_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	hasLiked, err := h.likeRepository.HasUserLikedPost(currentUserID, uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"post_id": postID, "user_id": currentUserID, "has_liked": hasLiked})
}

// GetLikedPosts lists the posts the authenticated user has liked
func (h *LikeHandler) GetLikedPosts(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	posts, err := h.likeRepository.GetUserLikedPosts(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "count": len(posts)})
}
