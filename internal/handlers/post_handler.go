package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/notify"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository   repositories.PostRepository
	followRepository repositories.FollowRepository
	cache            *cache.Cache
	batcher          *notify.Batcher
	logger           *zap.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, followRepo repositories.FollowRepository, c *cache.Cache, batcher *notify.Batcher, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		postRepository:   postRepo,
		followRepository: followRepo,
		cache:            c,
		batcher:          batcher,
		logger:           logger.Named("post_handler"),
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/users/:id/posts", h.GetUserPosts)
	g.GET("/users/me/feed", h.GetFeed)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
}

// postPage is the cached shape of a posts listing read.
type postPage struct {
	Posts      []models.Post `json:"posts"`
	TotalCount int64         `json:"totalCount"`
}

// CreatePost creates a new post, evicts the posts listings from the cache and
// records a content event for the notification batcher.
func (h *PostHandler) CreatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	post := &models.Post{
		AuthorID: currentUserID,
		Content:  req.Content,
	}

	ctx := c.Request().Context()
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(ctx, h.cache, h.logger, "posts:*")

	// Fire-and-forget: the batcher decides when and whether to push.
	h.batcher.RecordEvent(ctx, "posts")

	return c.JSON(http.StatusCreated, post)
}

// GetPosts retrieves a page of posts using the cache-aside pattern
func (h *PostHandler) GetPosts(c echo.Context) error {
	skip, limit := pageParams(c, 10)
	ctx := c.Request().Context()

	key := cache.Key("posts", url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	})

	if cached, ok := h.cache.Get(ctx, key); ok {
		var page postPage
		if err := json.Unmarshal([]byte(cached), &page); err == nil {
			return c.JSON(http.StatusOK, page)
		}
		h.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	posts, total, err := h.postRepository.GetAllPosts(ctx, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	page := postPage{Posts: posts, TotalCount: total}
	if encoded, err := json.Marshal(page); err == nil {
		if err := h.cache.Set(ctx, key, string(encoded), cache.DefaultTTL); err != nil {
			h.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, page)
}

// GetUserPosts retrieves a page of posts by a specific author
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	authorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	skip, limit := pageParams(c, 10)
	posts, err := h.postRepository.GetPostsByAuthor(c.Request().Context(), uint(authorID), skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "count": len(posts)})
}

// GetFeed retrieves a page of posts by the authors the authenticated user
// follows, newest first
func (h *PostHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	followingIDs, err := h.followRepository.GetFollowingIDs(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	skip, limit := pageParams(c, 10)
	posts, total, err := h.postRepository.GetPostsByAuthors(c.Request().Context(), followingIDs, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, postPage{Posts: posts, TotalCount: total})
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	return c.JSON(http.StatusOK, post)
}

// UpdatePost updates an existing post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	existingPost, err := h.postRepository.GetPostByID(ctx, uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	// Ensure the user updating the post is the owner
	if existingPost.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	existingPost.Content = req.Content
	if err := h.postRepository.UpdatePost(ctx, existingPost); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(ctx, h.cache, h.logger, "posts:*")

	return c.JSON(http.StatusOK, existingPost)
}

// DeletePost deletes a post
func (h *PostHandler) DeletePost(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	ctx := c.Request().Context()
	existingPost, err := h.postRepository.GetPostByID(ctx, uint(postID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}

	// Ensure the user deleting the post is the owner
	if existingPost.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(ctx, uint(postID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(ctx, h.cache, h.logger, "posts:*")

	return c.NoContent(http.StatusNoContent)
}
