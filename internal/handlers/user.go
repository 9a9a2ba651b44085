package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/engine"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	userRepository    repositories.UserRepository
	serviceRepository repositories.ServiceRepository
	engine            *engine.Engine
	cache             *cache.Cache
	logger            *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, serviceRepo repositories.ServiceRepository, eng *engine.Engine, c *cache.Cache, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userRepository:    userRepo,
		serviceRepository: serviceRepo,
		engine:            eng,
		cache:             c,
		logger:            logger.Named("user_handler"),
	}
}

// RegisterUserRoutes registers user profile routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.POST("/users", h.CreateUser)
	g.GET("/users", h.GetUsers)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/me", h.GetMe)
	g.GET("/users/:id", h.GetUserByID)
	g.PUT("/users/me", h.UpdateUser)
	g.PUT("/users/me/role", h.SwitchRole)
	g.PUT("/users/me/disable", h.DisableUser)
	g.DELETE("/users/me", h.DeleteUser)
}

// userPage is the cached shape of a users listing read.
type userPage struct {
	Users      []models.User `json:"users"`
	TotalCount int64         `json:"totalCount"`
}

// CreateUser registers a profile for the verified Firebase identity
func (h *UserHandler) CreateUser(c echo.Context) error {
	firebaseUID, _ := c.Get("firebaseUID").(string)
	if firebaseUID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	role := req.Role
	if role == "" {
		role = models.RoleDeveloper
	}

	user := &models.User{
		FirebaseUID: firebaseUID,
		Name:        req.Name,
		Email:       req.Email,
		ProfilePic:  req.ProfilePic,
		Role:        role,
		Enabled:     true,
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusConflict, "User already exists")
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusCreated, user)
}

// GetUsers retrieves a page of users using the cache-aside pattern
func (h *UserHandler) GetUsers(c echo.Context) error {
	skip, limit := pageParams(c, 20)
	ctx := c.Request().Context()

	key := cache.Key("users", url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	})

	if cached, ok := h.cache.Get(ctx, key); ok {
		var page userPage
		if err := json.Unmarshal([]byte(cached), &page); err == nil {
			return c.JSON(http.StatusOK, page)
		}
		h.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	users, total, err := h.userRepository.GetUsers(skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	page := userPage{Users: users, TotalCount: total}
	if encoded, err := json.Marshal(page); err == nil {
		if err := h.cache.Set(ctx, key, string(encoded), cache.DefaultTTL); err != nil {
			h.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, page)
}

// SearchUsers searches for users by name or email
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}

	users, err := h.userRepository.SearchUsers(query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"users": users, "count": len(users)})
}

// GetMe returns the authenticated user's profile
func (h *UserHandler) GetMe(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	return c.JSON(http.StatusOK, user)
}

// GetUserByID retrieves a user by ID
func (h *UserHandler) GetUserByID(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	user, err := h.userRepository.GetUserByID(uint(userID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateUser updates the authenticated user's profile
func (h *UserHandler) UpdateUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.ProfilePic != "" {
		user.ProfilePic = req.ProfilePic
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusOK, user)
}

// SwitchRole switches the authenticated user between marketplace roles
func (h *UserHandler) SwitchRole(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SwitchRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userRepository.SwitchRole(currentUserID, req.Role); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "role": req.Role})
}

// DisableUser deactivates the authenticated user's account without deleting
// any data. Pauses the user's service listings as well.
func (h *UserHandler) DisableUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.userRepository.SetEnabled(currentUserID, false); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "users:*")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "enabled": false})
}

// DeleteUser removes the authenticated user's account with full
// relationship fan-out, then cleans up their service listings and every
// cached read that could now be stale.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	if err := h.engine.DeleteUser(ctx, currentUserID); err != nil {
		return httpError(err)
	}

	// The relational side is committed; the document-store listings follow
	// best-effort.
	if err := h.serviceRepository.DeleteByAuthor(ctx, currentUserID); err != nil {
		h.logger.Warn("failed to delete user's service listings",
			zap.Uint("userID", currentUserID), zap.Error(err))
	}

	invalidatePatterns(ctx, h.cache, h.logger, "users:*", "posts:*", "services:*", "jobpostings:*")

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted"})
}
