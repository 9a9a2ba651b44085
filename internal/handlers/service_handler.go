package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devlinkhq/backend/internal/cache"
	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ServiceHandler handles HTTP requests related to service listings
type ServiceHandler struct {
	serviceRepository repositories.ServiceRepository
	cache             *cache.Cache
	logger            *zap.Logger
}

// NewServiceHandler creates a new ServiceHandler
func NewServiceHandler(serviceRepo repositories.ServiceRepository, c *cache.Cache, logger *zap.Logger) *ServiceHandler {
	return &ServiceHandler{
		serviceRepository: serviceRepo,
		cache:             c,
		logger:            logger.Named("service_handler"),
	}
}

// RegisterServiceRoutes registers service listing routes
func (h *ServiceHandler) RegisterServiceRoutes(g *echo.Group) {
	g.POST("/services", h.CreateService)
	g.GET("/services", h.GetServices)
	g.GET("/services/:id", h.GetService)
	g.PUT("/services/:id", h.UpdateService)
	g.PUT("/services/:id/status", h.SwitchStatus)
	g.DELETE("/services/:id", h.DeleteService)
}

// servicePage is the cached shape of a services listing read.
type servicePage struct {
	Services   []models.Service `json:"services"`
	TotalCount int64            `json:"totalCount"`
}

// CreateService publishes a service listing
func (h *ServiceHandler) CreateService(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	service := &models.Service{
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Price:       req.Price,
		AuthorID:    currentUserID,
	}

	ctx := c.Request().Context()
	if err := h.serviceRepository.CreateService(ctx, service); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(ctx, h.cache, h.logger, "services:*")

	return c.JSON(http.StatusCreated, service)
}

// GetServices retrieves a filtered page of service listings using the
// cache-aside pattern
func (h *ServiceHandler) GetServices(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	filter := models.ServiceFilter{
		Search:    c.QueryParam("search"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Offset:    offset,
		Limit:     limit,
	}

	ctx := c.Request().Context()
	key := cache.Key("services", url.Values{
		"search":     {filter.Search},
		"sort_by":    {filter.SortBy},
		"sort_order": {filter.SortOrder},
		"offset":     {strconv.Itoa(filter.Offset)},
		"limit":      {strconv.Itoa(filter.Limit)},
	})

	if cached, ok := h.cache.Get(ctx, key); ok {
		var result servicePage
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return c.JSON(http.StatusOK, result)
		}
		h.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	services, total, err := h.serviceRepository.GetServices(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result := servicePage{Services: services, TotalCount: total}
	if encoded, err := json.Marshal(result); err == nil {
		if err := h.cache.Set(ctx, key, string(encoded), cache.DefaultTTL); err != nil {
			h.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, result)
}

// GetService retrieves a service listing by ID
func (h *ServiceHandler) GetService(c echo.Context) error {
	service, err := h.serviceRepository.GetServiceByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, service)
}

// UpdateService edits a service listing owned by the authenticated user
func (h *ServiceHandler) UpdateService(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateServiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	service, err := h.serviceRepository.GetServiceByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if service.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this service")
	}

	if req.Title != "" {
		service.Title = req.Title
	}
	if req.Description != "" {
		service.Description = req.Description
	}
	if len(req.Skills) > 0 {
		service.Skills = req.Skills
	}
	if req.Price > 0 {
		service.Price = req.Price
	}

	if err := h.serviceRepository.UpdateService(ctx, c.Param("id"), service); err != nil {
		return httpError(err)
	}

	invalidatePatterns(ctx, h.cache, h.logger, "services:*")

	return c.JSON(http.StatusOK, service)
}

// SwitchStatus flips a service listing between ACTIVE and PAUSED
func (h *ServiceHandler) SwitchStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=ACTIVE PAUSED"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	service, err := h.serviceRepository.GetServiceByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if service.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this service")
	}

	if err := h.serviceRepository.SwitchStatus(ctx, c.Param("id"), req.Status); err != nil {
		return httpError(err)
	}

	invalidatePatterns(ctx, h.cache, h.logger, "services:*")

	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}

// DeleteService removes a service listing owned by the authenticated user
func (h *ServiceHandler) DeleteService(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	service, err := h.serviceRepository.GetServiceByID(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if service.AuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this service")
	}

	if err := h.serviceRepository.DeleteService(ctx, c.Param("id")); err != nil {
		return httpError(err)
	}

	invalidatePatterns(ctx, h.cache, h.logger, "services:*")

	return c.NoContent(http.StatusNoContent)
}
