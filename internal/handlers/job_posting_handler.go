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

// JobPostingHandler handles HTTP requests related to job postings
type JobPostingHandler struct {
	jobPostingRepository repositories.JobPostingRepository
	userRepository       repositories.UserRepository
	cache                *cache.Cache
	logger               *zap.Logger
}

// NewJobPostingHandler creates a new JobPostingHandler
func NewJobPostingHandler(jobRepo repositories.JobPostingRepository, userRepo repositories.UserRepository, c *cache.Cache, logger *zap.Logger) *JobPostingHandler {
	return &JobPostingHandler{
		jobPostingRepository: jobRepo,
		userRepository:       userRepo,
		cache:                c,
		logger:               logger.Named("job_posting_handler"),
	}
}

// RegisterJobPostingRoutes registers job posting routes
func (h *JobPostingHandler) RegisterJobPostingRoutes(g *echo.Group) {
	g.POST("/jobpostings", h.CreateJobPosting)
	g.GET("/jobpostings", h.GetJobPostings)
	g.GET("/jobpostings/:id", h.GetJobPosting)
	g.GET("/users/me/jobpostings", h.GetMyJobPostings)
	g.PUT("/jobpostings/:id", h.UpdateJobPosting)
	g.PUT("/jobpostings/:id/status", h.SwitchStatus)
	g.DELETE("/jobpostings/:id", h.DeleteJobPosting)
}

// jobPostingPage is the cached shape of a job postings listing read.
type jobPostingPage struct {
	JobPostings []models.JobPosting `json:"jobPostings"`
	TotalCount  int64               `json:"totalCount"`
}

// CreateJobPosting publishes a job. Only recruiters may post jobs.
func (h *JobPostingHandler) CreateJobPosting(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if user.Role != models.RoleRecruiter {
		return echo.NewHTTPError(http.StatusForbidden, "Only recruiters can publish job postings")
	}

	var req models.CreateJobPostingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	posting := &models.JobPosting{
		Title:        req.Title,
		Description:  req.Description,
		Budget:       req.Budget,
		Deadline:     req.Deadline,
		TechRequired: req.TechRequired,
		Category:     req.Category,
		Status:       models.JobStatusOpen,
		JobAuthorID:  currentUserID,
	}
	if err := h.jobPostingRepository.CreateJobPosting(posting); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "jobpostings:*")

	return c.JSON(http.StatusCreated, posting)
}

// GetJobPostings retrieves a filtered page of job postings using the
// cache-aside pattern. Every filter parameter participates in the cache key.
func (h *JobPostingHandler) GetJobPostings(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	filter := models.JobPostingFilter{
		Category:  c.QueryParam("category"),
		Status:    c.QueryParam("status"),
		Search:    c.QueryParam("search"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Page:      page,
		Limit:     limit,
	}

	ctx := c.Request().Context()
	key := cache.Key("jobpostings", url.Values{
		"category":   {filter.Category},
		"status":     {filter.Status},
		"search":     {filter.Search},
		"sort_by":    {filter.SortBy},
		"sort_order": {filter.SortOrder},
		"page":       {strconv.Itoa(filter.Page)},
		"limit":      {strconv.Itoa(filter.Limit)},
	})

	if cached, ok := h.cache.Get(ctx, key); ok {
		var result jobPostingPage
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return c.JSON(http.StatusOK, result)
		}
		h.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	postings, total, err := h.jobPostingRepository.GetJobPostings(filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result := jobPostingPage{JobPostings: postings, TotalCount: total}
	if encoded, err := json.Marshal(result); err == nil {
		if err := h.cache.Set(ctx, key, string(encoded), cache.DefaultTTL); err != nil {
			h.logger.Warn("cache populate failed", zap.String("key", key), zap.Error(err))
		}
	}

	return c.JSON(http.StatusOK, result)
}

// GetJobPosting retrieves a job posting by ID, applicants included
func (h *JobPostingHandler) GetJobPosting(c echo.Context) error {
	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	posting, err := h.jobPostingRepository.GetJobPostingByID(uint(postingID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Job posting not found")
	}

	return c.JSON(http.StatusOK, posting)
}

// GetMyJobPostings lists the authenticated recruiter's own postings
func (h *JobPostingHandler) GetMyJobPostings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postings, err := h.jobPostingRepository.GetJobPostingsByAuthor(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"jobPostings": postings})
}

// UpdateJobPosting edits a job posting owned by the authenticated recruiter
func (h *JobPostingHandler) UpdateJobPosting(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	var req models.UpdateJobPostingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	posting, err := h.jobPostingRepository.GetJobPostingByID(uint(postingID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Job posting not found")
	}
	if posting.JobAuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this job posting")
	}

	if req.Title != "" {
		posting.Title = req.Title
	}
	if req.Description != "" {
		posting.Description = req.Description
	}
	if req.Budget > 0 {
		posting.Budget = req.Budget
	}
	if !req.Deadline.IsZero() {
		posting.Deadline = req.Deadline
	}
	if len(req.TechRequired) > 0 {
		posting.TechRequired = req.TechRequired
	}
	if req.Category != "" {
		posting.Category = req.Category
	}

	if err := h.jobPostingRepository.UpdateJobPosting(posting); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "jobpostings:*")

	return c.JSON(http.StatusOK, posting)
}

// SwitchStatus flips a job posting between OPEN, DISABLED and FILLED
func (h *JobPostingHandler) SwitchStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=OPEN DISABLED FILLED"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	posting, err := h.jobPostingRepository.GetJobPostingByID(uint(postingID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Job posting not found")
	}
	if posting.JobAuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this job posting")
	}

	if err := h.jobPostingRepository.SwitchStatus(uint(postingID), req.Status); err != nil {
		return httpError(err)
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "jobpostings:*")

	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}

// DeleteJobPosting removes a job posting and its applications
func (h *JobPostingHandler) DeleteJobPosting(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	posting, err := h.jobPostingRepository.GetJobPostingByID(uint(postingID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Job posting not found")
	}
	if posting.JobAuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this job posting")
	}

	if err := h.jobPostingRepository.DeleteJobPosting(uint(postingID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	invalidatePatterns(c.Request().Context(), h.cache, h.logger, "jobpostings:*")

	return c.NoContent(http.StatusNoContent)
}
