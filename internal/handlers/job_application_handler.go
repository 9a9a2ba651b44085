package handlers

import (
	"net/http"
	"strconv"

	"github.com/devlinkhq/backend/internal/models"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// JobApplicationHandler handles HTTP requests related to job applications
type JobApplicationHandler struct {
	jobApplicationRepository repositories.JobApplicationRepository
	jobPostingRepository     repositories.JobPostingRepository
}

// NewJobApplicationHandler creates a new JobApplicationHandler
func NewJobApplicationHandler(appRepo repositories.JobApplicationRepository, jobRepo repositories.JobPostingRepository) *JobApplicationHandler {
	return &JobApplicationHandler{
		jobApplicationRepository: appRepo,
		jobPostingRepository:     jobRepo,
	}
}

// RegisterJobApplicationRoutes registers job application routes
func (h *JobApplicationHandler) RegisterJobApplicationRoutes(g *echo.Group) {
	g.POST("/jobpostings/:id/applications", h.Apply)
	g.GET("/jobpostings/:id/applications", h.GetApplicants)
	g.GET("/jobpostings/:id/applications/status", h.GetApplicationStatus)
	g.GET("/users/me/applications", h.GetMyApplications)
	g.PUT("/applications/:id/status", h.UpdateStatus)
}

// Apply submits an application to an open job posting. Applying twice to the
// same posting is a conflict, applying to your own posting is invalid.
func (h *JobApplicationHandler) Apply(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	var req models.CreateJobApplicationRequest
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
	if posting.JobAuthorID == currentUserID {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot apply to your own job posting")
	}
	if posting.Status != models.JobStatusOpen {
		return echo.NewHTTPError(http.StatusBadRequest, "Job posting is not open for applications")
	}

	application := &models.JobApplication{
		JobPostingID: uint(postingID),
		ApplicantID:  currentUserID,
		Message:      req.Message,
		Status:       models.ApplicationStatusPending,
	}
	if err := h.jobApplicationRepository.Apply(application); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, application)
}

// GetApplicants lists applications on a posting, visible to its author only
func (h *JobApplicationHandler) GetApplicants(c echo.Context) error {
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
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to view these applications")
	}

	applications, err := h.jobApplicationRepository.GetApplicantsByPosting(uint(postingID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"applications": applications})
}

// GetApplicationStatus reports whether the authenticated user has applied to
// the given posting
func (h *JobApplicationHandler) GetApplicationStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job posting ID")
	}

	applied, err := h.jobApplicationRepository.HasApplied(uint(postingID), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"applied": applied})
}

// GetMyApplications lists the authenticated user's applications
func (h *JobApplicationHandler) GetMyApplications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	applications, err := h.jobApplicationRepository.GetApplicationsByApplicant(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"applications": applications})
}

// UpdateStatus accepts or rejects an application, by the posting author only
func (h *JobApplicationHandler) UpdateStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	applicationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid application ID")
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	application, err := h.jobApplicationRepository.GetApplicationByID(uint(applicationID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Application not found")
	}

	posting, err := h.jobPostingRepository.GetJobPostingByID(application.JobPostingID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Job posting not found")
	}
	if posting.JobAuthorID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this application")
	}

	if err := h.jobApplicationRepository.UpdateStatus(uint(applicationID), req.Status); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}
