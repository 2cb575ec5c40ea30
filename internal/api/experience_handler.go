package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/database"
)

// ExperienceHandler serves /profile/experience.
type ExperienceHandler struct {
	db *gorm.DB
}

// NewExperienceHandler constructs an ExperienceHandler.
func NewExperienceHandler(db *gorm.DB) *ExperienceHandler {
	return &ExperienceHandler{db: db}
}

var experienceOwner = viaProfile(func(e *database.Experience) uint { return e.ProfileID })

type experienceRequest struct {
	Company          string    `json:"company" binding:"required,max=255"`
	Position         string    `json:"position" binding:"required,max=255"`
	Location         string    `json:"location" binding:"max=255"`
	StartDate        *flexDate `json:"startDate" binding:"required"`
	EndDate          *flexDate `json:"endDate"`
	CurrentlyWorking bool      `json:"currentlyWorking"`
	Description      string    `json:"description" binding:"max=5000"`
}

// apply copies the request onto m. An ongoing role never keeps an end date.
func (r experienceRequest) apply(m *database.Experience) error {
	m.Company = r.Company
	m.Position = r.Position
	m.Location = r.Location
	m.StartDate = r.StartDate.value()
	m.EndDate = r.EndDate.ptr()
	m.CurrentlyWorking = r.CurrentlyWorking
	m.Description = r.Description
	if m.CurrentlyWorking {
		m.EndDate = nil
	}
	return checkRange(m.StartDate, m.EndDate)
}

type experienceResponse struct {
	ID               uint      `json:"id"`
	Company          string    `json:"company"`
	Position         string    `json:"position"`
	Location         string    `json:"location"`
	StartDate        string    `json:"startDate"`
	EndDate          *string   `json:"endDate"`
	CurrentlyWorking bool      `json:"currentlyWorking"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newExperienceResponse(e database.Experience) experienceResponse {
	return experienceResponse{
		ID:               e.ID,
		Company:          e.Company,
		Position:         e.Position,
		Location:         e.Location,
		StartDate:        e.StartDate.Format("2006-01-02"),
		EndDate:          isoPtr(e.EndDate),
		CurrentlyWorking: e.CurrentlyWorking,
		Description:      e.Description,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// ListExperiences pages through the caller's work history.
func (h *ExperienceHandler) ListExperiences(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	q, err := parsePageQuery(c)
	if err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, err := profileForSession(ctx, h.db, session)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	base := h.db.WithContext(ctx).Model(&database.Experience{}).Where("profile_id = ?", profile.ID)
	rows, total, next, err := paginate[database.Experience](base, q)
	if err != nil {
		log.Error("list experiences failed", slog.Any("error", err))
		Internal(c, "failed to list experiences")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newExperienceResponse))
}

// CreateExperience adds a role to the caller's profile.
func (h *ExperienceHandler) CreateExperience(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, err := profileForSession(ctx, h.db, session)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	experience := database.Experience{ProfileID: profile.ID}
	if err := req.apply(&experience); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Create(&experience).Error; err != nil {
		log.Error("create experience failed", slog.Any("error", err))
		Internal(c, "failed to create experience")
		return
	}

	c.JSON(http.StatusCreated, newExperienceResponse(experience))
}

// GetExperience returns one role owned by the caller.
func (h *ExperienceHandler) GetExperience(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	experience, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), experienceOwner)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "experience", err)
		return
	}

	c.JSON(http.StatusOK, newExperienceResponse(*experience))
}

// UpdateExperience replaces every field of a role owned by the caller.
func (h *ExperienceHandler) UpdateExperience(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	experience, err := loadOwned(ctx, h.db, session, c.Param("id"), experienceOwner)
	if err != nil {
		writeLoadError(c, log, "experience", err)
		return
	}
	if err := req.apply(experience); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Save(experience).Error; err != nil {
		log.Error("update experience failed", slog.Any("error", err))
		Internal(c, "failed to update experience")
		return
	}

	c.JSON(http.StatusOK, newExperienceResponse(*experience))
}

// DeleteExperience removes a role owned by the caller.
func (h *ExperienceHandler) DeleteExperience(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	experience, err := loadOwned(ctx, h.db, session, c.Param("id"), experienceOwner)
	if err != nil {
		writeLoadError(c, log, "experience", err)
		return
	}
	if err := h.db.WithContext(ctx).Delete(experience).Error; err != nil {
		log.Error("delete experience failed", slog.Any("error", err))
		Internal(c, "failed to delete experience")
		return
	}

	c.Status(http.StatusNoContent)
}
