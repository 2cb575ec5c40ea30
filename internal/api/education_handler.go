package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/database"
)

// EducationHandler serves /profile/education.
type EducationHandler struct {
	db *gorm.DB
}

// NewEducationHandler constructs an EducationHandler.
func NewEducationHandler(db *gorm.DB) *EducationHandler {
	return &EducationHandler{db: db}
}

var educationOwner = viaProfile(func(e *database.Education) uint { return e.ProfileID })

type educationRequest struct {
	Institution       string    `json:"institution" binding:"required,max=255"`
	Degree            string    `json:"degree" binding:"required,max=255"`
	FieldOfStudy      string    `json:"fieldOfStudy" binding:"max=255"`
	Location          string    `json:"location" binding:"max=255"`
	StartDate         *flexDate `json:"startDate" binding:"required"`
	EndDate           *flexDate `json:"endDate"`
	CurrentlyStudying bool      `json:"currentlyStudying"`
	Grade             string    `json:"grade" binding:"max=64"`
	Description       string    `json:"description" binding:"max=5000"`
}

func (r educationRequest) apply(m *database.Education) error {
	m.Institution = r.Institution
	m.Degree = r.Degree
	m.FieldOfStudy = r.FieldOfStudy
	m.Location = r.Location
	m.StartDate = r.StartDate.value()
	m.EndDate = r.EndDate.ptr()
	m.CurrentlyStudying = r.CurrentlyStudying
	m.Grade = r.Grade
	m.Description = r.Description
	if m.CurrentlyStudying {
		m.EndDate = nil
	}
	return checkRange(m.StartDate, m.EndDate)
}

type educationResponse struct {
	ID                uint      `json:"id"`
	Institution       string    `json:"institution"`
	Degree            string    `json:"degree"`
	FieldOfStudy      string    `json:"fieldOfStudy"`
	Location          string    `json:"location"`
	StartDate         string    `json:"startDate"`
	EndDate           *string   `json:"endDate"`
	CurrentlyStudying bool      `json:"currentlyStudying"`
	Grade             string    `json:"grade"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func newEducationResponse(e database.Education) educationResponse {
	return educationResponse{
		ID:                e.ID,
		Institution:       e.Institution,
		Degree:            e.Degree,
		FieldOfStudy:      e.FieldOfStudy,
		Location:          e.Location,
		StartDate:         e.StartDate.Format("2006-01-02"),
		EndDate:           isoPtr(e.EndDate),
		CurrentlyStudying: e.CurrentlyStudying,
		Grade:             e.Grade,
		Description:       e.Description,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func (h *EducationHandler) ListEducation(c *gin.Context) {
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

	base := h.db.WithContext(ctx).Model(&database.Education{}).Where("profile_id = ?", profile.ID)
	rows, total, next, err := paginate[database.Education](base, q)
	if err != nil {
		log.Error("list education failed", slog.Any("error", err))
		Internal(c, "failed to list education")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newEducationResponse))
}

func (h *EducationHandler) CreateEducation(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req educationRequest
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

	education := database.Education{ProfileID: profile.ID}
	if err := req.apply(&education); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Create(&education).Error; err != nil {
		log.Error("create education failed", slog.Any("error", err))
		Internal(c, "failed to create education")
		return
	}

	c.JSON(http.StatusCreated, newEducationResponse(education))
}

func (h *EducationHandler) GetEducation(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	education, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), educationOwner)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "education", err)
		return
	}

	c.JSON(http.StatusOK, newEducationResponse(*education))
}

func (h *EducationHandler) UpdateEducation(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req educationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	education, err := loadOwned(ctx, h.db, session, c.Param("id"), educationOwner)
	if err != nil {
		writeLoadError(c, log, "education", err)
		return
	}
	if err := req.apply(education); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Save(education).Error; err != nil {
		log.Error("update education failed", slog.Any("error", err))
		Internal(c, "failed to update education")
		return
	}

	c.JSON(http.StatusOK, newEducationResponse(*education))
}

func (h *EducationHandler) DeleteEducation(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	education, err := loadOwned(ctx, h.db, session, c.Param("id"), educationOwner)
	if err != nil {
		writeLoadError(c, log, "education", err)
		return
	}
	if err := h.db.WithContext(ctx).Delete(education).Error; err != nil {
		log.Error("delete education failed", slog.Any("error", err))
		Internal(c, "failed to delete education")
		return
	}

	c.Status(http.StatusNoContent)
}
