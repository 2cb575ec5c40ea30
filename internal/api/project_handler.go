package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumate/internal/database"
)

// ProjectHandler serves /profile/projects.
type ProjectHandler struct {
	db *gorm.DB
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{db: db}
}

var projectOwner = viaProfile(func(p *database.Project) uint { return p.ProfileID })

type projectRequest struct {
	Name         string    `json:"name" binding:"required,max=255"`
	Description  string    `json:"description" binding:"max=5000"`
	URL          string    `json:"url" binding:"omitempty,url,max=512"`
	Technologies []string  `json:"technologies" binding:"omitempty,max=50,dive,required,max=64"`
	StartDate    *flexDate `json:"startDate"`
	EndDate      *flexDate `json:"endDate"`
}

func (r projectRequest) apply(m *database.Project) error {
	m.Name = r.Name
	m.Description = r.Description
	m.URL = r.URL
	m.Technologies = datatypes.NewJSONSlice(append([]string{}, r.Technologies...))
	m.StartDate = r.StartDate.ptr()
	m.EndDate = r.EndDate.ptr()
	if m.StartDate != nil {
		return checkRange(*m.StartDate, m.EndDate)
	}
	return nil
}

type projectResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Technologies []string  `json:"technologies"`
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func newProjectResponse(p database.Project) projectResponse {
	tech := append([]string{}, p.Technologies...)
	return projectResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		URL:          p.URL,
		Technologies: tech,
		StartDate:    isoPtr(p.StartDate),
		EndDate:      isoPtr(p.EndDate),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
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

	base := h.db.WithContext(ctx).Model(&database.Project{}).Where("profile_id = ?", profile.ID)
	rows, total, next, err := paginate[database.Project](base, q)
	if err != nil {
		log.Error("list projects failed", slog.Any("error", err))
		Internal(c, "failed to list projects")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newProjectResponse))
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req projectRequest
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

	project := database.Project{ProfileID: profile.ID}
	if err := req.apply(&project); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Create(&project).Error; err != nil {
		log.Error("create project failed", slog.Any("error", err))
		Internal(c, "failed to create project")
		return
	}

	c.JSON(http.StatusCreated, newProjectResponse(project))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	project, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), projectOwner)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "project", err)
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(*project))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	project, err := loadOwned(ctx, h.db, session, c.Param("id"), projectOwner)
	if err != nil {
		writeLoadError(c, log, "project", err)
		return
	}
	if err := req.apply(project); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := h.db.WithContext(ctx).Save(project).Error; err != nil {
		log.Error("update project failed", slog.Any("error", err))
		Internal(c, "failed to update project")
		return
	}

	c.JSON(http.StatusOK, newProjectResponse(*project))
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	project, err := loadOwned(ctx, h.db, session, c.Param("id"), projectOwner)
	if err != nil {
		writeLoadError(c, log, "project", err)
		return
	}
	if err := h.db.WithContext(ctx).Delete(project).Error; err != nil {
		log.Error("delete project failed", slog.Any("error", err))
		Internal(c, "failed to delete project")
		return
	}

	c.Status(http.StatusNoContent)
}
