package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/auth"
	"resumate/internal/database"
)

// ApplicationHandler serves /applications.
type ApplicationHandler struct {
	db *gorm.DB
}

// NewApplicationHandler constructs an ApplicationHandler.
func NewApplicationHandler(db *gorm.DB) *ApplicationHandler {
	return &ApplicationHandler{db: db}
}

var (
	applicationOwner = direct(func(a *database.Application) uint { return a.UserID })
	resumeOwner      = direct(func(r *database.Resume) uint { return r.UserID })
)

var applicationStatuses = map[string]bool{
	database.StatusPending:  true,
	database.StatusApplied:  true,
	database.StatusRejected: true,
	database.StatusAccepted: true,
}

type createApplicationRequest struct {
	JobID    uint   `json:"jobId" binding:"required"`
	ResumeID *uint  `json:"resumeId"`
	Status   string `json:"status" binding:"omitempty,oneof=pending applied rejected accepted"`
	Notes    string `json:"notes" binding:"max=5000"`
}

type updateApplicationRequest struct {
	Status string `json:"status" binding:"required,oneof=pending applied rejected accepted"`
}

type applicationResponse struct {
	ID        uint         `json:"id"`
	JobID     uint         `json:"jobId"`
	Job       *jobResponse `json:"job,omitempty"`
	Status    string       `json:"status"`
	Notes     string       `json:"notes"`
	ResumeIDs []uint       `json:"resumeIds"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func newApplicationResponse(a database.Application) applicationResponse {
	resp := applicationResponse{
		ID:        a.ID,
		JobID:     a.JobID,
		Status:    a.Status,
		Notes:     a.Notes,
		ResumeIDs: make([]uint, 0, len(a.Resumes)),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Job.ID != 0 {
		job := newJobResponse(a.Job)
		resp.Job = &job
	}
	for _, link := range a.Resumes {
		resp.ResumeIDs = append(resp.ResumeIDs, link.ResumeID)
	}
	return resp
}

// ListApplications pages through the caller's applications, optionally filtered by status.
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
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

	base := h.db.WithContext(c.Request.Context()).
		Model(&database.Application{}).
		Where("user_id = ?", session.UserID)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !applicationStatuses[status] {
			ValidationFailed(c, invalidField("status", "must be one of pending applied rejected accepted"))
			return
		}
		base = base.Where("status = ?", status)
	}

	rows, total, next, err := paginate[database.Application](base.Preload("Job").Preload("Resumes"), q)
	if err != nil {
		log.Error("list applications failed", slog.Any("error", err))
		Internal(c, "failed to list applications")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newApplicationResponse))
}

// CreateApplication records an application to an existing job and saves the job for the caller.
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	if req.Status == "" {
		req.Status = database.StatusPending
	}

	ctx := c.Request.Context()
	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, req.JobID).Error; err != nil {
		writeLoadError(c, log, "job", err)
		return
	}
	if req.ResumeID != nil {
		var res database.Resume
		err := h.db.WithContext(ctx).Select("id", "user_id").First(&res, *req.ResumeID).Error
		if err == nil {
			err = resumeOwner(h.db, session, &res)
		}
		if err != nil {
			writeLoadError(c, log, "resume", err)
			return
		}
	}

	application := database.Application{
		UserID: session.UserID,
		JobID:  job.ID,
		Status: req.Status,
		Notes:  req.Notes,
	}
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.NewJobRepository(tx).Link(ctx, session.UserID, job.ID); err != nil {
			return err
		}
		if err := tx.Create(&application).Error; err != nil {
			return err
		}
		if req.ResumeID != nil {
			link := database.ApplicationResume{ApplicationID: application.ID, ResumeID: *req.ResumeID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			application.Resumes = []database.ApplicationResume{link}
		}
		return nil
	})
	if err != nil {
		log.Error("create application failed", slog.Any("error", err))
		Internal(c, "failed to create application")
		return
	}

	application.Job = job
	c.JSON(http.StatusCreated, newApplicationResponse(application))
}

// GetApplication returns one application owned by the caller.
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	application, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), applicationOwner, "Job", "Resumes")
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "application", err)
		return
	}

	c.JSON(http.StatusOK, newApplicationResponse(*application))
}

// UpdateApplicationStatus changes only the status field.
func (h *ApplicationHandler) UpdateApplicationStatus(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req updateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	application, err := loadOwned(ctx, h.db, session, c.Param("id"), applicationOwner, "Job", "Resumes")
	if err != nil {
		writeLoadError(c, log, "application", err)
		return
	}

	if err := h.db.WithContext(ctx).Model(application).Update("status", req.Status).Error; err != nil {
		log.Error("update application failed", slog.Any("error", err))
		Internal(c, "failed to update application")
		return
	}
	application.Status = req.Status

	c.JSON(http.StatusOK, newApplicationResponse(*application))
}

// DeleteApplication removes an application and its resume links. Resumes stay.
func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	application, err := loadOwned(ctx, h.db, session, c.Param("id"), applicationOwner)
	if err != nil {
		writeLoadError(c, log, "application", err)
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", application.ID).Delete(&database.ApplicationResume{}).Error; err != nil {
			return err
		}
		return tx.Delete(application).Error
	})
	if err != nil {
		log.Error("delete application failed", slog.Any("error", err))
		Internal(c, "failed to delete application")
		return
	}

	c.Status(http.StatusNoContent)
}

// ownedApplication confirms an optional application reference belongs to the caller.
func ownedApplication(ctx context.Context, db *gorm.DB, session auth.Session, id *uint) error {
	if id == nil {
		return nil
	}
	var application database.Application
	if err := db.WithContext(ctx).Select("id", "user_id").First(&application, *id).Error; err != nil {
		return err
	}
	return applicationOwner(db, session, &application)
}
