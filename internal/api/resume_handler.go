package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumate/internal/api/middleware"
	"resumate/internal/auth"
	"resumate/internal/database"
	"resumate/internal/resume"
	"resumate/internal/storage"
	"resumate/internal/tasks"
)

const downloadLinkTTL = 5 * time.Minute

// TaskEnqueuer is the part of *asynq.Client the handlers use.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ArchiveStore signs download links and removes archived PDFs.
type ArchiveStore interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration, filename string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// ResumeHandler serves /resumes. queue and store may be nil; archiving is then unavailable.
type ResumeHandler struct {
	db      *gorm.DB
	resumes *database.ResumeRepository
	queue   TaskEnqueuer
	store   ArchiveStore
}

// NewResumeHandler constructs a ResumeHandler.
func NewResumeHandler(db *gorm.DB, queue TaskEnqueuer, store ArchiveStore) *ResumeHandler {
	return &ResumeHandler{
		db:      db,
		resumes: database.NewResumeRepository(db),
		queue:   queue,
		store:   store,
	}
}

// resumeLinks are the optional references accepted next to resume content on create.
type resumeLinks struct {
	JobID         *uint `json:"jobId"`
	ApplicationID *uint `json:"applicationId"`
}

type resumeSummary struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	JobID         *uint     `json:"jobId"`
	ArchiveStatus string    `json:"archiveStatus,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newResumeSummary(r database.Resume) resumeSummary {
	return resumeSummary{
		ID:            r.ID,
		Title:         r.Title,
		JobID:         r.JobID,
		ArchiveStatus: r.ArchiveStatus,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type resumeResponse struct {
	ID            uint      `json:"id"`
	JobID         *uint     `json:"jobId"`
	ArchiveStatus string    `json:"archiveStatus,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	resume.Content
}

func newResumeResponse(r database.Resume) resumeResponse {
	return resumeResponse{
		ID:            r.ID,
		JobID:         r.JobID,
		ArchiveStatus: r.ArchiveStatus,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Content:       r.Content(),
	}
}

// decodeResumeBody validates the body against the resume schema.
func decodeResumeBody(c *gin.Context) ([]byte, resume.Content, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, resume.Content{}, invalidField("body", "could not be read")
	}
	content, err := resume.Decode(raw)
	if err != nil {
		var schemaErr *resume.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			return nil, resume.Content{}, err
		case errors.Is(err, resume.ErrEmptyDocument):
			return nil, resume.Content{}, invalidField("body", "is required")
		default:
			return nil, resume.Content{}, invalidField("body", "must be a JSON resume document")
		}
	}
	return raw, content, nil
}

// ListResumes pages through the caller's resumes, newest first.
func (h *ResumeHandler) ListResumes(c *gin.Context) {
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

	base := h.db.WithContext(c.Request.Context()).Model(&database.Resume{}).Where("user_id = ?", session.UserID)
	rows, total, next, err := paginate[database.Resume](base, q)
	if err != nil {
		log.Error("list resumes failed", slog.Any("error", err))
		Internal(c, "failed to list resumes")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newResumeSummary))
}

// CreateResume stores a user-authored resume.
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	raw, content, err := decodeResumeBody(c)
	if err != nil {
		ValidationFailed(c, err)
		return
	}
	var links resumeLinks
	if err := json.Unmarshal(raw, &links); err != nil {
		ValidationFailed(c, invalidField("jobId", "must be a positive integer"))
		return
	}

	ctx := c.Request.Context()
	if links.JobID != nil {
		if _, err := loadOwned(ctx, h.db, session, fmt.Sprint(*links.JobID), linkedJob); err != nil {
			writeLoadError(c, log, "job", err)
			return
		}
	}
	if err := ownedApplication(ctx, h.db, session, links.ApplicationID); err != nil {
		writeLoadError(c, log, "application", err)
		return
	}

	stored, err := h.resumes.CreateFromContent(ctx, session.UserID, links.JobID, links.ApplicationID, content)
	if err != nil {
		log.Error("create resume failed", slog.Any("error", err))
		Internal(c, "failed to create resume")
		return
	}

	c.JSON(http.StatusCreated, newResumeResponse(*stored))
}

// GetResume returns one resume with its sections.
func (h *ResumeHandler) GetResume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	stored, err := h.loadResume(c, session)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "resume", err)
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*stored))
}

// UpdateResume replaces the personal fields and every section of a resume.
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	_, content, err := decodeResumeBody(c)
	if err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	existing, err := loadOwned(ctx, h.db, session, c.Param("id"), resumeOwner)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}

	updated, err := h.resumes.ReplaceContent(ctx, existing, content)
	if err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		Internal(c, "failed to update resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*updated))
}

// DeleteResume removes a resume, its sections and its archived PDFs.
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	existing, err := loadOwned(ctx, h.db, session, c.Param("id"), resumeOwner)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{
			&database.ApplicationResume{},
			&database.ResumeWorkExperience{},
			&database.ResumeEducation{},
			&database.ResumeSkill{},
			&database.ResumeCertification{},
		} {
			if err := tx.Where("resume_id = ?", existing.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(existing).Error
	})
	if err != nil {
		log.Error("delete resume failed", slog.Any("error", err))
		Internal(c, "failed to delete resume")
		return
	}

	if h.store != nil {
		if err := h.store.DeletePrefix(ctx, storage.ResumePrefix(session.UserID, existing.ID)); err != nil {
			log.Warn("delete archived pdfs failed", slog.Uint64("resume_id", uint64(existing.ID)), slog.Any("error", err))
		}
	}

	c.Status(http.StatusNoContent)
}

// ArchiveResume queues a PDF render of the resume into object storage.
func (h *ResumeHandler) ArchiveResume(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	existing, err := loadOwned(ctx, h.db, session, c.Param("id"), resumeOwner)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}

	taskID, err := enqueueArchive(c, h.db, h.queue, session, existing.ID)
	if err != nil {
		if errors.Is(err, errArchiveUnavailable) {
			Error(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Error("enqueue archive failed", slog.Any("error", err))
		Internal(c, "failed to enqueue archive")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "archive request accepted",
		"taskId":  taskID,
	})
}

// GetDownloadLink signs a short-lived link to the archived PDF.
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	ctx := c.Request.Context()
	existing, err := loadOwned(ctx, h.db, session, c.Param("id"), resumeOwner)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}
	if existing.ArchiveStatus != database.ArchiveCompleted || existing.PdfObjectKey == "" {
		Conflict(c, "pdf not ready")
		return
	}
	if h.store == nil {
		Error(c, http.StatusServiceUnavailable, errArchiveUnavailable.Error())
		return
	}

	signedURL, err := h.store.GeneratePresignedURL(ctx, existing.PdfObjectKey, downloadLinkTTL, pdfFilename(existing.Title, "resume"))
	if err != nil {
		log.Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       signedURL,
		"expiresAt": time.Now().Add(downloadLinkTTL).UTC(),
	})
}

func (h *ResumeHandler) loadResume(c *gin.Context, session auth.Session) (*database.Resume, error) {
	existing, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), resumeOwner)
	if err != nil {
		return nil, err
	}
	return h.resumes.FindWithSections(c.Request.Context(), existing.ID)
}

var errArchiveUnavailable = errors.New("pdf archiving is not configured")

// enqueueArchive marks the resume pending and schedules the worker. A failed enqueue
// restores the previous status so the resume never waits on a task that does not exist.
func enqueueArchive(c *gin.Context, db *gorm.DB, queue TaskEnqueuer, session auth.Session, resumeID uint) (string, error) {
	if queue == nil {
		return "", errArchiveUnavailable
	}
	task, err := tasks.NewResumeArchiveTask(resumeID, session.UserID, middleware.GetCorrelationID(c))
	if err != nil {
		return "", fmt.Errorf("build archive task: %w", err)
	}

	ctx := c.Request.Context()
	var statuses []string
	if err := db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ?", resumeID).
		Pluck("archive_status", &statuses).Error; err != nil {
		return "", fmt.Errorf("read archive status: %w", err)
	}
	var previous string
	if len(statuses) > 0 {
		previous = statuses[0]
	}
	if err := db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ?", resumeID).
		Update("archive_status", database.ArchivePending).Error; err != nil {
		return "", fmt.Errorf("mark archive pending: %w", err)
	}

	info, err := queue.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute))
	if err != nil {
		if rbErr := db.WithContext(context.WithoutCancel(ctx)).Model(&database.Resume{}).
			Where("id = ? AND archive_status = ?", resumeID, database.ArchivePending).
			Update("archive_status", previous).Error; rbErr != nil {
			err = errors.Join(err, fmt.Errorf("restore archive status: %w", rbErr))
		}
		return "", fmt.Errorf("enqueue archive: %w", err)
	}
	return info.ID, nil
}
