package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/auth"
	"resumate/internal/database"
	"resumate/internal/generation"
	"resumate/internal/pdf"
)

// GenerateHandler serves the model-backed document endpoints and the print endpoints.
type GenerateHandler struct {
	db        *gorm.DB
	generator *generation.Service
	queue     TaskEnqueuer
}

// NewGenerateHandler constructs a GenerateHandler. queue may be nil; generated resumes are
// then not archived automatically.
func NewGenerateHandler(db *gorm.DB, generator *generation.Service, queue TaskEnqueuer) *GenerateHandler {
	return &GenerateHandler{db: db, generator: generator, queue: queue}
}

type jobInfoPayload struct {
	Title        string   `json:"title" binding:"max=255"`
	CompanyName  string   `json:"companyName" binding:"max=255"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements" binding:"omitempty,max=100"`
}

func (p *jobInfoPayload) info() *generation.JobInfo {
	if p == nil {
		return nil
	}
	return &generation.JobInfo{
		Title:        strings.TrimSpace(p.Title),
		CompanyName:  strings.TrimSpace(p.CompanyName),
		Description:  p.Description,
		Requirements: append([]string{}, p.Requirements...),
	}
}

type generateStoredJobRequest struct {
	JobID         *uint `json:"jobId"`
	ApplicationID *uint `json:"applicationId"`
}

type generateInlineJobRequest struct {
	Job           *jobInfoPayload `json:"job"`
	ApplicationID *uint           `json:"applicationId"`
}

type coverLetterRequest struct {
	JobID *uint           `json:"jobId"`
	Job   *jobInfoPayload `json:"job"`
}

type reprintRequest struct {
	ResumeID uint `json:"resumeId" binding:"required"`
}

// GenerateForJob drafts a resume for a saved job (or the job of an application).
func (h *GenerateHandler) GenerateForJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req generateStoredJobRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	jobID := req.JobID
	if req.ApplicationID != nil {
		application, err := loadOwned(ctx, h.db, session, strconv.FormatUint(uint64(*req.ApplicationID), 10), applicationOwner)
		if err != nil {
			writeLoadError(c, log, "application", err)
			return
		}
		if jobID == nil {
			jobID = &application.JobID
		}
	}

	var info *generation.JobInfo
	if jobID != nil {
		job, err := loadOwned(ctx, h.db, session, strconv.FormatUint(uint64(*jobID), 10), linkedJob)
		if err != nil {
			writeLoadError(c, log, "job", err)
			return
		}
		ji := generation.JobInfoFromModel(*job)
		info = &ji
	}

	h.generate(c, session, info, jobID, req.ApplicationID)
}

// GenerateWithJobInfo drafts a resume for a job described inline.
func (h *GenerateHandler) GenerateWithJobInfo(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req generateInlineJobRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		ValidationFailed(c, err)
		return
	}
	if err := ownedApplication(c.Request.Context(), h.db, session, req.ApplicationID); err != nil {
		writeLoadError(c, log, "application", err)
		return
	}

	h.generate(c, session, req.Job.info(), nil, req.ApplicationID)
}

func (h *GenerateHandler) generate(c *gin.Context, session auth.Session, job *generation.JobInfo, jobID, applicationID *uint) {
	log := loggerFor(c, session)
	ctx := c.Request.Context()

	profile, err := loadGenerationProfile(h.db.WithContext(ctx), session.UserID)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	result, err := h.generator.GenerateResume(ctx, session, generation.Request{
		Profile:       *profile,
		Job:           job,
		JobID:         jobID,
		ApplicationID: applicationID,
	})
	if err != nil {
		writeGenerationError(c, log, "resume generation", err)
		return
	}

	if h.queue != nil {
		if _, err := enqueueArchive(c, h.db, h.queue, session, result.Resume.ID); err != nil {
			log.Warn("enqueue archive after generation failed",
				slog.Uint64("resume_id", uint64(result.Resume.ID)),
				slog.Any("error", err),
			)
		}
	}

	log.Info("resume generated", slog.Uint64("resume_id", uint64(result.Resume.ID)), slog.Int("bytes", len(result.PDF)))
	c.Header("X-Resume-Id", strconv.FormatUint(uint64(result.Resume.ID), 10))
	writePDF(c, pdfFilename(result.Content.Title, "resume"), result.PDF)
}

// GenerateCoverLetter drafts a letter for a saved job or an inline job description.
func (h *GenerateHandler) GenerateCoverLetter(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req coverLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	var info generation.JobInfo
	switch {
	case req.JobID != nil:
		job, err := loadOwned(ctx, h.db, session, strconv.FormatUint(uint64(*req.JobID), 10), linkedJob)
		if err != nil {
			writeLoadError(c, log, "job", err)
			return
		}
		info = generation.JobInfoFromModel(*job)
	case req.Job != nil:
		info = *req.Job.info()
	default:
		ValidationFailed(c, invalidField("job", "jobId or job is required"))
		return
	}

	profile, err := loadGenerationProfile(h.db.WithContext(ctx), session.UserID)
	if err != nil {
		writeLoadError(c, log, "profile", err)
		return
	}

	data, err := h.generator.GenerateCoverLetter(ctx, *profile, info)
	if err != nil {
		writeGenerationError(c, log, "cover letter generation", err)
		return
	}

	writePDF(c, pdfFilename(strings.TrimSpace(info.CompanyName+" cover letter"), "cover-letter"), data)
}

// Reprint renders a stored resume again without calling the model.
func (h *GenerateHandler) Reprint(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req reprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	stored, err := loadOwned(ctx, h.db, session, strconv.FormatUint(uint64(req.ResumeID), 10), resumeOwner)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}
	stored, err = database.NewResumeRepository(h.db).FindWithSections(ctx, stored.ID)
	if err != nil {
		writeLoadError(c, log, "resume", err)
		return
	}

	data, err := h.generator.Render(ctx, stored.Content())
	if err != nil {
		writeGenerationError(c, log, "resume reprint", err)
		return
	}

	c.Header("X-Resume-Id", strconv.FormatUint(uint64(stored.ID), 10))
	writePDF(c, pdfFilename(stored.Title, "resume"), data)
}

// Print renders resume content from the request body without storing it.
func (h *GenerateHandler) Print(c *gin.Context) {
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

	data, err := h.generator.Render(c.Request.Context(), content)
	if err != nil {
		writeGenerationError(c, log, "resume print", err)
		return
	}

	writePDF(c, pdfFilename(content.Title, "resume"), data)
}

// loadGenerationProfile loads the profile with every section, newest first.
func loadGenerationProfile(db *gorm.DB, userID uint) (*database.Profile, error) {
	newestFirst := func(tx *gorm.DB) *gorm.DB { return tx.Order("start_date DESC, id DESC") }
	var profile database.Profile
	err := db.
		Preload("Skills", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Experiences", newestFirst).
		Preload("Educations", newestFirst).
		Preload("Certifications", func(tx *gorm.DB) *gorm.DB { return tx.Order("issue_date DESC, id DESC") }).
		Preload("Projects", func(tx *gorm.DB) *gorm.DB { return tx.Order("id DESC") }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotOwner
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// writeGenerationError maps model and renderer failures onto 502 and the rest onto 500.
func writeGenerationError(c *gin.Context, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		Unauthorized(c)
	case errors.Is(err, generation.ErrEmptyResponse),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrCompletion):
		log.Warn(op+" failed", slog.Any("error", err))
		BadGateway(c, err.Error())
	case errors.Is(err, pdf.ErrRender):
		log.Error(op+" failed", slog.Any("error", err))
		BadGateway(c, "failed to render pdf")
	default:
		log.Error(op+" failed", slog.Any("error", err))
		Internal(c, op+" failed")
	}
}

// bindOptionalJSON accepts an empty body as the zero request, including chunked
// requests whose length is unknown up front.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writePDF(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// pdfFilename turns a title into a safe attachment name.
func pdfFilename(title, fallback string) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "-"), "-.")
	if name == "" {
		name = fallback
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name + ".pdf"
}
