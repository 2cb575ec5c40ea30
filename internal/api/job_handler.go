package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumate/internal/database"
	"resumate/internal/jobs"
	"resumate/internal/llm"
)

// JobHandler serves /jobs and /process-job.
type JobHandler struct {
	db       *gorm.DB
	jobs     *database.JobRepository
	analyzer *jobs.Service
}

// NewJobHandler constructs a JobHandler. analyzer may be nil when no LLM is configured.
func NewJobHandler(db *gorm.DB, analyzer *jobs.Service) *JobHandler {
	return &JobHandler{db: db, jobs: database.NewJobRepository(db), analyzer: analyzer}
}

type jobRequest struct {
	Title        string   `json:"title" binding:"max=255"`
	CompanyName  string   `json:"companyName" binding:"max=255"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements" binding:"omitempty,max=100,dive,max=1000"`
	URL          *string  `json:"url" binding:"omitempty,url,max=1024"`
	Location     *string  `json:"location" binding:"omitempty,max=255"`
	Salary       *string  `json:"salary" binding:"omitempty,max=255"`
}

type jobResponse struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	CompanyName  string    `json:"companyName"`
	Description  string    `json:"description"`
	Requirements []string  `json:"requirements"`
	URL          *string   `json:"url"`
	Location     *string   `json:"location"`
	Salary       *string   `json:"salary"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newJobResponse(j database.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Title:        j.Title,
		CompanyName:  j.CompanyName,
		Description:  j.Description,
		Requirements: append([]string{}, j.Requirements...),
		URL:          j.URL,
		Location:     j.Location,
		Salary:       j.Salary,
		CreatedAt:    j.CreatedAt,
	}
}

type processJobRequest struct {
	Type    string `json:"type" binding:"required,oneof=text url"`
	Content string `json:"content" binding:"required"`
}

// ListJobs pages through the jobs the caller has saved.
func (h *JobHandler) ListJobs(c *gin.Context) {
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
		Model(&database.Job{}).
		Where("id IN (?)", h.db.Model(&database.UserJob{}).Select("job_id").Where("user_id = ?", session.UserID))
	rows, total, next, err := paginate[database.Job](base, q)
	if err != nil {
		log.Error("list jobs failed", slog.Any("error", err))
		Internal(c, "failed to list jobs")
		return
	}

	c.JSON(http.StatusOK, newPage(rows, total, next, q, newJobResponse))
}

// CreateJob stores a posting and links it to the caller. A URL already on file returns the
// stored job instead of inserting a duplicate.
func (h *JobHandler) CreateJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	url := trimmed(req.URL)
	if url == nil && strings.TrimSpace(req.Description) == "" && strings.TrimSpace(req.Title) == "" {
		ValidationFailed(c, invalidField("description", "is required when url is absent"))
		return
	}

	ctx := c.Request.Context()
	status := http.StatusCreated
	var job *database.Job
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := database.NewJobRepository(tx)
		if url != nil {
			existing, err := repo.FindByURL(ctx, *url)
			if err != nil {
				return err
			}
			if existing != nil {
				job = existing
				status = http.StatusOK
				return repo.Link(ctx, session.UserID, job.ID)
			}
		}

		job = &database.Job{
			Title:        strings.TrimSpace(req.Title),
			CompanyName:  strings.TrimSpace(req.CompanyName),
			Description:  req.Description,
			Requirements: datatypes.NewJSONSlice(append([]string{}, req.Requirements...)),
			URL:          url,
			Location:     trimmed(req.Location),
			Salary:       trimmed(req.Salary),
		}
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return repo.Link(ctx, session.UserID, job.ID)
	})
	if err != nil {
		log.Error("create job failed", slog.Any("error", err))
		Internal(c, "failed to create job")
		return
	}

	c.JSON(status, newJobResponse(*job))
}

// GetJob returns a job the caller has saved.
func (h *JobHandler) GetJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	job, err := loadOwned(c.Request.Context(), h.db, session, c.Param("id"), linkedJob)
	if err != nil {
		writeLoadError(c, loggerFor(c, session), "job", err)
		return
	}

	c.JSON(http.StatusOK, newJobResponse(*job))
}

// LinkJob saves an existing job for the caller.
func (h *JobHandler) LinkJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	id, err := parseID(c.Param("id"))
	if err != nil {
		writeLoadError(c, log, "job", err)
		return
	}

	ctx := c.Request.Context()
	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, id).Error; err != nil {
		writeLoadError(c, log, "job", err)
		return
	}
	if err := h.jobs.Link(ctx, session.UserID, job.ID); err != nil {
		log.Error("link job failed", slog.Any("error", err))
		Internal(c, "failed to link job")
		return
	}

	c.JSON(http.StatusOK, newJobResponse(job))
}

// UnlinkJob removes the caller's link; the shared job row stays.
func (h *JobHandler) UnlinkJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	id, err := parseID(c.Param("id"))
	if err != nil {
		writeLoadError(c, log, "job", err)
		return
	}

	removed, err := h.jobs.Unlink(c.Request.Context(), session.UserID, id)
	if err != nil {
		log.Error("unlink job failed", slog.Any("error", err))
		Internal(c, "failed to unlink job")
		return
	}
	if !removed {
		NotFound(c, "job link not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// ProcessJob extracts structured fields from pasted text or a posting URL.
func (h *JobHandler) ProcessJob(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req processJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}
	if h.analyzer == nil {
		Error(c, http.StatusServiceUnavailable, "job analysis is not configured")
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), req.Content, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrInvalidType), errors.Is(err, jobs.ErrEmptyContent):
			BadRequest(c, err.Error())
		case errors.Is(err, jobs.ErrFetch), errors.Is(err, jobs.ErrParse), errors.Is(err, llm.ErrEmptyCompletion):
			log.Warn("job analysis failed", slog.Any("error", err))
			BadGateway(c, err.Error())
		default:
			log.Error("job analysis failed", slog.Any("error", err))
			BadGateway(c, "failed to analyze job posting")
		}
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
