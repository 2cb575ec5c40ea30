package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"resumate/internal/database"
	"resumate/internal/errcode"
	"resumate/internal/pdf"
	"resumate/internal/storage"
	"resumate/internal/tasks"
)

// ObjectStore is the upload half of the storage client.
type ObjectStore interface {
	PutPDF(ctx context.Context, objectName string, data []byte) (*minio.UploadInfo, error)
}

// ArchiveTaskHandler renders a stored resume and uploads the PDF to object storage.
type ArchiveTaskHandler struct {
	resumes  *database.ResumeRepository
	renderer pdf.Renderer
	store    ObjectStore
	pub      Publisher
	logger   *slog.Logger
}

// NewArchiveTaskHandler wires the collaborators.
func NewArchiveTaskHandler(db *gorm.DB, renderer pdf.Renderer, store ObjectStore, pub Publisher, logger *slog.Logger) *ArchiveTaskHandler {
	return &ArchiveTaskHandler{
		resumes:  database.NewResumeRepository(db),
		renderer: renderer,
		store:    store,
		pub:      pub,
		logger:   logger,
	}
}

// archiveError carries the notification code of a failed step.
type archiveError struct {
	code int
	err  error
}

func (e *archiveError) Error() string { return e.err.Error() }
func (e *archiveError) Unwrap() error { return e.err }

// ProcessTask implements asynq.Handler.
func (h *ArchiveTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseResumeArchivePayload(t.Payload())
	if err != nil {
		h.logger.Error("invalid archive payload", slog.Any("error", err))
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	if id, ok := asynq.GetTaskID(ctx); ok {
		log = log.With(slog.String("task_id", id))
	}
	log.Info("starting resume archive task")

	stored, err := h.resumes.FindWithSections(ctx, payload.ResumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			h.notify(ctx, log, payload, ArchiveNotifyMessage{Status: NotifyError, ErrorCode: errcode.ResumeNotFound, ErrorMessage: "resume not found"})
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}
	if stored.UserID != payload.UserID {
		log.Warn("archive payload user does not own resume, skipping task")
		return nil
	}

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) {
			return
		}
		code := errcode.SystemError
		var ae *archiveError
		if errors.As(retErr, &ae) {
			code = ae.code
		}
		if err := h.resumes.MarkArchive(ctx, stored.ID, database.ArchiveFailed, ""); err != nil {
			log.Error("mark archive failed", slog.Any("error", err))
		}
		h.notify(ctx, log, payload, ArchiveNotifyMessage{
			Status:       NotifyError,
			ErrorCode:    code,
			ErrorMessage: strings.TrimSpace(retErr.Error()),
		})
	}()

	data, err := pdf.RenderResume(ctx, h.renderer, stored.Content())
	if err != nil {
		log.Error("render resume pdf failed", slog.Any("error", err))
		return &archiveError{code: errcode.RenderFailed, err: err}
	}

	objectName := storage.ResumeObjectKey(stored.UserID, stored.ID, uuid.NewString())
	if _, err := h.store.PutPDF(ctx, objectName, data); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return &archiveError{code: errcode.StorageFailed, err: err}
	}

	if err := h.resumes.MarkArchive(ctx, stored.ID, database.ArchiveCompleted, objectName); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume deleted while archiving")
			return nil
		}
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	h.notify(ctx, log, payload, ArchiveNotifyMessage{Status: NotifyCompleted, ErrorCode: errcode.OK})
	log.Info("resume archive task completed", slog.String("object", objectName), slog.Int("bytes", len(data)))
	return nil
}

func (h *ArchiveTaskHandler) notify(ctx context.Context, log *slog.Logger, payload tasks.ResumeArchivePayload, msg ArchiveNotifyMessage) {
	if h.pub == nil {
		return
	}
	msg.ResumeID = payload.ResumeID
	msg.CorrelationID = payload.CorrelationID
	if err := publishNotify(ctx, h.pub, payload.UserID, msg); err != nil {
		log.Error("publish archive notification failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
