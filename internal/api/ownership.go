package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/auth"
	"resumate/internal/database"
)

var (
	errInvalidID = errors.New("invalid id")
	errNotOwner  = errors.New("resource not owned by caller")
)

// ownerCheck walks a record's ownership chain and returns errNotOwner unless it ends at
// the session's user.
type ownerCheck[T any] func(tx *gorm.DB, session auth.Session, record *T) error

// viaProfile authorizes records owned through profile -> user.
func viaProfile[T any](profileID func(*T) uint) ownerCheck[T] {
	return func(tx *gorm.DB, session auth.Session, record *T) error {
		var profile database.Profile
		err := tx.Select("id", "user_id").First(&profile, profileID(record)).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return errNotOwner
		case err != nil:
			return err
		}
		if profile.UserID != session.UserID {
			return errNotOwner
		}
		return nil
	}
}

// direct authorizes records carrying their owner's user ID.
func direct[T any](userID func(*T) uint) ownerCheck[T] {
	return func(_ *gorm.DB, session auth.Session, record *T) error {
		if userID(record) != session.UserID {
			return errNotOwner
		}
		return nil
	}
}

// linkedJob authorizes shared jobs the user has saved.
func linkedJob(tx *gorm.DB, session auth.Session, job *database.Job) error {
	var count int64
	if err := tx.Model(&database.UserJob{}).
		Where("user_id = ? AND job_id = ?", session.UserID, job.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errNotOwner
	}
	return nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

// loadOwned loads the record with the given path ID and authorizes it. A missing row is
// gorm.ErrRecordNotFound; a row that belongs to someone else is errNotOwner.
func loadOwned[T any](ctx context.Context, db *gorm.DB, session auth.Session, rawID string, check ownerCheck[T], preload ...string) (*T, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx)
	query := tx
	for _, p := range preload {
		query = query.Preload(p)
	}

	var record T
	if err := query.First(&record, id).Error; err != nil {
		return nil, err
	}
	if err := check(tx, session, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// writeLoadError maps loadOwned failures onto the HTTP taxonomy.
func writeLoadError(c *gin.Context, log *slog.Logger, resource string, err error) {
	switch {
	case errors.Is(err, errInvalidID):
		BadRequest(c, "invalid "+resource+" id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, resource+" not found")
	case errors.Is(err, errNotOwner):
		log.Info("ownership check failed", slog.String("resource", resource))
		Unauthorized(c)
	default:
		log.Error("load "+resource+" failed", slog.Any("error", err))
		Internal(c, "failed to load "+resource)
	}
}

// profileForSession returns the caller's profile; a user without one gets errNotOwner.
func profileForSession(ctx context.Context, db *gorm.DB, session auth.Session) (*database.Profile, error) {
	var profile database.Profile
	err := db.WithContext(ctx).Where("user_id = ?", session.UserID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotOwner
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
