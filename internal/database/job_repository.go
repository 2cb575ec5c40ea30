package database

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository reads and links shared job postings.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository wraps db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// FindByURL returns the job stored under url, or nil when there is none.
func (r *JobRepository) FindByURL(ctx context.Context, url string) (*Job, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	var job Job
	err := r.db.WithContext(ctx).Where("url = ?", url).First(&job).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &job, nil
}

// Link associates the job with the user; linking twice is a no-op.
func (r *JobRepository) Link(ctx context.Context, userID, jobID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserJob{UserID: userID, JobID: jobID}).Error
}

// Unlink removes the association and reports whether one existed.
func (r *JobRepository) Unlink(ctx context.Context, userID, jobID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Delete(&UserJob{})
	return res.RowsAffected > 0, res.Error
}

// IsLinked reports whether the user saved the job.
func (r *JobRepository) IsLinked(ctx context.Context, userID, jobID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserJob{}).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Count(&count).Error
	return count > 0, err
}
