package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task types shared by the API (producer) and the worker (consumer).
const (
	TypeResumeArchive = "resume:archive"
)

// ResumeArchivePayload identifies the resume whose PDF should be archived.
type ResumeArchivePayload struct {
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumeArchiveTask builds an archive task.
func NewResumeArchiveTask(resumeID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeArchivePayload{
		ResumeID:      resumeID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeArchive, payload), nil
}

// ParseResumeArchivePayload decodes and checks a task payload.
func ParseResumeArchivePayload(data []byte) (ResumeArchivePayload, error) {
	var p ResumeArchivePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode archive payload: %w", err)
	}
	if p.ResumeID == 0 || p.UserID == 0 {
		return p, fmt.Errorf("archive payload missing ids: %+v", p)
	}
	return p, nil
}

// NotifyChannel is the redis pub/sub channel carrying one user's notifications.
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
