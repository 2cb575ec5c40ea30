package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumate/internal/database"
	"resumate/internal/errcode"
	"resumate/internal/resume"
	"resumate/internal/tasks"
)

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7 stub"), nil
}

type memoryStore struct {
	objects map[string][]byte
	err     error
}

func (m *memoryStore) PutPDF(_ context.Context, name string, data []byte) (*minio.UploadInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = data
	return &minio.UploadInfo{Key: name, Size: int64(len(data))}, nil
}

type recordingPublisher struct {
	channels []string
	messages []ArchiveNotifyMessage
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	var msg ArchiveNotifyMessage
	_ = json.Unmarshal(message.([]byte), &msg)
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, msg)
	return redis.NewIntResult(1, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedResume(t *testing.T, db *gorm.DB) *database.Resume {
	t.Helper()
	user := database.User{Email: "a@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	stored, err := database.NewResumeRepository(db).CreateFromContent(context.Background(), user.ID, nil, nil, resume.Content{
		Title:    "Platform Engineer",
		FullName: "Ada Example",
		Skills:   []string{"Go"},
	})
	if err != nil {
		t.Fatalf("create resume: %v", err)
	}
	return stored
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveTaskUploadsAndNotifies(t *testing.T) {
	db := newTestDB(t)
	stored := seedResume(t, db)
	renderer := &stubRenderer{}
	store := &memoryStore{}
	pub := &recordingPublisher{}

	handler := NewArchiveTaskHandler(db, renderer, store, pub, discardLogger())
	task, err := tasks.NewResumeArchiveTask(stored.ID, stored.UserID, "corr-7")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	if !strings.Contains(renderer.html, "Ada Example") {
		t.Fatal("rendered html does not contain resume content")
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected one uploaded object, got %d", len(store.objects))
	}

	var reloaded database.Resume
	if err := db.First(&reloaded, stored.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ArchiveStatus != database.ArchiveCompleted {
		t.Fatalf("expected completed archive, got %q", reloaded.ArchiveStatus)
	}
	if _, ok := store.objects[reloaded.PdfObjectKey]; !ok {
		t.Fatalf("stored key %q was not uploaded", reloaded.PdfObjectKey)
	}
	if !strings.HasPrefix(reloaded.PdfObjectKey, "resumes/") {
		t.Fatalf("unexpected key layout %q", reloaded.PdfObjectKey)
	}

	if len(pub.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.Status != NotifyCompleted || msg.ResumeID != stored.ID || msg.CorrelationID != "corr-7" || msg.ErrorCode != errcode.OK {
		t.Fatalf("unexpected notification %+v", msg)
	}
	if pub.channels[0] != tasks.NotifyChannel(stored.UserID) {
		t.Fatalf("unexpected channel %q", pub.channels[0])
	}
}

func TestArchiveTaskSkipsMissingResume(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	handler := NewArchiveTaskHandler(db, &stubRenderer{}, &memoryStore{}, pub, discardLogger())

	task, _ := tasks.NewResumeArchiveTask(999, 1, "")
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("missing resume should not be retried: %v", err)
	}
	if len(pub.messages) != 1 || pub.messages[0].ErrorCode != errcode.ResumeNotFound {
		t.Fatalf("unexpected notifications %+v", pub.messages)
	}
}

func TestArchiveTaskReturnsStorageError(t *testing.T) {
	db := newTestDB(t)
	stored := seedResume(t, db)
	uploadErr := errors.New("minio down")
	handler := NewArchiveTaskHandler(db, &stubRenderer{}, &memoryStore{err: uploadErr}, &recordingPublisher{}, discardLogger())

	task, _ := tasks.NewResumeArchiveTask(stored.ID, stored.UserID, "")
	err := handler.ProcessTask(context.Background(), task)
	if !errors.Is(err, uploadErr) {
		t.Fatalf("expected upload error, got %v", err)
	}
	var ae *archiveError
	if !errors.As(err, &ae) || ae.code != errcode.StorageFailed {
		t.Fatalf("expected storage error code, got %v", err)
	}

	var reloaded database.Resume
	if err := db.First(&reloaded, stored.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PdfObjectKey != "" {
		t.Fatal("failed upload must not record an object key")
	}
}

func TestArchiveTaskRejectsBadPayload(t *testing.T) {
	handler := NewArchiveTaskHandler(newTestDB(t), &stubRenderer{}, &memoryStore{}, nil, discardLogger())
	task, _ := tasks.NewResumeArchiveTask(0, 0, "")
	if err := handler.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
