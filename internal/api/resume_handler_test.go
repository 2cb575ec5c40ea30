package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"resumate/internal/database"
	"resumate/internal/tasks"
)

func resumeBody(title string) map[string]any {
	return map[string]any{
		"title":   title,
		"summary": "Backend engineer",
		"workExperiences": []map[string]any{{
			"company":     "Acme",
			"position":    "Engineer",
			"startDate":   "2020-01",
			"current":     true,
			"endDate":     "2022-01",
			"description": []string{"Built APIs", " "},
		}},
		"educations":     []map[string]any{},
		"skills":         []string{"Go", ""},
		"certifications": []map[string]any{},
	}
}

func TestResumeCRUD(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	w := env.do(&ada, http.MethodPost, "/api/resumes", resumeBody("Backend"))
	expectStatus(t, w, http.StatusCreated)
	created := decode[resumeResponse](t, w)
	if created.Title != "Backend" || len(created.Skills) != 1 {
		t.Fatalf("unexpected resume %+v", created)
	}
	if len(created.WorkExperiences) != 1 || created.WorkExperiences[0].EndDate != "" {
		t.Fatalf("current role must have no end date: %+v", created.WorkExperiences)
	}

	path := fmt.Sprintf("/api/resumes/%d", created.ID)
	w = env.do(&ada, http.MethodPut, path, resumeBody("Platform"))
	expectStatus(t, w, http.StatusOK)
	if got := decode[resumeResponse](t, w); got.Title != "Platform" {
		t.Fatalf("expected updated title, got %q", got.Title)
	}

	var sections int64
	env.db.Model(&database.ResumeWorkExperience{}).Where("resume_id = ?", created.ID).Count(&sections)
	if sections != 1 {
		t.Fatalf("sections must be replaced, found %d", sections)
	}

	w = env.do(&ada, http.MethodGet, "/api/resumes", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[page[resumeSummary]](t, w); got.TotalCount != 1 {
		t.Fatalf("expected 1 resume, got %d", got.TotalCount)
	}

	expectStatus(t, env.do(&ada, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, env.do(&ada, http.MethodGet, path, nil), http.StatusNotFound)
	if len(env.store.deleted) != 1 || !strings.HasPrefix(env.store.deleted[0], "resumes/") {
		t.Fatalf("expected archived pdfs to be removed, got %v", env.store.deleted)
	}
	env.db.Model(&database.ResumeWorkExperience{}).Where("resume_id = ?", created.ID).Count(&sections)
	if sections != 0 {
		t.Fatal("sections must be deleted with the resume")
	}
}

func TestListResumesPaginates(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	grace := env.newUser("grace@example.com")

	var ids []uint
	for _, title := range []string{"One", "Two", "Three"} {
		w := env.do(&ada, http.MethodPost, "/api/resumes", resumeBody(title))
		expectStatus(t, w, http.StatusCreated)
		ids = append(ids, decode[resumeResponse](t, w).ID)
	}
	expectStatus(t, env.do(&grace, http.MethodPost, "/api/resumes", resumeBody("Other")), http.StatusCreated)

	w := env.do(&ada, http.MethodGet, "/api/resumes?pageSize=2", nil)
	expectStatus(t, w, http.StatusOK)
	first := decode[page[resumeSummary]](t, w)
	if first.TotalCount != 3 || first.PageSize != 2 || len(first.Items) != 2 || first.NextPageKey == nil {
		t.Fatalf("unexpected first page %+v", first)
	}
	if first.Items[0].ID != ids[2] || first.Items[1].ID != ids[1] {
		t.Fatalf("expected newest first, got %+v", first.Items)
	}

	w = env.do(&ada, http.MethodGet, "/api/resumes?pageSize=2&nextPageKey="+*first.NextPageKey, nil)
	expectStatus(t, w, http.StatusOK)
	second := decode[page[resumeSummary]](t, w)
	if len(second.Items) != 1 || second.Items[0].ID != ids[0] || second.NextPageKey != nil {
		t.Fatalf("unexpected second page %+v", second)
	}
}

func TestCreateResumeRejectsInvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	body := resumeBody("Backend")
	delete(body, "skills")
	w := env.do(&ada, http.MethodPost, "/api/resumes", body)
	expectStatus(t, w, http.StatusBadRequest)
	if got := decode[validationBody](t, w); got.Error != "validation failed" || len(got.Details) == 0 {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestResumeOwnership(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	bob := env.newUser("bob@example.com")

	w := env.do(&ada, http.MethodPost, "/api/resumes", resumeBody("Backend"))
	expectStatus(t, w, http.StatusCreated)
	path := fmt.Sprintf("/api/resumes/%d", decode[resumeResponse](t, w).ID)

	expectStatus(t, env.do(&bob, http.MethodGet, path, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodPut, path, resumeBody("Stolen")), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodDelete, path, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodPost, path+"/archive", nil), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodGet, path+"/download-link", nil), http.StatusUnauthorized)
}

func TestArchiveAndDownloadLink(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	w := env.do(&ada, http.MethodPost, "/api/resumes", resumeBody("Backend"))
	expectStatus(t, w, http.StatusCreated)
	id := decode[resumeResponse](t, w).ID
	path := fmt.Sprintf("/api/resumes/%d", id)

	expectStatus(t, env.do(&ada, http.MethodGet, path+"/download-link", nil), http.StatusConflict)

	w = env.do(&ada, http.MethodPost, path+"/archive", nil)
	expectStatus(t, w, http.StatusAccepted)
	if len(env.queue.tasks) != 1 || env.queue.tasks[0].Type() != tasks.TypeResumeArchive {
		t.Fatalf("expected one archive task, got %d", len(env.queue.tasks))
	}
	payload, err := tasks.ParseResumeArchivePayload(env.queue.tasks[0].Payload())
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if payload.ResumeID != id || payload.UserID != ada.ID {
		t.Fatalf("unexpected payload %+v", payload)
	}

	var stored database.Resume
	env.db.First(&stored, id)
	if stored.ArchiveStatus != database.ArchivePending {
		t.Fatalf("expected pending archive, got %q", stored.ArchiveStatus)
	}

	key := fmt.Sprintf("resumes/%d/%d/backend.pdf", ada.ID, id)
	if err := database.NewResumeRepository(env.db).MarkArchive(context.Background(), id, database.ArchiveCompleted, key); err != nil {
		t.Fatalf("mark archive: %v", err)
	}

	w = env.do(&ada, http.MethodGet, path+"/download-link", nil)
	expectStatus(t, w, http.StatusOK)
	link := decode[map[string]string](t, w)
	if !strings.Contains(link["url"], key) || link["expiresAt"] == "" {
		t.Fatalf("unexpected link %v", link)
	}
}

func TestArchiveEnqueueFailureRestoresStatus(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.queue.err = errors.New("redis unavailable")

	w := env.do(&ada, http.MethodPost, "/api/resumes", resumeBody("Backend"))
	expectStatus(t, w, http.StatusCreated)
	fresh := decode[resumeResponse](t, w).ID

	w = env.do(&ada, http.MethodPost, "/api/resumes", resumeBody("Archived"))
	expectStatus(t, w, http.StatusCreated)
	archived := decode[resumeResponse](t, w).ID
	key := fmt.Sprintf("resumes/%d/%d/archived.pdf", ada.ID, archived)
	if err := database.NewResumeRepository(env.db).MarkArchive(context.Background(), archived, database.ArchiveCompleted, key); err != nil {
		t.Fatalf("mark archive: %v", err)
	}

	want := map[uint]string{fresh: "", archived: database.ArchiveCompleted}
	for id, status := range want {
		expectStatus(t, env.do(&ada, http.MethodPost, fmt.Sprintf("/api/resumes/%d/archive", id), nil), http.StatusInternalServerError)
		var stored database.Resume
		if err := env.db.First(&stored, id).Error; err != nil {
			t.Fatalf("load resume: %v", err)
		}
		if stored.ArchiveStatus != status {
			t.Fatalf("resume %d: expected status %q after failed enqueue, got %q", id, status, stored.ArchiveStatus)
		}
	}
	expectStatus(t, env.do(&ada, http.MethodGet, fmt.Sprintf("/api/resumes/%d/download-link", archived), nil), http.StatusOK)
}

const generatedResume = "```json\n" + `{
  "title": "Go Engineer",
  "summary": "Backend engineer.",
  "workExperiences": [{"company": "Acme", "position": "Engineer", "startDate": "2020-01", "description": ["Built APIs"]}],
  "educations": [],
  "skills": ["Go"],
  "certifications": []
}` + "\n```"

func TestGenerateResumeReturnsPDF(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.llm.reply = generatedResume

	w := env.do(&ada, http.MethodPost, "/api/generate-resume", map[string]any{
		"job": map[string]any{"title": "Go Engineer", "companyName": "Acme"},
	})
	expectStatus(t, w, http.StatusOK)

	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	id, err := strconv.ParseUint(w.Header().Get("X-Resume-Id"), 10, 64)
	if err != nil {
		t.Fatalf("missing resume id header: %v", err)
	}

	var stored database.Resume
	if err := env.db.First(&stored, id).Error; err != nil {
		t.Fatalf("load generated resume: %v", err)
	}
	if stored.UserID != ada.ID || stored.FullName != "User ada@example.com" {
		t.Fatalf("unexpected stored resume %+v", stored)
	}
	if len(env.queue.tasks) != 1 {
		t.Fatalf("expected generation to queue an archive, got %d tasks", len(env.queue.tasks))
	}
}

func TestGenerateForUnlinkedJob(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.llm.reply = generatedResume
	job := seedJob(t, env, "Go Engineer")

	expectStatus(t, env.do(&ada, http.MethodPost, "/api/resumes/generate", map[string]any{"jobId": job.ID}), http.StatusUnauthorized)

	if err := database.NewJobRepository(env.db).Link(context.Background(), ada.ID, job.ID); err != nil {
		t.Fatalf("link job: %v", err)
	}
	w := env.do(&ada, http.MethodPost, "/api/resumes/generate", map[string]any{"jobId": job.ID})
	expectStatus(t, w, http.StatusOK)
}

func TestGenerateResumeInvalidModelOutput(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.llm.reply = `{"title": "missing everything else"}`

	expectStatus(t, env.do(&ada, http.MethodPost, "/api/generate-resume", nil), http.StatusBadGateway)

	var count int64
	env.db.Model(&database.Resume{}).Count(&count)
	if count != 0 {
		t.Fatal("a failed generation must not store a resume")
	}
}

func TestGenerateAcceptsChunkedEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.llm.reply = generatedResume

	req := httptest.NewRequest(http.MethodPost, "/api/resumes/generate", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ada.Token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
