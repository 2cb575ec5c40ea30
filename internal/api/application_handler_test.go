package api

import (
	"fmt"
	"net/http"
	"testing"

	"resumate/internal/database"
)

func seedJob(t *testing.T, env *testEnv, title string) database.Job {
	t.Helper()
	job := database.Job{Title: title, CompanyName: "Acme", Description: "Build things"}
	if err := env.db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestApplicationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	job := seedJob(t, env, "Go Engineer")

	w := env.do(&ada, http.MethodPost, "/api/applications", map[string]any{"jobId": job.ID, "notes": "referral"})
	expectStatus(t, w, http.StatusCreated)
	created := decode[applicationResponse](t, w)
	if created.Status != database.StatusPending || created.Job == nil || created.Job.ID != job.ID {
		t.Fatalf("unexpected application %+v", created)
	}

	var links int64
	env.db.Model(&database.UserJob{}).Where("user_id = ? AND job_id = ?", ada.ID, job.ID).Count(&links)
	if links != 1 {
		t.Fatal("creating an application must save the job for the user")
	}

	path := fmt.Sprintf("/api/applications/%d", created.ID)
	w = env.do(&ada, http.MethodPatch, path, map[string]any{"status": "applied"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[applicationResponse](t, w); got.Status != database.StatusApplied {
		t.Fatalf("expected applied, got %q", got.Status)
	}

	w = env.do(&ada, http.MethodGet, "/api/applications?status=applied", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[page[applicationResponse]](t, w); got.TotalCount != 1 {
		t.Fatalf("expected 1 applied application, got %d", got.TotalCount)
	}
	w = env.do(&ada, http.MethodGet, "/api/applications?status=rejected", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[page[applicationResponse]](t, w); got.TotalCount != 0 {
		t.Fatalf("expected no rejected application, got %d", got.TotalCount)
	}

	expectStatus(t, env.do(&ada, http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, env.do(&ada, http.MethodGet, path, nil), http.StatusNotFound)
}

func TestUpdateApplicationRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	job := seedJob(t, env, "Go Engineer")
	application := database.Application{UserID: ada.ID, JobID: job.ID, Status: database.StatusApplied}
	if err := env.db.Create(&application).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}

	w := env.do(&ada, http.MethodPatch, fmt.Sprintf("/api/applications/%d", application.ID), map[string]any{"status": "archived"})
	expectStatus(t, w, http.StatusBadRequest)
	if body := decode[validationBody](t, w); !body.has("status") {
		t.Fatalf("expected status detail, got %+v", body.Details)
	}

	var stored database.Application
	env.db.First(&stored, application.ID)
	if stored.Status != database.StatusApplied {
		t.Fatalf("status must not change, got %q", stored.Status)
	}

	expectStatus(t, env.do(&ada, http.MethodGet, "/api/applications?status=archived", nil), http.StatusBadRequest)
}

func TestApplicationOwnership(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	bob := env.newUser("bob@example.com")
	job := seedJob(t, env, "Go Engineer")

	application := database.Application{UserID: ada.ID, JobID: job.ID, Status: database.StatusPending}
	env.db.Create(&application)
	path := fmt.Sprintf("/api/applications/%d", application.ID)

	expectStatus(t, env.do(&bob, http.MethodGet, path, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodPatch, path, map[string]any{"status": "rejected"}), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodDelete, path, nil), http.StatusUnauthorized)

	adaResume := database.Resume{UserID: ada.ID, Title: "Mine"}
	env.db.Create(&adaResume)
	expectStatus(t, env.do(&bob, http.MethodPost, "/api/applications", map[string]any{
		"jobId": job.ID, "resumeId": adaResume.ID,
	}), http.StatusUnauthorized)

	expectStatus(t, env.do(&bob, http.MethodPost, "/api/applications", map[string]any{"jobId": 999999}), http.StatusNotFound)
}
