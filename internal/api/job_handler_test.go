package api

import (
	"fmt"
	"net/http"
	"testing"

	"resumate/internal/database"
	"resumate/internal/jobs"
)

func TestCreateJobDeduplicatesByURL(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	bob := env.newUser("bob@example.com")

	body := map[string]any{
		"title":        "Go Engineer",
		"companyName":  "Acme",
		"url":          "https://jobs.example/123",
		"requirements": []string{"Go", "SQL"},
	}

	w := env.do(&ada, http.MethodPost, "/api/jobs", body)
	expectStatus(t, w, http.StatusCreated)
	first := decode[jobResponse](t, w)

	w = env.do(&bob, http.MethodPost, "/api/jobs", body)
	expectStatus(t, w, http.StatusOK)
	second := decode[jobResponse](t, w)

	if first.ID != second.ID {
		t.Fatalf("expected the stored job to be reused, got %d and %d", first.ID, second.ID)
	}

	var jobs, links int64
	env.db.Model(&database.Job{}).Count(&jobs)
	env.db.Model(&database.UserJob{}).Where("job_id = ?", first.ID).Count(&links)
	if jobs != 1 || links != 2 {
		t.Fatalf("expected 1 job linked twice, got %d jobs and %d links", jobs, links)
	}

	w = env.do(&bob, http.MethodGet, "/api/jobs", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[page[jobResponse]](t, w); got.TotalCount != 1 || got.Items[0].ID != first.ID {
		t.Fatalf("unexpected job list %+v", got)
	}
}

func TestCreateJobRequiresDescriptionWithoutURL(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	w := env.do(&ada, http.MethodPost, "/api/jobs", map[string]any{"companyName": "Acme"})
	expectStatus(t, w, http.StatusBadRequest)
	if body := decode[validationBody](t, w); !body.has("description") {
		t.Fatalf("expected description detail, got %+v", body.Details)
	}
}

func TestJobLinkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	bob := env.newUser("bob@example.com")

	w := env.do(&ada, http.MethodPost, "/api/jobs", map[string]any{"title": "SRE", "description": "pager"})
	expectStatus(t, w, http.StatusCreated)
	job := decode[jobResponse](t, w)
	path := fmt.Sprintf("/api/jobs/%d", job.ID)

	expectStatus(t, env.do(&bob, http.MethodGet, path, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(&bob, http.MethodPost, path+"/user-link", nil), http.StatusOK)
	expectStatus(t, env.do(&bob, http.MethodGet, path, nil), http.StatusOK)

	expectStatus(t, env.do(&bob, http.MethodDelete, path+"/user-link", nil), http.StatusNoContent)
	expectStatus(t, env.do(&bob, http.MethodDelete, path+"/user-link", nil), http.StatusNotFound)
	expectStatus(t, env.do(&bob, http.MethodPost, "/api/jobs/999999/user-link", nil), http.StatusNotFound)

	var count int64
	env.db.Model(&database.Job{}).Where("id = ?", job.ID).Count(&count)
	if count != 1 {
		t.Fatal("unlinking must keep the shared job")
	}
}

func TestProcessJobText(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	env.llm.reply = "```json\n" + `{"companyName":"Acme","position":"Go Engineer","description":"Build APIs",
"requirements":["Go"," SQL ",""],"salary":"","location":"Remote"}` + "\n```"

	w := env.do(&ada, http.MethodPost, "/api/process-job", map[string]any{
		"type": "text", "content": "Acme is hiring a Go Engineer",
	})
	expectStatus(t, w, http.StatusOK)

	got := decode[jobs.Analysis](t, w)
	if got.CompanyName != "Acme" || got.Position != "Go Engineer" {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if len(got.Requirements) != 2 || got.Salary != nil {
		t.Fatalf("expected normalized requirements and null salary, got %+v", got)
	}
}

func TestProcessJobReusesStoredURL(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")
	url := "https://jobs.example/42"
	job := database.Job{Title: "SRE", CompanyName: "Acme", URL: &url}
	if err := env.db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	w := env.do(&ada, http.MethodPost, "/api/process-job", map[string]any{"type": "url", "content": url})
	expectStatus(t, w, http.StatusOK)
	got := decode[jobs.Analysis](t, w)
	if got.JobID == nil || *got.JobID != job.ID {
		t.Fatalf("expected stored job %d, got %+v", job.ID, got)
	}
}

func TestProcessJobErrors(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	expectStatus(t, env.do(&ada, http.MethodPost, "/api/process-job", map[string]any{
		"type": "pdf", "content": "x",
	}), http.StatusBadRequest)

	for _, reply := range []string{"I could not find a job here.", "null", "{}"} {
		env.llm.reply = reply
		expectStatus(t, env.do(&ada, http.MethodPost, "/api/process-job", map[string]any{
			"type": "text", "content": "hello",
		}), http.StatusBadGateway)
	}
}
