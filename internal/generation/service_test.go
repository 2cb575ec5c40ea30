package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumate/internal/auth"
	"resumate/internal/database"
	"resumate/internal/resume"
)

type stubLLM struct {
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

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

const generated = "```json\n" + `{
  "title": "Senior Go Engineer",
  "fullName": "Someone Else",
  "summary": "Backend engineer.",
  "workExperiences": [
    {"company": "Old Co", "position": "Engineer", "startDate": "2015-01", "endDate": "2018-01",
     "description": ["a", "b", "c", "d", "e"]},
    {"company": "New Co", "position": "Lead", "startDate": "2018-02", "current": true, "endDate": "2031-01-01",
     "description": ["1", "2", "3", "4", "5", "6", "7"]}
  ],
  "educations": [],
  "skills": ["Go", "SQL"],
  "certifications": []
}` + "\n```"

func testProfile() database.Profile {
	return database.Profile{
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Skills:   []database.Skill{{Name: "Go"}},
		Experiences: []database.Experience{{
			Company:          "New Co",
			Position:         "Lead",
			StartDate:        time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
			CurrentlyWorking: true,
		}},
	}
}

func TestGenerateResumePersistsAndRenders(t *testing.T) {
	db := newTestDB(t)
	user := database.User{Email: "ada@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	job := database.Job{Title: "Go Engineer", CompanyName: "Acme"}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	app := database.Application{UserID: user.ID, JobID: job.ID, Status: database.StatusPending}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}

	llm := &stubLLM{reply: generated}
	renderer := &stubRenderer{}
	svc := NewService(llm, renderer, database.NewResumeRepository(db))

	info := JobInfoFromModel(job)
	res, err := svc.GenerateResume(context.Background(), auth.Session{UserID: user.ID}, Request{
		Profile:       testProfile(),
		Job:           &info,
		JobID:         &job.ID,
		ApplicationID: &app.ID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(res.PDF) != "%PDF-1.7 stub" {
		t.Fatalf("unexpected pdf %q", res.PDF)
	}
	if !strings.Contains(llm.prompt, "Acme") || !strings.Contains(llm.prompt, "Ada Lovelace") {
		t.Fatal("prompt must embed profile and job")
	}
	if res.Content.FullName != "Ada Lovelace" {
		t.Fatalf("expected profile name to win, got %q", res.Content.FullName)
	}
	if n := len(res.Content.WorkExperiences[1].Description); n != recentRoleBullets {
		t.Fatalf("expected current role capped at %d bullets, got %d", recentRoleBullets, n)
	}
	if n := len(res.Content.WorkExperiences[0].Description); n != otherRoleBullets {
		t.Fatalf("expected older role capped at %d bullets, got %d", otherRoleBullets, n)
	}
	if res.Content.WorkExperiences[1].EndDate != "" {
		t.Fatal("current role must not keep an end date")
	}

	var stored database.Resume
	if err := database.PreloadResumeSections(db).First(&stored, res.Resume.ID).Error; err != nil {
		t.Fatalf("load resume: %v", err)
	}
	if stored.UserID != user.ID || stored.JobID == nil || *stored.JobID != job.ID {
		t.Fatalf("unexpected owner or job on %+v", stored)
	}
	if len(stored.WorkExperiences) != 2 || len(stored.Skills) != 2 {
		t.Fatalf("expected nested rows, got %d experiences and %d skills", len(stored.WorkExperiences), len(stored.Skills))
	}
	var links int64
	db.Model(&database.ApplicationResume{}).Where("application_id = ? AND resume_id = ?", app.ID, stored.ID).Count(&links)
	if links != 1 {
		t.Fatalf("expected one application link, got %d", links)
	}
}

func TestGenerateResumeRejectsInvalidOutput(t *testing.T) {
	db := newTestDB(t)
	cases := map[string]*stubLLM{
		"empty":   {reply: "   "},
		"prose":   {reply: "Here is your resume!"},
		"schema":  {reply: `{"title": "x"}`},
		"failure": {err: errors.New("boom")},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(llm, &stubRenderer{}, database.NewResumeRepository(db))
			_, err := svc.GenerateResume(context.Background(), auth.Session{UserID: 1}, Request{Profile: testProfile()})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
	var count int64
	db.Model(&database.Resume{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing persisted, got %d resumes", count)
	}
}

func TestGenerateResumeEmptyResponse(t *testing.T) {
	svc := NewService(&stubLLM{reply: "```json\n```"}, &stubRenderer{}, nil)
	_, err := svc.GenerateResume(context.Background(), auth.Session{UserID: 1}, Request{Profile: testProfile()})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
}

func TestGenerateResumeRenderFailureStoresNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(&stubLLM{reply: generated}, &stubRenderer{err: errors.New("chrome missing")}, database.NewResumeRepository(db))
	if _, err := svc.GenerateResume(context.Background(), auth.Session{UserID: 1}, Request{Profile: testProfile()}); err == nil {
		t.Fatal("expected render error")
	}
	var count int64
	db.Model(&database.Resume{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing persisted, got %d", count)
	}
}

func TestGenerateResumeRequiresSession(t *testing.T) {
	svc := NewService(&stubLLM{reply: generated}, &stubRenderer{}, nil)
	if _, err := svc.GenerateResume(context.Background(), auth.Session{}, Request{}); !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected no session error, got %v", err)
	}
}

func TestGenerateCoverLetter(t *testing.T) {
	llm := &stubLLM{reply: `{"greeting":"Dear Acme team,","paragraphs":["I build APIs.","I like Go."],"closing":"Best,"}`}
	renderer := &stubRenderer{}
	svc := NewService(llm, renderer, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	data, err := svc.GenerateCoverLetter(context.Background(), testProfile(), JobInfo{Title: "Go Engineer", CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("cover letter: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected pdf bytes")
	}
	for _, want := range []string{"March 5, 2024", "Dear Acme team,", "<p>I like Go.</p>", "Ada Lovelace", "Acme"} {
		if !strings.Contains(renderer.html, want) {
			t.Errorf("expected letter html to contain %q", want)
		}
	}
}

func TestMostRecentRole(t *testing.T) {
	// no current role: the latest start wins
	roles := []resume.WorkExperience{
		{StartDate: "2019-01"},
		{StartDate: "2022-06"},
		{StartDate: "2020-01"},
	}
	if got := mostRecentRole(roles); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := mostRecentRole(nil); got != -1 {
		t.Fatalf("expected -1 for no roles, got %d", got)
	}
}
