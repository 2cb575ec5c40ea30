package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumate/internal/database"
)

// ProfileHandler serves the caller's profile and its skills.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type skillPayload struct {
	Name  string `json:"name" binding:"required,max=128"`
	Level string `json:"level" binding:"max=64"`
}

type profileRequest struct {
	FullName string         `json:"fullName" binding:"required,max=255"`
	Email    string         `json:"email" binding:"omitempty,email,max=255"`
	Phone    string         `json:"phone" binding:"max=64"`
	Location string         `json:"location" binding:"max=255"`
	Headline string         `json:"headline" binding:"max=255"`
	Summary  string         `json:"summary"`
	Website  string         `json:"website" binding:"omitempty,url,max=512"`
	LinkedIn string         `json:"linkedIn" binding:"omitempty,url,max=512"`
	GitHub   string         `json:"github" binding:"omitempty,url,max=512"`
	Skills   []skillPayload `json:"skills" binding:"omitempty,max=200,dive"`
}

type profileResponse struct {
	ID             uint                    `json:"id"`
	FullName       string                  `json:"fullName"`
	Email          string                  `json:"email"`
	Phone          string                  `json:"phone"`
	Location       string                  `json:"location"`
	Headline       string                  `json:"headline"`
	Summary        string                  `json:"summary"`
	Website        string                  `json:"website"`
	LinkedIn       string                  `json:"linkedIn"`
	GitHub         string                  `json:"github"`
	Skills         []skillPayload          `json:"skills"`
	Experiences    []experienceResponse    `json:"experiences"`
	Educations     []educationResponse     `json:"educations"`
	Certifications []certificationResponse `json:"certifications"`
	Projects       []projectResponse       `json:"projects"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

func newProfileResponse(p database.Profile) profileResponse {
	resp := profileResponse{
		ID:             p.ID,
		FullName:       p.FullName,
		Email:          p.Email,
		Phone:          p.Phone,
		Location:       p.Location,
		Headline:       p.Headline,
		Summary:        p.Summary,
		Website:        p.Website,
		LinkedIn:       p.LinkedIn,
		GitHub:         p.GitHub,
		Skills:         make([]skillPayload, 0, len(p.Skills)),
		Experiences:    make([]experienceResponse, 0, len(p.Experiences)),
		Educations:     make([]educationResponse, 0, len(p.Educations)),
		Certifications: make([]certificationResponse, 0, len(p.Certifications)),
		Projects:       make([]projectResponse, 0, len(p.Projects)),
		UpdatedAt:      p.UpdatedAt,
	}
	for _, s := range p.Skills {
		resp.Skills = append(resp.Skills, skillPayload{Name: s.Name, Level: s.Level})
	}
	for _, e := range p.Experiences {
		resp.Experiences = append(resp.Experiences, newExperienceResponse(e))
	}
	for _, e := range p.Educations {
		resp.Educations = append(resp.Educations, newEducationResponse(e))
	}
	for _, cert := range p.Certifications {
		resp.Certifications = append(resp.Certifications, newCertificationResponse(cert))
	}
	for _, pr := range p.Projects {
		resp.Projects = append(resp.Projects, newProjectResponse(pr))
	}
	return resp
}

// loadFullProfile preloads skills and the first page of every dated section.
func loadFullProfile(db *gorm.DB, userID uint) (*database.Profile, error) {
	newestFirst := func(tx *gorm.DB) *gorm.DB {
		return tx.Order("start_date DESC, id DESC").Limit(defaultPageSize)
	}
	var profile database.Profile
	err := db.
		Preload("Skills", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Experiences", newestFirst).
		Preload("Educations", newestFirst).
		Preload("Certifications", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("issue_date DESC, id DESC").Limit(defaultPageSize)
		}).
		Preload("Projects", func(tx *gorm.DB) *gorm.DB { return tx.Order("id DESC").Limit(defaultPageSize) }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfile returns the caller's profile with its sections.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	profile, err := loadFullProfile(h.db.WithContext(c.Request.Context()), session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "profile not found")
			return
		}
		log.Error("load profile failed", slog.Any("error", err))
		Internal(c, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(*profile))
}

// UpsertProfile creates or overwrites the caller's personal fields and replaces the
// skill list in one transaction.
func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	log := loggerFor(c, session)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	created := false
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile database.Profile
		err := tx.Where("user_id = ?", session.UserID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			profile.UserID = session.UserID
		case err != nil:
			return err
		}

		profile.FullName = req.FullName
		profile.Email = req.Email
		profile.Phone = req.Phone
		profile.Location = req.Location
		profile.Headline = req.Headline
		profile.Summary = req.Summary
		profile.Website = req.Website
		profile.LinkedIn = req.LinkedIn
		profile.GitHub = req.GitHub
		if err := tx.Omit("Skills", "Experiences", "Educations", "Certifications", "Projects").Save(&profile).Error; err != nil {
			return err
		}

		if req.Skills == nil {
			return nil
		}
		skills := make([]database.Skill, 0, len(req.Skills))
		for _, s := range req.Skills {
			skills = append(skills, database.Skill{Name: s.Name, Level: s.Level})
		}
		return database.ReplaceSkills(tx, profile.ID, skills)
	})
	if err != nil {
		log.Error("save profile failed", slog.Any("error", err))
		Internal(c, "failed to save profile")
		return
	}

	profile, err := loadFullProfile(h.db.WithContext(ctx), session.UserID)
	if err != nil {
		log.Error("reload profile failed", slog.Any("error", err))
		Internal(c, "failed to load profile")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	log.Info("profile saved", slog.Bool("created", created))
	c.JSON(status, newProfileResponse(*profile))
}
