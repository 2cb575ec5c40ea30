package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resumate/internal/resume"
)

// ResumeRepository persists structured resume content.
type ResumeRepository struct {
	db *gorm.DB
}

// NewResumeRepository wraps db.
func NewResumeRepository(db *gorm.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

// CreateFromContent inserts a resume with all nested sections and, when applicationID is set,
// links it to that application. Everything happens in one transaction.
func (r *ResumeRepository) CreateFromContent(ctx context.Context, userID uint, jobID, applicationID *uint, content resume.Content) (*Resume, error) {
	model := ResumeFromContent(content)
	model.UserID = userID
	model.JobID = jobID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("create resume: %w", err)
		}
		if applicationID == nil {
			return nil
		}
		link := ApplicationResume{ApplicationID: *applicationID, ResumeID: model.ID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("link resume to application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ReplaceContent overwrites the personal fields and every nested list of an existing resume
// inside one transaction.
func (r *ResumeRepository) ReplaceContent(ctx context.Context, existing *Resume, content resume.Content) (*Resume, error) {
	next := ResumeFromContent(content)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The archive is reset: a stored PDF would no longer match.
		if err := tx.Model(existing).Updates(map[string]any{
			"title":          next.Title,
			"full_name":      next.FullName,
			"email":          next.Email,
			"phone":          next.Phone,
			"location":       next.Location,
			"website":        next.Website,
			"linked_in":      next.LinkedIn,
			"git_hub":        next.GitHub,
			"summary":        next.Summary,
			"archive_status": "",
			"pdf_object_key": "",
		}).Error; err != nil {
			return fmt.Errorf("update resume: %w", err)
		}
		if err := ReplaceChildren(tx, "resume_id", existing.ID, withResumeID(next.WorkExperiences, existing.ID, func(w *ResumeWorkExperience, id uint) { w.ResumeID = id })); err != nil {
			return fmt.Errorf("replace work experiences: %w", err)
		}
		if err := ReplaceChildren(tx, "resume_id", existing.ID, withResumeID(next.Educations, existing.ID, func(e *ResumeEducation, id uint) { e.ResumeID = id })); err != nil {
			return fmt.Errorf("replace educations: %w", err)
		}
		if err := ReplaceChildren(tx, "resume_id", existing.ID, withResumeID(next.Skills, existing.ID, func(s *ResumeSkill, id uint) { s.ResumeID = id })); err != nil {
			return fmt.Errorf("replace skills: %w", err)
		}
		if err := ReplaceChildren(tx, "resume_id", existing.ID, withResumeID(next.Certifications, existing.ID, func(c *ResumeCertification, id uint) { c.ResumeID = id })); err != nil {
			return fmt.Errorf("replace certifications: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindWithSections(ctx, existing.ID)
}

// MarkArchive records the outcome of an archive run. key is kept only on success.
func (r *ResumeRepository) MarkArchive(ctx context.Context, id uint, status, key string) error {
	updates := map[string]any{"archive_status": status}
	if status == ArchiveCompleted {
		updates["pdf_object_key"] = key
	}
	res := r.db.WithContext(ctx).Model(&Resume{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("mark resume %d archive %s: %w", id, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindWithSections loads a resume and its ordered nested lists.
func (r *ResumeRepository) FindWithSections(ctx context.Context, id uint) (*Resume, error) {
	var model Resume
	err := PreloadResumeSections(r.db.WithContext(ctx)).First(&model, id).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// PreloadResumeSections adds ordered preloads of every nested resume list.
func PreloadResumeSections(db *gorm.DB) *gorm.DB {
	ordered := func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order ASC, id ASC") }
	return db.
		Preload("WorkExperiences", ordered).
		Preload("Educations", ordered).
		Preload("Skills", ordered).
		Preload("Certifications", ordered)
}

func withResumeID[T any](rows []T, id uint, set func(*T, uint)) []T {
	for i := range rows {
		set(&rows[i], id)
	}
	return rows
}

// ResumeFromContent maps structured content onto unsaved rows.
func ResumeFromContent(content resume.Content) Resume {
	content.Normalize()
	model := Resume{
		Title:    content.Title,
		FullName: content.FullName,
		Email:    content.Email,
		Phone:    content.Phone,
		Location: content.Location,
		Website:  content.Website,
		LinkedIn: content.LinkedIn,
		GitHub:   content.GitHub,
		Summary:  content.Summary,
	}
	for i, w := range content.WorkExperiences {
		model.WorkExperiences = append(model.WorkExperiences, ResumeWorkExperience{
			SortOrder:   i,
			Company:     w.Company,
			Title:       w.Position,
			Location:    w.Location,
			StartDate:   w.StartDate,
			EndDate:     w.EndDate,
			Current:     w.Current,
			Description: w.Description,
		})
	}
	for i, e := range content.Educations {
		model.Educations = append(model.Educations, ResumeEducation{
			SortOrder:    i,
			Institution:  e.Institution,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			Location:     e.Location,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Current:      e.Current,
			Description:  e.Description,
		})
	}
	for i, s := range content.Skills {
		model.Skills = append(model.Skills, ResumeSkill{SortOrder: i, Name: s})
	}
	for i, c := range content.Certifications {
		model.Certifications = append(model.Certifications, ResumeCertification{
			SortOrder:     i,
			Name:          c.Name,
			Issuer:        c.Issuer,
			IssueDate:     c.IssueDate,
			ExpiryDate:    c.ExpiryDate,
			CredentialURL: c.CredentialURL,
		})
	}
	return model
}

// Content maps a loaded resume back to structured content.
func (r Resume) Content() resume.Content {
	content := resume.Content{
		Title:           r.Title,
		FullName:        r.FullName,
		Email:           r.Email,
		Phone:           r.Phone,
		Location:        r.Location,
		Website:         r.Website,
		LinkedIn:        r.LinkedIn,
		GitHub:          r.GitHub,
		Summary:         r.Summary,
		WorkExperiences: make([]resume.WorkExperience, 0, len(r.WorkExperiences)),
		Educations:      make([]resume.Education, 0, len(r.Educations)),
		Skills:          make([]string, 0, len(r.Skills)),
		Certifications:  make([]resume.Certification, 0, len(r.Certifications)),
	}
	for _, w := range r.WorkExperiences {
		content.WorkExperiences = append(content.WorkExperiences, resume.WorkExperience{
			Company:     w.Company,
			Position:    w.Title,
			Location:    w.Location,
			StartDate:   w.StartDate,
			EndDate:     w.EndDate,
			Current:     w.Current,
			Description: append([]string{}, w.Description...),
		})
	}
	for _, e := range r.Educations {
		content.Educations = append(content.Educations, resume.Education{
			Institution:  e.Institution,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			Location:     e.Location,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Current:      e.Current,
			Description:  e.Description,
		})
	}
	for _, s := range r.Skills {
		content.Skills = append(content.Skills, s.Name)
	}
	for _, c := range r.Certifications {
		content.Certifications = append(content.Certifications, resume.Certification{
			Name:          c.Name,
			Issuer:        c.Issuer,
			IssueDate:     c.IssueDate,
			ExpiryDate:    c.ExpiryDate,
			CredentialURL: c.CredentialURL,
		})
	}
	return content
}
