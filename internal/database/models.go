package database

import (
	"time"

	"gorm.io/datatypes"
)

// Model mirrors gorm.Model without DeletedAt: every delete in this system is a hard delete.
type Model struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is an account identity.
type User struct {
	Model
	Email         string  `gorm:"uniqueIndex;size:255;not null"`
	Name          string  `gorm:"size:255"`
	PasswordHash  string  `gorm:"size:255"`
	GoogleSubject *string `gorm:"uniqueIndex;size:255"`
	Profile       *Profile
	Applications  []Application `gorm:"constraint:OnDelete:CASCADE"`
	Resumes       []Resume      `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile is the 1:1 career-identity record of a user.
type Profile struct {
	Model
	UserID         uint            `gorm:"uniqueIndex;not null"`
	FullName       string          `gorm:"size:255"`
	Email          string          `gorm:"size:255"`
	Phone          string          `gorm:"size:64"`
	Location       string          `gorm:"size:255"`
	Headline       string          `gorm:"size:255"`
	Summary        string          `gorm:"type:text"`
	Website        string          `gorm:"size:512"`
	LinkedIn       string          `gorm:"size:512"`
	GitHub         string          `gorm:"size:512"`
	Skills         []Skill         `gorm:"constraint:OnDelete:CASCADE"`
	Experiences    []Experience    `gorm:"constraint:OnDelete:CASCADE"`
	Educations     []Education     `gorm:"constraint:OnDelete:CASCADE"`
	Certifications []Certification `gorm:"constraint:OnDelete:CASCADE"`
	Projects       []Project       `gorm:"constraint:OnDelete:CASCADE"`
}

// Skill belongs to a profile and is replaced as a whole list.
type Skill struct {
	Model
	ProfileID uint   `gorm:"index;not null"`
	Name      string `gorm:"size:128;not null"`
	Level     string `gorm:"size:64"`
}

// Experience is a date-ranged work record; a nil EndDate means ongoing.
type Experience struct {
	Model
	ProfileID        uint   `gorm:"index;not null"`
	Company          string `gorm:"size:255;not null"`
	Position         string `gorm:"size:255;not null"`
	Location         string `gorm:"size:255"`
	StartDate        time.Time
	EndDate          *time.Time
	CurrentlyWorking bool
	Description      string `gorm:"type:text"`
}

// Education is a date-ranged study record; a nil EndDate means ongoing.
type Education struct {
	Model
	ProfileID         uint   `gorm:"index;not null"`
	Institution       string `gorm:"size:255;not null"`
	Degree            string `gorm:"size:255;not null"`
	FieldOfStudy      string `gorm:"size:255"`
	Location          string `gorm:"size:255"`
	StartDate         time.Time
	EndDate           *time.Time
	CurrentlyStudying bool
	Grade             string `gorm:"size:64"`
	Description       string `gorm:"type:text"`
}

// Certification is a credential; a nil ExpiryDate means it does not expire.
type Certification struct {
	Model
	ProfileID     uint   `gorm:"index;not null"`
	Name          string `gorm:"size:255;not null"`
	Issuer        string `gorm:"size:255;not null"`
	IssueDate     time.Time
	ExpiryDate    *time.Time
	CredentialID  string `gorm:"size:255"`
	CredentialURL string `gorm:"size:512"`
}

// Project is a portfolio entry.
type Project struct {
	Model
	ProfileID    uint   `gorm:"index;not null"`
	Name         string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	URL          string `gorm:"size:512"`
	Technologies datatypes.JSONSlice[string]
	StartDate    *time.Time
	EndDate      *time.Time
}

// Job is a normalized posting shared between users through UserJob.
type Job struct {
	Model
	Title        string `gorm:"size:255"`
	CompanyName  string `gorm:"size:255"`
	Description  string `gorm:"type:text"`
	Requirements datatypes.JSONSlice[string]
	URL          *string `gorm:"uniqueIndex;size:1024"`
	Location     *string `gorm:"size:255"`
	Salary       *string `gorm:"size:255"`
}

// UserJob links a user to a job they saved.
type UserJob struct {
	UserID    uint `gorm:"primaryKey"`
	JobID     uint `gorm:"primaryKey"`
	CreatedAt time.Time
	User      User `gorm:"constraint:OnDelete:CASCADE"`
	Job       Job  `gorm:"constraint:OnDelete:CASCADE"`
}

// Application statuses.
const (
	StatusPending  = "pending"
	StatusApplied  = "applied"
	StatusRejected = "rejected"
	StatusAccepted = "accepted"
)

// Application tracks a user's pursuit of a job.
type Application struct {
	Model
	UserID  uint                `gorm:"index;not null"`
	JobID   uint                `gorm:"index;not null"`
	Job     Job                 `gorm:"constraint:OnDelete:CASCADE"`
	Status  string              `gorm:"size:16;not null"`
	Notes   string              `gorm:"type:text"`
	Resumes []ApplicationResume `gorm:"constraint:OnDelete:CASCADE"`
}

// ApplicationResume joins a resume to an application.
type ApplicationResume struct {
	Model
	ApplicationID uint   `gorm:"uniqueIndex:idx_application_resume;not null"`
	ResumeID      uint   `gorm:"uniqueIndex:idx_application_resume;index;not null"`
	Resume        Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Archive states of a resume PDF in object storage.
const (
	ArchivePending   = "pending"
	ArchiveCompleted = "completed"
	ArchiveFailed    = "failed"
)

// Resume is a persisted snapshot of resume content.
type Resume struct {
	Model
	UserID          uint                   `gorm:"index;not null"`
	JobID           *uint                  `gorm:"index"`
	Title           string                 `gorm:"size:255"`
	FullName        string                 `gorm:"size:255"`
	Email           string                 `gorm:"size:255"`
	Phone           string                 `gorm:"size:64"`
	Location        string                 `gorm:"size:255"`
	Website         string                 `gorm:"size:512"`
	LinkedIn        string                 `gorm:"size:512"`
	GitHub          string                 `gorm:"size:512"`
	Summary         string                 `gorm:"type:text"`
	PdfObjectKey    string                 `gorm:"size:512"`
	ArchiveStatus   string                 `gorm:"size:32"`
	WorkExperiences []ResumeWorkExperience `gorm:"constraint:OnDelete:CASCADE"`
	Educations      []ResumeEducation      `gorm:"constraint:OnDelete:CASCADE"`
	Skills          []ResumeSkill          `gorm:"constraint:OnDelete:CASCADE"`
	Certifications  []ResumeCertification  `gorm:"constraint:OnDelete:CASCADE"`
}

// ResumeWorkExperience is one role listed on a resume.
type ResumeWorkExperience struct {
	Model
	ResumeID    uint `gorm:"index;not null"`
	SortOrder   int
	Company     string `gorm:"size:255"`
	Title       string `gorm:"size:255"`
	Location    string `gorm:"size:255"`
	StartDate   string `gorm:"size:32"`
	EndDate     string `gorm:"size:32"`
	Current     bool
	Description datatypes.JSONSlice[string]
}

// ResumeEducation is one education entry listed on a resume.
type ResumeEducation struct {
	Model
	ResumeID     uint `gorm:"index;not null"`
	SortOrder    int
	Institution  string `gorm:"size:255"`
	Degree       string `gorm:"size:255"`
	FieldOfStudy string `gorm:"size:255"`
	Location     string `gorm:"size:255"`
	StartDate    string `gorm:"size:32"`
	EndDate      string `gorm:"size:32"`
	Current      bool
	Description  string `gorm:"type:text"`
}

// ResumeSkill is one skill listed on a resume.
type ResumeSkill struct {
	Model
	ResumeID  uint `gorm:"index;not null"`
	SortOrder int
	Name      string `gorm:"size:128"`
}

// ResumeCertification is one certification listed on a resume.
type ResumeCertification struct {
	Model
	ResumeID      uint `gorm:"index;not null"`
	SortOrder     int
	Name          string `gorm:"size:255"`
	Issuer        string `gorm:"size:255"`
	IssueDate     string `gorm:"size:32"`
	ExpiryDate    string `gorm:"size:32"`
	CredentialURL string `gorm:"size:512"`
}

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&Skill{},
		&Experience{},
		&Education{},
		&Certification{},
		&Project{},
		&Job{},
		&UserJob{},
		&Resume{},
		&ResumeWorkExperience{},
		&ResumeEducation{},
		&ResumeSkill{},
		&ResumeCertification{},
		&Application{},
		&ApplicationResume{},
	}
}

// PrimaryKey exposes the row ID to generic helpers.
func (m Model) PrimaryKey() uint {
	return m.ID
}
