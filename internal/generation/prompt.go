package generation

import (
	"encoding/json"
	"strings"

	"resumate/internal/database"
	"resumate/internal/resume"
)

// Bullet caps applied to generated work experience descriptions.
const (
	recentRoleBullets = 5
	otherRoleBullets  = 3
)

// JobInfo describes the position a document is tailored to.
type JobInfo struct {
	Title        string   `json:"title"`
	CompanyName  string   `json:"companyName"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

// JobInfoFromModel copies the prompt-relevant fields of a stored job.
func JobInfoFromModel(job database.Job) JobInfo {
	return JobInfo{
		Title:        job.Title,
		CompanyName:  job.CompanyName,
		Description:  job.Description,
		Requirements: append([]string{}, job.Requirements...),
	}
}

type profileView struct {
	FullName       string              `json:"fullName"`
	Email          string              `json:"email"`
	Phone          string              `json:"phone,omitempty"`
	Location       string              `json:"location,omitempty"`
	Headline       string              `json:"headline,omitempty"`
	Summary        string              `json:"summary,omitempty"`
	Website        string              `json:"website,omitempty"`
	LinkedIn       string              `json:"linkedIn,omitempty"`
	GitHub         string              `json:"github,omitempty"`
	Skills         []string            `json:"skills"`
	Experiences    []experienceView    `json:"experiences"`
	Educations     []educationView     `json:"educations"`
	Certifications []certificationView `json:"certifications"`
	Projects       []projectView       `json:"projects,omitempty"`
}

type experienceView struct {
	Company          string `json:"company"`
	Position         string `json:"position"`
	Location         string `json:"location,omitempty"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate,omitempty"`
	CurrentlyWorking bool   `json:"currentlyWorking"`
	Description      string `json:"description,omitempty"`
}

type educationView struct {
	Institution       string `json:"institution"`
	Degree            string `json:"degree"`
	FieldOfStudy      string `json:"fieldOfStudy,omitempty"`
	Location          string `json:"location,omitempty"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate,omitempty"`
	CurrentlyStudying bool   `json:"currentlyStudying"`
	Grade             string `json:"grade,omitempty"`
	Description       string `json:"description,omitempty"`
}

type certificationView struct {
	Name          string `json:"name"`
	Issuer        string `json:"issuer"`
	IssueDate     string `json:"issueDate"`
	ExpiryDate    string `json:"expiryDate,omitempty"`
	CredentialURL string `json:"credentialUrl,omitempty"`
}

type projectView struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

func viewProfile(p database.Profile) profileView {
	v := profileView{
		FullName:       p.FullName,
		Email:          p.Email,
		Phone:          p.Phone,
		Location:       p.Location,
		Headline:       p.Headline,
		Summary:        p.Summary,
		Website:        p.Website,
		LinkedIn:       p.LinkedIn,
		GitHub:         p.GitHub,
		Skills:         make([]string, 0, len(p.Skills)),
		Experiences:    make([]experienceView, 0, len(p.Experiences)),
		Educations:     make([]educationView, 0, len(p.Educations)),
		Certifications: make([]certificationView, 0, len(p.Certifications)),
	}
	for _, s := range p.Skills {
		v.Skills = append(v.Skills, s.Name)
	}
	for _, e := range p.Experiences {
		v.Experiences = append(v.Experiences, experienceView{
			Company:          e.Company,
			Position:         e.Position,
			Location:         e.Location,
			StartDate:        resume.ISODate(e.StartDate),
			EndDate:          resume.ISODatePtr(e.EndDate),
			CurrentlyWorking: e.CurrentlyWorking,
			Description:      e.Description,
		})
	}
	for _, e := range p.Educations {
		v.Educations = append(v.Educations, educationView{
			Institution:       e.Institution,
			Degree:            e.Degree,
			FieldOfStudy:      e.FieldOfStudy,
			Location:          e.Location,
			StartDate:         resume.ISODate(e.StartDate),
			EndDate:           resume.ISODatePtr(e.EndDate),
			CurrentlyStudying: e.CurrentlyStudying,
			Grade:             e.Grade,
			Description:       e.Description,
		})
	}
	for _, c := range p.Certifications {
		v.Certifications = append(v.Certifications, certificationView{
			Name:          c.Name,
			Issuer:        c.Issuer,
			IssueDate:     resume.ISODate(c.IssueDate),
			ExpiryDate:    resume.ISODatePtr(c.ExpiryDate),
			CredentialURL: c.CredentialURL,
		})
	}
	for _, pr := range p.Projects {
		v.Projects = append(v.Projects, projectView{
			Name:         pr.Name,
			Description:  pr.Description,
			URL:          pr.URL,
			Technologies: pr.Technologies,
		})
	}
	return v
}

const resumeInstructions = `You are an expert resume writer. Using ONLY the candidate profile below, write a resume tailored to the target job when one is given.

Rules:
- Never invent employers, titles, dates, degrees, certifications, metrics or skills that are not stated in the profile.
- You may rephrase and reorder existing facts to emphasise what is relevant to the job.
- Write each work experience description as short achievement bullets: at most 5 bullets for the most recent or current role and at most 3 bullets for every other role.
- List work experiences and educations from most recent to oldest.
- Dates use YYYY-MM-DD or YYYY-MM. Set "current" to true and "endDate" to null for ongoing entries.
- Respond with a single JSON object and nothing else, matching this JSON schema:
`

const coverLetterInstructions = `You are an expert career writer. Using ONLY the candidate profile below, write a one page cover letter for the target job.

Rules:
- Never invent experience, employers, metrics or skills that are not stated in the profile.
- Three or four paragraphs, each under 120 words.
- Respond with a single JSON object and nothing else, with exactly these keys:
{"recipient": string, "company": string, "greeting": string, "paragraphs": string[], "closing": string, "signature": string}
`

func buildResumePrompt(profile database.Profile, job *JobInfo) (string, error) {
	return buildPrompt(resumeInstructions+resume.Schema+"\n", profile, job)
}

func buildCoverLetterPrompt(profile database.Profile, job JobInfo) (string, error) {
	return buildPrompt(coverLetterInstructions, profile, &job)
}

func buildPrompt(instructions string, profile database.Profile, job *JobInfo) (string, error) {
	profileJSON, err := json.MarshalIndent(viewProfile(profile), "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\nCandidate profile:\n")
	b.Write(profileJSON)
	b.WriteString("\n")
	if job != nil {
		jobJSON, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return "", err
		}
		b.WriteString("\nTarget job:\n")
		b.Write(jobJSON)
		b.WriteString("\n")
	} else {
		b.WriteString("\nNo target job was given; write a general purpose resume.\n")
	}
	return b.String(), nil
}

// capBullets enforces the bullet limits: the current role (or the one that started last)
// keeps up to recentRoleBullets, every other role up to otherRoleBullets.
func capBullets(content *resume.Content) {
	recent := mostRecentRole(content.WorkExperiences)
	for i := range content.WorkExperiences {
		limit := otherRoleBullets
		if i == recent {
			limit = recentRoleBullets
		}
		if d := content.WorkExperiences[i].Description; len(d) > limit {
			content.WorkExperiences[i].Description = d[:limit]
		}
	}
}

func mostRecentRole(roles []resume.WorkExperience) int {
	best := -1
	for i, r := range roles {
		if r.Current {
			return i
		}
		if best == -1 {
			best = i
			continue
		}
		start, ok := resume.ParseDate(r.StartDate)
		bestStart, bestOK := resume.ParseDate(roles[best].StartDate)
		if ok && (!bestOK || start.After(bestStart)) {
			best = i
		}
	}
	return best
}
