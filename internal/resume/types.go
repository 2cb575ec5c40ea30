package resume

import "strings"

// Content is the structured resume document: what the model returns, what Resume rows
// store, and what the PDF template renders.
type Content struct {
	Title           string           `json:"title"`
	FullName        string           `json:"fullName"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Location        string           `json:"location"`
	Website         string           `json:"website"`
	LinkedIn        string           `json:"linkedIn"`
	GitHub          string           `json:"github"`
	Summary         string           `json:"summary"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Educations      []Education      `json:"educations"`
	Skills          []string         `json:"skills"`
	Certifications  []Certification  `json:"certifications"`
}

// WorkExperience is one role; Description holds bullet points.
type WorkExperience struct {
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Current     bool     `json:"current"`
	Description []string `json:"description"`
}

// Education is one degree or course of study.
type Education struct {
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	Location     string `json:"location"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

// Certification is one credential.
type Certification struct {
	Name          string `json:"name"`
	Issuer        string `json:"issuer"`
	IssueDate     string `json:"issueDate"`
	ExpiryDate    string `json:"expiryDate"`
	CredentialURL string `json:"credentialUrl"`
}

// Normalize trims text, drops blank list entries, replaces nil lists with empty ones and
// clears the end date of ongoing entries.
func (c *Content) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Location = strings.TrimSpace(c.Location)
	c.Website = strings.TrimSpace(c.Website)
	c.LinkedIn = strings.TrimSpace(c.LinkedIn)
	c.GitHub = strings.TrimSpace(c.GitHub)
	c.Summary = strings.TrimSpace(c.Summary)

	if c.WorkExperiences == nil {
		c.WorkExperiences = []WorkExperience{}
	}
	for i := range c.WorkExperiences {
		w := &c.WorkExperiences[i]
		if w.Current {
			w.EndDate = ""
		}
		w.Description = compact(w.Description)
	}
	if c.Educations == nil {
		c.Educations = []Education{}
	}
	for i := range c.Educations {
		if c.Educations[i].Current {
			c.Educations[i].EndDate = ""
		}
	}
	c.Skills = compact(c.Skills)
	if c.Certifications == nil {
		c.Certifications = []Certification{}
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
