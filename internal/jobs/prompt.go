package jobs

import "strings"

const extractionPrompt = `You extract structured data from job postings.

Read the posting below and respond with a single JSON object and nothing else, using exactly these keys:
{
  "companyName": string,
  "position": string,
  "description": string,
  "requirements": string[],
  "location": string or null,
  "salary": string or null
}

Rules:
- Use only information present in the posting. Do not invent a company, salary or location.
- "description" is a concise summary of the role in plain prose.
- "requirements" lists each qualification or skill as a short phrase; use [] when none are stated.
- Use null for location or salary when the posting does not state them.

Posting:
"""
`

func buildExtractionPrompt(posting string) string {
	var b strings.Builder
	b.Grow(len(extractionPrompt) + len(posting) + 8)
	b.WriteString(extractionPrompt)
	b.WriteString(strings.TrimSpace(posting))
	b.WriteString("\n\"\"\"")
	return b.String()
}
