package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CoverLetter is the structured letter produced for a job.
type CoverLetter struct {
	FullName   string   `json:"fullName"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Location   string   `json:"location"`
	Date       string   `json:"date"`
	Recipient  string   `json:"recipient"`
	Company    string   `json:"company"`
	Greeting   string   `json:"greeting"`
	Paragraphs []string `json:"paragraphs"`
	Closing    string   `json:"closing"`
	Signature  string   `json:"signature"`
}

// ErrEmptyLetter is returned when a decoded letter has no body.
var ErrEmptyLetter = errors.New("cover letter has no paragraphs")

// DecodeCoverLetter parses and normalizes model output for a cover letter.
func DecodeCoverLetter(raw []byte) (CoverLetter, error) {
	var letter CoverLetter
	if err := json.Unmarshal(raw, &letter); err != nil {
		return CoverLetter{}, fmt.Errorf("decode cover letter: %w", err)
	}
	letter.Paragraphs = compact(letter.Paragraphs)
	if len(letter.Paragraphs) == 0 {
		return CoverLetter{}, ErrEmptyLetter
	}
	letter.Greeting = strings.TrimSpace(letter.Greeting)
	if letter.Greeting == "" {
		letter.Greeting = "Dear Hiring Manager,"
	}
	letter.Closing = strings.TrimSpace(letter.Closing)
	if letter.Closing == "" {
		letter.Closing = "Sincerely,"
	}
	letter.Signature = strings.TrimSpace(letter.Signature)
	if letter.Signature == "" {
		letter.Signature = letter.FullName
	}
	return letter, nil
}
