package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema every generated or submitted resume document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "summary", "workExperiences", "educations", "skills", "certifications"],
  "properties": {
    "title": {"type": "string"},
    "fullName": {"type": ["string", "null"]},
    "email": {"type": ["string", "null"]},
    "phone": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "website": {"type": ["string", "null"]},
    "linkedIn": {"type": ["string", "null"]},
    "github": {"type": ["string", "null"]},
    "summary": {"type": "string"},
    "workExperiences": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["company", "position"],
        "properties": {
          "company": {"type": "string"},
          "position": {"type": "string"},
          "location": {"type": ["string", "null"]},
          "startDate": {"type": ["string", "null"]},
          "endDate": {"type": ["string", "null"]},
          "current": {"type": ["boolean", "null"]},
          "description": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "educations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["institution", "degree"],
        "properties": {
          "institution": {"type": "string"},
          "degree": {"type": "string"},
          "fieldOfStudy": {"type": ["string", "null"]},
          "location": {"type": ["string", "null"]},
          "startDate": {"type": ["string", "null"]},
          "endDate": {"type": ["string", "null"]},
          "current": {"type": ["boolean", "null"]},
          "description": {"type": ["string", "null"]}
        }
      }
    },
    "skills": {"type": "array", "items": {"type": "string"}},
    "certifications": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "issuer": {"type": ["string", "null"]},
          "issueDate": {"type": ["string", "null"]},
          "expiryDate": {"type": ["string", "null"]},
          "credentialUrl": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// SchemaError lists every violation reported by the validator.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "resume schema validation failed: " + strings.Join(e.Violations, "; ")
}

// ErrEmptyDocument is returned for blank input.
var ErrEmptyDocument = errors.New("resume document is empty")

// Validate checks raw JSON against Schema.
func Validate(raw []byte) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return ErrEmptyDocument
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate resume json: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &SchemaError{Violations: violations}
}

// Decode validates raw JSON, unmarshals it and normalizes the result.
func Decode(raw []byte) (Content, error) {
	if err := Validate(raw); err != nil {
		return Content{}, err
	}
	var content Content
	if err := json.Unmarshal(raw, &content); err != nil {
		return Content{}, fmt.Errorf("decode resume json: %w", err)
	}
	content.Normalize()
	return content, nil
}
