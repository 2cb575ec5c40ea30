package jobs

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// extractionSchema rejects answers that carry no usable field: the model must name at
// least the company, the position or a description.
const extractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "companyName": {"type": ["string", "null"]},
    "position": {"type": ["string", "null"]},
    "description": {"type": ["string", "null"]},
    "requirements": {"type": ["array", "string", "null"]},
    "salary": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]}
  },
  "anyOf": [
    {"required": ["companyName"], "properties": {"companyName": {"type": "string", "pattern": "\\S"}}},
    {"required": ["position"], "properties": {"position": {"type": "string", "pattern": "\\S"}}},
    {"required": ["description"], "properties": {"description": {"type": "string", "pattern": "\\S"}}}
  ]
}`

var extractionLoader = gojsonschema.NewStringLoader(extractionSchema)

func validateExtraction(body []byte) error {
	result, err := gojsonschema.Validate(extractionLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return fmt.Errorf("%w: %s", ErrParse, strings.Join(violations, "; "))
}
