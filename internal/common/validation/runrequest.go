// internal/common/validation/runrequest.go
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// runRequestSchema is the submission contract: exactly one product
// identifier, a non-negative review budget, an optional caller-chosen runId.
const runRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"runId": {"type": "string", "minLength": 1, "maxLength": 128},
		"inputUrl": {"type": "string", "format": "uri", "minLength": 1},
		"productId": {"type": "string", "pattern": "^[0-9]+$"},
		"maxReviews": {"type": "integer", "minimum": 1, "maximum": 1000}
	},
	"oneOf": [
		{"required": ["inputUrl"], "not": {"required": ["productId"]}},
		{"required": ["productId"], "not": {"required": ["inputUrl"]}}
	],
	"additionalProperties": false
}`

var compiledSchema *gojsonschema.Schema

func init() {
	var err error
	compiledSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(runRequestSchema))
	if err != nil {
		panic(fmt.Sprintf("run request schema does not compile: %v", err))
	}
}

// ValidateRunRequest checks a submission against the schema. Returns a
// non-retryable INVALID_RUN_INPUT error listing every violation.
func ValidateRunRequest(req *models.RunRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.NewInvalidRunInputError(err.Error())
	}

	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return errors.NewInvalidRunInputError(err.Error())
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return errors.NewInvalidRunInputError(strings.Join(violations, "; "))
}
