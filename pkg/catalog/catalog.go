// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func Load(path string) (*ActivityCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat ActivityCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode activity catalog: %w", err)
	}
	return &cat, nil
}

// Find returns the activity registered for a task type.
func (c *ActivityCatalog) Find(taskType string) (*Activity, bool) {
	for i := range c.Activities {
		if c.Activities[i].TaskType == taskType {
			return &c.Activities[i], true
		}
	}
	return nil, false
}

// ValidateInput checks a job payload against the activity's input schema.
func (a *Activity) ValidateInput(payload []byte) error {
	return validateAgainst(a.InputSchema, payload, a.TaskType, "input")
}

// ValidateOutput checks a stage result against the activity's output schema.
func (a *Activity) ValidateOutput(payload []byte) error {
	return validateAgainst(a.OutputSchema, payload, a.TaskType, "output")
}

func validateAgainst(schema map[string]interface{}, payload []byte, taskType, kind string) error {
	if len(schema) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("validate %s %s: %w", taskType, kind, err)
	}
	if result.Valid() {
		return nil
	}

	violations := ""
	for _, desc := range result.Errors() {
		if violations != "" {
			violations += "; "
		}
		violations += desc.String()
	}
	return fmt.Errorf("%s %s does not match schema: %s", taskType, kind, violations)
}
