package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// WidgetConfigSchema is the contract for host configuration documents.
const WidgetConfigSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "WidgetConfig",
	"type": "object",
	"properties": {
		"ClientKey": { "type": "string" },
		"PaymentIntentClientSecret": { "type": "string" },
		"ZipcodeElement": { "type": "boolean" },
		"AutoConfirm": { "type": "boolean" },
		"Customer": { "type": "string" },
		"CardFontSize": { "type": "number", "minimum": 0 },
		"ButtonFontSize": { "type": "number", "minimum": 0 },
		"ErrorFontSize": { "type": "number", "minimum": 0 },
		"Reset": { "type": "boolean" }
	},
	"additionalProperties": false
}`

// ContractMonitor validates incoming documents against a JSON schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the given schema.
func NewContractMonitor(schema string) (*ContractMonitor, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("error compiling schema: %w", err)
	}
	return &ContractMonitor{schema: compiled}, nil
}

// NewWidgetConfigMonitor returns a monitor for WidgetConfigSchema.
func NewWidgetConfigMonitor() (*ContractMonitor, error) {
	return NewContractMonitor(WidgetConfigSchema)
}

// Validate returns true if the document is valid, or false and the list of
// violations. A non-nil error means the document could not be read at all.
func (cm *ContractMonitor) Validate(document []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}

	if result.Valid() {
		return true, nil, nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins validation errors into a single message.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
