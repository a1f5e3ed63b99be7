// Package schema renders JSON Schema documents for configuration structs, so
// editors and tooling can validate config files.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ForConfig returns the JSON Schema of the given configuration struct as a
// JSON string.
func ForConfig(config any) (string, error) {
	reflected := jsonschema.Reflect(config)

	out, err := json.MarshalIndent(reflected, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}
