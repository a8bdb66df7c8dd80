package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corvand/continuo/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrConfigSchema = errors.New("node config does not match schema")

// validateConfig checks a node configuration against the factory's JSON
// schema. Factories without a schema accept any configuration.
func (r *Registry) validateConfig(factory protocol.NodeFactory, config map[string]any) error {
	schema := factory.Schema()
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)

	documentLoader := gojsonschema.NewGoLoader(config)
	if config == nil {
		documentLoader = gojsonschema.NewGoLoader(map[string]any{})
	}

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrConfigSchema, strings.Join(descriptions, "; "))
	}

	return nil
}
