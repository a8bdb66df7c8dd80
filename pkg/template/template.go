// Package template provides variable resolution for dynamic node configuration.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var refPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Render resolves every `${name}` reference in input against data. When the
// entire input is a single reference, the referenced value is returned with
// its original type; otherwise all references are interpolated into a string.
// References use dotted paths to reach into nested maps (`${user.name}`).
func Render(input string, data map[string]any) (any, error) {
	matches := refPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input, nil
	}

	// Whole-string reference keeps the value's type.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(input) {
		return lookup(input[matches[0][2]:matches[0][3]], data)
	}

	result := refPattern.ReplaceAllStringFunc(input, func(ref string) string {
		value, err := lookup(ref[2:len(ref)-1], data)
		if err != nil {
			return ref
		}

		return fmt.Sprintf("%v", value)
	})

	return result, nil
}

// RenderValue resolves references recursively through maps, slices and
// strings, leaving every other value untouched.
func RenderValue(value any, data map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, data)
	case map[string]any:
		rendered := make(map[string]any, len(v))

		for key, item := range v {
			r, err := RenderValue(item, data)
			if err != nil {
				return nil, err
			}

			rendered[key] = r
		}

		return rendered, nil
	case []any:
		rendered := make([]any, len(v))

		for i, item := range v {
			r, err := RenderValue(item, data)
			if err != nil {
				return nil, err
			}

			rendered[i] = r
		}

		return rendered, nil
	default:
		return value, nil
	}
}

func lookup(path string, data map[string]any) (any, error) {
	segments := strings.Split(path, ".")

	var current any = data

	for _, segment := range segments {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot resolve '%s': '%s' is not an object", path, segment)
		}

		current, ok = object[segment]
		if !ok {
			return nil, fmt.Errorf("cannot resolve '%s': key '%s' not found", path, segment)
		}
	}

	return current, nil
}
