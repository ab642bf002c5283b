package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// ParseProfile reads the model reply. The whole reply is tried as JSON first,
// then the outermost {...} fragment, which also covers fenced code blocks and
// replies wrapped in prose.
func ParseProfile(reply string) (contractx.ProfileFields, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return contractx.ProfileFields{}, fmt.Errorf("%w: empty reply", contractx.ErrSchemaViolation)
	}

	obj, err := decodeObject(text)
	if err != nil {
		fragment, ok := outermostObject(text)
		if !ok {
			return contractx.ProfileFields{}, fmt.Errorf("%w: no JSON object in reply", contractx.ErrSchemaViolation)
		}
		obj, err = decodeObject(fragment)
		if err != nil {
			return contractx.ProfileFields{}, fmt.Errorf("%w: decode fragment: %v", contractx.ErrSchemaViolation, err)
		}
	}

	name, err := requiredField(obj, "name", false)
	if err != nil {
		return contractx.ProfileFields{}, err
	}
	area, err := requiredField(obj, "area", true)
	if err != nil {
		return contractx.ProfileFields{}, err
	}
	return contractx.ProfileFields{Name: name, Area: area}, nil
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing content after object")
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is not an object")
	}
	return obj, nil
}

func outermostObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func requiredField(obj map[string]any, key string, allowNumber bool) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s is missing", contractx.ErrSchemaViolation, key)
	}

	var value string
	switch v := raw.(type) {
	case string:
		value = strings.TrimSpace(v)
	case json.Number:
		if !allowNumber {
			return "", fmt.Errorf("%w: %s must be a string", contractx.ErrSchemaViolation, key)
		}
		value = v.String()
	default:
		return "", fmt.Errorf("%w: %s has type %T", contractx.ErrSchemaViolation, key, raw)
	}
	if value == "" || value == "..." {
		return "", fmt.Errorf("%w: %s is empty", contractx.ErrSchemaViolation, key)
	}
	return value, nil
}
