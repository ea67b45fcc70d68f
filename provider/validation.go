package provider

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ConfigField describes one gateway configuration setting
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "url", "hex", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// ValidateConfigFields validates configuration against provided field definitions.
// Optional fields are checked only when set.
func ValidateConfigFields(gatewayName string, config map[string]string, fields []ConfigField) error {
	for _, field := range fields {
		value, exists := config[field.Key]
		if strings.TrimSpace(value) == "" {
			if !field.Required {
				continue
			}
			if !exists {
				return fmt.Errorf("%s: required field '%s' is missing", gatewayName, field.Key)
			}
			return fmt.Errorf("%s: required field '%s' cannot be empty", gatewayName, field.Key)
		}

		if err := validateFieldType(gatewayName, field, value); err != nil {
			return err
		}
		if err := validateFieldPattern(gatewayName, field, value); err != nil {
			return err
		}
		if err := validateFieldLength(gatewayName, field, value); err != nil {
			return err
		}
	}

	return nil
}

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// validateFieldType validates field based on its type
func validateFieldType(gatewayName string, field ConfigField, value string) error {
	switch field.Type {
	case "url":
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: field '%s' must be an absolute URL", gatewayName, field.Key)
		}
	case "hex":
		if len(value)%2 != 0 || !hexPattern.MatchString(value) {
			return fmt.Errorf("%s: field '%s' must be an even-length hex string", gatewayName, field.Key)
		}
	case "boolean":
		if value != "true" && value != "false" {
			return fmt.Errorf("%s: field '%s' must be 'true' or 'false'", gatewayName, field.Key)
		}
	}
	return nil
}

// validateFieldPattern validates field against regex pattern
func validateFieldPattern(gatewayName string, field ConfigField, value string) error {
	if field.Pattern == "" {
		return nil
	}

	matched, err := regexp.MatchString(field.Pattern, value)
	if err != nil {
		return fmt.Errorf("%s: invalid pattern for field '%s': %v", gatewayName, field.Key, err)
	}
	if !matched {
		return fmt.Errorf("%s: field '%s' does not match required pattern", gatewayName, field.Key)
	}
	return nil
}

// validateFieldLength validates field length constraints
func validateFieldLength(gatewayName string, field ConfigField, value string) error {
	if field.MinLength > 0 && len(value) < field.MinLength {
		return fmt.Errorf("%s: field '%s' must be at least %d characters", gatewayName, field.Key, field.MinLength)
	}
	if field.MaxLength > 0 && len(value) > field.MaxLength {
		return fmt.Errorf("%s: field '%s' must not exceed %d characters", gatewayName, field.Key, field.MaxLength)
	}
	return nil
}
