package validation

import (
	"errors"
	"strings"
)

// ValidateName validates a customer or product name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("Name is required")
	}

	if len(trimmed) > 100 {
		return errors.New("Name is too long (max 100 characters)")
	}

	return nil
}
