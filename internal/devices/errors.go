package devices

import (
	"errors"
	"strings"
)

var ErrConfigValidation = errors.New("analog validation error")

// ConfigValidationError lists every problem found in a board config.
type ConfigValidationError struct {
	Problems []string
}

func (e *ConfigValidationError) Error() string {
	return "analog validation error: " + strings.Join(e.Problems, ", ")
}

func (e *ConfigValidationError) Is(target error) bool { return target == ErrConfigValidation }
