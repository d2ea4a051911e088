package person

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrPersonNotFound = errors.New("person not found")
	ErrValidation     = errors.New("validation failed")
)

// ValidationError carries the failing fields as field -> rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
