package evolution

import (
	"fmt"
	"strings"
)

// ValidationError reports required fields that were absent from a request.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// NotFoundError reports a reference to a thread or goal that does not exist.
type NotFoundError struct {
	Resource string // "thread" or "goal"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
