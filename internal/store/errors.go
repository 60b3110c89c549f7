package store

import "fmt"

// NotFoundError reports a write against a record that does not exist.
type NotFoundError struct {
	Kind string // "order", "position", "market"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
