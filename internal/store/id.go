package store

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a time-ordered record id so ids sort roughly by creation.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}
	return id.String(), nil
}
