package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique record identifier
func GenerateID() string {
	return uuid.New().String()
}

// IsID reports whether s looks like an identifier produced by GenerateID
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
