package store

import "github.com/google/uuid"

// newID generates the random component of a store-assigned identifier,
// following the teacher's uuid.New().String() convention.
func newID() string {
	return uuid.New().String()
}
