package ids

import "github.com/google/uuid"

// New returns a random identifier suitable for aggregates, documents and events.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s parses as an identifier produced by New.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
