package app

import "github.com/google/uuid"

func newUUID() string {
	return uuid.NewString()
}

// validID rejects ids that the store would fail to parse, so callers get
// ErrInvalidID before any round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
