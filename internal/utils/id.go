package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a best-effort unique identifier for transport sessions.
func NewID() string {
	const size = 12

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// UUIDGenerator issues client identifiers as random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a new UUID string. It never fails: uuid.New panics only when the
// system entropy source is broken, so the fallback mirrors NewID above.
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return NewID()
	}
	return id.String()
}
