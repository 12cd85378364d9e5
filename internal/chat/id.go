package chat

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewSessionID returns a new session identifier. ULIDs embed the creation
// timestamp, so identifiers sort in creation order.
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NextMessageID returns a time-based message identifier strictly greater
// than after, keeping ids unique within a session even when two messages
// are created in the same millisecond.
func NextMessageID(after int64) int64 {
	id := time.Now().UnixMilli()
	if id <= after {
		id = after + 1
	}
	return id
}
