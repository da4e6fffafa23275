package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewItemKey generates a UUIDv7 cart line key for lines submitted without one.
// Time-ordered keys keep generated lines in submission order when sorted.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewItemKey() ItemKey {
	return ItemKey(uuid.Must(uuid.NewV7()).String())
}

// NewRequestID generates a UUIDv7 request identifier for log correlation.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ParseItemKey validates a host-supplied key. Hosts use arbitrary opaque
// strings, so only blank keys and surrounding whitespace are rejected.
func ParseItemKey(s string) (ItemKey, error) {
	if strings.TrimSpace(s) == "" || strings.TrimSpace(s) != s {
		return "", ErrInvalidItemKey
	}
	return ItemKey(s), nil
}

// ItemKeyTime extracts the timestamp embedded in a generated key.
// Returns zero time for host-supplied keys that are not UUIDs.
func ItemKeyTime(key ItemKey) time.Time {
	u, err := uuid.Parse(string(key))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
