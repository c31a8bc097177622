package models

import (
	"strconv"
	"time"
)

// Metadata records who touched a bundle and when. Timestamps are epoch
// milliseconds encoded as decimal-digit strings, the registry's historical
// wire format.
type Metadata struct {
	RegisteredAt string `json:"registered_at,omitempty"`
	ModifiedAt   string `json:"modified_at,omitempty"`
	RegisteredBy string `json:"registered_by,omitempty"`
	ModifiedBy   string `json:"modified_by,omitempty"`
}

// RegisteredTime parses RegisteredAt. Absent or malformed values decode as
// the epoch, never as an error: digest scans must not abort on dirty records.
func (m Metadata) RegisteredTime() time.Time {
	return epochTime(m.RegisteredAt)
}

// ModifiedTime parses ModifiedAt with the same rules as RegisteredTime.
func (m Metadata) ModifiedTime() time.Time {
	return epochTime(m.ModifiedAt)
}

// EpochString encodes a time in the metadata timestamp format.
func EpochString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func epochTime(s string) time.Time {
	if s == "" || !digitsOnly(s) {
		return time.UnixMilli(0)
	}

	millis, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.UnixMilli(0)
	}

	return time.UnixMilli(millis)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
