package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// timestampLayout has a fixed-width fraction so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrUnknownValue is returned when a stored or submitted enum value is not recognised.
var ErrUnknownValue = errors.New("unknown value")

// Timestamp is persisted as an ISO-8601 string. Values that cannot be parsed
// read back as the current time.
type Timestamp struct {
	time.Time
}

// Now returns the current UTC time truncated to microseconds.
func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC().Truncate(time.Microsecond)}
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		t.Time = parseTimestamp(v)
	case []byte:
		t.Time = parseTimestamp(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.UTC().Format(timestampLayout), nil
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}

func scanEnum(kind string, src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("scan %s: unsupported type %T", kind, src)
	}
}
