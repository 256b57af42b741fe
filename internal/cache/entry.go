package cache

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptEntry is returned when a stored string cannot be decoded into an Entry.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Entry is a cached value together with the time it was written.
type Entry[T any] struct {
	// Value is the cached payload.
	Value T
	// StoredAt is the write time in Unix milliseconds.
	StoredAt int64
}

// encodedEntry is the persisted form written by Encode.
type encodedEntry[T any] struct {
	Value     T     `json:"value"`
	Timestamp int64 `json:"timestamp"`
}

// decodedEntry accepts the persisted form as well as older entries that kept the
// payload under "url" (images) or "data" (API responses).
type decodedEntry struct {
	Value     json.RawMessage `json:"value"`
	URL       json.RawMessage `json:"url"`
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"`
}

// Encode serializes an entry to the string stored in the durable store.
func Encode[T any](e Entry[T]) (string, error) {
	data, err := json.Marshal(encodedEntry[T]{Value: e.Value, Timestamp: e.StoredAt})
	if err != nil {
		return "", fmt.Errorf("encode cache entry: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored string back into an entry.
// Returns an error wrapping ErrCorruptEntry when the string is not a valid entry.
func Decode[T any](raw string) (Entry[T], error) {
	var (
		entry   Entry[T]
		decoded decodedEntry
	)
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return entry, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if decoded.Timestamp == nil {
		return entry, fmt.Errorf("%w: missing timestamp", ErrCorruptEntry)
	}

	payload := decoded.Value
	if payload == nil {
		payload = decoded.URL
	}
	if payload == nil {
		payload = decoded.Data
	}
	if payload == nil {
		return entry, fmt.Errorf("%w: missing value", ErrCorruptEntry)
	}

	if err := json.Unmarshal(payload, &entry.Value); err != nil {
		return entry, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	entry.StoredAt = *decoded.Timestamp
	return entry, nil
}
