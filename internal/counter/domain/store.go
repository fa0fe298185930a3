package domain

import (
	"context"
	"errors"
	"strings"
)

// DefaultKeyPrefix namespaces watermark keys per invoice prefix.
const DefaultKeyPrefix = "invoiceSerial_"

var (
	ErrCorruptValue  = errors.New("counter_value_corrupt")
	ErrNotConfigured = errors.New("counter_store_not_configured")
	ErrEmptyKey      = errors.New("counter_key_empty")
)

// Store persists the last committed serial for a key.
type Store interface {
	// Get returns the stored value. found is false when the key was never set.
	// A value that cannot be read as an integer yields an error wrapping ErrCorruptValue.
	Get(ctx context.Context, key string) (value int64, found bool, err error)
	Set(ctx context.Context, key string, value int64) error
}

// Advancer is implemented by stores that can raise a watermark atomically.
//
// Advance stores value only when the current value (absent or corrupt counts
// as zero) is lower. It returns the value held after the call and whether
// the write happened.
type Advancer interface {
	Advance(ctx context.Context, key string, value int64) (current int64, applied bool, err error)
}

// SerialKey builds the watermark key for an invoice prefix.
func SerialKey(keyPrefix, prefix string) string {
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return keyPrefix + prefix
}
