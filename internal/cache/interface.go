package cache

import (
	"encoding/json"
	"time"
)

// Cache stores encoded values by key. Both backends hold raw bytes so a
// value read back from Redis has the same type as one read from memory.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	SetWithTTL(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
}

// GetJSON decodes the cached value at key into dst. A value that fails to
// decode is treated as a miss.
func GetJSON(c Cache, key string, dst interface{}) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// SetJSON encodes value and stores it with ttl, or the cache default when ttl is zero.
func SetJSON(c Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl > 0 {
		c.SetWithTTL(key, data, ttl)
	} else {
		c.Set(key, data)
	}
	return nil
}
