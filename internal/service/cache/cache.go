package cache

import "time"

// BytesCache stores serialized API responses for a short TTL. The snapshot
// endpoint keeps its JSON here so tick-rate polling does not re-copy candle
// buffers.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
