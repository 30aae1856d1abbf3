package storage

import "context"

// KV is the key-value contract the group store runs on. Values are opaque
// byte slices (JSON in practice).
//
// Update is an atomic read-modify-write: fn sees the current value (nil if
// the key is absent) and returns the replacement. Implementations must not
// let two concurrent Updates on the same key silently lose one of the
// writes; retry-on-conflict is acceptable, overwrite is not.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}
