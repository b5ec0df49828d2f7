package youtube

import "context"

// Store persists opaque records by key. Load returns ErrNotFound for absent keys.
// Implementations must make Save atomic enough that a crash mid-write leaves
// either the old record, the new record, or an unparsable one, never a
// record the cache cannot overwrite.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
	Name() string
}
