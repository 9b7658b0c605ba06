package contract

import "context"

// Store is the durable key-value collaborator holding roster and flag state.
// Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}
