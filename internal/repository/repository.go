package repository

import "context"

// Logical keys held per session. They match the keys the storefront has
// always used in browser storage.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
)

// Store is the durable key-value store shared by every cart instance. Values
// are opaque bytes; callers own serialization. There is no locking and no
// version check: the last writer wins.
type Store interface {
	// Get returns the raw value stored for the session and key. It returns an
	// apperrors NotFound error when nothing is stored.
	Get(ctx context.Context, sessionID, key string) ([]byte, error)

	// Set overwrites the value stored for the session and key.
	Set(ctx context.Context, sessionID, key string, value []byte) error
}
