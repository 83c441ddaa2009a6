package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change names. Subscribers treat every name as "reload from the store".
const (
	// NameStorage is the cross-instance event, delivered only to instances
	// other than the writer.
	NameStorage = "storage"
	// NameCartUpdated and NameWishlistUpdated are delivered to the writer's
	// own subscribers.
	NameCartUpdated     = "cartUpdated"
	NameWishlistUpdated = "wishlistUpdated"
)

// Change is a notification that a session's cart or wishlist was rewritten.
// It carries no payload beyond the key; consumers reload the store.
type Change struct {
	Seq       uint64    `json:"seq,omitempty"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	SessionID string    `json:"sessionId"`
	Origin    string    `json:"origin"`
	At        time.Time `json:"at"`
}

// SameContextName returns the same-instance event name for a store key.
func SameContextName(key string) string {
	if key == "wishlist" {
		return NameWishlistUpdated
	}
	return NameCartUpdated
}

func (c Change) marshal() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return data, nil
}

func unmarshalChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if c.SessionID == "" || c.Key == "" {
		return Change{}, fmt.Errorf("unmarshal change: missing session or key")
	}
	return c, nil
}
