package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// WishlistItem is a denormalized product snapshot kept in the wishlist.
// Price is the list price; DiscountedPrice is set only when the product was
// on sale at the time it was added.
type WishlistItem struct {
	ProductID       string           `json:"productId"`
	Name            string           `json:"name"`
	Image           string           `json:"image"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	AddedAt         time.Time        `json:"addedAt"`
}

// Wishlist is the persisted list of wished products, unique by product ID.
type Wishlist struct {
	Items []WishlistItem
}

// SnapshotFromLine builds the wishlist entry for a cart line. The line ID
// stands in for a missing product ID.
func SnapshotFromLine(li LineItem, now time.Time) WishlistItem {
	productID := li.ProductID
	if productID == "" {
		productID = li.ID
	}
	item := WishlistItem{
		ProductID: productID,
		Name:      li.Name,
		Image:     li.Image,
		Price:     li.ListPrice(),
		AddedAt:   now.UTC(),
	}
	if li.OnSale() {
		discounted := li.Price
		item.DiscountedPrice = &discounted
	}
	return item
}

// IndexOf returns the position of the product, or -1.
func (w *Wishlist) IndexOf(productID string) int {
	for i := range w.Items {
		if w.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Contains reports whether the product is wished.
func (w *Wishlist) Contains(productID string) bool {
	return w.IndexOf(productID) >= 0
}

// Toggle removes the product when present and appends the snapshot
// otherwise. It reports whether the product is wished afterwards.
func (w *Wishlist) Toggle(item WishlistItem) bool {
	if idx := w.IndexOf(item.ProductID); idx >= 0 {
		w.Items = append(w.Items[:idx], w.Items[idx+1:]...)
		return false
	}
	w.Items = append(w.Items, item)
	return true
}

// Marshal serializes the wishlist as a bare JSON list, the shape the
// storefront has always written.
func (w *Wishlist) Marshal() ([]byte, error) {
	items := w.Items
	if items == nil {
		items = []WishlistItem{}
	}
	return json.Marshal(items)
}

var (
	wishProductIDLocations = chain(
		at(layerEntry, "productId", "product_id", "id"),
		at(layerProduct, "id", "_id"),
	)
	wishNameLocations = chain(
		at(layerEntry, "name", "title"),
		at(layerProduct, "name", "title"),
	)
	wishImageLocations = chain(
		at(layerEntry, "image", "imageUrl"),
		at(layerProduct, "image", "imageUrl", "images"),
	)
	wishPriceLocations = chain(
		at(layerEntry, "price", "originalPrice"),
		at(layerProduct, "price"),
	)
	wishDiscountedLocations = at(layerEntry, "discountedPrice", "salePrice")
	wishAddedAtLocations    = at(layerEntry, "addedAt")
)

// ParsedWishlist is the result of reading a stored wishlist value.
type ParsedWishlist struct {
	Wishlist Wishlist
	Dropped  int
}

// ParseStoredWishlist normalizes a stored wishlist value. It accepts a bare
// list or an {items} object. Entries without a product ID are dropped and
// repeated products keep their first entry.
func ParseStoredWishlist(data []byte) (ParsedWishlist, error) {
	res := ParsedWishlist{Wishlist: Wishlist{Items: []WishlistItem{}}}

	v, err := decodeStored(data)
	if err != nil {
		return res, err
	}
	entries, _, err := splitStored(v)
	if err != nil {
		return res, err
	}

	for _, raw := range entries {
		m := asObject(raw)
		if m == nil {
			res.Dropped++
			continue
		}
		e := newRawEntry(m)

		item := WishlistItem{
			ProductID: e.text(wishProductIDLocations),
			Name:      e.text(wishNameLocations),
			Image:     e.text(wishImageLocations),
			Price:     decimal.Zero,
		}
		if item.ProductID == "" {
			res.Dropped++
			continue
		}
		if res.Wishlist.Contains(item.ProductID) {
			continue
		}
		if p, ok := e.number(wishPriceLocations); ok && !p.IsNegative() {
			item.Price = p
		}
		if d, ok := e.number(wishDiscountedLocations); ok && !d.IsNegative() {
			item.DiscountedPrice = &d
		}
		if added, ok := e.lookup(wishAddedAtLocations); ok {
			item.AddedAt = timeValue(added)
		}
		res.Wishlist.Items = append(res.Wishlist.Items, item)
	}
	return res, nil
}
