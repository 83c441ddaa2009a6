package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront-cart/pkg/slug"
)

// DefaultMaxQuantity bounds a line whose stored entry carries no limit.
const DefaultMaxQuantity = 99

// EncodeMoneyAsNumbers makes decimal amounts marshal as JSON numbers, the
// shape browser code reads from stored carts. The flag is process-wide, so
// it is set once at startup before any cart is written.
func EncodeMoneyAsNumbers() {
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItem is one product line in the cart. The same product in two
// variants occupies two lines with different IDs.
type LineItem struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"productId"`
	Name          string           `json:"name"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Quantity      int              `json:"quantity"`
	MaxQuantity   int              `json:"maxQuantity"`
	InStock       bool             `json:"inStock"`
	Color         string           `json:"color,omitempty"`
	Size          string           `json:"size,omitempty"`
	Fabric        string           `json:"fabric,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty"`
}

// OnSale reports whether the line has an original price above its price.
func (li LineItem) OnSale() bool {
	return li.OriginalPrice != nil && li.OriginalPrice.GreaterThan(li.Price)
}

// ListPrice returns the original price when known, otherwise the price.
func (li LineItem) ListPrice() decimal.Decimal {
	if li.OriginalPrice != nil {
		return *li.OriginalPrice
	}
	return li.Price
}

// LineTotal returns price * quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineID builds the identifier of a product line from the product and its
// variant attributes, e.g. "linen-01--red--m--linen".
func LineID(productID, color, size, fabric string) string {
	productID = strings.TrimSpace(productID)
	attrs := slug.Join(color, size, fabric)
	if attrs == "" {
		return productID
	}
	if productID == "" {
		return attrs
	}
	return productID + slug.Separator + attrs
}

// ClampQuantity limits q to [0, limit]. A non-positive limit falls back to
// DefaultMaxQuantity.
func ClampQuantity(q, limit int) int {
	if limit <= 0 {
		limit = DefaultMaxQuantity
	}
	switch {
	case q < 0:
		return 0
	case q > limit:
		return limit
	default:
		return q
	}
}

// Cart is the persisted part of the cart: the line items and the time of
// the last mutation. Totals are derived and never stored authoritatively.
type Cart struct {
	Items       []LineItem
	LastUpdated time.Time
}

// TotalItems returns the sum of quantities.
func (c *Cart) TotalItems() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// TotalPrice returns the sum of price * quantity.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// FindItemIndex returns the index of the line with the given ID, or -1.
func (c *Cart) FindItemIndex(lineID string) int {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

// Item returns a copy of the line with the given ID.
func (c *Cart) Item(lineID string) (LineItem, bool) {
	idx := c.FindItemIndex(lineID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.Items[idx], true
}

// SetQuantity clamps q to [0, maxQuantity] and applies it to the line; zero
// removes the line. It reports false when no line has the ID.
func (c *Cart) SetQuantity(lineID string, q int) bool {
	idx := c.FindItemIndex(lineID)
	if idx < 0 {
		return false
	}
	q = ClampQuantity(q, c.Items[idx].MaxQuantity)
	if q == 0 {
		c.removeAt(idx)
		return true
	}
	c.Items[idx].Quantity = q
	return true
}

// RemoveItem deletes the line with the given ID. It reports false when no
// line has the ID.
func (c *Cart) RemoveItem(lineID string) bool {
	idx := c.FindItemIndex(lineID)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

// AddItem appends the line, or merges its quantity into an existing line
// with the same ID. The resulting quantity is clamped to the line's max.
// Merging refreshes display fields and price from the incoming line.
func (c *Cart) AddItem(item LineItem) LineItem {
	if item.MaxQuantity <= 0 {
		item.MaxQuantity = DefaultMaxQuantity
	}
	if idx := c.FindItemIndex(item.ID); idx >= 0 {
		item.Quantity += c.Items[idx].Quantity
		item.Quantity = ClampQuantity(item.Quantity, item.MaxQuantity)
		c.Items[idx] = item
		return item
	}
	item.Quantity = ClampQuantity(item.Quantity, item.MaxQuantity)
	c.Items = append(c.Items, item)
	return item
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
}

// Touch records a mutation time.
func (c *Cart) Touch(now time.Time) {
	c.LastUpdated = now.UTC()
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

// CartState is the view handed to callers: the items plus every derived
// total, recomputed from the items on each read.
type CartState struct {
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Pricing     Pricing         `json:"pricing"`
}

// State derives the CartState for the cart under the given pricing policy.
func (c *Cart) State(policy PricingPolicy) CartState {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return CartState{
		Items:       items,
		TotalItems:  c.TotalItems(),
		TotalPrice:  c.TotalPrice(),
		LastUpdated: c.LastUpdated,
		Pricing:     policy.Compute(items),
	}
}

// CartSummary is written next to the items for readers of the older
// wrapped shape. Load never trusts it.
type CartSummary struct {
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// StoredCart is the persisted shape under the "cart" key.
type StoredCart struct {
	Items       []LineItem  `json:"items"`
	Summary     CartSummary `json:"summary"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// Stored returns the full persisted form of the cart.
func (c *Cart) Stored() StoredCart {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return StoredCart{
		Items: items,
		Summary: CartSummary{
			TotalItems: c.TotalItems(),
			TotalPrice: c.TotalPrice(),
		},
		LastUpdated: c.LastUpdated,
	}
}

// Marshal serializes the cart in its persisted shape.
func (c *Cart) Marshal() ([]byte, error) {
	return json.Marshal(c.Stored())
}
