package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedStoredData is returned when a stored cart or wishlist value
// cannot be read as any known shape.
var ErrMalformedStoredData = errors.New("malformed stored data")

// layer names one of the places a raw entry may keep a field.
type layer int

const (
	layerEntry layer = iota
	layerVariant
	layerAttributes
	layerProduct
)

type location struct {
	layer layer
	key   string
}

func at(l layer, keys ...string) []location {
	locs := make([]location, len(keys))
	for i, k := range keys {
		locs[i] = location{layer: l, key: k}
	}
	return locs
}

func chain(groups ...[]location) []location {
	var out []location
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Fallback locations per field, in priority order. The first present,
// non-empty value wins. New legacy shapes are supported by extending these
// lists.
var (
	idLocations = at(layerEntry, "id", "lineId", "cartItemId")

	productIDLocations = chain(
		at(layerEntry, "productId", "product_id"),
		at(layerVariant, "productId"),
		at(layerProduct, "id", "_id"),
	)
	nameLocations = chain(
		at(layerEntry, "name", "title"),
		at(layerVariant, "name"),
		at(layerProduct, "name", "title"),
	)
	imageLocations = chain(
		at(layerEntry, "image", "imageUrl", "thumbnail"),
		at(layerVariant, "image", "imageUrl"),
		at(layerProduct, "image", "imageUrl", "thumbnail", "images"),
	)
	categoryLocations = chain(
		at(layerEntry, "category"),
		at(layerProduct, "category"),
	)
	brandLocations = chain(
		at(layerEntry, "brand"),
		at(layerProduct, "brand"),
	)
	priceLocations = chain(
		at(layerEntry, "price"),
		at(layerVariant, "price"),
		at(layerProduct, "price"),
	)
	originalPriceLocations = chain(
		at(layerEntry, "originalPrice", "compareAtPrice"),
		at(layerVariant, "originalPrice", "compareAtPrice"),
		at(layerProduct, "originalPrice", "compareAtPrice"),
	)
	quantityLocations = at(layerEntry, "quantity", "qty")

	maxQuantityLocations = chain(
		at(layerEntry, "maxQuantity"),
		at(layerVariant, "maxQuantity", "stock"),
		at(layerProduct, "maxQuantity", "stock"),
	)
	inStockLocations = chain(
		at(layerEntry, "inStock"),
		at(layerVariant, "inStock"),
		at(layerProduct, "inStock"),
	)
	colorLocations = chain(
		at(layerEntry, "color"),
		at(layerVariant, "color"),
		at(layerAttributes, "color"),
	)
	sizeLocations = chain(
		at(layerEntry, "size"),
		at(layerVariant, "size"),
		at(layerAttributes, "size"),
	)
	fabricLocations = chain(
		at(layerEntry, "fabric", "material"),
		at(layerVariant, "fabric", "material"),
		at(layerAttributes, "fabric", "material"),
	)
	discountLocations = chain(
		at(layerEntry, "discount"),
		at(layerProduct, "discount"),
	)
)

// rawEntry is a decoded stored entry with its nested objects resolved.
type rawEntry struct {
	layers [4]map[string]any
}

func newRawEntry(m map[string]any) rawEntry {
	var e rawEntry
	e.layers[layerEntry] = m
	if variant := asObject(m["variant"]); variant != nil {
		e.layers[layerVariant] = variant
		e.layers[layerAttributes] = asObject(variant["attributes"])
	}
	e.layers[layerProduct] = asObject(m["product"])
	return e
}

// lookup returns the first present, non-empty value among the locations.
func (e rawEntry) lookup(locs []location) (any, bool) {
	for _, loc := range locs {
		m := e.layers[loc.layer]
		if m == nil {
			continue
		}
		if v, ok := m[loc.key]; ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

func (e rawEntry) text(locs []location) string {
	v, ok := e.lookup(locs)
	if !ok {
		return ""
	}
	return stringValue(v)
}

func (e rawEntry) number(locs []location) (decimal.Decimal, bool) {
	v, ok := e.lookup(locs)
	if !ok {
		return decimal.Zero, false
	}
	return decimalValue(v)
}

var (
	maxStoredInt = decimal.NewFromInt(math.MaxInt32)
	minStoredInt = decimal.NewFromInt(math.MinInt32)
)

// integer saturates to the int32 range; IntPart wraps on overflow.
func (e rawEntry) integer(locs []location) (int, bool) {
	d, ok := e.number(locs)
	if !ok {
		return 0, false
	}
	switch {
	case d.GreaterThan(maxStoredInt):
		return math.MaxInt32, true
	case d.LessThan(minStoredInt):
		return math.MinInt32, true
	}
	return int(d.IntPart()), true
}

func (e rawEntry) flag(locs []location) (bool, bool) {
	v, ok := e.lookup(locs)
	if !ok {
		return false, false
	}
	return boolValue(v)
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// stringValue flattens a scalar to text. Objects yield their "name" or
// "url" and lists yield their first usable element, which covers category
// objects and image galleries.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case map[string]any:
		if s := stringValue(t["name"]); s != "" {
			return s
		}
		return stringValue(t["url"])
	case []any:
		for _, el := range t {
			if s := stringValue(el); s != "" {
				return s
			}
		}
	}
	return ""
}

func decimalValue(v any) (decimal.Decimal, bool) {
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.TrimSpace(t)
	default:
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func boolValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case json.Number:
		d, ok := decimalValue(t)
		return ok && !d.IsZero(), ok
	}
	return false, false
}

func timeValue(v any) time.Time {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t)); err == nil {
			return ts.UTC()
		}
	case json.Number:
		if ms, err := t.Int64(); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Time{}
}

// decodeStored decodes a stored value keeping numbers exact. An empty value
// or JSON null decodes to nil.
func decodeStored(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStoredData, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after value", ErrMalformedStoredData)
	}
	return v, nil
}

// splitStored accepts either a bare list of entries or an object wrapping
// an "items" list. The wrapper object is returned for its metadata.
func splitStored(v any) ([]any, map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil, nil
	case []any:
		return t, nil, nil
	case map[string]any:
		items, present := t["items"]
		if !present {
			return nil, nil, fmt.Errorf("%w: object without items", ErrMalformedStoredData)
		}
		switch list := items.(type) {
		case nil:
			return nil, t, nil
		case []any:
			return list, t, nil
		default:
			return nil, nil, fmt.Errorf("%w: items is %T, not a list", ErrMalformedStoredData, items)
		}
	default:
		return nil, nil, fmt.Errorf("%w: unexpected %T at top level", ErrMalformedStoredData, v)
	}
}

// ParsedCart is the result of reading a stored cart value.
type ParsedCart struct {
	Cart Cart
	// Dropped counts entries that could not be turned into a line item.
	Dropped int
	// Merged counts entries folded into an earlier entry with the same ID.
	Merged int
}

// ParseStoredCart normalizes a stored cart value. It accepts a bare list of
// entries or an {items, summary} object; the summary is ignored. Entries
// that are not objects, have no usable ID or a missing or negative price
// are dropped. Entries sharing an ID are merged into the first one.
func ParseStoredCart(data []byte, defaultMaxQuantity int) (ParsedCart, error) {
	v, err := decodeStored(data)
	if err != nil {
		return ParsedCart{Cart: Cart{Items: []LineItem{}}}, err
	}
	entries, wrapper, err := splitStored(v)
	if err != nil {
		return ParsedCart{Cart: Cart{Items: []LineItem{}}}, err
	}

	res := ParsedCart{Cart: Cart{Items: make([]LineItem, 0, len(entries))}}
	if wrapper != nil {
		res.Cart.LastUpdated = timeValue(wrapper["lastUpdated"])
	}

	for _, raw := range entries {
		item, ok := normalizeEntry(raw, defaultMaxQuantity)
		if !ok {
			res.Dropped++
			continue
		}
		if idx := res.Cart.FindItemIndex(item.ID); idx >= 0 {
			existing := &res.Cart.Items[idx]
			existing.Quantity = ClampQuantity(existing.Quantity+item.Quantity, existing.MaxQuantity)
			res.Merged++
			continue
		}
		res.Cart.Items = append(res.Cart.Items, item)
	}
	return res, nil
}

func normalizeEntry(raw any, defaultMaxQuantity int) (LineItem, bool) {
	m := asObject(raw)
	if m == nil {
		return LineItem{}, false
	}
	e := newRawEntry(m)

	item := LineItem{
		ProductID: e.text(productIDLocations),
		Name:      e.text(nameLocations),
		Image:     e.text(imageLocations),
		Category:  e.text(categoryLocations),
		Brand:     e.text(brandLocations),
		Color:     e.text(colorLocations),
		Size:      e.text(sizeLocations),
		Fabric:    e.text(fabricLocations),
		InStock:   true,
	}

	item.ID = e.text(idLocations)
	if item.ID == "" {
		item.ID = LineID(item.ProductID, item.Color, item.Size, item.Fabric)
	}
	if item.ID == "" {
		return LineItem{}, false
	}

	price, ok := e.number(priceLocations)
	if !ok || price.IsNegative() {
		return LineItem{}, false
	}
	item.Price = price

	if orig, ok := e.number(originalPriceLocations); ok && !orig.IsNegative() {
		item.OriginalPrice = &orig
	}
	if disc, ok := e.number(discountLocations); ok && disc.IsPositive() {
		item.Discount = &disc
	}
	if inStock, ok := e.flag(inStockLocations); ok {
		item.InStock = inStock
	}

	if defaultMaxQuantity <= 0 {
		defaultMaxQuantity = DefaultMaxQuantity
	}
	item.MaxQuantity = defaultMaxQuantity
	if maxQty, ok := e.integer(maxQuantityLocations); ok && maxQty > 0 {
		item.MaxQuantity = maxQty
	}

	item.Quantity = 1
	if qty, ok := e.integer(quantityLocations); ok {
		if qty <= 0 {
			return LineItem{}, false
		}
		item.Quantity = qty
	}
	item.Quantity = ClampQuantity(item.Quantity, item.MaxQuantity)

	return item, true
}
