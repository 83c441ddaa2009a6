package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func line(id string, price string, qty, maxQty int) LineItem {
	return LineItem{ID: id, ProductID: id, Price: dec(price), Quantity: qty, MaxQuantity: maxQty, InStock: true}
}

// ============================================================================
// Totals Tests
// ============================================================================

func TestTotals_SingleItem(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "500", 2, 5)}}
	assert.Equal(t, 2, c.TotalItems())
	assert.True(t, dec("1000").Equal(c.TotalPrice()))
}

func TestTotals_MultipleItems(t *testing.T) {
	c := &Cart{Items: []LineItem{
		line("a", "100", 2, 99),
		line("b", "49.90", 3, 99),
		line("c", "250", 1, 99),
	}}
	// 200 + 149.70 + 250
	assert.Equal(t, 6, c.TotalItems())
	assert.True(t, dec("599.70").Equal(c.TotalPrice()))
}

func TestTotals_NilItems(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, 0, c.TotalItems())
	assert.True(t, c.TotalPrice().IsZero())
}

// ============================================================================
// ClampQuantity Tests
// ============================================================================

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name  string
		q     int
		limit int
		want  int
	}{
		{"within range", 3, 5, 3},
		{"at max", 5, 5, 5},
		{"above max", 9, 5, 5},
		{"zero", 0, 5, 0},
		{"negative", -4, 5, 0},
		{"unknown limit uses default", 150, 0, DefaultMaxQuantity},
		{"negative limit uses default", 7, -1, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampQuantity(tt.q, tt.limit))
		})
	}
}

// ============================================================================
// SetQuantity Tests
// ============================================================================

func TestSetQuantity_ClampsToRange(t *testing.T) {
	for _, q := range []int{-3, 0, 1, 2, 5, 6, 1000} {
		c := &Cart{Items: []LineItem{line("a", "10", 1, 5)}}
		found := c.SetQuantity("a", q)
		require.True(t, found)

		want := ClampQuantity(q, 5)
		got, present := c.Item("a")
		if want == 0 {
			assert.False(t, present, "q=%d should remove the line", q)
			continue
		}
		require.True(t, present, "q=%d", q)
		assert.Equal(t, want, got.Quantity, "q=%d", q)
	}
}

func TestSetQuantity_UnknownLineIsNoOp(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "10", 2, 5)}}
	assert.False(t, c.SetQuantity("missing", 3))
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestSetQuantity_ZeroRemovesPreservingOrder(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "1", 1, 9), line("b", "1", 1, 9), line("c", "1", 1, 9)}}
	require.True(t, c.SetQuantity("b", 0))
	require.Len(t, c.Items, 2)
	assert.Equal(t, "a", c.Items[0].ID)
	assert.Equal(t, "c", c.Items[1].ID)
}

// ============================================================================
// RemoveItem / Clear Tests
// ============================================================================

func TestRemoveItem(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "1", 1, 9), line("b", "1", 1, 9)}}
	assert.True(t, c.RemoveItem("a"))
	assert.False(t, c.RemoveItem("a"))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b", c.Items[0].ID)
}

func TestClear(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "1", 1, 9)}}
	c.Clear()
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems())
}

// ============================================================================
// AddItem Tests
// ============================================================================

func TestAddItem_AppendsNewLine(t *testing.T) {
	c := &Cart{}
	added := c.AddItem(line("a", "10", 2, 5))
	assert.Equal(t, 2, added.Quantity)
	require.Len(t, c.Items, 1)
}

func TestAddItem_MergesAndClamps(t *testing.T) {
	c := &Cart{Items: []LineItem{line("a", "10", 4, 5)}}
	incoming := line("a", "12", 3, 5)
	incoming.Name = "Linen Weave"

	merged := c.AddItem(incoming)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, "Linen Weave", c.Items[0].Name)
	assert.True(t, dec("12").Equal(c.Items[0].Price))
}

func TestAddItem_DefaultsMaxQuantity(t *testing.T) {
	c := &Cart{}
	added := c.AddItem(LineItem{ID: "a", Price: dec("1"), Quantity: 500})
	assert.Equal(t, DefaultMaxQuantity, added.MaxQuantity)
	assert.Equal(t, DefaultMaxQuantity, added.Quantity)
}

// ============================================================================
// Totals consistency across mutation sequences
// ============================================================================

func TestTotalsConsistency_AfterMutations(t *testing.T) {
	c := &Cart{}
	c.AddItem(line("a", "120", 1, 10))
	c.AddItem(line("b", "35.50", 4, 10))
	c.SetQuantity("a", 7)
	c.AddItem(line("c", "9.99", 2, 3))
	c.RemoveItem("b")
	c.SetQuantity("c", 99)

	state := c.State(DefaultPricingPolicy())

	sumQty := 0
	sumPrice := decimal.Zero
	for _, item := range state.Items {
		sumQty += item.Quantity
		sumPrice = sumPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	assert.Equal(t, sumQty, state.TotalItems)
	assert.True(t, sumPrice.Equal(state.TotalPrice))
	assert.Equal(t, 10, state.TotalItems) // 7 + 3
}

// ============================================================================
// LineID Tests
// ============================================================================

func TestLineID(t *testing.T) {
	assert.Equal(t, "linen-01--red--m--linen", LineID("linen-01", "Red", "M", "Linen"))
	assert.Equal(t, "linen-01--acik-gri", LineID("linen-01", "Açık Gri", "", ""))
	assert.Equal(t, "linen-01", LineID(" linen-01 ", "", "", ""))
	assert.Equal(t, "red", LineID("", "Red", "", ""))
	assert.Equal(t, "", LineID("", "", "", ""))
}

// ============================================================================
// LineItem Tests
// ============================================================================

func TestLineItem_OnSaleAndListPrice(t *testing.T) {
	li := line("a", "800", 1, 5)
	assert.False(t, li.OnSale())
	assert.True(t, dec("800").Equal(li.ListPrice()))

	li.OriginalPrice = decPtr("1000")
	assert.True(t, li.OnSale())
	assert.True(t, dec("1000").Equal(li.ListPrice()))

	li.OriginalPrice = decPtr("700")
	assert.False(t, li.OnSale())
}

// ============================================================================
// Persisted shape Tests
// ============================================================================

func TestMarshal_StoredShape(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &Cart{Items: []LineItem{line("a", "499.90", 2, 5)}}
	c.Touch(now)

	data, err := c.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "items")
	assert.Contains(t, raw, "summary")
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["lastUpdated"])

	items := raw["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, 499.9, first["price"], "prices are stored as JSON numbers")
	assert.NotContains(t, first, "originalPrice")

	summary := raw["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["totalItems"])
	assert.Equal(t, 999.8, summary["totalPrice"])
}

func TestMarshal_EmptyCartWritesEmptyList(t *testing.T) {
	c := &Cart{}
	data, err := c.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items":[]`)
}

func TestMarshal_ReadBackByParser(t *testing.T) {
	c := &Cart{Items: []LineItem{
		{ID: "a", ProductID: "p1", Name: "Silk", Price: dec("800"), OriginalPrice: decPtr("1000"), Quantity: 2, MaxQuantity: 4, InStock: false, Color: "Red"},
	}}
	c.Touch(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	data, err := c.Marshal()
	require.NoError(t, err)

	parsed, err := ParseStoredCart(data, DefaultMaxQuantity)
	require.NoError(t, err)
	require.Len(t, parsed.Cart.Items, 1)

	got := parsed.Cart.Items[0]
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "p1", got.ProductID)
	assert.True(t, dec("800").Equal(got.Price))
	require.NotNil(t, got.OriginalPrice)
	assert.True(t, dec("1000").Equal(*got.OriginalPrice))
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 4, got.MaxQuantity)
	assert.False(t, got.InStock)
	assert.Equal(t, "Red", got.Color)
	assert.True(t, c.LastUpdated.Equal(parsed.Cart.LastUpdated))
}
