package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name     string `validate:"required"`
	Quantity int    `validate:"gte=0,lte=99"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(testStruct{Name: "Linen Throw", Quantity: 3}))
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(testStruct{Quantity: 3})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Name")
	assert.Equal(t, "is required", fields["Name"])
}

func TestValidate_OutOfRange(t *testing.T) {
	err := Validate(testStruct{Name: "Linen Throw", Quantity: 200})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Quantity"], "99")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Name'")
	assert.Contains(t, err.Error(), "is required")
}

type jsonNamed struct {
	ProductID string `json:"productId" validate:"required"`
	Hidden    string `json:"-" validate:"required"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(jsonNamed{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "productId")
	assert.Contains(t, fields, "Hidden")
}

type minMaxStruct struct {
	Short string `validate:"min=3"`
	Long  string `validate:"max=5"`
}

func TestValidate_MinMax(t *testing.T) {
	err := Validate(minMaxStruct{Short: "ab", Long: "toolongstring"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Short"], "at least 3")
	assert.Contains(t, fields["Long"], "at most 5")
}

type oneofStruct struct {
	Fabric string `validate:"oneof=cotton linen silk"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(oneofStruct{Fabric: "polyester"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Fabric"], "one of")
}

type moneyStruct struct {
	Price         decimal.Decimal  `json:"price" validate:"gte=0"`
	OriginalPrice *decimal.Decimal `json:"originalPrice" validate:"omitempty,gte=0"`
}

func TestValidate_DecimalNonNegative(t *testing.T) {
	assert.NoError(t, Validate(moneyStruct{Price: decimal.NewFromInt(499)}))
	assert.NoError(t, Validate(moneyStruct{Price: decimal.Zero}))
}

func TestValidate_DecimalNegative(t *testing.T) {
	err := Validate(moneyStruct{Price: decimal.NewFromInt(-1)})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["price"], "greater than or equal to 0")
}

func TestValidate_DecimalPointer(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	err := Validate(moneyStruct{Price: decimal.NewFromInt(10), OriginalPrice: &neg})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "originalPrice")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"Name":"Cotton Voile","Quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	require.NoError(t, DecodeAndValidate(req, &s))
	assert.Equal(t, "Cotton Voile", s.Name)
	assert.Equal(t, 2, s.Quantity)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s testStruct
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"Name":"","Quantity":1}`))

	var s testStruct
	err := DecodeAndValidate(req, &s)
	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
