package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps normalised quantities so float inputs always fit an int.
const MaxQuantity = math.MaxInt32

// NormalizeQuantity floors q to a whole quantity. NaN, infinities and negative values
// become 0.
func NormalizeQuantity(q float64) int {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return 0
	}
	q = math.Floor(q)
	if q >= MaxQuantity {
		return MaxQuantity
	}
	return int(q)
}

// ParseQuantity interprets user-entered text as a quantity. Empty or unparsable text
// is 0, as is anything NormalizeQuantity rejects.
func ParseQuantity(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	q, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return NormalizeQuantity(q)
}

// NormalizePrice converts a float price to a decimal, mapping NaN, infinities and
// negative values to 0.
func NormalizePrice(p float64) decimal.Decimal {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(p)
}
