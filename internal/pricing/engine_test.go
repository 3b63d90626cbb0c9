package pricing

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func requireDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	require.Truef(t, expected.Equal(got), "%s: expected %s, got %s", field, expected, got)
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestComputeEmpty(t *testing.T) {
	b := Compute(nil)
	for name, v := range map[string]decimal.Decimal{
		"gross":    b.GrossTotal,
		"half":     b.HalfPriceDiscount,
		"3x2":      b.ThreeForTwoDiscount,
		"bulk":     b.BulkDiscount,
		"discount": b.TotalDiscount,
		"subtotal": b.SubtotalAfterProductDiscounts,
		"final":    b.FinalTotal,
	} {
		require.Truef(t, v.IsZero(), "%s should be zero, got %s", name, v)
	}
	require.Empty(t, b.Applied())
}

func TestComputeWithoutEligibility(t *testing.T) {
	b := Compute([]LineItem{{UnitPrice: price(1000), Quantity: 5}})
	requireDecimal(t, "5000", b.GrossTotal, "gross")
	requireDecimal(t, "0", b.TotalDiscount, "discount")
	requireDecimal(t, "5000", b.FinalTotal, "final")
}

func TestComputePairsRule(t *testing.T) {
	b := Compute([]LineItem{{UnitPrice: price(1000), Quantity: 5, HalfPriceSecond: true}})
	requireDecimal(t, "1000", b.HalfPriceDiscount, "half")
	requireDecimal(t, "0", b.ThreeForTwoDiscount, "3x2")
	requireDecimal(t, "4000", b.FinalTotal, "final")
	require.Equal(t, []string{RuleHalfPriceSecond}, b.Applied())
}

func TestComputeThreeForTwoRule(t *testing.T) {
	b := Compute([]LineItem{{UnitPrice: price(1000), Quantity: 6, ThreeForTwo: true}})
	requireDecimal(t, "2000", b.ThreeForTwoDiscount, "3x2")
	requireDecimal(t, "0", b.HalfPriceDiscount, "half")
	requireDecimal(t, "4000", b.FinalTotal, "final")
	require.Equal(t, []string{RuleThreeForTwo}, b.Applied())
}

func TestComputeRulesNeedMinimumQuantity(t *testing.T) {
	b := Compute([]LineItem{
		{UnitPrice: price(1000), Quantity: 1, HalfPriceSecond: true},
		{UnitPrice: price(1000), Quantity: 2, ThreeForTwo: true},
	})
	requireDecimal(t, "3000", b.GrossTotal, "gross")
	requireDecimal(t, "0", b.TotalDiscount, "discount")
}

func TestComputeBulkThresholdIsStrict(t *testing.T) {
	at := Compute([]LineItem{{UnitPrice: price(30000), Quantity: 1}})
	requireDecimal(t, "30000", at.SubtotalAfterProductDiscounts, "subtotal")
	requireDecimal(t, "0", at.BulkDiscount, "bulk")
	requireDecimal(t, "30000", at.FinalTotal, "final")

	above := Compute([]LineItem{{UnitPrice: price(30001), Quantity: 1}})
	requireDecimal(t, "30001", above.SubtotalAfterProductDiscounts, "subtotal")
	requireDecimal(t, "3000.1", above.BulkDiscount, "bulk")
	requireDecimal(t, "27000.9", above.FinalTotal, "final")
	require.Equal(t, []string{RuleBulk}, above.Applied())
}

func TestComputeCombinedRules(t *testing.T) {
	b := Compute([]LineItem{
		{UnitPrice: price(10000), Quantity: 6, HalfPriceSecond: true, ThreeForTwo: true},
		{UnitPrice: price(10000), Quantity: 1},
	})
	requireDecimal(t, "70000", b.GrossTotal, "gross")
	requireDecimal(t, "15000", b.HalfPriceDiscount, "half")
	requireDecimal(t, "20000", b.ThreeForTwoDiscount, "3x2")
	requireDecimal(t, "35000", b.SubtotalAfterProductDiscounts, "subtotal after product")
	requireDecimal(t, "3500", b.BulkDiscount, "bulk")
	requireDecimal(t, "38500", b.TotalDiscount, "discount")
	requireDecimal(t, "31500", b.FinalTotal, "final")
	requireDecimal(t, "31500", b.Subtotal(), "subtotal")
	require.Equal(t, []string{RuleHalfPriceSecond, RuleThreeForTwo, RuleBulk}, b.Applied())
}

func TestComputeClampsNegativeInputs(t *testing.T) {
	b := Compute([]LineItem{
		{UnitPrice: price(-500), Quantity: 4, HalfPriceSecond: true},
		{UnitPrice: price(1000), Quantity: -3, ThreeForTwo: true},
		{UnitPrice: price(250), Quantity: 2},
	})
	requireDecimal(t, "500", b.GrossTotal, "gross")
	requireDecimal(t, "0", b.TotalDiscount, "discount")
	requireDecimal(t, "500", b.FinalTotal, "final")
}

func TestComputeKeepsFractionalPrecision(t *testing.T) {
	b := Compute([]LineItem{{UnitPrice: decimal.RequireFromString("24990.99"), Quantity: 3, HalfPriceSecond: true}})
	requireDecimal(t, "74972.97", b.GrossTotal, "gross")
	requireDecimal(t, "12495.495", b.HalfPriceDiscount, "half")
	requireDecimal(t, "62477.475", b.SubtotalAfterProductDiscounts, "subtotal")
	requireDecimal(t, "6247.7475", b.BulkDiscount, "bulk")
	requireDecimal(t, "56229.7275", b.FinalTotal, "final")
}

func TestEngineCustomRules(t *testing.T) {
	engine := NewEngine(RulesFromBps(2500, 1000, 2000))
	b := engine.Compute([]LineItem{{UnitPrice: price(1000), Quantity: 4, HalfPriceSecond: true}})
	requireDecimal(t, "500", b.HalfPriceDiscount, "half")
	requireDecimal(t, "3500", b.SubtotalAfterProductDiscounts, "subtotal")
	requireDecimal(t, "700", b.BulkDiscount, "bulk")
	requireDecimal(t, "2800", b.FinalTotal, "final")
}

func TestZeroEngineUsesDefaultRules(t *testing.T) {
	items := []LineItem{{UnitPrice: price(12000), Quantity: 4, HalfPriceSecond: true, ThreeForTwo: true}}
	require.Equal(t, NewEngine(DefaultRules()).Compute(items), Engine{}.Compute(items))
}

func TestRulesFromBpsClamps(t *testing.T) {
	rules := RulesFromBps(-10, -5, 20000)
	require.True(t, rules.HalfPriceRate.IsZero())
	require.True(t, rules.BulkThreshold.IsZero())
	requireDecimal(t, "1", rules.BulkRate, "bulk rate")
}

func TestComputeIsIdempotent(t *testing.T) {
	items := []LineItem{
		{UnitPrice: decimal.RequireFromString("1999.5"), Quantity: 7, HalfPriceSecond: true, ThreeForTwo: true},
		{UnitPrice: price(45000), Quantity: 1},
	}
	first := Compute(items)
	second := Compute(items)
	require.Equal(t, first, second)
}

func TestComputeInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	for i := 0; i < 500; i++ {
		n := rng.IntN(6)
		items := make([]LineItem, n)
		for j := range items {
			items[j] = LineItem{
				UnitPrice:       decimal.New(rng.Int64N(5_000_000), -2),
				Quantity:        rng.IntN(25),
				HalfPriceSecond: rng.IntN(2) == 1,
				ThreeForTwo:     rng.IntN(2) == 1,
			}
		}
		b := Compute(items)
		require.False(t, b.FinalTotal.IsNegative(), "final total negative for %+v", items)
		require.True(t, b.FinalTotal.LessThanOrEqual(b.GrossTotal), "final exceeds gross for %+v", items)
		require.True(t, b.FinalTotal.Equal(b.GrossTotal.Sub(b.TotalDiscount)))
		require.True(t, b.FinalTotal.Equal(b.SubtotalAfterProductDiscounts.Sub(b.BulkDiscount)))
		require.True(t, b.TotalDiscount.Equal(b.HalfPriceDiscount.Add(b.ThreeForTwoDiscount).Add(b.BulkDiscount)))
	}
}
