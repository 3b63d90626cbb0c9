package pricing

import "github.com/shopspring/decimal"

// Rule names reported by Breakdown.Applied.
const (
	RuleHalfPriceSecond = "half_price_second"
	RuleThreeForTwo     = "three_for_two"
	RuleBulk            = "bulk"
)

// LineItem describes one product row used for promotion calculation.
type LineItem struct {
	UnitPrice       decimal.Decimal
	Quantity        int
	HalfPriceSecond bool
	ThreeForTwo     bool
}

// Breakdown aggregates the computed promotion components. Values are unrounded.
type Breakdown struct {
	GrossTotal                    decimal.Decimal `json:"grossTotal"`
	HalfPriceDiscount             decimal.Decimal `json:"halfPriceDiscount"`
	ThreeForTwoDiscount           decimal.Decimal `json:"threeForTwoDiscount"`
	BulkDiscount                  decimal.Decimal `json:"bulkDiscount"`
	TotalDiscount                 decimal.Decimal `json:"totalDiscount"`
	SubtotalAfterProductDiscounts decimal.Decimal `json:"subtotalAfterProductDiscounts"`
	FinalTotal                    decimal.Decimal `json:"finalTotal"`
}

// Subtotal is the cart subtotal once the bulk discount is also taken off.
func (b Breakdown) Subtotal() decimal.Decimal {
	return b.SubtotalAfterProductDiscounts.Sub(b.BulkDiscount)
}

// Applied lists the rules that produced a non-zero discount, in evaluation order.
func (b Breakdown) Applied() []string {
	applied := make([]string, 0, 3)
	if b.HalfPriceDiscount.IsPositive() {
		applied = append(applied, RuleHalfPriceSecond)
	}
	if b.ThreeForTwoDiscount.IsPositive() {
		applied = append(applied, RuleThreeForTwo)
	}
	if b.BulkDiscount.IsPositive() {
		applied = append(applied, RuleBulk)
	}
	return applied
}

// Rules holds the tunable parameters of the promotions.
type Rules struct {
	// HalfPriceRate is the fraction taken off the second unit of each pair.
	HalfPriceRate decimal.Decimal
	// BulkThreshold must be strictly exceeded by the post-product subtotal.
	BulkThreshold decimal.Decimal
	// BulkRate is the fraction of the subtotal given back once over the threshold.
	BulkRate decimal.Decimal
}

// DefaultRules returns the standard storefront promotions: 50% off the second unit,
// 3 for 2, and 10% off carts above 30000.
func DefaultRules() Rules {
	return Rules{
		HalfPriceRate: decimal.New(5, -1),
		BulkThreshold: decimal.NewFromInt(30000),
		BulkRate:      decimal.New(1, -1),
	}
}

// RulesFromBps builds rules from basis-point rates, the unit used by configuration.
func RulesFromBps(halfPriceBps int, bulkThreshold int64, bulkRateBps int) Rules {
	return Rules{
		HalfPriceRate: bpsToRate(halfPriceBps),
		BulkThreshold: clampDecimal(decimal.NewFromInt(bulkThreshold)),
		BulkRate:      bpsToRate(bulkRateBps),
	}
}

func bpsToRate(bps int) decimal.Decimal {
	if bps <= 0 {
		return decimal.Zero
	}
	if bps > 10000 {
		bps = 10000
	}
	return decimal.New(int64(bps), -4)
}

// Engine evaluates promotions with a fixed rule set. The zero value uses DefaultRules.
type Engine struct {
	Rules Rules
}

// NewEngine constructs an engine for the provided rules.
func NewEngine(rules Rules) Engine {
	return Engine{Rules: rules}
}

// Compute calculates the breakdown using DefaultRules.
func Compute(items []LineItem) Breakdown {
	return Engine{}.Compute(items)
}

// Compute calculates discounts and totals for items. Per-product rules are applied
// first, then the bulk rule on the resulting subtotal.
func (e Engine) Compute(items []LineItem) Breakdown {
	rules := e.ActiveRules()

	gross := decimal.Zero
	half := decimal.Zero
	threeForTwo := decimal.Zero
	for _, it := range items {
		price := clampDecimal(it.UnitPrice)
		qty := it.Quantity
		if qty <= 0 {
			continue
		}
		gross = gross.Add(price.Mul(decimal.NewFromInt(int64(qty))))

		// both rules may hit the same item; their discounts add up
		if it.HalfPriceSecond && qty >= 2 {
			pairs := decimal.NewFromInt(int64(qty / 2))
			half = half.Add(pairs.Mul(price).Mul(rules.HalfPriceRate))
		}
		if it.ThreeForTwo && qty >= 3 {
			groups := decimal.NewFromInt(int64(qty / 3))
			threeForTwo = threeForTwo.Add(groups.Mul(price))
		}
	}

	subtotal := gross.Sub(half).Sub(threeForTwo)
	bulk := decimal.Zero
	if subtotal.GreaterThan(rules.BulkThreshold) {
		bulk = subtotal.Mul(rules.BulkRate)
	}

	total := half.Add(threeForTwo).Add(bulk)
	return Breakdown{
		GrossTotal:                    gross,
		HalfPriceDiscount:             half,
		ThreeForTwoDiscount:           threeForTwo,
		BulkDiscount:                  bulk,
		TotalDiscount:                 total,
		SubtotalAfterProductDiscounts: subtotal,
		FinalTotal:                    gross.Sub(total),
	}
}

// ActiveRules returns the rules Compute evaluates with.
func (e Engine) ActiveRules() Rules {
	r := e.Rules
	if r == (Rules{}) {
		return DefaultRules()
	}
	return r
}

func clampDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
