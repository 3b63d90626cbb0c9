package quote

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-promo/internal/cache"
	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/present"
	"github.com/noah-isme/backend-promo/internal/pricing"
	"github.com/noah-isme/backend-promo/internal/resilience"
)

// Quote sources used as metric labels.
const (
	SourceCatalog = "catalog"
	SourceLines   = "lines"
)

// Selection picks a catalog product and a raw quantity.
type Selection struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  Amount `json:"quantity"`
}

// Line is an ad-hoc line item with its own price and eligibility.
type Line struct {
	UnitPrice       Amount `json:"unitPrice"`
	Quantity        Amount `json:"quantity"`
	HalfPriceSecond bool   `json:"halfPriceSecond"`
	ThreeForTwo     bool   `json:"threeForTwo"`
}

// Result is a computed quote.
type Result struct {
	ID        string            `json:"id"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Display   present.Display   `json:"display"`
	Applied   []string          `json:"applied"`
	Cached    bool              `json:"cached"`
}

// Service prices carts. Cache, Breaker and Logger are optional.
type Service struct {
	Catalog   *catalog.Catalog
	Engine    pricing.Engine
	Cache     *cache.JSON
	Breaker   *resilience.Breaker
	Formatter present.Formatter
	Logger    zerolog.Logger
}

// FromCatalog prices catalog selections. Repeated products are merged into one row
// before the per-product rules run.
func (s *Service) FromCatalog(ctx context.Context, selections []Selection) (Result, error) {
	if s.Catalog == nil {
		return Result{}, common.NewAppError("INTERNAL", "catalog not configured", http.StatusInternalServerError, nil)
	}
	items := make([]pricing.LineItem, 0, len(selections))
	rows := make(map[string]int, len(selections))
	for _, sel := range selections {
		product, err := s.Catalog.Lookup(sel.ProductID)
		if err != nil {
			return Result{}, err
		}
		qty := pricing.NormalizeQuantity(sel.Quantity.Float64())
		if idx, ok := rows[product.ID]; ok {
			items[idx].Quantity = addQuantity(items[idx].Quantity, qty)
			continue
		}
		rows[product.ID] = len(items)
		items = append(items, product.LineItem(qty))
	}
	return s.compute(ctx, SourceCatalog, items), nil
}

// FromLines prices ad-hoc line items.
func (s *Service) FromLines(ctx context.Context, lines []Line) Result {
	items := make([]pricing.LineItem, len(lines))
	for i, l := range lines {
		items[i] = pricing.LineItem{
			UnitPrice:       pricing.NormalizePrice(l.UnitPrice.Float64()),
			Quantity:        pricing.NormalizeQuantity(l.Quantity.Float64()),
			HalfPriceSecond: l.HalfPriceSecond,
			ThreeForTwo:     l.ThreeForTwo,
		}
	}
	return s.compute(ctx, SourceLines, items)
}

func (s *Service) compute(ctx context.Context, source string, items []pricing.LineItem) Result {
	ctx, span := otel.Tracer("quote.Service").Start(ctx, "QuoteService.compute")
	defer span.End()
	span.SetAttributes(attribute.String("quote.source", source), attribute.Int("quote.items", len(items)))

	key, keyErr := s.cacheKey(items)
	var breakdown pricing.Breakdown
	cached := false
	if keyErr == nil && s.Cache.Enabled() {
		var found bool
		err := s.Breaker.Do(ctx, func(ctx context.Context) error {
			var getErr error
			found, getErr = s.Cache.Get(ctx, key, &breakdown)
			return getErr
		})
		s.cacheFailed(span, "get", key, err)
		cached = found && err == nil
	}
	if !cached {
		breakdown = s.Engine.Compute(items)
		if keyErr == nil && s.Cache.Enabled() {
			err := s.Breaker.Do(ctx, func(ctx context.Context) error {
				return s.Cache.Set(ctx, key, breakdown)
			})
			s.cacheFailed(span, "set", key, err)
		}
	}
	if keyErr != nil {
		span.RecordError(keyErr)
	}

	applied := breakdown.Applied()
	obs.RecordQuote(source, cached, applied)
	span.SetAttributes(attribute.Bool("quote.cached", cached), attribute.StringSlice("quote.applied", applied))

	return Result{
		ID:        uuid.NewString(),
		Breakdown: breakdown,
		Display:   s.Formatter.Render(breakdown),
		Applied:   applied,
		Cached:    cached,
	}
}

func (s *Service) cacheFailed(span trace.Span, op, key string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, resilience.ErrOpen) {
		s.Logger.Debug().Str("key", key).Str("op", op).Msg("quote cache skipped")
		return
	}
	obs.RecordCacheError(op)
	span.RecordError(err)
	s.Logger.Warn().Err(err).Str("key", key).Str("op", op).Msg("quote cache")
}

type cacheItem struct {
	Price string `json:"p"`
	Qty   int    `json:"q"`
	Half  bool   `json:"h,omitempty"`
	Three bool   `json:"t,omitempty"`
}

type cacheInput struct {
	Rules [3]string   `json:"r"`
	Items []cacheItem `json:"i"`
}

// cacheKey derives a key from the normalised inputs and active rules, so quotes made
// under different rule settings never share an entry.
func (s *Service) cacheKey(items []pricing.LineItem) (string, error) {
	rules := s.Engine.ActiveRules()
	in := cacheInput{
		Rules: [3]string{rules.HalfPriceRate.String(), rules.BulkThreshold.String(), rules.BulkRate.String()},
		Items: make([]cacheItem, len(items)),
	}
	for i, it := range items {
		in.Items[i] = cacheItem{Price: it.UnitPrice.String(), Qty: it.Quantity, Half: it.HalfPriceSecond, Three: it.ThreeForTwo}
	}
	return cache.Key("quote", in)
}

func addQuantity(a, b int) int {
	if a > pricing.MaxQuantity-b {
		return pricing.MaxQuantity
	}
	return a + b
}
