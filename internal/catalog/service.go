package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-promo/internal/common"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

// ErrNotFound is returned when a product id is not part of the catalog.
var ErrNotFound = errors.New("product not found")

// Product is a storefront row with its promotion eligibility.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	HalfPriceSecond bool            `json:"halfPriceSecond"`
	ThreeForTwo     bool            `json:"threeForTwo"`
}

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New validates products and builds a catalog preserving their order.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product %d: id is required", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q: price must not be negative", p.ID)
		}
		if strings.TrimSpace(p.Name) == "" {
			p.Name = p.ID
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Default returns the built-in storefront catalog.
func Default() *Catalog {
	c, err := New([]Product{
		{ID: "remera-basica", Name: "Remera básica", Price: decimal.NewFromInt(12990), HalfPriceSecond: true},
		{ID: "jean-clasico", Name: "Jean clásico", Price: decimal.NewFromInt(24990), ThreeForTwo: true},
		{ID: "buzo-frisa", Name: "Buzo de frisa", Price: decimal.NewFromInt(31990), HalfPriceSecond: true},
		{ID: "medias-pack", Name: "Pack de medias", Price: decimal.NewFromInt(4990), ThreeForTwo: true},
		{ID: "gorra", Name: "Gorra", Price: decimal.NewFromInt(8990)},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a JSON array of products from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c, err := New(products)
	if err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return c, nil
}

// List returns a copy of the products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup finds a product by id.
func (c *Catalog) Lookup(id string) (Product, error) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("product %q not found", id), http.StatusNotFound, ErrNotFound)
	}
	return c.products[idx], nil
}

// LineItem converts a product and quantity into an engine input.
func (p Product) LineItem(qty int) pricing.LineItem {
	return pricing.LineItem{
		UnitPrice:       p.Price,
		Quantity:        qty,
		HalfPriceSecond: p.HalfPriceSecond,
		ThreeForTwo:     p.ThreeForTwo,
	}
}
