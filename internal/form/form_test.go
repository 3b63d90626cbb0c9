package form_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/form"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

func newTestForm(t *testing.T) *form.Form {
	t.Helper()
	c, err := catalog.New([]catalog.Product{
		{ID: "a", Price: decimal.NewFromInt(1000), HalfPriceSecond: true},
		{ID: "b", Price: decimal.NewFromInt(1000), ThreeForTwo: true},
	})
	require.NoError(t, err)
	return form.New(pricing.Engine{}, c)
}

func TestSetQuantityRecomputes(t *testing.T) {
	f := newTestForm(t)
	require.True(t, f.Breakdown().GrossTotal.IsZero())

	require.NoError(t, f.SetQuantity("a", "5"))
	require.NoError(t, f.SetQuantity("b", "6.7"))

	b := f.Breakdown()
	require.Equal(t, "11000", b.GrossTotal.String())
	require.Equal(t, "1000", b.HalfPriceDiscount.String())
	require.Equal(t, "2000", b.ThreeForTwoDiscount.String())
	require.Equal(t, "8000", b.FinalTotal.String())

	rows := f.Rows()
	require.Equal(t, 5, rows[0].Quantity)
	require.Equal(t, 6, rows[1].Quantity)
}

func TestSetQuantityTreatsGarbageAsZero(t *testing.T) {
	f := newTestForm(t)
	require.NoError(t, f.SetQuantity("a", "4"))
	require.NoError(t, f.SetQuantity("a", ""))
	require.True(t, f.Breakdown().GrossTotal.IsZero())

	require.NoError(t, f.SetQuantity("a", "-3"))
	require.Equal(t, 0, f.Rows()[0].Quantity)
}

func TestSetQuantityUnknownProduct(t *testing.T) {
	f := newTestForm(t)
	require.ErrorIs(t, f.SetQuantity("zzz", "1"), form.ErrUnknownProduct)
}

func TestResetZeroesEveryRow(t *testing.T) {
	f := newTestForm(t)
	require.NoError(t, f.SetQuantity("a", "2"))
	require.NoError(t, f.SetQuantity("b", "3"))
	f.Reset()
	for _, r := range f.Rows() {
		require.Zero(t, r.Quantity)
	}
	require.True(t, f.Breakdown().FinalTotal.IsZero())
}

func TestAttachAndDetach(t *testing.T) {
	f := newTestForm(t)
	var seen []string
	detach := f.Attach(func(b pricing.Breakdown) {
		seen = append(seen, b.FinalTotal.String())
	})
	require.Equal(t, []string{"0"}, seen)

	require.NoError(t, f.SetQuantity("a", "2"))
	require.Equal(t, []string{"0", "1500"}, seen)

	detach()
	detach()
	require.NoError(t, f.SetQuantity("a", "4"))
	require.Len(t, seen, 2)
}

func TestListenersNotifiedInAttachOrder(t *testing.T) {
	f := newTestForm(t)
	var order []string
	f.Attach(func(pricing.Breakdown) { order = append(order, "first") })
	f.Attach(func(pricing.Breakdown) { order = append(order, "second") })
	order = nil
	f.Reset()
	require.Equal(t, []string{"first", "second"}, order)
}
