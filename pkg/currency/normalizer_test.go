package currency

import (
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer("KRW", map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1350),
		"BTC": decimal.NewFromInt(95_000_000),
	})
}

func TestNormalizer_ToReference_ConvertsByRate(t *testing.T) {
	n := newTestNormalizer()

	got, err := n.ToReference(decimal.NewFromInt(100), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(135_000)) {
		t.Errorf("expected 135000, got %s", got)
	}
}

func TestNormalizer_ToReference_ReferenceIsIdentity(t *testing.T) {
	n := newTestNormalizer()

	amount := decimal.NewFromInt(42_000)
	got, err := n.ToReference(amount, "KRW")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(amount) {
		t.Errorf("expected identity conversion, got %s", got)
	}
}

func TestNormalizer_ToReference_FractionalAmountExact(t *testing.T) {
	n := newTestNormalizer()

	got, err := n.ToReference(decimal.NewFromFloat(0.05), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(4_750_000)) {
		t.Errorf("expected 4750000, got %s", got)
	}
}

func TestNormalizer_ToReference_UnknownCurrency(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.ToReference(decimal.NewFromInt(1), "DOGE")
	if !errors.Is(err, ErrUnsupportedCurrency) {
		t.Errorf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestNormalizer_Supported_SortedWithReference(t *testing.T) {
	n := newTestNormalizer()

	got := n.Supported()
	want := []string{"BTC", "KRW", "USD"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNormalizer_WithRates_ReplacesTable(t *testing.T) {
	n := newTestNormalizer()

	n.WithRates(map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1400),
	})

	got, err := n.ToReference(decimal.NewFromInt(10), "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(14_000)) {
		t.Errorf("expected refreshed rate to apply, got %s", got)
	}

	if _, err := n.ToReference(decimal.NewFromInt(1), "BTC"); !errors.Is(err, ErrUnsupportedCurrency) {
		t.Errorf("expected BTC dropped after table replacement, got %v", err)
	}

	// The reference currency survives every refresh.
	if _, err := n.ToReference(decimal.NewFromInt(1), "KRW"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
