package currency

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Normalizer converts amounts of any supported currency to the reference
// currency using a fixed multiplicative rate table. An unknown currency is a
// hard error: falling back to zero would admit unrated assets at zero risk.
type Normalizer struct {
	mu        sync.RWMutex
	reference string
	rates     map[string]decimal.Decimal
}

func NewNormalizer(reference string, rates map[string]decimal.Decimal) *Normalizer {
	table := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		table[code] = rate
	}
	table[reference] = decimal.NewFromInt(1)
	return &Normalizer{
		reference: reference,
		rates:     table,
	}
}

func (n *Normalizer) Reference() string {
	return n.reference
}

func (n *Normalizer) ToReference(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	n.mu.RLock()
	rate, exists := n.rates[currency]
	n.mu.RUnlock()

	if !exists {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	return amount.Mul(rate), nil
}

func (n *Normalizer) Supported() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	codes := make([]string, 0, len(n.rates))
	for code := range n.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// WithRates replaces the whole table at once. The external pricing
// collaborator calls this on refresh; the reference currency keeps factor 1.
func (n *Normalizer) WithRates(rates map[string]decimal.Decimal) {
	table := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		table[code] = rate
	}
	table[n.reference] = decimal.NewFromInt(1)

	n.mu.Lock()
	n.rates = table
	n.mu.Unlock()
}
