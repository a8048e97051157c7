// README: Money value object used for fares and vehicle earnings.
package types

import (
	"errors"
	"fmt"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Add returns m+o. An empty currency adopts the other's. Adding two different
// currencies is a programming error and panics with ErrCurrencyMismatch.
func (m Money) Add(o Money) Money {
	cur := m.Currency
	switch {
	case cur == "":
		cur = o.Currency
	case o.Currency != "" && o.Currency != cur:
		panic(fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, cur, o.Currency))
	}
	return Money{Amount: m.Amount + o.Amount, Currency: cur}
}
