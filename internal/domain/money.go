package domain

import "fmt"

// Money represents an exact monetary value as an integer amount of minor
// units plus a decimal scale. Never a float.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Scale    int32  `json:"scale"`
}

// IsZero reports whether the value is unset.
func (m Money) IsZero() bool {
	return m.Amount == 0 && m.Currency == "" && m.Scale == 0
}

// Equal compares two money values field by field.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency && m.Scale == other.Scale
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s (scale %d)", m.Amount, m.Currency, m.Scale)
}
