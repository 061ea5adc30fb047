package models

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
)

// Amount is a non-negative arbitrary-precision integer amount in motes.
// It is stored in SQL as a numeric string so values above 64 bits survive
// the round trip intact.
type Amount struct {
	value big.Int
}

// NewAmount creates an Amount from a uint64.
func NewAmount(v uint64) *Amount {
	a := &Amount{}
	a.value.SetUint64(v)
	return a
}

// NewAmountFromBig creates an Amount from a big.Int. Negative or nil values
// are rejected.
func NewAmountFromBig(v *big.Int) (*Amount, error) {
	if v == nil {
		return nil, fmt.Errorf("amount cannot be nil")
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	a := &Amount{}
	a.value.Set(v)
	return a, nil
}

// ParseAmount parses a base-10 amount string.
func ParseAmount(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", s)
	}
	return NewAmountFromBig(v)
}

// Clone returns an independent copy of the amount.
func (a *Amount) Clone() *Amount {
	c := &Amount{}
	c.value.Set(&a.value)
	return c
}

// BigInt returns a copy of the underlying integer.
func (a *Amount) BigInt() *big.Int {
	return new(big.Int).Set(&a.value)
}

// Cmp compares a against b, returning -1, 0 or 1.
func (a *Amount) Cmp(b *Amount) int {
	return a.value.Cmp(&b.value)
}

// IsZero reports whether the amount is zero.
func (a *Amount) IsZero() bool {
	return a.value.Sign() == 0
}

// Add returns a new Amount holding a + b.
func (a *Amount) Add(b *Amount) *Amount {
	sum := &Amount{}
	sum.value.Add(&a.value, &b.value)
	return sum
}

// Sub returns a new Amount holding a - b. A negative result is an error so
// escrowed balances can never go below zero.
func (a *Amount) Sub(b *Amount) (*Amount, error) {
	if a.value.Cmp(&b.value) < 0 {
		return nil, fmt.Errorf("amount underflow: %s - %s", a.String(), b.String())
	}
	diff := &Amount{}
	diff.value.Sub(&a.value, &b.value)
	return diff, nil
}

// Mul returns a new Amount holding a * b.
func (a *Amount) Mul(b *Amount) *Amount {
	prod := &Amount{}
	prod.value.Mul(&a.value, &b.value)
	return prod
}

// Div returns a new Amount holding a / b (truncated).
func (a *Amount) Div(b *Amount) (*Amount, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("division by zero")
	}
	quot := &Amount{}
	quot.value.Div(&a.value, &b.value)
	return quot, nil
}

func (a *Amount) String() string {
	return a.value.String()
}

// Value implements driver.Valuer for SQL persistence.
func (a Amount) Value() (driver.Value, error) {
	return a.value.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		a.value.SetUint64(0)
		return nil
	case string:
		return a.setString(v)
	case []byte:
		return a.setString(string(v))
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative amount %d", v)
		}
		a.value.SetInt64(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
}

func (a *Amount) setString(s string) error {
	// Postgres numeric may come back as "123" or "123.000".
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return fmt.Errorf("cannot scan %q into Amount", s)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("cannot scan negative amount %q", s)
	}
	a.value.Set(v)
	return nil
}

// GormDataType tells GORM which column type to use.
func (Amount) GormDataType() string {
	return "numeric"
}

// MarshalJSON renders the amount as a decimal string, never as a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.value.String() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	return a.setString(s)
}
