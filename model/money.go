/*
Copyright 2025 Staffbooks Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// paymentEpsilon absorbs sub-cent drift from bank fees when deriving
// payment status. It never participates in ledger validation: allocation
// sums are compared exactly.
var paymentEpsilon = decimal.NewFromFloat(0.01)

// Money is an exact decimal amount. Arithmetic never rounds; formatting
// fixes two decimal places at the edges only.
type Money struct {
	value decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{value: d}
}

// MoneyFromString parses an amount like "1234.56".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d}, nil
}

// MustMoney is for constants and tests; it panics on a malformed amount.
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

func ZeroMoney() Money {
	return Money{value: decimal.Zero}
}

func (m Money) Add(o Money) Money { return Money{value: m.value.Add(o.value)} }
func (m Money) Sub(o Money) Money { return Money{value: m.value.Sub(o.value)} }
func (m Money) Neg() Money        { return Money{value: m.value.Neg()} }

func (m Money) IsZero() bool     { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }

func (m Money) Equal(o Money) bool       { return m.value.Equal(o.value) }
func (m Money) GreaterThan(o Money) bool { return m.value.GreaterThan(o.value) }
func (m Money) LessThan(o Money) bool    { return m.value.LessThan(o.value) }

func (m Money) Min(o Money) Money {
	if m.value.LessThan(o.value) {
		return m
	}
	return o
}

// ApproxEqual reports equality within the payment epsilon.
func (m Money) ApproxEqual(o Money) bool {
	return m.value.Sub(o.value).Abs().LessThanOrEqual(paymentEpsilon)
}

// ApproxZero reports whether the amount is within epsilon of zero.
func (m Money) ApproxZero() bool {
	return m.value.Abs().LessThanOrEqual(paymentEpsilon)
}

func (m Money) Decimal() decimal.Decimal { return m.value }

func (m Money) String() string {
	return m.value.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.value.StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	m.value = d
	return nil
}

// Value implements driver.Valuer so Money binds directly in SQL params.
func (m Money) Value() (driver.Value, error) {
	return m.value.StringFixed(2), nil
}

// Scan implements sql.Scanner for numeric columns.
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		m.value = decimal.Zero
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		m.value = d
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		m.value = d
		return nil
	case int64:
		m.value = decimal.NewFromInt(v)
		return nil
	case float64:
		m.value = decimal.NewFromFloat(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}
