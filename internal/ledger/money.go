package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a single-currency monetary amount. The system is explicitly
// single-currency (see spec Non-goals), so unlike a general-purpose
// Money value object this carries no currency code.
type Money struct {
	amount decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{amount: decimal.Zero}

// NewMoney wraps a decimal amount. Negative amounts are rejected by
// the ingestion layer (InvalidInputRow), not here.
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// MustMoneyFromFloat is for tests and constants, never for parsed input.
func MustMoneyFromFloat(f float64) Money {
	return Money{amount: decimal.NewFromFloat(f)}
}

// ParseMoney parses a decimal string from untrusted input (CSV/Kafka
// rows); callers reject the row on error rather than defaulting to zero.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: d}, nil
}

// Amount returns the underlying decimal.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsNegative reports whether the amount is negative.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Cmp compares m to other (-1, 0, 1).
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// LessThanOrEqual reports whether m <= other.
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.Cmp(other.amount) <= 0
}

// DivRatio returns m / other as a float64, used for the velocity
// ratio threshold, which is compared against a plain float constant.
func (m Money) DivRatio(other Money) float64 {
	if other.amount.IsZero() {
		return 0
	}
	f, _ := m.amount.Div(other.amount).Float64()
	return f
}

// Float64 converts to float64 for report serialization. Use with
// caution for arithmetic; fine for display/rounding at the report
// boundary.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// String renders the amount fixed to 2 decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON renders Money as a plain numeric JSON value rounded to
// 2 decimal places, matching the export schema's float[2dp] amounts.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.Round(2).InexactFloat64())
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		m.amount = decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid money string %q: %w", v, err)
		}
		m.amount = d
	default:
		return fmt.Errorf("unsupported money json type %T", raw)
	}
	return nil
}
