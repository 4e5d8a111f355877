package fantamarket

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CreditCode is the go-money currency code registered for auction credits.
const CreditCode = "FMC"

// creditFraction is the number of decimals persisted by the stores.
const creditFraction = 2

func init() {
	money.AddCurrency(CreditCode, "cr", "1 $", ".", ",", creditFraction)
}

// Credits is an amount of auction money.
//
// Credits are exact: they never go through float arithmetic once created.
type Credits struct {
	value decimal.Decimal
}

// C is a convenient factory for Credits.
func C[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Credits {
	return Credits{value: newDecimal(value)}
}

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// CreditsFromMinor builds Credits from hundredths, the unit used by the stores.
func CreditsFromMinor(minor int64) Credits {
	return Credits{value: decimal.New(minor, -creditFraction)}
}

// ParseCredits parses an amount as written in spreadsheets: "12", "12.5", "12,5", " 1 ".
func ParseCredits(s string) (Credits, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Credits{}, nil
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Credits{}, fmt.Errorf("invalid credits %q: %w", s, err)
	}
	return Credits{value: d}, nil
}

// Minor returns the amount in hundredths, rounded half away from zero.
func (c Credits) Minor() int64 { return c.value.Shift(creditFraction).Round(0).IntPart() }

// Exact reports whether c holds no more decimals than the stores persist.
func (c Credits) Exact() bool { return c.value.Equal(c.value.Round(creditFraction)) }

func (c Credits) Add(n Credits) Credits               { return Credits{value: c.value.Add(n.value)} }
func (c Credits) Sub(n Credits) Credits               { return Credits{value: c.value.Sub(n.value)} }
func (c Credits) Neg() Credits                        { return Credits{value: c.value.Neg()} }
func (c Credits) Cmp(n Credits) int                   { return c.value.Cmp(n.value) }
func (c Credits) Equal(n Credits) bool                { return c.value.Equal(n.value) }
func (c Credits) IsZero() bool                        { return c.value.IsZero() }
func (c Credits) IsPositive() bool                    { return c.value.IsPositive() }
func (c Credits) IsNegative() bool                    { return c.value.IsNegative() }
func (c Credits) LessThan(n Credits) bool             { return c.value.LessThan(n.value) }
func (c Credits) GreaterThan(n Credits) bool          { return c.value.GreaterThan(n.value) }
func (c Credits) GreaterThanOrEqual(n Credits) bool   { return c.value.GreaterThanOrEqual(n.value) }
func (c Credits) Decimal() decimal.Decimal            { return c.value }
func (c Credits) InexactFloat64() float64             { return c.value.InexactFloat64() }

// String formats the amount with the credit symbol, e.g. "250.00 cr".
func (c Credits) String() string {
	return money.New(c.Minor(), CreditCode).Display()
}

// Plain returns the amount without symbol and without trailing zeros.
func (c Credits) Plain() string { return c.value.String() }

// SumCredits adds up all amounts.
func SumCredits(amounts ...Credits) Credits {
	var total Credits
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (c Credits) MarshalJSON() ([]byte, error) {
	return []byte(c.value.Round(creditFraction).String()), nil
}

// UnmarshalJSON accepts JSON numbers and spreadsheet-like strings.
func (c *Credits) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = Credits{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		parsed, err := ParseCredits(strings.Trim(s, `"`))
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	return c.value.UnmarshalJSON(data)
}

// Set parses s into c, so that Credits can be used as a flag.Value.
func (c *Credits) Set(s string) error {
	parsed, err := ParseCredits(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
