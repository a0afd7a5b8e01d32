// Package fixedpoint provides the deterministic fixed-point arithmetic the
// pricing engine is built on. All share-scale quantities carry 18 fractional
// decimal digits (one whole unit = Scale = 10^18) and are represented as
// *big.Int, so magnitudes beyond int64 (e.g. 100 shares = 1e20) never wrap.
//
// Exp and Ln are the only approximations in the engine; everything above them
// is exact integer arithmetic. Both are side-effect-free and bounded: Exp
// saturates at an argument of 6.0 and Ln runs a capped alternating series, so
// every call terminates in a fixed number of iterations.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits in a share-scale value.
const Decimals = 18

// maxExpTerms bounds the Taylor series in Exp. For arguments capped at 6.0
// the terms underflow one fixed-point unit well before this.
const maxExpTerms = 64

// maxLnTerms bounds the alternating series in Ln.
const maxLnTerms = 30

var (
	// Scale is one whole unit: 10^18.
	Scale = pow10(Decimals)

	// MaxExpArg is the saturation cap for Exp. Arguments above 6.0 clamp to
	// it, collapsing larger price differentials to the same extreme price.
	// This is a known precision ceiling, reported via the saturated flag.
	MaxExpArg = new(big.Int).Mul(big.NewInt(6), Scale)

	// ln2 is ln(2) truncated to 18 decimals. Added back once per halving in Ln.
	ln2 = big.NewInt(693147180559945309)

	// lnReduceBound is 1.5 in fixed point. Ln halves its argument down into
	// [0.75, 1.5) before running the series, keeping |y| <= 0.5 so the capped
	// series converges to well under one unit per whole-unit result.
	lnReduceBound = big.NewInt(1_500_000_000_000_000_000)
)

var (
	// ErrNegative is returned where an unsigned quantity would go below zero.
	ErrNegative = errors.New("fixedpoint: negative value")

	// ErrSaturated reports that Exp clamped its argument; results derived
	// from a saturated exponential are not reliable signals.
	ErrSaturated = errors.New("fixedpoint: exp argument saturated")
)

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// New returns units whole units as a fixed-point value.
func New(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), Scale)
}

// FromDecimal converts a non-negative decimal (e.g. a parsed config value
// like "0.03") into fixed point, truncating past 18 fractional digits.
// Decimals are only used at this boundary; internal math stays on big.Int.
func FromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.IsNegative() {
		return nil, ErrNegative
	}
	return d.Shift(Decimals).Truncate(0).BigInt(), nil
}

// FromString parses a non-negative decimal string into fixed point.
func FromString(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return FromDecimal(d)
}

// MustFromString is FromString for constants known to be valid.
func MustFromString(s string) *big.Int {
	v, err := FromString(s)
	if err != nil {
		panic("fixedpoint: " + err.Error())
	}
	return v
}

// Format renders a fixed-point value as a decimal string, for logs and tests.
func Format(x *big.Int) string {
	return decimal.NewFromBigInt(x, -Decimals).String()
}

// Mul returns a*b scaled back down, truncating toward zero.
func Mul(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, Scale)
}

// Div returns a/b scaled up, truncating toward zero. Division by zero is a
// programmer error at this layer; callers guarantee positive denominators.
func Div(a, b *big.Int) *big.Int {
	if b.Sign() == 0 {
		panic("fixedpoint: division by zero")
	}
	p := new(big.Int).Mul(a, Scale)
	return p.Quo(p, b)
}

// CheckedSub returns a-b, or ErrNegative if the result would go below zero.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrNegative
	}
	return new(big.Int).Sub(a, b), nil
}

// Max returns the larger of a and b.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Rescale converts amount between decimal bases, e.g. a 6-decimal collateral
// amount into the 18-decimal share scale and back. Truncates toward zero when
// shrinking the base, so conversions never create value.
func Rescale(amount *big.Int, fromDecimals, toDecimals int) *big.Int {
	switch {
	case fromDecimals == toDecimals:
		return new(big.Int).Set(amount)
	case fromDecimals < toDecimals:
		return new(big.Int).Mul(amount, pow10(toDecimals-fromDecimals))
	default:
		return new(big.Int).Quo(amount, pow10(fromDecimals-toDecimals))
	}
}

// Exp evaluates e^x for non-negative fixed-point x via a term-by-term Taylor
// series, stopping once a term underflows one fixed-point unit. Arguments
// above MaxExpArg are clamped and reported through the saturated flag.
func Exp(x *big.Int) (result *big.Int, saturated bool) {
	if x.Sign() < 0 {
		panic("fixedpoint: exp of negative argument")
	}
	arg := x
	if x.Cmp(MaxExpArg) > 0 {
		arg = MaxExpArg
		saturated = true
	}

	result = new(big.Int).Set(Scale)
	term := new(big.Int).Set(Scale)
	for i := int64(1); i <= maxExpTerms; i++ {
		term.Mul(term, arg)
		term.Quo(term, Scale)
		term.Quo(term, big.NewInt(i))
		if term.Sign() == 0 {
			break
		}
		result.Add(result, term)
	}
	return result, saturated
}

// Ln evaluates the natural logarithm of fixed-point x. Values at or below one
// unit return zero: the cost function only ever takes logs of sums anchored
// at or above one by construction.
//
// The argument is halved (counting halvings) into [0.75, 1.5), then
// ln(1+y) = y - y^2/2 + y^3/3 - ... runs on y = x - 1 with |y| <= 0.5, and
// halvings*ln2 is added back.
func Ln(x *big.Int) *big.Int {
	if x.Cmp(Scale) <= 0 {
		return new(big.Int)
	}

	v := new(big.Int).Set(x)
	halvings := int64(0)
	for v.Cmp(lnReduceBound) >= 0 {
		v.Rsh(v, 1)
		halvings++
	}

	y := new(big.Int).Sub(v, Scale) // may be negative, |y| <= Scale/2
	sum := new(big.Int)
	pow := new(big.Int).Set(y)
	for k := int64(1); k <= maxLnTerms; k++ {
		term := new(big.Int).Quo(pow, big.NewInt(k))
		if term.Sign() == 0 {
			break
		}
		if k%2 == 1 {
			sum.Add(sum, term)
		} else {
			sum.Sub(sum, term)
		}
		pow.Mul(pow, y)
		pow.Quo(pow, Scale)
	}

	if halvings > 0 {
		sum.Add(sum, new(big.Int).Mul(ln2, big.NewInt(halvings)))
	}
	return sum
}
