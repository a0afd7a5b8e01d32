// Package lslmsr implements the liquidity-sensitive logarithmic market
// scoring rule (LS-LMSR) for binary YES/NO markets.
//
// The classic LMSR cost function is C = b*ln(e^(qYes/b) + e^(qNo/b)) with a
// fixed liquidity parameter b. The liquidity-sensitive variant scales b with
// total shares outstanding, b = max(alpha*(qYes+qNo), minLiquidity), so the
// market deepens as volume grows instead of staying at its seeded depth.
//
// Reference: Othman et al., "A Practical Liquidity-Sensitive Automated Market
// Maker", ACM EC 2010; Hanson, "Logarithmic Market Scoring Rules", 2003.
//
// All arithmetic is 18-decimal fixed point. Evaluation is anchored at the
// larger share count (the log-sum-exp trick): the bigger side's exponential
// is pinned at exactly one unit and the smaller side's is the reciprocal of
// exp(gap/b), so exp arguments stay bounded no matter how large absolute
// share counts grow.
package lslmsr

import (
	"math/big"

	"marketamm/math/fixedpoint"
)

// CostResult carries a cost evaluation plus the effective liquidity it used.
type CostResult struct {
	// Cost is C(yesShares, noShares) in share-scale fixed point.
	Cost *big.Int
	// B is the effective liquidity parameter used for the evaluation.
	B *big.Int
	// Saturated is set when the anchored exponential clamped its argument
	// (gap/b above the exp cap). The cost is then a clamped estimate.
	Saturated bool
}

// PriceResult carries both marginal prices from one anchored evaluation.
type PriceResult struct {
	// Yes and No are marginal prices in (0, Scale), read as implied
	// probabilities.
	Yes *big.Int
	No  *big.Int
	// Saturated marks clamped evaluations; prices then sit at the extremes
	// the exp cap allows rather than their true values.
	Saturated bool
}

// Spread returns Scale - (yes+no): the deviation of the price sum from one
// whole unit. Nonzero spread here is approximation error only; it is exposed
// rather than normalized away so callers can observe it.
func (p PriceResult) Spread() *big.Int {
	sum := new(big.Int).Add(p.Yes, p.No)
	return sum.Sub(fixedpoint.Scale, sum)
}

// Liquidity computes the effective liquidity parameter
// b = max(alpha*(yesShares+noShares), minLiquidity). b is always strictly
// positive: when both terms degenerate to zero it falls back to one unit.
func Liquidity(yesShares, noShares, alpha, minLiquidity *big.Int) *big.Int {
	total := new(big.Int).Add(yesShares, noShares)
	b := fixedpoint.Mul(alpha, total)
	if minLiquidity.Cmp(b) > 0 {
		b = new(big.Int).Set(minLiquidity)
	}
	if b.Sign() == 0 {
		b = new(big.Int).Set(fixedpoint.Scale)
	}
	return b
}

// anchoredExps returns the two exponentials with the larger side pinned at
// exactly one unit and the smaller side as the reciprocal of exp(gap/b).
// exp is never evaluated on a negative argument, and at least one of the two
// results is exactly Scale, so downstream sums are always >= Scale and the
// price denominator can never be zero.
func anchoredExps(yesShares, noShares, b *big.Int) (expYes, expNo *big.Int, saturated bool) {
	one := new(big.Int).Set(fixedpoint.Scale)
	gap := new(big.Int).Sub(yesShares, noShares)
	if gap.Sign() >= 0 {
		expYes = one
		expNo, saturated = reciprocalExp(gap, b)
	} else {
		expNo = one
		expYes, saturated = reciprocalExp(gap.Neg(gap), b)
	}
	return expYes, expNo, saturated
}

// reciprocalExp computes 1/exp(gap/b) without a negative exp argument.
func reciprocalExp(gap, b *big.Int) (*big.Int, bool) {
	e, saturated := fixedpoint.Exp(fixedpoint.Div(gap, b))
	return fixedpoint.Div(fixedpoint.Scale, e), saturated
}

// Cost evaluates C(yesShares, noShares) = maxShares + b*ln(expYes + expNo)
// with the anchored exponentials above. A market with zero total shares has
// zero cost. Cost is non-decreasing in either share argument for any valid
// alpha/minLiquidity.
func Cost(yesShares, noShares, alpha, minLiquidity *big.Int) CostResult {
	b := Liquidity(yesShares, noShares, alpha, minLiquidity)
	total := new(big.Int).Add(yesShares, noShares)
	if total.Sign() == 0 {
		return CostResult{Cost: new(big.Int), B: b}
	}

	expYes, expNo, saturated := anchoredExps(yesShares, noShares, b)
	lnSum := fixedpoint.Ln(new(big.Int).Add(expYes, expNo))
	cost := new(big.Int).Add(
		fixedpoint.Max(yesShares, noShares),
		fixedpoint.Mul(b, lnSum),
	)
	return CostResult{Cost: cost, B: b, Saturated: saturated}
}

// Price computes both marginal prices, price_i = exp_i / (expYes + expNo),
// from the same anchored exponentials the cost function uses. Deriving both
// sides from one evaluation keeps price and cost consistent; recomputing them
// independently is a classic source of drift.
func Price(yesShares, noShares, alpha, minLiquidity *big.Int) PriceResult {
	b := Liquidity(yesShares, noShares, alpha, minLiquidity)
	expYes, expNo, saturated := anchoredExps(yesShares, noShares, b)
	denom := new(big.Int).Add(expYes, expNo)
	return PriceResult{
		Yes:       fixedpoint.Div(expYes, denom),
		No:        fixedpoint.Div(expNo, denom),
		Saturated: saturated,
	}
}
