// Package quoting answers the two trade-time questions: what a proposed
// trade costs (CostToBuy / PayoutForSell) and what a payment buys
// (QuoteBuy / QuoteSell, the inverse query). Everything here is a pure
// function of the snapshot passed in; applying a trade is the caller's job.
//
// Because quotes are computed against a snapshot, they go stale the moment
// another trade lands. VerifyBuy / VerifySell re-quote against the caller's
// current snapshot and enforce a caller-supplied slippage bound at
// application time.
package quoting

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"marketamm/math/fees"
	"marketamm/math/fixedpoint"
	"marketamm/math/probabilities/lslmsr"
	"marketamm/models"
)

const (
	// searchMultiplier bounds the binary search: a payment buying more than
	// searchMultiplier times its own value in shares would need a marginal
	// price under 1%, which only occurs near the exp saturation extreme.
	// Quotes out there carry the saturation flag regardless.
	searchMultiplier = 100

	// maxSearchIterations caps the binary search. The interval halves each
	// step, and the bracket starts at net*searchMultiplier in 18-decimal
	// units, so 128 halvings reach one-unit width for any bracket below
	// 2^128 (~3.4e20 whole shares).
	maxSearchIterations = 128
)

var (
	// ErrNonConvergence reports a binary search that exhausted its
	// iteration budget above the one-unit tolerance. It should not occur
	// for valid inputs and indicates a bug rather than a bad trade.
	ErrNonConvergence = errors.New("quoting: share search did not converge")

	// ErrSlippageExceeded reports a realized quote outside the caller's
	// bound. Checked against the current snapshot at application time, not
	// the snapshot the original quote was priced on.
	ErrSlippageExceeded = errors.New("quoting: slippage bound exceeded")

	// ErrInvalidAmount is returned for nil or negative trade amounts.
	ErrInvalidAmount = errors.New("quoting: invalid amount")

	// ErrInsufficientShares is returned when a sell would burn below the
	// market's initial seed on that side.
	ErrInsufficientShares = errors.New("quoting: sell exceeds minted shares")
)

// buyDelta returns cost(after)-cost(before) for minting shares on one side,
// clamped at zero. A negative raw delta can only come from approximation
// error and must never propagate as a negative cost.
func buyDelta(state *models.MarketState, isYes bool, shares *big.Int) (*big.Int, bool) {
	yes, no := state.YesShares, state.NoShares
	before := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)
	if isYes {
		yes = new(big.Int).Add(yes, shares)
	} else {
		no = new(big.Int).Add(no, shares)
	}
	after := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)

	delta := new(big.Int).Sub(after.Cost, before.Cost)
	if delta.Sign() < 0 {
		delta.SetInt64(0)
	}
	return delta, before.Saturated || after.Saturated
}

// sellDelta returns cost(before)-cost(after) for burning shares, clamped at
// zero.
func sellDelta(state *models.MarketState, isYes bool, shares *big.Int) (*big.Int, bool) {
	yes, no := state.YesShares, state.NoShares
	before := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)
	if isYes {
		yes = new(big.Int).Sub(yes, shares)
	} else {
		no = new(big.Int).Sub(no, shares)
	}
	after := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)

	delta := new(big.Int).Sub(before.Cost, after.Cost)
	if delta.Sign() < 0 {
		delta.SetInt64(0)
	}
	return delta, before.Saturated || after.Saturated
}

func checkTradeable(state *models.MarketState, amount *big.Int) error {
	if state.IsResolved {
		return models.ErrMarketResolved
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CostToBuy returns the share-scale payment for minting shares on one side:
// cost(after) - cost(before), never negative. Buying zero shares costs zero
// on any state. Returns fixedpoint.ErrSaturated when the evaluation clamped
// an exponential, since a saturated cost is not a reliable signal.
func CostToBuy(state *models.MarketState, isYes bool, shares *big.Int) (*big.Int, error) {
	if err := checkTradeable(state, shares); err != nil {
		return nil, err
	}
	delta, saturated := buyDelta(state, isYes, shares)
	if saturated {
		return delta, fmt.Errorf("cost for %s shares: %w", fixedpoint.Format(shares), fixedpoint.ErrSaturated)
	}
	return delta, nil
}

// PayoutForSell returns the share-scale payout for burning shares on one
// side: cost(before) - cost(after), never negative. Closed form, no search:
// selling is evaluated pointwise. Burning below the initial seed is rejected.
func PayoutForSell(state *models.MarketState, isYes bool, shares *big.Int) (*big.Int, error) {
	if err := checkTradeable(state, shares); err != nil {
		return nil, err
	}
	minted := new(big.Int).Sub(state.Shares(isYes), initialShares(state, isYes))
	if shares.Cmp(minted) > 0 {
		return nil, fmt.Errorf("%w: burn %s, minted %s",
			ErrInsufficientShares, fixedpoint.Format(shares), fixedpoint.Format(minted))
	}
	delta, saturated := sellDelta(state, isYes, shares)
	if saturated {
		return delta, fmt.Errorf("payout for %s shares: %w", fixedpoint.Format(shares), fixedpoint.ErrSaturated)
	}
	return delta, nil
}

func initialShares(state *models.MarketState, isYes bool) *big.Int {
	if isYes {
		return state.InitialYesShares
	}
	return state.InitialNoShares
}

// QuoteBuy answers "how many shares does this payment buy". The fee comes off
// the gross payment first, the net is converted from collateral decimals to
// the share scale, and the share amount is found by binary search over
// [0, net*searchMultiplier]. The search relies on CostToBuy being
// monotonically non-decreasing in shares and returns the final lower bound:
// the engine never quotes more shares than the payment covers.
func QuoteBuy(state *models.MarketState, isYes bool, grossPayment *big.Int, policy fees.Policy) (*models.BuyQuote, error) {
	if err := checkTradeable(state, grossPayment); err != nil {
		return nil, err
	}
	breakdown, err := policy.Apply(grossPayment)
	if err != nil {
		return nil, err
	}
	net := fixedpoint.Rescale(breakdown.Net, state.CollateralDecimals, fixedpoint.Decimals)

	shares, err := searchShares(state, isYes, net)
	if err != nil {
		return nil, err
	}

	return buildBuyQuote(state, isYes, breakdown, shares), nil
}

// searchShares binary-searches the largest share amount whose cost stays
// within the net payment (share scale). Saturated probes are tolerated: a
// clamped cost only overestimates, which keeps the returned bound
// conservative; the final quote still carries the saturation flag.
func searchShares(state *models.MarketState, isYes bool, net *big.Int) (*big.Int, error) {
	lo := new(big.Int)
	if net.Sign() == 0 {
		return lo, nil
	}
	hi := new(big.Int).Mul(net, big.NewInt(searchMultiplier))
	one := big.NewInt(1)

	for i := 0; i < maxSearchIterations; i++ {
		width := new(big.Int).Sub(hi, lo)
		if width.Cmp(one) <= 0 {
			return lo, nil
		}
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		cost, _ := buyDelta(state, isYes, mid)
		if cost.Cmp(net) <= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	if new(big.Int).Sub(hi, lo).Cmp(one) <= 0 {
		return lo, nil
	}
	return nil, fmt.Errorf("%w: interval %s after %d iterations",
		ErrNonConvergence, fixedpoint.Format(new(big.Int).Sub(hi, lo)), maxSearchIterations)
}

func buildBuyQuote(state *models.MarketState, isYes bool, breakdown fees.Breakdown, shares *big.Int) *models.BuyQuote {
	yes := new(big.Int).Set(state.YesShares)
	no := new(big.Int).Set(state.NoShares)
	if isYes {
		yes.Add(yes, shares)
	} else {
		no.Add(no, shares)
	}

	_, saturated := buyDelta(state, isYes, shares)
	before := lslmsr.Price(state.YesShares, state.NoShares, state.Alpha, state.MinLiquidity)
	after := lslmsr.Price(yes, no, state.Alpha, state.MinLiquidity)
	resulting := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)

	return &models.BuyQuote{
		ID:             uuid.NewString(),
		IsYes:          isYes,
		GrossPayment:   breakdown.Gross,
		Fee:            breakdown.Fee,
		CreatorFee:     breakdown.CreatorFee,
		ProtocolFee:    breakdown.ProtocolFee,
		NetPayment:     breakdown.Net,
		SharesReceived: shares,
		ResultingCost:  resulting.Cost,
		NewPriceYes:    after.Yes,
		NewPriceNo:     after.No,
		PriceImpact:    priceImpact(before, after, isYes),
		Saturated:      saturated || before.Saturated || after.Saturated,
	}
}

// QuoteSell prices a share burn: closed-form payout, converted into
// collateral decimals, with the fee taken off the gross payout.
func QuoteSell(state *models.MarketState, isYes bool, shares *big.Int, policy fees.Policy) (*models.SellQuote, error) {
	payout, err := PayoutForSell(state, isYes, shares)
	saturated := errors.Is(err, fixedpoint.ErrSaturated)
	if err != nil && !saturated {
		return nil, err
	}
	grossPayout := fixedpoint.Rescale(payout, fixedpoint.Decimals, state.CollateralDecimals)
	breakdown, err := policy.Apply(grossPayout)
	if err != nil {
		return nil, err
	}

	yes := new(big.Int).Set(state.YesShares)
	no := new(big.Int).Set(state.NoShares)
	if isYes {
		yes.Sub(yes, shares)
	} else {
		no.Sub(no, shares)
	}
	before := lslmsr.Price(state.YesShares, state.NoShares, state.Alpha, state.MinLiquidity)
	after := lslmsr.Price(yes, no, state.Alpha, state.MinLiquidity)
	resulting := lslmsr.Cost(yes, no, state.Alpha, state.MinLiquidity)

	return &models.SellQuote{
		ID:            uuid.NewString(),
		IsYes:         isYes,
		SharesBurned:  new(big.Int).Set(shares),
		GrossPayout:   breakdown.Gross,
		Fee:           breakdown.Fee,
		CreatorFee:    breakdown.CreatorFee,
		ProtocolFee:   breakdown.ProtocolFee,
		NetPayout:     breakdown.Net,
		ResultingCost: resulting.Cost,
		NewPriceYes:   after.Yes,
		NewPriceNo:    after.No,
		PriceImpact:   priceImpact(before, after, isYes),
		Saturated:     saturated || before.Saturated || after.Saturated,
	}, nil
}

func priceImpact(before, after lslmsr.PriceResult, isYes bool) *big.Int {
	if isYes {
		return new(big.Int).Sub(after.Yes, before.Yes)
	}
	return new(big.Int).Sub(after.No, before.No)
}

// VerifyBuy re-quotes a buy against the caller's current snapshot and
// rejects it when the realized shares fall below minShares. This is the
// slippage check the trade-application layer must run at the moment of
// application; a quote priced on a stale snapshot is not a commitment.
func VerifyBuy(state *models.MarketState, isYes bool, grossPayment, minShares *big.Int, policy fees.Policy) (*models.BuyQuote, error) {
	quote, err := QuoteBuy(state, isYes, grossPayment, policy)
	if err != nil {
		return nil, err
	}
	if minShares != nil && quote.SharesReceived.Cmp(minShares) < 0 {
		return nil, fmt.Errorf("%w: got %s shares, bound %s",
			ErrSlippageExceeded, fixedpoint.Format(quote.SharesReceived), fixedpoint.Format(minShares))
	}
	return quote, nil
}

// VerifySell re-quotes a sell against the current snapshot and rejects it
// when the realized net payout falls below minPayout (collateral decimals).
func VerifySell(state *models.MarketState, isYes bool, shares, minPayout *big.Int, policy fees.Policy) (*models.SellQuote, error) {
	quote, err := QuoteSell(state, isYes, shares, policy)
	if err != nil {
		return nil, err
	}
	if minPayout != nil && quote.NetPayout.Cmp(minPayout) < 0 {
		return nil, fmt.Errorf("%w: got payout %s, bound %s",
			ErrSlippageExceeded, quote.NetPayout.String(), minPayout.String())
	}
	return quote, nil
}
