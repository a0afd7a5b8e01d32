package solvency

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketamm/math/fixedpoint"
	"marketamm/math/quoting"
	"marketamm/models"
)

func newTestMarket(collateralUnits int64) *models.MarketState {
	seed := fixedpoint.New(100)
	return &models.MarketState{
		YesShares:          new(big.Int).Set(seed),
		NoShares:           new(big.Int).Set(seed),
		Alpha:              fixedpoint.MustFromString("0.03"),
		MinLiquidity:       fixedpoint.New(10),
		InitialYesShares:   new(big.Int).Set(seed),
		InitialNoShares:    new(big.Int).Set(seed),
		TotalCollateral:    big.NewInt(collateralUnits * 1_000_000),
		CollateralDecimals: 6,
	}
}

// buyShares applies an exact-cost share mint: the buyer pays precisely
// cost(after)-cost(before), fee-free, the way the risk simulations drive the
// model. Saturated evaluations are expected in stress scenarios.
func buyShares(t *testing.T, state *models.MarketState, isYes bool, units int64) {
	t.Helper()
	shares := fixedpoint.New(units)
	cost, err := quoting.CostToBuy(state, isYes, shares)
	if err != nil {
		require.ErrorIs(t, err, fixedpoint.ErrSaturated)
	}
	if isYes {
		state.YesShares.Add(state.YesShares, shares)
	} else {
		state.NoShares.Add(state.NoShares, shares)
	}
	paid := fixedpoint.Rescale(cost, fixedpoint.Decimals, state.CollateralDecimals)
	state.TotalCollateral.Add(state.TotalCollateral, paid)
}

func TestMintedShares(t *testing.T) {
	state := newTestMarket(10)
	yes, no := MintedShares(state)
	assert.Zero(t, yes.Sign())
	assert.Zero(t, no.Sign())

	state.YesShares.Add(state.YesShares, fixedpoint.New(40))
	yes, no = MintedShares(state)
	assert.Equal(t, fixedpoint.New(40), yes)
	assert.Zero(t, no.Sign())
}

func TestFreshMarketIsSolvent(t *testing.T) {
	state := newTestMarket(10)
	buffer := RequiredBuffer(state, nil)
	assert.LessOrEqual(t, buffer.Sign(), 0, "no minted shares means no liability")
	assert.True(t, IsSolvent(state, nil))
}

// TestOneSidedStressShortfall replays the stress sequence: a market seeded
// 100/100 with alpha 0.03, b floor 10 and a 10-unit creator buffer, hit by
// five 100-share YES buys and one 10-share NO buy. The YES buys ride the
// saturated price regime, so collateral collected per 100 shares falls short
// of the 100 units a YES resolution owes; the run ends insolvent.
func TestOneSidedStressShortfall(t *testing.T) {
	creatorBuffer := fixedpoint.New(10)
	state := newTestMarket(10) // creator's buffer is the only deposit so far

	for i := 0; i < 5; i++ {
		buyShares(t, state, true, 100)
	}
	buyShares(t, state, false, 10)

	yesMinted, noMinted := MintedShares(state)
	require.Equal(t, fixedpoint.New(500), yesMinted)
	require.Equal(t, fixedpoint.New(10), noMinted)

	shortfall := RequiredBuffer(state, creatorBuffer)
	assert.Positive(t, shortfall.Sign(),
		"one-sided saturated buying must leave a shortfall, got %s", fixedpoint.Format(shortfall))
	assert.False(t, IsSolvent(state, creatorBuffer))

	// The hole is bounded: the first buy collected ~93 units for 100 shares
	// and later buys nearly broke even, so roughly 7 units are missing. A
	// 10-unit larger starting buffer would have covered it.
	assert.Negative(t, shortfall.Cmp(fixedpoint.New(10)))

	covered := state.Clone()
	covered.TotalCollateral.Add(covered.TotalCollateral, big.NewInt(10_000_000))
	assert.True(t, IsSolvent(covered, creatorBuffer))
}

func TestRequiredBufferCountsWorstSide(t *testing.T) {
	state := newTestMarket(0)
	state.YesShares.Add(state.YesShares, fixedpoint.New(30))
	state.NoShares.Add(state.NoShares, fixedpoint.New(70))
	state.TotalCollateral = big.NewInt(50 * 1_000_000)

	// Liability is the larger side: 70 minted NO shares vs 50 collateral.
	buffer := RequiredBuffer(state, nil)
	assert.Equal(t, fixedpoint.New(20), buffer)
}

func TestRedeemableValue(t *testing.T) {
	state := newTestMarket(600)
	state.YesShares.Add(state.YesShares, fixedpoint.New(500))

	_, err := RedeemableValue(state, true, fixedpoint.New(500))
	assert.ErrorIs(t, err, models.ErrMarketNotResolved)

	require.NoError(t, state.Resolve(models.ResolutionYes))

	won, err := RedeemableValue(state, true, fixedpoint.New(500))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500*1_000_000), won, "winning side redeems 1:1 in collateral units")

	lost, err := RedeemableValue(state, false, fixedpoint.New(500))
	require.NoError(t, err)
	assert.Zero(t, lost.Sign(), "losing side redeems nothing")
}

func TestRedeemableValueInvalidResolution(t *testing.T) {
	state := newTestMarket(100)
	require.NoError(t, state.Resolve(models.ResolutionInvalid))

	for _, isYes := range []bool{true, false} {
		v, err := RedeemableValue(state, isYes, fixedpoint.New(10))
		require.NoError(t, err)
		assert.Zero(t, v.Sign())
	}
}
