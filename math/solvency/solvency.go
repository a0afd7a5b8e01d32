// Package solvency decides whether the collateral held can cover the largest
// possible winning-side redemption. Each minted share on the winning side
// redeems for exactly one unit of collateral, so the liability under either
// resolution outcome is the larger of the two minted totals. Heavily
// one-sided trading can drive the liability past trade-contributed
// collateral; this package is what catches that ahead of resolution, at
// market creation and while simulating trade sequences.
package solvency

import (
	"math/big"

	"marketamm/math/fixedpoint"
	"marketamm/models"
)

// MintedShares returns the shares minted above the initial seed on each
// side. Seed shares are the market maker's own inventory and carry no
// redemption liability. Sells cannot burn below the seed, so a negative
// difference only arises from a corrupt snapshot; it clamps to zero.
func MintedShares(state *models.MarketState) (yesMinted, noMinted *big.Int) {
	yesMinted = new(big.Int).Sub(state.YesShares, state.InitialYesShares)
	if yesMinted.Sign() < 0 {
		yesMinted.SetInt64(0)
	}
	noMinted = new(big.Int).Sub(state.NoShares, state.InitialNoShares)
	if noMinted.Sign() < 0 {
		noMinted.SetInt64(0)
	}
	return yesMinted, noMinted
}

// RequiredBuffer returns the extra collateral needed to guarantee 1:1
// redemption under either outcome:
//
//	max(yesMinted, noMinted) - (totalCollateral - creatorBuffer)
//
// in share-scale fixed point. Positive means a shortfall; zero or negative
// means the market is covered. creatorBuffer is the creator's reserved
// portion of the collateral (share scale), not available for redemptions;
// nil means none.
func RequiredBuffer(state *models.MarketState, creatorBuffer *big.Int) *big.Int {
	yesMinted, noMinted := MintedShares(state)
	liability := fixedpoint.Max(yesMinted, noMinted)

	available := state.CollateralInShareScale()
	if creatorBuffer != nil {
		available = new(big.Int).Sub(available, creatorBuffer)
	}
	return new(big.Int).Sub(liability, available)
}

// IsSolvent reports whether the market can honor the worst-case redemption.
func IsSolvent(state *models.MarketState, creatorBuffer *big.Int) bool {
	return RequiredBuffer(state, creatorBuffer).Sign() <= 0
}

// RedeemableValue returns the collateral (in the collateral asset's own
// decimals) owed for a holding of shares once the market is resolved:
// one unit per share on the winning side, zero on the losing side, and zero
// for both sides under an invalid resolution (refunds of original deposits
// need per-account history, which only the settlement layer has). Active
// markets return ErrMarketNotResolved.
func RedeemableValue(state *models.MarketState, isYes bool, shares *big.Int) (*big.Int, error) {
	if !state.IsResolved {
		return nil, models.ErrMarketNotResolved
	}
	if shares == nil || shares.Sign() < 0 {
		return nil, fixedpoint.ErrNegative
	}

	var wins bool
	switch state.ResolutionResult {
	case models.ResolutionYes:
		wins = isYes
	case models.ResolutionNo:
		wins = !isYes
	case models.ResolutionInvalid:
		wins = false
	}
	if !wins {
		return new(big.Int), nil
	}
	return fixedpoint.Rescale(shares, fixedpoint.Decimals, state.CollateralDecimals), nil
}
