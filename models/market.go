package models

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"

	"marketamm/math/fixedpoint"
)

// Resolution is the terminal outcome of a market.
type Resolution string

const (
	ResolutionYes     Resolution = "yes"
	ResolutionNo      Resolution = "no"
	ResolutionInvalid Resolution = "invalid"
)

var (
	// ErrMarketResolved is returned by any pricing or quoting call against a
	// resolved market. Trading stops at resolution; only redemption remains.
	ErrMarketResolved = errors.New("market is already resolved")

	// ErrMarketNotResolved is returned by redemption math on an active market.
	ErrMarketNotResolved = errors.New("market is not resolved")

	// ErrInvalidMarketState is returned when a snapshot fails validation.
	ErrInvalidMarketState = errors.New("invalid market state")
)

var validate = validator.New()

// MarketState is a read-only snapshot of a binary market as held by the
// settlement layer. The engine never mutates one; every operation takes a
// snapshot in and returns pure computations. Share quantities, alpha and
// minimum liquidity are share-scale fixed point (18 decimals); the collateral
// balance stays in the collateral asset's own decimal base, which the caller
// must supply explicitly.
type MarketState struct {
	YesShares    *big.Int `json:"yesShares" validate:"required"`
	NoShares     *big.Int `json:"noShares" validate:"required"`
	Alpha        *big.Int `json:"alpha" validate:"required"`
	MinLiquidity *big.Int `json:"minLiquidity" validate:"required"`

	// Seed shares minted at creation; redemption liability only counts
	// shares above these.
	InitialYesShares *big.Int `json:"initialYesShares" validate:"required"`
	InitialNoShares  *big.Int `json:"initialNoShares" validate:"required"`

	// Collateral actually held, in the collateral asset's own decimals.
	TotalCollateral    *big.Int `json:"totalCollateral" validate:"required"`
	CollateralDecimals int      `json:"collateralDecimals" validate:"gte=0,lte=36"`

	IsResolved       bool       `json:"isResolved"`
	ResolutionResult Resolution `json:"resolutionResult,omitempty"`
}

// Validate checks structural and semantic consistency of a snapshot.
func (m *MarketState) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidMarketState)
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMarketState, err)
	}
	for name, v := range map[string]*big.Int{
		"yesShares":        m.YesShares,
		"noShares":         m.NoShares,
		"alpha":            m.Alpha,
		"minLiquidity":     m.MinLiquidity,
		"initialYesShares": m.InitialYesShares,
		"initialNoShares":  m.InitialNoShares,
		"totalCollateral":  m.TotalCollateral,
	} {
		if v.Sign() < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidMarketState, name)
		}
	}
	if m.YesShares.Cmp(m.InitialYesShares) < 0 || m.NoShares.Cmp(m.InitialNoShares) < 0 {
		return fmt.Errorf("%w: shares below initial seed", ErrInvalidMarketState)
	}
	if m.IsResolved {
		switch m.ResolutionResult {
		case ResolutionYes, ResolutionNo, ResolutionInvalid:
		default:
			return fmt.Errorf("%w: resolved without a resolution result", ErrInvalidMarketState)
		}
	} else if m.ResolutionResult != "" {
		return fmt.Errorf("%w: resolution result set on active market", ErrInvalidMarketState)
	}
	return nil
}

// TotalShares returns yes+no shares outstanding.
func (m *MarketState) TotalShares() *big.Int {
	return new(big.Int).Add(m.YesShares, m.NoShares)
}

// Shares returns the share count for one side.
func (m *MarketState) Shares(isYes bool) *big.Int {
	if isYes {
		return m.YesShares
	}
	return m.NoShares
}

// Clone deep-copies a snapshot so simulation can apply trades without
// touching the caller's state.
func (m *MarketState) Clone() *MarketState {
	c := *m
	c.YesShares = new(big.Int).Set(m.YesShares)
	c.NoShares = new(big.Int).Set(m.NoShares)
	c.Alpha = new(big.Int).Set(m.Alpha)
	c.MinLiquidity = new(big.Int).Set(m.MinLiquidity)
	c.InitialYesShares = new(big.Int).Set(m.InitialYesShares)
	c.InitialNoShares = new(big.Int).Set(m.InitialNoShares)
	c.TotalCollateral = new(big.Int).Set(m.TotalCollateral)
	return &c
}

// Resolve transitions Active -> Resolved(result). Resolution is terminal.
func (m *MarketState) Resolve(result Resolution) error {
	if m.IsResolved {
		return ErrMarketResolved
	}
	switch result {
	case ResolutionYes, ResolutionNo, ResolutionInvalid:
	default:
		return fmt.Errorf("%w: unknown resolution %q", ErrInvalidMarketState, result)
	}
	m.IsResolved = true
	m.ResolutionResult = result
	return nil
}

// CollateralInShareScale converts the held collateral into the 18-decimal
// share scale for comparisons against share liabilities.
func (m *MarketState) CollateralInShareScale() *big.Int {
	return fixedpoint.Rescale(m.TotalCollateral, m.CollateralDecimals, fixedpoint.Decimals)
}
