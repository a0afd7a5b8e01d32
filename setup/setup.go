// Package setup loads the engine's economics configuration: fee schedule,
// liquidity parameters and decimal scales. Values are written as
// human-readable decimal strings in setup.yaml and parsed into fixed point at
// load time; individual fields can be overridden through the environment
// (optionally via a .env file).
package setup

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketamm/math/fees"
	"marketamm/math/fixedpoint"
	"marketamm/models"
)

// EconomicConfig is the on-disk shape of setup.yaml.
type EconomicConfig struct {
	Fees struct {
		TradingFeeBps   int64 `yaml:"trading_fee_bps" validate:"gte=0,lte=10000"`
		CreatorSplitBps int64 `yaml:"creator_split_bps" validate:"gte=0,lte=10000"`
	} `yaml:"fees"`
	Market struct {
		// Alpha scales effective liquidity with total shares outstanding;
		// smaller alpha means a deeper market.
		Alpha string `yaml:"alpha" validate:"required"`
		// MinLiquidity floors the liquidity parameter in whole shares.
		MinLiquidity string `yaml:"min_liquidity" validate:"required"`
		// InitialShares seeds both sides of a new market, in whole shares.
		InitialShares string `yaml:"initial_shares" validate:"required"`
		// CollateralDecimals is the collateral asset's own decimal base.
		CollateralDecimals int `yaml:"collateral_decimals" validate:"gte=0,lte=36"`
	} `yaml:"market"`
}

// Economics is the parsed, fixed-point form the engine consumes.
type Economics struct {
	FeePolicy          fees.Policy
	Alpha              *big.Int
	MinLiquidity       *big.Int
	InitialShares      *big.Int
	CollateralDecimals int
}

var validate = validator.New()

// Load reads setup.yaml from path, applies environment overrides and returns
// the parsed economics. A missing .env file is not an error.
func Load(path string) (*Economics, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read economics config: %w", err)
	}
	var cfg EconomicConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse economics config: %w", err)
	}
	applyEnvOverrides(&cfg)

	return cfg.Parse()
}

// Parse validates the raw config and converts it into fixed point.
func (c *EconomicConfig) Parse() (*Economics, error) {
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid economics config: %w", err)
	}

	alpha, err := fixedpoint.FromString(c.Market.Alpha)
	if err != nil {
		return nil, fmt.Errorf("invalid alpha %q: %w", c.Market.Alpha, err)
	}
	minLiquidity, err := fixedpoint.FromString(c.Market.MinLiquidity)
	if err != nil {
		return nil, fmt.Errorf("invalid min_liquidity %q: %w", c.Market.MinLiquidity, err)
	}
	initialShares, err := fixedpoint.FromString(c.Market.InitialShares)
	if err != nil {
		return nil, fmt.Errorf("invalid initial_shares %q: %w", c.Market.InitialShares, err)
	}

	econ := &Economics{
		FeePolicy: fees.Policy{
			RateBps:         c.Fees.TradingFeeBps,
			CreatorSplitBps: c.Fees.CreatorSplitBps,
		},
		Alpha:              alpha,
		MinLiquidity:       minLiquidity,
		InitialShares:      initialShares,
		CollateralDecimals: c.Market.CollateralDecimals,
	}
	if err := econ.FeePolicy.Validate(); err != nil {
		return nil, err
	}
	return econ, nil
}

// NewMarket seeds a fresh market state under this economics, with
// initialCollateral supplied by the creator in collateral decimals.
func (e *Economics) NewMarket(initialCollateral *big.Int) (*models.MarketState, error) {
	state := &models.MarketState{
		YesShares:          new(big.Int).Set(e.InitialShares),
		NoShares:           new(big.Int).Set(e.InitialShares),
		Alpha:              new(big.Int).Set(e.Alpha),
		MinLiquidity:       new(big.Int).Set(e.MinLiquidity),
		InitialYesShares:   new(big.Int).Set(e.InitialShares),
		InitialNoShares:    new(big.Int).Set(e.InitialShares),
		TotalCollateral:    new(big.Int).Set(initialCollateral),
		CollateralDecimals: e.CollateralDecimals,
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

func applyEnvOverrides(cfg *EconomicConfig) {
	if v, ok := envInt64("MARKETAMM_TRADING_FEE_BPS"); ok {
		cfg.Fees.TradingFeeBps = v
	}
	if v, ok := envInt64("MARKETAMM_CREATOR_SPLIT_BPS"); ok {
		cfg.Fees.CreatorSplitBps = v
	}
	if v := os.Getenv("MARKETAMM_ALPHA"); v != "" {
		cfg.Market.Alpha = v
	}
	if v := os.Getenv("MARKETAMM_MIN_LIQUIDITY"); v != "" {
		cfg.Market.MinLiquidity = v
	}
	if v := os.Getenv("MARKETAMM_INITIAL_SHARES"); v != "" {
		cfg.Market.InitialShares = v
	}
	if v, ok := envInt64("MARKETAMM_COLLATERAL_DECIMALS"); ok {
		cfg.Market.CollateralDecimals = int(v)
	}
}

func envInt64(key string) (int64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
