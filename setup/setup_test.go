package setup

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketamm/math/fixedpoint"
)

func TestLoadDefaults(t *testing.T) {
	econ, err := Load("setup.yaml")
	require.NoError(t, err)

	assert.Equal(t, int64(100), econ.FeePolicy.RateBps)
	assert.Equal(t, int64(5000), econ.FeePolicy.CreatorSplitBps)
	assert.Equal(t, fixedpoint.MustFromString("0.03"), econ.Alpha)
	assert.Equal(t, fixedpoint.New(10), econ.MinLiquidity)
	assert.Equal(t, fixedpoint.New(100), econ.InitialShares)
	assert.Equal(t, 6, econ.CollateralDecimals)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKETAMM_TRADING_FEE_BPS", "50")
	t.Setenv("MARKETAMM_ALPHA", "0.05")

	econ, err := Load("setup.yaml")
	require.NoError(t, err)

	assert.Equal(t, int64(50), econ.FeePolicy.RateBps)
	assert.Equal(t, fixedpoint.MustFromString("0.05"), econ.Alpha)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	writeConfig := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "setup.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("fee out of range", func(t *testing.T) {
		path := writeConfig(t, `
fees:
  trading_fee_bps: 20000
  creator_split_bps: 5000
market:
  alpha: "0.03"
  min_liquidity: "10"
  initial_shares: "100"
  collateral_decimals: 6
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("negative alpha", func(t *testing.T) {
		path := writeConfig(t, `
fees:
  trading_fee_bps: 100
  creator_split_bps: 5000
market:
  alpha: "-0.03"
  min_liquidity: "10"
  initial_shares: "100"
  collateral_decimals: 6
`)
		_, err := Load(path)
		assert.ErrorIs(t, err, fixedpoint.ErrNegative)
	})
}

func TestNewMarket(t *testing.T) {
	econ, err := Load("setup.yaml")
	require.NoError(t, err)

	state, err := econ.NewMarket(big.NewInt(10_000_000))
	require.NoError(t, err)
	require.NoError(t, state.Validate())

	assert.Equal(t, fixedpoint.New(100), state.YesShares)
	assert.Equal(t, fixedpoint.New(100), state.NoShares)
	assert.Equal(t, state.YesShares, state.InitialYesShares)
	assert.False(t, state.IsResolved)

	// The returned state owns its numbers.
	state.YesShares.Add(state.YesShares, fixedpoint.New(1))
	assert.Equal(t, fixedpoint.New(100), econ.InitialShares)
}
