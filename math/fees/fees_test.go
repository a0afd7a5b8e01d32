package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestApplyEvenSplit(t *testing.T) {
	p := Policy{RateBps: 100, CreatorSplitBps: 5000} // 1%, 50/50

	b, err := p.Apply(big.NewInt(1_000_000))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(10_000), b.Fee)
	assert.Equal(t, big.NewInt(5_000), b.CreatorFee)
	assert.Equal(t, big.NewInt(5_000), b.ProtocolFee)
	assert.Equal(t, big.NewInt(990_000), b.Net)
}

func TestApplyFloorsRemainders(t *testing.T) {
	p := Policy{RateBps: 100, CreatorSplitBps: 5000}

	// 1% of 333 is 3.33: fee floors to 3, the 0.33 stays with net.
	b, err := p.Apply(big.NewInt(333))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), b.Fee)
	assert.Equal(t, big.NewInt(330), b.Net)

	// 50% of 3 is 1.5: creator floors to 1, protocol absorbs the odd unit.
	assert.Equal(t, big.NewInt(1), b.CreatorFee)
	assert.Equal(t, big.NewInt(2), b.ProtocolFee)
}

func TestApplyZeroRate(t *testing.T) {
	p := Policy{RateBps: 0, CreatorSplitBps: 5000}
	b, err := p.Apply(big.NewInt(12345))
	require.NoError(t, err)
	assert.Zero(t, b.Fee.Sign())
	assert.Equal(t, big.NewInt(12345), b.Net)
}

func TestApplyRejectsBadInputs(t *testing.T) {
	_, err := Policy{RateBps: 10_001, CreatorSplitBps: 0}.Apply(big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Policy{RateBps: 100, CreatorSplitBps: -1}.Apply(big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Policy{RateBps: 100, CreatorSplitBps: 5000}.Apply(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := Policy{
			RateBps:         rapid.Int64Range(0, 10_000).Draw(t, "rate"),
			CreatorSplitBps: rapid.Int64Range(0, 10_000).Draw(t, "split"),
		}
		gross := big.NewInt(rapid.Int64Range(0, 1<<60).Draw(t, "gross"))

		b, err := p.Apply(gross)
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}

		// Every unit of gross lands in exactly one bucket.
		total := new(big.Int).Add(b.Net, b.CreatorFee)
		total.Add(total, b.ProtocolFee)
		if total.Cmp(gross) != 0 {
			t.Fatalf("leaky split: gross %s != net %s + creator %s + protocol %s",
				gross, b.Net, b.CreatorFee, b.ProtocolFee)
		}
		if b.Fee.Cmp(new(big.Int).Add(b.CreatorFee, b.ProtocolFee)) != 0 {
			t.Fatalf("fee %s does not equal its split", b.Fee)
		}
	})
}

func TestLedgerAccumulatesExactly(t *testing.T) {
	p := Policy{RateBps: 100, CreatorSplitBps: 5000}
	ledger := NewLedger()

	// 1000 identical odd-remainder trades: no drift allowed.
	for i := 0; i < 1000; i++ {
		b, err := p.Apply(big.NewInt(333))
		require.NoError(t, err)
		ledger.Record(b)
	}

	assert.Equal(t, big.NewInt(1000), ledger.Creator())
	assert.Equal(t, big.NewInt(2000), ledger.Protocol())
	assert.Equal(t, big.NewInt(3000), ledger.Total())
}
