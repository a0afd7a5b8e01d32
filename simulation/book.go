// Package simulation owns the mutable side the pure engine deliberately does
// not have: a Book applies quoted trades to its own copy of a market state,
// collects fees into a ledger and tracks solvency after every step. It exists
// for risk analysis (replaying trade sequences to find collateral shortfalls
// before they happen on-chain) and as the reference for how a settlement
// layer should serialize reads-then-writes around the engine.
//
// A Book is single-writer: concurrent quoting against its snapshot is safe,
// concurrent trade application is not and must be serialized by the caller.
package simulation

import (
	"errors"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"marketamm/math/fees"
	"marketamm/math/fixedpoint"
	"marketamm/math/probabilities/lslmsr"
	"marketamm/math/quoting"
	"marketamm/math/solvency"
	"marketamm/models"
)

// ErrInsufficientCollateral is returned when a sell's gross payout exceeds
// the collateral pool. It marks a solvency failure in the replayed sequence.
var ErrInsufficientCollateral = errors.New("simulation: payout exceeds collateral pool")

// Book replays trades against a private copy of a market state.
type Book struct {
	id            string
	state         *models.MarketState
	policy        fees.Policy
	ledger        *fees.Ledger
	creatorBuffer *big.Int
	log           *slog.Logger
}

// NewBook clones the given snapshot so the caller's state is never touched.
// creatorBuffer is the creator's reserved collateral in share scale (nil for
// none). A nil logger disables logging.
func NewBook(state *models.MarketState, policy fees.Policy, creatorBuffer *big.Int, log *slog.Logger) *Book {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if creatorBuffer == nil {
		creatorBuffer = new(big.Int)
	}
	id := uuid.NewString()
	return &Book{
		id:            id,
		state:         state.Clone(),
		policy:        policy,
		ledger:        fees.NewLedger(),
		creatorBuffer: new(big.Int).Set(creatorBuffer),
		log:           log.With("book", id[:8]),
	}
}

// ID identifies this simulation run.
func (b *Book) ID() string { return b.id }

// State returns a snapshot of the current market state.
func (b *Book) State() *models.MarketState { return b.state.Clone() }

// Ledger returns the fee accumulators.
func (b *Book) Ledger() *fees.Ledger { return b.ledger }

// Buy quotes and applies a buy in one step: shares are minted on the chosen
// side, the net payment joins the collateral pool and the fee is booked to
// the ledger. minShares (share scale, nil to skip) is the slippage bound,
// checked against this book's current state.
func (b *Book) Buy(isYes bool, grossPayment, minShares *big.Int) (*models.BuyQuote, error) {
	quote, err := quoting.VerifyBuy(b.state, isYes, grossPayment, minShares, b.policy)
	if err != nil {
		return nil, err
	}

	if isYes {
		b.state.YesShares.Add(b.state.YesShares, quote.SharesReceived)
	} else {
		b.state.NoShares.Add(b.state.NoShares, quote.SharesReceived)
	}
	b.state.TotalCollateral.Add(b.state.TotalCollateral, quote.NetPayment)
	b.recordFees(quote.CreatorFee, quote.ProtocolFee)

	b.logStep("buy", isYes, quote.SharesReceived, quote.NetPayment, quote.Saturated)
	return quote, nil
}

// Sell quotes and applies a share burn: shares leave the chosen side and the
// gross payout leaves the collateral pool (the trader receives the net, the
// fee goes to the ledger). minPayout (collateral decimals, nil to skip) is
// the slippage bound.
func (b *Book) Sell(isYes bool, shares, minPayout *big.Int) (*models.SellQuote, error) {
	quote, err := quoting.VerifySell(b.state, isYes, shares, minPayout, b.policy)
	if err != nil {
		return nil, err
	}
	if b.state.TotalCollateral.Cmp(quote.GrossPayout) < 0 {
		return nil, ErrInsufficientCollateral
	}

	if isYes {
		b.state.YesShares.Sub(b.state.YesShares, quote.SharesBurned)
	} else {
		b.state.NoShares.Sub(b.state.NoShares, quote.SharesBurned)
	}
	b.state.TotalCollateral.Sub(b.state.TotalCollateral, quote.GrossPayout)
	b.recordFees(quote.CreatorFee, quote.ProtocolFee)

	b.logStep("sell", isYes, quote.SharesBurned, quote.NetPayout, quote.Saturated)
	return quote, nil
}

// Resolve terminates trading on the book.
func (b *Book) Resolve(result models.Resolution) error {
	if err := b.state.Resolve(result); err != nil {
		return err
	}
	b.log.Info("market resolved", "result", string(result))
	return nil
}

// Prices returns current marginal prices.
func (b *Book) Prices() lslmsr.PriceResult {
	return lslmsr.Price(b.state.YesShares, b.state.NoShares, b.state.Alpha, b.state.MinLiquidity)
}

// RequiredBuffer reports the current redemption shortfall (positive) or
// surplus (negative) in share scale.
func (b *Book) RequiredBuffer() *big.Int {
	return solvency.RequiredBuffer(b.state, b.creatorBuffer)
}

// IsSolvent reports whether worst-case redemption is covered right now.
func (b *Book) IsSolvent() bool {
	return solvency.IsSolvent(b.state, b.creatorBuffer)
}

func (b *Book) recordFees(creator, protocol *big.Int) {
	b.ledger.Add(creator, protocol)
}

func (b *Book) logStep(op string, isYes bool, shares, amount *big.Int, saturated bool) {
	buffer := b.RequiredBuffer()
	b.log.Info("trade applied",
		"op", op,
		"side", side(isYes),
		"shares", fixedpoint.Format(shares),
		"amount", amount.String(),
		"yesShares", fixedpoint.Format(b.state.YesShares),
		"noShares", fixedpoint.Format(b.state.NoShares),
		"collateral", b.state.TotalCollateral.String(),
		"requiredBuffer", fixedpoint.Format(buffer),
		"solvent", buffer.Sign() <= 0,
		"saturated", saturated,
	)
}

func side(isYes bool) string {
	if isYes {
		return "yes"
	}
	return "no"
}

// NewLogger builds a JSON slog logger writing to stdout and a rotated file
// under dir. Falls back to stderr-only if the directory cannot be created.
func NewLogger(dir string, level slog.Level) *slog.Logger {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "simulation.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	writer := io.MultiWriter(os.Stdout, fileLogger)
	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
}
