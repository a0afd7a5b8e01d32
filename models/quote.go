package models

import "math/big"

// BuyQuote is the result of pricing a buy against a snapshot. It is ephemeral:
// computed per call, never persisted, and only as fresh as the snapshot it was
// computed from. Payment-side amounts are in collateral decimals; shares and
// costs are share-scale fixed point.
type BuyQuote struct {
	ID    string `json:"id"`
	IsYes bool   `json:"isYes"`

	GrossPayment *big.Int `json:"grossPayment"`
	Fee          *big.Int `json:"fee"`
	CreatorFee   *big.Int `json:"creatorFee"`
	ProtocolFee  *big.Int `json:"protocolFee"`
	NetPayment   *big.Int `json:"netPayment"`

	SharesReceived *big.Int `json:"sharesReceived"`
	ResultingCost  *big.Int `json:"resultingCost"`

	NewPriceYes *big.Int `json:"newPriceYes"`
	NewPriceNo  *big.Int `json:"newPriceNo"`
	// PriceImpact is the signed change of the traded side's marginal price.
	PriceImpact *big.Int `json:"priceImpact"`

	// Saturated marks quotes whose cost evaluation clamped an exponential;
	// such prices are floors/ceilings, not reliable signals.
	Saturated bool `json:"saturated"`
}

// SellQuote is the result of pricing a share burn against a snapshot.
type SellQuote struct {
	ID    string `json:"id"`
	IsYes bool   `json:"isYes"`

	SharesBurned *big.Int `json:"sharesBurned"`

	GrossPayout *big.Int `json:"grossPayout"`
	Fee         *big.Int `json:"fee"`
	CreatorFee  *big.Int `json:"creatorFee"`
	ProtocolFee *big.Int `json:"protocolFee"`
	NetPayout   *big.Int `json:"netPayout"`

	ResultingCost *big.Int `json:"resultingCost"`

	NewPriceYes *big.Int `json:"newPriceYes"`
	NewPriceNo  *big.Int `json:"newPriceNo"`
	PriceImpact *big.Int `json:"priceImpact"`

	Saturated bool `json:"saturated"`
}
