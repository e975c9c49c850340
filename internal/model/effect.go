package model

import (
	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
)

// Effect is one deferred external call emitted by an execution-chain
// stage. Effects within a step are applied strictly in emission order and
// none blocks waiting for a result; a failed effect aborts the whole step.
// The executor dispatches on the concrete type with an exhaustive switch.
type Effect interface{ effect() }

// SwapNative swaps stable coins for another native denom through the
// chain-native exchange module.
type SwapNative struct {
	Offer    asset.Coin `json:"offer"`
	AskDenom string     `json:"ask_denom"`
}

// SwapPair swaps stable coins for a contract token on a resolved trading
// pair.
type SwapPair struct {
	Pair  string      `json:"pair"`
	Offer asset.Asset `json:"offer"`
}

// DepositStable deposits stable coins into the lending market, which
// issues the receipt token in return.
type DepositStable struct {
	Amount decimal.Decimal `json:"amount"`
}

// IncreaseAllowance authorizes a spender to pull tokens held by the
// engine.
type IncreaseAllowance struct {
	Token   string          `json:"token"`
	Spender string          `json:"spender"`
	Amount  decimal.Decimal `json:"amount"`
}

// IncentivesCreate hands the full contributed-asset list to the mint
// authority's create operation, with native funds attached.
type IncentivesCreate struct {
	ClusterContract string        `json:"cluster_contract"`
	Assets          []asset.Asset `json:"asset_amounts"`
	Funds           []asset.Coin  `json:"funds"`
}

// TransferToken sends the engine's token balance to a recipient.
type TransferToken struct {
	Token     string          `json:"token"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

func (SwapNative) effect()        {}
func (SwapPair) effect()          {}
func (DepositStable) effect()     {}
func (IncreaseAllowance) effect() {}
func (IncentivesCreate) effect()  {}
func (TransferToken) effect()     {}
