// Package model defines the core domain types shared across the mint
// engine: the configuration singleton, the cluster state reported by the
// basket authority, the payloads carried between execution-chain stages,
// and the deferred effects a stage emits.
//
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
)

// Config is the engine's one-time configuration: the addresses of the
// external collaborators plus the owner identity. Written once at setup,
// read on every operation, never updated — immutability is by
// construction, no update operation exists.
type Config struct {
	// IncentiveContract is the mint/incentive authority that accepts
	// contributed assets and mints cluster tokens.
	IncentiveContract string `json:"incentive_contract"`
	// ExchangeFactory resolves trading pairs for token swaps.
	ExchangeFactory string `json:"exchange_factory"`
	// ReceiptToken is the yield-bearing token issued by the lending
	// market; acquiring it routes through a deposit, never a swap.
	ReceiptToken string `json:"receipt_token"`
	// LendingMarket accepts stable deposits and issues the receipt token.
	LendingMarket string `json:"lending_market"`
	// PriceOracle reports the current receipt-token rate.
	PriceOracle string `json:"price_oracle"`
	// Owner is the identity that performed setup.
	Owner string `json:"owner"`
	// StableDenom is the stable asset every mint request is funded in.
	StableDenom string `json:"stable_denom"`
}

// ClusterState is the basket authority's view of one cluster. It is
// fetched fresh on every call and never cached across calls.
type ClusterState struct {
	// OutstandingBalanceTokens is the current cluster-token supply.
	OutstandingBalanceTokens decimal.Decimal `json:"outstanding_balance_tokens"`
	// Prices holds the current price per basket component.
	Prices []decimal.Decimal `json:"prices"`
	// Inventory holds the current holdings per basket component.
	Inventory []decimal.Decimal `json:"inv"`
	// PenaltyAddress is the penalty authority for this cluster.
	PenaltyAddress string `json:"penalty"`
	// ClusterToken is the cluster's own fungible token address.
	ClusterToken string `json:"cluster_token"`
	// Target lists the components at their target weights; the Amount
	// field of each entry is a weight, not a holding.
	Target []asset.Asset `json:"target"`
	// ClusterContract is the cluster contract's own address.
	ClusterContract string `json:"cluster_contract_address"`
	// Active is false once the cluster has been decommissioned.
	Active bool `json:"active"`
}

// PriceInfo is the oracle's answer for one asset.
type PriceInfo struct {
	Rate        decimal.Decimal `json:"rate"`
	LastUpdated uint64          `json:"last_updated"`
}

// Attribute is a diagnostic key/value pair carried through stage results
// and penalty responses.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PenaltyCreateQuery asks the penalty authority for the actual mint
// amount given the contributed assets and the current cluster state.
type PenaltyCreateQuery struct {
	BlockHeight        uint64            `json:"block_height"`
	ClusterTokenSupply decimal.Decimal   `json:"cluster_token_supply"`
	Inventory          []decimal.Decimal `json:"inventory"`
	CreateAssetAmounts []decimal.Decimal `json:"create_asset_amounts"`
	AssetPrices        []decimal.Decimal `json:"asset_prices"`
	TargetWeights      []decimal.Decimal `json:"target_weights"`
}

// PenaltyCreateResult is the penalty authority's reported mint outcome.
type PenaltyCreateResult struct {
	CreateTokens decimal.Decimal `json:"create_tokens"`
	Penalty      decimal.Decimal `json:"penalty"`
	Attributes   []Attribute     `json:"attributes"`
}

// SimulateMintResult is the read-only mint preview returned to a caller.
// Transient — never persisted.
type SimulateMintResult struct {
	CreateTokens       decimal.Decimal   `json:"create_tokens"`
	Penalty            decimal.Decimal   `json:"penalty"`
	Attributes         []Attribute       `json:"attributes"`
	CreateAssetAmounts []decimal.Decimal `json:"create_asset_amounts"`
}

// CollectPayload carries the Allocated stage's inputs. The execution
// chain has no persisted discriminator; which payload is pending is the
// only record of where the chain is.
type CollectPayload struct {
	ChainID        string   `json:"chain_id"`
	ClusterAddress string   `json:"cluster_address"`
	Natives        []string `json:"natives"`
	Tokens         []string `json:"tokens"`
	ClusterToken   string   `json:"cluster_token"`
	User           string   `json:"user"`
}

// ForwardPayload carries the Forwarded stage's inputs.
type ForwardPayload struct {
	ChainID      string `json:"chain_id"`
	ClusterToken string `json:"cluster_token"`
	User         string `json:"user"`
}
