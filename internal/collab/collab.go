// Package collab defines the engine's boundaries to its external
// collaborators — the cluster/basket authority, the price oracle, the
// penalty authority, the exchange, the lending market, the mint/incentive
// authority, and the ledger holding native and token balances — and
// provides HTTP JSON implementations of each.
//
// Every method is a single round-trip request/response. The engine only
// consumes the collaborators' declared contracts; the pricing oracle, the
// penalty formula, and the exchange's swap curve live on the other side
// of these interfaces.
package collab

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

var (
	// ErrNoPair is returned when the exchange factory knows no trading
	// pair for a requested asset combination.
	ErrNoPair = errors.New("collab: no trading pair registered")

	// ErrBadResponse is returned when a collaborator answers with
	// malformed data.
	ErrBadResponse = errors.New("collab: malformed collaborator response")
)

// Cluster reads the basket authority's state for one cluster.
type Cluster interface {
	// State fetches the cluster state fresh; callers never cache it
	// across calls.
	State(ctx context.Context, clusterAddr string) (*model.ClusterState, error)
}

// Oracle reads spot prices. maxAge optionally bounds the price age in
// seconds; nil accepts any age.
type Oracle interface {
	Price(ctx context.Context, oracleAddr, assetToken string, maxAge *uint64) (*model.PriceInfo, error)
}

// Penalty computes the actual mint amount for a proposed contribution
// without side effects.
type Penalty interface {
	PreviewCreate(ctx context.Context, penaltyAddr string, q *model.PenaltyCreateQuery) (*model.PenaltyCreateResult, error)
}

// Exchange swaps assets and answers read-only quotes. PairAddress and the
// two quote methods are pure queries; SwapNative and SwapPair settle
// against the engine's ledger account.
type Exchange interface {
	// PairAddress resolves the trading-pair contract for two asset
	// kinds via the factory, or ErrNoPair.
	PairAddress(ctx context.Context, factory string, a, b asset.Info) (string, error)

	// QuoteNative returns the amount the chain-native swap of offer
	// into askDenom would yield right now.
	QuoteNative(ctx context.Context, offer asset.Coin, askDenom string) (decimal.Decimal, error)

	// QuotePair returns the amount a swap of offer on the given pair
	// would yield right now.
	QuotePair(ctx context.Context, pair string, offer asset.Asset) (decimal.Decimal, error)

	// SwapNative executes a chain-native swap of offer into askDenom.
	SwapNative(ctx context.Context, offer asset.Coin, askDenom string) error

	// SwapPair executes a swap of offer on the given pair.
	SwapPair(ctx context.Context, pair string, offer asset.Asset) error
}

// Lending accepts stable deposits; the market issues the receipt token to
// the depositor.
type Lending interface {
	DepositStable(ctx context.Context, market string, amount decimal.Decimal) error
}

// Incentives is the mint authority. Create pulls the contributed assets
// (natives as attached funds, tokens via allowance) and mints cluster
// tokens to the caller.
type Incentives interface {
	Create(ctx context.Context, incentiveAddr, clusterContract string, assets []asset.Asset, funds []asset.Coin) error
}

// Ledger reads balances and moves tokens on behalf of the engine's own
// account. BlockHeight reports the current chain height for penalty
// queries.
type Ledger interface {
	NativeBalance(ctx context.Context, account, denom string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, token, account string) (decimal.Decimal, error)
	IncreaseAllowance(ctx context.Context, token, spender string, amount decimal.Decimal) error
	TransferToken(ctx context.Context, token, recipient string, amount decimal.Decimal) error
	BlockHeight(ctx context.Context) (uint64, error)
}
