// Package sim implements the read-only mint preview. It reproduces the
// allocator's arithmetic exactly — the same truncating division, through
// the same helper — and substitutes every effect the live chain would
// issue with a same-shaped query: an exchange quote for each swap, and
// the oracle rate for the lending deposit. Nothing is mutated and
// nothing is scheduled.
package sim

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/alloc"
	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/chain"
	"github.com/nebula-protocol/cluster-mint-engine/internal/collab"
	"github.com/nebula-protocol/cluster-mint-engine/internal/metrics"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
	"github.com/nebula-protocol/cluster-mint-engine/internal/store"
)

// decimalFractional is the fixed-point granularity of the oracle's
// receipt-token rate: 1e9.
var decimalFractional = decimal.NewFromInt(1_000_000_000)

// Simulator previews a mint against queries only.
type Simulator struct {
	cfgs     store.ConfigStore
	cluster  collab.Cluster
	oracle   collab.Oracle
	penalty  collab.Penalty
	exchange collab.Exchange
	ledger   collab.Ledger
}

// New creates a simulator over the same collaborators the live chain
// uses. The ledger is only consulted for the current block height.
func New(cfgs store.ConfigStore, cluster collab.Cluster, oracle collab.Oracle, penalty collab.Penalty, exchange collab.Exchange, ledger collab.Ledger) *Simulator {
	return &Simulator{
		cfgs:     cfgs,
		cluster:  cluster,
		oracle:   oracle,
		penalty:  penalty,
		exchange: exchange,
		ledger:   ledger,
	}
}

// SimulateMint computes the expected contributed amount per component
// for a stable input of ustAmount, then asks the penalty authority what
// it would mint against the current (pre-mint) inventory and prices.
func (s *Simulator) SimulateMint(ctx context.Context, clusterAddr string, ustAmount decimal.Decimal) (*model.SimulateMintResult, error) {
	cfg, err := s.cfgs.Load(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.cluster.State(ctx, clusterAddr)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, chain.ErrClusterInactive
	}

	allocs, err := alloc.Plan(st.Target, ustAmount)
	if err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, 0, len(allocs))
	for _, a := range allocs {
		amount, err := s.expectedContribution(ctx, cfg, a)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}

	height, err := s.ledger.BlockHeight(ctx)
	if err != nil {
		return nil, err
	}

	weights := make([]decimal.Decimal, 0, len(st.Target))
	for _, t := range st.Target {
		weights = append(weights, t.Amount)
	}

	pen, err := s.penalty.PreviewCreate(ctx, st.PenaltyAddress, &model.PenaltyCreateQuery{
		BlockHeight:        height,
		ClusterTokenSupply: st.OutstandingBalanceTokens,
		Inventory:          st.Inventory,
		CreateAssetAmounts: amounts,
		AssetPrices:        st.Prices,
		TargetWeights:      weights,
	})
	if err != nil {
		return nil, err
	}

	metrics.SimulateQueries.Inc()

	return &model.SimulateMintResult{
		CreateTokens:       pen.CreateTokens,
		Penalty:            pen.Penalty,
		Attributes:         pen.Attributes,
		CreateAssetAmounts: amounts,
	}, nil
}

// expectedContribution mirrors the router's classification, swapping
// each effect for its read-only counterpart.
func (s *Simulator) expectedContribution(ctx context.Context, cfg *model.Config, a alloc.Allocation) (decimal.Decimal, error) {
	switch info := a.Info.(type) {
	case asset.Native:
		if info.Denom == cfg.StableDenom {
			return a.Amount, nil
		}
		return s.exchange.QuoteNative(ctx, asset.Coin{Denom: cfg.StableDenom, Amount: a.Amount}, info.Denom)

	case asset.Token:
		if info.Contract != cfg.ReceiptToken {
			pair, err := s.exchange.PairAddress(ctx, cfg.ExchangeFactory, info, asset.Native{Denom: cfg.StableDenom})
			if err != nil {
				return decimal.Decimal{}, fmt.Errorf("sim: pair lookup for %s: %w", info.Contract, err)
			}
			return s.exchange.QuotePair(ctx, pair, asset.Asset{
				Info:   asset.Native{Denom: cfg.StableDenom},
				Amount: a.Amount,
			})
		}

		price, err := s.oracle.Price(ctx, cfg.PriceOracle, info.Contract, nil)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return receiptFromStable(a.Amount, price.Rate)

	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %T", asset.ErrUnknownVariant, a.Info)
	}
}

// receiptFromStable converts a stable amount into receipt tokens at the
// oracle rate:
//
//	floor(amount * 1e9 / floor(rate * 1e9))
//
// The rate is first truncated to the oracle's 1e9 fixed-point
// granularity so the result matches the lending market's own issuance
// arithmetic.
func receiptFromStable(amount, rate decimal.Decimal) (decimal.Decimal, error) {
	den := rate.Mul(decimalFractional).Floor()
	return asset.FloorMulDiv(amount, decimalFractional, den)
}
