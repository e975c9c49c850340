// Package route turns an allocation plan into the deferred effects that
// acquire each basket component. Exactly one effect is emitted per
// component, chosen by asset kind:
//
//   - the stable denom itself: no conversion, the allocated amount is
//     simply kept and collected later;
//   - any other native denom: a chain-native swap of stable into it;
//   - the lending-market receipt token: a stable deposit into the
//     lending market, never a swap;
//   - any other contract token: a swap on the trading pair resolved via
//     the exchange factory.
//
// The router only constructs effects; it never blocks waiting for their
// results. A missing trading pair fails the whole build, so no partial
// plan is ever executed.
package route

import (
	"context"
	"fmt"

	"github.com/nebula-protocol/cluster-mint-engine/internal/alloc"
	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/collab"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

// Plan is the routed form of an allocation: the effects to apply, the
// native denoms and token addresses touched (carried to the collect
// stage), and a diagnostic attribute trail.
type Plan struct {
	Effects    []model.Effect
	Natives    []string
	Tokens     []string
	Attributes []model.Attribute
}

// Build classifies every allocation and emits its effect. The pair lookup
// for non-receipt tokens is the only query Build performs.
func Build(ctx context.Context, ex collab.Exchange, cfg *model.Config, allocs []alloc.Allocation) (*Plan, error) {
	p := &Plan{}

	for _, a := range allocs {
		switch info := a.Info.(type) {
		case asset.Native:
			p.Natives = append(p.Natives, info.Denom)
			if info.Denom == cfg.StableDenom {
				// Kept as-is; the collect stage picks it up from the
				// engine's balance.
				continue
			}
			p.Attributes = append(p.Attributes,
				model.Attribute{Key: "swap_ust_to_native_" + info.Denom, Value: ""},
				model.Attribute{Key: "amount", Value: a.Amount.String()},
			)
			p.Effects = append(p.Effects, model.SwapNative{
				Offer:    asset.Coin{Denom: cfg.StableDenom, Amount: a.Amount},
				AskDenom: info.Denom,
			})

		case asset.Token:
			p.Tokens = append(p.Tokens, info.Contract)
			p.Attributes = append(p.Attributes,
				model.Attribute{Key: "swap_ust_to_token_" + info.Contract, Value: ""},
				model.Attribute{Key: "amount", Value: a.Amount.String()},
			)
			if info.Contract == cfg.ReceiptToken {
				p.Effects = append(p.Effects, model.DepositStable{Amount: a.Amount})
				continue
			}

			pair, err := ex.PairAddress(ctx, cfg.ExchangeFactory, info, asset.Native{Denom: cfg.StableDenom})
			if err != nil {
				return nil, fmt.Errorf("route: pair lookup for %s: %w", info.Contract, err)
			}
			p.Effects = append(p.Effects, model.SwapPair{
				Pair: pair,
				Offer: asset.Asset{
					Info:   asset.Native{Denom: cfg.StableDenom},
					Amount: a.Amount,
				},
			})

		default:
			return nil, fmt.Errorf("%w: %T", asset.ErrUnknownVariant, a.Info)
		}
	}

	return p, nil
}
