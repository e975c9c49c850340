package route

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/alloc"
	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/collab"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

const (
	receiptToken = "terra1receiptreceiptreceiptreceiptreceiptrecept"
	otherToken   = "terra1tokentokentokentokentokentokentokentokent"
	pairAddr     = "terra1pairpairpairpairpairpairpairpairpairpairp"
)

// fakeExchange resolves pairs from a static map; only PairAddress is
// exercised by the router.
type fakeExchange struct {
	pairs map[string]string
}

func (f *fakeExchange) PairAddress(_ context.Context, _ string, a, b asset.Info) (string, error) {
	key := a.ID() + "/" + b.ID()
	pair, ok := f.pairs[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", collab.ErrNoPair, key)
	}
	return pair, nil
}

func (f *fakeExchange) QuoteNative(context.Context, asset.Coin, string) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("not implemented")
}
func (f *fakeExchange) QuotePair(context.Context, string, asset.Asset) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("not implemented")
}
func (f *fakeExchange) SwapNative(context.Context, asset.Coin, string) error {
	return errors.New("router must not execute swaps")
}
func (f *fakeExchange) SwapPair(context.Context, string, asset.Asset) error {
	return errors.New("router must not execute swaps")
}

func testConfig() *model.Config {
	return &model.Config{
		ExchangeFactory: "terra1factoryfactoryfactoryfactoryfactoryfacto",
		ReceiptToken:    receiptToken,
		StableDenom:     "uusd",
	}
}

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestBuild_StableKeptWithoutEffect(t *testing.T) {
	allocs := []alloc.Allocation{
		{Info: asset.Native{Denom: "uusd"}, Amount: d(300)},
	}

	p, err := Build(context.Background(), &fakeExchange{}, testConfig(), allocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Effects) != 0 {
		t.Errorf("stable denom must not emit an effect, got %d", len(p.Effects))
	}
	if len(p.Natives) != 1 || p.Natives[0] != "uusd" {
		t.Errorf("stable denom must still be recorded as touched, got %v", p.Natives)
	}
}

func TestBuild_NativeSwap(t *testing.T) {
	allocs := []alloc.Allocation{
		{Info: asset.Native{Denom: "uluna"}, Amount: d(700)},
	}

	p, err := Build(context.Background(), &fakeExchange{}, testConfig(), allocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Effects) != 1 {
		t.Fatalf("expected exactly one effect, got %d", len(p.Effects))
	}
	swap, ok := p.Effects[0].(model.SwapNative)
	if !ok {
		t.Fatalf("expected SwapNative, got %T", p.Effects[0])
	}
	if swap.Offer.Denom != "uusd" || !swap.Offer.Amount.Equal(d(700)) || swap.AskDenom != "uluna" {
		t.Errorf("unexpected swap effect: %+v", swap)
	}
}

func TestBuild_ReceiptTokenDepositsNeverSwaps(t *testing.T) {
	allocs := []alloc.Allocation{
		{Info: asset.Token{Contract: receiptToken}, Amount: d(500)},
	}

	// No pairs registered: a swap attempt would fail, a deposit must not.
	p, err := Build(context.Background(), &fakeExchange{}, testConfig(), allocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Effects) != 1 {
		t.Fatalf("expected exactly one effect, got %d", len(p.Effects))
	}
	dep, ok := p.Effects[0].(model.DepositStable)
	if !ok {
		t.Fatalf("expected DepositStable for receipt token, got %T", p.Effects[0])
	}
	if !dep.Amount.Equal(d(500)) {
		t.Errorf("expected deposit of 500, got %s", dep.Amount)
	}
	if len(p.Tokens) != 1 || p.Tokens[0] != receiptToken {
		t.Errorf("receipt token must be recorded as touched, got %v", p.Tokens)
	}
}

func TestBuild_TokenSwapViaPairLookup(t *testing.T) {
	ex := &fakeExchange{pairs: map[string]string{
		otherToken + "/uusd": pairAddr,
	}}
	allocs := []alloc.Allocation{
		{Info: asset.Token{Contract: otherToken}, Amount: d(250)},
	}

	p, err := Build(context.Background(), ex, testConfig(), allocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	swap, ok := p.Effects[0].(model.SwapPair)
	if !ok {
		t.Fatalf("expected SwapPair, got %T", p.Effects[0])
	}
	if swap.Pair != pairAddr {
		t.Errorf("expected pair %s, got %s", pairAddr, swap.Pair)
	}
	if _, isNative := swap.Offer.Info.(asset.Native); !isNative {
		t.Errorf("offer side must be the stable native, got %T", swap.Offer.Info)
	}
	if !swap.Offer.Amount.Equal(d(250)) {
		t.Errorf("expected offer of 250, got %s", swap.Offer.Amount)
	}
}

func TestBuild_MissingPairFailsWholePlan(t *testing.T) {
	allocs := []alloc.Allocation{
		{Info: asset.Native{Denom: "uluna"}, Amount: d(100)},
		{Info: asset.Token{Contract: otherToken}, Amount: d(100)},
	}

	_, err := Build(context.Background(), &fakeExchange{}, testConfig(), allocs)
	if !errors.Is(err, collab.ErrNoPair) {
		t.Fatalf("expected ErrNoPair, got %v", err)
	}
}

func TestBuild_OneEffectPerConvertedComponent(t *testing.T) {
	ex := &fakeExchange{pairs: map[string]string{
		otherToken + "/uusd": pairAddr,
	}}
	allocs := []alloc.Allocation{
		{Info: asset.Native{Denom: "uusd"}, Amount: d(100)},
		{Info: asset.Native{Denom: "uluna"}, Amount: d(100)},
		{Info: asset.Token{Contract: receiptToken}, Amount: d(100)},
		{Info: asset.Token{Contract: otherToken}, Amount: d(100)},
	}

	p, err := Build(context.Background(), ex, testConfig(), allocs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Stable is kept; the other three each emit exactly one effect.
	if len(p.Effects) != 3 {
		t.Errorf("expected 3 effects, got %d", len(p.Effects))
	}
	if len(p.Natives) != 2 || len(p.Tokens) != 2 {
		t.Errorf("expected 2 natives and 2 tokens touched, got %v / %v", p.Natives, p.Tokens)
	}
}
