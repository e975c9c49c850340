package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/chain"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
	"github.com/nebula-protocol/cluster-mint-engine/internal/store"
)

const (
	engineAddr   = "terra1engineengineengineengineengineengineengin"
	userAddr     = "terra1useruseruseruseruseruseruseruseruserusera"
	clusterAddr  = "terra1clusterclusterclusterclusterclustercluste"
	clusterToken = "terra1ctokenctokenctokenctokenctokenctokenctoke"
	tokenAddr    = "terra1tokentokentokentokentokentokentokentokent"
	pairAddr     = "terra1pairpairpairpairpairpairpairpairpairpairp"
	receiptAddr  = "terra1receiptreceiptreceiptreceiptreceiptrecept"
)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// quoteWorld answers queries and settles effects with the same rates, so
// live swap returns always equal the quotes the simulator saw.
type quoteWorld struct {
	state       *model.ClusterState
	lunaRate    decimal.Decimal // uluna per uusd
	tokenRate   decimal.Decimal // token per uusd on the pair
	receiptRate decimal.Decimal // uusd per receipt token (oracle)

	native map[string]decimal.Decimal // engine denom balances
	tokens map[string]decimal.Decimal // engine token balances
	user   map[string]decimal.Decimal // user token balances
}

func newQuoteWorld(state *model.ClusterState) *quoteWorld {
	return &quoteWorld{
		state:       state,
		lunaRate:    decimal.NewFromFloat(0.9),
		tokenRate:   decimal.NewFromFloat(3.7),
		receiptRate: decimal.NewFromFloat(1.25),
		native:      map[string]decimal.Decimal{},
		tokens:      map[string]decimal.Decimal{},
		user:        map[string]decimal.Decimal{},
	}
}

func (w *quoteWorld) State(_ context.Context, _ string) (*model.ClusterState, error) {
	st := *w.state
	return &st, nil
}

func (w *quoteWorld) Price(_ context.Context, _, _ string, _ *uint64) (*model.PriceInfo, error) {
	return &model.PriceInfo{Rate: w.receiptRate, LastUpdated: 1}, nil
}

// PreviewCreate mints one cluster token per contributed unit.
func (w *quoteWorld) PreviewCreate(_ context.Context, _ string, q *model.PenaltyCreateQuery) (*model.PenaltyCreateResult, error) {
	total := decimal.Zero
	for _, a := range q.CreateAssetAmounts {
		total = total.Add(a)
	}
	return &model.PenaltyCreateResult{
		CreateTokens: total,
		Penalty:      decimal.Zero,
		Attributes:   []model.Attribute{{Key: "mint_to_sender", Value: total.String()}},
	}, nil
}

func (w *quoteWorld) PairAddress(_ context.Context, _ string, a, _ asset.Info) (string, error) {
	if a.ID() == tokenAddr {
		return pairAddr, nil
	}
	return "", errors.New("no pair")
}

func (w *quoteWorld) QuoteNative(_ context.Context, offer asset.Coin, _ string) (decimal.Decimal, error) {
	return offer.Amount.Mul(w.lunaRate).Floor(), nil
}

func (w *quoteWorld) QuotePair(_ context.Context, _ string, offer asset.Asset) (decimal.Decimal, error) {
	return offer.Amount.Mul(w.tokenRate).Floor(), nil
}

func (w *quoteWorld) SwapNative(ctx context.Context, offer asset.Coin, askDenom string) error {
	out, _ := w.QuoteNative(ctx, offer, askDenom)
	w.native[offer.Denom] = w.native[offer.Denom].Sub(offer.Amount)
	w.native[askDenom] = w.native[askDenom].Add(out)
	return nil
}

func (w *quoteWorld) SwapPair(ctx context.Context, pair string, offer asset.Asset) error {
	out, _ := w.QuotePair(ctx, pair, offer)
	w.native[offer.Info.ID()] = w.native[offer.Info.ID()].Sub(offer.Amount)
	w.tokens[tokenAddr] = w.tokens[tokenAddr].Add(out)
	return nil
}

func (w *quoteWorld) DepositStable(_ context.Context, _ string, amount decimal.Decimal) error {
	w.native["uusd"] = w.native["uusd"].Sub(amount)
	frac := decimal.NewFromInt(1_000_000_000)
	out, err := asset.FloorMulDiv(amount, frac, w.receiptRate.Mul(frac).Floor())
	if err != nil {
		return err
	}
	w.tokens[receiptAddr] = w.tokens[receiptAddr].Add(out)
	return nil
}

func (w *quoteWorld) Create(ctx context.Context, _, _ string, assets []asset.Asset, funds []asset.Coin) error {
	for _, f := range funds {
		w.native[f.Denom] = w.native[f.Denom].Sub(f.Amount)
	}
	amounts := make([]decimal.Decimal, 0, len(assets))
	for _, a := range assets {
		amounts = append(amounts, a.Amount)
		if token, ok := a.Info.(asset.Token); ok {
			w.tokens[token.Contract] = w.tokens[token.Contract].Sub(a.Amount)
		}
	}
	minted, _ := w.PreviewCreate(ctx, "", &model.PenaltyCreateQuery{CreateAssetAmounts: amounts})
	w.tokens[clusterToken] = w.tokens[clusterToken].Add(minted.CreateTokens)
	return nil
}

func (w *quoteWorld) NativeBalance(_ context.Context, _, denom string) (decimal.Decimal, error) {
	return w.native[denom], nil
}

func (w *quoteWorld) TokenBalance(_ context.Context, token, account string) (decimal.Decimal, error) {
	if account == userAddr {
		return w.user[token], nil
	}
	return w.tokens[token], nil
}

func (w *quoteWorld) IncreaseAllowance(_ context.Context, _, _ string, _ decimal.Decimal) error {
	return nil
}

func (w *quoteWorld) TransferToken(_ context.Context, token, recipient string, amount decimal.Decimal) error {
	w.tokens[token] = w.tokens[token].Sub(amount)
	if recipient == userAddr {
		w.user[token] = w.user[token].Add(amount)
	}
	return nil
}

func (w *quoteWorld) BlockHeight(_ context.Context) (uint64, error) { return 42, nil }

func testState() *model.ClusterState {
	return &model.ClusterState{
		OutstandingBalanceTokens: d(100000),
		Prices:                   []decimal.Decimal{d(1), d(6), d(4), d(1)},
		Inventory:                []decimal.Decimal{d(1000), d(1000), d(1000), d(1000)},
		PenaltyAddress:           "terra1penaltypenaltypenaltypenaltypenaltypenalt",
		ClusterToken:             clusterToken,
		Target: []asset.Asset{
			{Info: asset.Native{Denom: "uusd"}, Amount: d(2)},
			{Info: asset.Native{Denom: "uluna"}, Amount: d(3)},
			{Info: asset.Token{Contract: tokenAddr}, Amount: d(4)},
			{Info: asset.Token{Contract: receiptAddr}, Amount: d(1)},
		},
		ClusterContract: clusterAddr,
		Active:          true,
	}
}

func testConfig() *model.Config {
	return &model.Config{
		IncentiveContract: "terra1incentincentincentincentincentincentincen",
		ExchangeFactory:   "terra1factoryfactoryfactoryfactoryfactoryfacto",
		ReceiptToken:      receiptAddr,
		LendingMarket:     "terra1lendinglendinglendinglendinglendinglendin",
		PriceOracle:       "terra1oracleoracleoracleoracleoracleoracleoracl",
		Owner:             userAddr,
		StableDenom:       "uusd",
	}
}

func configured(t *testing.T) store.ConfigStore {
	t.Helper()
	cfgs := store.NewMemoryStore()
	if err := cfgs.Save(context.Background(), testConfig()); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return cfgs
}

func TestSimulateMint_ExpectedContributions(t *testing.T) {
	w := newQuoteWorld(testState())
	sim := New(configured(t), w, w, w, w, w)

	res, err := sim.SimulateMint(context.Background(), clusterAddr, d(10000))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// Weights 2:3:4:1 over 10000 → 2000, 3000, 4000, 1000.
	want := []decimal.Decimal{
		d(2000),                              // stable kept as-is
		d(3000).Mul(w.lunaRate).Floor(),      // native quote
		d(4000).Mul(w.tokenRate).Floor(),     // pair quote
		d(800),                               // floor(1000*1e9/floor(1.25*1e9))
	}
	if len(res.CreateAssetAmounts) != len(want) {
		t.Fatalf("expected %d amounts, got %d", len(want), len(res.CreateAssetAmounts))
	}
	for i, amt := range res.CreateAssetAmounts {
		if !amt.Equal(want[i]) {
			t.Errorf("component %d: expected %s, got %s", i, want[i], amt)
		}
	}

	// The penalty stub mints one token per contributed unit.
	total := decimal.Zero
	for _, a := range want {
		total = total.Add(a)
	}
	if !res.CreateTokens.Equal(total) {
		t.Errorf("expected %s create tokens, got %s", total, res.CreateTokens)
	}
	if !res.Penalty.IsZero() {
		t.Errorf("expected zero penalty, got %s", res.Penalty)
	}
}

// Preview and live execution agree component-for-component when live
// swaps realize the quoted prices.
func TestSimulateMint_MatchesLiveChain(t *testing.T) {
	ctx := context.Background()
	input := d(10000)

	w := newQuoteWorld(testState())
	cfgs := configured(t)

	sim := New(cfgs, w, w, w, w, w)
	preview, err := sim.SimulateMint(ctx, clusterAddr, input)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// Fund the engine and run the real chain against the same world.
	w.native["uusd"] = input
	sched := chain.NewMemoryScheduler()
	eng := chain.NewEngine(cfgs, engineAddr, chain.Deps{
		Cluster:    w,
		Exchange:   w,
		Lending:    w,
		Incentives: w,
		Ledger:     w,
	}, sched, nil)

	if _, err := eng.Mint(ctx, clusterAddr, userAddr); err != nil {
		t.Fatalf("mint: %v", err)
	}
	for i := 0; i < 2; i++ {
		msg, err := sched.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if err := eng.Dispatch(ctx, msg); err != nil {
			t.Fatalf("dispatch %v: %v", msg.Stage, err)
		}
	}

	// The user's minted balance equals the previewed create_tokens.
	if got := w.user[clusterToken]; !got.Equal(preview.CreateTokens) {
		t.Errorf("live mint %s != previewed %s", got, preview.CreateTokens)
	}
}

func TestSimulateMint_InactiveCluster(t *testing.T) {
	state := testState()
	state.Active = false
	w := newQuoteWorld(state)
	sim := New(configured(t), w, w, w, w, w)

	_, err := sim.SimulateMint(context.Background(), clusterAddr, d(100))
	if !errors.Is(err, chain.ErrClusterInactive) {
		t.Fatalf("expected ErrClusterInactive, got %v", err)
	}
}

func TestReceiptFromStable_FloorsAtOracleGranularity(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   string
		want   int64
	}{
		{"rate one", 1000, "1", 1000},
		{"rate above one", 1000, "1.25", 800},
		{"truncates result", 1000, "3", 333},
		{"sub-unit rate", 100, "0.5", 200},
		{"rate truncated to 1e9", 1000, "1.000000001", 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			if err != nil {
				t.Fatalf("bad rate: %v", err)
			}
			got, err := receiptFromStable(decimal.NewFromInt(tt.amount), rate)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Errorf("expected %d, got %s", tt.want, got)
			}
		})
	}
}

func TestReceiptFromStable_ZeroRate(t *testing.T) {
	_, err := receiptFromStable(d(1000), decimal.Zero)
	if !errors.Is(err, asset.ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}
