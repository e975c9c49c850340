package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nebula-protocol/cluster-mint-engine/internal/alloc"
	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/collab"
	"github.com/nebula-protocol/cluster-mint-engine/internal/metrics"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
	"github.com/nebula-protocol/cluster-mint-engine/internal/route"
	"github.com/nebula-protocol/cluster-mint-engine/internal/store"
)

// ErrClusterInactive is returned when a mint targets a decommissioned
// cluster.
var ErrClusterInactive = errors.New("chain: cluster is not active")

// Event is a progress notification emitted after each stage commits or
// fails.
type Event struct {
	ChainID string            `json:"chain_id"`
	Stage   string            `json:"stage"`
	Cluster string            `json:"cluster,omitempty"`
	User    string            `json:"user,omitempty"`
	Error   string            `json:"error,omitempty"`
	Attrs   []model.Attribute `json:"attributes,omitempty"`
}

// Deps bundles the external collaborators the engine calls into.
type Deps struct {
	Cluster    collab.Cluster
	Exchange   collab.Exchange
	Lending    collab.Lending
	Incentives collab.Incentives
	Ledger     collab.Ledger
}

// Engine drives the execution chain. Each stage loads the configuration
// singleton fresh, plans its effects from read-only queries, applies the
// effects in emission order, and schedules the next stage's payload.
// There is no cross-request mutual exclusion: two concurrent mints
// against the same cluster may interleave their stages and observe
// overlapping balances.
type Engine struct {
	cfgs   store.ConfigStore
	self   string
	deps   Deps
	sched  Scheduler
	notify func(Event) // optional progress callback
}

// NewEngine creates an engine. self is the engine's own ledger account;
// it doubles as the only identity allowed to invoke internal stages.
// Pass nil for notify if progress events are not needed.
func NewEngine(cfgs store.ConfigStore, self string, deps Deps, sched Scheduler, notify func(Event)) *Engine {
	return &Engine{
		cfgs:   cfgs,
		self:   self,
		deps:   deps,
		sched:  sched,
		notify: notify,
	}
}

// Self returns the engine's own identity.
func (e *Engine) Self() string { return e.self }

// Mint runs the Requested stage: read cluster state and the engine's
// stable balance, allocate, route, apply the swap/deposit effects, and
// schedule the collect stage. Returns the chain ID correlating all three
// stages. This stage issues no allowance or transfer logic itself.
func (e *Engine) Mint(ctx context.Context, clusterAddr, user string) (string, error) {
	start := time.Now()

	cfg, err := e.cfgs.Load(ctx)
	if err != nil {
		return "", err
	}

	st, err := e.deps.Cluster.State(ctx, clusterAddr)
	if err != nil {
		return "", e.fail("requested", "", clusterAddr, user, err)
	}
	if !st.Active {
		return "", e.fail("requested", "", clusterAddr, user, ErrClusterInactive)
	}

	// The mint is funded by whatever stable balance the engine holds.
	ust, err := e.deps.Ledger.NativeBalance(ctx, e.self, cfg.StableDenom)
	if err != nil {
		return "", e.fail("requested", "", clusterAddr, user, err)
	}

	allocs, err := alloc.Plan(st.Target, ust)
	if err != nil {
		return "", e.fail("requested", "", clusterAddr, user, err)
	}

	plan, err := route.Build(ctx, e.deps.Exchange, cfg, allocs)
	if err != nil {
		return "", e.fail("requested", "", clusterAddr, user, err)
	}

	chainID := uuid.New().String()
	if err := e.apply(ctx, cfg, plan.Effects); err != nil {
		metrics.StageTotal.WithLabelValues("requested", "error").Inc()
		return "", e.fail("requested", chainID, clusterAddr, user, err)
	}

	payload := model.CollectPayload{
		ChainID:        chainID,
		ClusterAddress: clusterAddr,
		Natives:        plan.Natives,
		Tokens:         plan.Tokens,
		ClusterToken:   st.ClusterToken,
		User:           user,
	}
	if err := e.sched.Enqueue(ctx, StageMessage{Stage: StageCollect, Collect: &payload}); err != nil {
		metrics.StageTotal.WithLabelValues("requested", "error").Inc()
		return "", e.fail("requested", chainID, clusterAddr, user, err)
	}

	metrics.MintChainsStarted.Inc()
	metrics.StageTotal.WithLabelValues("requested", "ok").Inc()
	metrics.StageLatency.WithLabelValues("requested").Observe(time.Since(start).Seconds())

	slog.Info("mint requested",
		"chain_id", chainID,
		"cluster", clusterAddr,
		"user", user,
		"stable_in", ust.String(),
		"effects", len(plan.Effects),
	)
	e.emit(Event{ChainID: chainID, Stage: "requested", Cluster: clusterAddr, User: user, Attrs: plan.Attributes})

	return chainID, nil
}

// Collect runs the Allocated stage: re-read the post-swap balances of
// every touched denom and token, authorize the mint authority to pull
// the token balances, call its create operation with the full
// contributed-asset list, and schedule the forward stage. The create
// call is applied before the forward message is enqueued, so the forward
// stage observes the post-mint cluster-token balance.
func (e *Engine) Collect(ctx context.Context, p *model.CollectPayload) error {
	start := time.Now()

	cfg, err := e.cfgs.Load(ctx)
	if err != nil {
		return err
	}

	effects, next, attrs, err := e.planCollect(ctx, cfg, p)
	if err != nil {
		metrics.StageTotal.WithLabelValues("allocated", "error").Inc()
		return e.fail("allocated", p.ChainID, p.ClusterAddress, p.User, err)
	}

	if err := e.apply(ctx, cfg, effects); err != nil {
		metrics.StageTotal.WithLabelValues("allocated", "error").Inc()
		return e.fail("allocated", p.ChainID, p.ClusterAddress, p.User, err)
	}

	if err := e.sched.Enqueue(ctx, StageMessage{Stage: StageForward, Forward: next}); err != nil {
		metrics.StageTotal.WithLabelValues("allocated", "error").Inc()
		return e.fail("allocated", p.ChainID, p.ClusterAddress, p.User, err)
	}

	metrics.StageTotal.WithLabelValues("allocated", "ok").Inc()
	metrics.StageLatency.WithLabelValues("allocated").Observe(time.Since(start).Seconds())

	slog.Info("contributions collected",
		"chain_id", p.ChainID,
		"cluster", p.ClusterAddress,
		"natives", len(p.Natives),
		"tokens", len(p.Tokens),
	)
	e.emit(Event{ChainID: p.ChainID, Stage: "allocated", Cluster: p.ClusterAddress, User: p.User, Attrs: attrs})

	return nil
}

// planCollect builds the Allocated stage's effects and the next payload
// from read-only balance queries. Pure apart from those queries, so
// tests assert on the returned effects directly.
func (e *Engine) planCollect(ctx context.Context, cfg *model.Config, p *model.CollectPayload) ([]model.Effect, *model.ForwardPayload, []model.Attribute, error) {
	var (
		effects []model.Effect
		assets  []asset.Asset
		funds   []asset.Coin
		attrs   []model.Attribute
	)

	for _, denom := range p.Natives {
		bal, err := e.deps.Ledger.NativeBalance(ctx, e.self, denom)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("chain: balance of %s: %w", denom, err)
		}
		funds = append(funds, asset.Coin{Denom: denom, Amount: bal})
		assets = append(assets, asset.Asset{Info: asset.Native{Denom: denom}, Amount: bal})
		attrs = append(attrs,
			model.Attribute{Key: "denom", Value: denom},
			model.Attribute{Key: "balance", Value: bal.String()},
		)
	}

	for _, token := range p.Tokens {
		bal, err := e.deps.Ledger.TokenBalance(ctx, token, e.self)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("chain: balance of %s: %w", token, err)
		}
		effects = append(effects, model.IncreaseAllowance{
			Token:   token,
			Spender: cfg.IncentiveContract,
			Amount:  bal,
		})
		assets = append(assets, asset.Asset{Info: asset.Token{Contract: token}, Amount: bal})
		attrs = append(attrs,
			model.Attribute{Key: "token", Value: token},
			model.Attribute{Key: "balance", Value: bal.String()},
		)
	}

	sort.Slice(funds, func(i, j int) bool { return funds[i].Denom < funds[j].Denom })

	effects = append(effects, model.IncentivesCreate{
		ClusterContract: p.ClusterAddress,
		Assets:          assets,
		Funds:           funds,
	})

	next := &model.ForwardPayload{
		ChainID:      p.ChainID,
		ClusterToken: p.ClusterToken,
		User:         p.User,
	}
	return effects, next, attrs, nil
}

// Forward runs the Forwarded stage: send the engine's entire cluster-token
// balance — now increased by the mint authority's completed transfer — to
// the recipient. Terminal; nothing further is scheduled, and the engine
// retains no cluster-token balance afterwards.
func (e *Engine) Forward(ctx context.Context, p *model.ForwardPayload) error {
	start := time.Now()

	cfg, err := e.cfgs.Load(ctx)
	if err != nil {
		return err
	}

	bal, err := e.deps.Ledger.TokenBalance(ctx, p.ClusterToken, e.self)
	if err != nil {
		metrics.StageTotal.WithLabelValues("forwarded", "error").Inc()
		return e.fail("forwarded", p.ChainID, "", p.User, err)
	}

	effects := []model.Effect{model.TransferToken{
		Token:     p.ClusterToken,
		Recipient: p.User,
		Amount:    bal,
	}}
	if err := e.apply(ctx, cfg, effects); err != nil {
		metrics.StageTotal.WithLabelValues("forwarded", "error").Inc()
		return e.fail("forwarded", p.ChainID, "", p.User, err)
	}

	metrics.StageTotal.WithLabelValues("forwarded", "ok").Inc()
	metrics.StageLatency.WithLabelValues("forwarded").Observe(time.Since(start).Seconds())

	slog.Info("cluster tokens delivered",
		"chain_id", p.ChainID,
		"user", p.User,
		"amount", bal.String(),
	)
	e.emit(Event{ChainID: p.ChainID, Stage: "forwarded", User: p.User})

	return nil
}

// Dispatch routes a dequeued stage message to its handler.
func (e *Engine) Dispatch(ctx context.Context, msg *StageMessage) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	switch msg.Stage {
	case StageCollect:
		return e.Collect(ctx, msg.Collect)
	default:
		return e.Forward(ctx, msg.Forward)
	}
}

// apply executes effects strictly in emission order. The first failure
// aborts the step; effects already settled by collaborators stay settled.
func (e *Engine) apply(ctx context.Context, cfg *model.Config, effects []model.Effect) error {
	for _, ef := range effects {
		var err error
		switch ef := ef.(type) {
		case model.SwapNative:
			err = e.deps.Exchange.SwapNative(ctx, ef.Offer, ef.AskDenom)
		case model.SwapPair:
			err = e.deps.Exchange.SwapPair(ctx, ef.Pair, ef.Offer)
		case model.DepositStable:
			err = e.deps.Lending.DepositStable(ctx, cfg.LendingMarket, ef.Amount)
		case model.IncreaseAllowance:
			err = e.deps.Ledger.IncreaseAllowance(ctx, ef.Token, ef.Spender, ef.Amount)
		case model.IncentivesCreate:
			err = e.deps.Incentives.Create(ctx, cfg.IncentiveContract, ef.ClusterContract, ef.Assets, ef.Funds)
		case model.TransferToken:
			err = e.deps.Ledger.TransferToken(ctx, ef.Token, ef.Recipient, ef.Amount)
		default:
			err = fmt.Errorf("chain: unknown effect %T", ef)
		}
		if err != nil {
			return fmt.Errorf("chain: apply %T: %w", ef, err)
		}
	}
	return nil
}

func (e *Engine) emit(ev Event) {
	if e.notify != nil {
		e.notify(ev)
	}
}

// fail logs and broadcasts a stage failure, then passes the error on
// unchanged. Nothing is retried; resubmitting the mint request is the
// caller's responsibility.
func (e *Engine) fail(stage, chainID, cluster, user string, err error) error {
	slog.Error("stage failed",
		"stage", stage,
		"chain_id", chainID,
		"cluster", cluster,
		"user", user,
		"err", err,
	)
	e.emit(Event{ChainID: chainID, Stage: "failed", Cluster: cluster, User: user, Error: err.Error()})
	return err
}
