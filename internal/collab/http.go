package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

// httpClient is the shared transport for all collaborator clients.
type httpClient struct {
	base string
	hc   *http.Client
}

func newHTTPClient(base string) httpClient {
	return httpClient{
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// post performs one JSON round-trip. Non-2xx responses are decoded as
// {"error": "..."} and surfaced as collaborator errors.
func (c httpClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("collab: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNoPair, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("collab: %s: %s", path, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadResponse, path, err)
	}
	return nil
}

// --- Cluster ---

// ClusterClient queries the basket authority over HTTP.
type ClusterClient struct{ httpClient }

func NewClusterClient(base string) *ClusterClient {
	return &ClusterClient{newHTTPClient(base)}
}

func (c *ClusterClient) State(ctx context.Context, clusterAddr string) (*model.ClusterState, error) {
	req := struct {
		ClusterAddress string `json:"cluster_address"`
	}{clusterAddr}

	var st model.ClusterState
	if err := c.post(ctx, "/query/cluster_state", req, &st); err != nil {
		return nil, err
	}
	if len(st.Target) == 0 {
		return nil, fmt.Errorf("%w: cluster %s reported empty target", ErrBadResponse, clusterAddr)
	}
	return &st, nil
}

// --- Oracle ---

// OracleClient queries the price authority over HTTP.
type OracleClient struct{ httpClient }

func NewOracleClient(base string) *OracleClient {
	return &OracleClient{newHTTPClient(base)}
}

func (c *OracleClient) Price(ctx context.Context, oracleAddr, assetToken string, maxAge *uint64) (*model.PriceInfo, error) {
	req := struct {
		Contract   string  `json:"contract"`
		AssetToken string  `json:"asset_token"`
		Timeframe  *uint64 `json:"timeframe,omitempty"`
	}{oracleAddr, assetToken, maxAge}

	var p model.PriceInfo
	if err := c.post(ctx, "/query/price", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Penalty ---

// PenaltyClient queries the penalty authority over HTTP.
type PenaltyClient struct{ httpClient }

func NewPenaltyClient(base string) *PenaltyClient {
	return &PenaltyClient{newHTTPClient(base)}
}

func (c *PenaltyClient) PreviewCreate(ctx context.Context, penaltyAddr string, q *model.PenaltyCreateQuery) (*model.PenaltyCreateResult, error) {
	req := struct {
		Contract string `json:"contract"`
		*model.PenaltyCreateQuery
	}{penaltyAddr, q}

	var res model.PenaltyCreateResult
	if err := c.post(ctx, "/query/penalty_create", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Exchange ---

// ExchangeClient talks to the exchange: pair lookups and quotes are
// queries, swaps settle against the engine's ledger account.
type ExchangeClient struct{ httpClient }

func NewExchangeClient(base string) *ExchangeClient {
	return &ExchangeClient{newHTTPClient(base)}
}

func (c *ExchangeClient) PairAddress(ctx context.Context, factory string, a, b asset.Info) (string, error) {
	req := struct {
		Factory    string        `json:"factory"`
		AssetInfos []asset.Asset `json:"asset_infos"`
	}{factory, []asset.Asset{{Info: a, Amount: decimal.Zero}, {Info: b, Amount: decimal.Zero}}}

	var resp struct {
		ContractAddr string `json:"contract_addr"`
	}
	if err := c.post(ctx, "/query/pair", req, &resp); err != nil {
		return "", err
	}
	if resp.ContractAddr == "" {
		return "", fmt.Errorf("%w: empty pair address", ErrBadResponse)
	}
	return resp.ContractAddr, nil
}

func (c *ExchangeClient) QuoteNative(ctx context.Context, offer asset.Coin, askDenom string) (decimal.Decimal, error) {
	req := struct {
		Offer    asset.Coin `json:"offer_coin"`
		AskDenom string     `json:"ask_denom"`
	}{offer, askDenom}

	var resp struct {
		ReceiveAmount decimal.Decimal `json:"receive_amount"`
	}
	if err := c.post(ctx, "/query/native_quote", req, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.ReceiveAmount, nil
}

func (c *ExchangeClient) QuotePair(ctx context.Context, pair string, offer asset.Asset) (decimal.Decimal, error) {
	req := struct {
		Pair  string      `json:"pair"`
		Offer asset.Asset `json:"offer_asset"`
	}{pair, offer}

	var resp struct {
		ReturnAmount decimal.Decimal `json:"return_amount"`
	}
	if err := c.post(ctx, "/query/simulation", req, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.ReturnAmount, nil
}

func (c *ExchangeClient) SwapNative(ctx context.Context, offer asset.Coin, askDenom string) error {
	req := struct {
		Offer    asset.Coin `json:"offer_coin"`
		AskDenom string     `json:"ask_denom"`
	}{offer, askDenom}
	return c.post(ctx, "/execute/native_swap", req, nil)
}

func (c *ExchangeClient) SwapPair(ctx context.Context, pair string, offer asset.Asset) error {
	req := struct {
		Pair  string      `json:"pair"`
		Offer asset.Asset `json:"offer_asset"`
	}{pair, offer}
	return c.post(ctx, "/execute/swap", req, nil)
}

// --- Lending ---

// LendingClient deposits stable coins into the lending market.
type LendingClient struct{ httpClient }

func NewLendingClient(base string) *LendingClient {
	return &LendingClient{newHTTPClient(base)}
}

func (c *LendingClient) DepositStable(ctx context.Context, market string, amount decimal.Decimal) error {
	req := struct {
		Market string          `json:"market"`
		Amount decimal.Decimal `json:"amount"`
	}{market, amount}
	return c.post(ctx, "/execute/deposit_stable", req, nil)
}

// --- Incentives ---

// IncentivesClient calls the mint authority's create operation.
type IncentivesClient struct{ httpClient }

func NewIncentivesClient(base string) *IncentivesClient {
	return &IncentivesClient{newHTTPClient(base)}
}

func (c *IncentivesClient) Create(ctx context.Context, incentiveAddr, clusterContract string, assets []asset.Asset, funds []asset.Coin) error {
	req := struct {
		Contract        string        `json:"contract"`
		ClusterContract string        `json:"cluster_contract"`
		AssetAmounts    []asset.Asset `json:"asset_amounts"`
		Funds           []asset.Coin  `json:"funds"`
	}{incentiveAddr, clusterContract, assets, funds}
	return c.post(ctx, "/execute/create", req, nil)
}

// --- Ledger ---

// LedgerClient reads balances and moves tokens for the engine's account.
type LedgerClient struct{ httpClient }

func NewLedgerClient(base string) *LedgerClient {
	return &LedgerClient{newHTTPClient(base)}
}

func (c *LedgerClient) NativeBalance(ctx context.Context, account, denom string) (decimal.Decimal, error) {
	req := struct {
		Account string `json:"account"`
		Denom   string `json:"denom"`
	}{account, denom}

	var resp struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.post(ctx, "/query/native_balance", req, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.Amount, nil
}

func (c *LedgerClient) TokenBalance(ctx context.Context, token, account string) (decimal.Decimal, error) {
	req := struct {
		Token   string `json:"token"`
		Account string `json:"account"`
	}{token, account}

	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := c.post(ctx, "/query/token_balance", req, &resp); err != nil {
		return decimal.Decimal{}, err
	}
	return resp.Balance, nil
}

func (c *LedgerClient) IncreaseAllowance(ctx context.Context, token, spender string, amount decimal.Decimal) error {
	req := struct {
		Token   string          `json:"token"`
		Spender string          `json:"spender"`
		Amount  decimal.Decimal `json:"amount"`
	}{token, spender, amount}
	return c.post(ctx, "/execute/increase_allowance", req, nil)
}

func (c *LedgerClient) TransferToken(ctx context.Context, token, recipient string, amount decimal.Decimal) error {
	req := struct {
		Token     string          `json:"token"`
		Recipient string          `json:"recipient"`
		Amount    decimal.Decimal `json:"amount"`
	}{token, recipient, amount}
	return c.post(ctx, "/execute/transfer", req, nil)
}

func (c *LedgerClient) BlockHeight(ctx context.Context) (uint64, error) {
	var resp struct {
		Height uint64 `json:"height"`
	}
	if err := c.post(ctx, "/query/block_height", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Height, nil
}
