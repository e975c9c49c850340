// Package service provides the HTTP handlers for engine setup, mint
// requests, the self-only internal stage endpoints, and the read-only
// mint preview.
//
// Caller identity travels in the X-Caller header: an upstream gateway
// strips and re-sets it after authentication, so its value is trusted
// here the way a message sender is trusted on-chain.
package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
	"github.com/nebula-protocol/cluster-mint-engine/internal/chain"
	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
	"github.com/nebula-protocol/cluster-mint-engine/internal/sim"
	"github.com/nebula-protocol/cluster-mint-engine/internal/store"
)

// callerHeader carries the authenticated caller identity.
const callerHeader = "X-Caller"

// Service handles engine operations.
type Service struct {
	cfgs   store.ConfigStore
	engine *chain.Engine
	sim    *sim.Simulator
}

// NewService creates a new engine service.
func NewService(cfgs store.ConfigStore, engine *chain.Engine, simulator *sim.Simulator) *Service {
	return &Service{cfgs: cfgs, engine: engine, sim: simulator}
}

// --- Request/Response types ---

// SetupRequest is the JSON body for one-time engine configuration.
type SetupRequest struct {
	IncentiveContract string `json:"incentive_contract"`
	ExchangeFactory   string `json:"exchange_factory"`
	ReceiptToken      string `json:"receipt_token"`
	LendingMarket     string `json:"lending_market"`
	PriceOracle       string `json:"price_oracle"`
	StableDenom       string `json:"stable_denom"`
}

// MintRequest is the JSON body for POST /api/v1/mint. The caller is the
// recipient of the minted cluster tokens.
type MintRequest struct {
	ClusterAddress string `json:"cluster_address"`
}

// MintResponse acknowledges a started execution chain.
type MintResponse struct {
	ChainID string `json:"chain_id"`
	Status  string `json:"status"`
}

// --- HTTP Handlers ---

// Setup handles POST /api/v1/setup. Configuration is written exactly
// once; any further attempt is rejected regardless of caller.
func (s *Service) Setup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	caller := r.Header.Get(callerHeader)
	if err := asset.ValidateAddress(caller); err != nil {
		writeError(w, "caller address: "+err.Error(), http.StatusBadRequest)
		return
	}

	addrs := map[string]string{
		"incentive_contract": req.IncentiveContract,
		"exchange_factory":   req.ExchangeFactory,
		"receipt_token":      req.ReceiptToken,
		"lending_market":     req.LendingMarket,
		"price_oracle":       req.PriceOracle,
	}
	for field, addr := range addrs {
		if err := asset.ValidateAddress(addr); err != nil {
			writeError(w, field+": "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.StableDenom == "" {
		writeError(w, "stable_denom is required", http.StatusBadRequest)
		return
	}

	cfg := &model.Config{
		IncentiveContract: req.IncentiveContract,
		ExchangeFactory:   req.ExchangeFactory,
		ReceiptToken:      req.ReceiptToken,
		LendingMarket:     req.LendingMarket,
		PriceOracle:       req.PriceOracle,
		Owner:             caller,
		StableDenom:       req.StableDenom,
	}
	if err := s.cfgs.Save(r.Context(), cfg); err != nil {
		if errors.Is(err, store.ErrAlreadyConfigured) {
			writeError(w, "engine is already configured", http.StatusConflict)
			return
		}
		writeError(w, "failed to store configuration", http.StatusInternalServerError)
		return
	}

	slog.Info("engine configured",
		"owner", caller,
		"stable_denom", req.StableDenom,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cfg)
}

// Mint handles POST /api/v1/mint. Starts the execution chain; the
// response acknowledges the Requested step only, later stages report
// through the progress hub.
func (s *Service) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	caller := r.Header.Get(callerHeader)
	if err := asset.ValidateAddress(caller); err != nil {
		writeError(w, "caller address: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := asset.ValidateAddress(req.ClusterAddress); err != nil {
		writeError(w, "cluster_address: "+err.Error(), http.StatusBadRequest)
		return
	}

	chainID, err := s.engine.Mint(r.Context(), req.ClusterAddress, caller)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotConfigured):
			writeError(w, "engine is not configured", http.StatusConflict)
		case errors.Is(err, chain.ErrClusterInactive):
			writeError(w, "cluster is not active", http.StatusConflict)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(MintResponse{ChainID: chainID, Status: "requested"})
}

// Collect handles POST /api/v1/internal/collect. Only the engine's own
// identity may invoke it; these endpoints exist for the scheduler's
// loopback delivery, not for users.
func (s *Service) Collect(w http.ResponseWriter, r *http.Request) {
	if !s.callerIsSelf(w, r) {
		return
	}

	var p model.CollectPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.engine.Collect(r.Context(), &p); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"chain_id": p.ChainID, "status": "allocated"})
}

// Forward handles POST /api/v1/internal/forward. Self-only, like Collect.
func (s *Service) Forward(w http.ResponseWriter, r *http.Request) {
	if !s.callerIsSelf(w, r) {
		return
	}

	var p model.ForwardPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.engine.Forward(r.Context(), &p); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"chain_id": p.ChainID, "status": "forwarded"})
}

// Simulate handles GET /api/v1/simulate?cluster_address=...&ust_amount=...
// Read-only; nothing is mutated or scheduled.
func (s *Service) Simulate(w http.ResponseWriter, r *http.Request) {
	clusterAddr := r.URL.Query().Get("cluster_address")
	if err := asset.ValidateAddress(clusterAddr); err != nil {
		writeError(w, "cluster_address: "+err.Error(), http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(r.URL.Query().Get("ust_amount"))
	if err != nil {
		writeError(w, "ust_amount must be a decimal string", http.StatusBadRequest)
		return
	}
	if amount.IsNegative() {
		writeError(w, "ust_amount must not be negative", http.StatusBadRequest)
		return
	}

	result, err := s.sim.SimulateMint(r.Context(), clusterAddr, amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotConfigured):
			writeError(w, "engine is not configured", http.StatusConflict)
		case errors.Is(err, chain.ErrClusterInactive):
			writeError(w, "cluster is not active", http.StatusConflict)
		default:
			writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// callerIsSelf rejects internal stage calls from any identity other
// than the engine itself.
func (s *Service) callerIsSelf(w http.ResponseWriter, r *http.Request) bool {
	caller := r.Header.Get(callerHeader)
	if caller != s.engine.Self() {
		slog.Warn("internal stage call rejected", "caller", caller, "path", r.URL.Path)
		writeError(w, "unauthorized", http.StatusForbidden)
		return false
	}
	return true
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
