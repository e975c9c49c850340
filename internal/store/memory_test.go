package store

import (
	"context"
	"errors"
	"testing"

	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

func testConfig() *model.Config {
	return &model.Config{
		IncentiveContract: "terra1incentincentincentincentincentincentincen",
		ExchangeFactory:   "terra1factoryfactoryfactoryfactoryfactoryfacto",
		ReceiptToken:      "terra1receiptreceiptreceiptreceiptreceiptrecept",
		LendingMarket:     "terra1lendinglendinglendinglendinglendinglendin",
		PriceOracle:       "terra1oracleoracleoracleoracleoracleoracleoracl",
		Owner:             "terra1owner0owner0owner0owner0owner0owner0owner",
		StableDenom:       "uusd",
	}
}

func TestMemoryStore_LoadBeforeSave(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestMemoryStore_SaveOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Save(ctx, testConfig()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(ctx, testConfig()); !errors.Is(err, ErrAlreadyConfigured) {
		t.Errorf("expected ErrAlreadyConfigured on second save, got %v", err)
	}

	cfg, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StableDenom != "uusd" || cfg.Owner != testConfig().Owner {
		t.Errorf("loaded config does not match saved: %+v", cfg)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Save(ctx, testConfig()); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, _ := s.Load(ctx)
	cfg.Owner = "mutated"

	again, _ := s.Load(ctx)
	if again.Owner == "mutated" {
		t.Error("stored configuration must be immutable")
	}
}
