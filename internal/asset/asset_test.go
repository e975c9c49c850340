package asset

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestFloorMulDiv_Truncates(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c int64
		want    int64
	}{
		{"exact", 1000, 3, 10, 300},
		{"truncated", 1000, 1, 3, 333},
		{"truncated near ceiling", 999, 2, 1000, 1},
		{"zero numerator", 0, 7, 3, 0},
		{"large operands", 1_000_000_000_000, 999_999, 1_000_000, 999_999_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FloorMulDiv(d(tt.a), d(tt.b), d(tt.c))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("floor(%d*%d/%d): expected %d, got %s", tt.a, tt.b, tt.c, tt.want, got)
			}
		})
	}
}

func TestFloorMulDiv_ZeroDenominator(t *testing.T) {
	_, err := FloorMulDiv(d(10), d(10), d(0))
	if !errors.Is(err, ErrDivideByZero) {
		t.Errorf("expected ErrDivideByZero, got %v", err)
	}
}

func TestFloorMulDiv_NegativeOperand(t *testing.T) {
	_, err := FloorMulDiv(d(-1), d(10), d(3))
	if !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestAssetJSON_TaggedUnion(t *testing.T) {
	native := Asset{Info: Native{Denom: "uusd"}, Amount: d(42)}
	data, err := json.Marshal(native)
	if err != nil {
		t.Fatalf("marshal native: %v", err)
	}

	var back Asset
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal native: %v", err)
	}
	if back.Info.ID() != "uusd" || !back.Amount.Equal(d(42)) {
		t.Errorf("native round trip lost data: %+v", back)
	}
	if _, ok := back.Info.(Native); !ok {
		t.Errorf("expected Native variant, got %T", back.Info)
	}

	token := Asset{Info: Token{Contract: "terra1tokentokentokentokentokentokentokentokent"}, Amount: d(7)}
	data, err = json.Marshal(token)
	if err != nil {
		t.Fatalf("marshal token: %v", err)
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if _, ok := back.Info.(Token); !ok {
		t.Errorf("expected Token variant, got %T", back.Info)
	}
}

func TestAssetJSON_RejectsUntaggedPayload(t *testing.T) {
	var a Asset
	err := json.Unmarshal([]byte(`{"info":{},"amount":"1"}`), &a)
	if !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"terra1engineengineengineengineengineengineengin",
		"cosmos1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5lzv7xu",
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("expected %q to validate: %v", addr, err)
		}
	}

	invalid := []string{
		"",
		"terra",
		"TERRA1ENGINEENGINEENGINEENGINEENGINEENGINEENGIN",
		"not an address",
		"1startswithseparatorstartswithseparatorstartsw",
	}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Errorf("expected %q to be rejected", addr)
		}
	}
}
