// Package asset defines the tagged asset representation shared by the
// allocator, router, and simulator. A basket component is either a native
// ledger coin identified by its denom, or a contract-issued token
// identified by its address, always paired with an amount. In a cluster's
// target list the amount field carries the target weight, not a holding.
//
// All amounts use shopspring/decimal — never float64 for money.
package asset

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	// ErrDivideByZero is returned when a ratio computation has a zero
	// denominator. Division by zero is never swallowed silently.
	ErrDivideByZero = errors.New("asset: division by zero")

	// ErrNegativeAmount is returned when an amount that must be
	// non-negative is negative.
	ErrNegativeAmount = errors.New("asset: negative amount")

	// ErrUnknownVariant is returned when an asset envelope carries
	// neither a native denom nor a token address.
	ErrUnknownVariant = errors.New("asset: unknown asset info variant")

	// ErrInvalidAddress is returned for malformed bech32 account or
	// contract identifiers.
	ErrInvalidAddress = errors.New("asset: invalid address")
)

// Info identifies an asset kind. Exactly two variants exist — Native and
// Token — and every consumer dispatches on them with an exhaustive type
// switch rather than ad hoc string branching.
type Info interface {
	// ID returns the denom or contract address identifying the asset
	// kind within a basket.
	ID() string

	isInfo()
}

// Native identifies a native ledger coin by denom.
type Native struct {
	Denom string `json:"denom"`
}

func (n Native) ID() string { return n.Denom }
func (Native) isInfo()      {}

// Token identifies a contract-issued token by its contract address.
type Token struct {
	Contract string `json:"contract_addr"`
}

func (t Token) ID() string { return t.Contract }
func (Token) isInfo()      {}

// Asset pairs an asset kind with a non-negative fixed-point amount.
type Asset struct {
	Info   Info
	Amount decimal.Decimal
}

// Coin is a native denom/amount pair, used for funds attached to calls.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// infoEnvelope is the wire shape of the Info union: exactly one of the
// two fields is set.
type infoEnvelope struct {
	NativeToken *Native `json:"native_token,omitempty"`
	Token       *Token  `json:"token,omitempty"`
}

type assetEnvelope struct {
	Info   infoEnvelope    `json:"info"`
	Amount decimal.Decimal `json:"amount"`
}

// MarshalJSON encodes the asset in the exchange wire shape:
//
//	{"info":{"native_token":{"denom":"uusd"}},"amount":"1000"}
//	{"info":{"token":{"contract_addr":"terra1..."}},"amount":"1000"}
func (a Asset) MarshalJSON() ([]byte, error) {
	env := assetEnvelope{Amount: a.Amount}
	switch info := a.Info.(type) {
	case Native:
		env.Info.NativeToken = &info
	case Token:
		env.Info.Token = &info
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownVariant, a.Info)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the tagged envelope, rejecting payloads that set
// neither or both variants.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var env assetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch {
	case env.Info.NativeToken != nil && env.Info.Token == nil:
		a.Info = *env.Info.NativeToken
	case env.Info.Token != nil && env.Info.NativeToken == nil:
		a.Info = *env.Info.Token
	default:
		return ErrUnknownVariant
	}
	a.Amount = env.Amount
	return nil
}

// FloorMulDiv computes floor(a * b / c) with truncating integer division.
// The live execution path and the simulator both route their ratio math
// through this helper so their rounding behavior can never drift apart;
// the truncation is user-observable as dust left in the stable balance.
func FloorMulDiv(a, b, c decimal.Decimal) (decimal.Decimal, error) {
	if c.IsZero() {
		return decimal.Decimal{}, ErrDivideByZero
	}
	if a.IsNegative() || b.IsNegative() || c.IsNegative() {
		return decimal.Decimal{}, ErrNegativeAmount
	}
	// QuoRem with precision 0 yields the integer quotient with an exact
	// remainder, i.e. truncating division for non-negative operands.
	q, _ := a.Mul(b).QuoRem(c, 0)
	return q, nil
}

// addrRegex matches bech32 account and contract identifiers:
// a lowercase human-readable prefix, the separator "1", and a
// 38–58 character data part.
var addrRegex = regexp.MustCompile(`^[a-z]{2,16}1[a-z0-9]{38,58}$`)

// ValidateAddress checks that s is a well-formed bech32-shaped identifier.
// Malformed identifiers are rejected at the boundary before any effect is
// scheduled.
func ValidateAddress(s string) error {
	if !addrRegex.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return nil
}
