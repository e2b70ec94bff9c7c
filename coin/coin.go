package coin

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	KindCoin    = "coin"
	KindReceipt = "receipt"
)

var (
	ErrNegativeAmount   = errors.New("negative amount")
	ErrFractionalUnits  = errors.New("amount has fractional base units")
	ErrNegativeDecimals = errors.New("negative decimals")
	ErrAssetMismatch    = errors.New("asset mismatch")
	ErrAmountMismatch   = errors.New("amount mismatch")
	ErrInsufficient     = errors.New("insufficient amount")
	ErrNilAmount        = errors.New("nil amount")
)

// Asset identifies a fungible coin. Two assets are the same only when symbol,
// issuer and decimals all match.
type Asset struct {
	Symbol   string `json:"symbol"`
	Issuer   string `json:"issuer,omitempty"`
	Decimals int32  `json:"decimals"`
}

func (a Asset) Equal(o Asset) bool {
	return a.Symbol == o.Symbol && a.Issuer == o.Issuer && a.Decimals == o.Decimals
}

func (a Asset) String() string {
	if a.Issuer == "" {
		return fmt.Sprintf("%s(%d)", a.Symbol, a.Decimals)
	}
	return fmt.Sprintf("%s@%s(%d)", a.Symbol, a.Issuer, a.Decimals)
}

// Value builds a value of a in base units.
func (a Asset) Value(amount *big.Int) Value {
	return Value{Asset: a, Amount: new(big.Int).Set(amount)}
}

// Units converts a whole-unit amount of a into a value.
func (a Asset) Units(amount decimal.Decimal) (Value, error) {
	n, err := ToBaseUnits(amount, a.Decimals)
	if err != nil {
		return Value{}, err
	}
	return Value{Asset: a, Amount: n}, nil
}

type Value struct {
	Asset
	Amount *big.Int `json:"amount"`
}

func (v Value) IsZero() bool {
	return v.Amount == nil || v.Amount.Sign() == 0
}

func (v Value) Clone() Value {
	c := Value{Asset: v.Asset}
	if v.Amount != nil {
		c.Amount = new(big.Int).Set(v.Amount)
	}
	return c
}

// Decimal reports the value in whole units.
func (v Value) Decimal() decimal.Decimal {
	if v.Amount == nil {
		return decimal.Zero
	}
	return FromBaseUnits(v.Amount, v.Decimals)
}

func (v Value) String() string {
	return v.Decimal().String() + " " + v.Asset.String()
}

// Input is an unspent coin output consumed by an action.
type Input struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"`
	Value Value  `json:"value"`
}

// Output is produced by an action. Coin outputs are spendable, receipts only
// carry information back to the caller.
type Output struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Owner       string `json:"owner"`
	Value       *Value `json:"value,omitempty"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
	Payload     any    `json:"payload,omitempty"`
}

func (o Output) IsCoin() bool {
	return o.Kind == KindCoin
}

// Receipt builds an informational output for owner.
func Receipt(owner, title, subtitle string, payload any) Output {
	return Output{
		Kind:     KindReceipt,
		Owner:    owner,
		Title:    title,
		Subtitle: subtitle,
		Payload:  payload,
	}
}

// Pay builds a spendable output of v for owner.
func Pay(owner string, v Value, title, subtitle string, payload any) Output {
	c := v.Clone()
	return Output{
		Kind:     KindCoin,
		Owner:    owner,
		Value:    &c,
		Title:    title,
		Subtitle: subtitle,
		Payload:  payload,
	}
}

// Scale returns 10^decimals.
func Scale(decimals int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ToBaseUnits converts amount whole units into base units, amount * 10^decimals.
// The result must be an integer.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrNegativeDecimals
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, ErrFractionalUnits
	}
	return scaled.BigInt(), nil
}

// TruncateToBaseUnits is ToBaseUnits that drops any fractional base unit.
func TruncateToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrNegativeDecimals
	}
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return amount.Shift(decimals).Truncate(0).BigInt(), nil
}

func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}
