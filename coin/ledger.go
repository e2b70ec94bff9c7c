package coin

import (
	"math/big"

	"github.com/pkg/errors"
)

// Ledger is the coin port used by the governance contract.
type Ledger interface {
	VerifyExact(in Input, required Value) error
	VerifyAtLeast(in Input, required Value) error
	Mint(beneficiary string, v Value, metadata any) (Output, error)
	Change(in Input, consumed *big.Int) (Output, error)
}

// BasicLedger verifies inputs by value only. Ownership and spent checks happen
// before an input reaches the ledger.
type BasicLedger struct{}

var _ Ledger = BasicLedger{}

func NewBasicLedger() BasicLedger {
	return BasicLedger{}
}

func checkAsset(in Input, required Value) error {
	if in.Value.Amount == nil || required.Amount == nil {
		return ErrNilAmount
	}
	if !in.Value.Asset.Equal(required.Asset) {
		return errors.Wrapf(ErrAssetMismatch, "input %s holds %s, want %s", in.ID, in.Value.Asset, required.Asset)
	}
	return nil
}

func (BasicLedger) VerifyExact(in Input, required Value) error {
	if err := checkAsset(in, required); err != nil {
		return err
	}
	if in.Value.Amount.Cmp(required.Amount) != 0 {
		return errors.Wrapf(ErrAmountMismatch, "input %s holds %s, want %s", in.ID, in.Value.Amount, required.Amount)
	}
	return nil
}

func (BasicLedger) VerifyAtLeast(in Input, required Value) error {
	if err := checkAsset(in, required); err != nil {
		return err
	}
	if in.Value.Amount.Cmp(required.Amount) < 0 {
		return errors.Wrapf(ErrInsufficient, "input %s holds %s, need %s", in.ID, in.Value.Amount, required.Amount)
	}
	return nil
}

func (BasicLedger) Mint(beneficiary string, v Value, metadata any) (Output, error) {
	if v.Amount == nil {
		return Output{}, ErrNilAmount
	}
	if v.Amount.Sign() < 0 {
		return Output{}, ErrNegativeAmount
	}
	out := Pay(beneficiary, v, "mint", v.Symbol, metadata)
	return out, nil
}

func (BasicLedger) Change(in Input, consumed *big.Int) (Output, error) {
	if in.Value.Amount == nil || consumed == nil {
		return Output{}, ErrNilAmount
	}
	if consumed.Sign() < 0 {
		return Output{}, ErrNegativeAmount
	}
	if consumed.Cmp(in.Value.Amount) > 0 {
		return Output{}, errors.Wrapf(ErrInsufficient, "consume %s of %s", consumed, in.Value.Amount)
	}
	rest := new(big.Int).Sub(in.Value.Amount, consumed)
	return Pay(in.Owner, in.Value.Asset.Value(rest), "change", in.Value.Symbol, nil), nil
}
