package coin

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var hac = Asset{Symbol: "HAC", Decimals: 8}

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int32
		want     string
		err      error
	}{
		{"0", 8, "0", nil},
		{"1", 8, "100000000", nil},
		{"1.5", 2, "150", nil},
		{"10000", 0, "10000", nil},
		{"0.001", 2, "", ErrFractionalUnits},
		{"-1", 2, "", ErrNegativeAmount},
		{"1", -1, "", ErrNegativeDecimals},
		{"123456789012345678901234567890", 18, "123456789012345678901234567890000000000000000000", nil},
	}
	for _, c := range cases {
		got, err := ToBaseUnits(decimal.RequireFromString(c.amount), c.decimals)
		if c.err != nil {
			require.ErrorIs(t, err, c.err, c.amount)
			continue
		}
		require.NoError(t, err, c.amount)
		require.Equal(t, c.want, got.String(), c.amount)
	}
}

func TestTruncateAndBack(t *testing.T) {
	n, err := TruncateToBaseUnits(decimal.RequireFromString("33.333333333333333333"), 8)
	require.NoError(t, err)
	require.Equal(t, "3333333333", n.String())
	require.Equal(t, "33.33333333", FromBaseUnits(n, 8).String())
}

func TestVerify(t *testing.T) {
	l := NewBasicLedger()
	fee, err := hac.Units(decimal.NewFromInt(10))
	require.NoError(t, err)
	in := Input{ID: "a:0", Owner: "alice", Value: fee.Clone()}

	require.NoError(t, l.VerifyExact(in, fee))
	require.NoError(t, l.VerifyAtLeast(in, fee))

	more := hac.Value(new(big.Int).Add(fee.Amount, big.NewInt(1)))
	require.True(t, errors.Is(l.VerifyExact(in, more), ErrAmountMismatch))
	require.True(t, errors.Is(l.VerifyAtLeast(in, more), ErrInsufficient))

	less := hac.Value(big.NewInt(1))
	require.True(t, errors.Is(l.VerifyExact(in, less), ErrAmountMismatch))
	require.NoError(t, l.VerifyAtLeast(in, less))

	// same symbol, other issuer
	org := Asset{Symbol: "HAC", Issuer: "gov/org/0", Decimals: 8}
	require.True(t, errors.Is(l.VerifyAtLeast(in, org.Value(big.NewInt(1))), ErrAssetMismatch))
}

func TestChange(t *testing.T) {
	l := NewBasicLedger()
	tok := Asset{Symbol: "T", Issuer: "g/org/0", Decimals: 2}
	in := Input{ID: "x:1", Owner: "bob", Value: tok.Value(big.NewInt(500))}

	out, err := l.Change(in, big.NewInt(400))
	require.NoError(t, err)
	require.Equal(t, KindCoin, out.Kind)
	require.Equal(t, "bob", out.Owner)
	require.Equal(t, int64(100), out.Value.Amount.Int64())
	require.True(t, out.Value.Asset.Equal(tok))
	// the input is untouched
	require.Equal(t, int64(500), in.Value.Amount.Int64())

	out, err = l.Change(in, big.NewInt(500))
	require.NoError(t, err)
	require.True(t, out.Value.IsZero())

	_, err = l.Change(in, big.NewInt(501))
	require.ErrorIs(t, err, ErrInsufficient)
}

func TestMint(t *testing.T) {
	l := NewBasicLedger()
	tok := Asset{Symbol: "T", Issuer: "g/org/0", Decimals: 2}
	out, err := l.Mint("carol", tok.Value(big.NewInt(1000000)), map[string]string{"org": "g/org/0"})
	require.NoError(t, err)
	require.True(t, out.IsCoin())
	require.Equal(t, "carol", out.Owner)
	require.Equal(t, "10000", out.Value.Decimal().String())

	_, err = l.Mint("carol", tok.Value(big.NewInt(-1)), nil)
	require.ErrorIs(t, err, ErrNegativeAmount)
}
