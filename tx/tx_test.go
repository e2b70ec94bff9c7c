package tx

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/space"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type keySigner struct {
	key ed25519.PrivKey
}

func (s keySigner) PublicKey() []byte {
	return s.key.PubKey().Bytes()
}

func (s keySigner) Sign(msg []byte) ([]byte, error) {
	return s.key.Sign(msg)
}

func TestSignAndVerify(t *testing.T) {
	signer := keySigner{key: ed25519.GenPrivKey()}
	btx := &GovTx{
		Type:     GovTxTypeCreateOrg,
		Contract: "gov-1",
		Form: &CreateOrgForm{
			Name:       "builders",
			Symbol:     "BLD",
			Decimals:   2,
			JoinFee:    decimal.RequireFromString("1.5"),
			JoinTokens: decimal.NewFromInt(10000),
		},
		Inputs: []coin.Input{{ID: "genesis:0"}},
	}
	require.NoError(t, btx.Sign(signer, "hac-test"))
	require.NoError(t, btx.Verify("hac-test"))
	require.ErrorIs(t, btx.Verify("other-chain"), ErrTxSigInvalid)

	dat, err := MarshalGovTx(btx)
	require.NoError(t, err)
	parsed, err := UnmarshalGovTx(dat)
	require.NoError(t, err)
	require.NoError(t, parsed.Verify("hac-test"))
	require.Equal(t, signer.key.PubKey().Address().String(), parsed.Caller())

	form, ok := parsed.Form.(*CreateOrgForm)
	require.True(t, ok)
	require.Equal(t, "BLD", form.Symbol)
	require.Equal(t, "1.5", form.JoinFee.String())

	// tampering with the form breaks the signature
	form.Decimals = 3
	require.ErrorIs(t, parsed.Verify("hac-test"), ErrTxSigInvalid)
}

func TestUnmarshalRejects(t *testing.T) {
	_, err := UnmarshalGovTx([]byte(`{"type":"mint","contract":"g"}`))
	require.ErrorIs(t, err, ErrUnsupportedTxType)
	_, err = UnmarshalGovTx([]byte(`{"type":"vote"}`))
	require.ErrorIs(t, err, ErrNoContract)
	_, err = UnmarshalGovTx([]byte(`{"type":"vote","contract":"g","version":7}`))
	require.ErrorIs(t, err, ErrUnsupportedTxVersion)
	_, err = UnmarshalGovTx([]byte(`not json`))
	require.Error(t, err)
}

func TestTimestampForms(t *testing.T) {
	var f CreateVoteProposalForm
	require.NoError(t, json.Unmarshal([]byte(`{"voteStart":1735689600000,"voteEnd":"2025-01-02T00:00:00Z"}`), &f))
	require.Equal(t, Timestamp(1735689600000), f.VoteStart)
	require.Equal(t, Timestamp(1735776000000), f.VoteEnd)

	out, err := json.Marshal(f.VoteEnd)
	require.NoError(t, err)
	require.Equal(t, "1735776000000", string(out))

	require.ErrorIs(t, json.Unmarshal([]byte(`{"voteEnd":"tomorrow"}`), &f), ErrInvalidTimestamp)
}

func TestInputsKeepAmounts(t *testing.T) {
	dat := []byte(`{"type":"vote","contract":"g","form":{"vote":"for","votes":1},
		"inputs":[{"id":"a:0","value":{"symbol":"HAC","decimals":8,"amount":12345678901234567890}}]}`)
	btx, err := UnmarshalGovTx(dat)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("12345678901234567890", 10)
	require.Equal(t, 0, want.Cmp(btx.Inputs[0].Value.Amount))
}

func TestTemplate(t *testing.T) {
	tmpl := NewTemplate("governance", "1.2.0", space.Schema{"vote": {Type: space.Text, Facet: true}})
	data, err := EncodeTemplate(tmpl)
	require.NoError(t, err)
	again, err := EncodeTemplate(tmpl)
	require.NoError(t, err)
	require.Equal(t, data, again)

	form := &PublishTemplateForm{Network: NetworkLocal, Template: data, Digest: TemplateDigest(data)}
	opened, err := form.Open()
	require.NoError(t, err)
	require.Equal(t, tmpl, opened)

	form.Digest = TemplateDigest([]byte("other"))
	_, err = form.Open()
	require.ErrorIs(t, err, ErrTemplateDigest)

	form.Network = "moon"
	_, err = form.Open()
	require.ErrorIs(t, err, ErrTemplateNetwork)

	bad := NewTemplate("governance", "not-a-version", nil)
	require.Error(t, bad.Validate())
	bad = NewTemplate("", "1.0.0", nil)
	require.ErrorIs(t, bad.Validate(), ErrTemplateName)
	bad = NewTemplate("g", "1.0.0", nil)
	bad.Actions = append(bad.Actions, "mint")
	require.ErrorIs(t, bad.Validate(), ErrTemplateAction)
}
