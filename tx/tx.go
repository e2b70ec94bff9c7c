package tx

import (
	"encoding/json"

	"github.com/calehh/hac-gov/coin"
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// GovTx is the signed envelope of one contract action.
type GovTx struct {
	Version   uint8        `json:"version"`
	Type      GovTxType    `json:"type"`
	Contract  string       `json:"contract"`
	Timestamp int64        `json:"timestamp"`
	PubKey    []byte       `json:"pubkey"`
	Form      any          `json:"form"`
	Inputs    []coin.Input `json:"inputs,omitempty"`
	Sig       []byte       `json:"sig"`
}

type govTxTmpl[Form any] struct {
	Version   uint8        `json:"version"`
	Type      GovTxType    `json:"type"`
	Contract  string       `json:"contract"`
	Timestamp int64        `json:"timestamp"`
	PubKey    []byte       `json:"pubkey"`
	Form      Form         `json:"form"`
	Inputs    []coin.Input `json:"inputs,omitempty"`
	Sig       []byte       `json:"sig"`
}

// SigData is the message signed by the caller: the envelope with the
// signature replaced by ext, usually the chain id.
func (tx *GovTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

// Caller is the address of the signing key.
func (tx *GovTx) Caller() string {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return ""
	}
	return ed25519.PubKey(tx.PubKey).Address().String()
}

func (tx *GovTx) Verify(chainId string) error {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return ErrInvalidPubKey
	}
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return err
	}
	if !ed25519.PubKey(tx.PubKey).VerifySignature(dat, tx.Sig) {
		return ErrTxSigInvalid
	}
	return nil
}

type Signer interface {
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// Sign fills the public key and signature of tx.
func (tx *GovTx) Sign(signer Signer, chainId string) error {
	tx.PubKey = signer.PublicKey()
	tx.Sig = nil
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return err
	}
	tx.Sig, err = signer.Sign(dat)
	return err
}

func parseGovTxType(dat []byte) GovTxType {
	var tx struct {
		Type GovTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GovTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGovTx[Form any](dat []byte) (btx *GovTx, err error) {
	var txt govTxTmpl[Form]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	btx = new(GovTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Contract = txt.Contract
	btx.Timestamp = txt.Timestamp
	btx.PubKey = txt.PubKey
	btx.Form = &txt.Form
	btx.Inputs = txt.Inputs
	btx.Sig = txt.Sig
	return
}

func UnmarshalGovTx(dat []byte) (btx *GovTx, err error) {
	tp := parseGovTxType(dat)
	switch tp {
	case GovTxTypeStart:
		btx, err = unmarshalGovTx[StartForm](dat)
	case GovTxTypeCreateOrg:
		btx, err = unmarshalGovTx[CreateOrgForm](dat)
	case GovTxTypeCreateProposal:
		btx, err = unmarshalGovTx[CreateProposalForm](dat)
	case GovTxTypeCreateVote:
		btx, err = unmarshalGovTx[CreateVoteProposalForm](dat)
	case GovTxTypeJoinOrg:
		btx, err = unmarshalGovTx[JoinOrgForm](dat)
	case GovTxTypeVote:
		btx, err = unmarshalGovTx[VoteForm](dat)
	case GovTxTypeGetVoteResult:
		btx, err = unmarshalGovTx[GetVoteResultForm](dat)
	case GovTxTypeListOrgs, GovTxTypeListProposals, GovTxTypeListVoteProposals:
		btx, err = unmarshalGovTx[ListForm](dat)
	case GovTxTypeCloseVote:
		btx, err = unmarshalGovTx[CloseVoteForm](dat)
	case GovTxTypeClaimVote:
		btx, err = unmarshalGovTx[ClaimVoteForm](dat)
	case GovTxTypePublishTemplate:
		btx, err = unmarshalGovTx[PublishTemplateForm](dat)
	default:
		err = ErrUnsupportedTxType
	}
	if err != nil {
		return nil, err
	}
	if btx.Version != GovTxVersion0 {
		return nil, ErrUnsupportedTxVersion
	}
	if btx.Contract == "" && btx.Type != GovTxTypePublishTemplate {
		return nil, ErrNoContract
	}
	return
}

func MarshalGovTx(btx *GovTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
