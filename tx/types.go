package tx

import (
	"errors"
)

type GovTxType string

const (
	GovTxTypeUnknown           GovTxType = ""
	GovTxTypeStart             GovTxType = "start"
	GovTxTypeCreateOrg         GovTxType = "createOrg"
	GovTxTypeCreateProposal    GovTxType = "createProposal"
	GovTxTypeCreateVote        GovTxType = "createVoteProposal"
	GovTxTypeJoinOrg           GovTxType = "joinOrg"
	GovTxTypeVote              GovTxType = "vote"
	GovTxTypeGetVoteResult     GovTxType = "getVoteResult"
	GovTxTypeListOrgs          GovTxType = "listOrgs"
	GovTxTypeListProposals     GovTxType = "listProposals"
	GovTxTypeListVoteProposals GovTxType = "listVoteProposals"
	GovTxTypeCloseVote         GovTxType = "closeVote"
	GovTxTypeClaimVote         GovTxType = "claimVote"

	GovTxTypePublishTemplate GovTxType = "publishTemplate"
)

// ContractActions are the actions a governance contract answers to.
var ContractActions = []GovTxType{
	GovTxTypeStart,
	GovTxTypeCreateOrg,
	GovTxTypeCreateProposal,
	GovTxTypeCreateVote,
	GovTxTypeJoinOrg,
	GovTxTypeVote,
	GovTxTypeGetVoteResult,
	GovTxTypeListOrgs,
	GovTxTypeListProposals,
	GovTxTypeListVoteProposals,
	GovTxTypeCloseVote,
	GovTxTypeClaimVote,
}

const (
	GovTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx            = errors.New("invalid tx")
	ErrUnsupportedTxType    = errors.New("unsupported tx type")
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrNoContract           = errors.New("tx has no contract")
	ErrInvalidPubKey        = errors.New("invalid pubkey")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrInvalidTimestamp     = errors.New("invalid timestamp")
)
