package types

import (
	"github.com/shopspring/decimal"
)

type VoteType string

const (
	VoteTypeMajority  VoteType = "majority"
	VoteTypeQuadratic VoteType = "quadratic"
)

func (t VoteType) Valid() bool {
	return t == VoteTypeMajority || t == VoteTypeQuadratic
}

type VoteValue string

const (
	VoteFor     VoteValue = "for"
	VoteAgainst VoteValue = "against"
)

func (v VoteValue) Valid() bool {
	return v == VoteFor || v == VoteAgainst
}

type Proposal struct {
	ID          string `json:"id"`
	DocType     string `json:"docType"`
	GovID       string `json:"govId"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
}

type VoteProposal struct {
	ID          string          `json:"id"`
	DocType     string          `json:"docType"`
	GovID       string          `json:"govId"`
	Owner       string          `json:"owner"`
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Description string          `json:"description,omitempty"`
	OrgID       string          `json:"orgId"`
	ProposalID  string          `json:"proposalId,omitempty"`
	Symbol      string          `json:"symbol"`
	Decimals    int32           `json:"decimals"`
	VoteType    VoteType        `json:"voteType"`
	MinVoters   int64           `json:"minVoters"`
	MaxVoters   int64           `json:"maxVoters"`
	VoteStart   int64           `json:"voteStart"`
	VoteEnd     int64           `json:"voteEnd"`
	Stake       decimal.Decimal `json:"stake"`
	WinPercent  int64           `json:"winPercent"`
}

// Open reports whether now (epoch ms) is inside [voteStart, voteEnd).
func (p *VoteProposal) Open(now int64) bool {
	return p.VoteStart <= now && now < p.VoteEnd
}

type Vote struct {
	ID             string    `json:"id"`
	DocType        string    `json:"docType"`
	GovID          string    `json:"govId"`
	MemberID       string    `json:"memberId"`
	VoteProposalID string    `json:"voteProposalId"`
	Owner          string    `json:"owner"`
	Vote           VoteValue `json:"vote"`
	Votes          int64     `json:"votes"`
	Title          string    `json:"title,omitempty"`
	Subtitle       string    `json:"subtitle,omitempty"`
}

type VoteResult struct {
	For     int64 `json:"for"`
	Against int64 `json:"against"`
}

// Settlement is written once when a vote proposal is closed.
type Settlement struct {
	VoteProposal
	ID             string          `json:"id"`
	DocType        string          `json:"docType"`
	VoteProposalID string          `json:"voteProposalId"`
	For            int64           `json:"for"`
	Against        int64           `json:"against"`
	ForStake       decimal.Decimal `json:"forStake"`
	AgainstStake   decimal.Decimal `json:"againstStake"`
	ClosedAt       int64           `json:"closedAt"`
}

// Rate returns the per-unit payout of side.
func (s *Settlement) Rate(side VoteValue) decimal.Decimal {
	if side == VoteFor {
		return s.ForStake
	}
	return s.AgainstStake
}
