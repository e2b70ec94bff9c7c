package types

import (
	"github.com/calehh/hac-gov/coin"
	"github.com/shopspring/decimal"
)

const (
	DocTypeGovernance   = "governance"
	DocTypeOrg          = "org"
	DocTypeProposal     = "proposal"
	DocTypeVoteProposal = "voteProposal"
	DocTypeMember       = "member"
	DocTypeVote         = "vote"
	DocTypeCloseVote    = "closeVote"
)

type Counters struct {
	Orgs      uint64 `json:"orgs"`
	Votes     uint64 `json:"votes"`
	Proposals uint64 `json:"proposals"`
	Members   uint64 `json:"members"`
}

// Governance is the aggregate state of one governance contract instance.
type Governance struct {
	ID          string `json:"id"`
	DocType     string `json:"docType"`
	Owner       string `json:"owner"`
	Space       string `json:"space"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`

	CreateOrgFee      decimal.Decimal `json:"createOrgFee"`
	CreateVoteFee     decimal.Decimal `json:"createVoteFee"`
	CreateProposalFee decimal.Decimal `json:"createProposalFee"`

	CreateOrgFeeValue      coin.Value `json:"createOrgFeeValue"`
	CreateVoteFeeValue     coin.Value `json:"createVoteFeeValue"`
	CreateProposalFeeValue coin.Value `json:"createProposalFeeValue"`

	Counters Counters `json:"counters"`
}

func (g *Governance) Clone() *Governance {
	if g == nil {
		return nil
	}
	c := *g
	c.CreateOrgFeeValue = g.CreateOrgFeeValue.Clone()
	c.CreateVoteFeeValue = g.CreateVoteFeeValue.Clone()
	c.CreateProposalFeeValue = g.CreateProposalFeeValue.Clone()
	return &c
}

type Org struct {
	ID          string          `json:"id"`
	DocType     string          `json:"docType"`
	GovID       string          `json:"govId"`
	Owner       string          `json:"owner"`
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Description string          `json:"description,omitempty"`
	Symbol      string          `json:"symbol"`
	Decimals    int32           `json:"decimals"`
	JoinFee     decimal.Decimal `json:"joinFee"`
	JoinTokens  decimal.Decimal `json:"joinTokens"`
}

// Token is the asset minted to members of the org.
func (o *Org) Token() coin.Asset {
	return coin.Asset{Symbol: o.Symbol, Issuer: o.ID, Decimals: o.Decimals}
}

type Member struct {
	ID          string `json:"id"`
	DocType     string `json:"docType"`
	GovID       string `json:"govId"`
	OrgID       string `json:"orgId"`
	Owner       string `json:"owner"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
}
