package tx

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp is epoch milliseconds. It decodes from a JSON number or an
// RFC 3339 string and always encodes as a number.
type Timestamp int64

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			*t = Timestamp(ms)
			return nil
		}
		tm, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return ErrInvalidTimestamp
		}
		*t = Timestamp(tm.UnixMilli())
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return ErrInvalidTimestamp
	}
	*t = Timestamp(ms)
	return nil
}

func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// Describe carries the display texts shared by most forms.
type Describe struct {
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
}

type StartForm struct {
	Describe
	Space             string          `json:"space"`
	Name              string          `json:"name"`
	CreateOrgFee      decimal.Decimal `json:"createOrgFee"`
	CreateVoteFee     decimal.Decimal `json:"createVoteFee"`
	CreateProposalFee decimal.Decimal `json:"createProposalFee"`
}

type CreateOrgForm struct {
	Describe
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Decimals   int64           `json:"decimals"`
	JoinFee    decimal.Decimal `json:"joinFee"`
	JoinTokens decimal.Decimal `json:"joinTokens"`
}

type CreateProposalForm struct {
	Describe
	Name string `json:"name"`
}

type CreateVoteProposalForm struct {
	Describe
	Name       string          `json:"name"`
	OrgID      string          `json:"orgId"`
	ProposalID string          `json:"proposalId,omitempty"`
	VoteType   string          `json:"voteType"`
	MinVoters  int64           `json:"minVoters"`
	MaxVoters  int64           `json:"maxVoters"`
	VoteStart  Timestamp       `json:"voteStart"`
	VoteEnd    Timestamp       `json:"voteEnd"`
	Stake      decimal.Decimal `json:"stake"`
	WinPercent int64           `json:"winPercent"`
}

type JoinOrgForm struct {
	Describe
	OrgID string `json:"orgId"`
}

type VoteForm struct {
	Describe
	VoteProposalID string `json:"voteProposalId"`
	Vote           string `json:"vote"`
	Votes          int64  `json:"votes"`
}

type GetVoteResultForm struct {
	Describe
	VoteProposalID string `json:"voteProposalId"`
	MaxVoters      int64  `json:"maxVoters"`
}

type ListForm struct {
	Max int64 `json:"max"`
}

type CloseVoteForm struct {
	Describe
	VoteProposalID string `json:"voteProposalId"`
	MaxVoters      int64  `json:"maxVoters"`
}

type ClaimVoteForm struct {
	Describe
	VoteProposalID string `json:"voteProposalId"`
}

type PublishTemplateForm struct {
	Network  string `json:"network"`
	Template []byte `json:"template"`
	Digest   string `json:"digest"`
}
