package tally

import (
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
)

type Result = types.VoteResult

// Tally sums vote weights per side. Values other than for and against are
// ignored.
func Tally(votes []types.Vote) Result {
	var r Result
	for _, v := range votes {
		switch v.Vote {
		case types.VoteFor:
			r.For += v.Votes
		case types.VoteAgainst:
			r.Against += v.Votes
		}
	}
	return r
}

// FromDocuments decodes vote documents and tallies them in order.
func FromDocuments(docs []space.Document) (Result, error) {
	votes := make([]types.Vote, 0, len(docs))
	for _, doc := range docs {
		var v types.Vote
		if err := space.Decode(doc, &v); err != nil {
			return Result{}, err
		}
		votes = append(votes, v)
	}
	return Tally(votes), nil
}
