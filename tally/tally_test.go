package tally

import (
	"testing"

	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
	"github.com/stretchr/testify/require"
)

func TestTally(t *testing.T) {
	cases := []struct {
		name  string
		votes []types.Vote
		want  Result
	}{
		{"empty", nil, Result{}},
		{"majority", []types.Vote{
			{Vote: types.VoteFor, Votes: 1},
			{Vote: types.VoteAgainst, Votes: 1},
			{Vote: types.VoteFor, Votes: 1},
		}, Result{For: 2, Against: 1}},
		{"quadratic", []types.Vote{
			{Vote: types.VoteFor, Votes: 3},
			{Vote: types.VoteAgainst, Votes: 5},
		}, Result{For: 3, Against: 5}},
		{"unknown ignored", []types.Vote{
			{Vote: "abstain", Votes: 9},
			{Vote: types.VoteFor, Votes: 2},
		}, Result{For: 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Tally(c.votes))
		})
	}
}

func TestFromDocuments(t *testing.T) {
	var docs []space.Document
	for _, v := range []types.Vote{
		{ID: "p/vote/0", DocType: types.DocTypeVote, Vote: types.VoteFor, Votes: 4},
		{ID: "p/vote/1", DocType: types.DocTypeVote, Vote: types.VoteAgainst, Votes: 2},
	} {
		doc, err := space.Encode(v)
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	r, err := FromDocuments(docs)
	require.NoError(t, err)
	require.Equal(t, Result{For: 4, Against: 2}, r)
}
