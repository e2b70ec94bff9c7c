package types

import "github.com/calehh/hac-gov/space"

// Schema is registered for a governance space when the contract starts.
func Schema() space.Schema {
	return space.Schema{
		"id":                {Type: space.Keyword},
		"name":              {Type: space.Keyword},
		"title":             {Type: space.Text},
		"subtitle":          {Type: space.Text},
		"description":       {Type: space.Text},
		"docType":           {Type: space.Keyword},
		"owner":             {Type: space.Keyword},
		"govId":             {Type: space.Keyword},
		"space":             {Type: space.Keyword},
		"createOrgFee":      {Type: space.Long},
		"createProposalFee": {Type: space.Long},
		"createVoteFee":     {Type: space.Long},
		"symbol":            {Type: space.Keyword},
		"decimals":          {Type: space.Int},
		"joinFee":           {Type: space.Long},
		"joinTokens":        {Type: space.Long},
		"voteProposalId":    {Type: space.Keyword},
		"orgId":             {Type: space.Keyword},
		"proposalId":        {Type: space.Keyword},
		"minVoters":         {Type: space.Long},
		"maxVoters":         {Type: space.Long},
		"voteStart":         {Type: space.Long},
		"voteEnd":           {Type: space.Long},
		"stake":             {Type: space.Long},
		"winPercent":        {Type: space.Long},
		"voteType":          {Type: space.Keyword},
		"memberId":          {Type: space.Keyword},
		"vote":              {Type: space.Text, Facet: true},
		"votes":             {Type: space.Long},
		"for":               {Type: space.Long},
		"against":           {Type: space.Long},
		"forStake":          {Type: space.Float},
		"againstStake":      {Type: space.Float},
	}
}
