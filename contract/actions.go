package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/settle"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/tally"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	"github.com/shopspring/decimal"
)

func (c *Contract) fee(name string, amount decimal.Decimal) (coin.Value, error) {
	if amount.IsNegative() {
		return coin.Value{}, Validationf("%s must be >= 0", name)
	}
	v, err := c.native.Units(amount)
	if err != nil {
		return coin.Value{}, Validationf("%s: %v", name, err)
	}
	return v, nil
}

// Start initializes the contract: fees, document schema and the governance
// document.
func (c *Contract) Start(ctx context.Context, gov *types.Governance, form tx.StartForm, actx ActionContext) (*Result, error) {
	if gov != nil {
		return nil, Preconditionf(ErrAlreadyStarted, "contract %s", actx.Contract)
	}
	orgFee, err := c.fee("createOrgFee", form.CreateOrgFee)
	if err != nil {
		return nil, err
	}
	voteFee, err := c.fee("createVoteFee", form.CreateVoteFee)
	if err != nil {
		return nil, err
	}
	proposalFee, err := c.fee("createProposalFee", form.CreateProposalFee)
	if err != nil {
		return nil, err
	}
	if form.Name == "" {
		return nil, Validationf("name is required")
	}
	if form.Space == "" {
		return nil, Validationf("space is required")
	}

	st := &types.Governance{
		ID:                     actx.Contract,
		DocType:                types.DocTypeGovernance,
		Owner:                  actx.Caller,
		Space:                  form.Space,
		Name:                   form.Name,
		Title:                  form.Title,
		Subtitle:               form.Subtitle,
		Description:            form.Description,
		CreateOrgFee:           form.CreateOrgFee,
		CreateVoteFee:          form.CreateVoteFee,
		CreateProposalFee:      form.CreateProposalFee,
		CreateOrgFeeValue:      orgFee,
		CreateVoteFeeValue:     voteFee,
		CreateProposalFeeValue: proposalFee,
	}
	if err := c.space.RegisterSchema(ctx, st.Space, types.Schema()); err != nil {
		return nil, PortErr(err, "register schema")
	}
	doc, err := c.create(ctx, st.Space, st)
	if err != nil {
		return nil, err
	}
	c.logger.Info("governance started", "contract", st.ID, "space", st.Space, "owner", st.Owner)
	return &Result{
		State:   st,
		Changed: true,
		Outputs: []coin.Output{coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeStart), form.Subtitle, doc)},
	}, nil
}

func (c *Contract) CreateOrg(ctx context.Context, gov *types.Governance, form tx.CreateOrgForm, inputs []coin.Input, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if form.Decimals < 0 || form.Decimals > MaxDecimals {
		return nil, Validationf("decimals must be within [0, %d]", MaxDecimals)
	}
	if _, err := c.fee("joinFee", form.JoinFee); err != nil {
		return nil, err
	}
	if form.JoinTokens.IsNegative() {
		return nil, Validationf("joinTokens must be >= 0")
	}
	if _, err := coin.ToBaseUnits(form.JoinTokens, int32(form.Decimals)); err != nil {
		return nil, Validationf("joinTokens: %v", err)
	}
	if form.Name == "" {
		return nil, Validationf("name is required")
	}
	if form.Symbol == "" {
		return nil, Validationf("symbol is required")
	}
	if err := inputCount(inputs, 1); err != nil {
		return nil, err
	}
	if err := c.payExact(inputs[0], gov.CreateOrgFeeValue, "createOrgFee"); err != nil {
		return nil, err
	}

	st := gov.Clone()
	org := types.Org{
		ID:          docID("%s/org/%d", gov.Name, st.Counters.Orgs),
		DocType:     types.DocTypeOrg,
		GovID:       gov.ID,
		Owner:       actx.Caller,
		Name:        form.Name,
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Description: form.Description,
		Symbol:      form.Symbol,
		Decimals:    int32(form.Decimals),
		JoinFee:     form.JoinFee,
		JoinTokens:  form.JoinTokens,
	}
	doc, err := c.create(ctx, gov.Space, org)
	if err != nil {
		return nil, err
	}
	st.Counters.Orgs++
	return &Result{
		State:   st,
		Changed: true,
		Outputs: []coin.Output{coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeCreateOrg), form.Subtitle, doc)},
		Spent:   inputs,
	}, nil
}

func (c *Contract) CreateProposal(ctx context.Context, gov *types.Governance, form tx.CreateProposalForm, inputs []coin.Input, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if err := inputCount(inputs, 1); err != nil {
		return nil, err
	}
	if err := c.payExact(inputs[0], gov.CreateProposalFeeValue, "createProposalFee"); err != nil {
		return nil, err
	}

	st := gov.Clone()
	p := types.Proposal{
		ID:          docID("%s/proposal/%d", gov.Name, st.Counters.Proposals),
		DocType:     types.DocTypeProposal,
		GovID:       gov.ID,
		Owner:       actx.Caller,
		Name:        form.Name,
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Description: form.Description,
	}
	doc, err := c.create(ctx, gov.Space, p)
	if err != nil {
		return nil, err
	}
	st.Counters.Proposals++
	return &Result{
		State:   st,
		Changed: true,
		Outputs: []coin.Output{coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeCreateProposal), form.Subtitle, doc)},
		Spent:   inputs,
	}, nil
}

func (c *Contract) CreateVoteProposal(ctx context.Context, gov *types.Governance, form tx.CreateVoteProposalForm, inputs []coin.Input, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if form.MinVoters < 0 {
		return nil, Validationf("minVoters must be >= 0")
	}
	if form.MaxVoters < 0 {
		return nil, Validationf("maxVoters must be >= 0")
	}
	if _, err := c.fee("stake", form.Stake); err != nil {
		return nil, err
	}
	voteType := types.VoteType(form.VoteType)
	if !voteType.Valid() {
		return nil, Validationf("voteType must be %s or %s", types.VoteTypeMajority, types.VoteTypeQuadratic)
	}
	if form.WinPercent <= 0 || form.WinPercent > 100 {
		return nil, Validationf("winPercent must be within (0, 100]")
	}
	if form.VoteEnd <= form.VoteStart {
		return nil, Validationf("voteEnd must be after voteStart")
	}
	if err := inputCount(inputs, 1); err != nil {
		return nil, err
	}
	if err := c.payExact(inputs[0], gov.CreateVoteFeeValue, "createVoteFee"); err != nil {
		return nil, err
	}
	var org types.Org
	ok, err := c.find(ctx, gov, form.OrgID, types.DocTypeOrg, &org)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Preconditionf(ErrNotFound, "org %s", form.OrgID)
	}

	st := gov.Clone()
	vp := types.VoteProposal{
		ID:          docID("%s/vote/%d", gov.Name, st.Counters.Votes),
		DocType:     types.DocTypeVoteProposal,
		GovID:       gov.ID,
		Owner:       actx.Caller,
		Name:        form.Name,
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Description: form.Description,
		OrgID:       org.ID,
		ProposalID:  form.ProposalID,
		Symbol:      org.Symbol,
		Decimals:    org.Decimals,
		VoteType:    voteType,
		MinVoters:   form.MinVoters,
		MaxVoters:   form.MaxVoters,
		VoteStart:   int64(form.VoteStart),
		VoteEnd:     int64(form.VoteEnd),
		Stake:       form.Stake,
		WinPercent:  form.WinPercent,
	}
	doc, err := c.create(ctx, gov.Space, vp)
	if err != nil {
		return nil, err
	}
	st.Counters.Votes++
	return &Result{
		State:   st,
		Changed: true,
		Outputs: []coin.Output{coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeCreateVote), form.Subtitle, doc)},
		Spent:   inputs,
	}, nil
}

// JoinOrg makes the caller a member and mints the org join tokens to them.
// Member ids are numbered per org.
func (c *Contract) JoinOrg(ctx context.Context, gov *types.Governance, form tx.JoinOrgForm, inputs []coin.Input, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if err := inputCount(inputs, 1); err != nil {
		return nil, err
	}
	var org types.Org
	ok, err := c.find(ctx, gov, form.OrgID, types.DocTypeOrg, &org)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Preconditionf(ErrNotFound, "org %s", form.OrgID)
	}
	joinFee, err := c.native.Units(org.JoinFee)
	if err != nil {
		return nil, Preconditionf(err, "org %s join fee", org.ID)
	}
	if err := c.payExact(inputs[0], joinFee, "joinFee"); err != nil {
		return nil, err
	}
	tokens, err := org.Token().Units(org.JoinTokens)
	if err != nil {
		return nil, Preconditionf(err, "org %s join tokens", org.ID)
	}

	// member ids count per org; the governance counter spans every org
	joined, err := c.query(ctx, gov, map[string]any{
		space.FieldDocType: types.DocTypeMember,
		"orgId":            org.ID,
	}, 1)
	if err != nil {
		return nil, err
	}

	st := gov.Clone()
	m := types.Member{
		ID:          docID("%s/member/%d", org.ID, joined.TotalHits),
		DocType:     types.DocTypeMember,
		GovID:       gov.ID,
		OrgID:       org.ID,
		Owner:       actx.Caller,
		Title:       form.Title,
		Subtitle:    form.Subtitle,
		Description: form.Description,
	}
	doc, err := c.create(ctx, gov.Space, m)
	if err != nil {
		return nil, err
	}
	minted, err := c.ledger.Mint(actx.Caller, tokens, doc)
	if err != nil {
		return nil, PortErr(err, "mint join tokens")
	}
	st.Counters.Members++
	return &Result{
		State:   st,
		Changed: true,
		Outputs: []coin.Output{coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeJoinOrg), form.Subtitle, doc)},
		Minted:  []coin.Output{minted},
		Spent:   inputs,
	}, nil
}

// Vote records one member vote. inputs[0] pays the stake, inputs[1] holds the
// org tokens spent on vote weight; what is left of it comes back as change.
func (c *Contract) Vote(ctx context.Context, gov *types.Governance, form tx.VoteForm, inputs []coin.Input, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if err := inputCount(inputs, 2); err != nil {
		return nil, err
	}
	side := types.VoteValue(form.Vote)
	if !side.Valid() {
		return nil, Validationf("vote must be %s or %s", types.VoteFor, types.VoteAgainst)
	}
	var vp types.VoteProposal
	ok, err := c.find(ctx, gov, form.VoteProposalID, types.DocTypeVoteProposal, &vp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Preconditionf(ErrNotFound, "vote proposal %s", form.VoteProposalID)
	}
	if !vp.Open(actx.Now) {
		return nil, Preconditionf(ErrVoteNotOpen, "vote runs from %d to %d, now %d", vp.VoteStart, vp.VoteEnd, actx.Now)
	}
	members, err := c.query(ctx, gov, map[string]any{
		space.FieldDocType: types.DocTypeMember,
		"orgId":            vp.OrgID,
		"owner":            actx.Caller,
	}, 1)
	if err != nil {
		return nil, err
	}
	if members.TotalHits == 0 || len(members.Hits) == 0 {
		return nil, Preconditionf(ErrNotMember, "org %s", vp.OrgID)
	}
	memberID := members.Hits[0].String(space.FieldID)
	voteID := docID("%s/vote/%s", vp.ID, memberID)
	voted, err := c.exists(ctx, gov, voteID, types.DocTypeVote)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, Preconditionf(ErrDuplicateVote, "member %s on %s", memberID, vp.ID)
	}
	stake, err := c.native.Units(vp.Stake)
	if err != nil {
		return nil, Preconditionf(err, "vote proposal %s stake", vp.ID)
	}
	if err := c.payExact(inputs[0], stake, "stake"); err != nil {
		return nil, err
	}

	var cost int64
	switch vp.VoteType {
	case types.VoteTypeMajority:
		if form.Votes != 1 {
			return nil, Validationf("majority vote takes exactly 1 vote")
		}
		cost = 1
	case types.VoteTypeQuadratic:
		if form.Votes < 1 {
			return nil, Validationf("votes must be >= 1")
		}
		cost = form.Votes * form.Votes
		if cost/form.Votes != form.Votes {
			return nil, Validationf("votes too large")
		}
	default:
		return nil, Preconditionf(nil, "vote proposal %s has vote type %q", vp.ID, vp.VoteType)
	}
	token := coin.Asset{Symbol: vp.Symbol, Issuer: vp.OrgID, Decimals: vp.Decimals}
	required := token.Value(new(big.Int).Mul(big.NewInt(cost), coin.Scale(vp.Decimals)))
	if err := c.ledger.VerifyAtLeast(inputs[1], required); err != nil {
		return nil, Preconditionf(err, "vote costs %d tokens", cost)
	}

	v := types.Vote{
		ID:             voteID,
		DocType:        types.DocTypeVote,
		GovID:          gov.ID,
		MemberID:       memberID,
		VoteProposalID: vp.ID,
		Owner:          actx.Caller,
		Vote:           side,
		Votes:          form.Votes,
		Title:          form.Title,
		Subtitle:       form.Subtitle,
	}
	doc, err := c.create(ctx, gov.Space, v)
	if err != nil {
		return nil, err
	}
	change, err := c.ledger.Change(inputs[1], required.Amount)
	if err != nil {
		return nil, PortErr(err, "token change")
	}
	change.Title = title(form.Describe, tx.GovTxTypeVote)
	change.Subtitle = fmt.Sprintf("%s %d", side, form.Votes)
	change.Payload = doc
	return &Result{
		State:   gov,
		Outputs: []coin.Output{change},
		Spent:   inputs,
	}, nil
}

func (c *Contract) votes(ctx context.Context, gov *types.Governance, voteProposalID string, maxVoters int64) (tally.Result, error) {
	res, err := c.query(ctx, gov, map[string]any{
		space.FieldDocType: types.DocTypeVote,
		"voteProposalId":   voteProposalID,
	}, maxVoters)
	if err != nil {
		return tally.Result{}, err
	}
	r, err := tally.FromDocuments(res.Hits)
	if err != nil {
		return tally.Result{}, PortErr(err, "decode votes")
	}
	return r, nil
}

// GetVoteResult tallies at most maxVoters votes. It changes nothing.
func (c *Contract) GetVoteResult(ctx context.Context, gov *types.Governance, form tx.GetVoteResultForm, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if form.MaxVoters < MinTallyVoters {
		return nil, Validationf("maxVoters must be >= %d", MinTallyVoters)
	}
	r, err := c.votes(ctx, gov, form.VoteProposalID, form.MaxVoters)
	if err != nil {
		return nil, err
	}
	out := coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeGetVoteResult), fmt.Sprintf("for %d, against %d", r.For, r.Against), r)
	return &Result{State: gov, Outputs: []coin.Output{out}}, nil
}

func (c *Contract) list(ctx context.Context, gov *types.Governance, docType string, form tx.ListForm) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if form.Max < 1 {
		return nil, Validationf("max must be >= 1")
	}
	res, err := c.query(ctx, gov, map[string]any{space.FieldDocType: docType}, form.Max)
	if err != nil {
		return nil, err
	}
	return &Result{State: gov, View: res.Hits}, nil
}

func (c *Contract) ListOrgs(ctx context.Context, gov *types.Governance, form tx.ListForm) (*Result, error) {
	return c.list(ctx, gov, types.DocTypeOrg, form)
}

func (c *Contract) ListProposals(ctx context.Context, gov *types.Governance, form tx.ListForm) (*Result, error) {
	return c.list(ctx, gov, types.DocTypeProposal, form)
}

func (c *Contract) ListVoteProposals(ctx context.Context, gov *types.Governance, form tx.ListForm) (*Result, error) {
	return c.list(ctx, gov, types.DocTypeVoteProposal, form)
}

// SettlementID is the id of the closeVote document of a vote proposal.
func SettlementID(voteProposalID string) string {
	return voteProposalID + "/closed"
}

// CloseVote settles an ended vote proposal. Only its owner may close it, and
// only once.
func (c *Contract) CloseVote(ctx context.Context, gov *types.Governance, form tx.CloseVoteForm, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	if form.MaxVoters < MinTallyVoters {
		return nil, Validationf("maxVoters must be >= %d", MinTallyVoters)
	}
	closed, err := c.exists(ctx, gov, SettlementID(form.VoteProposalID), types.DocTypeCloseVote)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, Preconditionf(ErrAlreadyClosed, "vote proposal %s", form.VoteProposalID)
	}
	var vp types.VoteProposal
	ok, err := c.find(ctx, gov, form.VoteProposalID, types.DocTypeVoteProposal, &vp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Preconditionf(ErrNotFound, "vote proposal %s", form.VoteProposalID)
	}
	if vp.Owner != actx.Caller {
		return nil, Preconditionf(ErrNotOwner, "vote proposal %s", vp.ID)
	}
	if actx.Now <= vp.VoteEnd {
		return nil, Preconditionf(ErrVoteNotEnded, "vote ends at %d, now %d", vp.VoteEnd, actx.Now)
	}
	r, err := c.votes(ctx, gov, vp.ID, form.MaxVoters)
	if err != nil {
		return nil, err
	}
	s := settle.Compute(r, vp.Stake, vp.WinPercent)
	doc, err := c.create(ctx, gov.Space, types.Settlement{
		VoteProposal:   vp,
		ID:             SettlementID(vp.ID),
		DocType:        types.DocTypeCloseVote,
		VoteProposalID: vp.ID,
		For:            r.For,
		Against:        r.Against,
		ForStake:       s.ForRate,
		AgainstStake:   s.AgainstRate,
		ClosedAt:       actx.Now,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("vote closed", "voteProposal", vp.ID, "for", r.For, "against", r.Against,
		"forRate", s.ForRate.String(), "againstRate", s.AgainstRate.String())
	out := coin.Receipt(actx.Caller, title(form.Describe, tx.GovTxTypeCloseVote), fmt.Sprintf("for %d, against %d", r.For, r.Against), doc)
	return &Result{State: gov, Outputs: []coin.Output{out}}, nil
}

// ClaimVote pays the caller the settled rate of the side they voted on. It
// records nothing, so every call pays again.
func (c *Contract) ClaimVote(ctx context.Context, gov *types.Governance, form tx.ClaimVoteForm, actx ActionContext) (*Result, error) {
	if err := started(gov); err != nil {
		return nil, err
	}
	var s types.Settlement
	ok, err := c.find(ctx, gov, SettlementID(form.VoteProposalID), types.DocTypeCloseVote, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Preconditionf(ErrNotClosed, "vote proposal %s", form.VoteProposalID)
	}
	res, err := c.query(ctx, gov, map[string]any{
		space.FieldDocType: types.DocTypeVote,
		"voteProposalId":   form.VoteProposalID,
		"owner":            actx.Caller,
	}, 2)
	if err != nil {
		return nil, err
	}
	if res.TotalHits != 1 || len(res.Hits) != 1 {
		return nil, Preconditionf(ErrNoVote, "found %d votes on %s", res.TotalHits, form.VoteProposalID)
	}
	var v types.Vote
	if err := space.Decode(res.Hits[0], &v); err != nil {
		return nil, PortErr(err, "decode vote")
	}
	rate := s.Rate(v.Vote)
	amount, err := coin.TruncateToBaseUnits(rate, c.native.Decimals)
	if err != nil {
		return nil, Preconditionf(err, "settled rate %s", rate)
	}
	out := coin.Pay(actx.Caller, c.native.Value(amount), title(form.Describe, tx.GovTxTypeClaimVote), form.Subtitle, map[string]any{
		"voteProposalId": s.VoteProposalID,
		"vote":           v.ID,
		"side":           v.Vote,
		"rate":           rate.String(),
	})
	return &Result{State: gov, Outputs: []coin.Output{out}}, nil
}
