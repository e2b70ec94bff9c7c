package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const (
	DefaultPortTimeout = 5 * time.Second

	MaxDecimals      = 36
	MinTallyVoters   = 10
	DefaultListLimit = 100
)

type Options struct {
	Native  coin.Asset
	Timeout time.Duration
}

// ActionContext describes who runs an action, on which contract and when.
// Now is epoch milliseconds.
type ActionContext struct {
	Contract string
	Caller   string
	Now      int64
	Tags     map[string]string
}

type Action struct {
	Type   tx.GovTxType
	Form   any
	Inputs []coin.Input
}

// Result is what a successful action hands back. State is the aggregate after
// the action; Changed is false for read-only actions. View is never persisted.
type Result struct {
	State   *types.Governance
	Changed bool
	Outputs []coin.Output
	Minted  []coin.Output
	Spent   []coin.Input
	View    []space.Document
}

// Contract is the governance state machine. It never mutates the aggregate it
// is given and writes documents only after every check has passed.
type Contract struct {
	logger  cmtlog.Logger
	space   space.Space
	ledger  coin.Ledger
	native  coin.Asset
	timeout time.Duration
}

func New(sp space.Space, ledger coin.Ledger, opts Options, logger cmtlog.Logger) *Contract {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPortTimeout
	}
	return &Contract{
		logger:  logger.With("module", "contract"),
		space:   sp,
		ledger:  ledger,
		native:  opts.Native,
		timeout: opts.Timeout,
	}
}

func (c *Contract) Native() coin.Asset {
	return c.native
}

func formOf[F any](form any) (f F, err error) {
	switch v := form.(type) {
	case F:
		return v, nil
	case *F:
		if v != nil {
			return *v, nil
		}
	}
	return f, Validationf("unexpected form %T", form)
}

// Apply runs one action. Port calls share a single deadline.
func (c *Contract) Apply(ctx context.Context, gov *types.Governance, act Action, actx ActionContext) (res *Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	c.logger.Debug("apply action", "type", act.Type, "contract", actx.Contract, "caller", actx.Caller)
	switch act.Type {
	case tx.GovTxTypeStart:
		var f tx.StartForm
		if f, err = formOf[tx.StartForm](act.Form); err == nil {
			res, err = c.Start(ctx, gov, f, actx)
		}
	case tx.GovTxTypeCreateOrg:
		var f tx.CreateOrgForm
		if f, err = formOf[tx.CreateOrgForm](act.Form); err == nil {
			res, err = c.CreateOrg(ctx, gov, f, act.Inputs, actx)
		}
	case tx.GovTxTypeCreateProposal:
		var f tx.CreateProposalForm
		if f, err = formOf[tx.CreateProposalForm](act.Form); err == nil {
			res, err = c.CreateProposal(ctx, gov, f, act.Inputs, actx)
		}
	case tx.GovTxTypeCreateVote:
		var f tx.CreateVoteProposalForm
		if f, err = formOf[tx.CreateVoteProposalForm](act.Form); err == nil {
			res, err = c.CreateVoteProposal(ctx, gov, f, act.Inputs, actx)
		}
	case tx.GovTxTypeJoinOrg:
		var f tx.JoinOrgForm
		if f, err = formOf[tx.JoinOrgForm](act.Form); err == nil {
			res, err = c.JoinOrg(ctx, gov, f, act.Inputs, actx)
		}
	case tx.GovTxTypeVote:
		var f tx.VoteForm
		if f, err = formOf[tx.VoteForm](act.Form); err == nil {
			res, err = c.Vote(ctx, gov, f, act.Inputs, actx)
		}
	case tx.GovTxTypeGetVoteResult:
		var f tx.GetVoteResultForm
		if f, err = formOf[tx.GetVoteResultForm](act.Form); err == nil {
			res, err = c.GetVoteResult(ctx, gov, f, actx)
		}
	case tx.GovTxTypeListOrgs:
		var f tx.ListForm
		if f, err = formOf[tx.ListForm](act.Form); err == nil {
			res, err = c.ListOrgs(ctx, gov, f)
		}
	case tx.GovTxTypeListProposals:
		var f tx.ListForm
		if f, err = formOf[tx.ListForm](act.Form); err == nil {
			res, err = c.ListProposals(ctx, gov, f)
		}
	case tx.GovTxTypeListVoteProposals:
		var f tx.ListForm
		if f, err = formOf[tx.ListForm](act.Form); err == nil {
			res, err = c.ListVoteProposals(ctx, gov, f)
		}
	case tx.GovTxTypeCloseVote:
		var f tx.CloseVoteForm
		if f, err = formOf[tx.CloseVoteForm](act.Form); err == nil {
			res, err = c.CloseVote(ctx, gov, f, actx)
		}
	case tx.GovTxTypeClaimVote:
		var f tx.ClaimVoteForm
		if f, err = formOf[tx.ClaimVoteForm](act.Form); err == nil {
			res, err = c.ClaimVote(ctx, gov, f, actx)
		}
	default:
		err = &Error{Kind: KindValidation, Msg: string(act.Type), Err: ErrUnknownAction}
	}
	if err != nil {
		c.logger.Debug("action failed", "type", act.Type, "err", err)
		return nil, err
	}
	return res, nil
}

func started(gov *types.Governance) error {
	if gov == nil {
		return Preconditionf(ErrNotStarted, "start the contract first")
	}
	return nil
}

func inputCount(inputs []coin.Input, n int) error {
	if len(inputs) != n {
		return Preconditionf(ErrInputCount, "want %d inputs, got %d", n, len(inputs))
	}
	return nil
}

func (c *Contract) payExact(in coin.Input, required coin.Value, what string) error {
	if err := c.ledger.VerifyExact(in, required); err != nil {
		return Preconditionf(err, "%s must be paid exactly", what)
	}
	return nil
}

func title(d tx.Describe, action tx.GovTxType) string {
	if d.Title != "" {
		return d.Title
	}
	return string(action)
}

// find loads the document of gov with the given id and type into v. It
// reports false when the document is missing or belongs to another contract.
func (c *Contract) find(ctx context.Context, gov *types.Governance, id, docType string, v any) (bool, error) {
	doc, err := c.space.FindOne(ctx, gov.Space, space.Key{ID: id, Type: docType})
	if err != nil {
		return false, PortErr(err, "find "+docType)
	}
	if doc == nil || doc.String("govId") != gov.ID {
		return false, nil
	}
	if err := space.Decode(doc, v); err != nil {
		return false, PortErr(err, "decode "+docType)
	}
	return true, nil
}

func (c *Contract) exists(ctx context.Context, gov *types.Governance, id, docType string) (bool, error) {
	doc, err := c.space.FindOne(ctx, gov.Space, space.Key{ID: id, Type: docType})
	if err != nil {
		return false, PortErr(err, "find "+docType)
	}
	return doc != nil, nil
}

// create writes a new document. An existing key fails the action.
func (c *Contract) create(ctx context.Context, spaceName string, v any) (space.Document, error) {
	doc, err := space.Encode(v)
	if err != nil {
		return nil, PortErr(err, "encode document")
	}
	if ins, ok := c.space.(space.Inserter); ok {
		err = ins.PutNew(ctx, spaceName, doc)
	} else {
		err = c.space.Put(ctx, spaceName, doc)
	}
	if err != nil {
		return nil, PortErr(err, "write "+doc.String(space.FieldDocType))
	}
	return doc, nil
}

func (c *Contract) query(ctx context.Context, gov *types.Governance, equals map[string]any, limit int64) (*space.Result, error) {
	eq := make(map[string]any, len(equals)+1)
	for k, v := range equals {
		eq[k] = v
	}
	eq["govId"] = gov.ID
	res, err := c.space.FindMany(ctx, gov.Space, space.Query{Equals: eq, Limit: int(limit)})
	if err != nil {
		return nil, PortErr(err, "query documents")
	}
	return res, nil
}

func docID(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
