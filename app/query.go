package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const (
	CodeQueryNotFound uint32 = 1
	CodeQueryInvalid  uint32 = 2
	CodeQueryFail     uint32 = 3
	CodeNoQuerier     uint32 = 404
)

func (app *GovApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeNoQuerier
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func queryValue(res *abcitypes.ResponseQuery, v any, height uint64) {
	dat, err := json.Marshal(v)
	if err != nil {
		res.Code = CodeQueryFail
		res.Log = err.Error()
		return
	}
	res.Value = dat
	res.Height = int64(height)
}

// GovernanceQuerier returns the committed aggregate of the contract named by
// the query data.
type GovernanceQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewGovernanceQuerier(db *state.StateDB, logger cmtlog.Logger) (q *GovernanceQuerier) {
	q = &GovernanceQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *GovernanceQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	gov, height, err := q.db.GetGovernance(string(req.Data))
	if err != nil {
		q.logger.Error("query governance fail", "err", err)
		res.Code = CodeQueryFail
		res.Log = err.Error()
		return res, nil
	}
	if gov == nil {
		res.Code = CodeQueryNotFound
		return
	}
	queryValue(res, gov, height)
	return
}

// OutputQuerier lists the unspent outputs of the owner in the query data.
type OutputQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewOutputQuerier(db *state.StateDB, logger cmtlog.Logger) (q *OutputQuerier) {
	q = &OutputQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *OutputQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) == 0 {
		res.Code = CodeQueryInvalid
		res.Log = "no owner"
		return
	}
	recs, height, err := q.db.GetOutputs(string(req.Data), 0)
	if err != nil {
		q.logger.Error("query outputs fail", "err", err)
		res.Code = CodeQueryFail
		res.Log = err.Error()
		return res, nil
	}
	queryValue(res, recs, height)
	return
}

// DocumentQuery is the data of a /documents/ query.
type DocumentQuery struct {
	Space  string         `json:"space"`
	Equals map[string]any `json:"equals"`
	Limit  int            `json:"limit"`
	Facets []string       `json:"facets,omitempty"`
}

type DocumentQuerier struct {
	sp     space.Space
	logger cmtlog.Logger
}

func NewDocumentQuerier(sp space.Space, logger cmtlog.Logger) (q *DocumentQuerier) {
	q = &DocumentQuerier{
		sp:     sp,
		logger: logger,
	}
	return
}

func (q *DocumentQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var dq DocumentQuery
	if err := json.Unmarshal(req.Data, &dq); err != nil {
		res.Code = CodeQueryInvalid
		res.Log = err.Error()
		return res, nil
	}
	if dq.Space == "" {
		res.Code = CodeQueryInvalid
		res.Log = space.ErrEmptySpace.Error()
		return
	}
	result, err := q.sp.FindMany(ctx, dq.Space, space.Query{Equals: dq.Equals, Limit: dq.Limit, Facets: dq.Facets})
	if err != nil {
		q.logger.Error("query documents fail", "space", dq.Space, "err", err)
		res.Code = CodeQueryFail
		res.Log = err.Error()
		return res, nil
	}
	queryValue(res, result, 0)
	return
}

// TemplateQuerier lists the templates published by the deployer in the query
// data.
type TemplateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewTemplateQuerier(db *state.StateDB, logger cmtlog.Logger) (q *TemplateQuerier) {
	q = &TemplateQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *TemplateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	recs, height, err := q.db.GetTemplates(string(req.Data))
	if err != nil {
		q.logger.Error("query templates fail", "err", err)
		res.Code = CodeQueryFail
		res.Log = err.Error()
		return res, nil
	}
	queryValue(res, recs, height)
	return
}
