package handler

import (
	"context"

	"github.com/calehh/hac-gov/contract"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// Result codes of a delivered tx.
const (
	CodeOK           uint32 = 0
	CodeValidation          = uint32(contract.KindValidation)
	CodePrecondition        = uint32(contract.KindPrecondition)
	CodePort                = uint32(contract.KindPort)
	CodeMalformed    uint32 = 4
)

// Exec is what a block shares between its txs. Space buffers the documents
// written by the block until Commit.
type Exec struct {
	Space  space.Space
	TxHash string
}

type TxHandler interface {
	Check(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error)
	NewContext(ctx context.Context)
	Process(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error)
}

// CodeOf maps an action error to a result code. Errors not raised by the
// contract are port failures.
func CodeOf(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	if k := contract.KindOf(err); k != 0 {
		return uint32(k)
	}
	return CodePort
}

func failed(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{Code: CodeOf(err), Log: err.Error()}
}

// check runs a handler on a scratch copy of st and a scratch overlay so nothing
// it writes survives.
func check(ctx context.Context, h TxHandler, st *state.State, ex *Exec, btx *tx.GovTx) (*abcitypes.ResponseCheckTx, error) {
	scratch := &Exec{Space: space.NewOverlay(ex.Space), TxHash: ex.TxHash}
	res, err := h.Process(ctx, st.Clone(), scratch, btx)
	if err != nil {
		return nil, err
	}
	return &abcitypes.ResponseCheckTx{Code: res.Code, Log: res.Log, Data: res.Data}, nil
}
