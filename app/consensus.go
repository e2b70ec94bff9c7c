package app

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmttypes "github.com/cometbft/cometbft/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoBlock             = errors.New("commit without finalized block")
)

func txHash(stx []byte) string {
	return hex.EncodeToString(cmttypes.Tx(stx).Hash())
}

// blockState starts the state of the next block at the given time.
func (app *GovApp) blockState(ms int64) (st *state.State) {
	st = app.db.NewState()
	st.SetBlockTime(ms)
	return
}

func (app *GovApp) parseTx(txDat []byte) (btx *tx.GovTx, h handler.TxHandler, err error) {
	btx, err = tx.UnmarshalGovTx(txDat)
	if err != nil {
		return
	}
	if err = btx.Verify(app.db.Header().ChainId); err != nil {
		return nil, nil, err
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return nil, nil, tx.ErrUnsupportedTxType
	}
	return
}

func malformed(err error) *abcitypes.ExecTxResult {
	return &abcitypes.ExecTxResult{Code: handler.CodeMalformed, Log: err.Error()}
}

func (app *GovApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	btx, h, err := app.parseTx(check.Tx)
	if err != nil {
		app.logger.Debug("parse tx fail", "err", err)
		return &abcitypes.ResponseCheckTx{Code: handler.CodeMalformed, Log: err.Error()}, nil
	}
	ex := &handler.Exec{Space: app.store, TxHash: txHash(check.Tx)}
	res, err = h.Check(ctx, app.db.NewState(), ex, btx)
	if err != nil {
		app.logger.Error("check tx fail", "type", btx.Type, "err", err)
		return &abcitypes.ResponseCheckTx{Code: handler.CodePort, Log: err.Error()}, nil
	}
	return
}

// PrepareProposal keeps the txs that would succeed in order, each one seeing
// the writes of those kept before it.
func (app *GovApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	st := app.blockState(proposal.Time.UnixMilli())
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	block := space.NewOverlay(app.store)
	var size int64
	txs := make([][]byte, 0, len(proposal.Txs))
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		btx, h, err := app.parseTx(stx)
		if err != nil {
			app.logger.Info("drop tx, parse fail", "err", err)
			continue
		}
		stTmp := st.Clone()
		scratch := space.NewOverlay(block)
		result, err := h.Process(ctx, stTmp, &handler.Exec{Space: scratch, TxHash: txHash(stx)}, btx)
		if err != nil {
			app.logger.Error("prepare tx fail", "type", btx.Type, "err", err)
			continue
		}
		if result.Code != handler.CodeOK {
			app.logger.Info("drop tx", "type", btx.Type, "code", result.Code, "log", result.Log)
			continue
		}
		if err = scratch.Merge(ctx); err != nil {
			app.logger.Error("prepare tx merge fail", "type", btx.Type, "err", err)
			continue
		}
		st = stTmp
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal rejects blocks carrying txs that cannot be decoded or are
// not signed by their caller. Txs that fail on execution are kept and
// reported by FinalizeBlock.
func (app *GovApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	for _, stx := range proposal.Txs {
		if _, _, err := app.parseTx(stx); err != nil {
			app.logger.Error("reject proposal", "height", proposal.Height, "err", err)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *GovApp) finalize(ctx context.Context, st *state.State, block *space.Overlay, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, h, err := app.parseTx(stx)
		if err != nil {
			res[i] = malformed(err)
			continue
		}
		result, err := h.Process(ctx, st, &handler.Exec{Space: block, TxHash: txHash(stx)}, btx)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return nil, ErrUnexpectedTxProcess
		}
		if result == nil {
			app.logger.Error("unexpected process tx nil result", "type", btx.Type)
			return nil, ErrUnexpectedTxProcess
		}
		if result.Code != handler.CodeOK {
			app.logger.Info("tx failed", "type", btx.Type, "code", result.Code, "log", result.Log)
		}
		res[i] = result
	}
	return
}

func (app *GovApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.blockState(req.Time.UnixMilli())
	if st.Height() != uint64(req.Height) {
		app.logger.Error("unexpected block height", "state", st.Height(), "block", req.Height)
	}
	block := space.NewOverlay(app.store)
	res, err := app.finalize(ctx, st, block, req.Txs)
	if err != nil {
		return nil, err
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	app.block = block
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

// Commit flushes the documents of the block to the space store before the
// state version is saved.
func (app *GovApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil || app.block == nil {
		return nil, ErrNoBlock
	}
	if err := app.block.Commit(ctx); err != nil {
		app.logger.Error("commit space fail", "height", app.st.Height(), "err", err)
		return nil, err
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.logger.Info("Commit", "height", app.st.Height())
	app.st = nil
	app.block = nil
	return &abcitypes.ResponseCommit{}, nil
}
