package app

import (
	"context"
	"fmt"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/config"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/space/sqlite"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/tx/handler"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &GovApp{}

type GovApp struct {
	cfg    *config.AppConfig
	logger cmtlog.Logger

	db       *state.StateDB
	store    *sqlite.Store
	lastBlk  finalizeBlock
	txHdlrs  map[tx.GovTxType]handler.TxHandler
	queriers map[string]Querier

	st    *state.State
	block *space.Overlay
}

func NewGovApp(cfg *config.AppConfig, logger cmtlog.Logger) (app *GovApp, err error) {
	logger = logger.With("module", "app")
	if err = cfg.ValidateBasic(); err != nil {
		return nil, err
	}

	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}
	sp, err := sqlite.Open(cfg.SpaceDBPath(), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return newGovApp(cfg, db, sp, logger), nil
}

func newGovApp(cfg *config.AppConfig, db *state.StateDB, sp *sqlite.Store, logger cmtlog.Logger) (app *GovApp) {
	app = &GovApp{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    sp,
		txHdlrs:  make(map[tx.GovTxType]handler.TxHandler),
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return
}

// Space is the committed document space.
func (app *GovApp) Space() space.Space {
	return app.store
}

func (app *GovApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *GovApp) Stop() {
	if err := app.store.Close(); err != nil {
		app.logger.Error("close space fail", "err", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("governance app stopped")
}

func (app *GovApp) registerTxHandler() {
	actions := handler.NewActionTxHandler(coin.NewBasicLedger(), app.cfg.ContractOptions(), app.logger)
	for _, tp := range tx.ContractActions {
		app.txHdlrs[tp] = actions
	}
	app.txHdlrs[tx.GovTxTypePublishTemplate] = handler.NewTemplateTxHandler(app.logger)
}

func (app *GovApp) registerQuerier() {
	app.queriers["/governance/"] = NewGovernanceQuerier(app.db, app.logger)
	app.queriers["/outputs/"] = NewOutputQuerier(app.db, app.logger)
	app.queriers["/documents/"] = NewDocumentQuerier(app.store, app.logger)
	app.queriers["/templates/"] = NewTemplateQuerier(app.db, app.logger)
}

// InitChain pays the genesis allocations as native outputs of the "genesis" tx.
func (app *GovApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	appState, err := types.ParseAppState(chain.AppStateBytes)
	if err != nil {
		app.logger.Error("InitChain parse app state fail", "err", err)
		return nil, err
	}
	native := app.cfg.Native()
	outs := make([]coin.Output, 0, len(appState.Allocations))
	for i, a := range appState.Allocations {
		v, err := native.Units(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: %w", i, err)
		}
		outs = append(outs, coin.Pay(a.Owner, v, "genesis", "", nil))
	}

	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetBlockTime(chain.Time.UnixMilli())
	if _, err = st.AddOutputs("genesis", outs); err != nil {
		app.logger.Error("InitChain add outputs fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	app.logger.Info("InitChain", "chainId", chain.ChainId, "allocations", len(outs))
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *GovApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Data:             types.GovModuleName,
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *GovApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *GovApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *GovApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *GovApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *GovApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *GovApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
