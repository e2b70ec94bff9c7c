package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/config"
	"github.com/calehh/hac-gov/crypto"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/space/sqlite"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/tx/handler"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const chainID = "hac-test"

var genesisTime = time.UnixMilli(1_700_000_000_000)

type testChain struct {
	t      *testing.T
	ctx    context.Context
	app    *GovApp
	alice  *crypto.PV
	height int64
}

func newTestChain(t *testing.T) *testChain {
	logger := cmtlog.NewNopLogger()
	db, err := state.NewMemStateDB(logger)
	require.NoError(t, err)
	sp, err := sqlite.Open(filepath.Join(t.TempDir(), "space.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { sp.Close() })

	c := &testChain{
		t:     t,
		ctx:   context.Background(),
		app:   newGovApp(config.NewAppConfig(t.TempDir()), db, sp, logger),
		alice: crypto.NewSecretPV("alice"),
	}
	appState, err := json.Marshal(types.AppState{Allocations: []types.GenesisAllocation{
		{Owner: c.alice.Address(), Amount: decimal.NewFromInt(10)},
		{Owner: c.alice.Address(), Amount: decimal.NewFromInt(100)},
	}})
	require.NoError(t, err)
	res, err := c.app.InitChain(c.ctx, &abcitypes.RequestInitChain{
		ChainId:       chainID,
		Time:          genesisTime,
		AppStateBytes: appState,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AppHash)
	return c
}

func (c *testChain) tx(typ tx.GovTxType, form any, inputs ...string) []byte {
	btx := &tx.GovTx{Type: typ, Contract: "gov-1", Timestamp: genesisTime.UnixMilli(), Form: form}
	for _, id := range inputs {
		btx.Inputs = append(btx.Inputs, coin.Input{ID: id})
	}
	require.NoError(c.t, btx.Sign(c.alice, chainID))
	dat, err := tx.MarshalGovTx(btx)
	require.NoError(c.t, err)
	return dat
}

func (c *testChain) block(txs ...[]byte) *abcitypes.ResponseFinalizeBlock {
	c.height++
	res, err := c.app.FinalizeBlock(c.ctx, &abcitypes.RequestFinalizeBlock{
		Height: c.height,
		Time:   genesisTime.Add(time.Duration(c.height) * time.Second),
		Txs:    txs,
	})
	require.NoError(c.t, err)
	_, err = c.app.Commit(c.ctx, &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	return res
}

func (c *testChain) query(path string, data []byte) *abcitypes.ResponseQuery {
	res, err := c.app.Query(c.ctx, &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	return res
}

func (c *testChain) start() {
	res := c.block(c.tx(tx.GovTxTypeStart, &tx.StartForm{
		Space:             "dao-space",
		Name:              "dao",
		CreateOrgFee:      decimal.NewFromInt(10),
		CreateProposalFee: decimal.NewFromInt(100),
	}))
	require.Equal(c.t, handler.CodeOK, res.TxResults[0].Code, res.TxResults[0].Log)
}

func TestInitChainPaysAllocations(t *testing.T) {
	c := newTestChain(t)
	res := c.query("/outputs", []byte(c.alice.Address()))
	require.Zero(t, res.Code, res.Log)
	var recs []*state.OutputRecord
	require.NoError(t, json.Unmarshal(res.Value, &recs))
	require.Len(t, recs, 2)

	info, err := c.app.Info(c.ctx, &abcitypes.RequestInfo{})
	require.NoError(t, err)
	require.Zero(t, info.LastBlockHeight)
}

func TestBlocksCommitStateAndDocuments(t *testing.T) {
	c := newTestChain(t)
	c.start()

	res := c.query("/governance/", []byte("gov-1"))
	require.Zero(t, res.Code, res.Log)
	var gov types.Governance
	require.NoError(t, json.Unmarshal(res.Value, &gov))
	require.Equal(t, c.alice.Address(), gov.Owner)
	require.Equal(t, int64(1), res.Height)

	fin := c.block(
		c.tx(tx.GovTxTypeCreateOrg, &tx.CreateOrgForm{Name: "builders", Symbol: "BLD", Decimals: 2, JoinTokens: decimal.NewFromInt(1)}, "genesis:0"),
		[]byte("garbage"),
	)
	require.Len(t, fin.TxResults, 2)
	require.Equal(t, handler.CodeOK, fin.TxResults[0].Code, fin.TxResults[0].Log)
	require.Equal(t, handler.CodeMalformed, fin.TxResults[1].Code)

	dq, err := json.Marshal(DocumentQuery{Space: "dao-space", Equals: map[string]any{"docType": types.DocTypeOrg}, Limit: 10})
	require.NoError(t, err)
	res = c.query("/documents/", dq)
	require.Zero(t, res.Code, res.Log)
	var found space.Result
	require.NoError(t, json.Unmarshal(res.Value, &found))
	require.Equal(t, 1, found.TotalHits)
	require.Equal(t, "dao/org/0", found.Hits[0]["id"])

	res = c.query("/outputs/", []byte(c.alice.Address()))
	var recs []*state.OutputRecord
	require.NoError(t, json.Unmarshal(res.Value, &recs))
	require.Len(t, recs, 1)
	require.Equal(t, "genesis:1", recs[0].Output.ID)

	require.Equal(t, CodeQueryNotFound, c.query("/governance/", []byte("gov-2")).Code)
	require.Equal(t, CodeNoQuerier, c.query("/accounts/", nil).Code)
	require.Equal(t, CodeQueryInvalid, c.query("/documents/", []byte("{")).Code)
}

func TestCheckTx(t *testing.T) {
	c := newTestChain(t)
	res, err := c.app.CheckTx(c.ctx, &abcitypes.RequestCheckTx{Tx: []byte("garbage")})
	require.NoError(t, err)
	require.Equal(t, handler.CodeMalformed, res.Code)

	start := c.tx(tx.GovTxTypeStart, &tx.StartForm{Space: "dao-space", Name: "dao"})
	res, err = c.app.CheckTx(c.ctx, &abcitypes.RequestCheckTx{Tx: start})
	require.NoError(t, err)
	require.Equal(t, handler.CodeOK, res.Code, res.Log)

	// check never writes
	require.Equal(t, CodeQueryNotFound, c.query("/governance/", []byte("gov-1")).Code)

	res, err = c.app.CheckTx(c.ctx, &abcitypes.RequestCheckTx{Tx: c.tx(tx.GovTxTypeCreateProposal, &tx.CreateProposalForm{Name: "p"}, "genesis:1")})
	require.NoError(t, err)
	require.Equal(t, handler.CodePrecondition, res.Code)
}

func TestProposals(t *testing.T) {
	c := newTestChain(t)
	c.start()

	first := c.tx(tx.GovTxTypeCreateProposal, &tx.CreateProposalForm{Name: "first"}, "genesis:1")
	second := c.tx(tx.GovTxTypeCreateProposal, &tx.CreateProposalForm{Name: "second"}, "genesis:1")

	prep, err := c.app.PrepareProposal(c.ctx, &abcitypes.RequestPrepareProposal{
		Height: 2,
		Time:   genesisTime.Add(2 * time.Second),
		Txs:    [][]byte{first, []byte("garbage"), second},
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{first}, prep.Txs)

	proc, err := c.app.ProcessProposal(c.ctx, &abcitypes.RequestProcessProposal{Height: 2, Txs: [][]byte{first, second}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)
	proc, err = c.app.ProcessProposal(c.ctx, &abcitypes.RequestProcessProposal{Height: 2, Txs: [][]byte{first, []byte("garbage")}})
	require.NoError(t, err)
	require.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	// both land in a block, only the first can spend the input
	fin := c.block(first, second)
	require.Equal(t, handler.CodeOK, fin.TxResults[0].Code, fin.TxResults[0].Log)
	require.Equal(t, handler.CodePrecondition, fin.TxResults[1].Code)
}

func TestCommitWithoutBlock(t *testing.T) {
	c := newTestChain(t)
	_, err := c.app.Commit(c.ctx, &abcitypes.RequestCommit{})
	require.ErrorIs(t, err, ErrNoBlock)
}
