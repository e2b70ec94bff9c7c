package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
}

func (f *fakeChain) Status(ctx context.Context) (*ctypes.ResultStatus, error) {
	return &ctypes.ResultStatus{SyncInfo: ctypes.SyncInfo{LatestBlockHeight: f.latest}}, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error) {
	return &ctypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func newTestIndexer(t *testing.T, chain *fakeChain) *ChainIndexer {
	db, err := gorm.Open("sqlite3", filepath.Join(t.TempDir(), "indexer.db"))
	require.NoError(t, err)
	c, err := newChainIndexer(cmtlog.NewNopLogger(), db, chain)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func output(id, owner string, amount int64) abci.Event {
	return types.EncodeEventOutput(&types.EventOutput{
		ID: id, Contract: "gov-1", Owner: owner, Symbol: "HAC", Decimals: 8, Amount: big.NewInt(amount),
	})
}

func testChain() *fakeChain {
	return &fakeChain{
		latest: 2,
		blocks: map[int64][]*abci.ExecTxResult{
			1: {
				{Events: []abci.Event{
					types.EncodeEventReceipt(&types.EventReceipt{ID: "aa:0", Action: "vote", Contract: "gov-1", Caller: "alice", Owner: "alice", Title: "vote"}),
					output("aa:0", "alice", 900),
					types.EncodeEventGovernance(&types.EventGovernance{Contract: "gov-1", Counters: types.Counters{Votes: 1}}),
				}},
				// failed txs carry no state
				{Code: 2, Events: []abci.Event{output("bb:0", "mallory", 1)}},
			},
			2: {
				{Events: []abci.Event{
					types.EncodeEventSpend(&types.EventSpend{ID: "aa:0", Owner: "alice"}),
					types.EncodeEventReceipt(&types.EventReceipt{ID: "cc:0", Action: "claimVote", Contract: "gov-1", Caller: "alice", Owner: "alice"}),
					output("cc:0", "alice", 1200),
				}},
			},
		},
	}
}

func TestIndexerSync(t *testing.T) {
	chain := testChain()
	c := newTestIndexer(t, chain)
	require.Equal(t, int64(1), c.Height)
	require.NoError(t, c.Sync(context.Background()))
	require.Equal(t, int64(3), c.Height)

	rows, total, err := c.getOutputs(OutputFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Equal(t, "cc:0", rows[0].Id)
	require.Equal(t, "1200", rows[0].Amount)

	_, total, err = c.getOutputs(OutputFilter{Owner: "alice", Spent: true})
	require.NoError(t, err)
	require.Equal(t, uint64(2), total)

	_, total, err = c.getOutputs(OutputFilter{Owner: "mallory"})
	require.NoError(t, err)
	require.Zero(t, total)

	receipts, total, err := c.getReceipts(ReceiptFilter{Contract: "gov-1", Action: "vote"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Equal(t, uint64(1), receipts[0].Height)

	gov, err := c.getGovernance("gov-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), gov.Votes)

	// the saved height survives a restart
	again, err := newChainIndexer(cmtlog.NewNopLogger(), c.db, chain)
	require.NoError(t, err)
	require.Equal(t, int64(3), again.Height)
}

func TestIndexBlockRollsBack(t *testing.T) {
	chain := &fakeChain{latest: 1, blocks: map[int64][]*abci.ExecTxResult{
		1: {{Events: []abci.Event{
			output("aa:0", "alice", 1),
			{Type: types.EventOutputType, Attributes: []abci.EventAttribute{{Key: "id", Value: "aa:1"}}},
		}}},
	}}
	c := newTestIndexer(t, chain)
	require.ErrorIs(t, c.Sync(context.Background()), ErrBadEvent)
	require.Equal(t, int64(1), c.Height)
	_, total, err := c.getOutputs(OutputFilter{Owner: "alice"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	c := newTestIndexer(t, testChain())
	require.NoError(t, c.Sync(ctx))

	sp := space.NewMemory()
	for i, v := range []string{"for", "against", "for"} {
		require.NoError(t, sp.Put(ctx, "dao-space", space.Document{
			"id":             "dao/vote/0/vote/" + string(rune('a'+i)),
			"docType":        types.DocTypeVote,
			"voteProposalId": "dao/vote/0",
			"vote":           v,
			"votes":          1,
		}))
	}
	h := NewService("", c, sp).Handler()

	w := post(t, h, "/getOutputs", OutputFilter{Owner: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var outs GetOutputsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outs))
	require.Equal(t, uint64(1), outs.Total)

	w = post(t, h, "/getReceipts", ReceiptFilter{Owner: "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var receipts GetReceiptsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipts))
	require.Len(t, receipts.Receipts, 2)

	w = post(t, h, "/getGovernance", GetGovernanceReq{Contract: "gov-9"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = post(t, h, "/getDocuments", GetDocumentsReq{Space: "dao-space", Equals: map[string]any{"vote": "for"}})
	require.Equal(t, http.StatusOK, w.Code)
	var docs space.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Equal(t, 2, docs.TotalHits)

	w = post(t, h, "/getVoteResult", GetVoteResultReq{Space: "dao-space", VoteProposalID: "dao/vote/0"})
	require.Equal(t, http.StatusOK, w.Code)
	var vr GetVoteResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vr))
	require.Equal(t, types.VoteResult{For: 2, Against: 1}, vr.Result)
	require.Equal(t, 3, vr.Voters)
	require.Nil(t, vr.Settlement)

	w = post(t, h, "/getVoteResult", map[string]string{"space": "dao-space"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
