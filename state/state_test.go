package state

import (
	"math/big"
	"testing"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var hac = coin.Asset{Symbol: "HAC", Decimals: 8}

func newTestDB(t *testing.T) *StateDB {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	return db
}

func commit(t *testing.T, db *StateDB, st *State) {
	_, err := st.Update()
	require.NoError(t, err)
	_, err = db.SetState(st)
	require.NoError(t, err)
}

func genesis(t *testing.T, db *StateDB, owner string, amount int64) {
	st := db.NewState()
	st.SetChainId("hac-test")
	_, err := st.AddOutputs("genesis", []coin.Output{coin.Pay(owner, hac.Value(big.NewInt(amount)), "genesis", "", nil)})
	require.NoError(t, err)
	commit(t, db, st)
}

func TestHeightsAndHash(t *testing.T) {
	db := newTestDB(t)
	require.Zero(t, db.Header().Height)

	genesis(t, db, "alice", 100)
	require.Zero(t, db.Header().Height)
	require.Equal(t, "hac-test", db.Header().ChainId)
	first := db.State().Hash()
	require.NotEqual(t, common.Hash{}, first)

	st := db.NewState()
	require.Equal(t, uint64(1), st.Height())
	st.SetBlockTime(1700000000000)
	commit(t, db, st)
	require.Equal(t, int64(1700000000000), db.State().BlockTime())
	require.NotEqual(t, first, db.State().Hash())
}

func TestSameChangesSameHash(t *testing.T) {
	apply := func() common.Hash {
		db := newTestDB(t)
		genesis(t, db, "alice", 100)
		st := db.NewState()
		require.NoError(t, st.SetGovernance(&types.Governance{ID: "gov-b", Name: "b"}))
		require.NoError(t, st.SetGovernance(&types.Governance{ID: "gov-a", Name: "a"}))
		require.NoError(t, st.RecordDocuments([]space.Entry{
			{Space: "s", Doc: space.Document{"id": "x", "docType": "org", "name": "n"}},
		}))
		h, err := st.Update()
		require.NoError(t, err)
		return h
	}
	require.Equal(t, apply(), apply())
}

func TestGovernanceRoundTrip(t *testing.T) {
	db := newTestDB(t)
	genesis(t, db, "alice", 100)

	st := db.NewState()
	gov, err := st.GetGovernance("gov-1")
	require.NoError(t, err)
	require.Nil(t, gov)

	fee, err := hac.Units(decimal.NewFromInt(10))
	require.NoError(t, err)
	gov = &types.Governance{ID: "gov-1", Space: "s", Name: "dao", CreateOrgFee: decimal.NewFromInt(10), CreateOrgFeeValue: fee}
	gov.Counters.Orgs = 2
	require.NoError(t, st.SetGovernance(gov))
	require.ErrorIs(t, st.SetGovernance(&types.Governance{}), ErrGovernanceNoID)

	// visible before commit, not to committed readers
	got, err := st.GetGovernance("gov-1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Counters.Orgs)
	got, _, err = db.GetGovernance("gov-1")
	require.NoError(t, err)
	require.Nil(t, got)

	commit(t, db, st)
	got, height, err := db.GetGovernance("gov-1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)
	require.Equal(t, "dao", got.Name)
	require.Equal(t, "1000000000", got.CreateOrgFeeValue.Amount.String())
}

func TestResolveAndSpend(t *testing.T) {
	db := newTestDB(t)
	genesis(t, db, "alice", 100)

	st := db.NewState()
	ins, err := st.ResolveInputs("alice", []coin.Input{{ID: "genesis:0", Value: hac.Value(big.NewInt(1))}})
	require.NoError(t, err)
	require.Equal(t, "100", ins[0].Value.Amount.String())
	require.Equal(t, "alice", ins[0].Owner)

	_, err = st.ResolveInputs("bob", []coin.Input{{ID: "genesis:0"}})
	require.ErrorIs(t, err, ErrOutputOwner)
	_, err = st.ResolveInputs("alice", []coin.Input{{ID: "genesis:0"}, {ID: "genesis:0"}})
	require.ErrorIs(t, err, ErrDuplicateInput)
	_, err = st.ResolveInputs("alice", []coin.Input{{ID: "nope:0"}})
	require.ErrorIs(t, err, ErrOutputNotFound)

	require.NoError(t, st.Spend(ins))
	outs, err := st.AddOutputs("abcd", []coin.Output{
		coin.Receipt("alice", "createOrg", "", nil),
		coin.Pay("bob", hac.Value(big.NewInt(60)), "pay", "", nil),
		coin.Pay("alice", hac.Value(big.NewInt(40)), "change", "", nil),
	})
	require.NoError(t, err)
	require.Equal(t, "abcd:0", outs[0].ID)
	require.Equal(t, "abcd:2", outs[2].ID)

	_, err = st.ResolveInputs("alice", []coin.Input{{ID: "genesis:0"}})
	require.ErrorIs(t, err, ErrOutputSpent)
	_, err = st.ResolveInputs("alice", []coin.Input{{ID: "abcd:0"}})
	require.ErrorIs(t, err, ErrOutputNotFound)
	_, err = st.AddOutputs("abcd", outs)
	require.ErrorIs(t, err, ErrOutputExists)

	// a clone does not leak into the original
	cl := st.Clone()
	spendable, err := cl.ResolveInputs("bob", []coin.Input{{ID: "abcd:1"}})
	require.NoError(t, err)
	require.NoError(t, cl.Spend(spendable))
	_, err = st.ResolveInputs("bob", []coin.Input{{ID: "abcd:1"}})
	require.NoError(t, err)

	commit(t, db, st)
	recs, _, err := db.GetOutputs("alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "abcd:2", recs[0].Output.ID)
	recs, _, err = db.GetOutputs("bob", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec, _, err := db.GetOutput("genesis:0")
	require.NoError(t, err)
	require.True(t, rec.Spent)
}

func TestDocumentsAndTemplates(t *testing.T) {
	db := newTestDB(t)
	genesis(t, db, "alice", 100)

	st := db.NewState()
	doc := space.Document{"id": "dao/org/0", "docType": "org", "name": "builders"}
	require.NoError(t, st.RecordDocuments([]space.Entry{{Space: "s", Doc: doc}}))
	_, ok, err := st.DocumentHash("s", doc.Key())
	require.NoError(t, err)
	require.True(t, ok)

	rec := &TemplateRecord{Deployer: "alice", Ref: "governance@1.0.0", Network: "local", Digest: "00", Data: []byte{1, 2}}
	require.NoError(t, st.AddTemplate(rec))
	require.ErrorIs(t, st.AddTemplate(rec), ErrTemplateExists)
	commit(t, db, st)

	_, ok, err = db.DocumentHash("s", doc.Key())
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = db.DocumentHash("s", space.Key{ID: "dao/org/1", Type: "org"})
	require.NoError(t, err)
	require.False(t, ok)

	recs, _, err := db.GetTemplates("alice")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, []byte{1, 2}, recs[0].Data)
	require.Equal(t, uint64(1), recs[0].Height)

	st = db.NewState()
	require.ErrorIs(t, st.AddTemplate(rec), ErrTemplateExists)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	genesis(t, db, "alice", 100)
	hash := db.State().Hash()
	require.NoError(t, db.Close())

	db, err = NewStateDB(dir, cmtlog.NewNopLogger())
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, hash, db.State().Hash())
	require.Equal(t, "hac-test", db.Header().ChainId)
	recs, _, err := db.GetOutputs("alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
