package state

import (
	"sync"

	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	ldb    dbm.DB
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("hac", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	return openStateDB(ldb, dir, logger)
}

// NewMemStateDB keeps the state tree in memory.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return openStateDB(dbm.NewMemDB(), "", logger)
}

func openStateDB(ldb dbm.DB, dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "hacdb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	st.dbVer = version
	err = st.load()
	if err != nil {
		logger.Error("from hacdb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		dir:    dir,
		logger: logger,
		ldb:    ldb,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	if err != nil {
		return
	}
	err = db.ldb.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// snapshot returns the last committed tree and its height.
func (db *StateDB) snapshot() (r reader, height uint64, err error) {
	db.mtx.RLock()
	ver := db.state.dbVer
	height = db.state.header.Height
	db.mtx.RUnlock()
	if ver == 0 {
		return emptyReader{}, height, nil
	}
	r, err = db.db.GetImmutable(ver)
	return
}

func (db *StateDB) GetGovernance(id string) (gov *types.Governance, height uint64, err error) {
	r, height, err := db.snapshot()
	if err != nil {
		return
	}
	gov, err = getGovernance(r, id)
	return
}

func (db *StateDB) GetOutput(id string) (rec *OutputRecord, height uint64, err error) {
	r, height, err := db.snapshot()
	if err != nil {
		return
	}
	rec, err = getOutput(r, id)
	return
}

// GetOutputs lists unspent outputs of owner. A limit <= 0 lists all.
func (db *StateDB) GetOutputs(owner string, limit int) (recs []*OutputRecord, height uint64, err error) {
	r, height, err := db.snapshot()
	if err != nil {
		return
	}
	recs, err = listOutputs(r, owner, limit)
	return
}

func (db *StateDB) GetTemplates(deployer string) (recs []*TemplateRecord, height uint64, err error) {
	r, height, err := db.snapshot()
	if err != nil {
		return
	}
	recs, err = listTemplates(r, deployer)
	return
}

func (db *StateDB) DocumentHash(spaceName string, k space.Key) (h common.Hash, ok bool, err error) {
	r, _, err := db.snapshot()
	if err != nil {
		return
	}
	return getDocumentHash(r, spaceName, k)
}

type emptyReader struct{}

func (emptyReader) Get(key []byte) ([]byte, error) {
	return nil, nil
}

func (emptyReader) Iterator(start, end []byte, ascending bool) (dbm.Iterator, error) {
	return dbm.NewMemDB().Iterator(start, end)
}
