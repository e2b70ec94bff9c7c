package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState       = "s"
	KeyGovernance  = "g%s"
	KeyOutput      = "o%s"
	KeyOwnerOutput = "u%s/%s"
	KeyDocument    = "d%s/%s/%s"
	KeyTemplate    = "t%s/%s"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrOutputNotFound = errors.New("output noexists")
	ErrOutputSpent    = errors.New("output already spent")
	ErrOutputOwner    = errors.New("output not owned by caller")
	ErrOutputNotCoin  = errors.New("output is not a coin")
	ErrOutputExists   = errors.New("output already exists")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrTemplateExists = errors.New("template already published")
	ErrGovernanceNoID = errors.New("governance has no id")
)

// StateHeader is the rlp encoded head of the state tree. BlockTime is epoch
// milliseconds of the block being applied.
type StateHeader struct {
	Height    uint64
	ChainId   string
	RootHash  []byte
	Hash      []byte
	BlockTime uint64
}

func (h *StateHeader) clone() *StateHeader {
	n := *h
	n.RootHash = common.CopyBytes(h.RootHash)
	n.Hash = common.CopyBytes(h.Hash)
	return &n
}

// OutputRecord is a coin output in the unspent-output set.
type OutputRecord struct {
	Output coin.Output `json:"output"`
	Spent  bool        `json:"spent"`
	Height uint64      `json:"height"`
}

type TemplateRecord struct {
	Deployer string `json:"deployer"`
	Ref      string `json:"ref"`
	Network  string `json:"network"`
	Digest   string `json:"digest"`
	Data     []byte `json:"data"`
	Height   uint64 `json:"height"`
}

type reader interface {
	Get(key []byte) ([]byte, error)
	Iterator(start, end []byte, ascending bool) (dbm.Iterator, error)
}

type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header    *StateHeader
	govs      map[string]*types.Governance
	outputs   map[string]*OutputRecord
	docs      map[string]common.Hash
	templates map[string]*TemplateRecord
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger:    logger,
		db:        db,
		header:    new(StateHeader),
		govs:      make(map[string]*types.Governance),
		outputs:   make(map[string]*OutputRecord),
		docs:      make(map[string]common.Hash),
		templates: make(map[string]*TemplateRecord),
	}
}

func (s *State) nextState() *State {
	n := newState(s.db, s.logger)
	n.dbVer = s.dbVer
	n.header = s.header.clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func copyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		res[k] = v
	}
	return res
}

// Clone copies the pending changes of s. Pending values are never mutated in
// place, so sharing them is safe.
func (s *State) Clone() *State {
	return &State{
		logger:    s.logger,
		db:        s.db,
		dbVer:     s.dbVer,
		header:    s.header.clone(),
		govs:      copyMap(s.govs),
		outputs:   copyMap(s.outputs),
		docs:      copyMap(s.docs),
		templates: copyMap(s.templates),
	}
}

// Restore drops every change made to s since snapshot was cloned from it.
func (s *State) Restore(snapshot *State) {
	s.header = snapshot.header.clone()
	s.govs = copyMap(snapshot.govs)
	s.outputs = copyMap(snapshot.outputs)
	s.docs = copyMap(snapshot.docs)
	s.templates = copyMap(snapshot.templates)
}

func get(r reader, key []byte) ([]byte, error) {
	val, err := r.Get(key)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *State) load() (err error) {
	val, err := get(s.db, []byte(KeyState))
	if err != nil || val == nil {
		return err
	}
	err = rlp.DecodeBytes(val, s.header)
	if err != nil {
		return
	}
	h := s.db.Hash()
	if h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *State) set(key string, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.Set([]byte(key), val)
	return err
}

// Update writes the pending changes into the working tree in key order and
// returns the resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := rlp.EncodeToBytes(s.header)
	if err != nil {
		return
	}
	if _, err = s.db.Set([]byte(KeyState), val); err != nil {
		return
	}
	for _, id := range sortedKeys(s.govs) {
		if err = s.set(fmt.Sprintf(KeyGovernance, id), s.govs[id]); err != nil {
			return
		}
	}
	for _, id := range sortedKeys(s.outputs) {
		rec := s.outputs[id]
		if err = s.set(fmt.Sprintf(KeyOutput, id), rec); err != nil {
			return
		}
		ownerKey := []byte(fmt.Sprintf(KeyOwnerOutput, rec.Output.Owner, id))
		if rec.Spent {
			_, _, err = s.db.Remove(ownerKey)
		} else {
			val, err = rlp.EncodeToBytes(rec.Height)
			if err == nil {
				_, err = s.db.Set(ownerKey, val)
			}
		}
		if err != nil {
			return
		}
	}
	for _, key := range sortedKeys(s.docs) {
		dh := s.docs[key]
		if _, err = s.db.Set([]byte(key), dh.Bytes()); err != nil {
			return
		}
	}
	for _, key := range sortedKeys(s.templates) {
		if err = s.set(key, s.templates[key]); err != nil {
			return
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.govs = make(map[string]*types.Governance)
	s.outputs = make(map[string]*OutputRecord)
	s.docs = make(map[string]common.Hash)
	s.templates = make(map[string]*TemplateRecord)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) ChainId() string {
	return s.header.ChainId
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) BlockTime() int64 {
	return int64(s.header.BlockTime)
}

func (s *State) SetBlockTime(ms int64) {
	s.header.BlockTime = uint64(ms)
}

func getGovernance(r reader, id string) (*types.Governance, error) {
	val, err := get(r, []byte(fmt.Sprintf(KeyGovernance, id)))
	if err != nil || val == nil {
		return nil, err
	}
	gov := new(types.Governance)
	if err := json.Unmarshal(val, gov); err != nil {
		return nil, err
	}
	return gov, nil
}

// GetGovernance returns a copy of the aggregate of contract id, or nil before
// it is started.
func (s *State) GetGovernance(id string) (*types.Governance, error) {
	if gov, ok := s.govs[id]; ok {
		return gov.Clone(), nil
	}
	return getGovernance(s.db, id)
}

func (s *State) SetGovernance(gov *types.Governance) error {
	if gov == nil || gov.ID == "" {
		return ErrGovernanceNoID
	}
	s.govs[gov.ID] = gov.Clone()
	return nil
}

func getOutput(r reader, id string) (*OutputRecord, error) {
	val, err := get(r, []byte(fmt.Sprintf(KeyOutput, id)))
	if err != nil || val == nil {
		return nil, err
	}
	rec := new(OutputRecord)
	if err := json.Unmarshal(val, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *State) GetOutput(id string) (*OutputRecord, error) {
	if rec, ok := s.outputs[id]; ok {
		return rec, nil
	}
	return getOutput(s.db, id)
}

// ResolveInputs checks that every input is an unspent coin output of owner and
// returns the inputs with the stored values.
func (s *State) ResolveInputs(owner string, ins []coin.Input) ([]coin.Input, error) {
	seen := make(map[string]bool, len(ins))
	res := make([]coin.Input, 0, len(ins))
	for _, in := range ins {
		if seen[in.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateInput, in.ID)
		}
		seen[in.ID] = true
		rec, err := s.GetOutput(in.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputNotFound, in.ID)
		}
		if rec.Spent {
			return nil, fmt.Errorf("%w: %s", ErrOutputSpent, in.ID)
		}
		if rec.Output.Owner != owner {
			return nil, fmt.Errorf("%w: %s", ErrOutputOwner, in.ID)
		}
		if rec.Output.Value == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputNotCoin, in.ID)
		}
		res = append(res, coin.Input{ID: in.ID, Owner: owner, Value: rec.Output.Value.Clone()})
	}
	return res, nil
}

// Spend marks resolved inputs as spent.
func (s *State) Spend(ins []coin.Input) error {
	for _, in := range ins {
		rec, err := s.GetOutput(in.ID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrOutputNotFound, in.ID)
		}
		if rec.Spent {
			return fmt.Errorf("%w: %s", ErrOutputSpent, in.ID)
		}
		spent := *rec
		spent.Spent = true
		s.outputs[in.ID] = &spent
	}
	return nil
}

// AddOutputs numbers outs as {txHash}:{index} and puts the coin outputs into
// the unspent-output set.
func (s *State) AddOutputs(txHash string, outs []coin.Output) ([]coin.Output, error) {
	res := make([]coin.Output, len(outs))
	for i, out := range outs {
		out.ID = fmt.Sprintf("%s:%d", txHash, i)
		res[i] = out
		if !out.IsCoin() || out.Value == nil {
			continue
		}
		rec, err := s.GetOutput(out.ID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, out.ID)
		}
		s.outputs[out.ID] = &OutputRecord{Output: out, Height: s.header.Height}
	}
	return res, nil
}

func listOutputs(r reader, owner string, limit int) ([]*OutputRecord, error) {
	start := []byte(fmt.Sprintf(KeyOwnerOutput, owner, ""))
	it, err := r.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	res := make([]*OutputRecord, 0)
	for ; it.Valid(); it.Next() {
		if limit > 0 && len(res) >= limit {
			break
		}
		id := strings.TrimPrefix(string(it.Key()), string(start))
		rec, err := getOutput(r, id)
		if err != nil {
			return nil, err
		}
		if rec != nil && !rec.Spent {
			res = append(res, rec)
		}
	}
	return res, nil
}

func documentKey(spaceName string, k space.Key) string {
	return fmt.Sprintf(KeyDocument, spaceName, k.Type, k.ID)
}

// RecordDocuments commits the digest of every written document to the state
// tree so the app hash covers the document space.
func (s *State) RecordDocuments(entries []space.Entry) error {
	for _, e := range entries {
		dat, err := e.Doc.Marshal()
		if err != nil {
			return err
		}
		s.docs[documentKey(e.Space, e.Doc.Key())] = crypto.Keccak256Hash(dat)
	}
	return nil
}

func getDocumentHash(r reader, spaceName string, k space.Key) (h common.Hash, ok bool, err error) {
	val, err := get(r, []byte(documentKey(spaceName, k)))
	if err != nil || val == nil {
		return h, false, err
	}
	return common.BytesToHash(val), true, nil
}

func (s *State) DocumentHash(spaceName string, k space.Key) (common.Hash, bool, error) {
	if h, ok := s.docs[documentKey(spaceName, k)]; ok {
		return h, true, nil
	}
	return getDocumentHash(s.db, spaceName, k)
}

func templateKey(deployer, ref string) string {
	return fmt.Sprintf(KeyTemplate, deployer, ref)
}

// AddTemplate publishes a template under deployer. A reference is published
// once.
func (s *State) AddTemplate(rec *TemplateRecord) error {
	key := templateKey(rec.Deployer, rec.Ref)
	if _, ok := s.templates[key]; ok {
		return fmt.Errorf("%w: %s", ErrTemplateExists, rec.Ref)
	}
	val, err := get(s.db, []byte(key))
	if err != nil {
		return err
	}
	if val != nil {
		return fmt.Errorf("%w: %s", ErrTemplateExists, rec.Ref)
	}
	n := *rec
	n.Height = s.header.Height
	s.templates[key] = &n
	return nil
}

func listTemplates(r reader, deployer string) ([]*TemplateRecord, error) {
	start := []byte(templateKey(deployer, ""))
	it, err := r.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	res := make([]*TemplateRecord, 0)
	for ; it.Valid(); it.Next() {
		rec := new(TemplateRecord)
		if err := json.Unmarshal(it.Value(), rec); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
