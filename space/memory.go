package space

import (
	"context"
	"sync"
)

type memSpace struct {
	schema Schema
	docs   []Document
	index  map[Key]int
}

func (m *memSpace) put(doc Document) {
	k := doc.Key()
	if i, ok := m.index[k]; ok {
		m.docs[i] = doc
		return
	}
	m.index[k] = len(m.docs)
	m.docs = append(m.docs, doc)
}

// Memory is an in-process Space. Writes are visible immediately and Commit is
// a no-op.
type Memory struct {
	mtx    sync.RWMutex
	spaces map[string]*memSpace
}

var (
	_ Space    = (*Memory)(nil)
	_ Inserter = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{spaces: make(map[string]*memSpace)}
}

func (m *Memory) get(name string) *memSpace {
	s, ok := m.spaces[name]
	if !ok {
		s = &memSpace{index: make(map[Key]int)}
		m.spaces[name] = s
	}
	return s
}

func (m *Memory) RegisterSchema(ctx context.Context, name string, schema Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptySpace
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.get(name).schema = schema
	return nil
}

func (m *Memory) Put(ctx context.Context, name string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(name, doc); err != nil {
		return err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.get(name).put(doc.Clone())
	return nil
}

func (m *Memory) PutNew(ctx context.Context, name string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(name, doc); err != nil {
		return err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	s := m.get(name)
	if _, ok := s.index[doc.Key()]; ok {
		return ErrExists
	}
	s.put(doc.Clone())
	return nil
}

func (m *Memory) FindOne(ctx context.Context, name string, key Key) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	s, ok := m.spaces[name]
	if !ok {
		return nil, nil
	}
	i, ok := s.index[key]
	if !ok {
		return nil, nil
	}
	return s.docs[i].Clone(), nil
}

func (m *Memory) FindMany(ctx context.Context, name string, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	res := newResult(q)
	s, ok := m.spaces[name]
	if !ok {
		return res, nil
	}
	for _, doc := range s.docs {
		res.add(doc, q)
	}
	return res, nil
}

func (m *Memory) Commit(ctx context.Context) error {
	return ctx.Err()
}

func validate(name string, doc Document) error {
	if name == "" {
		return ErrEmptySpace
	}
	k := doc.Key()
	if k.ID == "" || k.Type == "" {
		return ErrNoKey
	}
	return nil
}

func newResult(q Query) *Result {
	res := &Result{Hits: []Document{}}
	if len(q.Facets) > 0 {
		res.Facets = make(map[string]map[string]int, len(q.Facets))
		for _, f := range q.Facets {
			res.Facets[f] = make(map[string]int)
		}
	}
	return res
}

// add counts doc toward res when it matches q and keeps it as a hit while the
// limit allows. A limit <= 0 keeps every hit.
func (res *Result) add(doc Document, q Query) bool {
	if !doc.Matches(q.Equals) {
		return false
	}
	res.TotalHits++
	if q.Limit <= 0 || len(res.Hits) < q.Limit {
		res.Hits = append(res.Hits, doc.Clone())
	}
	for _, f := range q.Facets {
		if v, ok := doc[f]; ok && IsScalar(v) {
			res.Facets[f][FieldValue(v)]++
		}
	}
	return true
}
