package space

import (
	"context"
)

// Entry is a buffered document write.
type Entry struct {
	Space string
	Doc   Document
}

type overlayEntry struct {
	Entry
	create  bool
	existed bool
}

type schemaEntry struct {
	name   string
	schema Schema
}

// Overlay buffers writes on top of a parent Space. Reads see buffered writes
// first. Nothing reaches the parent until Merge or Commit, so an overlay that
// is dropped leaves the parent untouched.
type Overlay struct {
	parent  Space
	schemas []schemaEntry
	entries []*overlayEntry
	index   map[string]map[Key]int
}

var (
	_ Space    = (*Overlay)(nil)
	_ Inserter = (*Overlay)(nil)
)

func NewOverlay(parent Space) *Overlay {
	return &Overlay{
		parent: parent,
		index:  make(map[string]map[Key]int),
	}
}

func (o *Overlay) Parent() Space {
	return o.parent
}

func (o *Overlay) RegisterSchema(ctx context.Context, name string, schema Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptySpace
	}
	o.schemas = append(o.schemas, schemaEntry{name: name, schema: schema})
	return nil
}

func (o *Overlay) lookup(name string, k Key) *overlayEntry {
	keys, ok := o.index[name]
	if !ok {
		return nil
	}
	i, ok := keys[k]
	if !ok {
		return nil
	}
	return o.entries[i]
}

func (o *Overlay) put(ctx context.Context, name string, doc Document, create bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(name, doc); err != nil {
		return err
	}
	k := doc.Key()
	if e := o.lookup(name, k); e != nil {
		if create {
			return ErrExists
		}
		e.Doc = doc.Clone()
		return nil
	}
	prev, err := o.parent.FindOne(ctx, name, k)
	if err != nil {
		return err
	}
	if prev != nil && create {
		return ErrExists
	}
	keys, ok := o.index[name]
	if !ok {
		keys = make(map[Key]int)
		o.index[name] = keys
	}
	keys[k] = len(o.entries)
	o.entries = append(o.entries, &overlayEntry{
		Entry:   Entry{Space: name, Doc: doc.Clone()},
		create:  create,
		existed: prev != nil,
	})
	return nil
}

func (o *Overlay) Put(ctx context.Context, name string, doc Document) error {
	return o.put(ctx, name, doc, false)
}

// PutNew buffers doc only if its key exists neither in the buffer nor in the
// parent. The check is repeated when the buffer is flushed.
func (o *Overlay) PutNew(ctx context.Context, name string, doc Document) error {
	return o.put(ctx, name, doc, true)
}

func (o *Overlay) FindOne(ctx context.Context, name string, key Key) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e := o.lookup(name, key); e != nil {
		return e.Doc.Clone(), nil
	}
	return o.parent.FindOne(ctx, name, key)
}

// FindMany merges buffered documents into the parent result. Buffered
// documents that replace a parent document are only reconciled when that
// document is among the returned hits.
func (o *Overlay) FindMany(ctx context.Context, name string, q Query) (*Result, error) {
	res, err := o.parent.FindMany(ctx, name, q)
	if err != nil {
		return nil, err
	}
	keys := o.index[name]
	if len(keys) == 0 {
		return res, nil
	}
	if res.Facets == nil && len(q.Facets) > 0 {
		res.Facets = newResult(q).Facets
	}
	hits := make([]Document, 0, len(res.Hits))
	for _, doc := range res.Hits {
		e := o.lookup(name, doc.Key())
		if e == nil {
			hits = append(hits, doc)
			continue
		}
		res.facet(doc, q, -1)
		if e.Doc.Matches(q.Equals) {
			res.facet(e.Doc, q, 1)
			hits = append(hits, e.Doc.Clone())
			continue
		}
		res.TotalHits--
	}
	res.Hits = hits
	for _, e := range o.entries {
		if e.Space != name || e.existed {
			continue
		}
		res.add(e.Doc, q)
	}
	return res, nil
}

func (res *Result) facet(doc Document, q Query, delta int) {
	for _, f := range q.Facets {
		if v, ok := doc[f]; ok && IsScalar(v) {
			res.Facets[f][FieldValue(v)] += delta
		}
	}
}

// Pending lists buffered writes in the order they were made.
func (o *Overlay) Pending() []Entry {
	out := make([]Entry, len(o.entries))
	for i, e := range o.entries {
		out[i] = Entry{Space: e.Space, Doc: e.Doc.Clone()}
	}
	return out
}

func (o *Overlay) Len() int {
	return len(o.entries)
}

// Discard drops every buffered write.
func (o *Overlay) Discard() {
	o.schemas = nil
	o.entries = nil
	o.index = make(map[string]map[Key]int)
}

type overlayState struct {
	schemas []schemaEntry
	entries []overlayEntry
}

func (o *Overlay) save() overlayState {
	st := overlayState{
		schemas: append([]schemaEntry(nil), o.schemas...),
		entries: make([]overlayEntry, len(o.entries)),
	}
	for i, e := range o.entries {
		st.entries[i] = *e
	}
	return st
}

func (o *Overlay) restore(st overlayState) {
	o.schemas = st.schemas
	o.entries = make([]*overlayEntry, len(st.entries))
	o.index = make(map[string]map[Key]int)
	for i := range st.entries {
		e := st.entries[i]
		o.entries[i] = &e
		keys, ok := o.index[e.Space]
		if !ok {
			keys = make(map[Key]int)
			o.index[e.Space] = keys
		}
		keys[e.Doc.Key()] = i
	}
}

// Merge pushes the buffer into the parent without committing it. Insert-only
// writes are checked against the parent before anything is pushed. When the
// parent is an Overlay a failed merge leaves it as it was.
func (o *Overlay) Merge(ctx context.Context) (err error) {
	for _, e := range o.entries {
		if !e.create {
			continue
		}
		prev, err := o.parent.FindOne(ctx, e.Space, e.Doc.Key())
		if err != nil {
			return err
		}
		if prev != nil {
			return ErrExists
		}
	}
	if p, ok := o.parent.(*Overlay); ok {
		snapshot := p.save()
		defer func() {
			if err != nil {
				p.restore(snapshot)
			}
		}()
	}
	ins, insertable := o.parent.(Inserter)
	for _, e := range o.entries {
		if e.create && insertable {
			err = ins.PutNew(ctx, e.Space, e.Doc)
		} else {
			err = o.parent.Put(ctx, e.Space, e.Doc)
		}
		if err != nil {
			return err
		}
	}
	// schemas are registered only once every document is in
	for _, s := range o.schemas {
		if err = o.parent.RegisterSchema(ctx, s.name, s.schema); err != nil {
			return err
		}
	}
	o.Discard()
	return nil
}

// Commit merges the buffer into the parent and commits the parent.
func (o *Overlay) Commit(ctx context.Context) error {
	if err := o.Merge(ctx); err != nil {
		return err
	}
	return o.parent.Commit(ctx)
}
