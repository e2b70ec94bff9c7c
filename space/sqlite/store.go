package sqlite

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/calehh/hac-gov/space"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/pkg/errors"
)

type pendingDoc struct {
	space  string
	doc    space.Document
	create bool
}

// Store is a Space persisted in sqlite. Writes are buffered in memory and
// applied in a single sql transaction by Commit. Reads only see committed
// documents.
type Store struct {
	mtx    sync.Mutex
	logger cmtlog.Logger
	db     *gorm.DB

	schemas        map[string]space.Schema
	pendingSchemas map[string]space.Schema
	pending        []pendingDoc
}

var (
	_ space.Space    = (*Store)(nil)
	_ space.Inserter = (*Store)(nil)
)

func Open(path string, logger cmtlog.Logger) (*Store, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open space db %s", path)
	}
	db.DB().SetMaxOpenConns(1)
	s, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB, logger cmtlog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&SpaceRow{}, &DocumentRow{}, &FieldRow{}).Error; err != nil {
		return nil, errors.Wrap(err, "migrate space db")
	}
	s := &Store{
		logger:         logger.With("module", "space"),
		db:             db,
		schemas:        make(map[string]space.Schema),
		pendingSchemas: make(map[string]space.Schema),
	}
	var rows []SpaceRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load schemas")
	}
	for _, row := range rows {
		var schema space.Schema
		if err := json.Unmarshal([]byte(row.Schema), &schema); err != nil {
			return nil, errors.Wrapf(err, "decode schema of %s", row.Name)
		}
		s.schemas[row.Name] = schema
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RegisterSchema(ctx context.Context, name string, schema space.Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return space.ErrEmptySpace
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pendingSchemas[name] = schema
	return nil
}

func (s *Store) buffer(ctx context.Context, name string, doc space.Document, create bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return space.ErrEmptySpace
	}
	k := doc.Key()
	if k.ID == "" || k.Type == "" {
		return space.ErrNoKey
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pending = append(s.pending, pendingDoc{space: name, doc: doc.Clone(), create: create})
	return nil
}

func (s *Store) Put(ctx context.Context, name string, doc space.Document) error {
	return s.buffer(ctx, name, doc, false)
}

// PutNew buffers doc and fails the commit if its key already exists then.
func (s *Store) PutNew(ctx context.Context, name string, doc space.Document) error {
	return s.buffer(ctx, name, doc, true)
}

func (s *Store) FindOne(ctx context.Context, name string, key space.Key) (space.Document, error) {
	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "begin read")
	}
	defer tx.Rollback()
	var row DocumentRow
	err := tx.Where("space = ? AND doc_id = ? AND doc_type = ?", name, key.ID, key.Type).First(&row).Error
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "find %s/%s", key.Type, key.ID)
	}
	return space.Unmarshal([]byte(row.Body))
}

func (s *Store) FindMany(ctx context.Context, name string, q space.Query) (*space.Result, error) {
	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return nil, errors.Wrap(tx.Error, "begin read")
	}
	defer tx.Rollback()

	res := &space.Result{Hits: []space.Document{}}
	if len(q.Facets) > 0 {
		res.Facets = make(map[string]map[string]int, len(q.Facets))
		for _, f := range q.Facets {
			res.Facets[f] = make(map[string]int)
		}
	}

	docs := tx.Model(&DocumentRow{}).Where("space = ?", name)
	fields := make([]string, 0, len(q.Equals))
	for f := range q.Equals {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		v := space.FieldValue(q.Equals[f])
		switch f {
		case space.FieldID:
			docs = docs.Where("doc_id = ?", v)
		case space.FieldDocType:
			docs = docs.Where("doc_type = ?", v)
		default:
			var docSeqs []uint64
			err := tx.Model(&FieldRow{}).Where("space = ? AND field = ? AND value = ?", name, f, v).Pluck("doc_seq", &docSeqs).Error
			if err != nil {
				return nil, errors.Wrapf(err, "lookup field %s", f)
			}
			if len(docSeqs) == 0 {
				return res, nil
			}
			docs = docs.Where("seq IN (?)", docSeqs)
		}
	}

	var seqs []uint64
	if err := docs.Order("seq asc").Pluck("seq", &seqs).Error; err != nil {
		return nil, errors.Wrap(err, "match documents")
	}
	res.TotalHits = len(seqs)
	if len(seqs) == 0 {
		return res, nil
	}

	page := seqs
	if q.Limit > 0 && len(page) > q.Limit {
		page = page[:q.Limit]
	}
	var rows []DocumentRow
	if err := tx.Where("seq IN (?)", page).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load documents")
	}
	for _, row := range rows {
		doc, err := space.Unmarshal([]byte(row.Body))
		if err != nil {
			return nil, errors.Wrapf(err, "decode document %d", row.Seq)
		}
		res.Hits = append(res.Hits, doc)
	}

	for _, f := range q.Facets {
		var counts []facetCount
		err := tx.Model(&FieldRow{}).
			Select("value, count(*) as total").
			Where("space = ? AND field = ? AND doc_seq IN (?)", name, f, seqs).
			Group("value").
			Scan(&counts).Error
		if err != nil {
			return nil, errors.Wrapf(err, "facet %s", f)
		}
		for _, c := range counts {
			res.Facets[f][c.Value] = c.Total
		}
	}
	return res, nil
}

// Commit applies every buffered write in one transaction. On failure nothing
// is applied and the buffer is dropped.
func (s *Store) Commit(ctx context.Context) (err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	schemas, docs := s.pendingSchemas, s.pending
	s.pendingSchemas, s.pending = make(map[string]space.Schema), nil
	if len(schemas) == 0 && len(docs) == 0 {
		return ctx.Err()
	}

	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin commit")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := json.Marshal(schemas[name])
		if err != nil {
			return err
		}
		if err := tx.Save(&SpaceRow{Name: name, Schema: string(raw)}).Error; err != nil {
			return errors.Wrapf(err, "save schema %s", name)
		}
	}

	for _, d := range docs {
		schema, ok := schemas[d.space]
		if !ok {
			schema = s.schemas[d.space]
		}
		if err := s.write(tx, d, schema); err != nil {
			return err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return errors.Wrap(err, "commit documents")
	}
	for name, schema := range schemas {
		s.schemas[name] = schema
	}
	s.logger.Debug("space committed", "documents", len(docs), "schemas", len(schemas))
	return nil
}

// Discard drops buffered writes.
func (s *Store) Discard() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pendingSchemas = make(map[string]space.Schema)
	s.pending = nil
}

func (s *Store) write(tx *gorm.DB, d pendingDoc, schema space.Schema) error {
	k := d.doc.Key()
	body, err := d.doc.Marshal()
	if err != nil {
		return err
	}
	var row DocumentRow
	err = tx.Where("space = ? AND doc_id = ? AND doc_type = ?", d.space, k.ID, k.Type).First(&row).Error
	switch {
	case err == nil:
		if d.create {
			return errors.Wrapf(space.ErrExists, "%s/%s", k.Type, k.ID)
		}
		row.Body = string(body)
		if err := tx.Save(&row).Error; err != nil {
			return errors.Wrapf(err, "update %s/%s", k.Type, k.ID)
		}
		if err := tx.Where("doc_seq = ?", row.Seq).Delete(&FieldRow{}).Error; err != nil {
			return errors.Wrapf(err, "reindex %s/%s", k.Type, k.ID)
		}
	case gorm.IsRecordNotFoundError(err):
		row = DocumentRow{Space: d.space, DocID: k.ID, DocType: k.Type, Body: string(body)}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrapf(err, "insert %s/%s", k.Type, k.ID)
		}
	default:
		return errors.Wrapf(err, "find %s/%s", k.Type, k.ID)
	}

	fields := make([]string, 0, len(d.doc))
	for f := range d.doc {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		v := d.doc[f]
		if f == space.FieldID || f == space.FieldDocType || !schema.Indexed(f) || !space.IsScalar(v) {
			continue
		}
		fr := FieldRow{DocSeq: row.Seq, Space: d.space, Field: f, Value: space.FieldValue(v)}
		if err := tx.Create(&fr).Error; err != nil {
			return errors.Wrapf(err, "index %s of %s/%s", f, k.Type, k.ID)
		}
	}
	return nil
}
