package space

import (
	"context"
	"errors"
)

type IndexType string

const (
	Keyword IndexType = "keyword"
	Text    IndexType = "text"
	Long    IndexType = "long"
	Int     IndexType = "int"
	Float   IndexType = "float"
)

const (
	FieldID      = "id"
	FieldDocType = "docType"
)

var (
	ErrExists     = errors.New("document already exists")
	ErrNoKey      = errors.New("document has no id or docType")
	ErrEmptySpace = errors.New("empty space name")
)

type Field struct {
	Type  IndexType `json:"type"`
	Facet bool      `json:"facet,omitempty"`
}

type Schema map[string]Field

// Indexed reports whether field values are kept for equality lookups.
func (s Schema) Indexed(field string) bool {
	if field == FieldID || field == FieldDocType {
		return true
	}
	if s == nil {
		return true
	}
	f, ok := s[field]
	if !ok {
		return false
	}
	return f.Type != Text || f.Facet
}

// Key addresses a document inside a space.
type Key struct {
	ID   string `json:"id"`
	Type string `json:"docType"`
}

type Query struct {
	Equals map[string]any `json:"equals"`
	Limit  int            `json:"limit"`
	Facets []string       `json:"facets,omitempty"`
}

type Result struct {
	Hits      []Document                `json:"hits"`
	TotalHits int                       `json:"totalHits"`
	Facets    map[string]map[string]int `json:"facets,omitempty"`
}

// Space is a document store partitioned by space name. Put is an upsert that
// becomes durable on Commit. FindOne returns nil when the key is absent.
type Space interface {
	RegisterSchema(ctx context.Context, name string, schema Schema) error
	Put(ctx context.Context, name string, doc Document) error
	FindOne(ctx context.Context, name string, key Key) (Document, error)
	FindMany(ctx context.Context, name string, q Query) (*Result, error)
	Commit(ctx context.Context) error
}

// Inserter is implemented by spaces that can reject a write whose key already
// exists when it is applied.
type Inserter interface {
	PutNew(ctx context.Context, name string, doc Document) error
}
