package sqlite

// sqlite models

type SpaceRow struct {
	Name   string `gorm:"primary_key" json:"name"`
	Schema string `gorm:"type:text" json:"schema"`
}

func (SpaceRow) TableName() string {
	return "spaces"
}

type DocumentRow struct {
	Seq     uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"seq"`
	Space   string `gorm:"unique_index:idx_document_key" json:"space"`
	DocID   string `gorm:"unique_index:idx_document_key" json:"doc_id"`
	DocType string `gorm:"unique_index:idx_document_key" json:"doc_type"`
	Body    string `gorm:"type:text" json:"body"`
}

func (DocumentRow) TableName() string {
	return "documents"
}

type FieldRow struct {
	Id     uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	DocSeq uint64 `gorm:"index" json:"doc_seq"`
	Space  string `gorm:"index:idx_field_lookup" json:"space"`
	Field  string `gorm:"index:idx_field_lookup" json:"field"`
	Value  string `gorm:"index:idx_field_lookup" json:"value"`
}

func (FieldRow) TableName() string {
	return "document_fields"
}

type facetCount struct {
	Value string
	Total int
}
