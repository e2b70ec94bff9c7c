package space

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Document is a schemaless JSON object. Numbers are kept as json.Number so
// large integers survive a round trip.
type Document map[string]any

func (d Document) Key() Key {
	return Key{ID: d.String(FieldID), Type: d.String(FieldDocType)}
}

func (d Document) String(field string) string {
	v, ok := d[field]
	if !ok || v == nil {
		return ""
	}
	return FieldValue(v)
}

func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// Matches reports whether every equality in eq holds for d.
func (d Document) Matches(eq map[string]any) bool {
	for f, want := range eq {
		got, ok := d[f]
		if !ok {
			return false
		}
		if FieldValue(got) != FieldValue(want) {
			return false
		}
	}
	return true
}

// Marshal returns the canonical JSON body of d.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

func Unmarshal(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var d Document
	if err := dec.Decode(&d); err != nil {
		return nil, err
	}
	return d, nil
}

// Encode converts a typed entity into a document.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Decode fills v from d.
func Decode(d Document, v any) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// FieldValue renders a scalar the way it is indexed and compared.
func FieldValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case decimal.Decimal:
		return x.String()
	case *decimal.Decimal:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// IsScalar reports whether v can be stored as an index value.
func IsScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any, nil:
		return false
	}
	return true
}

func sortedFields(eq map[string]any) []string {
	fields := make([]string, 0, len(eq))
	for f := range eq {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
