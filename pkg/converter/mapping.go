// pkg/converter/mapping.go
package converter

import (
	"io"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/model"
)

// Mapping keys that are not entity fields
const (
	// MappingTags names the comma-delimited tag column
	MappingTags = "tags"
	// MappingContact names the column holding a related contact's name
	MappingContact = "contact"
)

// Mapping maps a semantic field name to the file column that holds it
type Mapping map[string]string

// value reads the column mapped to field. A missing entry yields "".
func (m Mapping) value(row ingest.Row, field string) string {
	column, ok := m[field]
	if !ok || column == "" {
		return ""
	}
	return row.Get(column)
}

// Validate rejects keys that are neither fields of kind nor reserved mapping keys
func (m Mapping) Validate(kind model.Kind) error {
	allowed := map[string]bool{MappingTags: true}
	md, ok := kind.Metadata()
	if !ok {
		return errors.Newf("unknown entity kind %q", kind)
	}
	if md.HasContact {
		allowed[MappingContact] = true
	}
	for _, f := range md.Fields {
		allowed[f] = true
	}

	for key := range m {
		if !allowed[key] {
			return errors.Newf("mapping key %q is not a %s field", key, kind)
		}
	}
	return nil
}

// LoadMapping decodes a YAML (or JSON) document of field: column pairs
func LoadMapping(r io.Reader) (Mapping, error) {
	var m Mapping
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return Mapping{}, nil
		}
		return nil, errors.Wrap(err, "decode mapping")
	}
	if m == nil {
		m = Mapping{}
	}
	return m, nil
}
