// pkg/converter/converter.go
package converter

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/model"
)

// Source identifies the layout of an import file
type Source string

const (
	// SourceCapsule is the column layout of a Capsule CRM export
	SourceCapsule Source = "capsule"
	// SourceCustom reads columns named by a caller-supplied Mapping
	SourceCustom Source = "custom"
)

// ParseSource converts a request value to a Source. Empty means custom.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case "", SourceCustom:
		return SourceCustom, nil
	case SourceCapsule:
		return SourceCapsule, nil
	default:
		return "", errors.Newf("unknown import source %q", s)
	}
}

// Transformer converts one raw row into an entity. The boolean is false when
// the row must be skipped.
type Transformer interface {
	Transform(row ingest.Row, index int) (*model.Entity, bool)
}

// RowConverter converts raw rows of one source layout into entities of one kind
type RowConverter struct {
	kind    model.Kind
	source  Source
	mapping Mapping
	logger  *zap.Logger
}

// New creates a RowConverter. A mapping is only consulted for SourceCustom.
func New(kind model.Kind, source Source, mapping Mapping, logger *zap.Logger) (*RowConverter, error) {
	if !kind.Valid() {
		return nil, errors.Newf("unknown entity kind %q", kind)
	}
	if source != SourceCapsule && source != SourceCustom {
		return nil, errors.Newf("unknown import source %q", source)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowConverter{
		kind:    kind,
		source:  source,
		mapping: mapping,
		logger:  logger.Named("converter").With(zap.String("kind", string(kind))),
	}, nil
}

// Transform implements Transformer. index is the 1-based row position, used for logging.
func (c *RowConverter) Transform(row ingest.Row, index int) (*model.Entity, bool) {
	if len(row) == 0 {
		return nil, false
	}

	var entity *model.Entity
	if c.source == SourceCapsule {
		entity = c.fromCapsule(row)
	} else {
		entity = c.fromMapping(row)
	}

	// Rows without a name never reach storage and are not errors
	if entity == nil || entity.Name() == "" {
		c.logger.Debug("Skipping row without name", zap.Int("row", index))
		return nil, false
	}
	return entity, true
}

func (c *RowConverter) fromCapsule(row ingest.Row) *model.Entity {
	switch c.kind {
	case model.KindContact:
		return capsuleContact(row)
	case model.KindOpportunity:
		return capsuleOpportunity(row)
	case model.KindProject:
		return capsuleProject(row)
	}
	return nil
}

func (c *RowConverter) fromMapping(row ingest.Row) *model.Entity {
	fields := model.NewFields(c.kind)
	for name := range fields {
		fields[name] = c.mapping.value(row, name)
	}

	entity := &model.Entity{
		Kind:   c.kind,
		Fields: fields,
		Tags:   SplitTags(c.mapping.value(row, MappingTags), customTagSeparator),
	}
	md, _ := c.kind.Metadata()
	if md.HasContact {
		entity.ContactName = c.mapping.value(row, MappingContact)
	}
	return entity
}
