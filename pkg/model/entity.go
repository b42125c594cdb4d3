// pkg/model/entity.go
package model

// Kind identifies the entity type an import produces
type Kind string

const (
	KindContact     Kind = "contact"
	KindOpportunity Kind = "opportunity"
	KindProject     Kind = "project"
)

// Semantic field names shared by the row converters and the store
const (
	FieldName              = "name"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldOrganisation      = "organisation"
	FieldNotes             = "notes"
	FieldDescription       = "description"
	FieldStatus            = "status"
	FieldProbability       = "probability"
	FieldValue             = "value"
	FieldCurrency          = "currency"
	FieldExpectedCloseDate = "expected_close_date"
	FieldActualCloseDate   = "actual_close_date"
	FieldClosedDate        = "closed_date"
)

// EntityMetadata describes how an entity kind is persisted
type EntityMetadata struct {
	Kind        Kind     // Entity kind
	Table       string   // Entity table name
	TagTable    string   // Junction table linking the entity to tags
	ForeignKey  string   // Junction column referencing the entity
	Fields      []string // Closed set of semantic fields, in column order
	HasContact  bool     // Whether the entity carries a contact_id reference
	ContactKind Kind     // Kind referenced by contact_id
}

var entityMetadata = map[Kind]EntityMetadata{
	KindContact: {
		Kind:       KindContact,
		Table:      "contacts",
		TagTable:   "contact_tags",
		ForeignKey: "contact_id",
		Fields:     []string{FieldName, FieldEmail, FieldPhone, FieldOrganisation, FieldNotes},
	},
	KindOpportunity: {
		Kind:       KindOpportunity,
		Table:      "opportunities",
		TagTable:   "opportunity_tags",
		ForeignKey: "opportunity_id",
		Fields: []string{
			FieldName, FieldDescription, FieldStatus, FieldProbability, FieldValue,
			FieldCurrency, FieldExpectedCloseDate, FieldActualCloseDate,
		},
		HasContact:  true,
		ContactKind: KindContact,
	},
	KindProject: {
		Kind:       KindProject,
		Table:      "projects",
		TagTable:   "project_tags",
		ForeignKey: "project_id",
		Fields: []string{
			FieldName, FieldDescription, FieldStatus, FieldExpectedCloseDate, FieldClosedDate,
		},
		HasContact:  true,
		ContactKind: KindContact,
	},
}

// Kinds returns every importable entity kind in a stable order
func Kinds() []Kind {
	return []Kind{KindContact, KindOpportunity, KindProject}
}

// Metadata returns the persistence description for a kind
func (k Kind) Metadata() (EntityMetadata, bool) {
	md, ok := entityMetadata[k]
	return md, ok
}

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	_, ok := entityMetadata[k]
	return ok
}

// FieldsFor returns the closed field set of a kind. Returns nil for unknown kinds.
func FieldsFor(kind Kind) []string {
	md, ok := entityMetadata[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(md.Fields))
	copy(out, md.Fields)
	return out
}

// Fields maps semantic field names to normalized string values
type Fields map[string]string

// NewFields returns a Fields value with every field of kind set to ""
func NewFields(kind Kind) Fields {
	f := make(Fields)
	for _, name := range FieldsFor(kind) {
		f[name] = ""
	}
	return f
}

// Get returns the value of a field, "" when absent
func (f Fields) Get(name string) string {
	return f[name]
}

// Entity is one normalized row ready to be persisted
type Entity struct {
	Kind        Kind
	Fields      Fields
	Tags        []string
	ContactName string // Related contact referenced by name, resolved before insert
	ContactID   *int64 // Resolved related contact
}

// Name returns the required name field
func (e *Entity) Name() string {
	return e.Fields.Get(FieldName)
}
