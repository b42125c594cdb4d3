package converter

import (
	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/model"
)

// Capsule export column names
const (
	capsuleFirstName    = "First Name"
	capsuleLastName     = "Last Name"
	capsuleOrganisation = "Organisation"
	capsuleTags         = "Tags"
	capsuleContactName  = "Contact Name"
)

// Alternative columns, tried in priority order
var (
	capsuleEmailColumns = []string{"Email Address", "Work Email"}
	capsulePhoneColumns = []string{"Mobile Phone", "Direct Phone", "Work Phone", "Phone Number"}
	capsuleNoteColumns  = []string{"About", "History"}
)

const (
	capsuleTagSeparator = ";"
	customTagSeparator  = ","
	noteSeparator       = "\n\n"
)

func capsuleContact(row ingest.Row) *model.Entity {
	first, last, org := row.Get(capsuleFirstName), row.Get(capsuleLastName), row.Get(capsuleOrganisation)
	if first == "" && last == "" && org == "" {
		return nil
	}

	name := org
	if first != "" && last != "" {
		name = joinName(first, last)
	}

	fields := model.NewFields(model.KindContact)
	fields[model.FieldName] = name
	fields[model.FieldEmail] = firstNonEmpty(row, capsuleEmailColumns...)
	fields[model.FieldPhone] = firstNonEmpty(row, capsulePhoneColumns...)
	fields[model.FieldOrganisation] = org
	fields[model.FieldNotes] = joinNonEmpty(row, noteSeparator, capsuleNoteColumns...)

	return &model.Entity{
		Kind:   model.KindContact,
		Fields: fields,
		Tags:   SplitTags(row.Get(capsuleTags), capsuleTagSeparator),
	}
}

func capsuleOpportunity(row ingest.Row) *model.Entity {
	if !row.Has("Opportunity Name") {
		return nil
	}

	fields := model.NewFields(model.KindOpportunity)
	fields[model.FieldName] = row.Get("Opportunity Name")
	fields[model.FieldDescription] = row.Get("Opportunity Description")
	fields[model.FieldStatus] = row.Get("Milestone")
	fields[model.FieldProbability] = row.Get("Probability")
	fields[model.FieldValue] = row.Get("Estimated Value")
	fields[model.FieldCurrency] = row.Get("Currency")
	fields[model.FieldExpectedCloseDate] = row.Get("Expected Close Date")
	fields[model.FieldActualCloseDate] = row.Get("Actual Close Date")

	return &model.Entity{
		Kind:        model.KindOpportunity,
		Fields:      fields,
		Tags:        SplitTags(row.Get(capsuleTags), capsuleTagSeparator),
		ContactName: row.Get(capsuleContactName),
	}
}

func capsuleProject(row ingest.Row) *model.Entity {
	if !row.Has("Project Name") {
		return nil
	}

	fields := model.NewFields(model.KindProject)
	fields[model.FieldName] = row.Get("Project Name")
	fields[model.FieldDescription] = row.Get("Project Description")
	fields[model.FieldStatus] = row.Get("Status")
	fields[model.FieldExpectedCloseDate] = row.Get("Expected Close Date")
	fields[model.FieldClosedDate] = row.Get("Closed Date")

	return &model.Entity{
		Kind:        model.KindProject,
		Fields:      fields,
		Tags:        SplitTags(row.Get(capsuleTags), capsuleTagSeparator),
		ContactName: row.Get(capsuleContactName),
	}
}
