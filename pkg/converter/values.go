// pkg/converter/values.go
package converter

import (
	"strings"

	"github.com/David-Botos/crm-import/pkg/ingest"
)

// SplitTags splits a delimited tag cell into trimmed, non-empty, de-duplicated
// tag names. Tag identity is case-sensitive; first occurrence order is kept.
func SplitTags(value, sep string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, sep)
	seen := make(map[string]struct{}, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}

// firstNonEmpty returns the first column with a value
func firstNonEmpty(row ingest.Row, columns ...string) string {
	for _, col := range columns {
		if v := row.Get(col); v != "" {
			return v
		}
	}
	return ""
}

// joinNonEmpty joins the non-empty values of columns with sep
func joinNonEmpty(row ingest.Row, sep string, columns ...string) string {
	values := make([]string, 0, len(columns))
	for _, col := range columns {
		if v := row.Get(col); v != "" {
			values = append(values, v)
		}
	}
	return strings.Join(values, sep)
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
