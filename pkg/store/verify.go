// pkg/store/verify.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/model"
)

// IntegrityIssue represents a data integrity issue
type IntegrityIssue struct {
	IssueType    string
	Description  string
	AffectedRows int64
}

// VerificationReport summarizes the stored state of one entity kind
type VerificationReport struct {
	Kind             model.Kind
	VerificationTime time.Time
	EntityCount      int64
	TagCount         int64
	LinkCount        int64
	IntegrityIssues  []IntegrityIssue
	Duration         time.Duration
}

// Healthy reports whether no integrity issue was found
func (r *VerificationReport) Healthy() bool {
	return len(r.IntegrityIssues) == 0
}

// Verify counts the rows of a kind and checks its junction table for dangling references
func (s *SQLStore) Verify(ctx context.Context, kind model.Kind) (*VerificationReport, error) {
	md, err := metadata(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &VerificationReport{
		Kind:             kind,
		VerificationTime: start,
	}

	counts := []struct {
		dest  *int64
		query string
	}{
		{&report.EntityCount, fmt.Sprintf("SELECT COUNT(*) FROM %s", md.Table)},
		{&report.TagCount, "SELECT COUNT(*) FROM tags"},
		{&report.LinkCount, fmt.Sprintf("SELECT COUNT(*) FROM %s", md.TagTable)},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dest, c.query); err != nil {
			return nil, errors.Wrapf(err, "verify %s", kind)
		}
	}

	checks := []struct {
		issueType   string
		description string
		query       string
	}{
		{
			"DanglingEntity",
			fmt.Sprintf("%s rows reference a missing %s", md.TagTable, kind),
			fmt.Sprintf("SELECT COUNT(*) FROM %s j LEFT JOIN %s e ON e.id = j.%s WHERE e.id IS NULL",
				md.TagTable, md.Table, md.ForeignKey),
		},
		{
			"DanglingTag",
			fmt.Sprintf("%s rows reference a missing tag", md.TagTable),
			fmt.Sprintf("SELECT COUNT(*) FROM %s j LEFT JOIN tags t ON t.id = j.tag_id WHERE t.id IS NULL",
				md.TagTable),
		},
		{
			"EmptyName",
			fmt.Sprintf("%s rows have an empty name", md.Table),
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ''", md.Table),
		},
	}
	for _, check := range checks {
		var n int64
		if err := s.db.GetContext(ctx, &n, check.query); err != nil {
			return nil, errors.Wrapf(err, "verify %s", kind)
		}
		if n > 0 {
			report.IntegrityIssues = append(report.IntegrityIssues, IntegrityIssue{
				IssueType:    check.issueType,
				Description:  check.description,
				AffectedRows: n,
			})
		}
	}

	report.Duration = time.Since(start)
	if report.Healthy() {
		s.logger.Info("Verification successful",
			zap.String("kind", string(kind)),
			zap.Int64("entities", report.EntityCount),
			zap.Int64("links", report.LinkCount))
	} else {
		s.logger.Warn("Integrity issues found",
			zap.String("kind", string(kind)),
			zap.Int("issues", len(report.IntegrityIssues)))
	}
	return report, nil
}
