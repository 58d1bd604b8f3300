package analytics

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// Finding keys.
const (
	FindingUnassigned       = "unassigned_tickets"
	FindingNoCategory       = "no_category_tickets"
	FindingHardwareNoAssets = "hardware_no_assets"
	FindingDuplicateIDs     = "duplicate_ids"
	FindingMissingColumns   = "missing_columns"
	FindingInvalidValues    = "invalid_values"
)

// Finding is one data-quality issue with a remediation hint.
type Finding struct {
	Count          int    `json:"count"`
	Recommendation string `json:"recommendation"`
}

// Validate reports data-quality findings. Keys with a zero count are omitted.
func (e *Engine) Validate(rs *domain.RecordSet) map[string]Finding {
	var unassigned, noCategory, hardwareNoAssets, duplicates int
	seen := map[string]bool{}
	for _, t := range rs.All() {
		if t.IsUnassigned() {
			unassigned++
		}
		if t.Category == "" {
			noCategory++
		} else if t.AssociatedAssets == "" && e.isHardware(t.Category) {
			hardwareNoAssets++
		}
		if t.ID != "" {
			if seen[t.ID] {
				duplicates++
			}
			seen[t.ID] = true
		}
	}

	missing := rs.MissingColumns()
	missingNames := make([]string, 0, len(missing))
	for _, w := range missing {
		missingNames = append(missingNames, w.Field)
	}
	invalid := len(rs.CoercionWarnings())

	findings := map[string]Finding{}
	add := func(key string, count int, recommendation string) {
		if count > 0 {
			findings[key] = Finding{Count: count, Recommendation: recommendation}
		}
	}
	add(FindingUnassigned, unassigned,
		fmt.Sprintf("Assign %d pending tickets to available technicians", unassigned))
	add(FindingNoCategory, noCategory,
		fmt.Sprintf("Categorize %d tickets so workload and trend reports stay accurate", noCategory))
	add(FindingHardwareNoAssets, hardwareNoAssets,
		fmt.Sprintf("Link the affected hardware items to %d hardware tickets", hardwareNoAssets))
	add(FindingDuplicateIDs, duplicates,
		fmt.Sprintf("Review %d rows that repeat an existing ticket ID in the export", duplicates))
	add(FindingMissingColumns, len(missingNames),
		fmt.Sprintf("Add the missing export columns: %s", strings.Join(missingNames, ", ")))
	add(FindingInvalidValues, invalid,
		fmt.Sprintf("Correct %d date, rating or SLA values that could not be parsed", invalid))
	return findings
}

func (e *Engine) isHardware(category string) bool {
	lower := strings.ToLower(category)
	for _, keyword := range e.policy.HardwareKeywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
