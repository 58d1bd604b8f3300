package domain

import (
	"fmt"
	"iter"
	"slices"
)

// Canonical field names resolved from the export header.
const (
	FieldID               = "id"
	FieldTitle            = "title"
	FieldType             = "type"
	FieldCategory         = "category"
	FieldPriority         = "priority"
	FieldStatus           = "status"
	FieldOpenedAt         = "opened_at"
	FieldClosedAt         = "closed_at"
	FieldSLABreached      = "sla_breached"
	FieldSLATier          = "sla_tier"
	FieldTechnician       = "technician"
	FieldRequester        = "requester"
	FieldAssociatedAssets = "associated_assets"
	FieldSatisfaction     = "satisfaction"
)

// CanonicalFields lists every canonical field in header order of the reference export.
var CanonicalFields = []string{
	FieldID,
	FieldTitle,
	FieldType,
	FieldCategory,
	FieldPriority,
	FieldStatus,
	FieldOpenedAt,
	FieldClosedAt,
	FieldSLABreached,
	FieldSLATier,
	FieldTechnician,
	FieldRequester,
	FieldAssociatedAssets,
	FieldSatisfaction,
}

// RequiredFields are the minimum usable columns.
var RequiredFields = []string{FieldID, FieldTitle, FieldType, FieldStatus, FieldOpenedAt}

// MissingColumnWarning notes a canonical field without a matching header alias.
type MissingColumnWarning struct {
	Field    string `json:"field"`
	Required bool   `json:"required"`
}

func (w MissingColumnWarning) String() string {
	return fmt.Sprintf("no column found for %q", w.Field)
}

// ValueCoercionWarning notes a date or numeric value that could not be parsed.
type ValueCoercionWarning struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func (w ValueCoercionWarning) String() string {
	return fmt.Sprintf("row %d: cannot parse %s value %q", w.Row, w.Field, w.Value)
}

// RecordSet is the canonical, read-only result of one ingestion call.
type RecordSet struct {
	source    string
	encoding  string
	tickets   []Ticket
	columns   map[string]string
	missing   []MissingColumnWarning
	coercions []ValueCoercionWarning
}

// RecordSetParts carries everything a RecordSet is built from.
type RecordSetParts struct {
	Source    string
	Encoding  string
	Tickets   []Ticket
	Columns   map[string]string
	Missing   []MissingColumnWarning
	Coercions []ValueCoercionWarning
}

// NewRecordSet freezes parts into a RecordSet. Inputs are copied.
func NewRecordSet(parts RecordSetParts) *RecordSet {
	columns := make(map[string]string, len(parts.Columns))
	for k, v := range parts.Columns {
		columns[k] = v
	}
	return &RecordSet{
		source:    parts.Source,
		encoding:  parts.Encoding,
		tickets:   slices.Clone(parts.Tickets),
		columns:   columns,
		missing:   slices.Clone(parts.Missing),
		coercions: slices.Clone(parts.Coercions),
	}
}

// Source names where the records came from.
func (s *RecordSet) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Encoding is the text encoding that was accepted.
func (s *RecordSet) Encoding() string {
	if s == nil {
		return ""
	}
	return s.encoding
}

// Len returns the number of tickets.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tickets)
}

// All iterates tickets in source order. Tickets are yielded by value.
func (s *RecordSet) All() iter.Seq2[int, Ticket] {
	return func(yield func(int, Ticket) bool) {
		if s == nil {
			return
		}
		for i, t := range s.tickets {
			if !yield(i, t) {
				return
			}
		}
	}
}

// Tickets returns a copy of the tickets in source order.
func (s *RecordSet) Tickets() []Ticket {
	if s == nil {
		return nil
	}
	return slices.Clone(s.tickets)
}

// Column returns the header label backing a canonical field.
func (s *RecordSet) Column(field string) (string, bool) {
	if s == nil {
		return "", false
	}
	label, ok := s.columns[field]
	return label, ok
}

// Columns returns a copy of the canonical field to header label map.
func (s *RecordSet) Columns() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(s.columns))
	for k, v := range s.columns {
		out[k] = v
	}
	return out
}

// MissingColumns returns the canonical fields that had no matching header.
func (s *RecordSet) MissingColumns() []MissingColumnWarning {
	if s == nil {
		return nil
	}
	return slices.Clone(s.missing)
}

// CoercionWarnings returns the per-row parse failures.
func (s *RecordSet) CoercionWarnings() []ValueCoercionWarning {
	if s == nil {
		return nil
	}
	return slices.Clone(s.coercions)
}

// Warnings flattens every non-fatal condition into readable lines.
func (s *RecordSet) Warnings() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.missing)+len(s.coercions))
	for _, w := range s.missing {
		out = append(out, w.String())
	}
	for _, w := range s.coercions {
		out = append(out, w.String())
	}
	return out
}
