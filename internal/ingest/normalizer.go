package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// RawRow is one source line keyed by header label.
type RawRow map[string]string

// Normalizer turns a raw export into a canonical RecordSet.
type Normalizer struct {
	opts Options
}

// NewNormalizer builds a normalizer; zero-valued option fields fall back to defaults.
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// IngestFile reads path and normalizes it.
func (n *Normalizer) IngestFile(path, preferred string) (*domain.RecordSet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &IngestionError{Path: path, Reason: ReasonFileMissing, Err: err}
		}
		return nil, &IngestionError{Path: path, Reason: ReasonUnreadableEncoding, Err: err}
	}
	return n.Ingest(src, path, preferred)
}

// Ingest normalizes src. name is only used for reporting. src is not modified.
func (n *Normalizer) Ingest(src []byte, name, preferred string) (*domain.RecordSet, error) {
	header, rows, encoding, err := n.parse(src, name, preferred)
	if err != nil {
		return nil, err
	}

	columns, indexes, missing := n.resolveColumns(header)
	b := &rowBuilder{opts: n.opts, indexes: indexes}
	tickets := make([]domain.Ticket, 0, len(rows))
	for i, row := range rows {
		tickets = append(tickets, b.build(i+1, row))
	}

	return domain.NewRecordSet(domain.RecordSetParts{
		Source:    name,
		Encoding:  encoding,
		Tickets:   tickets,
		Columns:   columns,
		Missing:   missing,
		Coercions: b.warnings,
	}), nil
}

// ParseRaw decodes and splits src without canonical mapping.
func (n *Normalizer) ParseRaw(src []byte, name, preferred string) ([]RawRow, string, error) {
	header, rows, encoding, err := n.parse(src, name, preferred)
	if err != nil {
		return nil, "", err
	}
	out := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		raw := make(RawRow, len(header))
		for i, label := range header {
			if i < len(row) {
				raw[label] = row[i]
			} else {
				raw[label] = ""
			}
		}
		out = append(out, raw)
	}
	return out, encoding, nil
}

func (n *Normalizer) parse(src []byte, name, preferred string) ([]string, [][]string, string, error) {
	plan, err := encodingPlan(preferred, n.opts.Encodings)
	if err != nil {
		return nil, nil, "", &IngestionError{Path: name, Reason: ReasonUnreadableEncoding, Err: err}
	}

	var attempts []EncodingAttempt
	shapeFailures := 0
	for _, encoding := range plan {
		text, err := decoders[encoding](src)
		if err != nil {
			attempts = append(attempts, EncodingAttempt{Encoding: encoding, Error: err.Error()})
			continue
		}
		records, err := n.split(text)
		if err != nil {
			attempts = append(attempts, EncodingAttempt{Encoding: encoding, Error: err.Error()})
			shapeFailures++
			continue
		}
		if len(records) == 0 {
			return nil, nil, "", &IngestionError{Path: name, Reason: ReasonNoHeader}
		}
		header := make([]string, len(records[0]))
		for i, label := range records[0] {
			header[i] = strings.TrimSpace(label)
		}
		if len(header) < 2 {
			return nil, nil, "", &IngestionError{Path: name, Reason: ReasonMalformed, Err: ErrSingleColumn}
		}
		rows, err := shapeRows(header, records[1:])
		if err != nil {
			attempts = append(attempts, EncodingAttempt{Encoding: encoding, Error: err.Error()})
			shapeFailures++
			continue
		}
		return header, rows, encoding, nil
	}
	reason := ReasonUnreadableEncoding
	if shapeFailures == len(attempts) {
		reason = ReasonMalformed
	}
	return nil, nil, "", &IngestionError{Path: name, Reason: reason, Attempts: attempts}
}

func (n *Normalizer) split(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = n.opts.Delimiter
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// shapeRows trims cells and pads short rows. A row longer than the header is a shape
// error unless the overflow cells are all blank.
func shapeRows(header []string, records [][]string) ([][]string, error) {
	rows := make([][]string, 0, len(records))
	for i, record := range records {
		if len(record) > len(header) {
			for _, extra := range record[len(header):] {
				if strings.TrimSpace(extra) != "" {
					return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(record), len(header))
				}
			}
			record = record[:len(header)]
		}
		row := make([]string, len(header))
		for j, cell := range record {
			row[j] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resolveColumns picks, per canonical field, the first alias present in the header.
func (n *Normalizer) resolveColumns(header []string) (map[string]string, map[string]int, []domain.MissingColumnWarning) {
	columns := map[string]string{}
	indexes := map[string]int{}
	var missing []domain.MissingColumnWarning
	for _, field := range domain.CanonicalFields {
		idx := -1
		for _, alias := range n.opts.Aliases[field] {
			idx = slices.IndexFunc(header, func(label string) bool {
				return strings.EqualFold(label, strings.TrimSpace(alias))
			})
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			missing = append(missing, domain.MissingColumnWarning{
				Field:    field,
				Required: slices.Contains(domain.RequiredFields, field),
			})
			continue
		}
		columns[field] = header[idx]
		indexes[field] = idx
	}
	return columns, indexes, missing
}

type rowBuilder struct {
	opts     Options
	indexes  map[string]int
	warnings []domain.ValueCoercionWarning
}

func (b *rowBuilder) build(rowNum int, row []string) domain.Ticket {
	return domain.Ticket{
		Row:              rowNum,
		ID:               b.value(row, domain.FieldID),
		Title:            b.value(row, domain.FieldTitle),
		Type:             b.value(row, domain.FieldType),
		Category:         b.value(row, domain.FieldCategory),
		Priority:         b.value(row, domain.FieldPriority),
		Status:           b.value(row, domain.FieldStatus),
		OpenedAt:         b.date(rowNum, row, domain.FieldOpenedAt),
		ClosedAt:         b.date(rowNum, row, domain.FieldClosedAt),
		SLABreached:      b.breach(rowNum, row),
		SLATier:          b.value(row, domain.FieldSLATier),
		Technician:       b.technician(row),
		Requester:        b.value(row, domain.FieldRequester),
		AssociatedAssets: b.value(row, domain.FieldAssociatedAssets),
		Satisfaction:     b.rating(rowNum, row),
	}
}

func (b *rowBuilder) raw(row []string, field string) (string, bool) {
	idx, ok := b.indexes[field]
	if !ok || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

func (b *rowBuilder) value(row []string, field string) string {
	v, ok := b.raw(row, field)
	if !ok || slices.Contains(b.opts.NullLiterals, v) {
		return ""
	}
	return v
}

func (b *rowBuilder) warn(rowNum int, field, value string) {
	b.warnings = append(b.warnings, domain.ValueCoercionWarning{Row: rowNum, Field: field, Value: value})
}

func (b *rowBuilder) date(rowNum int, row []string, field string) time.Time {
	v := b.value(row, field)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range b.opts.DateLayouts {
		if t, err := time.ParseInLocation(layout, v, b.opts.Location); err == nil {
			return t
		}
	}
	b.warn(rowNum, field, v)
	return time.Time{}
}

func (b *rowBuilder) breach(rowNum int, row []string) domain.SLAFlag {
	v := b.value(row, domain.FieldSLABreached)
	switch {
	case v == "":
		return domain.SLAUnknown
	case domain.Vocabulary(b.opts.BreachYes).Contains(v):
		return domain.SLABreached
	case domain.Vocabulary(b.opts.BreachNo).Contains(v):
		return domain.SLAMet
	}
	b.warn(rowNum, domain.FieldSLABreached, v)
	return domain.SLAUnknown
}

func (b *rowBuilder) technician(row []string) string {
	v, _ := b.raw(row, domain.FieldTechnician)
	v = strings.TrimSpace(v)
	if v == "" || slices.Contains(b.opts.NullLiterals, v) || domain.Vocabulary(b.opts.UnassignedLiterals).Contains(v) {
		return domain.Unassigned
	}
	return v
}

func (b *rowBuilder) rating(rowNum int, row []string) float64 {
	v := b.value(row, domain.FieldSatisfaction)
	if v == "" {
		return 0
	}
	score, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil || math.IsNaN(score) || score < 1 || score > 5 {
		b.warn(rowNum, domain.FieldSatisfaction, v)
		return 0
	}
	return score
}
