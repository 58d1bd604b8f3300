package domain

import (
	"strings"
	"time"
)

// Unassigned is the technician sentinel for tickets without an identifiable owner.
const Unassigned = "UNASSIGNED"

// SLAFlag is the tri-state "resolution time exceeded" flag.
type SLAFlag int8

const (
	SLAUnknown SLAFlag = iota
	SLABreached
	SLAMet
)

// String returns the flag name used in JSON and logs.
func (f SLAFlag) String() string {
	switch f {
	case SLABreached:
		return "breached"
	case SLAMet:
		return "met"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f SLAFlag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Ticket is one normalized support-request record.
//
// Type, Status, Priority and SLATier are open vocabularies and pass through as found.
// Zero values mean "no value": an empty string, a zero time, a zero Satisfaction.
type Ticket struct {
	Row              int       `json:"row"`
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Type             string    `json:"type"`
	Category         string    `json:"category"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	OpenedAt         time.Time `json:"opened_at"`
	ClosedAt         time.Time `json:"closed_at"`
	SLABreached      SLAFlag   `json:"sla_breached"`
	SLATier          string    `json:"sla_tier"`
	Technician       string    `json:"technician"`
	Requester        string    `json:"requester"`
	AssociatedAssets string    `json:"associated_assets"`
	Satisfaction     float64   `json:"satisfaction"`
}

// IsUnassigned reports whether the ticket landed in the unassigned bucket.
func (t Ticket) IsUnassigned() bool {
	return t.Technician == Unassigned
}

// HasRating reports whether the ticket carries a valid CSAT rating.
func (t Ticket) HasRating() bool {
	return t.Satisfaction >= 1 && t.Satisfaction <= 5
}

// Duration returns the elapsed time between opening and closing when both are known.
func (t Ticket) Duration() (time.Duration, bool) {
	if t.OpenedAt.IsZero() || t.ClosedAt.IsZero() {
		return 0, false
	}
	return t.ClosedAt.Sub(t.OpenedAt), true
}

// Vocabulary is a case-insensitive open set of labels.
type Vocabulary []string

// Contains reports whether value matches any label, ignoring case and surrounding space.
func (v Vocabulary) Contains(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, label := range v {
		if strings.EqualFold(strings.TrimSpace(label), value) {
			return true
		}
	}
	return false
}
