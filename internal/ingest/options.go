package ingest

import (
	"time"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// Options drives the normalizer. Every list is tried in order.
type Options struct {
	Encodings          []string
	Delimiter          rune
	Aliases            map[string][]string
	NullLiterals       []string
	UnassignedLiterals []string
	DateLayouts        []string
	BreachYes          []string
	BreachNo           []string
	Location           *time.Location
}

// DefaultAliases maps each canonical field to the header labels seen in helpdesk exports.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		domain.FieldID:       {"ID", "Ticket ID", "Ticket", "Número", "Numero"},
		domain.FieldTitle:    {"Título", "Titulo", "Title", "Asunto", "Subject"},
		domain.FieldType:     {"Tipo", "Type", "Ticket Type"},
		domain.FieldCategory: {"Categoría", "Categoria", "Category"},
		domain.FieldPriority: {"Prioridad", "Priority"},
		domain.FieldStatus:   {"Estado", "Status"},
		domain.FieldOpenedAt: {"Fecha de Apertura", "Fecha de apertura", "Opening date", "Opened At", "Created"},
		domain.FieldClosedAt: {"Fecha de solución", "Fecha de solucion", "Fecha de cierre", "Resolution date", "Solved At", "Closed At"},
		domain.FieldSLABreached: {
			"Se superó el tiempo de resolución",
			"Se supero el tiempo de resolucion",
			"Time to resolve exceeded",
			"SLA Breached",
		},
		domain.FieldSLATier: {
			"ANS (Acuerdo de nivel de servicio) - ANS (Acuerdo de nivel de servicio) Tiempo de solución",
			"ANS (Acuerdo de nivel de servicio) Tiempo de solución",
			"ANS - Tiempo de solución",
			"SLA - Time to resolve",
			"SLA Tier",
			"SLA",
		},
		domain.FieldTechnician: {
			"Asignado a: - Técnico",
			"Asignado a - Técnico",
			"Técnico",
			"Tecnico",
			"Assigned to - Technician",
			"Technician",
		},
		domain.FieldRequester:        {"Solicitante - Solicitante", "Solicitante", "Requester - Requester", "Requester"},
		domain.FieldAssociatedAssets: {"Elementos asociados", "Associated items", "Associated Assets", "Assets"},
		domain.FieldSatisfaction: {
			"Encuesta de satisfacción - Satisfacción",
			"Satisfacción",
			"Satisfaccion",
			"Satisfaction survey - Satisfaction",
			"Satisfaction",
			"CSAT",
		},
	}
}

// DefaultOptions mirrors the helpdesk export conventions.
func DefaultOptions() Options {
	return Options{
		Encodings:          []string{EncodingUTF8BOM, EncodingUTF8, EncodingLatin1, EncodingWindows1252},
		Delimiter:          ';',
		Aliases:            DefaultAliases(),
		NullLiterals:       []string{"", "NULL", "null", "N/A", "n/a"},
		UnassignedLiterals: []string{"", "null", "n/a", "na", "none", "-", "sin asignar", "unassigned"},
		DateLayouts: []string{
			"2006-01-02 15:04",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			time.RFC3339,
			"02/01/2006 15:04",
			"02/01/2006",
			"2006-01-02",
		},
		BreachYes: []string{"si", "sí", "yes", "y", "s", "true", "1"},
		BreachNo:  []string{"no", "n", "false", "0"},
		Location:  time.UTC,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if len(o.Encodings) == 0 {
		o.Encodings = def.Encodings
	}
	if o.Delimiter == 0 {
		o.Delimiter = def.Delimiter
	}
	if len(o.Aliases) == 0 {
		o.Aliases = def.Aliases
	}
	if o.NullLiterals == nil {
		o.NullLiterals = def.NullLiterals
	}
	if o.UnassignedLiterals == nil {
		o.UnassignedLiterals = def.UnassignedLiterals
	}
	if len(o.DateLayouts) == 0 {
		o.DateLayouts = def.DateLayouts
	}
	if len(o.BreachYes) == 0 {
		o.BreachYes = def.BreachYes
	}
	if len(o.BreachNo) == 0 {
		o.BreachNo = def.BreachNo
	}
	if o.Location == nil {
		o.Location = def.Location
	}
	return o
}
