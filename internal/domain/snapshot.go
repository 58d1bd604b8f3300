package domain

import "time"

// AnalysisSnapshot records the headline KPIs of one analysis run.
type AnalysisSnapshot struct {
	ID             string         `json:"id"`
	SourceName     string         `json:"source_name"`
	SourceChecksum string         `json:"source_checksum"`
	Encoding       string         `json:"encoding"`
	TotalTickets   int            `json:"total_tickets"`
	ResolutionRate float64        `json:"resolution_rate"`
	SLACompliance  float64        `json:"sla_compliance"`
	CSATPercentage float64        `json:"csat_percentage"`
	Backlog        int            `json:"backlog"`
	Findings       map[string]any `json:"findings"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DatasetUpload records one replacement of the source export.
type DatasetUpload struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Checksum   string    `json:"checksum"`
	SizeBytes  int64     `json:"size_bytes"`
	RowCount   int       `json:"row_count"`
	BackupPath *string   `json:"backup_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
