package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDatasetReplaced   EventType = "dataset_replaced"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventIngestionFailed   EventType = "ingestion_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// DatasetReplacedPayload payload.
type DatasetReplacedPayload struct {
	UploadID   string `json:"upload_id"`
	FileName   string `json:"file_name"`
	Checksum   string `json:"checksum"`
	RowCount   int    `json:"row_count"`
	BackupPath string `json:"backup_path,omitempty"`
}

// AnalysisCompletedPayload payload.
type AnalysisCompletedPayload struct {
	Checksum       string  `json:"checksum"`
	Encoding       string  `json:"encoding"`
	TotalTickets   int     `json:"total_tickets"`
	ResolutionRate float64 `json:"resolution_rate"`
	SLACompliance  float64 `json:"sla_compliance"`
	TotalIncidents int     `json:"total_incidents"`
	CSATPercentage float64 `json:"csat_percentage"`
	Warnings       int     `json:"warnings"`
	Cached         bool    `json:"cached"`
	// Repeat is set when the same export content was already analyzed and recorded.
	Repeat bool `json:"repeat"`
}

// IngestionFailedPayload payload.
type IngestionFailedPayload struct {
	Reason   string   `json:"reason"`
	Attempts []string `json:"attempts,omitempty"`
	Error    string   `json:"error"`
}
