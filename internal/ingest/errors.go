package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Ingestion failure reasons.
const (
	ReasonFileMissing        = "file missing"
	ReasonUnreadableEncoding = "unreadable encoding"
	ReasonMalformed          = "malformed structure"
	ReasonNoHeader           = "missing header row"
)

// ErrSingleColumn is returned when the header parses into one column, which almost always
// means the file uses another delimiter.
var ErrSingleColumn = errors.New("header has a single column; wrong delimiter?")

// EncodingAttempt records one failed decode/parse attempt.
type EncodingAttempt struct {
	Encoding string `json:"encoding"`
	Error    string `json:"error"`
}

// IngestionError is fatal to the requested analysis.
type IngestionError struct {
	Path     string
	Reason   string
	Attempts []EncodingAttempt
	Err      error
}

func (e *IngestionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ingest %s: %s", e.Path, e.Reason)
	if len(e.Attempts) > 0 {
		tried := make([]string, 0, len(e.Attempts))
		for _, a := range e.Attempts {
			tried = append(tried, a.Encoding+": "+a.Error)
		}
		fmt.Fprintf(&b, " (tried %s)", strings.Join(tried, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsFileMissing reports whether err is an IngestionError for a missing source.
func IsFileMissing(err error) bool {
	var ingErr *IngestionError
	return errors.As(err, &ingErr) && ingErr.Reason == ReasonFileMissing
}
