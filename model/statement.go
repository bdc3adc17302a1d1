package model

// ImportSummary reports the outcome of one statement file import.
// Duplicate lines are skipped silently by design: re-importing an
// overlapping statement must be safe.
type ImportSummary struct {
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}
