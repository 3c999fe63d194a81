package domain

import "time"

// IngestReport summarises an ingestion run.
type IngestReport struct {
	Documents     int           `json:"documents"`
	Segments      int           `json:"segments"`
	Stored        int           `json:"stored"`
	FailedBatches int           `json:"failed_batches"`
	ReadErrors    int           `json:"read_errors"`
	Duration      time.Duration `json:"duration"`
}

// IngestProgress is reported after every stored batch.
type IngestProgress struct {
	Documents int
	Segments  int
	Stored    int
	Pending   int
}
