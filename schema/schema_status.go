package schema

import "time"

// StoreStatus represents the status of the persistence store.
type StoreStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	SchemaVersion    uint             `json:"schema_version"`
	TotalAnalyses    int              `json:"total_analyses"`
	LastAnalysisID   string           `json:"last_analysis_id"`
	LastAnalysisAt   time.Time        `json:"last_analysis_at"`
	OldestAnalysisAt time.Time        `json:"oldest_analysis_at"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}
