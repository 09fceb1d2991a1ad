package types

// Progress is a backup progress snapshot. Totals are nil when they could
// not be computed up front.
type Progress struct {
	ProcessedBytes int64    `json:"processedBytes"`
	TotalBytes     *int64   `json:"totalBytes,omitempty"`
	ProcessedFiles int      `json:"processedFiles"`
	TotalFiles     *int     `json:"totalFiles,omitempty"`
	Percent        *float64 `json:"percent,omitempty"`
}

// ProgressFunc receives progress snapshots. Calls are sequential and the
// processed counters never decrease.
type ProgressFunc func(Progress)
