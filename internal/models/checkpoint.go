package models

import "time"

// Checkpoint records which assets a run has already handled so an
// interrupted run can resume without rescanning them. It is advisory only:
// losing it never risks a duplicate upload, it just costs rework that the
// ledger will skip anyway.
type Checkpoint struct {
	RunID        string    `json:"run_id"`
	ProcessedIDs []string  `json:"processed_ids"`
	TotalAssets  int       `json:"total_assets"`
	Simulated    bool      `json:"simulated"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProcessedSet returns the processed IDs as a set for O(1) membership checks.
func (c *Checkpoint) ProcessedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ProcessedIDs))
	for _, id := range c.ProcessedIDs {
		set[id] = struct{}{}
	}
	return set
}
