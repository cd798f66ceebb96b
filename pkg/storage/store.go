package storage

import (
	"context"
	"time"
)

// RunRecord is the stored state of one sweep run. Points holds the full
// parameter sweep; the series grow one entry per completed point, so a
// finished run has Completed == len(Points) and every series has exactly
// Completed entries. Series values are written once, in sweep order, and
// never mutated afterwards.
type RunRecord struct {
	Run         string    `json:"run"`
	Backend     string    `json:"backend"`
	Sequence    string    `json:"sequence"`
	GeneratedAt time.Time `json:"generatedAt"`
	Shots       int       `json:"shots"`
	Completed   int       `json:"completed"`

	Points []float64            `json:"points"`
	Series map[string][]float64 `json:"series"`
	StdErr map[string][]float64 `json:"stdErr,omitempty"`

	// JobIDs are the provider's opaque job identifiers, one per
	// completed point.
	JobIDs []string `json:"jobIds"`
}

// Store persists the latest record per run name.
type Store interface {
	Put(ctx context.Context, record RunRecord) error
	GetLatest(ctx context.Context, run string) (RunRecord, bool, error)
}
