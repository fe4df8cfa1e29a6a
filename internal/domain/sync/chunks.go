package sync

import "time"

// Strategy names how a large window should be synced.
type Strategy string

const (
	// StrategyDirect syncs the whole window in one pass.
	StrategyDirect Strategy = "direct"
	// StrategyChunked splits the window into fixed-size chunks run sequentially.
	StrategyChunked Strategy = "chunked"

	// ChunkThreshold is the estimated unit count at which chunking kicks in.
	// The threshold is inclusive: exactly ChunkThreshold units chunks.
	ChunkThreshold = 300
	// ChunkSize is the number of units per chunk.
	ChunkSize = 100
)

// Chunk is one sequential slice of a chunked sync.
type Chunk struct {
	Index  int `json:"index"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Plan describes how to sync an estimated workload.
type Plan struct {
	Strategy       Strategy      `json:"strategy"`
	EstimatedUnits int           `json:"estimated_units"`
	Chunks         []Chunk       `json:"chunks,omitempty"`
	InterChunkWait time.Duration `json:"-"`
}

// PlanFor picks the sync strategy for an estimated unit count. Estimates at
// or above ChunkThreshold get a chunked plan; smaller ones run direct.
func PlanFor(estimated int, interChunkWait time.Duration) Plan {
	if estimated < ChunkThreshold {
		return Plan{Strategy: StrategyDirect, EstimatedUnits: estimated}
	}

	n := (estimated + ChunkSize - 1) / ChunkSize
	chunks := make([]Chunk, 0, n)
	for i := 0; i < n; i++ {
		limit := ChunkSize
		if rest := estimated - i*ChunkSize; rest < limit {
			limit = rest
		}
		chunks = append(chunks, Chunk{Index: i, Offset: i * ChunkSize, Limit: limit})
	}
	return Plan{
		Strategy:       StrategyChunked,
		EstimatedUnits: estimated,
		Chunks:         chunks,
		InterChunkWait: interChunkWait,
	}
}
