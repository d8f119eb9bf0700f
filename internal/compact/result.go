package compact

import (
	"time"

	"github.com/mvp-joe/code-digest/internal/digest"
)

// Result is the outcome of one compaction run.
type Result struct {
	// Output is the composed digest, fragments sorted by path.
	Output string `json:"output"`
	// OriginalSize is the summed character count of the files that
	// contributed a fragment.
	OriginalSize int `json:"original_size"`

	RunID         string        `json:"run_id"`
	Files         int           `json:"files"`
	Skipped       []string      `json:"skipped,omitempty"`
	Tiers         TierCounts    `json:"tiers"`
	Duration      time.Duration `json:"duration"`
	TokenEstimate int           `json:"token_estimate"`
}

// TierCounts counts contributing files per tier.
type TierCounts struct {
	PathOnly   int `json:"path_only"`
	Signatures int `json:"signatures"`
	Skeleton   int `json:"skeleton"`
}

func (c *TierCounts) add(t digest.Tier) {
	switch t {
	case digest.TierPathOnly:
		c.PathOnly++
	case digest.TierSignatures:
		c.Signatures++
	case digest.TierSkeleton:
		c.Skeleton++
	}
}

// CompressionRatio returns output size over original size, 0 when nothing
// was read.
func (r *Result) CompressionRatio() float64 {
	if r == nil || r.OriginalSize == 0 {
		return 0
	}
	return float64(len([]rune(r.Output))) / float64(r.OriginalSize)
}
