// Package digest implements the line-oriented digest text format: the tier
// policy, the per-file formatter, the reverse parser and the section composer.
package digest

import "strings"

// Tier is the representation chosen for one file.
type Tier int

const (
	// TierPathOnly presents the file by its header alone.
	TierPathOnly Tier = iota
	// TierSignatures lists declaration headers without bodies.
	TierSignatures
	// TierSkeleton renders the full structural summary.
	TierSkeleton
)

// Line-count thresholds shared by every caller that classifies files.
const (
	SignaturesMinLines = 300
	SkeletonMinLines   = 800
)

// TierFor maps a line count to its tier.
func TierFor(lines int) Tier {
	switch {
	case lines >= SkeletonMinLines:
		return TierSkeleton
	case lines >= SignaturesMinLines:
		return TierSignatures
	default:
		return TierPathOnly
	}
}

// LineCount counts lines the way the tier thresholds are measured:
// newline-separated segments, so "" is one line and a trailing newline
// adds an empty last line.
func LineCount(content string) int {
	return strings.Count(content, "\n") + 1
}

func (t Tier) String() string {
	switch t {
	case TierPathOnly:
		return "path-only"
	case TierSignatures:
		return "signatures"
	case TierSkeleton:
		return "skeleton"
	default:
		return "unknown"
	}
}
