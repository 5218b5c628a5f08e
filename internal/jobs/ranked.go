package jobs

import "sort"

const (
	MinScore = 0
	MaxScore = 100
)

// RankedListing is a listing with the model's fit score and a one sentence explanation.
type RankedListing struct {
	Listing
	Score   int    `json:"match_score"`
	Summary string `json:"summary"`
}

// ClampScore forces a score into the [MinScore, MaxScore] range.
func ClampScore(score int) int {
	switch {
	case score < MinScore:
		return MinScore
	case score > MaxScore:
		return MaxScore
	default:
		return score
	}
}

// SortRanked orders ranked listings by descending score. Equal scores keep
// their relative input order.
func SortRanked(ranked []RankedListing) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
}

// IsSortedByScore reports whether scores never increase along the slice.
func IsSortedByScore(ranked []RankedListing) bool {
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			return false
		}
	}
	return true
}

// DumpRankedToTmpFile writes ranked listings as indented JSON to a new temp file.
func DumpRankedToTmpFile(ranked []RankedListing) (string, error) {
	return dumpToTmpFile("ranked_*.json", ranked)
}
