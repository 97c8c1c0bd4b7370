package item

import "github.com/agnivade/levenshtein"

// Suggest returns the candidate closest to id, or "" when nothing is close
// enough to be a plausible typo.
func Suggest(id string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(id, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	limit := len(id) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
