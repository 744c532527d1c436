package sniff

import "strings"

// Delimiter candidates in tie-break order. When two candidates are both
// consistent with an equal token score, the earlier one wins.
var delimiterCandidates = []string{",", ";", "\t", "|"}

const delimiterProbeLines = 10

// DetectDelimiter picks a CSV delimiter by checking the first ten lines.
// A candidate is consistent when every probed line splits into the same
// column count as the first line; among consistent candidates the one with
// the highest total token count wins. If no candidate is consistent, the
// raw token score decides (best effort).
func DetectDelimiter(lines []string) string {
	if len(lines) == 0 {
		return ","
	}
	probe := lines
	if len(probe) > delimiterProbeLines {
		probe = probe[:delimiterProbeLines]
	}

	best := ","
	bestScore := 0
	bestConsistent := false
	for _, cand := range delimiterCandidates {
		score, consistent := scoreDelimiter(probe, cand)
		switch {
		case consistent && !bestConsistent:
			best, bestScore, bestConsistent = cand, score, true
		case consistent == bestConsistent && score > bestScore:
			best, bestScore = cand, score
		}
	}
	return best
}

// DetectHeaderDelimiter is the cheap single-line variant used where only a
// header is available: the candidate producing the most columns wins.
func DetectHeaderDelimiter(header string) string {
	best := ","
	maxColumns := 0
	for _, cand := range delimiterCandidates {
		if n := len(strings.Split(header, cand)); n > maxColumns {
			maxColumns = n
			best = cand
		}
	}
	return best
}

func scoreDelimiter(lines []string, delim string) (score int, consistent bool) {
	consistent = true
	first := 0
	for i, line := range lines {
		n := len(strings.Split(line, delim))
		if i == 0 {
			first = n
		} else if n != first {
			consistent = false
		}
		score += n
	}
	return score, consistent
}
