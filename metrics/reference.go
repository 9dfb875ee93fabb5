package metrics

import (
	"math"
	"strings"
)

// ExactMatch scores 1.0 if the normalized prediction equals the
// normalized expected text, else 0.0.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact_match" }

func (ExactMatch) Score(prediction, expected string) CaseResult {
	if expected == "" {
		return Undefined("no reference")
	}
	if normalize(prediction) == normalize(expected) {
		return Defined(1.0)
	}
	return Defined(0.0)
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func tokenize(s string) []string {
	return strings.Fields(normalize(s))
}

// BLEU computes a smoothed, corpus-style BLEU score for a single
// candidate/reference pair (1- through 4-gram precision, geometric
// mean, brevity penalty). Smoothing adds 1 to zero-count n-gram
// precisions so a single missing n-gram doesn't zero the whole score,
// per spec.md §4.2's "corpus-level with smoothing" requirement applied
// at per-case granularity.
type BLEU struct{}

func (BLEU) Name() string { return "bleu" }

func (BLEU) Score(prediction, expected string) CaseResult {
	if expected == "" {
		return Undefined("no reference")
	}
	cand := tokenize(prediction)
	ref := tokenize(expected)
	if len(cand) == 0 || len(ref) == 0 {
		return Defined(0.0)
	}

	const maxN = 4
	logSum := 0.0
	weightedOrders := 0
	for n := 1; n <= maxN; n++ {
		candNgrams := ngramCounts(cand, n)
		refNgrams := ngramCounts(ref, n)
		if len(candNgrams) == 0 {
			continue
		}
		weightedOrders++

		matched := 0
		total := 0
		for gram, count := range candNgrams {
			total += count
			if rc, ok := refNgrams[gram]; ok {
				if rc < count {
					matched += rc
				} else {
					matched += count
				}
			}
		}
		// Additive smoothing: treat a zero-match order as if it had one
		// match out of one extra trial, so BLEU degrades gracefully
		// instead of collapsing to zero on short candidates.
		precision := (float64(matched) + 1) / (float64(total) + 1)
		logSum += math.Log(precision)
	}
	if weightedOrders == 0 {
		return Defined(0.0)
	}
	geoMean := math.Exp(logSum / float64(weightedOrders))

	bp := 1.0
	if len(cand) < len(ref) {
		bp = math.Exp(1 - float64(len(ref))/float64(len(cand)))
	}
	return Defined(geoMean * bp)
}

func ngramCounts(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	if len(tokens) < n {
		return counts
	}
	for i := 0; i+n <= len(tokens); i++ {
		gram := strings.Join(tokens[i:i+n], " ")
		counts[gram]++
	}
	return counts
}

// RougeL computes the ROUGE-L F-measure: longest-common-subsequence
// recall and precision, combined with beta=1 (equal weight).
type RougeL struct{}

func (RougeL) Name() string { return "rouge_l" }

func (RougeL) Score(prediction, expected string) CaseResult {
	if expected == "" {
		return Undefined("no reference")
	}
	cand := tokenize(prediction)
	ref := tokenize(expected)
	if len(cand) == 0 || len(ref) == 0 {
		return Defined(0.0)
	}

	lcs := lcsLength(cand, ref)
	if lcs == 0 {
		return Defined(0.0)
	}
	recall := float64(lcs) / float64(len(ref))
	precision := float64(lcs) / float64(len(cand))
	if recall+precision == 0 {
		return Defined(0.0)
	}
	f1 := 2 * recall * precision / (recall + precision)
	return Defined(f1)
}

func lcsLength(a, b []string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] > dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[len(a)][len(b)]
}
