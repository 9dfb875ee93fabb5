package orchestrator

import (
	"math/rand/v2"
	"sort"

	"github.com/kazkozdev/promptstudio/core"
)

// SplitStrategy names how prepare_eval_splits partitions a dataset.
type SplitStrategy string

const (
	SplitRandom SplitStrategy = "random"
	SplitStratified SplitStrategy = "stratified" // by Example.Expected label, when present
)

// prepareEvalSplits deterministically partitions examples into
// train/dev/test by seed and ratios summing to 1.0, per spec.md §3's
// Dataset entry ("splits ... are derived deterministically from a seed
// and ratios").
func prepareEvalSplits(dataset core.Dataset, strategy SplitStrategy, trainRatio, devRatio, testRatio float64, seed int64) core.Split {
	n := len(dataset.Examples)
	if n == 0 {
		return core.Split{}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if strategy == SplitStratified {
		stableStratifiedShuffle(order, dataset.Examples, seed)
	} else {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed>>32)+1))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	trainEnd := int(float64(n) * trainRatio)
	devEnd := trainEnd + int(float64(n)*devRatio)
	if devEnd > n {
		devEnd = n
	}
	_ = testRatio // remainder after train+dev is test; kept for the caller's documentation

	split := core.Split{}
	for i, idx := range order {
		ex := dataset.Examples[idx]
		switch {
		case i < trainEnd:
			split.Train = append(split.Train, ex)
		case i < devEnd:
			split.Dev = append(split.Dev, ex)
		default:
			split.Test = append(split.Test, ex)
		}
	}
	return split
}

// stableStratifiedShuffle groups indices by their Example's Expected
// label (string labels only; any other label counts as "") and shuffles
// within each group, then interleaves the groups, so the train/dev/test
// boundary cuts roughly proportionally across labels rather than
// clumping one label into a single split.
func stableStratifiedShuffle(order []int, examples []core.Example, seed int64) {
	groups := map[string][]int{}
	for _, idx := range order {
		key := labelKey(examples[idx])
		groups[key] = append(groups[key], idx)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed>>32)+1))

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// map iteration order is randomized by Go; sort keys for determinism
	sort.Strings(keys)

	// Spread each shuffled group evenly over [0,1) and merge by that
	// position, so every prefix of order keeps the label proportions.
	type slot struct {
		idx int
		pos float64
	}
	slots := make([]slot, 0, len(order))
	for _, k := range keys {
		group := groups[k]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		for j, idx := range group {
			slots = append(slots, slot{idx: idx, pos: (float64(j) + 0.5) / float64(len(group))})
		}
	}
	sort.SliceStable(slots, func(a, b int) bool { return slots[a].pos < slots[b].pos })
	for i, s := range slots {
		order[i] = s.idx
	}
}

func labelKey(ex core.Example) string {
	if ex.Expected == nil {
		return ""
	}
	switch v := ex.Expected.(type) {
	case string:
		return v
	default:
		return ""
	}
}
