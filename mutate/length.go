package mutate

import (
	"math/rand/v2"
	"strings"
)

// fillerPool is the fixed, versioned pool of distractor sentences
// padding is drawn from. Keeping this list fixed (never regenerated at
// runtime) is what makes Length reproducible across runs for the same
// seed, per spec.md §4.2.3.
var fillerPool = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Weather patterns shift gradually across the northern hemisphere.",
	"A balanced diet includes proteins, carbohydrates, and fats.",
	"The committee will reconvene next quarter to review the proposal.",
	"Historical records from the period are fragmentary at best.",
	"Most software projects underestimate their integration costs.",
	"The museum's new wing opens to the public in the spring.",
	"Local markets fluctuate based on seasonal supply changes.",
	"Researchers published their findings in a peer-reviewed journal.",
	"The train departs from platform nine every weekday morning.",
}

// LengthMultiplier is one of the four context-length multipliers
// spec.md §4.2.3 / §4.2 names.
type LengthMultiplier int

const (
	Multiplier1x LengthMultiplier = 1
	Multiplier2x LengthMultiplier = 2
	Multiplier4x LengthMultiplier = 4
	Multiplier8x LengthMultiplier = 8
)

// AllMultipliers lists every rot-threshold multiplier spec.md's
// context-length robustness mode evaluates, in ascending order.
var AllMultipliers = []LengthMultiplier{Multiplier1x, Multiplier2x, Multiplier4x, Multiplier8x}

// Length pads input with filler text before and after, calibrated so
// the result is roughly multiplier times the original token count. At
// 1x, input is returned unchanged. The filler draw is deterministic
// given seed: the same (input, seed, multiplier) always produces the
// same padded text.
func Length(input string, multiplier LengthMultiplier, seed int64) string {
	if multiplier <= 1 {
		return input
	}
	originalTokens := len(strings.Fields(input))
	if originalTokens == 0 {
		return input
	}
	targetExtra := originalTokens * (int(multiplier) - 1)

	src := rand.NewPCG(uint64(seed), uint64(multiplier))
	rng := rand.New(src)

	var before, after strings.Builder
	tokensAdded := 0
	toggle := false
	for tokensAdded < targetExtra {
		sentence := fillerPool[rng.IntN(len(fillerPool))]
		n := len(strings.Fields(sentence))
		if toggle {
			before.WriteString(sentence)
			before.WriteByte(' ')
		} else {
			after.WriteByte(' ')
			after.WriteString(sentence)
		}
		tokensAdded += n
		toggle = !toggle
	}

	return strings.TrimSpace(before.String() + " " + input + " " + after.String())
}
