// Package metrics implements the Metric Kernel of spec.md §4 (D):
// reference-based, semantic, consistency, judge-based, and robustness
// scorers over prediction/reference pairs, built as a registry so an
// unavailable scorer (missing embedding model, no judge provider)
// simply yields its absence from results rather than a zero — per
// Design Notes §9.
package metrics

import "sort"

// CaseResult is the outcome of scoring one prediction/expected pair.
// A Scorer may return ok=false to mean "undefined for this case"
// (e.g. variance with n=1), which callers must omit rather than
// zero-fill, per spec.md §4.2's per-case contract.
type CaseResult struct {
	Value float64
	OK    bool
	Note  string // optional sentinel, e.g. "undefined-n=1"
}

func Defined(v float64) CaseResult { return CaseResult{Value: v, OK: true} }
func Undefined(note string) CaseResult { return CaseResult{OK: false, Note: note} }

// Scorer computes one named metric for a (prediction, expected) pair.
// Expected may be absent (empty string) for label-free metrics.
type Scorer interface {
	Name() string
	Score(prediction string, expected string) CaseResult
}

// Registry holds named scorers. Missing scorers (e.g. an embedding
// scorer whose model isn't configured) are simply absent from the
// registry; the Evaluation Engine asks for scorers by name and skips
// any name that Get reports missing.
type Registry struct {
	scorers map[string]Scorer
}

func NewRegistry() *Registry {
	return &Registry{scorers: make(map[string]Scorer)}
}

func (r *Registry) Register(s Scorer) {
	r.scorers[s.Name()] = s
}

func (r *Registry) Get(name string) (Scorer, bool) {
	s, ok := r.scorers[name]
	return s, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scorers))
	for name := range r.scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewDefaultRegistry registers the always-available scorers: the ones
// with no external dependency (BLEU, ROUGE-L, exact match, the
// classification/extraction additions). Embedding similarity,
// perplexity, and judge-based scorers are registered separately by the
// caller once a provider/embedding backend is configured, keeping this
// constructor dependency-free.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ExactMatch{})
	r.Register(BLEU{})
	r.Register(RougeL{})
	r.Register(PrecisionRecallF1{})
	r.Register(FieldLevelAccuracy{})
	return r
}

// Aggregate computes mean, median, p95, min, max over defined values,
// matching spec.md §4.2's reporting requirement for reference-based
// metrics. An empty input returns ok=false.
func Aggregate(values []float64) (mean, median, p95, min, max float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean = sum / float64(len(sorted))
	median = percentile(sorted, 0.5)
	p95 = percentile(sorted, 0.95)
	min = sorted[0]
	max = sorted[len(sorted)-1]
	return mean, median, p95, min, max, true
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
