package metrics

import "math"

// Embedder produces a vector embedding for text. A concrete
// implementation typically calls an embeddings-capable Provider; tests
// can supply a deterministic stub. Registering an EmbeddingSimilarity
// scorer is optional — per Design Notes §9, its absence simply omits
// "embedding_similarity" from results rather than reporting a zero.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// EmbeddingSimilarity scores cosine similarity between the prediction's
// and expected text's embeddings.
type EmbeddingSimilarity struct {
	Embedder Embedder
}

func (EmbeddingSimilarity) Name() string { return "embedding_similarity" }

func (e EmbeddingSimilarity) Score(prediction, expected string) CaseResult {
	if expected == "" || e.Embedder == nil {
		return Undefined("no reference or embedder")
	}
	pv, err := e.Embedder.Embed(prediction)
	if err != nil {
		return Undefined("embedding failed")
	}
	ev, err := e.Embedder.Embed(expected)
	if err != nil {
		return Undefined("embedding failed")
	}
	sim := cosineSimilarity(pv, ev)
	return Defined(sim)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LogProbSource reports the per-token log-probabilities a provider
// assigned its own completion, when the backend exposes them. Plain
// chat-completion APIs commonly don't, which is exactly the "optional
// heavy dependency" Design Notes §9 describes: register Perplexity
// only when a backend that exposes logprobs is configured.
type LogProbSource interface {
	TokenLogProbs(prediction string) ([]float64, error)
}

// Perplexity scores exp(-mean(log p(token))) over the prediction's own
// tokens; lower is better, so this value is inverted to land in (0,1]
// the same direction as the other scorers (higher is better).
type Perplexity struct {
	Source LogProbSource
}

func (Perplexity) Name() string { return "perplexity" }

func (p Perplexity) Score(prediction, _ string) CaseResult {
	if p.Source == nil {
		return Undefined("no logprob source configured")
	}
	logProbs, err := p.Source.TokenLogProbs(prediction)
	if err != nil || len(logProbs) == 0 {
		return Undefined("logprobs unavailable")
	}
	sum := 0.0
	for _, lp := range logProbs {
		sum += lp
	}
	meanNegLogProb := -sum / float64(len(logProbs))
	ppl := math.Exp(meanNegLogProb)
	return Defined(1.0 / (1.0 + ppl)) // map (0,inf) perplexity to (0,1], higher=better
}
