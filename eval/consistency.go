package eval

import (
	"context"
	"time"

	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
)

// EvaluateSelfConsistency implements spec.md §4.2's label-free
// self-consistency mode: for each Example, sample N runs at the
// configured temperature and score agreement/similarity/variance.
func (e *Engine) EvaluateSelfConsistency(ctx context.Context, promptText string, dataset core.Dataset, temperature float64, embedder metrics.Embedder) ([]metrics.SelfConsistencyResult, error) {
	n := e.cfg.SelfConsistencyN
	if n <= 0 {
		n = 5
	}
	params := provider.DefaultParams()
	params.Temperature = temperature

	results := runCases(ctx, len(dataset.Examples), e.cfg.Parallelism, func(ctx context.Context, i int) metrics.SelfConsistencyResult {
		ex := dataset.Examples[i]
		rendered := renderPrompt(promptText, ex)
		samples := make([]string, 0, n)
		for s := 0; s < n; s++ {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
			out, err := e.provider.Complete(callCtx, rendered, params)
			cancel()
			if err == nil {
				samples = append(samples, out)
			}
		}
		return metrics.SelfConsistency(samples, embedder)
	})
	return results, nil
}

// Judge is the minimal capability mutual-consistency needs: a second
// prompt rendering a constrained categorical verdict about another
// prompt's output on the same input.
type Judge interface {
	Judge(ctx context.Context, judgingPromptText, candidateInput, candidateOutput string) (metrics.Judgement, error)
}

// providerJudge adapts a provider.Provider into a Judge by asking it to
// emit endorse/conflict/abstain directly.
type providerJudge struct {
	p provider.Provider
}

func (j providerJudge) Judge(ctx context.Context, judgingPromptText, candidateInput, candidateOutput string) (metrics.Judgement, error) {
	query := judgingPromptText + "\n\nInput: " + candidateInput + "\nOutput to judge: " + candidateOutput +
		"\n\nRespond with exactly one word: endorse, conflict, or abstain."
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	raw, err := j.p.Complete(callCtx, query, provider.Params{Temperature: 0, TopP: 1, MaxTokens: 8})
	if err != nil {
		return "", err
	}
	return metrics.ParseJudgement(raw), nil
}

// NewProviderJudge wraps p as a Judge.
func NewProviderJudge(p provider.Provider) Judge { return providerJudge{p: p} }

// EvaluateMutualConsistency implements spec.md §4.2's GLaPE mode: two
// Prompts A and B, each judging the other's outputs on the other's
// inputs. promptA/promptB are their own text templates; judgeA judges
// B's outputs, judgeB judges A's.
func (e *Engine) EvaluateMutualConsistency(ctx context.Context, promptAText, promptBText string, dataset core.Dataset, judgeA, judgeB Judge) (metrics.MutualConsistencyResult, error) {
	runA, err := e.EvaluateReferenceBased(ctx, "prompt_a", promptAText, dataset)
	if err != nil {
		return metrics.MutualConsistencyResult{}, err
	}
	runB, err := e.EvaluateReferenceBased(ctx, "prompt_b", promptBText, dataset)
	if err != nil {
		return metrics.MutualConsistencyResult{}, err
	}

	aOnB := make([]metrics.Judgement, 0, len(runB.PerCase))
	for _, pc := range runB.PerCase {
		if pc.Error != "" {
			continue
		}
		j, err := judgeA.Judge(ctx, promptAText, core.Example{Input: pc.Input}.Text(), pc.Prediction)
		if err == nil {
			aOnB = append(aOnB, j)
		}
	}
	bOnA := make([]metrics.Judgement, 0, len(runA.PerCase))
	for _, pc := range runA.PerCase {
		if pc.Error != "" {
			continue
		}
		j, err := judgeB.Judge(ctx, promptBText, core.Example{Input: pc.Input}.Text(), pc.Prediction)
		if err == nil {
			bOnA = append(bOnA, j)
		}
	}

	return metrics.MutualConsistency(aOnB, bOnA), nil
}
