package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kazkozdev/promptstudio/core"
	"github.com/kazkozdev/promptstudio/metrics"
	"github.com/kazkozdev/promptstudio/provider"
)

// Config bounds one Engine's concurrency and timeouts, per spec.md §5.
type Config struct {
	Parallelism       int
	RequestTimeout    time.Duration // per-case LM call timeout, default 60s
	SelfConsistencyN  int           // default 5
}

// DefaultConfig matches spec.md's named defaults.
func DefaultConfig() Config {
	return Config{Parallelism: 8, RequestTimeout: 60 * time.Second, SelfConsistencyN: 5}
}

// Engine is the Evaluation Engine: it drives a Provider over a Dataset
// with a Prompt template and scores results with a metrics.Registry.
type Engine struct {
	provider provider.Provider
	scorers  *metrics.Registry
	cfg      Config
	logger   core.Logger
	telem    core.Telemetry
}

// New builds an Engine. logger/telem may be nil (NoOp defaults apply).
func New(p provider.Provider, scorers *metrics.Registry, cfg Config, logger core.Logger, telem core.Telemetry) *Engine {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telem == nil {
		telem = core.NoOpTelemetry{}
	}
	if cfg.Parallelism < 1 {
		cfg = DefaultConfig()
	}
	return &Engine{provider: p, scorers: scorers, cfg: cfg, logger: logger, telem: telem}
}

// renderPrompt substitutes {input} (and any other {field} present in
// example.Input) into the prompt template. Unless example.Input has an
// "input" key of its own, {input} is filled with the example's text.
func renderPrompt(template string, example core.Example) string {
	out := template
	for k, v := range example.Input {
		placeholder := "{" + k + "}"
		out = strings.ReplaceAll(out, placeholder, fmt.Sprintf("%v", v))
	}
	if _, ok := example.Input["input"]; !ok {
		out = strings.ReplaceAll(out, "{input}", example.Text())
	}
	return out
}

// referenceMetricNames is the fixed set of always-on reference-based
// scorers spec.md §4.2 names explicitly; EvaluateReferenceBased adds
// embedding_similarity, perplexity and llm_judge to it whenever a scorer
// of that name is registered in the scorers Registry.
var referenceMetricNames = []string{"bleu", "rouge_l", "exact_match"}

// EvaluateReferenceBased runs the reference-based mode of spec.md
// §4.2: for each Example, invoke the LM, score against the fixed
// metric set plus any optional scorers registered, and aggregate.
func (e *Engine) EvaluateReferenceBased(ctx context.Context, promptID, promptText string, dataset core.Dataset) (core.EvaluationRun, error) {
	if len(dataset.Examples) == 0 {
		return core.EvaluationRun{
			RunID: uuid.NewString(), PromptID: promptID, PromptText: promptText,
			DatasetID: dataset.ID, DatasetName: dataset.Name,
			Metrics: map[string]float64{}, PerCase: []core.PerCaseResult{},
			Timestamp: time.Now().UTC(),
		}, nil
	}

	names := append([]string(nil), referenceMetricNames...)
	for _, extra := range []string{"embedding_similarity", "perplexity", "llm_judge"} {
		if _, ok := e.scorers.Get(extra); ok {
			names = append(names, extra)
		}
	}

	perCase := runCases(ctx, len(dataset.Examples), e.cfg.Parallelism, func(ctx context.Context, i int) core.PerCaseResult {
		return e.scoreOne(ctx, promptText, dataset.Examples[i], names)
	})

	return e.buildRun(promptID, promptText, dataset, perCase, names, map[string]interface{}{
		"mode": "reference_based",
	})
}

func (e *Engine) scoreOne(ctx context.Context, promptText string, ex core.Example, metricNames []string) core.PerCaseResult {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	rendered := renderPrompt(promptText, ex)
	prediction, err := e.provider.Complete(callCtx, rendered, provider.DefaultParams())
	if err != nil {
		return core.PerCaseResult{Input: ex.Input, Expected: ex.Expected, Metrics: map[string]float64{}, Error: classifyCaseError(err)}
	}

	expectedText := fmt.Sprintf("%v", ex.Expected)
	if ex.Expected == nil {
		expectedText = ""
	}

	result := core.PerCaseResult{Input: ex.Input, Prediction: prediction, Expected: ex.Expected, Metrics: map[string]float64{}}
	for _, name := range metricNames {
		scorer, ok := e.scorers.Get(name)
		if !ok {
			continue
		}
		cr := scorer.Score(prediction, expectedText)
		if cr.OK {
			result.Metrics[name] = cr.Value
		}
	}
	return result
}

func classifyCaseError(err error) string {
	if core.IsRetryable(err) {
		return "provider_transient"
	}
	return "provider_permanent"
}

// buildRun aggregates perCase into an EvaluationRun, excluding errored
// cases from the aggregate and reporting their count, per spec.md §4.2
// error semantics.
func (e *Engine) buildRun(promptID, promptText string, dataset core.Dataset, perCase []core.PerCaseResult, metricNames []string, metadata map[string]interface{}) (core.EvaluationRun, error) {
	aggregate := map[string]float64{}
	errored := 0
	for _, pc := range perCase {
		if pc.Error != "" {
			errored++
		}
	}
	for _, name := range metricNames {
		var values []float64
		for _, pc := range perCase {
			if pc.Error != "" {
				continue
			}
			if v, ok := pc.Metrics[name]; ok {
				values = append(values, v)
			}
		}
		if mean, median, p95, min, max, ok := metrics.Aggregate(values); ok {
			aggregate[name] = mean
			aggregate[name+"_median"] = median
			aggregate[name+"_p95"] = p95
			aggregate[name+"_min"] = min
			aggregate[name+"_max"] = max
		}
	}

	return core.EvaluationRun{
		RunID:        uuid.NewString(),
		PromptID:     promptID,
		PromptText:   promptText,
		DatasetID:    dataset.ID,
		DatasetName:  dataset.Name,
		Metrics:      aggregate,
		PerCase:      perCase,
		Metadata:     metadata,
		ErroredCases: errored,
		Timestamp:    time.Now().UTC(),
	}, nil
}
