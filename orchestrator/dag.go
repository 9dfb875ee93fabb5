// Package orchestrator implements the DSPy-style Orchestrator Agent of
// spec.md §4.1: a Reason->Act->Observe loop over a closed 19-tool
// catalog that plans, assembles, compiles, and self-corrects a
// multi-module LLM program against a dataset.
package orchestrator

import (
	"fmt"

	"github.com/kazkozdev/promptstudio/core"
)

// Position is where add_tactic_to_program inserts a module relative to
// an anchor, per spec.md §4.1 Phase 3.
type Position string

const (
	PositionBefore  Position = "before"
	PositionAfter   Position = "after"
	PositionReplace Position = "replace"
	PositionAppend  Position = "append"
)

// validateDAG checks that the spec has modules, that every edge index
// is in range, that there are no cycles, and that exactly one terminal
// output-bearing module exists. It does not check that consumer fields
// are dataset-bound or produced upstream.
func validateDAG(spec core.ProgramSpec) error {
	n := len(spec.Modules)
	if n == 0 {
		return fmt.Errorf("program spec has no modules")
	}
	for _, e := range spec.Edges {
		if e.ProducerIdx < 0 || e.ProducerIdx >= n || e.ConsumerIdx < 0 || e.ConsumerIdx >= n {
			return fmt.Errorf("edge references out-of-range module index")
		}
	}
	if cyc := findCycle(spec); cyc {
		return fmt.Errorf("program spec contains a cycle")
	}

	terminal := terminalModules(spec)
	if len(terminal) != 1 {
		return fmt.Errorf("program spec must have exactly one terminal output-bearing module, found %d", len(terminal))
	}
	return nil
}

// findCycle runs DFS with a three-color scheme over the module arena,
// addressed purely by index (Design Notes §9).
func findCycle(spec core.ProgramSpec) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(spec.Modules))
	adj := adjacency(spec)

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		for _, next := range adj[i] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[i] = black
		return false
	}

	for i := range spec.Modules {
		if color[i] == white {
			if visit(i) {
				return true
			}
		}
	}
	return false
}

func adjacency(spec core.ProgramSpec) map[int][]int {
	adj := make(map[int][]int, len(spec.Modules))
	for _, e := range spec.Edges {
		adj[e.ProducerIdx] = append(adj[e.ProducerIdx], e.ConsumerIdx)
	}
	return adj
}

// terminalModules returns the indices of modules that produce no edge
// consumed downstream — candidates for "the" terminal output module.
func terminalModules(spec core.ProgramSpec) []int {
	hasConsumer := make(map[int]bool, len(spec.Modules))
	for _, e := range spec.Edges {
		hasConsumer[e.ProducerIdx] = true
	}
	var terminal []int
	for i := range spec.Modules {
		if !hasConsumer[i] {
			terminal = append(terminal, i)
		}
	}
	return terminal
}

// executionLevels returns modules grouped into dependency levels (a
// topological generation count), the arena-friendly equivalent of the
// teacher's WorkflowDAG.rebuildDependents + level walk.
func executionLevels(spec core.ProgramSpec) [][]int {
	n := len(spec.Modules)
	indegree := make([]int, n)
	adj := adjacency(spec)
	for _, e := range spec.Edges {
		indegree[e.ConsumerIdx]++
	}

	var levels [][]int
	remaining := make([]bool, n)
	for i := range remaining {
		remaining[i] = true
	}
	done := 0
	for done < n {
		var level []int
		for i := 0; i < n; i++ {
			if remaining[i] && indegree[i] == 0 {
				level = append(level, i)
			}
		}
		if len(level) == 0 {
			break // cycle; validateDAG should have already caught this
		}
		for _, i := range level {
			remaining[i] = false
			for _, next := range adj[i] {
				indegree[next]--
			}
		}
		done += len(level)
		levels = append(levels, level)
	}
	return levels
}

// cloneSpec performs a deep-enough value copy (arena semantics mean
// this is just slice copies, no pointer graph to walk).
func cloneSpec(spec core.ProgramSpec) core.ProgramSpec {
	out := core.ProgramSpec{ID: spec.ID}
	out.Modules = append([]core.Module(nil), spec.Modules...)
	out.Edges = append([]core.Edge(nil), spec.Edges...)
	return out
}

// assembleStarterPipeline emits a starter Program Spec per spec.md
// §4.1 Phase 3: Retriever+MainPredictor for RAG, bare Predict for
// classification, ChainOfThought-wrapped Predict for reasoning,
// optional Retry wrapping for high-risk outputs.
func assembleStarterPipeline(taskType TaskType, flags TaskFlags, complexity Complexity) core.ProgramSpec {
	spec := core.ProgramSpec{ID: "spec_" + string(taskType)}

	switch taskType {
	case TaskRAG:
		spec.Modules = append(spec.Modules,
			core.Module{Name: "retriever", Kind: core.ModuleRetrieve},
			core.Module{Name: "main_predictor", Kind: core.ModulePredict},
		)
		spec.Edges = append(spec.Edges, core.Edge{ProducerIdx: 0, ProducerField: "context", ConsumerIdx: 1, ConsumerField: "context"})
	case TaskReasoning:
		spec.Modules = append(spec.Modules, core.Module{Name: "main_predictor", Kind: core.ModuleChainOfThought})
	default:
		spec.Modules = append(spec.Modules, core.Module{Name: "main_predictor", Kind: core.ModulePredict})
	}

	if flags.SafetyLevel == SafetyHigh {
		last := len(spec.Modules) - 1
		spec.Modules = append(spec.Modules, core.Module{Name: "retry_guard", Kind: core.ModuleRetry})
		spec.Edges = append(spec.Edges, core.Edge{ProducerIdx: last, ProducerField: "output", ConsumerIdx: last + 1, ConsumerField: "output"})
	}
	if complexity == ComplexityHigh && flags.NeedsToolUse {
		spec.Modules = append(spec.Modules, core.Module{Name: "tool_user", Kind: core.ModuleReAct})
	}
	return spec
}

// addTactic inserts, replaces, or appends a module per spec.md §4.1's
// add_tactic_to_program. Illegal positions (e.g. before a root with no
// upstream) are rejected.
func addTactic(spec core.ProgramSpec, tactic core.Module, position Position, anchor string) (core.ProgramSpec, error) {
	out := cloneSpec(spec)

	anchorIdx := -1
	if anchor != "" {
		for i, m := range out.Modules {
			if m.Name == anchor {
				anchorIdx = i
				break
			}
		}
		if anchorIdx == -1 {
			return spec, fmt.Errorf("add_tactic_to_program: anchor %q not found", anchor)
		}
	}

	switch position {
	case PositionAppend:
		out.Modules = append(out.Modules, tactic)
	case PositionReplace:
		if anchorIdx == -1 {
			return spec, fmt.Errorf("add_tactic_to_program: replace requires an anchor")
		}
		out.Modules[anchorIdx] = tactic
	case PositionBefore:
		if anchorIdx == -1 {
			return spec, fmt.Errorf("add_tactic_to_program: before requires an anchor")
		}
		hasUpstream := false
		for _, e := range out.Edges {
			if e.ConsumerIdx == anchorIdx {
				hasUpstream = true
				break
			}
		}
		if !hasUpstream {
			return spec, fmt.Errorf("add_tactic_to_program: cannot insert before root %q with no upstream", anchor)
		}
		newIdx := insertModule(&out, anchorIdx, tactic)
		shiftedAnchor := anchorIdx
		if newIdx <= anchorIdx {
			shiftedAnchor++
		}
		rewireInsertedBefore(&out, newIdx, shiftedAnchor)
	case PositionAfter:
		if anchorIdx == -1 {
			return spec, fmt.Errorf("add_tactic_to_program: after requires an anchor")
		}
		newIdx := insertModule(&out, anchorIdx+1, tactic)
		rewireInsertedAfter(&out, anchorIdx, newIdx)
	default:
		return spec, fmt.Errorf("add_tactic_to_program: unknown position %q", position)
	}

	if err := validateDAG(out); err != nil {
		return spec, fmt.Errorf("add_tactic_to_program: resulting spec invalid: %w", err)
	}
	return out, nil
}

// insertModule splices tactic into spec.Modules at idx, shifting every
// edge index at or beyond idx, and returns tactic's new index.
func insertModule(spec *core.ProgramSpec, idx int, tactic core.Module) int {
	if idx < 0 {
		idx = 0
	}
	if idx > len(spec.Modules) {
		idx = len(spec.Modules)
	}
	spec.Modules = append(spec.Modules[:idx:idx], append([]core.Module{tactic}, spec.Modules[idx:]...)...)
	for i := range spec.Edges {
		if spec.Edges[i].ProducerIdx >= idx {
			spec.Edges[i].ProducerIdx++
		}
		if spec.Edges[i].ConsumerIdx >= idx {
			spec.Edges[i].ConsumerIdx++
		}
	}
	return idx
}

// rewireInsertedBefore redirects every edge that fed anchorIdx to feed
// newIdx instead, then wires newIdx -> anchorIdx.
func rewireInsertedBefore(spec *core.ProgramSpec, newIdx, anchorIdx int) {
	for i := range spec.Edges {
		if spec.Edges[i].ConsumerIdx == anchorIdx && spec.Edges[i].ProducerIdx != newIdx {
			spec.Edges[i].ConsumerIdx = newIdx
		}
	}
	spec.Edges = append(spec.Edges, core.Edge{ProducerIdx: newIdx, ProducerField: "output", ConsumerIdx: anchorIdx, ConsumerField: "input"})
}

// rewireInsertedAfter redirects every edge anchorIdx used to produce to
// originate from newIdx instead, then wires anchorIdx -> newIdx.
func rewireInsertedAfter(spec *core.ProgramSpec, anchorIdx, newIdx int) {
	for i := range spec.Edges {
		if spec.Edges[i].ProducerIdx == anchorIdx && spec.Edges[i].ConsumerIdx != newIdx {
			spec.Edges[i].ProducerIdx = newIdx
		}
	}
	spec.Edges = append(spec.Edges, core.Edge{ProducerIdx: anchorIdx, ProducerField: "output", ConsumerIdx: newIdx, ConsumerField: "input"})
}
