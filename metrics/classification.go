package metrics

import "encoding/json"

// PrecisionRecallF1 treats prediction/expected as single labels
// (case-insensitive) and scores 1.0 on a match, 0.0 otherwise, under
// the single name "classification_match". Its dataset mean is label
// accuracy; nothing in this module splits it into per-label precision,
// recall or f1.
type PrecisionRecallF1 struct{}

func (PrecisionRecallF1) Name() string { return "classification_match" }

func (PrecisionRecallF1) Score(prediction, expected string) CaseResult {
	if expected == "" {
		return Undefined("no reference")
	}
	if normalize(prediction) == normalize(expected) {
		return Defined(1.0)
	}
	return Defined(0.0)
}

// FieldLevelAccuracy scores the fraction of top-level JSON fields in
// prediction that match expected, for extraction tasks whose output is
// structured JSON (SPEC_FULL.md §2.2's extraction addition).
type FieldLevelAccuracy struct{}

func (FieldLevelAccuracy) Name() string { return "field_level_accuracy" }

func (FieldLevelAccuracy) Score(prediction, expected string) CaseResult {
	if expected == "" {
		return Undefined("no reference")
	}
	var predFields, expFields map[string]interface{}
	if err := json.Unmarshal([]byte(prediction), &predFields); err != nil {
		return Defined(0.0) // unparseable prediction scores zero, not undefined
	}
	if err := json.Unmarshal([]byte(expected), &expFields); err != nil {
		return Undefined("reference is not structured JSON")
	}
	if len(expFields) == 0 {
		return Undefined("reference has no fields")
	}

	matched := 0
	for k, v := range expFields {
		if pv, ok := predFields[k]; ok && deepEqualJSON(pv, v) {
			matched++
		}
	}
	return Defined(float64(matched) / float64(len(expFields)))
}

func deepEqualJSON(a, b interface{}) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}
