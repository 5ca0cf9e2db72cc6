package classifier

import (
	"fmt"
	"sort"
)

// LabelEncoder is a bidirectional mapping between label strings and the
// dense integer codes the forest trains on. Codes are assigned by sorted
// label order, so encoding is stable across runs.
type LabelEncoder struct {
	Classes []string
	Index   map[string]int
}

// FitLabels builds an encoder from the labels seen in the training set.
func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	idx := make(map[string]int, len(classes))
	for i, l := range classes {
		idx[l] = i
	}
	return &LabelEncoder{Classes: classes, Index: idx}
}

// Encode returns the integer code for a label.
func (e *LabelEncoder) Encode(label string) (int, bool) {
	code, ok := e.Index[label]
	return code, ok
}

// Decode returns the label string for a code, or an error when the code is
// outside the known range.
func (e *LabelEncoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("label code %d outside known range [0, %d)", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

// NumClasses returns the size of the label set.
func (e *LabelEncoder) NumClasses() int {
	return len(e.Classes)
}
