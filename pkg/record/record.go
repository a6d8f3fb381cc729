// Package record normalizes heterogeneous input records (plain lines, CSV
// rows, JSON objects) into the label+text shape used by the split artifacts
// and into the canonical {text} shape consumed by training.
package record

import (
	"fmt"
)

// Marker tokens framing a labelled canonical text.
const (
	LabelMarker  = "<LABEL> "
	TargetMarker = "<TARGET> "
)

// Raw is one source record. Plain-text sources set Line and leave Fields nil;
// CSV and JSON sources fill Fields. Index is the zero-based ordinal of the
// record in one front-to-back pass over the source.
type Raw struct {
	Index  int
	Line   string
	Fields map[string]any
}

// IsLine reports whether r came from a plain-text corpus.
func (r Raw) IsLine() bool {
	return r.Fields == nil
}

// Record is a mapped record. Label is only meaningful when Labeled is set.
type Record struct {
	Index   int
	Label   string
	Text    string
	Labeled bool
}

// Canonical is the shape handed to the training loop.
type Canonical struct {
	Text string `json:"text"`
}

// Canonical joins label and text with the marker tokens. There is no space
// between the label value and <TARGET>, and markers inside the data are not
// escaped.
func (r Record) Canonical() Canonical {
	if !r.Labeled {
		return Canonical{Text: r.Text}
	}
	return Canonical{Text: LabelMarker + r.Label + TargetMarker + r.Text}
}

// Collate maps records to their canonical form, preserving order.
func Collate(records []Record) []Canonical {
	out := make([]Canonical, 0, len(records))
	for _, r := range records {
		out = append(out, r.Canonical())
	}
	return out
}

// CollateLines wraps bare lines as canonical records.
func CollateLines(lines []string) []Canonical {
	out := make([]Canonical, 0, len(lines))
	for _, l := range lines {
		out = append(out, Canonical{Text: l})
	}
	return out
}

// CollatePairs joins parallel label and text slices. Both slices must be the
// same length.
func CollatePairs(labels, texts []string) ([]Canonical, error) {
	if len(labels) != len(texts) {
		return nil, fmt.Errorf("collate: %d labels for %d texts", len(labels), len(texts))
	}
	out := make([]Canonical, 0, len(texts))
	for i := range texts {
		r := Record{Label: labels[i], Text: texts[i], Labeled: true}
		out = append(out, r.Canonical())
	}
	return out, nil
}
