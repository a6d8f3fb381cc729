// Package manifest describes the artifacts of one split run so later
// commands can find and decode them without repeating the configuration.
package manifest

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// Manifest is written next to the split artifacts as <base>_manifest.yaml.
// It holds no timestamps so reruns produce identical bytes.
type Manifest struct {
	Input       string         `yaml:"input"`
	InputFormat string         `yaml:"input_format"`
	Format      split.Encoding `yaml:"format"`
	TextField   string         `yaml:"text_field"`
	LabelField  string         `yaml:"label_field,omitempty"`
	Read        int            `yaml:"records_read"`
	Skipped     int            `yaml:"records_skipped"`
	Partitions  []Entry        `yaml:"partitions"`
}

// Entry is one partition artifact.
type Entry struct {
	Name    split.Partition `yaml:"name"`
	Path    string          `yaml:"path"`
	Records int             `yaml:"records"`
}

// Path returns the manifest location for an output base path.
func Path(base string) string {
	return base + "_manifest.yaml"
}

// New builds a manifest for a finished run.
func New(input, inputFormat, base string, enc split.Encoding, fields record.Fields, sum *split.Summary) *Manifest {
	m := &Manifest{
		Input:       input,
		InputFormat: inputFormat,
		Format:      enc,
		TextField:   fields.Text,
		LabelField:  fields.Label,
		Read:        sum.Read,
		Skipped:     sum.Skipped(),
	}
	for _, p := range split.Partitions {
		m.Partitions = append(m.Partitions, Entry{
			Name:    p,
			Path:    split.ArtifactPath(base, p, enc),
			Records: sum.Counts[p],
		})
	}
	return m
}

// Fields returns the field configuration the artifacts were written with.
// Split artifacts always name their columns label and text.
func (m *Manifest) Fields() record.Fields {
	f := record.Fields{Text: "text"}
	if m.LabelField != "" {
		f.Label = "label"
	}
	return f
}

// Entry returns the artifact of p.
func (m *Manifest) Entry(p split.Partition) (Entry, bool) {
	for _, e := range m.Partitions {
		if e.Name == p {
			return e, true
		}
	}
	return Entry{}, false
}

// Write stores m at Path(base).
func Write(ctx context.Context, st storage.Storage, base string, m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := storage.WriteAll(ctx, st, Path(base), b); err != nil {
		return fmt.Errorf("manifest: write %s: %w", Path(base), err)
	}
	return nil
}

// Read loads the manifest at Path(base).
func Read(ctx context.Context, st storage.Storage, base string) (*Manifest, error) {
	b, err := storage.ReadAll(ctx, st, Path(base))
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", Path(base), err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", Path(base), err)
	}
	return &m, nil
}
