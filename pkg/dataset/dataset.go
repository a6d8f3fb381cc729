// Package dataset exposes each partition to the training loop as an
// ordered, finite, re-iterable sequence of canonical records.
package dataset

import (
	"context"
	"fmt"
	"iter"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// Dataset is read-only; batching and shuffling belong to the consumer.
type Dataset struct {
	records []record.Canonical
}

// New wraps canonical records. The slice is copied.
func New(records []record.Canonical) *Dataset {
	return &Dataset{records: append([]record.Canonical(nil), records...)}
}

// FromRecords collates mapped records into a Dataset.
func FromRecords(records []record.Record) *Dataset {
	return &Dataset{records: record.Collate(records)}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// At returns the i-th record.
func (d *Dataset) At(i int) record.Canonical {
	return d.records[i]
}

// All yields every record with its position. Each call starts over.
func (d *Dataset) All() iter.Seq2[int, record.Canonical] {
	return func(yield func(int, record.Canonical) bool) {
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Texts returns the canonical texts in order.
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.records))
	for i, r := range d.records {
		out[i] = r.Text
	}
	return out
}

// Partitioned splits mapped records in memory, for callers that train
// without writing artifacts.
func Partitioned(records []record.Record) map[split.Partition]*Dataset {
	g := split.Group(records)
	out := make(map[split.Partition]*Dataset, len(split.Partitions))
	for _, p := range split.Partitions {
		out[p] = FromRecords(g.Get(p))
	}
	return out
}

// Load reads one split artifact and maps it through fields.
func Load(ctx context.Context, st storage.Storage, location string, enc split.Encoding, fields record.Fields) (*Dataset, error) {
	r, err := st.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", location, err)
	}
	defer r.Close()

	raws, err := split.ReadArtifact(r, enc)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", location, err)
	}
	recs, _, err := record.NewMapper(fields).MapAll(raws, false)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", location, err)
	}
	return FromRecords(recs), nil
}

// LoadSplits loads the requested partitions of an output base path, in the
// order given.
func LoadSplits(ctx context.Context, st storage.Storage, base string, enc split.Encoding, fields record.Fields, partitions ...split.Partition) ([]*Dataset, error) {
	out := make([]*Dataset, 0, len(partitions))
	for _, p := range partitions {
		d, err := Load(ctx, st, split.ArtifactPath(base, p, enc), enc, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
