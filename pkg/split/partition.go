// Package split assigns mapped records to train/validation/test partitions
// by source position and serializes each partition to its own artifact.
package split

import (
	"fmt"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
)

// Partition is one of the three disjoint groups of a split.
type Partition string

const (
	Train      Partition = "train"
	Validation Partition = "validation"
	Test       Partition = "test"
)

// Partitions lists every partition in artifact order.
var Partitions = []Partition{Train, Validation, Test}

// Suffix is appended to the output base path for the partition's artifact.
func (p Partition) Suffix() string {
	switch p {
	case Validation:
		return "_val"
	case Test:
		return "_test"
	default:
		return "_train"
	}
}

// ParsePartition accepts a partition name or its short alias.
func ParsePartition(s string) (Partition, error) {
	switch s {
	case "train":
		return Train, nil
	case "validation", "val", "dev":
		return Validation, nil
	case "test":
		return Test, nil
	default:
		return "", fmt.Errorf("unknown partition %q", s)
	}
}

// Assign returns the partition for the record at zero-based source position
// i. The divisibility checks run in order, so multiples of 24 land in
// validation and never in test. Existing split artifacts depend on this
// membership; changing the divisors or the order is a compatibility break.
func Assign(i int) Partition {
	switch {
	case i%8 == 0:
		return Validation
	case i%12 == 0:
		return Test
	default:
		return Train
	}
}

// Groups holds the records of each partition in source order.
type Groups struct {
	Train      []record.Record
	Validation []record.Record
	Test       []record.Record
}

// Get returns the records of p.
func (g Groups) Get(p Partition) []record.Record {
	switch p {
	case Validation:
		return g.Validation
	case Test:
		return g.Test
	default:
		return g.Train
	}
}

// Group partitions records in memory by their Index.
func Group(records []record.Record) Groups {
	var g Groups
	for _, r := range records {
		switch Assign(r.Index) {
		case Validation:
			g.Validation = append(g.Validation, r)
		case Test:
			g.Test = append(g.Test, r)
		default:
			g.Train = append(g.Train, r)
		}
	}
	return g
}
