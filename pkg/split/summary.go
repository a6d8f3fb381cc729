package split

import (
	"fmt"
	"io"
)

// Summary tallies one run. Read and SkippedMissing are filled by the caller
// that reads and maps the source.
type Summary struct {
	Read           int
	Mapped         int
	SkippedMissing int
	SkippedInvalid int
	Counts         map[Partition]int
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{Counts: make(map[Partition]int, len(Partitions))}
}

// Written is the number of records that reached an artifact.
func (s *Summary) Written() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Skipped is the number of records dropped for any reason.
func (s *Summary) Skipped() int {
	return s.SkippedMissing + s.SkippedInvalid
}

// Print writes the human-readable run summary.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "Records read:", s.Read)
	fmt.Fprintln(w, "Train:", s.Counts[Train])
	fmt.Fprintln(w, "Validation:", s.Counts[Validation])
	fmt.Fprintln(w, "Test:", s.Counts[Test])
	fmt.Fprintln(w, "Skipped (missing field):", s.SkippedMissing)
	fmt.Fprintln(w, "Skipped (unencodable):", s.SkippedInvalid)
}
