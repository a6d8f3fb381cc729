package split

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"k8s.io/klog/v2"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
)

// Sink is a scoped output artifact. Written bytes become visible only after
// Commit; Abort discards them. Both are safe to call once the other has run.
type Sink interface {
	io.Writer
	Commit() error
	Abort() error
}

// OpenFunc opens the sink for one partition.
type OpenFunc func(p Partition) (Sink, error)

// Options configure a Splitter.
type Options struct {
	Encoding Encoding
	// Labeled selects the label,text layout for the whole run.
	Labeled bool
	// SkipInvalid counts and drops records that fail to encode instead of
	// aborting the run.
	SkipInvalid bool
}

// Splitter writes mapped records to three partition artifacts.
type Splitter struct {
	opts Options
}

// New returns a Splitter.
func New(opts Options) *Splitter {
	return &Splitter{opts: opts}
}

type output struct {
	sink Sink
	w    *bufio.Writer
	done bool
}

// Split opens one sink per partition, streams every record into the sink of
// Assign(record.Index) in input order, flushes all three and then commits
// them. On any fatal error every sink not yet committed is aborted and its
// count is reset to zero. The returned summary is never nil.
func (s *Splitter) Split(records []record.Record, open OpenFunc) (*Summary, error) {
	sum := NewSummary()
	sum.Mapped = len(records)

	outs := make(map[Partition]*output, len(Partitions))
	defer func() {
		for _, p := range Partitions {
			o, ok := outs[p]
			if ok && o.done {
				continue
			}
			sum.Counts[p] = 0
			if !ok {
				continue
			}
			if err := o.sink.Abort(); err != nil {
				klog.Errorf("split: abort %s: %v", p, err)
			}
		}
	}()

	for _, p := range Partitions {
		sink, err := open(p)
		if err != nil {
			return sum, fmt.Errorf("split: open %s: %w", p, err)
		}
		o := &output{sink: sink, w: bufio.NewWriter(sink)}
		outs[p] = o
		if _, err := o.w.Write(s.opts.Encoding.Header(s.opts.Labeled)); err != nil {
			return sum, fmt.Errorf("split: write %s header: %w", p, err)
		}
	}

	for _, rec := range records {
		if rec.Labeled != s.opts.Labeled {
			return sum, fmt.Errorf("split: record %d: label presence differs from the run configuration", rec.Index)
		}
		p := Assign(rec.Index)
		line, err := s.opts.Encoding.Encode(rec)
		if err != nil {
			var serr *SerializationError
			if s.opts.SkipInvalid && errors.As(err, &serr) {
				klog.V(2).Infof("split: skipping %v", err)
				sum.SkippedInvalid++
				continue
			}
			return sum, fmt.Errorf("split: %w", err)
		}
		if _, err := outs[p].w.Write(line); err != nil {
			return sum, fmt.Errorf("split: write %s: %w", p, err)
		}
		sum.Counts[p]++
	}

	for _, p := range Partitions {
		if err := outs[p].w.Flush(); err != nil {
			return sum, fmt.Errorf("split: flush %s: %w", p, err)
		}
	}
	for _, p := range Partitions {
		o := outs[p]
		if err := o.sink.Commit(); err != nil {
			return sum, fmt.Errorf("split: commit %s: %w", p, err)
		}
		o.done = true
	}
	return sum, nil
}
