package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/trisongz/gpt2-text-generation/pkg/config"
	"github.com/trisongz/gpt2-text-generation/pkg/manifest"
	"github.com/trisongz/gpt2-text-generation/pkg/metrics"
	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/source"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// RunTransform reads cfg.Input fully, maps every record, splits the result
// into <output>_{train|val|test} artifacts and prints a run summary to w.
// A summary is printed even when the run fails after reading the input.
func RunTransform(ctx context.Context, cfg *config.Config, st storage.Storage, w io.Writer) error {
	if err := resolveInput(cfg); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if err := cfg.RequireInput(); err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	runID := uuid.NewString()
	start := time.Now()
	klog.Infof("transform %s: input=%s (%s) output=%s format=%s fields=%+v",
		runID, cfg.Input, cfg.InputFormat, cfg.Output, cfg.Format, cfg.Fields)

	sum, err := transform(ctx, cfg, st)

	if cfg.MetricsFile != "" {
		rec := metrics.New()
		rec.Observe(sum, time.Since(start), err)
		if werr := rec.WriteTextfile(cfg.MetricsFile); werr != nil {
			klog.Errorf("transform %s: write metrics %s: %v", runID, cfg.MetricsFile, werr)
		}
	}
	if err == nil {
		for _, p := range split.Partitions {
			fmt.Fprintln(w, "wrote", split.ArtifactPath(cfg.Output, p, cfg.Format))
		}
	}
	if sum != nil {
		sum.Print(w)
	}
	if err != nil {
		klog.Errorf("transform %s: %v", runID, err)
		return fmt.Errorf("transform: %w", err)
	}
	klog.Infof("transform %s: done in %s", runID, time.Since(start).Round(time.Millisecond))
	return nil
}

func transform(ctx context.Context, cfg *config.Config, st storage.Storage) (*split.Summary, error) {
	raws, err := readInput(ctx, st, cfg.Input, cfg.InputFormat)
	if err != nil {
		return nil, err
	}
	klog.Infof("loaded %d records from %s", len(raws), cfg.Input)

	mapper := record.NewMapper(cfg.Fields)
	recs, skipped, err := mapper.MapAll(raws, cfg.SkipInvalid)
	if err != nil {
		sum := split.NewSummary()
		sum.Read = len(raws)
		return sum, err
	}
	if skipped > 0 {
		klog.Warningf("skipped %d records with missing fields", skipped)
	}

	fields := mapper.Fields()
	splitter := split.New(split.Options{
		Encoding:    cfg.Format,
		Labeled:     fields.Labeled(),
		SkipInvalid: cfg.SkipInvalid,
	})
	open := func(p split.Partition) (split.Sink, error) {
		return st.Create(ctx, split.ArtifactPath(cfg.Output, p, cfg.Format))
	}
	sum, err := splitter.Split(recs, open)
	sum.Read = len(raws)
	sum.SkippedMissing = skipped
	if err != nil {
		return sum, err
	}
	if cfg.Manifest {
		m := manifest.New(cfg.Input, string(cfg.InputFormat), cfg.Output, cfg.Format, fields, sum)
		if err := manifest.Write(ctx, st, cfg.Output, m); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func readInput(ctx context.Context, st storage.Storage, location string, format source.Format) ([]record.Raw, error) {
	r, err := st.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	defer r.Close()
	raws, err := source.Read(r, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return raws, nil
}
