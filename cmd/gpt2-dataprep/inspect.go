package main

import (
	"context"
	"fmt"
	"io"

	"k8s.io/klog/v2"

	"github.com/trisongz/gpt2-text-generation/pkg/config"
	"github.com/trisongz/gpt2-text-generation/pkg/dataset"
	"github.com/trisongz/gpt2-text-generation/pkg/manifest"
	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// runLayout is where and how a transform run stored its artifacts.
type runLayout struct {
	base   string
	format split.Encoding
	fields record.Fields
}

// resolveLayout prefers the run manifest and falls back to the configured
// format and label field.
func resolveLayout(ctx context.Context, cfg *config.Config, st storage.Storage) (runLayout, error) {
	if err := cfg.RequireOutput(); err != nil {
		return runLayout{}, err
	}
	l := runLayout{base: cfg.Output}
	ok, err := st.Exists(ctx, manifest.Path(cfg.Output))
	if err != nil {
		return runLayout{}, err
	}
	if ok {
		m, err := manifest.Read(ctx, st, cfg.Output)
		if err != nil {
			return runLayout{}, err
		}
		l.format = m.Format
		l.fields = m.Fields()
		return l, nil
	}
	klog.V(1).Infof("no manifest at %s; using format=%s labeled=%t", manifest.Path(cfg.Output), cfg.Format, cfg.Fields.Labeled())
	l.format = cfg.Format
	l.fields = artifactFields(cfg.Fields.Labeled())
	return l, nil
}

// RunInspect loads the selected partitions as datasets and prints their
// sizes and first canonical records.
func RunInspect(ctx context.Context, cfg *config.Config, st storage.Storage, sel selection, w io.Writer) error {
	l, err := resolveLayout(ctx, cfg, st)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	parts := sel.partitions()
	if len(parts) == 0 {
		return fmt.Errorf("inspect: no partition selected")
	}
	sets, err := dataset.LoadSplits(ctx, st, l.base, l.format, l.fields, parts...)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	for i, p := range parts {
		d := sets[i]
		fmt.Fprintf(w, "%s: %d records (%s)\n", p, d.Len(), split.ArtifactPath(l.base, p, l.format))
		for j, r := range d.All() {
			if j >= sel.samples {
				break
			}
			fmt.Fprintf(w, "  [%d] %q\n", j, r.Text)
		}
	}
	return nil
}
