package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/trisongz/gpt2-text-generation/pkg/config"
	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

const (
	dirRaw      = "data/raw"
	sufMeasure  = "_measure.jsonl"
	inputSuffix = ".jsonl .csv .txt"
)

// selection picks partitions for inspect and measure.
type selection struct {
	train, val, test bool
	samples          int
}

func addSelectionFlags(fs *pflag.FlagSet, sel *selection) {
	fs.BoolVar(&sel.train, "train", true, "include the train partition")
	fs.BoolVar(&sel.val, "val", true, "include the validation partition")
	fs.BoolVar(&sel.test, "test", true, "include the test partition")
}

func (s selection) partitions() []split.Partition {
	var out []split.Partition
	if s.train {
		out = append(out, split.Train)
	}
	if s.val {
		out = append(out, split.Validation)
	}
	if s.test {
		out = append(out, split.Test)
	}
	return out
}

// artifactFields returns the fields split artifacts are read back with.
func artifactFields(labeled bool) record.Fields {
	if labeled {
		return record.Fields{Text: "text", Label: "label"}
	}
	return record.Fields{Text: "text"}
}

// resolveInput replaces a local directory input with the single corpus file
// it contains.
func resolveInput(cfg *config.Config) error {
	if cfg.Input == "" || storage.SchemeOf(cfg.Input) != storage.SchemeLocal {
		return nil
	}
	st, err := os.Stat(cfg.Input)
	if err != nil || !st.IsDir() {
		return nil
	}
	name, err := discoverSingle(cfg.Input, strings.Fields(inputSuffix))
	if err != nil {
		return err
	}
	cfg.Input = filepath.Join(cfg.Input, name)
	return nil
}

// discoverSingle finds exactly one regular, non-hidden file in dir that ends with one of suffixes and returns its filename.
func discoverSingle(dir string, suffixes []string) (string, error) {
	want := strings.Join(suffixes, "|")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no input files found in %s matching *{%s}", dir, want)
		}
		return "", fmt.Errorf("readdir %s: %w", dir, err)
	}
	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		for _, suf := range suffixes {
			if strings.HasSuffix(strings.ToLower(name), suf) {
				candidates = append(candidates, name)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no input files found in %s matching *{%s}", dir, want)
	}
	if len(candidates) > 1 {
		return "", fmt.Errorf("multiple input files found in %s matching *{%s}", dir, want)
	}
	return candidates[0], nil
}

func deriveBase(file, suffix string) string {
	b := filepath.Base(file)
	b = strings.TrimSuffix(b, suffix)
	return b
}
