package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/trisongz/gpt2-text-generation/pkg/config"
	"github.com/trisongz/gpt2-text-generation/pkg/dataset"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

type features struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// measurement is one JSONL line of <base>_measure.jsonl.
type measurement struct {
	ID              string   `json:"id"`
	Model           string   `json:"model"`
	Partition       string   `json:"partition"`
	Records         int      `json:"records"`
	SampleRecords   int      `json:"sample_records"`
	InputTokens     int64    `json:"input_tokens"`
	EstimatedTokens int64    `json:"estimated_tokens"`
	Features        features `json:"features"`
	SourcePath      string   `json:"source_path"`
}

type tokenCounter interface {
	Count(ctx context.Context, params anthropic.MessageCountTokensParams) (int64, error)
}

type sdkTokenCounter struct {
	client anthropic.Client
}

const defaultModel = anthropic.ModelClaude3_7SonnetLatest

func countFeatures(s string) features {
	b := len(s)
	r := utf8.RuneCountInString(s)
	w := len(strings.Fields(s))
	l := 0
	if s != "" {
		l = 1 + strings.Count(s, "\n")
	}
	return features{Bytes: b, Runes: r, Words: w, Lines: l}
}

// CountInputTokens builds a single-user-message request and counts tokens
// via Anthropic Messages.CountTokens. Abstracted behind tokenCounter for testability.
func CountInputTokens(ctx context.Context, s string) (int64, error) {
	params := anthropic.MessageCountTokensParams{
		Model: defaultModel,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(s)),
		},
	}
	return currentTokenCounter.Count(ctx, params)
}

// Count adapts to anthropic-sdk-go, invoking Messages.CountTokens and returning InputTokens.
func (s sdkTokenCounter) Count(ctx context.Context, params anthropic.MessageCountTokensParams) (int64, error) {
	count, err := s.client.Messages.CountTokens(ctx, params)
	if err != nil {
		return 0, err
	}
	return count.InputTokens, nil
}

var currentTokenCounter tokenCounter = sdkTokenCounter{client: anthropic.NewClient()}

// estimateTokens scales a sample token count to the full partition.
func estimateTokens(sampleTokens int64, sample, total int) int64 {
	if sample <= 0 || sample >= total {
		return sampleTokens
	}
	return sampleTokens * int64(total) / int64(sample)
}

// readSeen returns the source paths already recorded in the measure file.
func readSeen(ctx context.Context, st storage.Storage, path string) ([]byte, map[string]struct{}, error) {
	seen := make(map[string]struct{})
	ok, err := st.Exists(ctx, path)
	if err != nil || !ok {
		return nil, seen, err
	}
	existing, err := storage.ReadAll(ctx, st, path)
	if err != nil {
		return nil, seen, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(existing))
	for scanner.Scan() {
		var rec struct {
			SourcePath string `json:"source_path"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err == nil && rec.SourcePath != "" {
			seen[rec.SourcePath] = struct{}{}
		}
	}
	return existing, seen, nil
}

// RunMeasure loads each selected partition, computes local features over its
// canonical texts and calls the Anthropic Count Tokens API on a sample of up
// to sel.samples records (requires ANTHROPIC_API_KEY). Partitions already in
// <base>_measure.jsonl are skipped; failures are counted and reported.
func RunMeasure(ctx context.Context, cfg *config.Config, st storage.Storage, sel selection, w io.Writer) error {
	// Early exit if API key missing
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("missing ANTHROPIC_API_KEY")
	}

	l, err := resolveLayout(ctx, cfg, st)
	if err != nil {
		return fmt.Errorf("measure: %w", err)
	}
	parts := sel.partitions()
	if len(parts) == 0 {
		return fmt.Errorf("measure: no partition selected")
	}

	outPath := l.base + sufMeasure
	existing, seen, err := readSeen(ctx, st, outPath)
	if err != nil {
		return fmt.Errorf("measure: read %s: %w", outPath, err)
	}

	var toProcess []split.Partition
	N_skipped := 0
	for _, p := range parts {
		if _, ok := seen[split.ArtifactPath(l.base, p, l.format)]; ok {
			N_skipped++
			continue
		}
		toProcess = append(toProcess, p)
	}
	if len(toProcess) == 0 {
		fmt.Fprintf(w, "No new partitions to measure. To re-measure one, delete its entry in %s and rerun gpt2-dataprep measure.\n", outPath)
		return nil
	}

	var buf bytes.Buffer
	buf.Write(existing)
	N_success := 0
	var failed []string
	for _, p := range toProcess {
		rel := split.ArtifactPath(l.base, p, l.format)
		d, err := dataset.Load(ctx, st, rel, l.format, l.fields)
		if err != nil {
			klog.Errorf("measure: %v", err)
			failed = append(failed, rel)
			continue
		}
		texts := d.Texts()
		sample := texts
		if sel.samples > 0 && len(sample) > sel.samples {
			sample = sample[:sel.samples]
		}

		var inputTokens int64
		if len(sample) == 0 {
			klog.V(1).Infof("measure: %s is empty; recording zero tokens", rel)
		} else {
			reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			inputTokens, err = CountInputTokens(reqCtx, strings.Join(sample, "\n"))
			cancel()
			if err != nil {
				klog.Errorf("measure: count tokens for %s: %v", rel, err)
				failed = append(failed, rel)
				continue
			}
		}

		rec := measurement{
			ID:              "rec-" + uuid.NewString(),
			Model:           string(defaultModel),
			Partition:       string(p),
			Records:         d.Len(),
			SampleRecords:   len(sample),
			InputTokens:     inputTokens,
			EstimatedTokens: estimateTokens(inputTokens, len(sample), d.Len()),
			Features:        countFeatures(strings.Join(texts, "\n")),
			SourcePath:      rel,
		}
		enc, err := json.Marshal(rec)
		if err != nil {
			failed = append(failed, rel)
			continue
		}
		buf.Write(append(enc, '\n'))
		N_success++
	}

	if N_success > 0 {
		if err := storage.WriteAll(ctx, st, outPath, buf.Bytes()); err != nil {
			return fmt.Errorf("measure: write %s: %w", outPath, err)
		}
	}

	fmt.Fprintln(w, "Partitions selected:", len(parts))
	fmt.Fprintln(w, "Already present (skipped):", N_skipped)
	fmt.Fprintln(w, "Attempted (new):", len(toProcess))
	fmt.Fprintln(w, "Measured successfully:", N_success)
	fmt.Fprintln(w, "Failed:", len(failed))
	if len(failed) > 0 {
		fmt.Fprintln(w, "Failed artifacts:", strings.Join(failed, ", "))
		return fmt.Errorf("measure: some partitions failed to measure")
	}
	return nil
}
