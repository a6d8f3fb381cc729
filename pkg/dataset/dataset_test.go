package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

func TestDatasetIteration(t *testing.T) {
	d := New([]record.Canonical{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	require.Equal(t, 3, d.Len())
	assert.Equal(t, "b", d.At(1).Text)

	for pass := 0; pass < 2; pass++ {
		var got []string
		for i, r := range d.All() {
			assert.Equal(t, len(got), i)
			got = append(got, r.Text)
		}
		assert.Equal(t, []string{"a", "b", "c"}, got, "pass %d", pass)
	}

	var first []string
	for _, r := range d.All() {
		first = append(first, r.Text)
		break
	}
	assert.Equal(t, []string{"a"}, first)
	assert.Equal(t, []string{"a", "b", "c"}, d.Texts())
}

func TestPartitioned(t *testing.T) {
	var recs []record.Record
	for i := 0; i < 24; i++ {
		recs = append(recs, record.Record{Index: i, Label: fmt.Sprint(i), Text: "t", Labeled: true})
	}
	parts := Partitioned(recs)
	assert.Equal(t, 20, parts[split.Train].Len())
	assert.Equal(t, 3, parts[split.Validation].Len())
	assert.Equal(t, 1, parts[split.Test].Len())
	assert.Equal(t, "<LABEL> 12<TARGET> t", parts[split.Test].At(0).Text)
}

func writeSplit(t *testing.T, enc split.Encoding, recs []record.Record, labeled bool) string {
	t.Helper()
	ctx := context.Background()
	st := storage.NewLocalStorage()
	base := filepath.Join(t.TempDir(), "exp")
	open := func(p split.Partition) (split.Sink, error) {
		return st.Create(ctx, split.ArtifactPath(base, p, enc))
	}
	_, err := split.New(split.Options{Encoding: enc, Labeled: labeled}).Split(recs, open)
	require.NoError(t, err)
	return base
}

func TestLoadSplits(t *testing.T) {
	var recs []record.Record
	for i := 0; i < 13; i++ {
		recs = append(recs, record.Record{Index: i, Label: fmt.Sprintf("L%d", i), Text: fmt.Sprintf("T%d, with comma", i), Labeled: true})
	}
	fields := record.Fields{Text: "text", Label: "label"}

	for _, enc := range []split.Encoding{split.CSV, split.JSONL} {
		t.Run(string(enc), func(t *testing.T) {
			base := writeSplit(t, enc, recs, true)
			sets, err := LoadSplits(context.Background(), storage.NewLocalStorage(), base, enc, fields,
				split.Train, split.Validation, split.Test)
			require.NoError(t, err)
			require.Len(t, sets, 3)
			assert.Equal(t, 10, sets[0].Len())
			assert.Equal(t, []string{
				"<LABEL> L0<TARGET> T0, with comma",
				"<LABEL> L8<TARGET> T8, with comma",
			}, sets[1].Texts())
			assert.Equal(t, []string{"<LABEL> L12<TARGET> T12, with comma"}, sets[2].Texts())
		})
	}
}

func TestLoadLabelless(t *testing.T) {
	recs := []record.Record{{Index: 0, Text: "zero"}, {Index: 1, Text: "one"}}
	base := writeSplit(t, split.CSV, recs, false)

	sets, err := LoadSplits(context.Background(), storage.NewLocalStorage(), base, split.CSV, record.Fields{Text: "text"}, split.Train)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, sets[0].Texts())

	_, err = LoadSplits(context.Background(), storage.NewLocalStorage(), base, split.CSV, record.Fields{Text: "text", Label: "label"}, split.Train)
	var missing *record.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), storage.NewLocalStorage(), filepath.Join(dir, "missing.csv"), split.CSV, record.Fields{Text: "text"})
	assert.Error(t, err)

	p := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(p, []byte("id,body\n1,x\n"), 0o644))
	_, err = Load(context.Background(), storage.NewLocalStorage(), p, split.CSV, record.Fields{Text: "text"})
	assert.Error(t, err)
}
