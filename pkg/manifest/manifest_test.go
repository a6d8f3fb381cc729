package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/split"
	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

func TestWriteRead(t *testing.T) {
	ctx := context.Background()
	st := storage.NewLocalStorage()
	base := filepath.Join(t.TempDir(), "exp1")

	sum := split.NewSummary()
	sum.Read = 26
	sum.SkippedMissing = 2
	sum.Counts[split.Train] = 20
	sum.Counts[split.Validation] = 3
	sum.Counts[split.Test] = 1

	m := New("in.jsonl", "jsonl", base, split.JSONL, record.Fields{Text: "body", Label: "sentiment"}, sum)
	require.NoError(t, Write(ctx, st, base, m))

	got, err := Read(ctx, st, base)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, 2, got.Skipped)

	e, ok := got.Entry(split.Validation)
	require.True(t, ok)
	assert.Equal(t, base+"_val.jsonl", e.Path)
	assert.Equal(t, 3, e.Records)

	assert.Equal(t, record.Fields{Text: "text", Label: "label"}, got.Fields())

	first, err := os.ReadFile(Path(base))
	require.NoError(t, err)
	require.NoError(t, Write(ctx, st, base, m))
	second, err := os.ReadFile(Path(base))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFieldsLabelless(t *testing.T) {
	m := &Manifest{TextField: "body"}
	assert.Equal(t, record.Fields{Text: "text"}, m.Fields())
	_, ok := m.Entry(split.Train)
	assert.False(t, ok)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(context.Background(), storage.NewLocalStorage(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
