package source

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"data/reviews.jsonl", JSONL, false},
		{"s3://bucket/reviews.ndjson", JSONL, false},
		{"reviews.CSV", CSV, false},
		{"corpus.txt", Text, false},
		{"corpus", "", true},
		{"corpus.parquet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadJSONL(t *testing.T) {
	in := "{\"label\":\"a\",\"text\":\"one\"}\n\n  \n{\"label\":2,\"text\":\"two\"}\n"
	raws, err := ReadJSONL(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, 0, raws[0].Index)
	assert.Equal(t, 1, raws[1].Index)
	assert.Equal(t, "one", raws[0].Fields["text"])
	assert.Equal(t, json.Number("2"), raws[1].Fields["label"])
	assert.False(t, raws[0].IsLine())
}

func TestReadJSONLErrors(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"text\":\"ok\"}\n{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadJSONL(strings.NewReader("null\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestReadCSV(t *testing.T) {
	in := "label,text\npos,\"great, really\"\nneg,bad\n"
	raws, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "great, really", raws[0].Fields["text"])
	assert.Equal(t, "neg", raws[1].Fields["label"])
	assert.Equal(t, 1, raws[1].Index)

	raws, err = ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, raws)

	_, err = ReadCSV(strings.NewReader("label,text\nonly-one\n"))
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	raws, err := ReadLines(strings.NewReader("first\r\nsecond\r\r \t\n  third \n"))
	require.NoError(t, err)
	require.Len(t, raws, 3)
	assert.Equal(t, "first", raws[0].Line)
	assert.Equal(t, "  third ", raws[2].Line)
	assert.Equal(t, 2, raws[2].Index)
	assert.True(t, raws[0].IsLine())
}

func TestRead(t *testing.T) {
	raws, err := Read(strings.NewReader("a\nb\n"), Text)
	require.NoError(t, err)
	assert.Len(t, raws, 2)

	_, err = Read(strings.NewReader(""), Format("xml"))
	assert.Error(t, err)
}
