package split

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
)

type memSink struct {
	bytes.Buffer
	committed bool
	aborted   bool
}

func (m *memSink) Commit() error {
	m.committed = true
	return nil
}

func (m *memSink) Abort() error {
	m.aborted = true
	return nil
}

type memSinks map[Partition]*memSink

func (ms memSinks) open(p Partition) (Sink, error) {
	s := &memSink{}
	ms[p] = s
	return s, nil
}

func labelled(n int) []record.Record {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.Record{Index: i, Label: fmt.Sprintf("L%d", i), Text: fmt.Sprintf("T%d", i), Labeled: true}
	}
	return recs
}

func TestAssign(t *testing.T) {
	for i := 0; i < 2400; i++ {
		got := Assign(i)
		switch {
		case i%24 == 0:
			assert.Equal(t, Validation, got, "i=%d", i)
		case i%8 == 0:
			assert.Equal(t, Validation, got, "i=%d", i)
		case i%12 == 0:
			assert.Equal(t, Test, got, "i=%d", i)
		default:
			assert.Equal(t, Train, got, "i=%d", i)
		}
	}
}

func TestGroupCoversEveryRecordOnce(t *testing.T) {
	recs := labelled(500)
	g := Group(recs)
	seen := make(map[int]int)
	for _, p := range Partitions {
		prev := -1
		for _, r := range g.Get(p) {
			seen[r.Index]++
			assert.Greater(t, r.Index, prev, "partition %s out of order", p)
			prev = r.Index
		}
	}
	require.Len(t, seen, 500)
	for i, n := range seen {
		assert.Equal(t, 1, n, "record %d", i)
	}
}

func TestSplitTwentyFourRecords(t *testing.T) {
	sinks := memSinks{}
	sum, err := New(Options{Encoding: JSONL, Labeled: true}).Split(labelled(24), sinks.open)
	require.NoError(t, err)

	indices := func(p Partition) []int {
		var out []int
		s := bufio.NewScanner(strings.NewReader(sinks[p].String()))
		for s.Scan() {
			var line struct {
				Label string `json:"label"`
				Text  string `json:"text"`
			}
			require.NoError(t, json.Unmarshal(s.Bytes(), &line))
			var i int
			_, err := fmt.Sscanf(line.Text, "T%d", &i)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("L%d", i), line.Label)
			out = append(out, i)
		}
		return out
	}

	assert.Equal(t, []int{0, 8, 16}, indices(Validation))
	assert.Equal(t, []int{12}, indices(Test))
	train := indices(Train)
	assert.Len(t, train, 20)
	assert.NotContains(t, train, 0)
	assert.NotContains(t, train, 12)

	assert.Equal(t, 20, sum.Counts[Train])
	assert.Equal(t, 3, sum.Counts[Validation])
	assert.Equal(t, 1, sum.Counts[Test])
	assert.Equal(t, 24, sum.Written())
	for _, p := range Partitions {
		assert.True(t, sinks[p].committed)
		assert.False(t, sinks[p].aborted)
	}
}

func TestSplitCSV(t *testing.T) {
	sinks := memSinks{}
	_, err := New(Options{Encoding: CSV, Labeled: true}).Split(labelled(13), sinks.open)
	require.NoError(t, err)
	assert.Equal(t, "label,text\nL0,T0\nL8,T8\n", sinks[Validation].String())
	assert.Equal(t, "label,text\nL12,T12\n", sinks[Test].String())
	assert.True(t, strings.HasPrefix(sinks[Train].String(), "label,text\nL1,T1\nL2,T2\n"))
}

func TestSplitLabelless(t *testing.T) {
	recs := []record.Record{{Index: 0, Text: "a"}, {Index: 1, Text: "b"}}

	sinks := memSinks{}
	_, err := New(Options{Encoding: CSV}).Split(recs, sinks.open)
	require.NoError(t, err)
	assert.Equal(t, "text\na\n", sinks[Validation].String())
	assert.Equal(t, "text\nb\n", sinks[Train].String())
	assert.Equal(t, "text\n", sinks[Test].String())

	sinks = memSinks{}
	_, err = New(Options{Encoding: JSONL}).Split(recs, sinks.open)
	require.NoError(t, err)
	assert.Equal(t, "{\"text\":\"b\"}\n", sinks[Train].String())
}

func TestSplitRejectsMixedShapes(t *testing.T) {
	sinks := memSinks{}
	recs := []record.Record{{Index: 0, Text: "a"}}
	_, err := New(Options{Encoding: CSV, Labeled: true}).Split(recs, sinks.open)
	require.Error(t, err)
	for _, p := range Partitions {
		assert.True(t, sinks[p].aborted)
	}
}

func TestSplitJSONLRoundTrip(t *testing.T) {
	recs := []record.Record{
		{Index: 1, Label: "q\"uote", Text: "multi\nline <b>tags</b>, commas", Labeled: true},
		{Index: 2, Label: "ünï", Text: "tab\there", Labeled: true},
	}
	sinks := memSinks{}
	_, err := New(Options{Encoding: JSONL, Labeled: true}).Split(recs, sinks.open)
	require.NoError(t, err)

	var got []record.Record
	s := bufio.NewScanner(strings.NewReader(sinks[Train].String()))
	i := 1
	for s.Scan() {
		var line struct {
			Label string `json:"label"`
			Text  string `json:"text"`
		}
		require.NoError(t, json.Unmarshal(s.Bytes(), &line))
		got = append(got, record.Record{Index: i, Label: line.Label, Text: line.Text, Labeled: true})
		i++
	}
	assert.Equal(t, recs, got)
	assert.Contains(t, sinks[Train].String(), "<b>tags</b>")
}

func TestSplitIsIdempotent(t *testing.T) {
	recs := labelled(100)
	first, second := memSinks{}, memSinks{}
	_, err := New(Options{Encoding: CSV, Labeled: true}).Split(recs, first.open)
	require.NoError(t, err)
	_, err = New(Options{Encoding: CSV, Labeled: true}).Split(recs, second.open)
	require.NoError(t, err)
	for _, p := range Partitions {
		assert.Equal(t, first[p].Bytes(), second[p].Bytes())
	}
}

func TestSplitSerializationFailure(t *testing.T) {
	recs := labelled(10)
	recs[3].Text = "broken\nline"

	t.Run("fail fast aborts every artifact", func(t *testing.T) {
		sinks := memSinks{}
		sum, err := New(Options{Encoding: CSV, Labeled: true}).Split(recs, sinks.open)
		var serr *SerializationError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, 3, serr.Index)
		require.NotNil(t, sum)
		for _, p := range Partitions {
			assert.True(t, sinks[p].aborted, p)
			assert.False(t, sinks[p].committed, p)
		}
		// Records before the failure went to aborted sinks and are not counted.
		assert.Zero(t, sum.Written())
	})

	t.Run("skip counts and continues", func(t *testing.T) {
		sinks := memSinks{}
		sum, err := New(Options{Encoding: CSV, Labeled: true, SkipInvalid: true}).Split(recs, sinks.open)
		require.NoError(t, err)
		assert.Equal(t, 1, sum.SkippedInvalid)
		assert.Equal(t, 9, sum.Written())
		assert.NotContains(t, sinks[Train].String(), "broken")
		// Positions after the skipped record keep their assignment.
		assert.Equal(t, "label,text\nL0,T0\nL8,T8\n", sinks[Validation].String())
	})

	t.Run("jsonl rejects invalid UTF-8", func(t *testing.T) {
		bad := []record.Record{{Index: 0, Text: "ok\xff", Labeled: false}}
		sinks := memSinks{}
		_, err := New(Options{Encoding: JSONL}).Split(bad, sinks.open)
		var serr *SerializationError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "invalid UTF-8", serr.Reason)
	})
}

func TestSplitOpenFailure(t *testing.T) {
	sinks := memSinks{}
	open := func(p Partition) (Sink, error) {
		if p == Test {
			return nil, errors.New("disk full")
		}
		return sinks.open(p)
	}
	_, err := New(Options{Encoding: CSV}).Split(nil, open)
	require.Error(t, err)
	assert.True(t, sinks[Train].aborted)
	assert.True(t, sinks[Validation].aborted)
}

// faultySink fails its first Write or its Commit.
type faultySink struct {
	memSink
	failWrite  bool
	failCommit bool
}

func (f *faultySink) Write(p []byte) (int, error) {
	if f.failWrite {
		return 0, errors.New("write refused")
	}
	return f.memSink.Write(p)
}

func (f *faultySink) Commit() error {
	if f.failCommit {
		return errors.New("put refused")
	}
	return f.memSink.Commit()
}

func TestSplitFlushesBeforeCommitting(t *testing.T) {
	sinks := map[Partition]*faultySink{}
	open := func(p Partition) (Sink, error) {
		s := &faultySink{failWrite: p == Test}
		sinks[p] = s
		return s, nil
	}
	sum, err := New(Options{Encoding: CSV, Labeled: true}).Split(labelled(24), open)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush test")
	for _, p := range Partitions {
		assert.False(t, sinks[p].committed, p)
		assert.True(t, sinks[p].aborted, p)
	}
	assert.Zero(t, sum.Written())
}

func TestSplitCommitFailure(t *testing.T) {
	sinks := map[Partition]*faultySink{}
	open := func(p Partition) (Sink, error) {
		s := &faultySink{failCommit: p == Validation}
		sinks[p] = s
		return s, nil
	}
	sum, err := New(Options{Encoding: CSV, Labeled: true}).Split(labelled(24), open)
	require.Error(t, err)
	assert.True(t, sinks[Train].committed)
	assert.True(t, sinks[Validation].aborted)
	assert.True(t, sinks[Test].aborted)
	assert.False(t, sinks[Test].committed)
	// Only the committed partition keeps its count.
	assert.Equal(t, 20, sum.Counts[Train])
	assert.Zero(t, sum.Counts[Validation])
	assert.Zero(t, sum.Counts[Test])
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "/data/exp1_train.csv", ArtifactPath("/data/exp1", Train, CSV))
	assert.Equal(t, "/data/exp1_val.jsonl", ArtifactPath("/data/exp1", Validation, JSONL))
	assert.Equal(t, "s3://b/exp1_test.csv", ArtifactPath("s3://b/exp1", Test, CSV))
}

func TestParse(t *testing.T) {
	e, err := ParseEncoding(" JSONL ")
	require.NoError(t, err)
	assert.Equal(t, JSONL, e)
	_, err = ParseEncoding("parquet")
	assert.Error(t, err)

	p, err := ParsePartition("val")
	require.NoError(t, err)
	assert.Equal(t, Validation, p)
	_, err = ParsePartition("holdout")
	assert.Error(t, err)
}
