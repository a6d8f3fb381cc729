package split

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
)

// Encoding selects the serialization of a split artifact.
type Encoding string

const (
	CSV   Encoding = "csv"
	JSONL Encoding = "jsonl"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(strings.ToLower(strings.TrimSpace(s))); e {
	case CSV, JSONL:
		return e, nil
	default:
		return "", fmt.Errorf("unknown output format %q: want csv or jsonl", s)
	}
}

// Ext is the file extension of the encoding, dot included.
func (e Encoding) Ext() string {
	return "." + string(e)
}

// ArtifactPath derives the artifact location of p from an output base path.
func ArtifactPath(base string, p Partition, e Encoding) string {
	return base + p.Suffix() + e.Ext()
}

// Header returns the artifact preamble. A label-less CSV has a single
// text column.
func (e Encoding) Header(labeled bool) []byte {
	if e != CSV {
		return nil
	}
	if labeled {
		return []byte("label,text\n")
	}
	return []byte("text\n")
}

// Encode renders one record as a single line, newline included.
func (e Encoding) Encode(r record.Record) ([]byte, error) {
	if !utf8.ValidString(r.Text) || (r.Labeled && !utf8.ValidString(r.Label)) {
		return nil, &SerializationError{Index: r.Index, Encoding: e, Reason: "invalid UTF-8"}
	}
	switch e {
	case CSV:
		return encodeCSV(r)
	case JSONL:
		return encodeJSONL(r)
	default:
		return nil, fmt.Errorf("unknown output format %q", e)
	}
}

// encodeCSV joins fields with a comma. Fields are never quoted, so embedded
// commas shift columns for strict readers; only line breaks are rejected.
func encodeCSV(r record.Record) ([]byte, error) {
	if strings.ContainsAny(r.Text, "\r\n") || (r.Labeled && strings.ContainsAny(r.Label, "\r\n")) {
		return nil, &SerializationError{Index: r.Index, Encoding: CSV, Reason: "contains a line break"}
	}
	var b bytes.Buffer
	if r.Labeled {
		b.WriteString(r.Label)
		b.WriteByte(',')
	}
	b.WriteString(r.Text)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

type jsonLine struct {
	Label *string `json:"label,omitempty"`
	Text  string  `json:"text"`
}

func encodeJSONL(r record.Record) ([]byte, error) {
	line := jsonLine{Text: r.Text}
	if r.Labeled {
		label := r.Label
		line.Label = &label
	}
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(line); err != nil {
		return nil, &SerializationError{Index: r.Index, Encoding: JSONL, Reason: err.Error()}
	}
	return b.Bytes(), nil
}
