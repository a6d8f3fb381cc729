// Package source parses an input corpus into raw records. Every source is
// read fully before any record is handed on; a record's Index is its
// ordinal among the records of the source, blank lines excluded.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
)

// Format names an input encoding.
type Format string

const (
	JSONL Format = "jsonl"
	CSV   Format = "csv"
	Text  Format = "txt"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 64 << 20

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSONL, CSV, Text:
		return f, nil
	case "json", "ndjson":
		return JSONL, nil
	case "text":
		return Text, nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(p string) (Format, error) {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer input format of %s", p)
	}
	return ParseFormat(ext)
}

// Read parses r according to format.
func Read(r io.Reader, format Format) ([]record.Raw, error) {
	switch format {
	case JSONL:
		return ReadJSONL(r)
	case CSV:
		return ReadCSV(r)
	case Text:
		return ReadLines(r)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// ReadJSONL parses one JSON object per line.
func ReadJSONL(r io.Reader) ([]record.Raw, error) {
	var out []record.Raw
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := bytes.TrimSpace(s.Bytes())
		if len(line) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if fields == nil {
			return nil, fmt.Errorf("line %d: not a JSON object", lineNo)
		}
		out = append(out, record.Raw{Index: len(out), Fields: fields})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadCSV parses a delimited table with a header row.
func ReadCSV(r io.Reader) ([]record.Raw, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	var out []record.Raw
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(header))
		for i, name := range header {
			fields[name] = row[i]
		}
		out = append(out, record.Raw{Index: len(out), Fields: fields})
	}
	return out, nil
}

// ReadLines treats every non-blank line as one record, kept byte for byte.
// CRLF and CR line endings are normalized first.
func ReadLines(r io.Reader) ([]record.Raw, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []record.Raw
	for _, ln := range strings.Split(normalizeNewlines(string(b)), "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, record.Raw{Index: len(out), Line: ln})
	}
	return out, nil
}

// normalizeNewlines converts CRLF and CR newlines to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
