package split

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/trisongz/gpt2-text-generation/pkg/record"
	"github.com/trisongz/gpt2-text-generation/pkg/source"
)

// ReadArtifact parses an artifact written by Split back into raw records
// with fields "label" (when present) and "text".
func ReadArtifact(r io.Reader, e Encoding) ([]record.Raw, error) {
	switch e {
	case JSONL:
		return source.ReadJSONL(r)
	case CSV:
		return readCSVArtifact(r)
	default:
		return nil, fmt.Errorf("unknown output format %q", e)
	}
}

// readCSVArtifact inverts encodeCSV: the label ends at the first comma and
// the text runs to the end of the line.
func readCSVArtifact(r io.Reader) ([]record.Raw, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64<<20)
	if !s.Scan() {
		return nil, s.Err()
	}
	var labeled bool
	switch header := strings.TrimSuffix(s.Text(), "\r"); header {
	case "label,text":
		labeled = true
	case "text":
	default:
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var out []record.Raw
	lineNo := 1
	for s.Scan() {
		lineNo++
		line := s.Text()
		fields := map[string]any{"text": line}
		if labeled {
			label, text, ok := strings.Cut(line, ",")
			if !ok {
				return nil, fmt.Errorf("line %d: missing label separator", lineNo)
			}
			fields = map[string]any{"label": label, "text": text}
		}
		out = append(out, record.Raw{Index: len(out), Fields: fields})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
