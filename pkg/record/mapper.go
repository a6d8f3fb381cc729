package record

import (
	"encoding/json"
	"strconv"
)

// DefaultTextField is the text column name used when none is configured.
const DefaultTextField = "text"

// Fields names the source fields a Mapper reads. An empty Label selects the
// label-less canonical shape for the whole run.
type Fields struct {
	Text  string
	Label string
}

// Labeled reports whether a label field is configured.
func (f Fields) Labeled() bool {
	return f.Label != ""
}

// FieldsFromList interprets an ordered field list: [text] or [text, label].
func FieldsFromList(names []string) (Fields, error) {
	switch len(names) {
	case 1:
		return Fields{Text: names[0]}, nil
	case 2:
		return Fields{Text: names[0], Label: names[1]}, nil
	default:
		return Fields{}, &UnsupportedFieldCountError{Count: len(names)}
	}
}

// Mapper turns raw records into Records. The shape is fixed at construction.
type Mapper struct {
	fields Fields
}

// NewMapper returns a Mapper for fields.
func NewMapper(fields Fields) *Mapper {
	if fields.Text == "" {
		fields.Text = DefaultTextField
	}
	return &Mapper{fields: fields}
}

// Fields returns the mapper's field configuration.
func (m *Mapper) Fields() Fields {
	return m.fields
}

// Map normalizes one raw record.
func (m *Mapper) Map(raw Raw) (Record, error) {
	if raw.IsLine() {
		if m.fields.Labeled() {
			return Record{}, &MissingFieldError{Field: m.fields.Label, Index: raw.Index}
		}
		return Record{Index: raw.Index, Text: raw.Line}, nil
	}

	text, err := lookup(raw, m.fields.Text)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Index: raw.Index, Text: text}
	if !m.fields.Labeled() {
		return rec, nil
	}
	label, err := lookup(raw, m.fields.Label)
	if err != nil {
		return Record{}, err
	}
	rec.Label = label
	rec.Labeled = true
	return rec, nil
}

// MapAll maps every raw record. With skip set, records failing with a
// MissingFieldError are dropped and counted; otherwise the first error is
// returned.
func (m *Mapper) MapAll(raws []Raw, skip bool) ([]Record, int, error) {
	out := make([]Record, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		rec, err := m.Map(raw)
		if err != nil {
			if skip {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

func lookup(raw Raw, name string) (string, error) {
	v, ok := raw.Fields[name]
	if !ok || v == nil {
		return "", &MissingFieldError{Field: name, Index: raw.Index}
	}
	return stringify(v), nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
