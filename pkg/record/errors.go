package record

import "fmt"

// MissingFieldError reports a configured field absent from a raw record.
type MissingFieldError struct {
	Field string
	Index int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing field %q", e.Index, e.Field)
}

// UnsupportedFieldCountError reports a field list whose length the mapper
// cannot interpret. Only [text] and [text, label] are accepted.
type UnsupportedFieldCountError struct {
	Count int
}

func (e *UnsupportedFieldCountError) Error() string {
	return fmt.Sprintf("unsupported field count %d: want 1 (text) or 2 (text, label)", e.Count)
}
