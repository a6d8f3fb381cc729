package split

import "fmt"

// SerializationError reports a record that cannot be written in the chosen
// encoding without corrupting the artifact.
type SerializationError struct {
	Index    int
	Encoding Encoding
	Reason   string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("record %d: cannot encode as %s: %s", e.Index, e.Encoding, e.Reason)
}
