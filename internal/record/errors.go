package record

import "fmt"

// ReadError reports a missing or corrupt record store or state file.
// Callers recover from it by substituting an empty collection.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// TimestampError reports a dateUpdated value that does not match TimestampLayout.
type TimestampError struct {
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("malformed timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// ScoreError reports a baseScore that is not a finite number.
type ScoreError struct {
	Value string
	Err   error
}

func (e *ScoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unparsable score %q", e.Value)
	}
	return fmt.Sprintf("unparsable score %q: %v", e.Value, e.Err)
}

func (e *ScoreError) Unwrap() error { return e.Err }
