package vcs

import (
	"fmt"
	"strings"
)

// BackendError reports a failed or unparsable backend invocation. Callers
// must not use partial output of the failed operation.
type BackendError struct {
	Root   string
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s", e.Op, e.Root)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	return b.String()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// CorruptStateError reports a persisted ref type index outside the known table.
type CorruptStateError struct {
	Index  int
	Record int // position of the record in the persisted stream, -1 if unknown
}

func (e *CorruptStateError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("corrupt ref record %d: unknown ref type index %d", e.Record, e.Index)
	}
	return fmt.Sprintf("unknown ref type index %d", e.Index)
}

// ConsistencyWarning is produced when graph heads are not covered by refs.
type ConsistencyWarning struct {
	Root  string
	Heads []Hash
	Dump  string
}

func (w *ConsistencyWarning) Error() string {
	short := make([]string, 0, len(w.Heads))
	for _, h := range w.Heads {
		short = append(short, h.Short())
	}
	return fmt.Sprintf("inconsistent log data in %s: heads without refs: %s", w.Root, strings.Join(short, ", "))
}
