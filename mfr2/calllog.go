package mfr2

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CallLog is one open per-call debug capture (spec.md §6 "persisted debug
// format"); Logf appends a timestamped line, Close flushes and releases it.
type CallLog interface {
	Logf(format string, v ...interface{})
	Close() error
}

// CallLogger opens a new CallLog for a call beginning on channel number,
// direction dir, with seq the channel's running per-call sequence counter.
// Per §9's redesign flag ("conditional compilation for debug captures"),
// this is a runtime collaborator a host opts into via Channel's
// WithCallLogger option, not a compile-time switch.
type CallLogger interface {
	Open(channelNumber int, dir Direction, seq int) (CallLog, error)
}

// FileCallLogger writes one text file per call, named
// "chan-<N>-{forward|backward}-<seq>.call" under Dir (or the working
// directory if Dir is empty), matching the naming convention spec.md §6
// documents and original_source/'s OR2_CALL_DEBUG_FOLLOW capture carried at
// compile time.
type FileCallLogger struct {
	Dir string
}

func (l FileCallLogger) Open(channelNumber int, dir Direction, seq int) (CallLog, error) {
	name := fmt.Sprintf("chan-%d-%s-%d.call", channelNumber, strings.ToLower(dir.String()), seq)
	path := name
	if l.Dir != "" {
		path = filepath.Join(l.Dir, name)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("mfr2: open call log: %w", err)
	}
	return &fileCallLog{f: f}, nil
}

type fileCallLog struct {
	f *os.File
}

func (c *fileCallLog) Logf(format string, v ...interface{}) {
	fmt.Fprintf(c.f, "%s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), fmt.Sprintf(format, v...))
}

func (c *fileCallLog) Close() error {
	return c.f.Close()
}

var _ CallLogger = FileCallLogger{}
