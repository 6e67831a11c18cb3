package ttylog

import (
	"io"
	"sync"
	"time"
)

// FD identifies the stream a chunk of terminal data travelled on.
type FD int

const (
	FDStdin FD = iota
	FDStdout
	FDStderr
)

// Entry is a single chunk of terminal I/O.
type Entry struct {
	TimestampMicros int64
	FD              FD
	Data            []byte
}

// LogSink receives log events.
type LogSink func(e *Entry) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if the source
	// has no more log entries.
	Next() (*Entry, error)
}

// Replay feeds every entry from src into sink.
func Replay(src LogSource, sink LogSink) error {
	for {
		entry, err := src.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := sink(entry); err != nil {
			return err
		}
	}
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prevTimeMicros int64

	return func(entry *Entry) error {
		once.Do(func() {
			prevTimeMicros = entry.TimestampMicros
		})

		delta := entry.TimestampMicros - prevTimeMicros
		prevTimeMicros = entry.TimestampMicros

		if maxSleep > 0 {
			sleepDuration := time.Duration(delta) * time.Microsecond
			if sleepDuration > maxSleep {
				sleepDuration = maxSleep
			}
			time.Sleep(sleepDuration)
		}

		return next(entry)
	}
}

// NewClientOutput writes stdout and stderr to the given writer
func NewClientOutput(w io.Writer) LogSink {
	return func(entry *Entry) error {
		if entry.FD == FDStdin {
			return nil
		}
		_, err := w.Write(entry.Data)
		return err
	}
}

// NewSynchronizedSink serializes calls to next so recorders on different
// streams can share it.
func NewSynchronizedSink(next LogSink) LogSink {
	var mu sync.Mutex
	return func(entry *Entry) error {
		mu.Lock()
		defer mu.Unlock()
		return next(entry)
	}
}

// Recorder is an io.Writer that turns every write into an Entry.
type Recorder struct {
	mu   sync.Mutex
	fd   FD
	sink LogSink
	now  func() time.Time
}

// NewRecorder creates a writer recording output on fd.
func NewRecorder(fd FD, sink LogSink, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{fd: fd, sink: sink, now: now}
}

// Write implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]byte, len(p))
	copy(data, p)
	if err := r.sink(&Entry{TimestampMicros: r.now().UnixMicro(), FD: r.fd, Data: data}); err != nil {
		return 0, err
	}
	return len(p), nil
}
