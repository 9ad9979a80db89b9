package callback

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
)

// CSVLoggerConfig controls the target file and row format.
type CSVLoggerConfig struct {
	// Path is the target file, created or truncated on OnTrainingBegin
	// unless Append is set.
	Path string
	// Comma is the field separator; zero means ','.
	Comma rune
	// Append opens the file in append mode and skips the header row, so
	// resumed sessions extend one table.
	Append bool
}

// CSVLogger writes one header row derived from the first record's keys and
// one row per epoch. Rows are flushed as they are written; the file is
// released on OnTrainingEnd and on every abort path via Close.
type CSVLogger struct {
	Base

	cfg CSVLoggerConfig

	mu          sync.Mutex
	file        *os.File
	writer      *csv.Writer
	wroteHeader bool
	closed      bool
}

var _ Callback = (*CSVLogger)(nil)
var _ io.Closer = (*CSVLogger)(nil)

// NewCSVLogger targets path with the default separator and truncate-on-open.
func NewCSVLogger(path string) *CSVLogger {
	return NewCSVLoggerWithConfig(CSVLoggerConfig{Path: path})
}

func NewCSVLoggerWithConfig(cfg CSVLoggerConfig) *CSVLogger {
	if cfg.Comma == 0 {
		cfg.Comma = ','
	}
	return &CSVLogger{cfg: cfg}
}

func (l *CSVLogger) OnTrainingBegin(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("%w: path=%q", ErrLoggerClosed, l.cfg.Path)
	}
	if l.file != nil {
		return nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if l.cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(l.cfg.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open csv log: %w", err)
	}
	l.file = file
	l.writer = csv.NewWriter(file)
	l.writer.Comma = l.cfg.Comma
	l.wroteHeader = l.cfg.Append
	return nil
}

func (l *CSVLogger) OnEpochEnd(_ context.Context, logs Logs) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.writeRecord(logs)
}

func (l *CSVLogger) OnTrainingEnd(_ context.Context, _ Logs) error {
	return l.Close()
}

// Close flushes and releases the file. It is idempotent and safe to call
// on a logger whose session aborted before any hook ran.
func (l *CSVLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.file == nil {
		l.closed = true
		return nil
	}
	l.closed = true

	l.writer.Flush()
	flushErr := l.writer.Error()
	closeErr := l.file.Close()
	l.file = nil
	l.writer = nil

	if flushErr != nil {
		return fmt.Errorf("flush csv log %q: %w", l.cfg.Path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close csv log %q: %w", l.cfg.Path, closeErr)
	}
	return nil
}

func (l *CSVLogger) writeRecord(logs Logs) error {
	if l.closed {
		return fmt.Errorf("%w: path=%q epoch=%d", ErrLoggerClosed, l.cfg.Path, logs.Epoch)
	}
	if l.writer == nil {
		return fmt.Errorf("%w: path=%q epoch=%d", ErrLoggerNotOpen, l.cfg.Path, logs.Epoch)
	}

	fields := logs.Fields()
	if !l.wroteHeader {
		header := make([]string, len(fields))
		for i, field := range fields {
			header[i] = field.Key
		}
		if err := l.writer.Write(header); err != nil {
			return fmt.Errorf("write csv header %q: %w", l.cfg.Path, err)
		}
		l.wroteHeader = true
	}

	row := make([]string, len(fields))
	for i, field := range fields {
		row[i] = field.Value
	}
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("write csv row %q epoch=%d: %w", l.cfg.Path, logs.Epoch, err)
	}

	// Flush per row so a partially-written table survives an abort
	// elsewhere in the loop.
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("flush csv row %q epoch=%d: %w", l.cfg.Path, logs.Epoch, err)
	}
	return nil
}
