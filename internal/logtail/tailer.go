package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 500 * time.Millisecond

// Handler receives new log text. rotated is true on the first chunk after
// the file was truncated or replaced; chunk may then be empty.
type Handler func(chunk string, rotated bool)

// Options configures a Tailer.
type Options struct {
	Path     string
	Interval time.Duration
	// FromStart reads the existing file contents on the first poll instead
	// of skipping to the end.
	FromStart bool
}

// Tailer follows an append-only log file by polling its size. Only complete
// lines are handed out; a trailing partial line waits for the next poll.
type Tailer struct {
	logger *zap.Logger
	opts   Options

	offset  int64
	started bool
}

// New creates a tailer for opts.Path.
func New(opts Options, logger *zap.Logger) *Tailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Tailer{logger: logger, opts: opts}
}

// Offset returns the byte position up to which the file has been consumed.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// Poll reads whatever complete lines were appended since the last call.
// A missing file is not an error; it yields nothing until it appears.
func (t *Tailer) Poll() (chunk string, rotated bool, err error) {
	info, err := os.Stat(t.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stat log file: %w", err)
	}
	size := info.Size()

	if !t.started {
		t.started = true
		if !t.opts.FromStart {
			t.offset = size
			t.logger.Info("tailing log file from end",
				zap.String("path", t.opts.Path),
				zap.Int64("offset", size),
			)
			return "", false, nil
		}
	}

	if size < t.offset {
		t.logger.Info("log file truncated, starting over",
			zap.String("path", t.opts.Path),
			zap.Int64("previous_offset", t.offset),
			zap.Int64("size", size),
		)
		t.offset = 0
		rotated = true
	}
	if size == t.offset {
		return "", rotated, nil
	}

	f, err := os.Open(t.opts.Path)
	if err != nil {
		return "", rotated, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return "", rotated, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(f, size-t.offset))
	if err != nil {
		return "", rotated, fmt.Errorf("read log file: %w", err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return "", rotated, nil
	}
	data = data[:end+1]
	t.offset += int64(len(data))
	return string(data), rotated, nil
}

// Run polls until ctx is cancelled, calling handle for every new chunk and
// for every rotation. Read errors are logged and retried on the next tick.
func (t *Tailer) Run(ctx context.Context, handle Handler) error {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		chunk, rotated, err := t.Poll()
		if err != nil {
			t.logger.Warn("failed to read log file",
				zap.String("path", t.opts.Path),
				zap.Error(err),
			)
		} else if chunk != "" || rotated {
			handle(chunk, rotated)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
