// Package export writes simulation outputs to disk: zstd-compressed JSONL
// streams per run, and a SQLite index of experiment results.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/jbbrd/DES-for-YB-operations/sim"
)

// JSONLZstdWriter appends one JSON document per line to a zstd stream.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// NewJSONLZstdWriter creates (or truncates) path and its parent directories.
func NewJSONLZstdWriter(path string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file the writer appends to.
func (w *JSONLZstdWriter) Path() string { return w.path }

// Lines returns the number of documents written so far.
func (w *JSONLZstdWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return errors.New("write on closed writer")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Close flushes the buffer and the zstd frame, then closes the file.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	errFile := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(errFlush, errEnc, errFile)
}

// ReadJSONL decodes every line of a JSONL zstd file into a fresh T and calls fn.
func ReadJSONL[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	jd := json.NewDecoder(dec)
	for {
		var v T
		if err := jd.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// UtilizationSample is one line of the utilization stream.
type UtilizationSample struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// RunFiles names the streams written for one run.
type RunFiles struct {
	Archive     string `json:"archive"`
	Utilization string `json:"utilization"`
	Discarded   string `json:"discarded"`
	YardHistory string `json:"yard_history,omitempty"`
}

// WriteRun dumps the archive, the discard list, the utilization samples and,
// when recorded, the yard history of s under dir, with file names tagged by run.
func WriteRun(dir, run string, s *sim.Simulator) (RunFiles, error) {
	files := RunFiles{
		Archive:     filepath.Join(dir, fmt.Sprintf("archive-%s.jsonl.zst", run)),
		Utilization: filepath.Join(dir, fmt.Sprintf("utilization-%s.jsonl.zst", run)),
		Discarded:   filepath.Join(dir, fmt.Sprintf("discarded-%s.jsonl.zst", run)),
	}
	if err := writeAll(files.Archive, s.Metrics.Archive); err != nil {
		return files, err
	}
	if err := writeAll(files.Discarded, s.Metrics.Discarded); err != nil {
		return files, err
	}
	samples := make([]UtilizationSample, len(s.Metrics.Utilization))
	for i, u := range s.Metrics.Utilization {
		samples[i] = UtilizationSample{Index: i, Value: u}
	}
	if err := writeAll(files.Utilization, samples); err != nil {
		return files, err
	}
	if len(s.Metrics.YardHistory) > 0 {
		files.YardHistory = filepath.Join(dir, fmt.Sprintf("yard-history-%s.jsonl.zst", run))
		if err := writeAll(files.YardHistory, s.Metrics.YardHistory); err != nil {
			return files, err
		}
	}
	return files, nil
}

func writeAll[T any](path string, items []T) (err error) {
	w, err := NewJSONLZstdWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, it := range items {
		if err := w.Write(it); err != nil {
			return err
		}
	}
	return nil
}
