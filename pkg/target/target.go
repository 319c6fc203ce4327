// Package target provides local file targets with atomic writes.
package target

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Sokol111/avropipe/pkg/avro"
)

// ErrIncompatible is returned when a producer's output cannot feed a consumer.
var ErrIncompatible = errors.New("incompatible formats")

// Tagged is implemented by formats that declare what they accept and produce.
type Tagged interface {
	Input() string
	Output() string
}

// CheckCompatible verifies that what producer emits is what consumer
// accepts, so the two can be chained.
func CheckCompatible(producer, consumer Tagged) error {
	if producer.Output() != consumer.Input() {
		return fmt.Errorf("%w: %s output cannot feed %s input", ErrIncompatible, producer.Output(), consumer.Input())
	}
	return nil
}

// LocalTarget is a file on the local filesystem.
type LocalTarget struct {
	path string
}

func NewLocalTarget(path string) *LocalTarget {
	return &LocalTarget{path: filepath.Clean(path)}
}

func (t *LocalTarget) Path() string { return t.path }

// Exists reports whether the file is present.
func (t *LocalTarget) Exists() (bool, error) {
	_, err := os.Stat(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}
	return true, nil
}

func (t *LocalTarget) Open() (io.ReadCloser, error) {
	file, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", t.path, err)
	}
	return file, nil
}

// Create opens a temporary file next to the target. The target only
// appears once the returned file is closed.
func (t *LocalTarget) Create() (*AtomicFile, error) {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(t.path), uuid.NewString()))
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for %s: %w", t.path, err)
	}
	return &AtomicFile{file: file, tmpPath: tmp, path: t.path}, nil
}

func (t *LocalTarget) Remove() error {
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file %s: %w", t.path, err)
	}
	return nil
}

// OpenReader opens the target as an avro record reader. The file is closed
// again if the container header cannot be read.
func (t *LocalTarget) OpenReader(f *avro.Format) (*avro.Reader, error) {
	file, err := t.Open()
	if err != nil {
		return nil, err
	}
	r, err := f.PipeReader(file)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to read %s: %w", t.path, err), file.Close())
	}
	return r, nil
}

// CreateWriter returns a record writer over a new atomic file. Closing the
// writer publishes the file; call Discard on the file to abandon it.
func (t *LocalTarget) CreateWriter(f *avro.Format) (*avro.Writer, *AtomicFile, error) {
	file, err := t.Create()
	if err != nil {
		return nil, nil, err
	}
	w, err := f.PipeWriter(file)
	if err != nil {
		return nil, nil, errors.Join(err, file.Discard())
	}
	return w, file, nil
}

// AtomicFile buffers writes in a temporary file and renames it over the
// target on Close.
type AtomicFile struct {
	file    *os.File
	tmpPath string
	path    string
	done    bool
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.file.Write(p)
}

// Close syncs and publishes the file. Closing twice is a no-op.
func (a *AtomicFile) Close() error {
	if a.done {
		return nil
	}
	a.done = true

	if err := errors.Join(a.file.Sync(), a.file.Close()); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("failed to finish %s: %w", a.path, err)
	}
	if err := os.Rename(a.tmpPath, a.path); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", a.path, err)
	}
	return nil
}

// Discard removes the temporary file without touching the target. It is a
// no-op after Close.
func (a *AtomicFile) Discard() error {
	if a.done {
		return nil
	}
	a.done = true

	closeErr := a.file.Close()
	if err := os.Remove(a.tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(closeErr, fmt.Errorf("failed to remove %s: %w", a.tmpPath, err))
	}
	return nil
}

// TempPath is the path of the file being written.
func (a *AtomicFile) TempPath() string { return a.tmpPath }
