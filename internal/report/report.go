package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/fsops"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// Sink receives the fully marshaled result document. Check reports whether a
// later WriteDocument can succeed, before any package state is touched.
type Sink interface {
	Check() error
	WriteDocument(data []byte) error
	String() string
}

// Marshal encodes outcomes as a JSON array. An empty result encodes as [].
func Marshal(outcomes []core.PackageOutcome) ([]byte, error) {
	if outcomes == nil {
		outcomes = []core.PackageOutcome{}
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Write marshals outcomes and hands the complete document to sink
func Write(sink Sink, outcomes []core.PackageOutcome) error {
	data, err := Marshal(outcomes)
	if err != nil {
		return err
	}
	if err := sink.WriteDocument(data); err != nil {
		return fmt.Errorf("write report to %s: %w", sink, err)
	}
	return nil
}

// FDSink writes to an inherited file descriptor
type FDSink struct {
	FD int
}

func (s FDSink) String() string {
	return fmt.Sprintf("fd %d", s.FD)
}

// Check fails unless FD is open for writing
func (s FDSink) Check() error {
	flags, err := unix.FcntlInt(uintptr(s.FD), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("fd %d: %w", s.FD, err)
	}
	if flags&unix.O_ACCMODE == unix.O_RDONLY {
		return fmt.Errorf("fd %d is not open for writing", s.FD)
	}
	return nil
}

// WriteDocument writes data to the descriptor, retrying short writes and EINTR
func (s FDSink) WriteDocument(data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(s.FD, data)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// FileSink replaces a file with the document
type FileSink struct {
	Fs   afero.Fs
	Path string
}

func (s FileSink) String() string {
	return s.Path
}

// Check creates the parent directory and a throwaway file beside Path
func (s FileSink) Check() error {
	if fsops.IsDir(s.Fs, s.Path) {
		return fmt.Errorf("%s is a directory", s.Path)
	}
	if err := fsops.EnsureParentDir(s.Fs, s.Path); err != nil {
		return fmt.Errorf("%s: %w", s.Path, err)
	}
	tmp, err := afero.TempFile(s.Fs, filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".check-")
	if err != nil {
		return fmt.Errorf("%s: directory not writable: %w", s.Path, err)
	}
	name := tmp.Name()
	tmp.Close()
	return s.Fs.Remove(name)
}

// WriteDocument writes data atomically to Path
func (s FileSink) WriteDocument(data []byte) error {
	return fsops.WriteFileAtomic(s.Fs, s.Path, data, 0o644)
}

// NewSink returns a FileSink when path is set, otherwise an FDSink on fd
func NewSink(fs afero.Fs, path string, fd int) Sink {
	if path != "" {
		return FileSink{Fs: fs, Path: path}
	}
	return FDSink{FD: fd}
}
