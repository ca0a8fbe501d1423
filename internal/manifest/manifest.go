// Package manifest loads package requests from YAML request files.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// File is the on-disk request file layout:
//
//	install:
//	  - pkgY,2.0
//	erase:
//	  - pkgX
type File struct {
	Install []string `yaml:"install"`
	Erase   []string `yaml:"erase"`
}

// Load reads and parses a request file
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return &f, nil
}

// Requests returns erase requests followed by install requests, in file order
func (f *File) Requests() []core.PackageRequest {
	requests := core.ParseRequests(core.RequestErase, f.Erase)
	return append(requests, core.ParseRequests(core.RequestInstall, f.Install)...)
}
