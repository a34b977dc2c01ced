package resource

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/name"
)

type metadataStatus int

const (
	metadataNotLoaded metadataStatus = iota
	metadataLoaded
	metadataFailed
)

// metadata is the version map of a package, loaded at most once per store lifetime
type metadata struct {
	status   metadataStatus
	versions map[string]uint64
	err      error
}

// Package is one subdirectory of the store root
type Package struct {
	Name  string
	Path  string
	Index uint32

	meta          metadata
	scanned       bool
	resourcePaths map[string]string
}

func newPackage(pkgName, path string, idx uint32) *Package {
	return &Package{
		Name:          pkgName,
		Path:          path,
		Index:         idx,
		resourcePaths: map[string]string{},
	}
}

func (p *Package) metadataPath() string {
	return filepath.Join(p.Path, MetadataFile)
}

// Versions returns the version map of the package, loading the sidecar on first use.
// A missing sidecar is an empty map; a broken one fails now and on every later call.
func (p *Package) Versions() (map[string]uint64, error) {
	switch p.meta.status {
	case metadataLoaded:
		return p.meta.versions, nil
	case metadataFailed:
		return nil, p.meta.err
	}

	versions, err := readMetadata(p.metadataPath())
	if err != nil {
		p.meta = metadata{status: metadataFailed, err: err}
		return nil, err
	}
	p.meta = metadata{status: metadataLoaded, versions: versions}
	return versions, nil
}

func (p *Package) setVersion(id string, version uint64) error {
	versions, err := p.Versions()
	if err != nil {
		return err
	}
	versions[id] = version
	return writeMetadata(p.metadataPath(), versions)
}

func readMetadata(path string) (map[string]uint64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[string]uint64{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "open package metadata")
	}
	defer f.Close()

	var raw map[string]json.Number
	decoder := json.NewDecoder(f)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrapf(ErrMalformedMetadata, "%s: %s", path, err)
	}

	versions := make(map[string]uint64, len(raw))
	for id, num := range raw {
		v, err := strconv.ParseUint(num.String(), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedMetadata, "%s: version of %s: %s", path, id, err)
		}
		versions[name.Normalize(id)] = v
	}
	return versions, nil
}

// writeMetadata replaces the sidecar as a whole
func writeMetadata(path string, versions map[string]uint64) error {
	data, err := json.MarshalIndent(versions, "", "\t")
	if err != nil {
		return errors.Wrap(err, "encode package metadata")
	}
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write package metadata")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replace package metadata")
	}
	return nil
}

// scan fills the resource path index, once
func (p *Package) scan() error {
	if p.scanned {
		return nil
	}
	if _, err := p.Versions(); err != nil {
		return err
	}

	paths := map[string]string{}
	err := walkFiles(p.Path, func(path string) error {
		id, err := resourceIDOfPath(path)
		if IsIgnored(err) {
			return nil
		} else if err != nil {
			return err
		}
		paths[id] = path
		return nil
	})
	if err != nil {
		return err
	}
	p.resourcePaths = paths
	p.scanned = true
	return nil
}

// resourceIDOfPath derives the normalized resource id from a file path.
// Files whose stem starts with '_' after normalization are sidecars and yield ErrIgnored.
func resourceIDOfPath(path string) (string, error) {
	stem := fileStem(path)
	if !utf8.ValidString(stem) {
		return "", errors.Wrapf(ErrBadFilename, "%q", path)
	}
	id := name.Normalize(stem)
	if id == "" || strings.HasPrefix(id, "_") {
		return "", ErrIgnored
	}
	return id, nil
}

// walkFiles visits every regular file under root in lexical order
func walkFiles(root string, visit func(path string) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk %s", root)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return visit(path)
	})
}
