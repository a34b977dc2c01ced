package resource

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/consts"
	"github.com/yondr/yondr/engine/gwlog"
	"github.com/yondr/yondr/engine/name"
	"github.com/yondr/yondr/engine/opmon"
)

// Store holds the resources loaded from one root directory.
//
// A Store is not safe for concurrent use. Servers load every package, then call
// Freeze and share only the returned Snapshot between goroutines.
type Store struct {
	directory string

	packages       []*Package
	packageNameMap map[string]uint32

	resources    []*Resource
	nameMap      map[name.Name]int
	sessionIDMap map[SessionID]int
	ids          *SessionIDAllocator

	frozen bool
}

// NewStore creates the root directory if needed and indexes its subdirectories as packages.
// Package indices follow the lexical order of the normalized package names.
func NewStore(directory string) (*Store, error) {
	s := &Store{
		directory:      directory,
		packageNameMap: map[string]uint32{},
		nameMap:        map[name.Name]int{},
		sessionIDMap:   map[SessionID]int{},
		ids:            NewSessionIDAllocator(),
	}
	if err := s.scanPackages(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) scanPackages() error {
	if err := os.MkdirAll(s.directory, 0755); err != nil {
		return errors.Wrap(err, "create resource directory")
	}
	entries, err := ioutil.ReadDir(s.directory)
	if err != nil {
		return errors.Wrap(err, "scan resource directory")
	}

	type found struct {
		pkgName string
		path    string
	}
	var dirs []found
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !utf8.ValidString(entry.Name()) {
			return errors.Wrapf(ErrBadFilename, "package directory %q", entry.Name())
		}
		dirs = append(dirs, found{name.Normalize(entry.Name()), filepath.Join(s.directory, entry.Name())})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		return dirs[i].pkgName < dirs[j].pkgName
	})

	for _, dir := range dirs {
		if _, ok := s.packageNameMap[dir.pkgName]; ok {
			gwlog.Warnf("%s: directory %s duplicates package %s, skipped", s, dir.path, dir.pkgName)
			continue
		}
		s.addPackage(newPackage(dir.pkgName, dir.path, uint32(len(s.packages))))
	}
	return nil
}

func (s *Store) addPackage(pkg *Package) {
	s.packageNameMap[pkg.Name] = pkg.Index
	s.packages = append(s.packages, pkg)
}

func (s *Store) String() string {
	return fmt.Sprintf("Store<%s>", s.directory)
}

// Directory returns the root directory
func (s *Store) Directory() string {
	return s.directory
}

// Packages returns all packages in index order
func (s *Store) Packages() []*Package {
	return s.packages
}

// Package returns the package with the given index
func (s *Store) Package(idx uint32) (*Package, error) {
	if int(idx) >= len(s.packages) {
		return nil, errors.Wrapf(ErrInvalidPackage, "package %d", idx)
	}
	return s.packages[idx], nil
}

// PackageIndex resolves a package name (normalized before lookup)
func (s *Store) PackageIndex(pkgName string) (uint32, bool) {
	idx, ok := s.packageNameMap[name.Normalize(pkgName)]
	return idx, ok
}

// CreatePackage creates the package directory with an empty version sidecar
func (s *Store) CreatePackage(pkgName string) (uint32, error) {
	if s.frozen {
		return 0, ErrFrozen
	}
	pkgName = name.Normalize(pkgName)
	if idx, ok := s.packageNameMap[pkgName]; ok {
		return idx, nil
	}
	if pkgName == "" || pkgName[0] == '_' {
		return 0, errors.Wrapf(ErrBadFilename, "package name %q", pkgName)
	}

	pkg := newPackage(pkgName, filepath.Join(s.directory, pkgName), uint32(len(s.packages)))
	if err := os.MkdirAll(pkg.Path, 0755); err != nil {
		return 0, errors.Wrap(err, "create package directory")
	}
	pkg.meta = metadata{status: metadataLoaded, versions: map[string]uint64{}}
	pkg.scanned = true
	if err := writeMetadata(pkg.metadataPath(), pkg.meta.versions); err != nil {
		return 0, err
	}
	s.addPackage(pkg)
	gwlog.Infof("%s: created package %s", s, pkgName)
	return pkg.Index, nil
}

// LoadPackage registers every file of the package, hashing its content and assigning fresh session ids.
// Sidecar files are skipped.
func (s *Store) LoadPackage(idx uint32) error {
	if s.frozen {
		return ErrFrozen
	}
	pkg, err := s.Package(idx)
	if err != nil {
		return err
	}
	op := opmon.StartOperation("resource.LoadPackage")
	defer op.Finish(consts.LOAD_PACKAGE_WARN_THRESHOLD)

	return walkFiles(pkg.Path, func(path string) error {
		id, err := resourceIDOfPath(path)
		if IsIgnored(err) {
			return nil
		} else if err != nil {
			return err
		}

		data, err := ioutil.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read resource")
		}
		sessionID, err := s.ids.Next()
		if err != nil {
			return err
		}
		_, err = s.newResource(pkg, name.Name{ID: id, Package: idx}, path, Hash(data), sessionID, data)
		return err
	})
}

// CheckResource registers a locally cached resource under the caller's session id,
// if the package sidecar records exactly the expected version for it.
func (s *Store) CheckResource(n name.Name, version uint64, id SessionID) error {
	if s.frozen {
		return ErrFrozen
	}
	pkg, err := s.Package(n.Package)
	if err != nil {
		return err
	}
	n = name.New(n.ID, n.Package)

	versions, err := pkg.Versions()
	if err != nil {
		return err
	}
	if recorded, ok := versions[n.ID]; !ok || recorded != version {
		return errors.Wrapf(ErrIncorrectVersion, "%s:%s", pkg.Name, n.ID)
	}

	if err := pkg.scan(); err != nil {
		return err
	}
	path, ok := pkg.resourcePaths[n.ID]
	if !ok {
		return errors.Wrapf(ErrResourceDoesNotExist, "%s:%s", pkg.Name, n.ID)
	}
	if err := s.checkRegistrable(n, id); err != nil {
		return err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read resource")
	}
	_, err = s.newResource(pkg, n, path, version, id, data)
	return err
}

// CreateResource writes a resource received from a peer into its package, records
// its version in the sidecar and registers it under id.
func (s *Store) CreateResource(n name.Name, typ ResourceType, version uint64, id SessionID, data []byte) error {
	if s.frozen {
		return ErrFrozen
	}
	pkg, err := s.Package(n.Package)
	if err != nil {
		return err
	}
	n = name.New(n.ID, n.Package)
	if n.ID == "" || n.ID[0] == '_' {
		return errors.Wrapf(ErrIgnored, "resource id %q", n.ID)
	}
	if err := s.checkRegistrable(n, id); err != nil {
		return err
	}
	if _, err := decodeData(typ, data); err != nil {
		return err
	}

	if _, err := pkg.Versions(); err != nil {
		return err
	}
	if err := os.MkdirAll(pkg.Path, 0755); err != nil {
		return errors.Wrap(err, "create package directory")
	}
	if err := pkg.scan(); err != nil {
		return err
	}

	path := filepath.Join(pkg.Path, n.ID+"."+typ.Extension())
	if old, ok := pkg.resourcePaths[n.ID]; ok && old != path {
		// the resource changed type, its previous body would shadow the new one on rescan
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "remove replaced resource")
		}
		delete(pkg.resourcePaths, n.ID)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "write resource")
	}
	if err := pkg.setVersion(n.ID, version); err != nil {
		return err
	}
	pkg.resourcePaths[n.ID] = path

	_, err = s.newResource(pkg, n, path, version, id, data)
	return err
}

func (s *Store) checkRegistrable(n name.Name, id SessionID) error {
	if id == 0 {
		return ErrInvalidSessionID
	}
	if _, ok := s.nameMap[n]; ok {
		return errors.Wrapf(ErrResourceWithNameAlreadyExists, "%s", n)
	}
	if _, ok := s.sessionIDMap[id]; ok {
		return errors.Wrapf(ErrSessionIDInUse, "session id %d", id)
	}
	return nil
}

// newResource is the single registration path of every mutator; it leaves the indices untouched on failure
func (s *Store) newResource(pkg *Package, n name.Name, path string, version uint64, id SessionID, data []byte) (*Resource, error) {
	if err := s.checkRegistrable(n, id); err != nil {
		return nil, err
	}
	typ := TypeOfPath(path)
	doc, err := decodeData(typ, data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	res := &Resource{
		name:        n,
		packageName: pkg.Name,
		typ:         typ,
		path:        path,
		version:     version,
		sessionID:   id,
		raw:         data,
		doc:         doc,
	}
	s.nameMap[n] = len(s.resources)
	s.sessionIDMap[id] = len(s.resources)
	s.resources = append(s.resources, res)
	s.ids.Used(id)

	if consts.DEBUG_RESOURCES {
		gwlog.Debugf("%s: registered %s version %d", s, res, version)
	}
	return res, nil
}

// Resource returns the resource with the given session id, or nil
func (s *Store) Resource(id SessionID) *Resource {
	if idx, ok := s.sessionIDMap[id]; ok {
		return s.resources[idx]
	}
	return nil
}

// ResourceByName returns the resource with the given name, or nil
func (s *Store) ResourceByName(n name.Name) *Resource {
	if idx, ok := s.nameMap[n]; ok {
		return s.resources[idx]
	}
	return nil
}

// Resources returns all resources in registration order
func (s *Store) Resources() []*Resource {
	return s.resources
}

// NextSessionID returns the id the next bulk load would assign
func (s *Store) NextSessionID() (SessionID, error) {
	return s.ids.Next()
}

// Clean drops the package and name indices once loading is over.
// Resources stay reachable by session id.
func (s *Store) Clean() {
	s.packages = nil
	s.packageNameMap = map[string]uint32{}
	s.nameMap = map[name.Name]int{}
}

// Freeze ends the mutation phase and returns a read-only view safe to share between goroutines
func (s *Store) Freeze() *Snapshot {
	s.frozen = true
	return newSnapshot(s.resources)
}
