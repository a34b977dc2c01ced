package resource

import "github.com/yondr/yondr/engine/name"

// ManifestEntry advertises one resource: (package, id, version, session id)
type ManifestEntry struct {
	Package   string
	ID        string
	Version   uint64
	SessionID SessionID
}

// Snapshot is an immutable view of a frozen Store. All methods are safe for concurrent use.
type Snapshot struct {
	resources   []*Resource
	bySessionID map[SessionID]*Resource
	byName      map[name.Name]*Resource
	manifest    []ManifestEntry
}

func newSnapshot(resources []*Resource) *Snapshot {
	snap := &Snapshot{
		resources:   make([]*Resource, len(resources)),
		bySessionID: make(map[SessionID]*Resource, len(resources)),
		byName:      make(map[name.Name]*Resource, len(resources)),
		manifest:    make([]ManifestEntry, len(resources)),
	}
	copy(snap.resources, resources)
	for i, res := range resources {
		snap.bySessionID[res.sessionID] = res
		snap.byName[res.name] = res
		snap.manifest[i] = ManifestEntry{
			Package:   res.packageName,
			ID:        res.name.ID,
			Version:   res.version,
			SessionID: res.sessionID,
		}
	}
	return snap
}

// Len returns the number of resources
func (snap *Snapshot) Len() int {
	return len(snap.resources)
}

// Resource returns the resource with the given session id, or nil
func (snap *Snapshot) Resource(id SessionID) *Resource {
	return snap.bySessionID[id]
}

// ResourceByName returns the resource with the given name, or nil
func (snap *Snapshot) ResourceByName(n name.Name) *Resource {
	return snap.byName[n]
}

// Resources returns a copy of the resource list in registration order
func (snap *Snapshot) Resources() []*Resource {
	res := make([]*Resource, len(snap.resources))
	copy(res, snap.resources)
	return res
}

// Manifest returns a copy of the manifest in registration order
func (snap *Snapshot) Manifest() []ManifestEntry {
	manifest := make([]ManifestEntry, len(snap.manifest))
	copy(manifest, snap.manifest)
	return manifest
}
