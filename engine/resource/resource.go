package resource

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/yondr/yondr/engine/name"
)

// Resource is one named, typed, versioned content blob registered in a Store.
// A Resource never changes after registration; RawData must not be modified by callers.
type Resource struct {
	name        name.Name
	packageName string
	typ         ResourceType
	path        string
	version     uint64
	sessionID   SessionID
	raw         []byte
	doc         interface{}
}

// Name returns the normalized name of the resource
func (r *Resource) Name() name.Name {
	return r.name
}

// PackageName returns the name of the package the resource belongs to
func (r *Resource) PackageName() string {
	return r.packageName
}

// Type returns the content kind
func (r *Resource) Type() ResourceType {
	return r.typ
}

// Path returns where the resource lives on disk
func (r *Resource) Path() string {
	return r.path
}

// Version returns the content hash used as version id
func (r *Resource) Version() uint64 {
	return r.version
}

// SessionID returns the id given to the resource in this session
func (r *Resource) SessionID() SessionID {
	return r.sessionID
}

// RawData returns the bytes of the resource file
func (r *Resource) RawData() []byte {
	return r.raw
}

// JSON returns the parsed document of a JSON resource, nil for other types
func (r *Resource) JSON() interface{} {
	return r.doc
}

func (r *Resource) String() string {
	return fmt.Sprintf("Resource<%s:%s#%d>", r.packageName, r.name.ID, r.sessionID)
}

func decodeData(typ ResourceType, data []byte) (interface{}, error) {
	if typ != JSON {
		return nil, nil
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(ErrBadJSON, err.Error())
	}
	return doc, nil
}
