package resource

import (
	"path/filepath"
	"strings"
)

// SessionID refers to a resource for the lifetime of one store, 0 is never assigned
type SessionID uint16

const (
	// MaxSessionID is the largest assignable session id
	MaxSessionID = SessionID(^uint16(0))

	// MetadataFile is the version sidecar kept in every package directory
	MetadataFile = "_metadata.json"
)

// ResourceType is the kind of content a resource holds
type ResourceType uint8

const (
	// Unknown resources are opaque bytes
	Unknown ResourceType = iota
	// JSON resources are parsed when registered
	JSON
)

var typeExtensions = map[ResourceType]string{
	Unknown: "bin",
	JSON:    "json",
}

// Extension returns the file extension (without dot) resources of this type are written with
func (t ResourceType) Extension() string {
	if ext, ok := typeExtensions[t]; ok {
		return ext
	}
	return typeExtensions[Unknown]
}

func (t ResourceType) String() string {
	switch t {
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// TypeOfPath infers the resource type from a file extension, unknown extensions map to Unknown
func TypeOfPath(path string) ResourceType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == typeExtensions[JSON] {
		return JSON
	}
	return Unknown
}

// fileStem returns the base name of path without its extension
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
